package repository_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"oa-hub/backend/internal/model"
	"oa-hub/backend/internal/repository"
)

// openTestDB 打开独立的内存 SQLite 数据库并建表
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		// 置空逻辑由 Repository 显式完成，测试库不建外键
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&model.Department{}, &model.Account{}))
	return db
}

func newAccount(username, email string) *model.Account {
	return &model.Account{
		Username: username,
		Email:    email,
		Password: "$2a$04$placeholder",
		IsActive: true,
		Status:   model.StatusActivated,
	}
}

func TestAccountRepo_CreateAndGet(t *testing.T) {
	repo := repository.NewRepository(openTestDB(t))
	ctx := context.Background()

	acc := newAccount("ada", "Ada@example.com")
	require.NoError(t, repo.Account.Create(ctx, acc))
	require.Len(t, acc.UID, 22)
	assert.False(t, acc.DateJoined.IsZero())

	got, err := repo.Account.GetByID(ctx, acc.UID)
	require.NoError(t, err)
	assert.Equal(t, "ada", got.Username)

	// 邮箱查找不区分大小写
	byEmail, err := repo.Account.GetByEmail(ctx, "ADA@EXAMPLE.COM")
	require.NoError(t, err)
	assert.Equal(t, acc.UID, byEmail.UID)

	_, err = repo.Account.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestAccountRepo_DuplicateEmail(t *testing.T) {
	repo := repository.NewRepository(openTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Account.Create(ctx, newAccount("ada", "ada@example.com")))

	err := repo.Account.Create(ctx, newAccount("ada2", "ada@example.com"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey), "期望唯一约束冲突，实际: %v", err)

	_, total, err := repo.Account.ListWithFilters(ctx, nil, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestAccountRepo_DateJoinedImmutable(t *testing.T) {
	repo := repository.NewRepository(openTestDB(t))
	ctx := context.Background()

	acc := newAccount("ada", "ada@example.com")
	require.NoError(t, repo.Account.Create(ctx, acc))
	joined := acc.DateJoined

	acc.DateJoined = joined.Add(-48 * time.Hour)
	acc.FirstName = "Ada"
	require.NoError(t, repo.Account.Update(ctx, acc))

	got, err := repo.Account.GetByID(ctx, acc.UID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.FirstName)
	assert.WithinDuration(t, joined, got.DateJoined, time.Second)
}

func TestAccountRepo_DeleteLeaderKeepsDepartment(t *testing.T) {
	repo := repository.NewRepository(openTestDB(t))
	ctx := context.Background()

	leader := newAccount("leader", "leader@example.com")
	require.NoError(t, repo.Account.Create(ctx, leader))

	dept := &model.Department{Name: "研发部", Intro: "R&D", LeaderID: &leader.UID, ManagerID: &leader.UID}
	require.NoError(t, repo.Department.Create(ctx, dept))

	require.NoError(t, repo.Account.Delete(ctx, leader.UID))

	got, err := repo.Department.GetByID(ctx, dept.ID)
	require.NoError(t, err)
	assert.Nil(t, got.LeaderID)
	assert.Nil(t, got.Leader)
	assert.Nil(t, got.ManagerID)
	assert.Equal(t, "研发部", got.Name)

	assert.ErrorIs(t, repo.Account.Delete(ctx, leader.UID), gorm.ErrRecordNotFound)
}

func TestDepartmentRepo_LeaderUnique(t *testing.T) {
	repo := repository.NewRepository(openTestDB(t))
	ctx := context.Background()

	leader := newAccount("leader", "leader@example.com")
	require.NoError(t, repo.Account.Create(ctx, leader))

	require.NoError(t, repo.Department.Create(ctx, &model.Department{Name: "A", LeaderID: &leader.UID}))
	err := repo.Department.Create(ctx, &model.Department{Name: "B", LeaderID: &leader.UID})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	// manager 可以被多个部门共享
	require.NoError(t, repo.Department.Create(ctx, &model.Department{Name: "C", ManagerID: &leader.UID}))
	require.NoError(t, repo.Department.Create(ctx, &model.Department{Name: "D", ManagerID: &leader.UID}))
	managed, err := repo.Department.ListByManager(ctx, leader.UID)
	require.NoError(t, err)
	assert.Len(t, managed, 2)

	led, err := repo.Department.GetByLeader(ctx, leader.UID)
	require.NoError(t, err)
	assert.Equal(t, "A", led.Name)
}

func TestDepartmentRepo_DeleteNullsMembers(t *testing.T) {
	repo := repository.NewRepository(openTestDB(t))
	ctx := context.Background()

	dept := &model.Department{Name: "市场部"}
	require.NoError(t, repo.Department.Create(ctx, dept))

	member := newAccount("m", "m@example.com")
	member.DepartmentID = &dept.ID
	require.NoError(t, repo.Account.Create(ctx, member))

	count, err := repo.Department.CountMembers(ctx, dept.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	require.NoError(t, repo.Department.Delete(ctx, dept.ID))

	got, err := repo.Account.GetByID(ctx, member.UID)
	require.NoError(t, err)
	assert.Nil(t, got.DepartmentID)
	assert.Nil(t, got.Department)

	assert.ErrorIs(t, repo.Department.Delete(ctx, dept.ID), gorm.ErrRecordNotFound)
}

func TestAccountRepo_ListWithFilters(t *testing.T) {
	repo := repository.NewRepository(openTestDB(t))
	ctx := context.Background()

	dept := &model.Department{Name: "运营部"}
	require.NoError(t, repo.Department.Create(ctx, dept))

	a := newAccount("alice", "alice@example.com")
	a.DepartmentID = &dept.ID
	a.IsStaff = true
	b := newAccount("bob", "bob@example.com")
	b.Status = model.StatusLocked
	c := newAccount("carol", "carol@example.com")
	c.FirstName = "Alicia"
	for _, acc := range []*model.Account{a, b, c} {
		require.NoError(t, repo.Account.Create(ctx, acc))
	}

	_, total, err := repo.Account.ListWithFilters(ctx, &repository.AccountListFilters{DepartmentID: &dept.ID}, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	locked := model.StatusLocked
	list, _, err := repo.Account.ListWithFilters(ctx, &repository.AccountListFilters{Status: &locked}, 0, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "bob", list[0].Username)

	staff := true
	_, total, err = repo.Account.ListWithFilters(ctx, &repository.AccountListFilters{IsStaff: &staff}, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	_, total, err = repo.Account.ListWithFilters(ctx, &repository.AccountListFilters{Keyword: "ALI"}, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	page, total, err := repo.Account.ListWithFilters(ctx, nil, 0, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, page, 2)
}

func TestRepository_TransactionRollback(t *testing.T) {
	repo := repository.NewRepository(openTestDB(t))
	ctx := context.Background()

	err := repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Account.Create(ctx, newAccount("x", "x@example.com")); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.Error(t, err)

	_, err = repo.Account.GetByEmail(ctx, "x@example.com")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepository_NestedTransactionSavepoint(t *testing.T) {
	repo := repository.NewRepository(openTestDB(t))
	ctx := context.Background()
	require.NoError(t, repo.Account.Create(ctx, newAccount("taken", "taken@example.com")))

	err := repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Account.Create(ctx, newAccount("a", "a@example.com")); err != nil {
			return err
		}

		// 内层失败只回滚到保存点
		inner := tx.Transaction(ctx, func(rowTx *repository.Repository) error {
			if err := rowTx.Account.Create(ctx, newAccount("b", "b@example.com")); err != nil {
				return err
			}
			return rowTx.Account.Create(ctx, newAccount("dup", "taken@example.com"))
		})
		assert.ErrorIs(t, inner, gorm.ErrDuplicatedKey)

		return tx.Account.Create(ctx, newAccount("c", "c@example.com"))
	})
	require.NoError(t, err)

	for _, email := range []string{"a@example.com", "c@example.com"} {
		_, err := repo.Account.GetByEmail(ctx, email)
		assert.NoError(t, err, email)
	}
	_, err = repo.Account.GetByEmail(ctx, "b@example.com")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestAccountRepo_UpdateLastLogin(t *testing.T) {
	repo := repository.NewRepository(openTestDB(t))
	ctx := context.Background()

	acc := newAccount("ada", "ada@example.com")
	require.NoError(t, repo.Account.Create(ctx, acc))

	now := time.Now().Truncate(time.Second)
	require.NoError(t, repo.Account.UpdateLastLogin(ctx, acc.UID, now))

	got, err := repo.Account.GetByID(ctx, acc.UID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLogin)
	assert.WithinDuration(t, now, *got.LastLogin, time.Second)
}
