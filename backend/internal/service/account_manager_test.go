package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"oa-hub/backend/internal/model"
	apperrors "oa-hub/backend/pkg/errors"
	"oa-hub/backend/pkg/metrics"
	"oa-hub/backend/pkg/password"
)

// ── 测试辅助 ──

func setupTestAccountManager() (AccountManager, *mockAccountRepo, *mockDeptRepo, *metrics.Metrics) {
	repo, accountRepo, deptRepo := newMockRepository()
	m := metrics.NewNop()
	mgr := NewAccountManager(repo, password.NewHasher(bcrypt.MinCost), m, zap.NewNop())
	return mgr, accountRepo, deptRepo, m
}

// ── CreateUser 测试 ──

func TestAccountManager_CreateUser_Success(t *testing.T) {
	mgr, accountRepo, _, m := setupTestAccountManager()

	account, err := mgr.CreateUser(context.Background(), "ada", "Ada@EXAMPLE.COM", "s3cret-pass", nil)
	if err != nil {
		t.Fatalf("CreateUser 应成功: %v", err)
	}

	if account.UID == "" {
		t.Error("期望生成 UID")
	}
	if account.Email != "Ada@example.com" {
		t.Errorf("期望邮箱域名小写化，实际=%s", account.Email)
	}
	if account.IsStaff || account.IsSuperuser {
		t.Error("普通账号 is_staff / is_superuser 默认应为 false")
	}
	if !account.IsActive || account.Status != model.StatusActivated {
		t.Error("期望默认启用且状态为已激活")
	}

	stored := accountRepo.accounts[account.UID]
	if stored == nil {
		t.Fatal("账号未持久化")
	}
	if stored.Password == "s3cret-pass" {
		t.Error("不应保存明文密码")
	}
	if err := password.NewHasher(bcrypt.MinCost).Check("s3cret-pass", stored.Password); err != nil {
		t.Errorf("保存的哈希应能校验原密码: %v", err)
	}
	if got := testutil.ToFloat64(m.AccountsCreated.WithLabelValues(accountKindUser)); got != 1 {
		t.Errorf("期望 accounts_created{kind=user}=1，实际=%v", got)
	}
}

func TestAccountManager_CreateUser_EmptyUsername(t *testing.T) {
	mgr, accountRepo, _, _ := setupTestAccountManager()

	for _, username := range []string{"", "   "} {
		_, err := mgr.CreateUser(context.Background(), username, "a@example.com", "pw", nil)
		if !errors.Is(err, ErrUsernameRequired) {
			t.Errorf("username=%q 期望 ErrUsernameRequired，实际: %v", username, err)
		}
	}
	if len(accountRepo.accounts) != 0 {
		t.Errorf("失败时不应写入，实际记录数=%d", len(accountRepo.accounts))
	}
}

func TestAccountManager_CreateUser_EmptyPasswordIsUnusable(t *testing.T) {
	mgr, accountRepo, _, _ := setupTestAccountManager()

	account, err := mgr.CreateUser(context.Background(), "bob", "bob@example.com", "", nil)
	if err != nil {
		t.Fatalf("CreateUser 应成功: %v", err)
	}

	stored := accountRepo.accounts[account.UID]
	if password.IsUsable(stored.Password) {
		t.Errorf("空密码应生成不可用密码，实际=%s", stored.Password)
	}
	if err := password.NewHasher(bcrypt.MinCost).Check("", stored.Password); err == nil {
		t.Error("不可用密码不应通过校验")
	}
}

func TestAccountManager_CreateUser_ExtraFields(t *testing.T) {
	mgr, _, deptRepo, _ := setupTestAccountManager()
	dept := &model.Department{Name: "研发部"}
	_ = deptRepo.Create(context.Background(), dept)

	locked := model.StatusLocked
	extra := &ExtraFields{
		FirstName:    strPtr("Ada"),
		LastName:     strPtr("Lovelace"),
		Telephone:    strPtr("13800000000"),
		IsStaff:      boolPtr(true),
		IsActive:     boolPtr(false),
		Status:       &locked,
		DepartmentID: uintPtr(dept.ID),
	}

	account, err := mgr.CreateUser(context.Background(), "ada", "ada@example.com", "pw", extra)
	if err != nil {
		t.Fatalf("CreateUser 应成功: %v", err)
	}
	if account.FullName() != "Ada Lovelace" {
		t.Errorf("期望 FullName=Ada Lovelace，实际=%s", account.FullName())
	}
	if !account.IsStaff || account.IsSuperuser {
		t.Error("期望 is_staff=true, is_superuser=false")
	}
	if account.IsActive || account.Status != model.StatusLocked {
		t.Error("期望覆盖 is_active 与 status")
	}
	if account.DepartmentID == nil || *account.DepartmentID != dept.ID {
		t.Error("期望关联部门")
	}
}

func TestAccountManager_CreateUser_DuplicateEmail(t *testing.T) {
	mgr, accountRepo, _, _ := setupTestAccountManager()
	ctx := context.Background()

	if _, err := mgr.CreateUser(ctx, "first", "dup@example.com", "pw", nil); err != nil {
		t.Fatalf("首次创建应成功: %v", err)
	}

	_, err := mgr.CreateUser(ctx, "second", "DUP@Example.com", "pw", nil)
	if !errors.Is(err, ErrEmailExists) {
		t.Errorf("期望 ErrEmailExists，实际: %v", err)
	}
	if !errors.Is(err, apperrors.ErrConflict) {
		t.Error("ErrEmailExists 应包装 ErrConflict")
	}
	if len(accountRepo.accounts) != 1 {
		t.Errorf("期望仅 1 条记录，实际=%d", len(accountRepo.accounts))
	}
}

func TestAccountManager_CreateUser_DuplicateEmailFromStorage(t *testing.T) {
	mgr, accountRepo, _, _ := setupTestAccountManager()
	ctx := context.Background()

	if _, err := mgr.CreateUser(ctx, "first", "race@example.com", "pw", nil); err != nil {
		t.Fatalf("首次创建应成功: %v", err)
	}

	accountRepo.skipEmailLookup = true
	_, err := mgr.CreateUser(ctx, "second", "Race@example.com", "pw", nil)
	if !errors.Is(err, ErrEmailExists) {
		t.Errorf("唯一约束冲突应转换为 ErrEmailExists，实际: %v", err)
	}
	if len(accountRepo.accounts) != 1 {
		t.Errorf("期望仅 1 条记录，实际=%d", len(accountRepo.accounts))
	}
}

func TestAccountManager_CreateUser_InvalidFields(t *testing.T) {
	tests := []struct {
		name  string
		user  string
		email string
		extra *ExtraFields
		field string
	}{
		{"邮箱格式错误", "ada", "not-an-email", nil, "email"},
		{"用户名过长", strings.Repeat("a", 151), "a@example.com", nil, "username"},
		{"电话过长", "ada", "a@example.com", &ExtraFields{Telephone: strPtr(strings.Repeat("1", 21))}, "telephone"},
		{"状态越界", "ada", "a@example.com", &ExtraFields{Status: func() *model.AccountStatus { s := model.AccountStatus(9); return &s }()}, "status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr, accountRepo, _, _ := setupTestAccountManager()

			_, err := mgr.CreateUser(context.Background(), tt.user, tt.email, "pw", tt.extra)
			if !errors.Is(err, ErrInvalidAccount) {
				t.Fatalf("期望 ErrInvalidAccount，实际: %v", err)
			}
			if !errors.Is(err, apperrors.ErrValidation) {
				t.Error("ErrInvalidAccount 应包装 ErrValidation")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("错误信息应包含字段 %s，实际: %v", tt.field, err)
			}
			if len(accountRepo.accounts) != 0 {
				t.Error("校验失败时不应写入")
			}
		})
	}
}

func TestAccountManager_CreateUser_DepartmentNotFound(t *testing.T) {
	mgr, accountRepo, _, _ := setupTestAccountManager()

	_, err := mgr.CreateUser(context.Background(), "ada", "ada@example.com", "pw", &ExtraFields{DepartmentID: uintPtr(404)})
	if !errors.Is(err, ErrDepartmentNotFound) {
		t.Errorf("期望 ErrDepartmentNotFound，实际: %v", err)
	}
	if len(accountRepo.accounts) != 0 {
		t.Error("部门不存在时不应写入")
	}
}

func TestAccountManager_CreateUser_PasswordTooLong(t *testing.T) {
	mgr, accountRepo, _, _ := setupTestAccountManager()

	_, err := mgr.CreateUser(context.Background(), "ada", "ada@example.com", strings.Repeat("x", 73), nil)
	if !errors.Is(err, ErrInvalidAccount) {
		t.Fatalf("期望 ErrInvalidAccount，实际: %v", err)
	}
	if !errors.Is(err, password.ErrTooLong) {
		t.Errorf("应包装 password.ErrTooLong，实际: %v", err)
	}
	if len(accountRepo.accounts) != 0 {
		t.Error("密码超长时不应写入")
	}

	if _, err := mgr.CreateUser(context.Background(), "ada", "ada@example.com", strings.Repeat("x", 72), nil); err != nil {
		t.Errorf("72 字节密码应可创建: %v", err)
	}
}

// ── CreateSuperuser 测试 ──

func TestAccountManager_CreateSuperuser_Defaults(t *testing.T) {
	mgr, _, _, m := setupTestAccountManager()

	account, err := mgr.CreateSuperuser(context.Background(), "root", "root@example.com", "pw", nil)
	if err != nil {
		t.Fatalf("CreateSuperuser 应成功: %v", err)
	}
	if !account.IsStaff || !account.IsSuperuser {
		t.Error("超级用户 is_staff / is_superuser 应为 true")
	}
	if account.Role() != model.RoleSuperuser {
		t.Errorf("期望角色 superuser，实际=%s", account.Role())
	}
	if got := testutil.ToFloat64(m.AccountsCreated.WithLabelValues(accountKindSuperuser)); got != 1 {
		t.Errorf("期望 accounts_created{kind=superuser}=1，实际=%v", got)
	}
}

func TestAccountManager_CreateSuperuser_ExplicitTrueAllowed(t *testing.T) {
	mgr, _, _, _ := setupTestAccountManager()

	extra := &ExtraFields{IsStaff: boolPtr(true), IsSuperuser: boolPtr(true)}
	if _, err := mgr.CreateSuperuser(context.Background(), "root", "root@example.com", "pw", extra); err != nil {
		t.Fatalf("显式 true 应允许: %v", err)
	}
}

func TestAccountManager_CreateSuperuser_InconsistentFlags(t *testing.T) {
	tests := []struct {
		name  string
		extra *ExtraFields
		want  error
	}{
		{"is_staff=false", &ExtraFields{IsStaff: boolPtr(false)}, ErrSuperuserNotStaff},
		{"is_superuser=false", &ExtraFields{IsSuperuser: boolPtr(false)}, ErrSuperuserNotSuperuser},
		{"二者皆为false", &ExtraFields{IsStaff: boolPtr(false), IsSuperuser: boolPtr(false)}, ErrSuperuserNotStaff},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr, accountRepo, _, _ := setupTestAccountManager()

			_, err := mgr.CreateSuperuser(context.Background(), "root", "root@example.com", "pw", tt.extra)
			if !errors.Is(err, tt.want) {
				t.Errorf("期望 %v，实际: %v", tt.want, err)
			}
			if len(accountRepo.accounts) != 0 {
				t.Error("标记冲突时不应写入")
			}
		})
	}
}

func TestAccountManager_CreateSuperuser_EmptyUsername(t *testing.T) {
	mgr, accountRepo, _, _ := setupTestAccountManager()

	_, err := mgr.CreateSuperuser(context.Background(), "", "root@example.com", "pw", nil)
	if !errors.Is(err, ErrUsernameRequired) {
		t.Errorf("期望 ErrUsernameRequired，实际: %v", err)
	}
	if len(accountRepo.accounts) != 0 {
		t.Error("失败时不应写入")
	}
}

func TestAccountManager_ExtraNotMutated(t *testing.T) {
	mgr, _, _, _ := setupTestAccountManager()

	extra := &ExtraFields{FirstName: strPtr("Ada")}
	if _, err := mgr.CreateSuperuser(context.Background(), "root", "root@example.com", "pw", extra); err != nil {
		t.Fatalf("CreateSuperuser 应成功: %v", err)
	}
	if extra.IsStaff != nil || extra.IsSuperuser != nil {
		t.Error("调用方传入的 ExtraFields 不应被修改")
	}
}
