package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"oa-hub/backend/internal/model"
)

// AccountListFilters 账号列表筛选条件
type AccountListFilters struct {
	DepartmentID *uint
	Status       *model.AccountStatus
	IsStaff      *bool
	Keyword      string
}

// AccountRepository 账号数据访问接口
type AccountRepository interface {
	Create(ctx context.Context, account *model.Account) error
	GetByID(ctx context.Context, uid string) (*model.Account, error)
	// GetByEmail 按邮箱查找（不区分大小写）
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
	Update(ctx context.Context, account *model.Account) error
	UpdateLastLogin(ctx context.Context, uid string, at time.Time) error
	// Delete 删除账号，并将引用它的部门 leader / manager 置空
	Delete(ctx context.Context, uid string) error
	ListWithFilters(ctx context.Context, filters *AccountListFilters, offset, limit int) ([]model.Account, int64, error)
	ListByDepartment(ctx context.Context, departmentID uint) ([]model.Account, error)
}

// accountRepo AccountRepository 的 GORM 实现
type accountRepo struct {
	db *gorm.DB
}

// NewAccountRepo 创建 AccountRepository 实例
func NewAccountRepo(db *gorm.DB) AccountRepository {
	return &accountRepo{db: db}
}

func (r *accountRepo) Create(ctx context.Context, account *model.Account) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(account).Error
}

func (r *accountRepo) GetByID(ctx context.Context, uid string) (*model.Account, error) {
	var account model.Account
	err := r.db.WithContext(ctx).
		Preload("Department").
		Where("uid = ?", uid).
		First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepo) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	var account model.Account
	err := r.db.WithContext(ctx).
		Preload("Department").
		Where("LOWER(email) = ?", strings.ToLower(email)).
		First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepo) Update(ctx context.Context, account *model.Account) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(account).Error
}

func (r *accountRepo) UpdateLastLogin(ctx context.Context, uid string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.Account{}).
		Where("uid = ?", uid).
		UpdateColumn("last_login", at).Error
}

func (r *accountRepo) Delete(ctx context.Context, uid string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Department{}).
			Where("leader_id = ?", uid).
			Update("leader_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.Department{}).
			Where("manager_id = ?", uid).
			Update("manager_id", nil).Error; err != nil {
			return err
		}

		res := tx.Where("uid = ?", uid).Delete(&model.Account{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *accountRepo) ListWithFilters(ctx context.Context, filters *AccountListFilters, offset, limit int) ([]model.Account, int64, error) {
	var accounts []model.Account
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Account{})

	if filters != nil {
		if filters.DepartmentID != nil {
			db = db.Where("department_id = ?", *filters.DepartmentID)
		}
		if filters.Status != nil {
			db = db.Where("status = ?", *filters.Status)
		}
		if filters.IsStaff != nil {
			db = db.Where("is_staff = ?", *filters.IsStaff)
		}
		if kw := strings.TrimSpace(filters.Keyword); kw != "" {
			like := "%" + strings.ToLower(kw) + "%"
			db = db.Where(
				"LOWER(username) LIKE ? OR LOWER(email) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?",
				like, like, like, like,
			)
		}
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("Department").
		Offset(offset).Limit(limit).
		Order("date_joined DESC").
		Find(&accounts).Error; err != nil {
		return nil, 0, err
	}

	return accounts, total, nil
}

func (r *accountRepo) ListByDepartment(ctx context.Context, departmentID uint) ([]model.Account, error) {
	var accounts []model.Account
	err := r.db.WithContext(ctx).
		Where("department_id = ?", departmentID).
		Order("username ASC").
		Find(&accounts).Error
	return accounts, err
}
