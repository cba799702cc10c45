package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"oa-hub/backend/internal/model"
)

// DepartmentRepository 部门数据访问接口
type DepartmentRepository interface {
	Create(ctx context.Context, dept *model.Department) error
	GetByID(ctx context.Context, id uint) (*model.Department, error)
	// GetByLeader 查找由指定账号领导的部门
	GetByLeader(ctx context.Context, leaderID string) (*model.Department, error)
	List(ctx context.Context) ([]model.Department, error)
	ListByManager(ctx context.Context, managerID string) ([]model.Department, error)
	Update(ctx context.Context, dept *model.Department) error
	// Delete 删除部门，并将成员的 department_id 置空
	Delete(ctx context.Context, id uint) error
	CountMembers(ctx context.Context, departmentID uint) (int64, error)
}

// departmentRepo DepartmentRepository 的 GORM 实现
type departmentRepo struct {
	db *gorm.DB
}

// NewDepartmentRepo 创建 DepartmentRepository 实例
func NewDepartmentRepo(db *gorm.DB) DepartmentRepository {
	return &departmentRepo{db: db}
}

func (r *departmentRepo) Create(ctx context.Context, dept *model.Department) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(dept).Error
}

func (r *departmentRepo) GetByID(ctx context.Context, id uint) (*model.Department, error) {
	var dept model.Department
	err := r.db.WithContext(ctx).
		Preload("Leader").
		Preload("Manager").
		Where("id = ?", id).
		First(&dept).Error
	if err != nil {
		return nil, err
	}
	return &dept, nil
}

func (r *departmentRepo) GetByLeader(ctx context.Context, leaderID string) (*model.Department, error) {
	var dept model.Department
	err := r.db.WithContext(ctx).
		Where("leader_id = ?", leaderID).
		First(&dept).Error
	if err != nil {
		return nil, err
	}
	return &dept, nil
}

func (r *departmentRepo) List(ctx context.Context) ([]model.Department, error) {
	var depts []model.Department
	err := r.db.WithContext(ctx).
		Preload("Leader").
		Preload("Manager").
		Order("name ASC").
		Find(&depts).Error
	return depts, err
}

func (r *departmentRepo) ListByManager(ctx context.Context, managerID string) ([]model.Department, error) {
	var depts []model.Department
	err := r.db.WithContext(ctx).
		Where("manager_id = ?", managerID).
		Order("name ASC").
		Find(&depts).Error
	return depts, err
}

func (r *departmentRepo) Update(ctx context.Context, dept *model.Department) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(dept).Error
}

func (r *departmentRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Account{}).
			Where("department_id = ?", id).
			Update("department_id", nil).Error; err != nil {
			return err
		}

		res := tx.Where("id = ?", id).Delete(&model.Department{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *departmentRepo) CountMembers(ctx context.Context, departmentID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Account{}).
		Where("department_id = ?", departmentID).
		Count(&count).Error
	return count, err
}
