package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"oa-hub/backend/internal/dto"
	"oa-hub/backend/internal/model"
	"oa-hub/backend/internal/repository"
	apperrors "oa-hub/backend/pkg/errors"
)

// ── 部门模块业务错误 ──

var (
	ErrLeaderTaken       = errors.New("该账号已是其他部门的负责人")
	ErrInvalidDepartment = fmt.Errorf("部门信息不合法: %w", apperrors.ErrValidation)
)

// DepartmentService 部门业务接口
type DepartmentService interface {
	Create(ctx context.Context, req *dto.CreateDepartmentRequest, callerID string) (*dto.DepartmentDetailResponse, error)
	GetByID(ctx context.Context, id uint) (*dto.DepartmentDetailResponse, error)
	List(ctx context.Context) ([]dto.DepartmentDetailResponse, error)
	Update(ctx context.Context, id uint, req *dto.UpdateDepartmentRequest, callerID string) (*dto.DepartmentDetailResponse, error)
	AssignLeader(ctx context.Context, id uint, accountID *string, callerID string) (*dto.DepartmentDetailResponse, error)
	AssignManager(ctx context.Context, id uint, accountID *string, callerID string) (*dto.DepartmentDetailResponse, error)
	Delete(ctx context.Context, id uint) error
	ListMembers(ctx context.Context, id uint) ([]dto.AccountResponse, error)
}

type departmentService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewDepartmentService 创建 DepartmentService 实例
func NewDepartmentService(repo *repository.Repository, logger *zap.Logger) DepartmentService {
	return &departmentService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *departmentService) Create(ctx context.Context, req *dto.CreateDepartmentRequest, callerID string) (*dto.DepartmentDetailResponse, error) {
	dept := &model.Department{
		Name:  req.Name,
		Intro: req.Intro,
	}
	dept.SetCreator(callerID)
	if err := cleanDepartment(dept); err != nil {
		return nil, err
	}

	if req.LeaderID != nil {
		if err := s.checkLeaderAvailable(ctx, *req.LeaderID, 0); err != nil {
			return nil, err
		}
		dept.LeaderID = req.LeaderID
	}
	if req.ManagerID != nil {
		if err := s.checkAccountExists(ctx, *req.ManagerID); err != nil {
			return nil, err
		}
		dept.ManagerID = req.ManagerID
	}

	if err := s.repo.Department.Create(ctx, dept); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrLeaderTaken
		}
		s.logger.Error("创建部门失败", zap.String("name", req.Name), zap.Error(err))
		return nil, err
	}

	return s.GetByID(ctx, dept.ID)
}

func cleanDepartment(dept *model.Department) error {
	dept.Clean()
	if err := dept.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDepartment, err)
	}
	return nil
}

// ────────────────────── GetByID ──────────────────────

func (s *departmentService) GetByID(ctx context.Context, id uint) (*dto.DepartmentDetailResponse, error) {
	dept, err := s.getDepartment(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toDetail(ctx, dept)
}

// ────────────────────── List ──────────────────────

func (s *departmentService) List(ctx context.Context) ([]dto.DepartmentDetailResponse, error) {
	depts, err := s.repo.Department.List(ctx)
	if err != nil {
		s.logger.Error("列出部门失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.DepartmentDetailResponse, 0, len(depts))
	for i := range depts {
		detail, err := s.toDetail(ctx, &depts[i])
		if err != nil {
			return nil, err
		}
		result = append(result, *detail)
	}
	return result, nil
}

// ────────────────────── Update ──────────────────────

func (s *departmentService) Update(ctx context.Context, id uint, req *dto.UpdateDepartmentRequest, callerID string) (*dto.DepartmentDetailResponse, error) {
	dept, err := s.getDepartment(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		dept.Name = *req.Name
	}
	if req.Intro != nil {
		dept.Intro = *req.Intro
	}
	dept.SetUpdater(callerID)
	if err := cleanDepartment(dept); err != nil {
		return nil, err
	}

	if err := s.repo.Department.Update(ctx, dept); err != nil {
		s.logger.Error("更新部门失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}

	return s.GetByID(ctx, id)
}

// ────────────────────── AssignLeader ──────────────────────

// AssignLeader 指定部门负责人，accountID 为 nil 时清除
func (s *departmentService) AssignLeader(ctx context.Context, id uint, accountID *string, callerID string) (*dto.DepartmentDetailResponse, error) {
	dept, err := s.getDepartment(ctx, id)
	if err != nil {
		return nil, err
	}

	if accountID != nil {
		if err := s.checkLeaderAvailable(ctx, *accountID, id); err != nil {
			return nil, err
		}
	}

	dept.LeaderID = accountID
	dept.Leader = nil
	dept.SetUpdater(callerID)

	if err := s.repo.Department.Update(ctx, dept); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrLeaderTaken
		}
		s.logger.Error("指定部门负责人失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}

	return s.GetByID(ctx, id)
}

// ────────────────────── AssignManager ──────────────────────

// AssignManager 指定部门管理者，accountID 为 nil 时清除；同一账号可管理多个部门
func (s *departmentService) AssignManager(ctx context.Context, id uint, accountID *string, callerID string) (*dto.DepartmentDetailResponse, error) {
	dept, err := s.getDepartment(ctx, id)
	if err != nil {
		return nil, err
	}

	if accountID != nil {
		if err := s.checkAccountExists(ctx, *accountID); err != nil {
			return nil, err
		}
	}

	dept.ManagerID = accountID
	dept.Manager = nil
	dept.SetUpdater(callerID)

	if err := s.repo.Department.Update(ctx, dept); err != nil {
		s.logger.Error("指定部门管理者失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}

	return s.GetByID(ctx, id)
}

// ────────────────────── Delete ──────────────────────

// Delete 删除部门，成员账号的部门置空
func (s *departmentService) Delete(ctx context.Context, id uint) error {
	if err := s.repo.Department.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDepartmentNotFound
		}
		s.logger.Error("删除部门失败", zap.Uint("id", id), zap.Error(err))
		return err
	}

	s.logger.Info("部门已删除", zap.Uint("id", id))
	return nil
}

// ────────────────────── ListMembers ──────────────────────

func (s *departmentService) ListMembers(ctx context.Context, id uint) ([]dto.AccountResponse, error) {
	if _, err := s.getDepartment(ctx, id); err != nil {
		return nil, err
	}

	members, err := s.repo.Account.ListByDepartment(ctx, id)
	if err != nil {
		s.logger.Error("列出部门成员失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}

	result := make([]dto.AccountResponse, 0, len(members))
	for i := range members {
		result = append(result, *toAccountResponse(&members[i]))
	}
	return result, nil
}

// ── 内部辅助方法 ──

func (s *departmentService) getDepartment(ctx context.Context, id uint) (*model.Department, error) {
	dept, err := s.repo.Department.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDepartmentNotFound
		}
		s.logger.Error("查询部门失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}
	return dept, nil
}

func (s *departmentService) checkAccountExists(ctx context.Context, uid string) error {
	if _, err := s.repo.Account.GetByID(ctx, uid); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAccountNotFound
		}
		return err
	}
	return nil
}

// checkLeaderAvailable 校验账号存在且未担任其他部门（selfID 以外）的负责人
func (s *departmentService) checkLeaderAvailable(ctx context.Context, uid string, selfID uint) error {
	if err := s.checkAccountExists(ctx, uid); err != nil {
		return err
	}

	led, err := s.repo.Department.GetByLeader(ctx, uid)
	switch {
	case err == nil && led.ID != selfID:
		return ErrLeaderTaken
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return err
	}
	return nil
}

func (s *departmentService) toDetail(ctx context.Context, dept *model.Department) (*dto.DepartmentDetailResponse, error) {
	count, err := s.repo.Department.CountMembers(ctx, dept.ID)
	if err != nil {
		s.logger.Error("统计部门成员失败", zap.Uint("id", dept.ID), zap.Error(err))
		return nil, err
	}

	return &dto.DepartmentDetailResponse{
		ID:          dept.ID,
		Name:        dept.Name,
		Intro:       dept.Intro,
		Leader:      toAccountBrief(dept.Leader),
		Manager:     toAccountBrief(dept.Manager),
		MemberCount: count,
		CreatedAt:   dept.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   dept.UpdatedAt.Format(time.RFC3339),
	}, nil
}
