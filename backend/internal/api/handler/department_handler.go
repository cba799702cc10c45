package handler

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"oa-hub/backend/internal/dto"
	"oa-hub/backend/internal/service"
	"oa-hub/backend/pkg/response"
	"oa-hub/backend/pkg/validation"
)

// DepartmentHandler 部门模块 HTTP 处理器
type DepartmentHandler struct {
	deptSvc service.DepartmentService
}

// NewDepartmentHandler 创建 DepartmentHandler
func NewDepartmentHandler(deptSvc service.DepartmentService) *DepartmentHandler {
	return &DepartmentHandler{deptSvc: deptSvc}
}

// ListDepartments 获取部门列表
// GET /api/v1/departments
func (h *DepartmentHandler) ListDepartments(c *gin.Context) {
	depts, err := h.deptSvc.List(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": depts})
}

// GetDepartment 获取部门详情
// GET /api/v1/departments/:id
func (h *DepartmentHandler) GetDepartment(c *gin.Context) {
	id, ok := parseDepartmentID(c)
	if !ok {
		return
	}

	dept, err := h.deptSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleDepartmentError(c, err)
		return
	}

	response.OK(c, dept)
}

// CreateDepartment 创建部门
// POST /api/v1/departments
func (h *DepartmentHandler) CreateDepartment(c *gin.Context) {
	var req dto.CreateDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, validation.ToDetails(err))
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	dept, err := h.deptSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleDepartmentError(c, err)
		return
	}

	response.Created(c, dept)
}

// UpdateDepartment 更新部门名称 / 简介
// PUT /api/v1/departments/:id
func (h *DepartmentHandler) UpdateDepartment(c *gin.Context) {
	id, ok := parseDepartmentID(c)
	if !ok {
		return
	}

	var req dto.UpdateDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, validation.ToDetails(err))
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	dept, err := h.deptSvc.Update(c.Request.Context(), id, &req, callerID)
	if err != nil {
		h.handleDepartmentError(c, err)
		return
	}

	response.OK(c, dept)
}

// AssignLeader 指定 / 清除部门负责人
// PUT /api/v1/departments/:id/leader
func (h *DepartmentHandler) AssignLeader(c *gin.Context) {
	h.assign(c, h.deptSvc.AssignLeader)
}

// AssignManager 指定 / 清除部门管理者
// PUT /api/v1/departments/:id/manager
func (h *DepartmentHandler) AssignManager(c *gin.Context) {
	h.assign(c, h.deptSvc.AssignManager)
}

type assignFunc func(ctx context.Context, id uint, accountID *string, callerID string) (*dto.DepartmentDetailResponse, error)

func (h *DepartmentHandler) assign(c *gin.Context, fn assignFunc) {
	id, ok := parseDepartmentID(c)
	if !ok {
		return
	}

	var req dto.AssignAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, validation.ToDetails(err))
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	dept, err := fn(c.Request.Context(), id, req.AccountID, callerID)
	if err != nil {
		h.handleDepartmentError(c, err)
		return
	}

	response.OK(c, dept)
}

// DeleteDepartment 删除部门，成员账号保留
// DELETE /api/v1/departments/:id
func (h *DepartmentHandler) DeleteDepartment(c *gin.Context) {
	id, ok := parseDepartmentID(c)
	if !ok {
		return
	}

	if err := h.deptSvc.Delete(c.Request.Context(), id); err != nil {
		h.handleDepartmentError(c, err)
		return
	}

	response.OK(c, nil)
}

// GetMembers 获取部门成员列表
// GET /api/v1/departments/:id/members
func (h *DepartmentHandler) GetMembers(c *gin.Context) {
	id, ok := parseDepartmentID(c)
	if !ok {
		return
	}

	members, err := h.deptSvc.ListMembers(c.Request.Context(), id)
	if err != nil {
		h.handleDepartmentError(c, err)
		return
	}

	response.OK(c, gin.H{"list": members})
}

func parseDepartmentID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.BadRequest(c, response.CodeValidation, "部门ID无效")
		return 0, false
	}
	return uint(id), true
}

// handleDepartmentError 将部门模块业务错误映射为 HTTP 响应
func (h *DepartmentHandler) handleDepartmentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrDepartmentNotFound):
		response.NotFound(c, response.CodeDepartmentNotFound, "部门不存在")
	case errors.Is(err, service.ErrLeaderTaken):
		response.Conflict(c, response.CodeLeaderTaken, "该账号已是其他部门的负责人")
	case errors.Is(err, service.ErrAccountNotFound):
		response.NotFound(c, response.CodeAccountNotFound, "账号不存在")
	case errors.Is(err, service.ErrInvalidDepartment):
		response.ValidationFailed(c, validation.ToDetails(err))
	default:
		response.InternalError(c)
	}
}
