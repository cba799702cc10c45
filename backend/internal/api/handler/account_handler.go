package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"oa-hub/backend/config"
	"oa-hub/backend/internal/dto"
	"oa-hub/backend/internal/model"
	"oa-hub/backend/internal/service"
	"oa-hub/backend/pkg/password"
	"oa-hub/backend/pkg/response"
	"oa-hub/backend/pkg/validation"
)

// defaultImportMaxBytes 未配置时的导入文件大小上限
const defaultImportMaxBytes = 5 << 20

// AccountHandler 账号模块 HTTP 处理器
type AccountHandler struct {
	accountSvc service.AccountService
	cfg        config.AccountConfig
}

// NewAccountHandler 创建 AccountHandler
func NewAccountHandler(accountSvc service.AccountService, cfg config.AccountConfig) *AccountHandler {
	if cfg.ImportMaxBytes <= 0 {
		cfg.ImportMaxBytes = defaultImportMaxBytes
	}
	return &AccountHandler{accountSvc: accountSvc, cfg: cfg}
}

// CreateAccount 创建普通账号
// POST /api/v1/accounts
func (h *AccountHandler) CreateAccount(c *gin.Context) {
	h.create(c, false)
}

// CreateSuperuser 创建超级用户（仅超级用户可调用）
// POST /api/v1/accounts/superuser
func (h *AccountHandler) CreateSuperuser(c *gin.Context) {
	h.create(c, true)
}

func (h *AccountHandler) create(c *gin.Context, superuser bool) {
	var req dto.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, validation.ToDetails(err))
		return
	}

	account, err := h.accountSvc.Create(c.Request.Context(), &req, superuser)
	if err != nil {
		h.handleAccountError(c, err)
		return
	}

	response.Created(c, account)
}

// ListAccounts 账号列表
// GET /api/v1/accounts
func (h *AccountHandler) ListAccounts(c *gin.Context) {
	var req dto.AccountListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ValidationFailed(c, validation.ToDetails(err))
		return
	}

	accounts, total, err := h.accountSvc.List(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OKPage(c, accounts, total, req.GetPage(), req.GetPageSize())
}

// GetAccount 账号详情
// GET /api/v1/accounts/:id
func (h *AccountHandler) GetAccount(c *gin.Context) {
	account, err := h.accountSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleAccountError(c, err)
		return
	}

	response.OK(c, account)
}

// UpdateAccount 更新账号信息
// PUT /api/v1/accounts/:id
func (h *AccountHandler) UpdateAccount(c *gin.Context) {
	var req dto.UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, validation.ToDetails(err))
		return
	}

	op, ok := currentOperator(c)
	if !ok {
		return
	}

	account, err := h.accountSvc.Update(c.Request.Context(), c.Param("id"), &req, op)
	if err != nil {
		h.handleAccountError(c, err)
		return
	}

	response.OK(c, account)
}

// SetStatus 设置账号状态（已激活 / 未激活 / 已锁定）
// PUT /api/v1/accounts/:id/status
func (h *AccountHandler) SetStatus(c *gin.Context) {
	var req dto.SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, validation.ToDetails(err))
		return
	}

	op, ok := currentOperator(c)
	if !ok {
		return
	}

	if err := h.accountSvc.SetStatus(c.Request.Context(), c.Param("id"), model.AccountStatus(req.Status), op); err != nil {
		h.handleAccountError(c, err)
		return
	}

	response.OK(c, nil)
}

// SetActive 启用 / 停用账号
// PUT /api/v1/accounts/:id/active
func (h *AccountHandler) SetActive(c *gin.Context) {
	var req dto.SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, validation.ToDetails(err))
		return
	}

	op, ok := currentOperator(c)
	if !ok {
		return
	}

	if err := h.accountSvc.SetActive(c.Request.Context(), c.Param("id"), *req.IsActive, op); err != nil {
		h.handleAccountError(c, err)
		return
	}

	response.OK(c, nil)
}

// ResetPassword 重置密码，返回临时密码
// POST /api/v1/accounts/:id/reset-password
func (h *AccountHandler) ResetPassword(c *gin.Context) {
	op, ok := currentOperator(c)
	if !ok {
		return
	}

	result, err := h.accountSvc.ResetPassword(c.Request.Context(), c.Param("id"), op)
	if err != nil {
		h.handleAccountError(c, err)
		return
	}

	response.OK(c, result)
}

// DeleteAccount 删除账号
// DELETE /api/v1/accounts/:id
func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.accountSvc.Delete(c.Request.Context(), c.Param("id"), callerID); err != nil {
		h.handleAccountError(c, err)
		return
	}

	response.OK(c, nil)
}

// ImportAccounts 批量导入账号（xlsx，字段名 file）
// POST /api/v1/accounts/import
func (h *AccountHandler) ImportAccounts(c *gin.Context) {
	if !h.cfg.ImportEnabled {
		response.Forbidden(c, response.CodeImportDisabled, "账号导入功能未开启")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, response.CodeValidation, "请上传 Excel 文件")
		return
	}
	if fileHeader.Size > h.cfg.ImportMaxBytes {
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodeBodyTooLarge,
			fmt.Sprintf("文件大小不能超过 %d KB", h.cfg.ImportMaxBytes>>10))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.InternalError(c)
		return
	}
	defer file.Close()

	rows, err := h.accountSvc.ParseImportFile(file)
	if err != nil {
		response.BadRequest(c, response.CodeImportParseFailed, err.Error())
		return
	}

	result, err := h.accountSvc.ImportAccounts(c.Request.Context(), rows)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, result)
}

// handleAccountError 将账号模块业务错误映射为 HTTP 响应
func (h *AccountHandler) handleAccountError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAccountNotFound):
		response.NotFound(c, response.CodeAccountNotFound, "账号不存在")
	case errors.Is(err, service.ErrEmailExists):
		response.Conflict(c, response.CodeEmailExists, "邮箱已被使用")
	case errors.Is(err, service.ErrUsernameRequired):
		response.BadRequest(c, response.CodeUsernameRequired, "必须设置用户名")
	case errors.Is(err, service.ErrSuperuserNotStaff), errors.Is(err, service.ErrSuperuserNotSuperuser):
		response.BadRequest(c, response.CodeSuperuserFlags, err.Error())
	case errors.Is(err, service.ErrAccountSelfDelete):
		response.BadRequest(c, response.CodeSelfDelete, "不能删除自己")
	case errors.Is(err, service.ErrSuperuserProtected):
		response.Forbidden(c, response.CodeSuperuserProtected, "无权操作超级用户账号")
	case errors.Is(err, password.ErrTooLong):
		response.ValidationFailed(c, map[string]string{"password": passwordTooLongMsg})
	case errors.Is(err, service.ErrInvalidAccount):
		response.ValidationFailed(c, validation.ToDetails(err))
	case errors.Is(err, service.ErrInvalidStatus):
		response.BadRequest(c, response.CodeInvalidStatus, "账号状态不合法")
	case errors.Is(err, service.ErrDepartmentNotFound):
		response.NotFound(c, response.CodeDepartmentNotFound, "部门不存在")
	default:
		response.InternalError(c)
	}
}
