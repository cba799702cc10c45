package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"oa-hub/backend/internal/dto"
	"oa-hub/backend/internal/service"
	"oa-hub/backend/pkg/response"
	"oa-hub/backend/pkg/validation"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportAccounts 按筛选条件导出账号为 Excel
// GET /api/v1/accounts/export
func (h *ExportHandler) ExportAccounts(c *gin.Context) {
	var req dto.AccountListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ValidationFailed(c, validation.ToDetails(err))
		return
	}

	buf, filename, err := h.exportSvc.ExportAccounts(c.Request.Context(), &req)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	// 下载响应头
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExportTooManyRows):
		response.BadRequest(c, response.CodeExportTooLarge, "导出数量超出上限，请缩小筛选范围")
	default:
		response.InternalError(c)
	}
}
