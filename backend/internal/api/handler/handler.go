package handler

import (
	"oa-hub/backend/config"
	"oa-hub/backend/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth       *AuthHandler
	Account    *AccountHandler
	Department *DepartmentHandler
	Export     *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(cfg *config.Config, svc *service.Service) *Handler {
	return &Handler{
		Auth:       NewAuthHandler(svc.Auth, svc.Account, &cfg.Auth),
		Account:    NewAccountHandler(svc.Account, cfg.Account),
		Department: NewDepartmentHandler(svc.Department),
		Export:     NewExportHandler(svc.Export),
	}
}
