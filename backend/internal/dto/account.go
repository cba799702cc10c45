package dto

// ── 账号模块 DTO ──

// CreateAccountRequest 创建账号请求
type CreateAccountRequest struct {
	Username     string `json:"username"      binding:"required,max=150"`
	Email        string `json:"email"         binding:"required,email,max=254"`
	Password     string `json:"password"      binding:"omitempty,min=8,max=72"`
	FirstName    string `json:"first_name"    binding:"omitempty,max=150"`
	LastName     string `json:"last_name"     binding:"omitempty,max=150"`
	Telephone    string `json:"telephone"     binding:"omitempty,max=20"`
	IsStaff      *bool  `json:"is_staff"`
	IsActive     *bool  `json:"is_active"`
	Status       *int   `json:"status"        binding:"omitempty,oneof=1 2 3"`
	DepartmentID *uint  `json:"department_id" binding:"omitempty,min=1"`
}

// AccountListRequest 账号列表查询参数
type AccountListRequest struct {
	PaginationRequest
	DepartmentID *uint  `form:"department_id" binding:"omitempty,min=1"`
	Status       *int   `form:"status"        binding:"omitempty,oneof=1 2 3"`
	IsStaff      *bool  `form:"is_staff"`
	Keyword      string `form:"keyword"       binding:"omitempty,max=50"`
}

// UpdateAccountRequest 更新账号信息请求（仅更新非 nil 字段）
type UpdateAccountRequest struct {
	Username     *string `json:"username"      binding:"omitempty,min=1,max=150"`
	Email        *string `json:"email"         binding:"omitempty,email,max=254"`
	FirstName    *string `json:"first_name"    binding:"omitempty,max=150"`
	LastName     *string `json:"last_name"     binding:"omitempty,max=150"`
	Telephone    *string `json:"telephone"     binding:"omitempty,max=20"`
	DepartmentID *uint   `json:"department_id" binding:"omitempty,min=1"`
	// ClearDepartment 为 true 时移出部门
	ClearDepartment bool `json:"clear_department"`
}

// SetStatusRequest 设置账号状态请求
type SetStatusRequest struct {
	Status int `json:"status" binding:"required,oneof=1 2 3"`
}

// SetActiveRequest 启用/停用账号请求
type SetActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// ResetPasswordResponse 重置密码响应
type ResetPasswordResponse struct {
	TempPassword string `json:"temp_password"`
}

// ImportAccountResponse 批量导入账号响应
type ImportAccountResponse struct {
	Total   int                  `json:"total"`
	Success int                  `json:"success"`
	Failed  int                  `json:"failed"`
	Errors  []ImportAccountError `json:"errors,omitempty"`
}

// ImportAccountError 导入错误详情
type ImportAccountError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}
