package dto

// ── 账号模块响应 ──

// AccountResponse 账号信息响应（不含密码）
type AccountResponse struct {
	UID         string              `json:"uid"`
	Username    string              `json:"username"`
	Email       string              `json:"email"`
	FirstName   string              `json:"first_name"`
	LastName    string              `json:"last_name"`
	FullName    string              `json:"full_name"`
	Telephone   string              `json:"telephone"`
	IsStaff     bool                `json:"is_staff"`
	IsSuperuser bool                `json:"is_superuser"`
	IsActive    bool                `json:"is_active"`
	Status      int                 `json:"status"`
	DateJoined  string              `json:"date_joined"`
	LastLogin   string              `json:"last_login,omitempty"`
	Department  *DepartmentResponse `json:"department,omitempty"`
}

// AccountBriefResp 账号简要信息
type AccountBriefResp struct {
	UID      string `json:"uid"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// DepartmentResponse 部门简要信息
type DepartmentResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// ── 分页请求 ──

// PaginationRequest 通用分页参数
type PaginationRequest struct {
	Page     int `form:"page"      binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// GetPage 获取页码（含默认值）
func (p *PaginationRequest) GetPage() int {
	if p.Page <= 0 {
		return 1
	}
	return p.Page
}

// GetPageSize 获取每页数量（含默认值）
func (p *PaginationRequest) GetPageSize() int {
	if p.PageSize <= 0 {
		return 20
	}
	return p.PageSize
}

// GetOffset 计算偏移量
func (p *PaginationRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}
