package dto

// ── 部门模块 DTO ──

// CreateDepartmentRequest 创建部门请求
type CreateDepartmentRequest struct {
	Name      string  `json:"name"       binding:"required,max=100"`
	Intro     string  `json:"intro"      binding:"omitempty,max=200"`
	LeaderID  *string `json:"leader_id"  binding:"omitempty,max=22"`
	ManagerID *string `json:"manager_id" binding:"omitempty,max=22"`
}

// UpdateDepartmentRequest 更新部门请求
type UpdateDepartmentRequest struct {
	Name  *string `json:"name"  binding:"omitempty,min=1,max=100"`
	Intro *string `json:"intro" binding:"omitempty,max=200"`
}

// AssignAccountRequest 指定 leader / manager 请求，account_id 为空表示清除
type AssignAccountRequest struct {
	AccountID *string `json:"account_id" binding:"omitempty,max=22"`
}

// DepartmentDetailResponse 部门详细信息响应
type DepartmentDetailResponse struct {
	ID          uint              `json:"id"`
	Name        string            `json:"name"`
	Intro       string            `json:"intro"`
	Leader      *AccountBriefResp `json:"leader,omitempty"`
	Manager     *AccountBriefResp `json:"manager,omitempty"`
	MemberCount int64             `json:"member_count"`
	CreatedAt   string            `json:"created_at"`
	UpdatedAt   string            `json:"updated_at"`
}
