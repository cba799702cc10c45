package model

import (
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"gorm.io/gorm"

	"oa-hub/backend/pkg/email"
	"oa-hub/backend/pkg/validation"
)

// AccountStatus 账号状态
type AccountStatus int

const (
	StatusActivated   AccountStatus = 1 // 已激活
	StatusUnactivated AccountStatus = 2 // 未激活
	StatusLocked      AccountStatus = 3 // 已锁定
)

// Valid 判断状态值是否在枚举范围内
func (s AccountStatus) Valid() bool {
	return s >= StatusActivated && s <= StatusLocked
}

func (s AccountStatus) String() string {
	switch s {
	case StatusActivated:
		return "activated"
	case StatusUnactivated:
		return "unactivated"
	case StatusLocked:
		return "locked"
	default:
		return "unknown"
	}
}

// 账号角色（由 is_staff / is_superuser 派生，写入 Token）
const (
	RoleSuperuser = "superuser"
	RoleStaff     = "staff"
	RoleMember    = "member"
)

// Account 账号表，对应 oa_users
// 以 email 作为登录标识，username 仅为展示名，不要求唯一
type Account struct {
	UID         string        `gorm:"column:uid;type:varchar(22);primaryKey"          json:"uid"`
	Password    string        `gorm:"type:varchar(128);not null"                      json:"-"`
	LastLogin   *time.Time    `gorm:"column:last_login"                               json:"last_login,omitempty"`
	IsSuperuser bool          `gorm:"not null;default:false"                          json:"is_superuser"`
	Username    string        `gorm:"type:varchar(150);not null"                      json:"username"   validate:"required,max=150"`
	FirstName   string        `gorm:"type:varchar(150);not null;default:''"           json:"first_name" validate:"max=150"`
	LastName    string        `gorm:"type:varchar(150);not null;default:''"           json:"last_name"  validate:"max=150"`
	Email       string        `gorm:"type:varchar(254);not null;uniqueIndex"          json:"email"      validate:"required,email,max=254"`
	Telephone   string        `gorm:"type:varchar(20);not null;default:''"            json:"telephone"  validate:"max=20"`
	IsStaff     bool          `gorm:"not null;default:false"                          json:"is_staff"`
	IsActive    bool          `gorm:"not null"                                        json:"is_active"`
	Status      AccountStatus `gorm:"type:smallint;not null;default:1"                json:"status"     validate:"min=1,max=3"`
	DateJoined  time.Time     `gorm:"<-:create;not null;autoCreateTime"               json:"date_joined"`
	UpdatedAt   time.Time     `gorm:"not null"                                        json:"updated_at"`

	DepartmentID *uint `gorm:"index" json:"department_id,omitempty"`

	// 关联
	Department *Department `gorm:"foreignKey:DepartmentID;references:ID;constraint:OnDelete:SET NULL" json:"department,omitempty" validate:"-"`
}

// TableName 指定表名
func (Account) TableName() string { return "oa_users" }

// BeforeCreate 生成短 UUID 主键
func (a *Account) BeforeCreate(_ *gorm.DB) error {
	if a.UID == "" {
		a.UID = shortuuid.New()
	}
	return nil
}

// Clean 规范化邮箱，保证无论来源如何大小写一致
func (a *Account) Clean() {
	a.Email = email.Normalize(a.Email)
	a.Username = strings.TrimSpace(a.Username)
}

// Validate 字段级校验（长度、邮箱格式、状态范围）
func (a *Account) Validate() error {
	return validation.Struct(a)
}

// FullName 返回 first_name + 空格 + last_name，去除首尾空白
func (a *Account) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// ShortName 返回 first_name
func (a *Account) ShortName() string {
	return a.FirstName
}

// Role 由权限标记派生角色
func (a *Account) Role() string {
	switch {
	case a.IsSuperuser:
		return RoleSuperuser
	case a.IsStaff:
		return RoleStaff
	default:
		return RoleMember
	}
}

// CanLogin 仅启用且处于已激活状态的账号允许登录
func (a *Account) CanLogin() bool {
	return a.IsActive && a.Status == StatusActivated
}
