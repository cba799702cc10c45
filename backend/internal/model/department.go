package model

import (
	"strings"

	"oa-hub/backend/pkg/validation"
)

// Department 部门表，对应 oa_departments
// leader 一对一（leader_id 唯一），manager 多对一；引用的账号删除后置空
type Department struct {
	ID    uint   `gorm:"primaryKey;autoIncrement"             json:"id"`
	Name  string `gorm:"type:varchar(100);not null"           json:"name"  validate:"required,max=100"`
	Intro string `gorm:"type:varchar(200);not null;default:''" json:"intro" validate:"max=200"`

	LeaderID  *string `gorm:"type:varchar(22);uniqueIndex" json:"leader_id,omitempty"`
	ManagerID *string `gorm:"type:varchar(22);index"       json:"manager_id,omitempty"`
	AuditFields

	// 关联
	Leader  *Account `gorm:"foreignKey:LeaderID;references:UID;constraint:OnDelete:SET NULL"  json:"leader,omitempty"  validate:"-"`
	Manager *Account `gorm:"foreignKey:ManagerID;references:UID;constraint:OnDelete:SET NULL" json:"manager,omitempty" validate:"-"`
}

// TableName 指定表名
func (Department) TableName() string { return "oa_departments" }

// Clean 去除名称与简介首尾空白
func (d *Department) Clean() {
	d.Name = strings.TrimSpace(d.Name)
	d.Intro = strings.TrimSpace(d.Intro)
}

// Validate 字段级校验（名称必填、长度上限）
func (d *Department) Validate() error {
	return validation.Struct(d)
}
