package model

import "time"

// AuditFields 记录创建与最后修改的操作人；时间戳由 GORM 维护
type AuditFields struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	CreatedBy *string   `gorm:"type:varchar(22)"                   json:"created_by,omitempty"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	UpdatedBy *string   `gorm:"type:varchar(22)"                   json:"updated_by,omitempty"`
}

// SetCreator 新建记录时同时写入创建人与修改人，accountID 为空表示系统操作
func (a *AuditFields) SetCreator(accountID string) {
	a.CreatedBy = optionalID(accountID)
	a.UpdatedBy = optionalID(accountID)
}

// SetUpdater 记录最后修改人
func (a *AuditFields) SetUpdater(accountID string) {
	a.UpdatedBy = optionalID(accountID)
}

func optionalID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}
