package models

import (
	"time"
)

// AuditLog represents a system audit entry
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Actor     string    `gorm:"size:64;not null;index" json:"actor"` // auth subject, or "gateway"
	Action    string    `gorm:"size:50;not null" json:"action"`      // CREATE, UPDATE, DELETE, INITIATE, COMPLETE, FAIL
	Entity    string    `gorm:"size:50;not null" json:"entity"`      // Fee, FeePayment
	EntityID  uint      `json:"entity_id"`
	Details   string    `gorm:"type:text" json:"details"`
	IPAddress string    `gorm:"size:45" json:"ip_address"`
	UserAgent string    `gorm:"size:255" json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for AuditLog
func (AuditLog) TableName() string {
	return "audit_logs"
}
