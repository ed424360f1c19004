package entity

import (
	"time"
)

// 通知类型常量
const (
	NotificationTypeInfo    = "info"
	NotificationTypeSuccess = "success"
	NotificationTypeWarning = "warning"
	NotificationTypeError   = "error"
)

// Notification 站内通知
type Notification struct {
	ID               string    `json:"id" gorm:"primaryKey;size:36"`
	UserID           string    `json:"user_id" gorm:"size:36;not null;index"`
	Title            string    `json:"title" gorm:"size:128;not null"`
	Message          string    `json:"message" gorm:"type:text"`
	Type             string    `json:"type" gorm:"size:16;not null;default:info"`
	Read             bool      `json:"read" gorm:"not null;default:false"`
	RelatedRequestID string    `json:"related_request_id,omitempty" gorm:"size:20;index"`
	CreatedAt        time.Time `json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}
