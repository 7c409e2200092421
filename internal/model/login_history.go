package model

import "time"

type LoginHistory struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"index;not null"`
	TenantID  uint      `json:"tenant_id" gorm:"index"`
	Device    string    `json:"device" gorm:"size:255"` // raw User-Agent
	IP        string    `json:"ip" gorm:"size:50"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}
