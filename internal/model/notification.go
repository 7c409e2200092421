package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Notification struct {
	gorm.Model
	TenantID uint           `json:"tenant_id" gorm:"index;not null"`
	UserID   uint           `json:"user_id" gorm:"index;not null"`
	UserType string         `json:"user_type"` // role of the recipient
	Type     string         `json:"type" gorm:"index"`
	Title    string         `json:"title"`
	Body     string         `json:"body"`
	Icon     string         `json:"icon"`
	Read     bool           `json:"read" gorm:"default:false;index"`
	ReadAt   *time.Time     `json:"read_at"`
	Data     datatypes.JSON `json:"data"`
}

// DeviceToken is a push token registered by a mobile or web client.
type DeviceToken struct {
	gorm.Model
	UserID   uint   `json:"user_id" gorm:"index;not null"`
	Token    string `json:"token" gorm:"uniqueIndex;not null"`
	Platform string `json:"platform"` // web, ios, android
}

// DashboardView remembers when an admin last opened the dashboard.
type DashboardView struct {
	gorm.Model
	UserID     uint      `json:"user_id" gorm:"uniqueIndex;not null"`
	LastViewed time.Time `json:"last_viewed"`
}

type HabitLog struct {
	gorm.Model
	TenantID uint    `json:"tenant_id" gorm:"index;not null"`
	ClientID uint    `json:"client_id" gorm:"uniqueIndex:idx_habit_day;not null"`
	Date     string  `json:"date" gorm:"uniqueIndex:idx_habit_day;not null"` // YYYY-MM-DD
	HabitID  string  `json:"habit_id" gorm:"uniqueIndex:idx_habit_day;not null"`
	Value    float64 `json:"value"`
}
