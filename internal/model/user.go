package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	TenantID    uint   `json:"tenant_id" gorm:"index;not null"`
	Email       string `json:"email" gorm:"uniqueIndex;not null"`
	Password    string `json:"-" gorm:"not null"`
	Role        string `json:"role" gorm:"not null;default:'admin'"` // admin, collaborator, client
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url"`

	// ClientID links a client account to its client record.
	ClientID *uint `json:"client_id" gorm:"index"`

	// NotificationPrefs maps preference keys (newLead, payments, ...) to on/off.
	NotificationPrefs datatypes.JSON `json:"notification_prefs"`

	Tenant Tenant `json:"-" gorm:"foreignKey:TenantID"`
}

func (u *User) Prefs() map[string]bool {
	prefs := map[string]bool{}
	_ = fromJSON(u.NotificationPrefs, &prefs)
	return prefs
}

func (u *User) SetPrefs(prefs map[string]bool) {
	u.NotificationPrefs = toJSON(prefs)
}

func (u *User) GetPublicProfile() map[string]interface{} {
	return map[string]interface{}{
		"id":                 u.ID,
		"tenant_id":          u.TenantID,
		"email":              u.Email,
		"role":               u.Role,
		"display_name":       u.DisplayName,
		"photo_url":          u.PhotoURL,
		"client_id":          u.ClientID,
		"notification_prefs": u.Prefs(),
	}
}
