package model

import (
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Tenant is one coaching business. Every tenant-scoped row carries its ID.
type Tenant struct {
	gorm.Model
	Name       string `json:"name" gorm:"not null"`
	Slug       string `json:"slug" gorm:"uniqueIndex;not null"`
	OwnerEmail string `json:"owner_email"`

	Users []User `json:"-"`
}

// All lists every model for auto-migration, parents first.
func All() []interface{} {
	return []interface{}{
		&Tenant{},
		&User{},
		&LoginHistory{},
		&Plan{},
		&TenantSubscription{},
		&Client{},
		&ClientPayment{},
		&Check{},
		&Anamnesi{},
		&ClientRate{},
		&Employee{},
		&EmployeeFixedEntry{},
		&EmployeePayment{},
		&Lead{},
		&CalendarEvent{},
		&DailyReport{},
		&LandingPage{},
		&LandingView{},
		&Notification{},
		&DeviceToken{},
		&DashboardView{},
		&HabitLog{},
	}
}

func toJSON(v interface{}) datatypes.JSON {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}

func fromJSON(raw datatypes.JSON, v interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}
