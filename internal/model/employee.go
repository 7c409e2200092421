package model

import (
	"time"

	"gorm.io/gorm"

	"ptmanager_backend/pkg/commission"
	"ptmanager_backend/pkg/money"
)

// Employee is someone paid on commission (setters, coaches).
type Employee struct {
	gorm.Model
	TenantID     uint   `json:"tenant_id" gorm:"index;not null"`
	Name         string `json:"name" gorm:"not null"`
	FullName     string `json:"full_name"`
	IBAN         string `json:"iban"`
	Role         string `json:"role" gorm:"default:'Setter'"`
	Type         string `json:"type" gorm:"not null"` // percentuale, fisso
	PercentageBP int64  `json:"percentage_bp"`        // 1250 = 12.50%
	Archived     bool   `json:"archived" gorm:"default:false"`

	FixedEntries []EmployeeFixedEntry `json:"fixed_entries"`
}

type EmployeeFixedEntry struct {
	gorm.Model
	EmployeeID uint        `json:"employee_id" gorm:"index;not null"`
	Amount     money.Cents `json:"amount"`
	Date       time.Time   `json:"date"`
}

// EmployeePayment records money paid out. Amount = BaseAmount + Bonus.
type EmployeePayment struct {
	gorm.Model
	TenantID         uint        `json:"tenant_id" gorm:"index;not null"`
	EmployeeID       uint        `json:"employee_id" gorm:"index;not null"`
	Amount           money.Cents `json:"amount"`
	BaseAmount       money.Cents `json:"base_amount"`
	PercentagePaidBP int64       `json:"percentage_paid_bp" gorm:"default:10000"`
	Bonus            money.Cents `json:"bonus"`
	Date             time.Time   `json:"date" gorm:"index"`
	Note             string      `json:"note"`

	Employee Employee `json:"-" gorm:"foreignKey:EmployeeID"`
}

func (e *Employee) ToCommission() commission.Employee {
	fixed := make([]commission.FixedEntry, 0, len(e.FixedEntries))
	for _, f := range e.FixedEntries {
		fixed = append(fixed, commission.FixedEntry{Amount: f.Amount, Date: f.Date.In(time.Local)})
	}
	return commission.Employee{
		ID:           e.ID,
		Name:         e.Name,
		Kind:         commission.Kind(e.Type),
		PercentageBP: e.PercentageBP,
		Fixed:        fixed,
		Archived:     e.Archived,
	}
}

// ToCommission moves dates to time.Local, the location month windows are
// built in; drivers may hand them back in UTC.
func (p *EmployeePayment) ToCommission() commission.Payment {
	return commission.Payment{EmployeeID: p.EmployeeID, Amount: p.Amount, Date: p.Date.In(time.Local)}
}
