package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"ptmanager_backend/pkg/commission"
	"ptmanager_backend/pkg/habits"
	"ptmanager_backend/pkg/money"
)

type Client struct {
	gorm.Model
	TenantID uint   `json:"tenant_id" gorm:"index;not null"`
	Name     string `json:"name" gorm:"not null"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Notes    string `json:"notes" gorm:"type:text"`

	// Scadenza is when the client's coaching subscription ends.
	Scadenza    *time.Time `json:"scadenza" gorm:"index"`
	PlanType    string     `json:"plan_type"`
	IsOldClient bool       `json:"is_old_client" gorm:"default:false"`

	IsArchived      bool           `json:"is_archived" gorm:"default:false;index"`
	ArchivedAt      *time.Time     `json:"archived_at"`
	ArchiveSettings datatypes.JSON `json:"archive_settings"`

	HabitTargets        datatypes.JSON `json:"habit_targets"`
	WeeklyWorkoutTarget int            `json:"weekly_workout_target" gorm:"default:3"`

	Payments []ClientPayment `json:"payments,omitempty"`
}

// ArchiveSettings controls what an archived client still sees in the app.
type ArchiveSettings struct {
	BlockAppAccess bool     `json:"block_app_access"`
	BlockedScreens []string `json:"blocked_screens"`
	CustomMessage  string   `json:"custom_message"`
}

func (c *Client) IsActive(now time.Time) bool {
	return c.Scadenza != nil && c.Scadenza.After(now)
}

func (c *Client) GetArchiveSettings() ArchiveSettings {
	var s ArchiveSettings
	_ = fromJSON(c.ArchiveSettings, &s)
	return s
}

func (c *Client) SetArchiveSettings(s ArchiveSettings) {
	c.ArchiveSettings = toJSON(s)
}

func (c *Client) Habits() []habits.Habit {
	overrides := map[string]float64{}
	_ = fromJSON(c.HabitTargets, &overrides)
	return habits.Resolve(overrides)
}

func (c *Client) SetHabitTargets(targets map[string]float64) {
	c.HabitTargets = toJSON(targets)
}

func (c *Client) WorkoutTarget() int {
	if c.WeeklyWorkoutTarget <= 0 {
		return habits.DefaultWeeklyWorkoutTarget
	}
	return c.WeeklyWorkoutTarget
}

type ClientPayment struct {
	gorm.Model
	TenantID    uint        `json:"tenant_id" gorm:"index;not null"`
	ClientID    uint        `json:"client_id" gorm:"index;not null"`
	Amount      money.Cents `json:"amount" gorm:"not null"`
	Duration    string      `json:"duration" gorm:"not null"` // e.g. "3 mesi"
	PaymentDate time.Time   `json:"payment_date" gorm:"index;not null"`
	// IsPast marks imported historic payments, never counted as income.
	IsPast bool   `json:"is_past" gorm:"default:false"`
	Method string `json:"method"`
	Note   string `json:"note"`

	Client Client `json:"-" gorm:"foreignKey:ClientID"`
}

func (p ClientPayment) ForCommission(oldClient bool) commission.ClientPayment {
	return commission.ClientPayment{
		ClientID:  p.ClientID,
		Amount:    p.Amount,
		Date:      p.PaymentDate.In(time.Local),
		IsPast:    p.IsPast,
		OldClient: oldClient,
	}
}

type Check struct {
	gorm.Model
	TenantID     uint           `json:"tenant_id" gorm:"index;not null"`
	ClientID     uint           `json:"client_id" gorm:"index;not null"`
	Weight       float64        `json:"weight"`
	Notes        string         `json:"notes" gorm:"type:text"`
	Measurements datatypes.JSON `json:"measurements"`
	Photos       datatypes.JSON `json:"photos"`

	Client Client `json:"-" gorm:"foreignKey:ClientID"`
}

func (c *Check) PhotoURLs() []string {
	var urls []string
	_ = fromJSON(c.Photos, &urls)
	return urls
}

func (c *Check) SetPhotoURLs(urls []string) {
	c.Photos = toJSON(urls)
}

type Anamnesi struct {
	gorm.Model
	TenantID    uint           `json:"tenant_id" gorm:"index;not null"`
	ClientID    uint           `json:"client_id" gorm:"index;not null"`
	Answers     datatypes.JSON `json:"answers"`
	SubmittedAt time.Time      `json:"submitted_at" gorm:"index"`

	Client Client `json:"-" gorm:"foreignKey:ClientID"`
}

// ClientRate is one installment of a payment plan.
type ClientRate struct {
	gorm.Model
	TenantID uint        `json:"tenant_id" gorm:"index;not null"`
	ClientID uint        `json:"client_id" gorm:"index;not null"`
	Amount   money.Cents `json:"amount" gorm:"not null"`
	DueDate  time.Time   `json:"due_date"`
	Paid     bool        `json:"paid" gorm:"default:false"`
	PaidAt   *time.Time  `json:"paid_at"`
	Note     string      `json:"note"`
}
