package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusContacted LeadStatus = "contacted"
	LeadStatusBooked    LeadStatus = "booked"
	LeadStatusClosed    LeadStatus = "closed"
	LeadStatusLost      LeadStatus = "lost"
)

func ValidLeadStatuses() []string {
	return []string{
		string(LeadStatusNew),
		string(LeadStatusContacted),
		string(LeadStatusBooked),
		string(LeadStatusClosed),
		string(LeadStatusLost),
	}
}

type Lead struct {
	gorm.Model
	TenantID uint   `json:"tenant_id" gorm:"index;not null"`
	Name     string `json:"name" gorm:"not null"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Source   string `json:"source" gorm:"index"`
	Note     string `json:"note" gorm:"type:text"`

	// Booked call, as entered by the setter.
	BookingDate string `json:"booking_date"` // YYYY-MM-DD
	BookingTime string `json:"booking_time"` // HH:MM

	CollaboratorID   *uint  `json:"collaborator_id" gorm:"index"`
	CollaboratorName string `json:"collaborator_name"`

	Closed bool       `json:"chiuso" gorm:"default:false"`
	ShowUp bool       `json:"show_up" gorm:"default:false"`
	Offer  bool       `json:"offer" gorm:"default:false"`
	Dialed int        `json:"dialed" gorm:"default:0"`
	Status LeadStatus `json:"status" gorm:"default:'new'"`

	LandingPageID *uint          `json:"landing_page_id" gorm:"index"`
	QuizAnswers   datatypes.JSON `json:"quiz_answers"`
	Extra         datatypes.JSON `json:"extra"`
}

// HasBooking reports whether the lead carries what a calendar event needs.
func (l *Lead) HasBooking() bool {
	return l.Name != "" && l.BookingDate != "" && l.BookingTime != ""
}

const (
	EventTypeLead  = "lead"
	EventTypeCall  = "call"
	EventTypeEvent = "event"
)

type CalendarEvent struct {
	gorm.Model
	TenantID        uint           `json:"tenant_id" gorm:"index;not null"`
	Title           string         `json:"title" gorm:"not null"`
	Date            string         `json:"date" gorm:"index;not null"` // YYYY-MM-DD
	Time            string         `json:"time"`                       // HH:MM
	Type            string         `json:"type" gorm:"default:'event'"`
	DurationMinutes int            `json:"duration_minutes" gorm:"default:30"`
	LeadID          *uint          `json:"lead_id" gorm:"uniqueIndex"`
	LeadData        datatypes.JSON `json:"lead_data"`
	CreatedByID     uint           `json:"created_by_id"`
	Participants    datatypes.JSON `json:"participants"`
	Notes           string         `json:"notes"`
}

// NewLeadEvent builds the booked-call event of a lead.
func NewLeadEvent(l *Lead, createdBy uint) CalendarEvent {
	leadID := l.ID
	participants := []uint{}
	if l.CollaboratorID != nil {
		participants = append(participants, *l.CollaboratorID)
	}
	return CalendarEvent{
		TenantID:        l.TenantID,
		Title:           "📞 " + l.Name,
		Date:            l.BookingDate,
		Time:            l.BookingTime,
		Type:            EventTypeLead,
		DurationMinutes: 30,
		LeadID:          &leadID,
		LeadData: toJSON(map[string]interface{}{
			"name":   l.Name,
			"phone":  l.Phone,
			"email":  l.Email,
			"source": l.Source,
			"note":   l.Note,
		}),
		CreatedByID:  createdBy,
		Participants: toJSON(participants),
	}
}

// DailyReport is a collaborator's end-of-day tracker, one per day.
type DailyReport struct {
	gorm.Model
	TenantID uint           `json:"tenant_id" gorm:"index;not null"`
	UserID   uint           `json:"user_id" gorm:"uniqueIndex:idx_report_user_date;not null"`
	Date     string         `json:"date" gorm:"uniqueIndex:idx_report_user_date;not null"`
	Tracker  datatypes.JSON `json:"tracker"`
}

func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
