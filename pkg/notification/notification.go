// Package notification stores in-app notifications, honours each user's
// preferences and pushes new ones to connected sessions.
package notification

import (
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"ptmanager_backend/internal/model"
	"ptmanager_backend/pkg/realtime"
	"ptmanager_backend/pkg/utils/jwt"
)

type Type string

const (
	NewLead          Type = "new_lead"
	NewEvent         Type = "new_event"
	NewAnamnesi      Type = "new_anamnesi"
	NewCheck         Type = "new_check"
	CallRequest      Type = "call_request"
	NewClient        Type = "new_client"
	Payment          Type = "payment"
	Expiring         Type = "expiring"
	Message          Type = "message"
	NewWorkout       Type = "new_workout"
	NewNutrition     Type = "new_nutrition"
	WorkoutUpdated   Type = "workout_updated"
	NutritionUpdated Type = "nutrition_updated"
	ChatMessage      Type = "chat_message"
)

type meta struct {
	title string
	icon  string
	// pref is the preference key that can mute the type. Empty means always on.
	pref string
}

var types = map[Type]meta{
	NewLead:          {"Nuovo lead", "🎯", "newLead"},
	NewEvent:         {"Nuovo evento", "📅", "newEvent"},
	NewAnamnesi:      {"Nuova anamnesi", "📋", "newAnamnesi"},
	NewCheck:         {"Nuovo check-in", "📸", "newCheck"},
	CallRequest:      {"Richiesta di chiamata", "📞", "callRequest"},
	NewClient:        {"Nuovo cliente", "👤", "newClient"},
	Payment:          {"Pagamento registrato", "💶", "payments"},
	Expiring:         {"Abbonamento in scadenza", "⏳", "expiring"},
	Message:          {"Nuovo messaggio", "💬", "message"},
	NewWorkout:       {"Nuova scheda", "🏋️", ""},
	NewNutrition:     {"Nuovo piano alimentare", "🥗", ""},
	WorkoutUpdated:   {"Scheda aggiornata", "🏋️", ""},
	NutritionUpdated: {"Piano alimentare aggiornato", "🥗", ""},
	ChatMessage:      {"Nuovo messaggio", "💬", "message"},
}

var ErrUnknownType = errors.New("unknown notification type")

func IsKnown(t Type) bool {
	_, ok := types[t]
	return ok
}

// PreferenceKeys lists the keys users can toggle.
func PreferenceKeys() []string {
	return []string{"newLead", "newEvent", "newAnamnesi", "newCheck", "callRequest",
		"newClient", "payments", "expiring", "message"}
}

// Enabled reports whether prefs let t through. Missing keys default to on.
func Enabled(prefs map[string]bool, t Type) bool {
	m, ok := types[t]
	if !ok || m.pref == "" {
		return ok
	}
	on, set := prefs[m.pref]
	return !set || on
}

type Input struct {
	Type  Type
	Title string
	Body  string
	Data  map[string]interface{}
}

type Service struct {
	hub *realtime.Hub
}

// Default is the service used by handlers and jobs, set at startup.
var Default *Service

func NewService(hub *realtime.Hub) *Service {
	return &Service{hub: hub}
}

func Init(hub *realtime.Hub) {
	Default = NewService(hub)
}

// Notify stores a notification for user and pushes it. It returns nil, nil
// when the user muted the type.
func (s *Service) Notify(db *gorm.DB, user *model.User, in Input) (*model.Notification, error) {
	m, ok := types[in.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, in.Type)
	}
	if !Enabled(user.Prefs(), in.Type) {
		return nil, nil
	}

	title := in.Title
	if title == "" {
		title = m.title
	}

	n := model.Notification{
		TenantID: user.TenantID,
		UserID:   user.ID,
		UserType: user.Role,
		Type:     string(in.Type),
		Title:    title,
		Body:     in.Body,
		Icon:     m.icon,
		Data:     encodeData(in.Data),
	}
	if err := db.Create(&n).Error; err != nil {
		return nil, fmt.Errorf("could not store notification: %w", err)
	}

	if s.hub != nil {
		s.hub.Publish(user.ID, realtime.Event{Name: "notification", Payload: n})
	}
	return &n, nil
}

// NotifyAdmins sends in to every admin of the tenant. Failures are logged
// per recipient.
func (s *Service) NotifyAdmins(db *gorm.DB, tenantID uint, in Input) int {
	var admins []model.User
	if err := db.Where("tenant_id = ? AND role = ?", tenantID, jwt.RoleAdmin).Find(&admins).Error; err != nil {
		log.Printf("Could not load admins of tenant %d: %v", tenantID, err)
		return 0
	}

	sent := 0
	for i := range admins {
		n, err := s.Notify(db, &admins[i], in)
		if err != nil {
			log.Printf("Could not notify user %d: %v", admins[i].ID, err)
			continue
		}
		if n != nil {
			sent++
		}
	}
	return sent
}

// Subscribe streams the live notifications of a user. Without a hub the
// channel is closed right away.
func (s *Service) Subscribe(userID uint) (<-chan realtime.Event, func()) {
	if s.hub == nil {
		ch := make(chan realtime.Event)
		close(ch)
		return ch, func() {}
	}
	return s.hub.Subscribe(userID)
}

// NotifyAdmins is a shorthand for Default.NotifyAdmins that tolerates an
// uninitialized service.
func NotifyAdmins(db *gorm.DB, tenantID uint, in Input) {
	if Default == nil {
		return
	}
	Default.NotifyAdmins(db, tenantID, in)
}
