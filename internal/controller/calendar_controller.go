package controller

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"

	"ptmanager_backend/internal/model"
	"ptmanager_backend/pkg/database"
	"ptmanager_backend/pkg/notification"
)

type EventInput struct {
	Title           string `json:"title"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	Type            string `json:"type"`
	DurationMinutes int    `json:"duration_minutes"`
	Participants    []uint `json:"participants"`
	Notes           string `json:"notes"`
}

func (in *EventInput) validate() string {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" || in.Date == "" {
		return "Title and date are required"
	}
	if _, err := time.Parse("2006-01-02", in.Date); err != nil {
		return "Date must be YYYY-MM-DD"
	}
	if in.Time != "" {
		if _, err := time.Parse("15:04", in.Time); err != nil {
			return "Time must be HH:MM"
		}
	}
	switch in.Type {
	case "":
		in.Type = model.EventTypeEvent
	case model.EventTypeEvent, model.EventTypeCall, model.EventTypeLead:
	default:
		return "Invalid event type"
	}
	if in.DurationMinutes < 0 {
		return "Duration cannot be negative"
	}
	if in.DurationMinutes == 0 {
		in.DurationMinutes = 30
	}
	return ""
}

// ListEvents returns the tenant's events between ?from and ?to (inclusive).
func ListEvents(c *fiber.Ctx) error {
	claims := claimsOf(c)

	query := database.GetDB().Where("tenant_id = ?", claims.TenantID)
	if from := c.Query("from"); from != "" {
		query = query.Where("date >= ?", from)
	}
	if to := c.Query("to"); to != "" {
		query = query.Where("date <= ?", to)
	}

	var events []model.CalendarEvent
	if err := query.Order("date asc, time asc").Limit(1000).Find(&events).Error; err != nil {
		return serverError(c, "Could not fetch events", err)
	}
	return c.JSON(events)
}

func CreateEvent(c *fiber.Ctx) error {
	claims := claimsOf(c)
	input := new(EventInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}
	if msg := input.validate(); msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": msg,
		})
	}

	participants, _ := json.Marshal(append([]uint{}, input.Participants...))
	event := model.CalendarEvent{
		TenantID:        claims.TenantID,
		Title:           input.Title,
		Date:            input.Date,
		Time:            input.Time,
		Type:            input.Type,
		DurationMinutes: input.DurationMinutes,
		CreatedByID:     claims.UserID,
		Participants:    datatypes.JSON(participants),
		Notes:           input.Notes,
	}

	db := database.GetDB()
	if err := db.Create(&event).Error; err != nil {
		return serverError(c, "Could not create event", err)
	}

	notification.NotifyAdmins(db, claims.TenantID, notification.Input{
		Type: notification.NewEvent,
		Body: event.Title + " - " + event.Date + " " + event.Time,
		Data: map[string]interface{}{"event_id": event.ID, "date": event.Date},
	})

	return c.Status(fiber.StatusCreated).JSON(event)
}

func findEvent(c *fiber.Ctx) (*model.CalendarEvent, error) {
	id, err := paramID(c, "id")
	if err != nil {
		return nil, err
	}
	var event model.CalendarEvent
	if err := database.GetDB().Where("id = ? AND tenant_id = ?", id, claimsOf(c).TenantID).
		First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func UpdateEvent(c *fiber.Ctx) error {
	event, err := findEvent(c)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Event not found",
		})
	}

	input := new(EventInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}
	if input.Title == "" {
		input.Title = event.Title
	}
	if input.Date == "" {
		input.Date = event.Date
	}
	if input.Type == "" {
		input.Type = event.Type
	}
	if msg := input.validate(); msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": msg,
		})
	}

	event.Title = input.Title
	event.Date = input.Date
	event.Time = input.Time
	event.Type = input.Type
	event.DurationMinutes = input.DurationMinutes
	event.Notes = input.Notes
	if input.Participants != nil {
		participants, _ := json.Marshal(input.Participants)
		event.Participants = datatypes.JSON(participants)
	}

	db := database.GetDB()
	if err := db.Save(event).Error; err != nil {
		return serverError(c, "Could not update event", err)
	}

	// A lead call keeps its lead's booking in step.
	if event.LeadID != nil {
		db.Model(&model.Lead{}).Where("id = ?", *event.LeadID).Updates(map[string]interface{}{
			"booking_date": event.Date,
			"booking_time": event.Time,
		})
	}
	return c.JSON(event)
}

func DeleteEvent(c *fiber.Ctx) error {
	event, err := findEvent(c)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Event not found",
		})
	}
	if err := database.GetDB().Unscoped().Delete(event).Error; err != nil {
		return serverError(c, "Could not delete event", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
