package controller

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	"ptmanager_backend/internal/model"
	"ptmanager_backend/pkg/database"
	"ptmanager_backend/pkg/notification"
	"ptmanager_backend/pkg/utils/jwt"
)

// KeepAliveInterval is how often an idle notification stream is pinged.
var KeepAliveInterval = 25 * time.Second

func ListNotifications(c *fiber.Ctx) error {
	claims := claimsOf(c)

	query := database.GetDB().Where("user_id = ?", claims.UserID)
	if c.Query("unread") == "true" {
		query = query.Where("read = ?", false)
	}

	var list []model.Notification
	if err := query.Order("created_at desc").Limit(queryInt(c, "limit", 50, 200)).Find(&list).Error; err != nil {
		return serverError(c, "Could not fetch notifications", err)
	}
	return c.JSON(list)
}

func UnreadCount(c *fiber.Ctx) error {
	var count int64
	if err := database.GetDB().Model(&model.Notification{}).
		Where("user_id = ? AND read = ?", claimsOf(c).UserID, false).
		Count(&count).Error; err != nil {
		return serverError(c, "Could not count notifications", err)
	}
	return c.JSON(fiber.Map{"unread": count})
}

func MarkNotificationRead(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid notification ID",
		})
	}

	now := time.Now()
	res := database.GetDB().Model(&model.Notification{}).
		Where("id = ? AND user_id = ?", id, claimsOf(c).UserID).
		Updates(map[string]interface{}{"read": true, "read_at": now})
	if res.Error != nil {
		return serverError(c, "Could not update notification", res.Error)
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Notification not found",
		})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func MarkAllNotificationsRead(c *fiber.Ctx) error {
	res := database.GetDB().Model(&model.Notification{}).
		Where("user_id = ? AND read = ?", claimsOf(c).UserID, false).
		Updates(map[string]interface{}{"read": true, "read_at": time.Now()})
	if res.Error != nil {
		return serverError(c, "Could not update notifications", res.Error)
	}
	return c.JSON(fiber.Map{"updated": res.RowsAffected})
}

type BroadcastInput struct {
	ClientIDs []uint `json:"client_ids"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Body      string `json:"body"`
}

// SendClientNotification sends a message to the app accounts of the given
// clients, or of every active client when none is given.
func SendClientNotification(c *fiber.Ctx) error {
	claims := claimsOf(c)
	input := new(BroadcastInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	input.Body = strings.TrimSpace(input.Body)
	if input.Body == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Body is required",
		})
	}
	t := notification.Type(input.Type)
	if t == "" {
		t = notification.Message
	}
	if !notification.IsKnown(t) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown notification type",
		})
	}

	db := database.GetDB()
	query := db.Where("tenant_id = ? AND role = ? AND client_id IS NOT NULL", claims.TenantID, jwt.RoleClient)
	if len(input.ClientIDs) > 0 {
		query = query.Where("client_id IN ?", input.ClientIDs)
	} else {
		query = query.Where("client_id IN (?)",
			db.Model(&model.Client{}).Select("id").Where("tenant_id = ? AND is_archived = ?", claims.TenantID, false))
	}

	var recipients []model.User
	if err := query.Find(&recipients).Error; err != nil {
		return serverError(c, "Could not fetch recipients", err)
	}
	if notification.Default == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Notifications are not available",
		})
	}

	sent := 0
	for i := range recipients {
		n, err := notification.Default.Notify(db, &recipients[i], notification.Input{
			Type:  t,
			Title: input.Title,
			Body:  input.Body,
			Data:  map[string]interface{}{"from": claims.UserID},
		})
		if err != nil {
			log.Printf("Could not notify user %d: %v", recipients[i].ID, err)
			continue
		}
		if n != nil {
			sent++
		}
	}

	return c.JSON(fiber.Map{
		"sent":       sent,
		"recipients": len(recipients),
	})
}

// NotificationHistory lists what the tenant sent to clients in the last
// ?days days (30 by default).
func NotificationHistory(c *fiber.Ctx) error {
	claims := claimsOf(c)
	days := queryInt(c, "days", 30, 365)

	var list []model.Notification
	if err := database.GetDB().
		Where("tenant_id = ? AND user_type = ? AND created_at >= ?", claims.TenantID, jwt.RoleClient,
			time.Now().AddDate(0, 0, -days)).
		Order("created_at desc").Limit(500).Find(&list).Error; err != nil {
		return serverError(c, "Could not fetch history", err)
	}
	return c.JSON(list)
}

// RequestCall lets a client ask the coach to call them back.
func RequestCall(c *fiber.Ctx) error {
	claims := claimsOf(c)
	if claims.ClientID == 0 {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only clients can request a call",
		})
	}

	var body struct {
		Note string `json:"note"`
	}
	_ = c.BodyParser(&body)

	db := database.GetDB()
	var client model.Client
	if err := db.Where("id = ? AND tenant_id = ?", claims.ClientID, claims.TenantID).First(&client).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Client not found",
		})
	}

	text := client.Name + " chiede di essere ricontattato"
	if note := strings.TrimSpace(body.Note); note != "" {
		text += ": " + note
	}
	notification.NotifyAdmins(db, claims.TenantID, notification.Input{
		Type: notification.CallRequest,
		Body: text,
		Data: map[string]interface{}{"client_id": client.ID},
	})
	return c.SendStatus(fiber.StatusAccepted)
}

// StreamNotifications pushes new notifications as server-sent events.
func StreamNotifications(c *fiber.Ctx) error {
	claims := claimsOf(c)
	if notification.Default == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Notifications are not available",
		})
	}

	events, unsubscribe := notification.Default.Subscribe(claims.UserID)

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer unsubscribe()

		ticker := time.NewTicker(KeepAliveInterval)
		defer ticker.Stop()

		fmt.Fprint(w, ": connected\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		for {
			select {
			case e, ok := <-events:
				if !ok {
					return
				}
				payload, err := json.Marshal(e.Payload)
				if err != nil {
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Name, payload)
			case <-ticker.C:
				fmt.Fprint(w, ": ping\n\n")
			}
			// A failed flush means the client went away.
			if err := w.Flush(); err != nil {
				return
			}
		}
	}))
	return nil
}

func RegisterDeviceToken(c *fiber.Ctx) error {
	claims := claimsOf(c)

	var input struct {
		Token    string `json:"token"`
		Platform string `json:"platform"`
	}
	if err := c.BodyParser(&input); err != nil || strings.TrimSpace(input.Token) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Token is required",
		})
	}
	if input.Platform == "" {
		input.Platform = "web"
	}

	db := database.GetDB()
	value := strings.TrimSpace(input.Token)

	var token model.DeviceToken
	err := db.Unscoped().Where("token = ?", value).First(&token).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		token = model.DeviceToken{UserID: claims.UserID, Token: value, Platform: input.Platform}
		if err := db.Create(&token).Error; err != nil {
			return serverError(c, "Could not register device", err)
		}
	case err != nil:
		return serverError(c, "Could not register device", err)
	case token.UserID != claims.UserID:
		// The owner has to unregister it first (logout).
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Device is registered to another user",
		})
	default:
		token.Platform = input.Platform
		token.DeletedAt = gorm.DeletedAt{}
		if err := db.Unscoped().Save(&token).Error; err != nil {
			return serverError(c, "Could not register device", err)
		}
	}
	return c.Status(fiber.StatusCreated).JSON(token)
}

func DeleteDeviceToken(c *fiber.Ctx) error {
	if err := database.GetDB().Unscoped().
		Where("user_id = ? AND token = ?", claimsOf(c).UserID, c.Params("token")).
		Delete(&model.DeviceToken{}).Error; err != nil {
		return serverError(c, "Could not remove device", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
