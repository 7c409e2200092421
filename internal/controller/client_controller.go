package controller

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"ptmanager_backend/internal/model"
	"ptmanager_backend/pkg/database"
	"ptmanager_backend/pkg/money"
	"ptmanager_backend/pkg/notification"
	"ptmanager_backend/pkg/utils/jwt"
)

type ClientInput struct {
	Name                string  `json:"name"`
	Email               string  `json:"email"`
	Phone               string  `json:"phone"`
	Notes               string  `json:"notes"`
	Scadenza            *string `json:"scadenza"`
	PlanType            string  `json:"plan_type"`
	IsOldClient         bool    `json:"is_old_client"`
	WeeklyWorkoutTarget int     `json:"weekly_workout_target"`
}

func (in *ClientInput) apply(client *model.Client) error {
	client.Name = strings.TrimSpace(in.Name)
	client.Email = strings.TrimSpace(in.Email)
	client.Phone = strings.TrimSpace(in.Phone)
	client.Notes = in.Notes
	client.PlanType = in.PlanType
	client.IsOldClient = in.IsOldClient
	if in.WeeklyWorkoutTarget > 0 {
		client.WeeklyWorkoutTarget = in.WeeklyWorkoutTarget
	}
	client.Scadenza = nil
	if in.Scadenza != nil && *in.Scadenza != "" {
		t, err := parseDate(*in.Scadenza)
		if err != nil {
			return fmt.Errorf("invalid scadenza: %w", err)
		}
		client.Scadenza = &t
	}
	if client.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

// ListClients supports ?status=active|expired|archived|all and ?search=.
// Archived clients are hidden unless asked for.
func ListClients(c *fiber.Ctx) error {
	claims := claimsOf(c)
	now := time.Now()

	query := database.GetDB().Where("tenant_id = ?", claims.TenantID)
	switch c.Query("status") {
	case "active":
		query = query.Where("is_archived = ? AND scadenza > ?", false, now)
	case "expired":
		query = query.Where("is_archived = ? AND (scadenza IS NULL OR scadenza <= ?)", false, now)
	case "archived":
		query = query.Where("is_archived = ?", true)
	case "all":
	default:
		query = query.Where("is_archived = ?", false)
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	var clients []model.Client
	if err := query.Order("name asc").Find(&clients).Error; err != nil {
		return serverError(c, "Could not fetch clients", err)
	}
	return c.JSON(clients)
}

func CreateClient(c *fiber.Ctx) error {
	claims := claimsOf(c)
	input := new(ClientInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	client := model.Client{TenantID: claims.TenantID}
	if err := input.apply(&client); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	db := database.GetDB()
	if err := db.Create(&client).Error; err != nil {
		return serverError(c, "Could not create client", err)
	}

	if claims.Role != jwt.RoleAdmin {
		notification.NotifyAdmins(db, claims.TenantID, notification.Input{
			Type: notification.NewClient,
			Body: client.Name,
			Data: map[string]interface{}{"client_id": client.ID},
		})
	}

	return c.Status(fiber.StatusCreated).JSON(client)
}

// GetClient returns the client with its payments and the latest check.
func GetClient(c *fiber.Ctx) error {
	client := c.Locals("client").(*model.Client)
	db := database.GetDB()

	var payments []model.ClientPayment
	if err := db.Where("client_id = ?", client.ID).Order("payment_date desc").Find(&payments).Error; err != nil {
		return serverError(c, "Could not fetch payments", err)
	}
	client.Payments = payments

	var lastCheck *model.Check
	var check model.Check
	if err := db.Where("client_id = ?", client.ID).Order("created_at desc").First(&check).Error; err == nil {
		lastCheck = &check
	}

	var total money.Cents
	for _, p := range payments {
		total += p.Amount
	}

	return c.JSON(fiber.Map{
		"client":         client,
		"is_active":      client.IsActive(time.Now()),
		"last_check":     lastCheck,
		"total_paid":     total,
		"total_paid_eur": money.FormatEUR(total),
	})
}

func UpdateClient(c *fiber.Ctx) error {
	client := c.Locals("client").(*model.Client)
	input := new(ClientInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}
	if err := input.apply(client); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if err := database.GetDB().Save(client).Error; err != nil {
		return serverError(c, "Could not update client", err)
	}
	return c.JSON(client)
}

func DeleteClient(c *fiber.Ctx) error {
	client := c.Locals("client").(*model.Client)

	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		for _, m := range []interface{}{&model.ClientPayment{}, &model.Check{}, &model.Anamnesi{}, &model.ClientRate{}, &model.HabitLog{}} {
			if err := tx.Where("client_id = ?", client.ID).Delete(m).Error; err != nil {
				return err
			}
		}
		return tx.Delete(client).Error
	})
	if err != nil {
		return serverError(c, "Could not delete client", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func ArchiveClient(c *fiber.Ctx) error {
	client := c.Locals("client").(*model.Client)
	var settings model.ArchiveSettings
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&settings); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid input",
			})
		}
	}

	now := time.Now()
	client.IsArchived = true
	client.ArchivedAt = &now
	client.SetArchiveSettings(settings)
	if err := database.GetDB().Save(client).Error; err != nil {
		return serverError(c, "Could not archive client", err)
	}
	return c.JSON(client)
}

func UnarchiveClient(c *fiber.Ctx) error {
	client := c.Locals("client").(*model.Client)

	client.IsArchived = false
	client.ArchivedAt = nil
	client.SetArchiveSettings(model.ArchiveSettings{})
	if err := database.GetDB().Save(client).Error; err != nil {
		return serverError(c, "Could not unarchive client", err)
	}
	return c.JSON(client)
}

type PaymentInput struct {
	Amount      Amount  `json:"amount"`
	Duration    string  `json:"duration"`
	PaymentDate string  `json:"payment_date"`
	IsPast      bool    `json:"is_past"`
	Method      string  `json:"method"`
	Note        string  `json:"note"`
	NewScadenza *string `json:"new_scadenza"`
}

func ListPayments(c *fiber.Ctx) error {
	client := c.Locals("client").(*model.Client)

	var payments []model.ClientPayment
	if err := database.GetDB().Where("client_id = ?", client.ID).
		Order("payment_date desc").Find(&payments).Error; err != nil {
		return serverError(c, "Could not fetch payments", err)
	}
	return c.JSON(payments)
}

// CreatePayment records a payment and optionally moves the client's expiry.
func CreatePayment(c *fiber.Ctx) error {
	claims := claimsOf(c)
	client := c.Locals("client").(*model.Client)

	input := new(PaymentInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}
	if input.Amount.Cents() <= 0 || strings.TrimSpace(input.Duration) == "" || input.PaymentDate == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Amount, duration and payment date are required",
		})
	}
	date, err := parseDate(input.PaymentDate)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid payment date",
		})
	}

	payment := model.ClientPayment{
		TenantID:    claims.TenantID,
		ClientID:    client.ID,
		Amount:      input.Amount.Cents(),
		Duration:    strings.TrimSpace(input.Duration),
		PaymentDate: date,
		IsPast:      input.IsPast,
		Method:      input.Method,
		Note:        input.Note,
	}

	db := database.GetDB()
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}
		if input.NewScadenza == nil || *input.NewScadenza == "" {
			return nil
		}
		scadenza, err := parseDate(*input.NewScadenza)
		if err != nil {
			return err
		}
		return tx.Model(client).Update("scadenza", scadenza).Error
	})
	if err != nil {
		return serverError(c, "Could not create payment", err)
	}

	if !payment.IsPast {
		notification.NotifyAdmins(db, claims.TenantID, notification.Input{
			Type: notification.Payment,
			Body: fmt.Sprintf("%s: %s (%s)", client.Name, money.FormatEUR(payment.Amount), payment.Duration),
			Data: map[string]interface{}{"client_id": client.ID, "payment_id": payment.ID, "tab": "payments"},
		})
	}

	return c.Status(fiber.StatusCreated).JSON(payment)
}

func DeletePayment(c *fiber.Ctx) error {
	client := c.Locals("client").(*model.Client)
	paymentID, err := paramID(c, "paymentId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid payment ID",
		})
	}

	result := database.GetDB().Where("id = ? AND client_id = ?", paymentID, client.ID).Delete(&model.ClientPayment{})
	if result.Error != nil {
		return serverError(c, "Could not delete payment", result.Error)
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Payment not found",
		})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type RateInput struct {
	Amount  Amount `json:"amount"`
	DueDate string `json:"due_date"`
	Note    string `json:"note"`
}

func ListRates(c *fiber.Ctx) error {
	client := c.Locals("client").(*model.Client)

	var rates []model.ClientRate
	if err := database.GetDB().Where("client_id = ?", client.ID).Order("due_date asc").Find(&rates).Error; err != nil {
		return serverError(c, "Could not fetch rates", err)
	}
	return c.JSON(rates)
}

func CreateRate(c *fiber.Ctx) error {
	claims := claimsOf(c)
	client := c.Locals("client").(*model.Client)

	input := new(RateInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}
	due, err := parseDate(input.DueDate)
	if err != nil || input.Amount.Cents() <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Amount and due date are required",
		})
	}

	rate := model.ClientRate{
		TenantID: claims.TenantID,
		ClientID: client.ID,
		Amount:   input.Amount.Cents(),
		DueDate:  due,
		Note:     input.Note,
	}
	if err := database.GetDB().Create(&rate).Error; err != nil {
		return serverError(c, "Could not create rate", err)
	}
	return c.Status(fiber.StatusCreated).JSON(rate)
}

func MarkRatePaid(c *fiber.Ctx) error {
	client := c.Locals("client").(*model.Client)
	rateID, err := paramID(c, "rateId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid rate ID",
		})
	}

	db := database.GetDB()
	var rate model.ClientRate
	if err := db.Where("id = ? AND client_id = ?", rateID, client.ID).First(&rate).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Rate not found",
		})
	}

	now := time.Now()
	rate.Paid = true
	rate.PaidAt = &now
	if err := db.Save(&rate).Error; err != nil {
		return serverError(c, "Could not update rate", err)
	}
	return c.JSON(rate)
}
