package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ptmanager_backend/internal/model"
	"ptmanager_backend/pkg/database"
	"ptmanager_backend/pkg/email"
	"ptmanager_backend/pkg/leadstats"
	"ptmanager_backend/pkg/notification"
	"ptmanager_backend/pkg/report"
	"ptmanager_backend/pkg/utils/jwt"
)

// SetterLeadsTimeout bounds the setter's own lead list; on timeout the
// list comes back empty and flagged as degraded.
var SetterLeadsTimeout = 8 * time.Second

type LeadInput struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Source      string `json:"source"`
	Note        string `json:"note"`
	BookingDate string `json:"booking_date"`
	BookingTime string `json:"booking_time"`
}

func validBooking(date, hhmm string) bool {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return false
	}
	_, err := time.Parse("15:04", hhmm)
	return err == nil
}

// CreateLead is the setter's booking form. The lead and its calendar call
// are written in one transaction.
func CreateLead(c *fiber.Ctx) error {
	claims := claimsOf(c)
	input := new(LeadInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	input.Name = strings.TrimSpace(input.Name)
	input.Phone = strings.TrimSpace(input.Phone)
	if input.Name == "" || input.Phone == "" || input.BookingDate == "" || input.BookingTime == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Name, number, booking date and time are required",
		})
	}
	if !validBooking(input.BookingDate, input.BookingTime) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Booking must be YYYY-MM-DD and HH:MM",
		})
	}

	db := database.GetDB()
	var setter model.User
	if err := db.First(&setter, claims.UserID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}
	setterName := setter.DisplayName
	if setterName == "" {
		setterName = setter.Email
	}

	lead := model.Lead{
		TenantID:         claims.TenantID,
		Name:             input.Name,
		Phone:            input.Phone,
		Email:            strings.TrimSpace(input.Email),
		Source:           strings.TrimSpace(input.Source),
		Note:             input.Note,
		BookingDate:      input.BookingDate,
		BookingTime:      input.BookingTime,
		CollaboratorID:   &setter.ID,
		CollaboratorName: setterName,
		Status:           model.LeadStatusBooked,
	}

	var event model.CalendarEvent
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&lead).Error; err != nil {
			return err
		}
		event = model.NewLeadEvent(&lead, claims.UserID)
		return tx.Create(&event).Error
	})
	if err != nil {
		return serverError(c, "Could not create lead", err)
	}

	announceLead(db, &lead, "")

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"lead":  lead,
		"event": event,
	})
}

// announceLead notifies and mails the tenant admins about a new lead.
func announceLead(db *gorm.DB, lead *model.Lead, pageTitle string) {
	body := lead.Name
	if lead.HasBooking() {
		body = fmt.Sprintf("%s - chiamata il %s alle %s", lead.Name, lead.BookingDate, lead.BookingTime)
	}
	notification.NotifyAdmins(db, lead.TenantID, notification.Input{
		Type: notification.NewLead,
		Body: body,
		Data: map[string]interface{}{"lead_id": lead.ID, "source": lead.Source},
	})

	if email.GlobalEmailService == nil {
		return
	}
	var admins []string
	db.Model(&model.User{}).Where("tenant_id = ? AND role = ?", lead.TenantID, jwt.RoleAdmin).Pluck("email", &admins)
	var tenant model.Tenant
	db.First(&tenant, lead.TenantID)

	data := email.NewLeadData{
		TenantName: tenant.Name,
		LeadName:   lead.Name,
		LeadPhone:  lead.Phone,
		LeadEmail:  lead.Email,
		Source:     lead.Source,
		PageTitle:  pageTitle,
	}
	go func() {
		if err := email.GlobalEmailService.SendNewLeadEmail(admins, data); err != nil {
			log.Printf("Could not send lead notification email: %v", err)
		}
	}()
}

// triState maps si/no/tutti to a filter. ok is false for "tutti" or empty.
func triState(v string) (value bool, ok bool) {
	switch strings.ToLower(v) {
	case "si", "sì", "true":
		return true, true
	case "no", "false":
		return false, true
	}
	return false, false
}

func applyLeadFilters(c *fiber.Ctx, query *gorm.DB) *gorm.DB {
	for param, column := range map[string]string{"chiuso": "closed", "showUp": "show_up", "offer": "offer"} {
		if v, ok := triState(c.Query(param)); ok {
			query = query.Where(column+" = ?", v)
		}
	}
	if id := c.QueryInt("collaborator_id"); id > 0 {
		query = query.Where("collaborator_id = ?", id)
	}
	if source := c.Query("source"); source != "" {
		query = query.Where("LOWER(source) = ?", strings.ToLower(source))
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if from := c.Query("from"); from != "" {
		if t, err := parseDate(from); err == nil {
			query = query.Where("created_at >= ?", t)
		}
	}
	if to := c.Query("to"); to != "" {
		if t, err := parseDate(to); err == nil {
			query = query.Where("created_at < ?", t.AddDate(0, 0, 1))
		}
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR phone LIKE ? OR LOWER(email) LIKE ?", like, like, like)
	}
	return query
}

// ListLeads is the admin table: filters, search and paging.
func ListLeads(c *fiber.Ctx) error {
	claims := claimsOf(c)
	page := queryInt(c, "page", 1, 0)
	limit := queryInt(c, "limit", 50, 200)

	query := applyLeadFilters(c, database.GetDB().Model(&model.Lead{}).Where("tenant_id = ?", claims.TenantID)).
		Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return serverError(c, "Could not count leads", err)
	}

	var leads []model.Lead
	if err := query.Order("created_at desc").Offset((page - 1) * limit).Limit(limit).Find(&leads).Error; err != nil {
		return serverError(c, "Could not fetch leads", err)
	}

	return c.JSON(fiber.Map{
		"leads": leads,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// ListMyLeads returns the setter's own leads. A slow database yields an
// empty, degraded list instead of an error.
func ListMyLeads(c *fiber.Ctx) error {
	claims := claimsOf(c)

	ctx, cancel := context.WithTimeout(c.Context(), SetterLeadsTimeout)
	defer cancel()

	var leads []model.Lead
	err := database.GetDB().WithContext(ctx).
		Where("tenant_id = ? AND collaborator_id = ?", claims.TenantID, claims.UserID).
		Order("created_at desc").Limit(200).
		Find(&leads).Error
	if err != nil {
		log.Printf("Setter %d leads degraded: %v", claims.UserID, err)
		return c.JSON(fiber.Map{"leads": []model.Lead{}, "degraded": true})
	}
	return c.JSON(fiber.Map{"leads": leads, "degraded": false})
}

type LeadUpdateInput struct {
	Name        *string `json:"name"`
	Phone       *string `json:"phone"`
	Email       *string `json:"email"`
	Source      *string `json:"source"`
	Note        *string `json:"note"`
	BookingDate *string `json:"booking_date"`
	BookingTime *string `json:"booking_time"`
	Closed      *bool   `json:"chiuso"`
	ShowUp      *bool   `json:"show_up"`
	Offer       *bool   `json:"offer"`
	Dialed      *int    `json:"dialed"`
	Status      *string `json:"status"`
}

func findLead(c *fiber.Ctx, db *gorm.DB) (*model.Lead, error) {
	id, err := paramID(c, "id")
	if err != nil {
		return nil, err
	}
	var lead model.Lead
	if err := db.Where("id = ? AND tenant_id = ?", id, claimsOf(c).TenantID).First(&lead).Error; err != nil {
		return nil, err
	}
	return &lead, nil
}

// UpdateLead applies the given fields. A moved booking moves its call.
func UpdateLead(c *fiber.Ctx) error {
	db := database.GetDB()
	lead, err := findLead(c, db)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Lead not found",
		})
	}

	input := new(LeadUpdateInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&lead.Name, input.Name)
	set(&lead.Phone, input.Phone)
	set(&lead.Email, input.Email)
	set(&lead.Source, input.Source)
	set(&lead.BookingDate, input.BookingDate)
	set(&lead.BookingTime, input.BookingTime)
	if input.Note != nil {
		lead.Note = *input.Note
	}
	if input.Closed != nil {
		lead.Closed = *input.Closed
	}
	if input.ShowUp != nil {
		lead.ShowUp = *input.ShowUp
	}
	if input.Offer != nil {
		lead.Offer = *input.Offer
	}
	if input.Dialed != nil {
		if *input.Dialed < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Dialed cannot be negative",
			})
		}
		lead.Dialed = *input.Dialed
	}
	if input.Status != nil {
		valid := false
		for _, s := range model.ValidLeadStatuses() {
			if s == *input.Status {
				valid = true
			}
		}
		if !valid {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid status",
			})
		}
		lead.Status = model.LeadStatus(*input.Status)
	}
	if lead.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Name is required",
		})
	}
	if (input.BookingDate != nil || input.BookingTime != nil) && lead.HasBooking() &&
		!validBooking(lead.BookingDate, lead.BookingTime) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Booking must be YYYY-MM-DD and HH:MM",
		})
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(lead).Error; err != nil {
			return err
		}
		return tx.Model(&model.CalendarEvent{}).Where("lead_id = ?", lead.ID).Updates(map[string]interface{}{
			"title": "📞 " + lead.Name,
			"date":  lead.BookingDate,
			"time":  lead.BookingTime,
		}).Error
	})
	if err != nil {
		return serverError(c, "Could not update lead", err)
	}
	return c.JSON(lead)
}

func DeleteLead(c *fiber.Ctx) error {
	db := database.GetDB()
	lead, err := findLead(c, db)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Lead not found",
		})
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("lead_id = ?", lead.ID).Delete(&model.CalendarEvent{}).Error; err != nil {
			return err
		}
		return tx.Delete(lead).Error
	})
	if err != nil {
		return serverError(c, "Could not delete lead", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SyncLeadsToCalendar creates the missing call events of booked leads.
// Leads that already have one are skipped, so it can run any number of times.
func SyncLeadsToCalendar(c *fiber.Ctx) error {
	claims := claimsOf(c)
	db := database.GetDB()

	var leads []model.Lead
	if err := db.Where("tenant_id = ? AND collaborator_id IS NOT NULL AND name <> '' AND booking_date <> '' AND booking_time <> ''",
		claims.TenantID).Find(&leads).Error; err != nil {
		return serverError(c, "Could not fetch leads", err)
	}

	var linked []uint
	if err := db.Unscoped().Model(&model.CalendarEvent{}).Where("tenant_id = ? AND lead_id IS NOT NULL", claims.TenantID).
		Pluck("lead_id", &linked).Error; err != nil {
		return serverError(c, "Could not fetch events", err)
	}
	has := make(map[uint]bool, len(linked))
	for _, id := range linked {
		has[id] = true
	}

	created, skipped := 0, 0
	err := db.Transaction(func(tx *gorm.DB) error {
		for i := range leads {
			if has[leads[i].ID] {
				skipped++
				continue
			}
			event := model.NewLeadEvent(&leads[i], claims.UserID)
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&event).Error; err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return serverError(c, "Could not sync calendar", err)
	}

	return c.JSON(fiber.Map{
		"created": created,
		"skipped": skipped,
		"total":   len(leads),
	})
}

// GetLeadSourceStats groups leads by source. ?mapping= is a JSON object of
// alias to source, merging e.g. "ig" into "instagram".
func GetLeadSourceStats(c *fiber.Ctx) error {
	claims := claimsOf(c)

	var mapping map[string]string
	if raw := c.Query("mapping"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &mapping); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid source mapping",
			})
		}
	}

	var leads []model.Lead
	query := applyLeadFilters(c, database.GetDB().Select("source", "show_up", "closed").
		Where("tenant_id = ?", claims.TenantID))
	if err := query.Find(&leads).Error; err != nil {
		return serverError(c, "Could not fetch leads", err)
	}

	rows := make([]leadstats.Lead, 0, len(leads))
	for _, l := range leads {
		rows = append(rows, leadstats.Lead{Source: l.Source, ShowUp: l.ShowUp, Closed: l.Closed})
	}

	return c.JSON(fiber.Map{
		"total":   len(leads),
		"sources": leadstats.BySource(rows, mapping),
	})
}

func ExportLeads(c *fiber.Ctx) error {
	claims := claimsOf(c)

	var leads []model.Lead
	query := applyLeadFilters(c, database.GetDB().Where("tenant_id = ?", claims.TenantID))
	if err := query.Order("created_at desc").Find(&leads).Error; err != nil {
		return serverError(c, "Could not fetch leads", err)
	}

	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="lead-%s.xlsx"`, time.Now().Format("2006-01-02")))
	if err := report.LeadsXLSX(c.Response().BodyWriter(), leads); err != nil {
		return serverError(c, "Could not export leads", err)
	}
	return nil
}

// UpsertDailyReport stores the setter's tracker for a day, today by default.
func UpsertDailyReport(c *fiber.Ctx) error {
	claims := claimsOf(c)

	var input struct {
		Date    string                 `json:"date"`
		Tracker map[string]interface{} `json:"tracker"`
	}
	if err := c.BodyParser(&input); err != nil || input.Tracker == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Tracker is required",
		})
	}
	if input.Date == "" {
		input.Date = model.DateKey(time.Now())
	}
	if _, err := time.Parse("2006-01-02", input.Date); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid date",
		})
	}

	tracker, _ := json.Marshal(input.Tracker)
	report := model.DailyReport{
		TenantID: claims.TenantID,
		UserID:   claims.UserID,
		Date:     input.Date,
		Tracker:  datatypes.JSON(tracker),
	}
	err := database.GetDB().Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"tracker", "updated_at"}),
	}).Create(&report).Error
	if err != nil {
		return serverError(c, "Could not save report", err)
	}
	return c.JSON(report)
}

// ListDailyReports shows admins every setter's reports and setters their own.
func ListDailyReports(c *fiber.Ctx) error {
	claims := claimsOf(c)

	query := database.GetDB().Where("tenant_id = ?", claims.TenantID)
	if claims.Role != jwt.RoleAdmin {
		query = query.Where("user_id = ?", claims.UserID)
	} else if id := c.QueryInt("user_id"); id > 0 {
		query = query.Where("user_id = ?", id)
	}
	if from := c.Query("from"); from != "" {
		query = query.Where("date >= ?", from)
	}
	if to := c.Query("to"); to != "" {
		query = query.Where("date <= ?", to)
	}

	var reports []model.DailyReport
	if err := query.Order("date desc").Limit(200).Find(&reports).Error; err != nil {
		return serverError(c, "Could not fetch reports", err)
	}
	return c.JSON(reports)
}
