package controller

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"ptmanager_backend/internal/model"
	"ptmanager_backend/pkg/database"
	"ptmanager_backend/pkg/landing"
)

type LandingInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Template    string `json:"template"`
}

func ListLandingPages(c *fiber.Ctx) error {
	claims := claimsOf(c)

	query := database.GetDB().Where("tenant_id = ?", claims.TenantID)
	switch c.Query("status") {
	case "published":
		query = query.Where("is_published = ?", true)
	case "draft":
		query = query.Where("is_published = ?", false)
	}

	var pages []model.LandingPage
	if err := query.Order("updated_at desc").Limit(queryInt(c, "limit", 50, 100)).Find(&pages).Error; err != nil {
		return serverError(c, "Could not fetch landing pages", err)
	}
	return c.JSON(pages)
}

func findLandingPage(c *fiber.Ctx) (*model.LandingPage, error) {
	id, err := paramID(c, "id")
	if err != nil {
		return nil, err
	}
	var page model.LandingPage
	if err := database.GetDB().Where("id = ? AND tenant_id = ?", id, claimsOf(c).TenantID).
		First(&page).Error; err != nil {
		return nil, err
	}
	return &page, nil
}

func GetLandingPage(c *fiber.Ctx) error {
	page, err := findLandingPage(c)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Landing page not found",
		})
	}
	return c.JSON(page)
}

// CreateLandingPage starts a draft from a template.
func CreateLandingPage(c *fiber.Ctx) error {
	claims := claimsOf(c)
	input := new(LandingInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	input.Title = strings.TrimSpace(input.Title)
	if err := landing.ValidateTitle(input.Title); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if input.Template == "" {
		input.Template = "blank"
	}
	blocks, err := landing.TemplateBlocks(input.Template)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	page := model.LandingPage{
		TenantID: claims.TenantID,
		Slug:     landing.GenerateSlug(input.Title, time.Now()),
	}
	page.SetState(landing.PageState{
		Title:       input.Title,
		Description: input.Description,
		Template:    input.Template,
		Blocks:      blocks,
		Settings:    map[string]any{},
	})

	if err := database.GetDB().Create(&page).Error; err != nil {
		return serverError(c, "Could not create landing page", err)
	}
	return c.Status(fiber.StatusCreated).JSON(page)
}

// UpdateLandingPage applies a partial patch. The first publish stamps
// published_at.
func UpdateLandingPage(c *fiber.Ctx) error {
	page, err := findLandingPage(c)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Landing page not found",
		})
	}

	patch, err := landing.ParsePatch(c.Body())
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if err := page.ApplyPatch(patch, time.Now()); err != nil {
		return serverError(c, "Could not read landing page", err)
	}

	if err := database.GetDB().Save(page).Error; err != nil {
		return serverError(c, "Could not update landing page", err)
	}
	return c.JSON(page)
}

func DeleteLandingPage(c *fiber.Ctx) error {
	page, err := findLandingPage(c)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Landing page not found",
		})
	}

	err = database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("landing_page_id = ?", page.ID).Delete(&model.LandingView{}).Error; err != nil {
			return err
		}
		return tx.Delete(page).Error
	})
	if err != nil {
		return serverError(c, "Could not delete landing page", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func DuplicateLandingPage(c *fiber.Ctx) error {
	page, err := findLandingPage(c)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Landing page not found",
		})
	}

	dup := page.Duplicate(time.Now())
	if err := database.GetDB().Create(&dup).Error; err != nil {
		return serverError(c, "Could not duplicate landing page", err)
	}
	return c.Status(fiber.StatusCreated).JSON(dup)
}

// publishedPage resolves :tenant and :slug to a published page.
func publishedPage(c *fiber.Ctx, db *gorm.DB) (*model.LandingPage, error) {
	var tenant model.Tenant
	if err := db.Where("slug = ?", c.Params("tenant")).First(&tenant).Error; err != nil {
		return nil, err
	}
	var page model.LandingPage
	if err := db.Where("tenant_id = ? AND slug = ? AND is_published = ?", tenant.ID, c.Params("slug"), true).
		First(&page).Error; err != nil {
		return nil, err
	}
	return &page, nil
}

// GetPublicLandingPage serves a published page with rendered text blocks.
func GetPublicLandingPage(c *fiber.Ctx) error {
	page, err := publishedPage(c, database.GetDB())
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Page not found",
		})
	}

	blocks, err := page.GetBlocks()
	if err != nil {
		return serverError(c, "Could not read landing page", err)
	}
	var settings map[string]any
	_ = json.Unmarshal(page.Settings, &settings)

	return c.JSON(fiber.Map{
		"id":          page.ID,
		"title":       page.Title,
		"slug":        page.Slug,
		"description": page.Description,
		"blocks":      landing.RenderPublic(blocks),
		"settings":    settings,
	})
}

func RecordLandingView(c *fiber.Ctx) error {
	db := database.GetDB()
	page, err := publishedPage(c, db)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Page not found",
		})
	}

	var body struct {
		VisitorID string `json:"visitor_id"`
	}
	_ = c.BodyParser(&body)

	view := model.LandingView{
		LandingPageID: page.ID,
		VisitorID:     body.VisitorID,
		IP:            c.IP(),
		UserAgent:     c.Get(fiber.HeaderUserAgent),
	}
	if err := db.Create(&view).Error; err != nil {
		return serverError(c, "Could not record view", err)
	}
	return c.JSON(fiber.Map{"unique": view.IsUnique})
}

// SubmitLandingLead turns a form or quiz submission into a lead and counts
// a conversion on the page.
func SubmitLandingLead(c *fiber.Ctx) error {
	db := database.GetDB()
	page, err := publishedPage(c, db)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Page not found",
		})
	}

	var sub landing.Submission
	if err := c.BodyParser(&sub); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	blocks, err := page.GetBlocks()
	if err != nil {
		return serverError(c, "Could not read landing page", err)
	}
	captured, err := landing.Capture(blocks, sub)
	if err != nil {
		status := fiber.StatusBadRequest
		if errors.Is(err, landing.ErrBlockNotFound) {
			status = fiber.StatusNotFound
		}
		return c.Status(status).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	quiz, _ := json.Marshal(captured.QuizAnswers)
	extra, _ := json.Marshal(captured.Extra)
	lead := model.Lead{
		TenantID:      page.TenantID,
		Name:          captured.Name,
		Email:         captured.Email,
		Phone:         captured.Phone,
		Source:        captured.Source,
		Status:        model.LeadStatusNew,
		LandingPageID: &page.ID,
		QuizAnswers:   datatypes.JSON(quiz),
		Extra:         datatypes.JSON(extra),
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&lead).Error; err != nil {
			return err
		}
		return model.RecordConversion(tx, page.ID)
	})
	if err != nil {
		return serverError(c, "Could not save lead", err)
	}

	announceLead(db, &lead, page.Title)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Grazie! Ti contatteremo a breve.",
		"lead_id": lead.ID,
	})
}
