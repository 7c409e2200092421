package controller

import (
	"context"
	"encoding/json"
	"log"
	"mime/multipart"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"

	"ptmanager_backend/internal/model"
	"ptmanager_backend/pkg/database"
	"ptmanager_backend/pkg/notification"
	"ptmanager_backend/pkg/utils/cloudflare"
	"ptmanager_backend/pkg/utils/image"
	"ptmanager_backend/pkg/utils/validation"
)

const maxCheckPhotos = 6

type CheckInput struct {
	Weight       float64                `json:"weight"`
	Notes        string                 `json:"notes"`
	Measurements map[string]interface{} `json:"measurements"`
}

func ListChecks(c *fiber.Ctx) error {
	client := c.Locals("client").(*model.Client)

	var checks []model.Check
	if err := database.GetDB().Where("client_id = ?", client.ID).
		Order("created_at desc").Find(&checks).Error; err != nil {
		return serverError(c, "Could not fetch checks", err)
	}
	return c.JSON(checks)
}

// CreateCheck accepts JSON, or multipart with the same fields plus up to
// six "photos" which are stored as webp.
func CreateCheck(c *fiber.Ctx) error {
	claims := claimsOf(c)
	client := c.Locals("client").(*model.Client)

	input := new(CheckInput)
	var photos []*multipart.FileHeader

	if form, err := c.MultipartForm(); err == nil {
		if w := c.FormValue("weight"); w != "" {
			weight, err := strconv.ParseFloat(w, 64)
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid weight",
				})
			}
			input.Weight = weight
		}
		input.Notes = c.FormValue("notes")
		if m := c.FormValue("measurements"); m != "" {
			if err := json.Unmarshal([]byte(m), &input.Measurements); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid measurements",
				})
			}
		}
		photos = form.File["photos"]
	} else if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	if len(photos) > maxCheckPhotos {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Too many photos",
		})
	}
	for _, p := range photos {
		if err := validation.ValidateImage(p); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
	}

	ctx, cancel := context.WithTimeout(c.Context(), 60*time.Second)
	defer cancel()

	urls := make([]string, 0, len(photos))
	for _, p := range photos {
		url, err := uploadCheckPhoto(ctx, claims.TenantID, client.ID, p)
		if err != nil {
			cleanupUploads(ctx, urls)
			return serverError(c, "Could not upload photo", err)
		}
		urls = append(urls, url)
	}

	check := model.Check{
		TenantID: claims.TenantID,
		ClientID: client.ID,
		Weight:   input.Weight,
		Notes:    input.Notes,
	}
	if input.Measurements != nil {
		b, _ := json.Marshal(input.Measurements)
		check.Measurements = datatypes.JSON(b)
	}
	check.SetPhotoURLs(urls)

	db := database.GetDB()
	if err := db.Create(&check).Error; err != nil {
		cleanupUploads(ctx, urls)
		return serverError(c, "Could not save check", err)
	}

	notification.NotifyAdmins(db, claims.TenantID, notification.Input{
		Type: notification.NewCheck,
		Body: client.Name + " ha caricato un nuovo check-in",
		Data: map[string]interface{}{"client_id": client.ID, "check_id": check.ID, "tab": "check"},
	})

	return c.Status(fiber.StatusCreated).JSON(check)
}

func uploadCheckPhoto(ctx context.Context, tenantID, clientID uint, fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	processed, err := image.ToWebP(src)
	if err != nil {
		return "", err
	}

	return cloudflare.Default.Put(ctx, cloudflare.Object{
		Key:         cloudflare.CheckPhotoKey(tenantID, clientID, processed.Ext),
		Body:        processed.Body,
		Size:        int64(processed.Body.Len()),
		ContentType: processed.ContentType,
	})
}

func cleanupUploads(ctx context.Context, urls []string) {
	for _, u := range urls {
		key, ok := cloudflare.Default.KeyFromURL(u)
		if !ok {
			continue
		}
		if err := cloudflare.Default.Delete(ctx, key); err != nil {
			log.Printf("Could not delete %s: %v", key, err)
		}
	}
}

func DeleteCheck(c *fiber.Ctx) error {
	client := c.Locals("client").(*model.Client)
	checkID, err := paramID(c, "checkId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid check ID",
		})
	}

	db := database.GetDB()
	var check model.Check
	if err := db.Where("id = ? AND client_id = ?", checkID, client.ID).First(&check).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Check not found",
		})
	}
	if err := db.Delete(&check).Error; err != nil {
		return serverError(c, "Could not delete check", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	cleanupUploads(ctx, check.PhotoURLs())

	return c.SendStatus(fiber.StatusNoContent)
}

func ListAnamnesi(c *fiber.Ctx) error {
	client := c.Locals("client").(*model.Client)

	var list []model.Anamnesi
	if err := database.GetDB().Where("client_id = ?", client.ID).
		Order("submitted_at desc").Find(&list).Error; err != nil {
		return serverError(c, "Could not fetch anamnesi", err)
	}
	return c.JSON(list)
}

func SubmitAnamnesi(c *fiber.Ctx) error {
	claims := claimsOf(c)
	client := c.Locals("client").(*model.Client)

	var input struct {
		Answers map[string]interface{} `json:"answers"`
	}
	if err := c.BodyParser(&input); err != nil || len(input.Answers) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Answers are required",
		})
	}

	answers, err := json.Marshal(input.Answers)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid answers",
		})
	}

	anamnesi := model.Anamnesi{
		TenantID:    claims.TenantID,
		ClientID:    client.ID,
		Answers:     datatypes.JSON(answers),
		SubmittedAt: time.Now(),
	}
	db := database.GetDB()
	if err := db.Create(&anamnesi).Error; err != nil {
		return serverError(c, "Could not save anamnesi", err)
	}

	notification.NotifyAdmins(db, claims.TenantID, notification.Input{
		Type: notification.NewAnamnesi,
		Body: client.Name + " ha compilato l'anamnesi",
		Data: map[string]interface{}{"client_id": client.ID, "tab": "anamnesi"},
	})

	return c.Status(fiber.StatusCreated).JSON(anamnesi)
}
