package controller

import (
	"context"
	"fmt"
	"io"
	"log"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"ptmanager_backend/pkg/utils/cloudflare"
	"ptmanager_backend/pkg/utils/image"
	"ptmanager_backend/pkg/utils/validation"
)

// reencoded lists the formats whose metadata is stripped before upload.
var reencoded = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}

// UploadLandingMedia stores an image, video or audio file for a landing
// page block and returns its public URL.
func UploadLandingMedia(c *fiber.Ctx) error {
	claims := claimsOf(c)
	page, err := findLandingPage(c)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Landing page not found",
		})
	}

	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No file uploaded",
		})
	}
	kind, err := validation.ValidateMedia(file)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	src, err := file.Open()
	if err != nil {
		return serverError(c, "Could not read file", err)
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(file.Filename))
	contentType := file.Header.Get("Content-Type")
	var body io.Reader = src
	size := file.Size

	if kind == validation.KindImage && reencoded[ext] {
		processed, err := image.Process(src)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		body, size = processed.Body, int64(processed.Body.Len())
		ext, contentType = processed.Ext, processed.ContentType
	}

	// Videos can be large, give them time.
	ctx, cancel := context.WithTimeout(c.Context(), 10*time.Minute)
	defer cancel()

	url, err := cloudflare.Default.Put(ctx, cloudflare.Object{
		Key:         cloudflare.LandingMediaKey(claims.TenantID, page.ID, c.FormValue("block_id"), ext),
		Body:        body,
		Size:        size,
		ContentType: contentType,
		Metadata: map[string]string{
			"original-name": file.Filename,
		},
	})
	if err != nil {
		return serverError(c, "Could not upload file", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"url":  url,
		"type": kind,
		"size": size,
	})
}

// DeleteLandingMedia removes an uploaded file by its URL. Only files under
// the caller's tenant prefix can be removed.
func DeleteLandingMedia(c *fiber.Ctx) error {
	claims := claimsOf(c)

	var body struct {
		URL string `json:"url"`
	}
	if err := c.BodyParser(&body); err != nil || body.URL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "URL is required",
		})
	}

	key, ok := cloudflare.Default.KeyFromURL(body.URL)
	if !ok || path.Clean(key) != key || !strings.HasPrefix(key, tenantMediaPrefix(claims.TenantID)) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Not authorized to delete this file",
		})
	}

	if err := cloudflare.Default.Delete(c.Context(), key); err != nil {
		log.Printf("Could not delete %s: %v", key, err)
		return serverError(c, "Could not delete file", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func tenantMediaPrefix(tenantID uint) string {
	return fmt.Sprintf("landing-media/%d/", tenantID)
}
