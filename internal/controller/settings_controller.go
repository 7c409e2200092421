package controller

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"ptmanager_backend/internal/model"
	"ptmanager_backend/pkg/database"
	"ptmanager_backend/pkg/notification"
	"ptmanager_backend/pkg/utils/cloudflare"
	"ptmanager_backend/pkg/utils/image"
	"ptmanager_backend/pkg/utils/validation"
)

type ProfileUpdateInput struct {
	DisplayName string `json:"display_name"`
}

func GetProfile(c *fiber.Ctx) error {
	claims := claimsOf(c)

	var user model.User
	if err := database.GetDB().First(&user, claims.UserID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	return c.JSON(user.GetPublicProfile())
}

func UpdateProfile(c *fiber.Ctx) error {
	claims := claimsOf(c)
	input := new(ProfileUpdateInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	db := database.GetDB()
	var user model.User
	if err := db.First(&user, claims.UserID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	if err := db.Model(&user).Update("display_name", input.DisplayName).Error; err != nil {
		return serverError(c, "Could not update profile", err)
	}

	return c.JSON(fiber.Map{
		"message": "Profile updated successfully",
		"user":    user.GetPublicProfile(),
	})
}

// UpdateNotificationPrefs merges the given toggles into the stored ones.
func UpdateNotificationPrefs(c *fiber.Ctx) error {
	claims := claimsOf(c)
	var input map[string]bool
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	known := map[string]bool{}
	for _, k := range notification.PreferenceKeys() {
		known[k] = true
	}
	for k := range input {
		if !known[k] {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unknown preference: " + k,
			})
		}
	}

	db := database.GetDB()
	var user model.User
	if err := db.First(&user, claims.UserID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	prefs := user.Prefs()
	for k, v := range input {
		prefs[k] = v
	}
	user.SetPrefs(prefs)
	if err := db.Model(&user).Update("notification_prefs", user.NotificationPrefs).Error; err != nil {
		return serverError(c, "Could not update preferences", err)
	}

	return c.JSON(fiber.Map{"notification_prefs": prefs})
}

func UploadAvatar(c *fiber.Ctx) error {
	claims := claimsOf(c)

	db := database.GetDB()
	var user model.User
	if err := db.First(&user, claims.UserID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	file, err := c.FormFile("avatar")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No avatar image provided",
		})
	}
	if err := validation.ValidateImage(file); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	src, err := file.Open()
	if err != nil {
		return serverError(c, "Could not read avatar", err)
	}
	defer src.Close()

	processed, err := image.Process(src)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	ctx, cancel := context.WithTimeout(c.Context(), 30*time.Second)
	defer cancel()

	avatarURL, err := cloudflare.Default.Put(ctx, cloudflare.Object{
		Key:         cloudflare.ProfilePhotoKey(claims.TenantID, claims.UserID, processed.Ext),
		Body:        processed.Body,
		Size:        int64(processed.Body.Len()),
		ContentType: processed.ContentType,
	})
	if err != nil {
		return serverError(c, "Could not upload avatar", err)
	}

	if user.PhotoURL != "" {
		if key, ok := cloudflare.Default.KeyFromURL(user.PhotoURL); ok {
			if err := cloudflare.Default.Delete(ctx, key); err != nil {
				log.Printf("Error deleting old avatar: %v", err)
			}
		}
	}

	if err := db.Model(&user).Update("photo_url", avatarURL).Error; err != nil {
		return serverError(c, "Could not update avatar", err)
	}

	return c.JSON(fiber.Map{
		"message":   "Avatar uploaded successfully",
		"photo_url": avatarURL,
	})
}

func GetLoginHistory(c *fiber.Ctx) error {
	claims := claimsOf(c)

	var history []model.LoginHistory
	if err := database.GetDB().Where("user_id = ?", claims.UserID).
		Order("created_at desc").Limit(20).Find(&history).Error; err != nil {
		return serverError(c, "Could not fetch login history", err)
	}
	return c.JSON(history)
}
