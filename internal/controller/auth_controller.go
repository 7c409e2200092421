package controller

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"ptmanager_backend/internal/model"
	"ptmanager_backend/pkg/database"
	"ptmanager_backend/pkg/email"
	"ptmanager_backend/pkg/subscription"
	"ptmanager_backend/pkg/utils/jwt"
)

// AppBaseURL is used in links sent by email.
var AppBaseURL = "http://localhost:5173"

type RegisterInput struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	Name         string `json:"name"`
	BusinessName string `json:"business_name"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type InviteInput struct {
	Email       string `json:"email"`
	Role        string `json:"role"`
	DisplayName string `json:"display_name"`
	ClientID    uint   `json:"client_id"`
}

const minPasswordLength = 6

// uniqueTenantSlug appends a counter until the slug is free.
func uniqueTenantSlug(tx *gorm.DB, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "coach"
	}
	candidate := base
	for i := 2; ; i++ {
		var count int64
		if err := tx.Model(&model.Tenant{}).Where("slug = ?", candidate).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

func tokenFor(u *model.User) (string, error) {
	var clientID uint
	if u.ClientID != nil {
		clientID = *u.ClientID
	}
	return jwt.GenerateToken(u.ID, u.TenantID, u.Role, u.Email, clientID)
}

// Register creates a tenant together with its first admin.
func Register(c *fiber.Ctx) error {
	input := new(RegisterInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if input.Email == "" || !strings.Contains(input.Email, "@") {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "A valid email is required",
		})
	}
	if len(input.Password) < minPasswordLength {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("Password must be at least %d characters", minPasswordLength),
		})
	}
	if strings.TrimSpace(input.BusinessName) == "" {
		input.BusinessName = input.Name
	}
	if strings.TrimSpace(input.BusinessName) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Business name is required",
		})
	}

	db := database.GetDB()
	var existing int64
	db.Model(&model.User{}).Where("email = ?", input.Email).Count(&existing)
	if existing > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Email already exists",
		})
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not hash password",
		})
	}

	var tenant model.Tenant
	var user model.User
	err = db.Transaction(func(tx *gorm.DB) error {
		tenantSlug, err := uniqueTenantSlug(tx, input.BusinessName)
		if err != nil {
			return err
		}
		tenant = model.Tenant{Name: input.BusinessName, Slug: tenantSlug, OwnerEmail: input.Email}
		if err := tx.Create(&tenant).Error; err != nil {
			return err
		}

		user = model.User{
			TenantID:    tenant.ID,
			Email:       input.Email,
			Password:    string(hashedPassword),
			Role:        jwt.RoleAdmin,
			DisplayName: input.Name,
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		return tx.Create(&model.TenantSubscription{
			TenantID: tenant.ID,
			PlanType: string(subscription.FreePlan),
			Status:   model.SubscriptionActive,
		}).Error
	})
	if err != nil {
		return serverError(c, "Could not create account", err)
	}

	token, err := tokenFor(&user)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not generate token",
		})
	}

	if email.GlobalEmailService != nil {
		go func(to, name, tenantName string) {
			if err := email.GlobalEmailService.SendWelcomeEmail(to, name, tenantName, AppBaseURL); err != nil {
				log.Printf("Could not send welcome email to %s: %v", to, err)
			}
		}(user.Email, user.DisplayName, tenant.Name)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Registration successful",
		"token":   token,
		"user":    user.GetPublicProfile(),
		"tenant":  tenant,
	})
}

func Login(c *fiber.Ctx) error {
	input := new(LoginInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	db := database.GetDB()
	var user model.User
	if err := db.Where("email = ?", strings.ToLower(strings.TrimSpace(input.Email))).First(&user).Error; err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid credentials",
		})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid credentials",
		})
	}

	token, err := tokenFor(&user)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not generate token",
		})
	}

	history := model.LoginHistory{
		UserID:   user.ID,
		TenantID: user.TenantID,
		Device:   c.Get(fiber.HeaderUserAgent),
		IP:       c.IP(),
	}
	if err := db.Create(&history).Error; err != nil {
		log.Printf("Could not record login of user %d: %v", user.ID, err)
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  user.GetPublicProfile(),
	})
}

func GetMe(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	var user model.User
	if err := database.GetDB().Preload("Tenant").First(&user, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "User not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch user",
		})
	}

	return c.JSON(fiber.Map{
		"user":   user.GetPublicProfile(),
		"tenant": user.Tenant,
	})
}

func ChangePassword(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)
	input := new(ChangePasswordInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}
	if len(input.NewPassword) < minPasswordLength {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("Password must be at least %d characters", minPasswordLength),
		})
	}

	db := database.GetDB()
	var user model.User
	if err := db.First(&user, claims.UserID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.CurrentPassword)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Current password is incorrect",
		})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not hash password",
		})
	}
	if err := db.Model(&user).Update("password", string(hashed)).Error; err != nil {
		return serverError(c, "Could not update password", err)
	}

	if email.GlobalEmailService != nil {
		go func(to string) {
			if err := email.GlobalEmailService.SendPasswordChangedEmail(to); err != nil {
				log.Printf("Could not send password changed email to %s: %v", to, err)
			}
		}(user.Email)
	}

	return c.JSON(fiber.Map{"message": "Password updated successfully"})
}

// InviteUser creates a collaborator or client account with a temporary
// password and mails the credentials.
func InviteUser(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)
	input := new(InviteInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if input.Email == "" || !strings.Contains(input.Email, "@") {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "A valid email is required",
		})
	}
	switch input.Role {
	case jwt.RoleAdmin, jwt.RoleCollaborator, jwt.RoleClient:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Role must be admin, collaborator or client",
		})
	}

	db := database.GetDB()
	var clientID *uint
	if input.Role == jwt.RoleClient {
		var client model.Client
		if err := db.Where("id = ? AND tenant_id = ?", input.ClientID, claims.TenantID).First(&client).Error; err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "A client account must be linked to an existing client",
			})
		}
		clientID = &client.ID
	}

	var existing int64
	db.Model(&model.User{}).Where("email = ?", input.Email).Count(&existing)
	if existing > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Email already exists",
		})
	}

	tempPassword := strings.ReplaceAll(uuid.New().String(), "-", "")[:10]
	hashed, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not hash password",
		})
	}

	user := model.User{
		TenantID:    claims.TenantID,
		Email:       input.Email,
		Password:    string(hashed),
		Role:        input.Role,
		DisplayName: input.DisplayName,
		ClientID:    clientID,
	}
	if err := db.Create(&user).Error; err != nil {
		return serverError(c, "Could not create user", err)
	}

	if email.GlobalEmailService != nil {
		var tenant model.Tenant
		db.First(&tenant, claims.TenantID)
		data := email.InviteEmailData{
			TenantName:   tenant.Name,
			Role:         user.Role,
			Email:        user.Email,
			TempPassword: tempPassword,
			LoginURL:     AppBaseURL,
		}
		go func() {
			if err := email.GlobalEmailService.SendInviteEmail(data); err != nil {
				log.Printf("Could not send invite to %s: %v", data.Email, err)
			}
		}()
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":       "User invited successfully",
		"user":          user.GetPublicProfile(),
		"temp_password": tempPassword,
	})
}

func ListTeam(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	query := database.GetDB().Where("tenant_id = ?", claims.TenantID)
	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}

	var users []model.User
	if err := query.Order("created_at asc").Find(&users).Error; err != nil {
		return serverError(c, "Could not fetch team", err)
	}

	team := make([]map[string]interface{}, 0, len(users))
	for i := range users {
		team = append(team, users[i].GetPublicProfile())
	}
	return c.JSON(team)
}

// RemoveTeamMember deletes a collaborator or client account. Admins cannot
// remove themselves.
func RemoveTeamMember(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid user ID",
		})
	}
	if uint(id) == claims.UserID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "You cannot remove yourself",
		})
	}

	result := database.GetDB().Where("id = ? AND tenant_id = ?", id, claims.TenantID).Delete(&model.User{})
	if result.Error != nil {
		return serverError(c, "Could not remove user", result.Error)
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}
	return c.SendStatus(fiber.StatusNoContent)
}
