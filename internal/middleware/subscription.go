package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"ptmanager_backend/internal/model"
	"ptmanager_backend/pkg/database"
	"ptmanager_backend/pkg/subscription"
	"ptmanager_backend/pkg/utils/jwt"
)

// TenantPlan is the plan the tenant is entitled to right now. Tenants
// without an active subscription are on FREE.
func TenantPlan(db *gorm.DB, tenantID uint) subscription.PlanType {
	var sub model.TenantSubscription
	if err := db.Where("tenant_id = ?", tenantID).First(&sub).Error; err != nil {
		return subscription.FreePlan
	}
	if !sub.IsActive(time.Now()) {
		return subscription.FreePlan
	}
	return subscription.PlanType(sub.PlanType)
}

func CheckFeatureAccess(feature subscription.Feature) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := c.Locals("user").(*jwt.Claims)

		if !subscription.CanUseFeature(TenantPlan(database.GetDB(), claims.TenantID), feature) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "This feature requires a higher subscription plan",
			})
		}

		return c.Next()
	}
}

func checkLimit(c *fiber.Ctx, what string, count func(db *gorm.DB, tenantID uint) int64, limit func(subscription.PlanLimits) int) error {
	claims := c.Locals("user").(*jwt.Claims)
	db := database.GetDB()

	limits := subscription.GetPlanLimits(TenantPlan(db, claims.TenantID))
	current := count(db, claims.TenantID)

	if !subscription.WithinLimit(current, limit(limits)) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":         "You have reached your " + what + " limit. Please upgrade your plan.",
			"current_count": current,
			"max_limit":     limit(limits),
		})
	}

	return c.Next()
}

func CheckClientLimit(c *fiber.Ctx) error {
	return checkLimit(c, "client",
		func(db *gorm.DB, tenantID uint) int64 {
			var n int64
			db.Model(&model.Client{}).Where("tenant_id = ? AND is_archived = ?", tenantID, false).Count(&n)
			return n
		},
		func(l subscription.PlanLimits) int { return l.MaxClients })
}

func CheckLandingPageLimit(c *fiber.Ctx) error {
	return checkLimit(c, "landing page",
		func(db *gorm.DB, tenantID uint) int64 {
			var n int64
			db.Model(&model.LandingPage{}).Where("tenant_id = ?", tenantID).Count(&n)
			return n
		},
		func(l subscription.PlanLimits) int { return l.MaxLandingPages })
}

// CheckCollaboratorLimit only applies to invites of the collaborator role.
func CheckCollaboratorLimit(c *fiber.Ctx) error {
	var body struct {
		Role string `json:"role"`
	}
	if err := c.BodyParser(&body); err != nil || body.Role != jwt.RoleCollaborator {
		return c.Next()
	}
	return checkLimit(c, "collaborator",
		func(db *gorm.DB, tenantID uint) int64 {
			var n int64
			db.Model(&model.User{}).Where("tenant_id = ? AND role = ?", tenantID, jwt.RoleCollaborator).Count(&n)
			return n
		},
		func(l subscription.PlanLimits) int { return l.MaxCollaborators })
}
