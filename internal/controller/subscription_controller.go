package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/checkout/session"
	stripesub "github.com/stripe/stripe-go/v74/subscription"
	"github.com/stripe/stripe-go/v74/webhook"
	"gorm.io/gorm"

	"ptmanager_backend/internal/model"
	"ptmanager_backend/pkg/config"
	"ptmanager_backend/pkg/database"
	"ptmanager_backend/pkg/email"
	"ptmanager_backend/pkg/subscription"
)

var stripeConfig config.StripeConfig

// fetchStripeSubscription is swapped in tests.
var fetchStripeSubscription = func(id string) (*stripe.Subscription, error) {
	return stripesub.Get(id, nil)
}

func InitSubscriptionController(cfg config.StripeConfig) {
	stripeConfig = cfg
	stripe.Key = cfg.SecretKey
}

func ListPlans(c *fiber.Ctx) error {
	var plans []model.Plan
	if err := database.GetDB().Order("price asc").Find(&plans).Error; err != nil {
		return serverError(c, "Could not fetch plans", err)
	}

	out := make([]fiber.Map, 0, len(plans))
	for _, p := range plans {
		limits := subscription.GetPlanLimits(subscription.PlanType(p.PlanType))
		features := []subscription.Feature{}
		for f, ok := range limits.AllowedFeatures {
			if ok {
				features = append(features, f)
			}
		}
		out = append(out, fiber.Map{
			"plan":              p,
			"max_clients":       limits.MaxClients,
			"max_landing_pages": limits.MaxLandingPages,
			"max_collaborators": limits.MaxCollaborators,
			"features":          features,
		})
	}
	return c.JSON(out)
}

func GetMySubscription(c *fiber.Ctx) error {
	claims := claimsOf(c)
	db := database.GetDB()

	var sub model.TenantSubscription
	if err := db.Where("tenant_id = ?", claims.TenantID).First(&sub).Error; err != nil {
		sub = model.TenantSubscription{TenantID: claims.TenantID, PlanType: string(subscription.FreePlan), Status: model.SubscriptionActive}
	}

	plan := subscription.FreePlan
	if sub.IsActive(time.Now()) {
		plan = subscription.PlanType(sub.PlanType)
	}
	return c.JSON(fiber.Map{
		"subscription": sub,
		"plan":         plan,
		"limits":       subscription.GetPlanLimits(plan),
	})
}

// Subscribe opens a Stripe checkout session for PRO or ELITE. The plan is
// activated by the webhook once the payment goes through.
func Subscribe(c *fiber.Ctx) error {
	claims := claimsOf(c)

	var input struct {
		PlanType string `json:"plan_type"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	var priceID string
	switch subscription.PlanType(input.PlanType) {
	case subscription.ProPlan:
		priceID = stripeConfig.PricePro
	case subscription.ElitePlan:
		priceID = stripeConfig.PriceElite
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown plan",
		})
	}
	if priceID == "" || stripe.Key == "" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Payments are not configured",
		})
	}

	tenantID := strconv.FormatUint(uint64(claims.TenantID), 10)
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		CustomerEmail:     stripe.String(claims.Email),
		ClientReferenceID: stripe.String(tenantID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(priceID), Quantity: stripe.Int64(1)},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{"tenant_id": tenantID},
		},
		SuccessURL: stripe.String(AppBaseURL + "/settings/plan?success=1"),
		CancelURL:  stripe.String(AppBaseURL + "/settings/plan?cancelled=1"),
	}

	s, err := session.New(params)
	if err != nil {
		return serverError(c, "Could not create checkout session", err)
	}
	return c.JSON(fiber.Map{"url": s.URL, "session_id": s.ID})
}

func CancelSubscription(c *fiber.Ctx) error {
	claims := claimsOf(c)
	db := database.GetDB()

	var sub model.TenantSubscription
	if err := db.Preload("Tenant").Where("tenant_id = ? AND status = ? AND stripe_sub_id <> ''",
		claims.TenantID, model.SubscriptionActive).First(&sub).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No active subscription found",
		})
	}

	if _, err := stripesub.Cancel(sub.StripeSubID, nil); err != nil {
		return serverError(c, "Could not cancel Stripe subscription", err)
	}

	sub.Status = model.SubscriptionCancelled
	if err := db.Save(&sub).Error; err != nil {
		return serverError(c, "Could not update subscription status", err)
	}
	sendPlanCancelled(&sub)

	return c.JSON(fiber.Map{
		"message": "Subscription cancelled successfully",
	})
}

func HandleStripeWebhook(c *fiber.Ctx) error {
	event, err := webhook.ConstructEvent(c.Body(), c.Get("Stripe-Signature"), stripeConfig.WebhookSecret)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid webhook signature",
		})
	}

	log.Printf("Processing Stripe webhook event: %s", event.Type)

	if err := applyStripeEvent(database.GetDB(), event); err != nil {
		if errors.Is(err, errBadPayload) {
			return c.Status(fiber.StatusBadRequest).Send(nil)
		}
		return serverError(c, "Could not process webhook", err)
	}
	return c.SendStatus(fiber.StatusOK)
}

var errBadPayload = errors.New("malformed event payload")

func applyStripeEvent(db *gorm.DB, event stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		var s stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
			return errBadPayload
		}
		if s.Subscription == nil || s.Subscription.ID == "" {
			return nil
		}
		tenantID, err := strconv.ParseUint(s.ClientReferenceID, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: client_reference_id %q", errBadPayload, s.ClientReferenceID)
		}
		sub, err := fetchStripeSubscription(s.Subscription.ID)
		if err != nil {
			return err
		}
		return syncTenantSubscription(db, uint(tenantID), sub, false)

	case "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return errBadPayload
		}

		var existing model.TenantSubscription
		tenantID := uint(0)
		if err := db.Where("stripe_sub_id = ?", sub.ID).First(&existing).Error; err == nil {
			tenantID = existing.TenantID
		} else if id, err := strconv.ParseUint(sub.Metadata["tenant_id"], 10, 64); err == nil {
			tenantID = uint(id)
		} else {
			log.Printf("Stripe subscription %s has no tenant, skipping", sub.ID)
			return nil
		}
		if event.Type == "customer.subscription.deleted" {
			sub.Status = stripe.SubscriptionStatusCanceled
		}
		return syncTenantSubscription(db, tenantID, &sub, existing.ID != 0)
	}
	return nil
}

func statusOf(s stripe.SubscriptionStatus) string {
	switch s {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		return model.SubscriptionActive
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid:
		return model.SubscriptionPastDue
	}
	return model.SubscriptionCancelled
}

// syncTenantSubscription writes the Stripe state onto the tenant's
// subscription and mails the owner when the plan starts, renews or ends.
func syncTenantSubscription(db *gorm.DB, tenantID uint, sub *stripe.Subscription, known bool) error {
	var priceID string
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		priceID = sub.Items.Data[0].Price.ID
	}

	var current model.TenantSubscription
	found := db.Where("tenant_id = ?", tenantID).First(&current).Error == nil
	previousStatus, previousEnd := current.Status, current.ExpiresAt

	current.TenantID = tenantID
	current.StripeSubID = sub.ID
	current.Status = statusOf(sub.Status)
	if priceID != "" {
		current.PlanType = string(subscription.DeterminePlanType(priceID, stripeConfig.PricePro, stripeConfig.PriceElite))
	}
	if current.PlanType == "" {
		current.PlanType = string(subscription.FreePlan)
	}
	if sub.Customer != nil {
		current.StripeCustomerID = sub.Customer.ID
	}
	if sub.CurrentPeriodEnd > 0 {
		end := time.Unix(sub.CurrentPeriodEnd, 0)
		current.ExpiresAt = &end
	}

	var err error
	if found {
		err = db.Save(&current).Error
	} else {
		err = db.Create(&current).Error
	}
	if err != nil {
		return err
	}
	if err := db.Preload("Tenant").First(&current, current.ID).Error; err != nil {
		return err
	}

	switch {
	case current.Status == model.SubscriptionCancelled && previousStatus != model.SubscriptionCancelled:
		sendPlanCancelled(&current)
	case current.Status == model.SubscriptionActive && (!known || previousStatus != model.SubscriptionActive):
		sendPlanStarted(&current, false)
	case current.Status == model.SubscriptionActive && previousEnd != nil && current.ExpiresAt != nil &&
		current.ExpiresAt.After(*previousEnd):
		sendPlanStarted(&current, true)
	}
	return nil
}

func planEmailData(sub *model.TenantSubscription) email.PlanEmailData {
	data := email.PlanEmailData{
		TenantName: sub.Tenant.Name,
		PlanName:   sub.PlanType,
	}
	if sub.ExpiresAt != nil {
		data.ExpiresAt = *sub.ExpiresAt
	}
	return data
}

func sendPlanStarted(sub *model.TenantSubscription, renewal bool) {
	if email.GlobalEmailService == nil || sub.Tenant.OwnerEmail == "" {
		return
	}
	data := planEmailData(sub)
	data.IsRenewal = renewal
	if err := email.GlobalEmailService.SendPlanStartedEmail(sub.Tenant.OwnerEmail, data); err != nil {
		log.Printf("Could not send plan email: %v", err)
	}
}

func sendPlanCancelled(sub *model.TenantSubscription) {
	if email.GlobalEmailService == nil || sub.Tenant.OwnerEmail == "" {
		return
	}
	if err := email.GlobalEmailService.SendPlanCancelledEmail(sub.Tenant.OwnerEmail, planEmailData(sub)); err != nil {
		log.Printf("Could not send plan cancellation email: %v", err)
	}
}
