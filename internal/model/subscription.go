package model

import (
	"time"

	"gorm.io/gorm"

	"ptmanager_backend/pkg/money"
)

// Plan is a purchasable tier of the product, seeded from pkg/seed.
type Plan struct {
	gorm.Model
	Name            string      `json:"name" gorm:"not null"`
	PlanType        string      `json:"plan_type" gorm:"uniqueIndex;not null"`
	Description     string      `json:"description"`
	Price           money.Cents `json:"price" gorm:"not null"`
	Duration        int         `json:"duration" gorm:"not null"` // days
	MaxClients      int         `json:"max_clients"`
	MaxLandingPages int         `json:"max_landing_pages"`
	StripePriceID   string      `json:"stripe_price_id"`
}

const (
	SubscriptionActive    = "active"
	SubscriptionCancelled = "cancelled"
	SubscriptionPastDue   = "past_due"
)

// TenantSubscription is the tenant's current plan. A tenant without one is on FREE.
type TenantSubscription struct {
	gorm.Model
	TenantID         uint       `json:"tenant_id" gorm:"uniqueIndex;not null"`
	PlanType         string     `json:"plan_type" gorm:"not null;default:'FREE'"`
	Status           string     `json:"status" gorm:"default:'active'"`
	StripeCustomerID string     `json:"stripe_customer_id"`
	StripeSubID      string     `json:"stripe_subscription_id" gorm:"index"`
	ExpiresAt        *time.Time `json:"expires_at"`

	Tenant Tenant `json:"-" gorm:"foreignKey:TenantID"`
}

func (s *TenantSubscription) IsActive(now time.Time) bool {
	if s.Status != SubscriptionActive {
		return false
	}
	return s.ExpiresAt == nil || s.ExpiresAt.After(now)
}
