package seed

import (
	"fmt"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"ptmanager_backend/internal/model"
	"ptmanager_backend/pkg/config"
	"ptmanager_backend/pkg/landing"
	"ptmanager_backend/pkg/money"
	"ptmanager_backend/pkg/subscription"
	"ptmanager_backend/pkg/utils/jwt"
)

// SeedPlans keeps the plan catalogue in sync with the limits in code.
func SeedPlans(db *gorm.DB, stripeCfg config.StripeConfig) error {
	catalogue := []struct {
		plan        subscription.PlanType
		name        string
		description string
		price       money.Cents
		priceID     string
	}{
		{subscription.FreePlan, "Free", "Per iniziare con i primi clienti", 0, ""},
		{subscription.ProPlan, "Pro", "Per coach con un team di setter", 2900, stripeCfg.PricePro},
		{subscription.ElitePlan, "Elite", "Per team senza limiti", 7900, stripeCfg.PriceElite},
	}

	for _, c := range catalogue {
		limits := subscription.GetPlanLimits(c.plan)
		plan := model.Plan{
			Name:            c.name,
			PlanType:        string(c.plan),
			Description:     c.description,
			Price:           c.price,
			Duration:        30,
			MaxClients:      limits.MaxClients,
			MaxLandingPages: limits.MaxLandingPages,
			StripePriceID:   c.priceID,
		}
		result := db.Where(model.Plan{PlanType: plan.PlanType}).
			Assign(plan).
			FirstOrCreate(&model.Plan{})
		if result.Error != nil {
			return fmt.Errorf("error creating plan %s: %w", c.name, result.Error)
		}
	}

	log.Println("Plans seeded successfully!")
	return nil
}

const (
	DemoTenantSlug = "demo-coach"
	DemoAdminEmail = "demo@ptmanager.app"
	DemoPassword   = "demo1234"
)

// SeedDemoTenant creates a tenant with an admin, a few clients, an employee
// and a published landing page. Running it again is a no-op.
func SeedDemoTenant(db *gorm.DB, now time.Time) error {
	var existing model.Tenant
	if err := db.Where("slug = ?", DemoTenantSlug).First(&existing).Error; err == nil {
		log.Println("Demo tenant already present")
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		tenant := model.Tenant{Name: "Demo Coach", Slug: DemoTenantSlug, OwnerEmail: DemoAdminEmail}
		if err := tx.Create(&tenant).Error; err != nil {
			return err
		}

		admin := model.User{
			TenantID:    tenant.ID,
			Email:       DemoAdminEmail,
			Password:    string(hashed),
			Role:        jwt.RoleAdmin,
			DisplayName: "Demo Coach",
		}
		if err := tx.Create(&admin).Error; err != nil {
			return err
		}

		expiring := now.AddDate(0, 0, 5)
		active := now.AddDate(0, 3, 0)
		clients := []model.Client{
			{TenantID: tenant.ID, Name: "Luca Bianchi", Email: "luca@example.com", Scadenza: &expiring, PlanType: "3 mesi"},
			{TenantID: tenant.ID, Name: "Sara Verdi", Email: "sara@example.com", Scadenza: &active, PlanType: "6 mesi"},
		}
		if err := tx.Create(&clients).Error; err != nil {
			return err
		}

		payments := []model.ClientPayment{
			{TenantID: tenant.ID, ClientID: clients[0].ID, Amount: 29000, Duration: "3 mesi", PaymentDate: now.AddDate(0, -2, 0)},
			{TenantID: tenant.ID, ClientID: clients[1].ID, Amount: 54000, Duration: "6 mesi", PaymentDate: now},
		}
		if err := tx.Create(&payments).Error; err != nil {
			return err
		}

		setter := model.Employee{TenantID: tenant.ID, Name: "Giulia", Type: "percentuale", PercentageBP: 1000}
		if err := tx.Create(&setter).Error; err != nil {
			return err
		}

		blocks, err := landing.TemplateBlocks("fitness")
		if err != nil {
			return err
		}
		page := model.LandingPage{TenantID: tenant.ID, Slug: landing.GenerateSlug("Trasforma il tuo corpo", now)}
		page.SetState(landing.PageState{
			Title:       "Trasforma il tuo corpo",
			Template:    "fitness",
			IsPublished: true,
			PublishedAt: &now,
			Blocks:      blocks,
			Settings:    map[string]any{},
		})
		if err := tx.Create(&page).Error; err != nil {
			return err
		}

		log.Printf("Demo tenant created (login %s / %s)", DemoAdminEmail, DemoPassword)
		return nil
	})
}
