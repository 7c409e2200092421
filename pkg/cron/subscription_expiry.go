package cron

import (
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"ptmanager_backend/internal/model"
	"ptmanager_backend/pkg/email"
)

var planWarningDays = []int{7, 3}

// CheckExpiringPlans warns tenant owners whose plan ends in exactly 7 or 3
// days. It returns the number of warnings sent.
func CheckExpiringPlans(db *gorm.DB, now time.Time) (int, error) {
	log.Println("Checking for expiring tenant plans...")

	sent := 0
	for _, days := range planWarningDays {
		day := now.AddDate(0, 0, days)
		from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())

		var subs []model.TenantSubscription
		err := db.Where("expires_at >= ? AND expires_at < ? AND status = ?",
			from, from.AddDate(0, 0, 1), model.SubscriptionActive).
			Preload("Tenant").
			Find(&subs).Error
		if err != nil {
			return sent, fmt.Errorf("error fetching expiring plans: %w", err)
		}

		log.Printf("Found %d plans expiring in %d days", len(subs), days)

		if email.GlobalEmailService == nil {
			continue
		}
		for _, sub := range subs {
			err := email.GlobalEmailService.SendPlanExpiryWarning(sub.Tenant.OwnerEmail, email.PlanEmailData{
				TenantName: sub.Tenant.Name,
				PlanName:   sub.PlanType,
				ExpiresAt:  *sub.ExpiresAt,
				DaysLeft:   days,
			})
			if err != nil {
				log.Printf("Error sending expiry warning to %s: %v", sub.Tenant.OwnerEmail, err)
				continue
			}
			sent++
		}
	}
	return sent, nil
}
