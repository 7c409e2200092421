package cron

import (
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"ptmanager_backend/internal/model"
	"ptmanager_backend/pkg/activity"
	"ptmanager_backend/pkg/email"
	"ptmanager_backend/pkg/notification"
	"ptmanager_backend/pkg/utils/jwt"
)

const DefaultWindowDays = 15

// CheckExpiringClients notifies the admins of every tenant about clients
// whose subscription ends within windowDays, and mails them a digest.
// It returns the number of clients found.
func CheckExpiringClients(db *gorm.DB, now time.Time, windowDays int) (int, error) {
	log.Println("Checking for expiring clients...")

	var clients []model.Client
	err := db.Where("is_archived = ? AND scadenza > ? AND scadenza <= ?",
		false, now, now.AddDate(0, 0, windowDays)).
		Order("tenant_id, scadenza").
		Find(&clients).Error
	if err != nil {
		return 0, fmt.Errorf("error fetching expiring clients: %w", err)
	}

	byTenant := map[uint][]model.Client{}
	for _, c := range clients {
		byTenant[c.TenantID] = append(byTenant[c.TenantID], c)
	}

	for tenantID, list := range byTenant {
		digest := email.ExpiringClientsData{}
		var tenant model.Tenant
		if err := db.First(&tenant, tenantID).Error; err == nil {
			digest.TenantName = tenant.Name
		}

		for _, c := range list {
			days := activity.DaysLeft(*c.Scadenza, now)
			notification.NotifyAdmins(db, tenantID, notification.Input{
				Type: notification.Expiring,
				Body: fmt.Sprintf("%s: %s", c.Name, activity.ExpiryDescription(days)),
				Data: map[string]interface{}{"client_id": c.ID, "days_left": days, "tab": "payments"},
			})
			digest.Clients = append(digest.Clients, email.ExpiringClient{
				Name:     c.Name,
				Scadenza: *c.Scadenza,
				DaysLeft: days,
			})
		}

		if email.GlobalEmailService == nil {
			continue
		}
		to, err := adminEmails(db, tenantID)
		if err != nil {
			log.Printf("Error loading admins of tenant %d: %v", tenantID, err)
			continue
		}
		if err := email.GlobalEmailService.SendExpiringClientsEmail(to, digest); err != nil {
			log.Printf("Error sending expiring clients digest to tenant %d: %v", tenantID, err)
		}
	}

	log.Printf("Found %d expiring clients in %d tenants", len(clients), len(byTenant))
	return len(clients), nil
}

func adminEmails(db *gorm.DB, tenantID uint) ([]string, error) {
	var emails []string
	err := db.Model(&model.User{}).
		Where("tenant_id = ? AND role = ?", tenantID, jwt.RoleAdmin).
		Pluck("email", &emails).Error
	return emails, err
}
