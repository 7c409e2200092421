package cron

import (
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"ptmanager_backend/internal/model"
	"ptmanager_backend/pkg/email"
)

// SendLeadDigests mails each tenant's admins the leads created today.
// It returns the number of tenants with at least one lead.
func SendLeadDigests(db *gorm.DB, now time.Time) (int, error) {
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var leads []model.Lead
	err := db.Where("created_at >= ? AND created_at < ?", from, from.AddDate(0, 0, 1)).
		Order("tenant_id, created_at").
		Find(&leads).Error
	if err != nil {
		return 0, fmt.Errorf("error fetching today's leads: %w", err)
	}

	byTenant := map[uint][]model.Lead{}
	for _, l := range leads {
		byTenant[l.TenantID] = append(byTenant[l.TenantID], l)
	}

	for tenantID, list := range byTenant {
		if email.GlobalEmailService == nil {
			break
		}

		data := email.LeadDigestData{Date: from}
		var tenant model.Tenant
		if err := db.First(&tenant, tenantID).Error; err == nil {
			data.TenantName = tenant.Name
		}
		for _, l := range list {
			row := email.LeadDigestRow{Name: l.Name, Source: l.Source, Collaborator: l.CollaboratorName}
			if l.HasBooking() {
				row.Booking = l.BookingDate + " " + l.BookingTime
			}
			data.Leads = append(data.Leads, row)
		}

		to, err := adminEmails(db, tenantID)
		if err != nil {
			log.Printf("Error loading admins of tenant %d: %v", tenantID, err)
			continue
		}
		if err := email.GlobalEmailService.SendLeadDigest(to, data); err != nil {
			log.Printf("Error sending lead digest to tenant %d: %v", tenantID, err)
		}
	}

	log.Printf("Lead digest: %d leads in %d tenants", len(leads), len(byTenant))
	return len(byTenant), nil
}
