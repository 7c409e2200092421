package controller

import (
	"context"
	"math"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ptmanager_backend/internal/model"
	"ptmanager_backend/pkg/activity"
	"ptmanager_backend/pkg/commission"
	"ptmanager_backend/pkg/database"
	"ptmanager_backend/pkg/errtrack"
	"ptmanager_backend/pkg/money"
)

// Set at startup from the feature config.
var (
	FeedSourceTimeout = activity.DefaultSourceTimeout
	ExpiryWindowDays  = 15
)

type DashboardStats struct {
	TotalClients    int64       `json:"total_clients"`
	ActiveClients   int64       `json:"active_clients"`
	ArchivedClients int64       `json:"archived_clients"`
	ExpiringClients int64       `json:"expiring_clients"`
	RetentionRate   float64     `json:"retention_rate"`
	NewIncome       money.Cents `json:"new_income"`
	Renewals        money.Cents `json:"renewals"`
	MonthRevenue    money.Cents `json:"month_revenue"`
	LeadsThisMonth  int64       `json:"leads_this_month"`
	ClosedThisMonth int64       `json:"closed_this_month"`
	Month           string      `json:"month"`
}

// GetDashboardStats returns the KPIs of the admin dashboard for ?month
// (YYYY-MM, current month by default).
func GetDashboardStats(c *fiber.Ctx) error {
	claims := claimsOf(c)
	db := database.GetDB()
	now := time.Now()

	month := commission.MonthOf(now)
	if m := c.Query("month"); m != "" {
		parsed, err := commission.ParseMonth(m)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		month = parsed
	}

	stats := DashboardStats{Month: month.String()}
	clients := db.Model(&model.Client{}).Where("tenant_id = ?", claims.TenantID)
	clients.Session(&gorm.Session{}).Count(&stats.TotalClients)
	clients.Session(&gorm.Session{}).Where("is_archived = ? AND scadenza > ?", false, now).Count(&stats.ActiveClients)
	clients.Session(&gorm.Session{}).Where("is_archived = ?", true).Count(&stats.ArchivedClients)
	clients.Session(&gorm.Session{}).Where("is_archived = ? AND scadenza > ? AND scadenza <= ?",
		false, now, now.AddDate(0, 0, ExpiryWindowDays)).Count(&stats.ExpiringClients)

	payments, err := loadCommissionPayments(db, claims.TenantID)
	if err != nil {
		return serverError(c, "Could not fetch payments", err)
	}
	stats.NewIncome, stats.Renewals = commission.SplitIncome(payments, month)
	stats.MonthRevenue = commission.Revenue(payments, commission.Period{
		Kind: commission.PeriodMonth, Year: month.Year, Month: month.Month,
	})
	stats.RetentionRate = retentionRate(stats.ActiveClients, stats.TotalClients)

	start := month.Start(time.Local)
	leads := db.Model(&model.Lead{}).Where("tenant_id = ? AND created_at >= ? AND created_at < ?",
		claims.TenantID, start, start.AddDate(0, 1, 0))
	leads.Session(&gorm.Session{}).Count(&stats.LeadsThisMonth)
	leads.Session(&gorm.Session{}).Where("closed = ?", true).Count(&stats.ClosedThisMonth)

	return c.JSON(stats)
}

// retentionRate is round(active/total*100), 0 without clients.
func retentionRate(active, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(active) / float64(total) * 100)
}

// GetActivityFeed builds the dashboard feed. Check-ins and anamnesis forms
// are "new" relative to the previous visit, which is then moved to now.
func GetActivityFeed(c *fiber.Ctx) error {
	claims := claimsOf(c)
	db := database.GetDB()
	now := time.Now()

	var view model.DashboardView
	var lastViewed *time.Time
	if err := db.Where("user_id = ?", claims.UserID).First(&view).Error; err == nil {
		t := view.LastViewed
		lastViewed = &t
	}

	agg := activity.Aggregator{
		Sources: feedSources(db),
		Timeout: FeedSourceTimeout,
		OnError: func(t activity.Type, err error) {
			errtrack.CaptureError(err, map[string]string{"feed_source": string(t)})
		},
	}
	result := agg.Collect(c.Context(), activity.Window{
		TenantID:   claims.TenantID,
		LastViewed: lastViewed,
		Now:        now,
	})

	stamp := model.DashboardView{UserID: claims.UserID, LastViewed: now}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_viewed", "updated_at"}),
	}).Create(&stamp).Error; err != nil {
		return serverError(c, "Could not update dashboard view", err)
	}

	if result.Items == nil {
		result.Items = []activity.Item{}
	}
	return c.JSON(fiber.Map{
		"items":       result.Items,
		"degraded":    result.Degraded,
		"last_viewed": lastViewed,
	})
}

func feedSources(db *gorm.DB) []activity.Source {
	return []activity.Source{
		activity.SourceFunc{T: activity.TypeRenewal, Fn: func(ctx context.Context, w activity.Window) ([]activity.Item, error) {
			var rows []model.ClientPayment
			monthStart := time.Date(w.Now.Year(), w.Now.Month(), 1, 0, 0, 0, 0, w.Now.Location())
			if err := db.WithContext(ctx).Preload("Client").
				Where("tenant_id = ? AND payment_date >= ?", w.TenantID, monthStart).
				Find(&rows).Error; err != nil {
				return nil, err
			}
			out := make([]activity.PaymentRow, 0, len(rows))
			for _, p := range rows {
				out = append(out, activity.PaymentRow{
					ClientID:   p.ClientID,
					ClientName: p.Client.Name,
					Amount:     p.Amount,
					Duration:   p.Duration,
					Date:       p.PaymentDate,
					IsPast:     p.IsPast,
					OldClient:  p.Client.IsOldClient,
				})
			}
			return activity.RenewalItems(out, w.Now), nil
		}},
		activity.SourceFunc{T: activity.TypeNewCheck, Fn: func(ctx context.Context, w activity.Window) ([]activity.Item, error) {
			if w.LastViewed == nil {
				return nil, nil
			}
			var rows []model.Check
			if err := db.WithContext(ctx).Preload("Client").
				Where("tenant_id = ? AND created_at > ?", w.TenantID, *w.LastViewed).
				Find(&rows).Error; err != nil {
				return nil, err
			}
			out := make([]activity.EventRow, 0, len(rows))
			for _, r := range rows {
				out = append(out, activity.EventRow{ClientID: r.ClientID, ClientName: r.Client.Name, Date: r.CreatedAt})
			}
			return activity.SinceItems(activity.TypeNewCheck, out, w.LastViewed), nil
		}},
		activity.SourceFunc{T: activity.TypeNewAnamnesi, Fn: func(ctx context.Context, w activity.Window) ([]activity.Item, error) {
			if w.LastViewed == nil {
				return nil, nil
			}
			var rows []model.Anamnesi
			if err := db.WithContext(ctx).Preload("Client").
				Where("tenant_id = ? AND submitted_at > ?", w.TenantID, *w.LastViewed).
				Find(&rows).Error; err != nil {
				return nil, err
			}
			out := make([]activity.EventRow, 0, len(rows))
			for _, r := range rows {
				out = append(out, activity.EventRow{ClientID: r.ClientID, ClientName: r.Client.Name, Date: r.SubmittedAt})
			}
			return activity.SinceItems(activity.TypeNewAnamnesi, out, w.LastViewed), nil
		}},
		activity.SourceFunc{T: activity.TypeExpiring, Fn: func(ctx context.Context, w activity.Window) ([]activity.Item, error) {
			window := time.Duration(ExpiryWindowDays) * 24 * time.Hour
			var rows []model.Client
			if err := db.WithContext(ctx).
				Where("tenant_id = ? AND is_archived = ? AND scadenza > ? AND scadenza <= ?",
					w.TenantID, false, w.Now, w.Now.Add(window)).
				Find(&rows).Error; err != nil {
				return nil, err
			}
			out := make([]activity.ExpiryRow, 0, len(rows))
			for _, r := range rows {
				out = append(out, activity.ExpiryRow{ClientID: r.ID, ClientName: r.Name, Scadenza: *r.Scadenza})
			}
			return activity.ExpiringItems(out, w.Now, window), nil
		}},
	}
}
