package activity

import (
	"fmt"
	"math"
	"time"

	"ptmanager_backend/pkg/money"
)

const DefaultExpiryWindow = 15 * 24 * time.Hour

type PaymentRow struct {
	ClientID   uint
	ClientName string
	Amount     money.Cents
	Duration   string
	Date       time.Time
	IsPast     bool
	OldClient  bool
}

// RenewalItems keeps the payments received since the start of now's month.
func RenewalItems(rows []PaymentRow, now time.Time) []Item {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	var items []Item
	for _, r := range rows {
		if r.IsPast || r.OldClient || r.Date.Before(monthStart) {
			continue
		}
		items = append(items, Item{
			Type:        TypeRenewal,
			ClientID:    r.ClientID,
			ClientName:  r.ClientName,
			Description: fmt.Sprintf("Rinnovo di %s per %s", r.Duration, money.FormatEUR(r.Amount)),
			Date:        r.Date,
		})
	}
	return items
}

type EventRow struct {
	ClientID   uint
	ClientName string
	Date       time.Time
}

// SinceItems keeps rows strictly after lastViewed. Without a baseline
// nothing is new.
func SinceItems(t Type, rows []EventRow, lastViewed *time.Time) []Item {
	if lastViewed == nil {
		return nil
	}

	description := "Nuovo check-in caricato"
	if t == TypeNewAnamnesi {
		description = "Anamnesi compilata"
	}

	var items []Item
	for _, r := range rows {
		if !r.Date.After(*lastViewed) {
			continue
		}
		items = append(items, Item{
			Type:        t,
			ClientID:    r.ClientID,
			ClientName:  r.ClientName,
			Description: description,
			Date:        r.Date,
		})
	}
	return items
}

type ExpiryRow struct {
	ClientID   uint
	ClientName string
	Scadenza   time.Time
}

// ExpiringItems keeps clients whose subscription ends after now and within window.
func ExpiringItems(rows []ExpiryRow, now time.Time, window time.Duration) []Item {
	if window <= 0 {
		window = DefaultExpiryWindow
	}

	var items []Item
	for _, r := range rows {
		left := r.Scadenza.Sub(now)
		if left <= 0 || left > window {
			continue
		}
		items = append(items, Item{
			Type:        TypeExpiring,
			ClientID:    r.ClientID,
			ClientName:  r.ClientName,
			Description: ExpiryDescription(DaysLeft(r.Scadenza, now)),
			Date:        r.Scadenza,
		})
	}
	return items
}

// DaysLeft rounds the remaining time up to whole days.
func DaysLeft(scadenza, now time.Time) int {
	return int(math.Ceil(scadenza.Sub(now).Hours() / 24))
}

func ExpiryDescription(days int) string {
	if days == 1 {
		return "Abbonamento in scadenza tra 1 giorno"
	}
	return fmt.Sprintf("Abbonamento in scadenza tra %d giorni", days)
}
