package model

import (
	"time"

	"gorm.io/gorm"

	"ptmanager_backend/pkg/landing"
)

// LandingView is one visit of a public landing page.
type LandingView struct {
	gorm.Model
	LandingPageID uint      `json:"landing_page_id" gorm:"index;not null"`
	VisitorID     string    `json:"visitor_id" gorm:"index"` // browser-generated id, falls back to IP
	IP            string    `json:"ip"`
	UserAgent     string    `json:"user_agent"`
	ViewedAt      time.Time `json:"viewed_at" gorm:"index"`
	IsUnique      bool      `json:"is_unique"`
}

// BeforeCreate marks the view unique when the visitor never saw the page.
func (v *LandingView) BeforeCreate(tx *gorm.DB) error {
	if v.ViewedAt.IsZero() {
		v.ViewedAt = time.Now()
	}
	if v.VisitorID == "" {
		v.VisitorID = v.IP
	}

	var count int64
	if err := tx.Model(&LandingView{}).
		Where("landing_page_id = ? AND visitor_id = ?", v.LandingPageID, v.VisitorID).
		Count(&count).Error; err != nil {
		return err
	}
	v.IsUnique = count == 0
	return nil
}

// AfterCreate bumps the page counters and recomputes its conversion rate.
func (v *LandingView) AfterCreate(tx *gorm.DB) error {
	updates := map[string]interface{}{
		"views": gorm.Expr("views + ?", 1),
	}
	if v.IsUnique {
		updates["unique_visitors"] = gorm.Expr("unique_visitors + ?", 1)
	}
	if err := tx.Model(&LandingPage{}).Where("id = ?", v.LandingPageID).Updates(updates).Error; err != nil {
		return err
	}
	return RefreshConversionRate(tx, v.LandingPageID)
}

// RecordConversion adds one conversion to the page.
func RecordConversion(tx *gorm.DB, pageID uint) error {
	if err := tx.Model(&LandingPage{}).Where("id = ?", pageID).
		Update("conversions", gorm.Expr("conversions + ?", 1)).Error; err != nil {
		return err
	}
	return RefreshConversionRate(tx, pageID)
}

func RefreshConversionRate(tx *gorm.DB, pageID uint) error {
	var page LandingPage
	if err := tx.Select("id", "views", "conversions").First(&page, pageID).Error; err != nil {
		return err
	}
	return tx.Model(&LandingPage{}).Where("id = ?", pageID).
		Update("conversion_rate", landing.ConversionRate(page.Conversions, page.Views)).Error
}
