package model

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"ptmanager_backend/pkg/landing"
)

type LandingPage struct {
	gorm.Model
	TenantID    uint       `json:"tenant_id" gorm:"uniqueIndex:idx_landing_tenant_slug;not null"`
	Title       string     `json:"title" gorm:"not null"`
	Slug        string     `json:"slug" gorm:"uniqueIndex:idx_landing_tenant_slug;not null"`
	Description string     `json:"description" gorm:"type:text"`
	Template    string     `json:"template" gorm:"default:'blank'"`
	IsPublished bool       `json:"is_published" gorm:"default:false;index"`
	PublishedAt *time.Time `json:"published_at"`

	// Blocks is the ordered JSON array of {id, type, settings}.
	Blocks   datatypes.JSON `json:"blocks"`
	Settings datatypes.JSON `json:"settings"` // seo, tracking, styles, general

	Views          int64   `json:"views" gorm:"default:0"`
	UniqueVisitors int64   `json:"unique_visitors" gorm:"default:0"`
	Conversions    int64   `json:"conversions" gorm:"default:0"`
	ConversionRate float64 `json:"conversion_rate" gorm:"default:0"`
}

func (p *LandingPage) GetBlocks() ([]landing.Block, error) {
	blocks, err := landing.ParseBlocks(json.RawMessage(p.Blocks))
	if err != nil {
		return nil, fmt.Errorf("landing page %d: %w", p.ID, err)
	}
	return blocks, nil
}

func (p *LandingPage) State() (landing.PageState, error) {
	blocks, err := p.GetBlocks()
	if err != nil {
		return landing.PageState{}, err
	}
	settings := map[string]any{}
	if err := fromJSON(p.Settings, &settings); err != nil {
		return landing.PageState{}, fmt.Errorf("landing page %d settings: %w", p.ID, err)
	}
	return landing.PageState{
		Title:       p.Title,
		Description: p.Description,
		Template:    p.Template,
		IsPublished: p.IsPublished,
		PublishedAt: p.PublishedAt,
		Blocks:      blocks,
		Settings:    settings,
	}, nil
}

func (p *LandingPage) SetState(s landing.PageState) {
	p.Title = s.Title
	p.Description = s.Description
	p.Template = s.Template
	p.IsPublished = s.IsPublished
	p.PublishedAt = s.PublishedAt
	if s.Blocks == nil {
		s.Blocks = []landing.Block{}
	}
	p.Blocks = toJSON(s.Blocks)
	p.Settings = toJSON(s.Settings)
}

// ApplyPatch overwrites the fields carried by patch.
func (p *LandingPage) ApplyPatch(patch landing.Patch, now time.Time) error {
	state, err := p.State()
	if err != nil {
		return err
	}
	patch.Apply(&state, now)
	p.SetState(state)
	return nil
}

// Duplicate copies the page as an unpublished draft with zeroed analytics.
func (p *LandingPage) Duplicate(now time.Time) LandingPage {
	title := landing.DuplicateTitle(p.Title)
	return LandingPage{
		TenantID:    p.TenantID,
		Title:       title,
		Slug:        landing.GenerateSlug(title, now),
		Description: p.Description,
		Template:    p.Template,
		Blocks:      append(datatypes.JSON(nil), p.Blocks...),
		Settings:    append(datatypes.JSON(nil), p.Settings...),
	}
}

// PatchBySlug applies patch to the page found by tenant and page slug and
// saves it. Applying the same patch again leaves the stored page unchanged.
func PatchBySlug(db *gorm.DB, tenantSlug, pageSlug string, patch landing.Patch, now time.Time) (*LandingPage, error) {
	var page LandingPage
	err := db.Transaction(func(tx *gorm.DB) error {
		var tenant Tenant
		if err := tx.Where("slug = ?", tenantSlug).First(&tenant).Error; err != nil {
			return fmt.Errorf("tenant %q: %w", tenantSlug, err)
		}
		if err := tx.Where("tenant_id = ? AND slug = ?", tenant.ID, pageSlug).First(&page).Error; err != nil {
			return fmt.Errorf("page %q: %w", pageSlug, err)
		}
		if err := page.ApplyPatch(patch, now); err != nil {
			return err
		}
		return tx.Save(&page).Error
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}
