// Package landing holds the block model of landing pages: the registry of
// block types with their defaults, page templates, validation and the
// public lead capture.
package landing

import (
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
)

type BlockType string

const (
	BlockHero         BlockType = "hero"
	BlockFeatures     BlockType = "features"
	BlockTestimonials BlockType = "testimonials"
	BlockPricing      BlockType = "pricing"
	BlockCTA          BlockType = "cta"
	BlockForm         BlockType = "form"
	BlockQuiz         BlockType = "quiz"
	BlockFAQ          BlockType = "faq"
	BlockCountdown    BlockType = "countdown"
	BlockGallery      BlockType = "gallery"
	BlockVideo        BlockType = "video"
	BlockText         BlockType = "text"
	BlockDivider      BlockType = "divider"
	BlockSocialProof  BlockType = "socialProof"
)

// Block is one section of a page. Settings are free-form and stored as sent.
type Block struct {
	ID       string         `json:"id"`
	Type     BlockType      `json:"type"`
	Settings map[string]any `json:"settings"`
}

var (
	ErrTitleLength    = errors.New("title must be between 3 and 100 characters")
	ErrBlocksNotArray = errors.New("blocks must be an array")
	ErrUnknownBlock   = errors.New("unknown block type")
	ErrBlockID        = errors.New("every block needs a unique id")
	ErrUnknownTmpl    = errors.New("unknown template")
)

var registry = map[BlockType]func() map[string]any{
	BlockHero: func() map[string]any {
		return map[string]any{
			"title":           "Trasforma il tuo corpo",
			"subtitle":        "Il percorso su misura per te",
			"ctaText":         "Inizia ora",
			"ctaLink":         "#form",
			"backgroundImage": "",
			"alignment":       "center",
		}
	},
	BlockFeatures: func() map[string]any {
		return map[string]any{
			"title":   "Cosa ottieni",
			"columns": 3,
			"items": []any{
				map[string]any{"icon": "dumbbell", "title": "Allenamento", "description": "Schede personalizzate"},
				map[string]any{"icon": "apple", "title": "Alimentazione", "description": "Piano nutrizionale"},
				map[string]any{"icon": "chat", "title": "Supporto", "description": "Coach sempre disponibile"},
			},
		}
	},
	BlockTestimonials: func() map[string]any {
		return map[string]any{"title": "Dicono di noi", "items": []any{}, "layout": "grid"}
	},
	BlockPricing: func() map[string]any {
		return map[string]any{"title": "Scegli il tuo piano", "plans": []any{}, "showAnnual": false}
	},
	BlockCTA: func() map[string]any {
		return map[string]any{"title": "Pronto a iniziare?", "buttonText": "Prenota una call", "buttonLink": "#form"}
	},
	BlockForm: func() map[string]any {
		return map[string]any{
			"title":          "Richiedi informazioni",
			"fields":         []any{"name", "email", "phone"},
			"submitText":     "Invia",
			"successMessage": "Grazie! Ti contatteremo a breve.",
			"leadSource":     "landing_form",
		}
	},
	BlockQuiz: func() map[string]any {
		return map[string]any{
			"title":          "Scopri il percorso giusto per te",
			"questions":      []any{},
			"collectContact": true,
			"successMessage": "Grazie! Ti contatteremo a breve.",
			"leadSource":     "quiz_popup",
		}
	},
	BlockFAQ: func() map[string]any {
		return map[string]any{"title": "Domande frequenti", "items": []any{}}
	},
	BlockCountdown: func() map[string]any {
		return map[string]any{"title": "L'offerta scade tra", "endDate": "", "expiredText": "Offerta scaduta"}
	},
	BlockGallery: func() map[string]any {
		return map[string]any{"images": []any{}, "columns": 3}
	},
	BlockVideo: func() map[string]any {
		return map[string]any{"url": "", "autoplay": false, "muted": true}
	},
	BlockText: func() map[string]any {
		return map[string]any{"content": "", "alignment": "left"}
	},
	BlockDivider: func() map[string]any {
		return map[string]any{"style": "line", "spacing": 32}
	},
	BlockSocialProof: func() map[string]any {
		return map[string]any{"clients": 0, "rating": 5, "label": "clienti soddisfatti"}
	},
}

func IsKnown(t BlockType) bool {
	_, ok := registry[t]
	return ok
}

// Types lists every registered block type.
func Types() []BlockType {
	out := make([]BlockType, 0, len(registry))
	for t := range registry {
		out = append(out, t)
	}
	return out
}

func DefaultSettings(t BlockType) (map[string]any, error) {
	f, ok := registry[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBlock, t)
	}
	return f(), nil
}

func NewBlock(t BlockType) (Block, error) {
	settings, err := DefaultSettings(t)
	if err != nil {
		return Block{}, err
	}
	return Block{ID: uuid.New().String(), Type: t, Settings: settings}, nil
}

func ValidateTitle(title string) error {
	n := utf8.RuneCountInString(title)
	if n < 3 || n > 100 {
		return ErrTitleLength
	}
	return nil
}

// ParseBlocks decodes and checks a blocks payload. An empty payload is an
// empty page.
func ParseBlocks(raw json.RawMessage) ([]Block, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return []Block{}, nil
	}

	var blocks []Block
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return nil, ErrBlocksNotArray
	}
	if err := ValidateBlocks(blocks); err != nil {
		return nil, err
	}
	return blocks, nil
}

func ValidateBlocks(blocks []Block) error {
	seen := make(map[string]bool, len(blocks))
	for _, b := range blocks {
		if !IsKnown(b.Type) {
			return fmt.Errorf("%w: %q", ErrUnknownBlock, b.Type)
		}
		if b.ID == "" || seen[b.ID] {
			return ErrBlockID
		}
		seen[b.ID] = true
	}
	return nil
}

func FindBlock(blocks []Block, id string) (Block, bool) {
	for _, b := range blocks {
		if b.ID == id {
			return b, true
		}
	}
	return Block{}, false
}

var templates = map[string][]BlockType{
	"blank":    {},
	"fitness":  {BlockHero, BlockFeatures, BlockTestimonials, BlockPricing, BlockForm},
	"coaching": {BlockHero, BlockText, BlockFeatures, BlockFAQ, BlockCTA, BlockForm},
	"promo":    {BlockHero, BlockCountdown, BlockSocialProof, BlockQuiz, BlockFAQ},
}

// TemplateBlocks returns the starting blocks of a template, with fresh ids.
func TemplateBlocks(name string) ([]Block, error) {
	if name == "" {
		name = "blank"
	}
	types, ok := templates[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTmpl, name)
	}

	blocks := make([]Block, 0, len(types))
	for _, t := range types {
		b, err := NewBlock(t)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}
