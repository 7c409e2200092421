package landing

import (
	"encoding/json"
	"fmt"
	"time"
)

// PageState is the editable part of a landing page.
type PageState struct {
	Title       string
	Description string
	Template    string
	IsPublished bool
	PublishedAt *time.Time
	Blocks      []Block
	Settings    map[string]any
}

// Patch overwrites the fields it carries and leaves the others alone.
// Applying the same patch twice gives the same state.
type Patch struct {
	Title       *string        `json:"title"`
	Description *string        `json:"description"`
	Template    *string        `json:"template"`
	IsPublished *bool          `json:"isPublished"`
	Blocks      []Block        `json:"blocks"`
	Settings    map[string]any `json:"settings"`
	// BlockSettings is keyed by block id, or by block type to hit the first
	// block of that type.
	BlockSettings map[string]map[string]any `json:"blockSettings"`
}

func ParsePatch(data []byte) (Patch, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Patch{}, fmt.Errorf("patch must be a JSON object: %w", err)
	}
	if b, ok := raw["blocks"]; ok {
		if _, err := ParseBlocks(b); err != nil {
			return Patch{}, err
		}
	}

	var p Patch
	if err := json.Unmarshal(data, &p); err != nil {
		return Patch{}, fmt.Errorf("invalid patch: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Patch{}, err
	}
	return p, nil
}

func (p Patch) Validate() error {
	if p.Title != nil {
		if err := ValidateTitle(*p.Title); err != nil {
			return err
		}
	}
	if p.Blocks != nil {
		if err := ValidateBlocks(p.Blocks); err != nil {
			return err
		}
	}
	if p.Template != nil {
		if _, ok := templates[*p.Template]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownTmpl, *p.Template)
		}
	}
	return nil
}

// Apply writes the patch into s. The first publish stamps PublishedAt.
func (p Patch) Apply(s *PageState, now time.Time) {
	if p.Title != nil {
		s.Title = *p.Title
	}
	if p.Description != nil {
		s.Description = *p.Description
	}
	if p.Template != nil {
		s.Template = *p.Template
	}
	if p.IsPublished != nil {
		s.IsPublished = *p.IsPublished
		if s.IsPublished && s.PublishedAt == nil {
			t := now
			s.PublishedAt = &t
		}
	}
	if p.Blocks != nil {
		s.Blocks = p.Blocks
	}
	if len(p.Settings) > 0 {
		if s.Settings == nil {
			s.Settings = map[string]any{}
		}
		for k, v := range p.Settings {
			s.Settings[k] = v
		}
	}

	for key, values := range p.BlockSettings {
		i := blockIndex(s.Blocks, key)
		if i < 0 {
			continue
		}
		if s.Blocks[i].Settings == nil {
			s.Blocks[i].Settings = map[string]any{}
		}
		for k, v := range values {
			s.Blocks[i].Settings[k] = v
		}
	}
}

func blockIndex(blocks []Block, key string) int {
	for i, b := range blocks {
		if b.ID == key {
			return i
		}
	}
	for i, b := range blocks {
		if string(b.Type) == key {
			return i
		}
	}
	return -1
}
