// Package activity builds the admin dashboard feed out of independent
// sources (renewals, check-ins, anamnesis forms, expiring subscriptions).
package activity

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

type Type string

const (
	TypeRenewal     Type = "renewal"
	TypeNewCheck    Type = "new_check"
	TypeNewAnamnesi Type = "new_anamnesi"
	TypeExpiring    Type = "expiring"
)

var tabs = map[Type]string{
	TypeRenewal:     "payments",
	TypeExpiring:    "payments",
	TypeNewCheck:    "check",
	TypeNewAnamnesi: "anamnesi",
}

// Tab is the client detail tab an item links to.
func (t Type) Tab() string {
	return tabs[t]
}

type Item struct {
	Type        Type      `json:"type"`
	ClientID    uint      `json:"client_id"`
	ClientName  string    `json:"client_name"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Tab         string    `json:"tab"`
}

// Key identifies an item across refreshes.
func (i Item) Key() string {
	return fmt.Sprintf("%s-%d-%d", i.Type, i.ClientID, i.Date.Unix())
}

// Feed keeps one slice per source. Replacing a source's slice never touches
// the others.
type Feed struct {
	mu     sync.Mutex
	slices map[Type][]Item
}

func NewFeed() *Feed {
	return &Feed{slices: make(map[Type][]Item)}
}

func (f *Feed) Replace(t Type, items []Item) {
	tagged := make([]Item, 0, len(items))
	for _, it := range items {
		it.Type = t
		if it.Tab == "" {
			it.Tab = t.Tab()
		}
		tagged = append(tagged, it)
	}

	f.mu.Lock()
	f.slices[t] = tagged
	f.mu.Unlock()
}

// Items returns the merged feed, deduplicated by key and newest first.
func (f *Feed) Items() []Item {
	f.mu.Lock()
	var all []Item
	for _, s := range f.slices {
		all = append(all, s...)
	}
	f.mu.Unlock()

	return Merge(all)
}

// Merge drops items with a repeated key and sorts by date descending.
func Merge(items []Item) []Item {
	seen := make(map[string]struct{}, len(items))
	out := make([]Item, 0, len(items))
	for _, it := range items {
		k := it.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, it)
	}

	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Date.Equal(out[b].Date) {
			return out[a].Key() < out[b].Key()
		}
		return out[a].Date.After(out[b].Date)
	})
	return out
}
