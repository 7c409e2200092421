// Package leadstats aggregates lead outcomes per acquisition source.
package leadstats

import (
	"math"
	"sort"
	"strings"
)

const Unknown = "sconosciuta"

type Lead struct {
	Source string
	ShowUp bool
	Closed bool
}

type SourceStats struct {
	Source      string  `json:"source"`
	Total       int     `json:"total"`
	Share       float64 `json:"share"`        // % of all leads
	ShowUpRate  float64 `json:"show_up_rate"` // % of this source's leads
	ClosingRate float64 `json:"closing_rate"`
	ShowUps     int     `json:"show_ups"`
	Closed      int     `json:"closed"`
}

// Normalize lowercases and trims a source, then resolves aliases through
// mapping (keys compared lowercased). Empty sources become Unknown.
func Normalize(source string, mapping map[string]string) string {
	s := strings.ToLower(strings.TrimSpace(source))
	if s == "" {
		return Unknown
	}
	for alias, target := range mapping {
		if strings.ToLower(strings.TrimSpace(alias)) == s {
			return strings.ToLower(strings.TrimSpace(target))
		}
	}
	return s
}

func pct(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(whole)*1000) / 10
}

// BySource returns one row per source, largest first. Ties sort by name.
func BySource(leads []Lead, mapping map[string]string) []SourceStats {
	rows := map[string]*SourceStats{}
	for _, l := range leads {
		src := Normalize(l.Source, mapping)
		r, ok := rows[src]
		if !ok {
			r = &SourceStats{Source: src}
			rows[src] = r
		}
		r.Total++
		if l.ShowUp {
			r.ShowUps++
		}
		if l.Closed {
			r.Closed++
		}
	}

	out := make([]SourceStats, 0, len(rows))
	for _, r := range rows {
		r.Share = pct(r.Total, len(leads))
		r.ShowUpRate = pct(r.ShowUps, r.Total)
		r.ClosingRate = pct(r.Closed, r.Total)
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Source < out[j].Source
	})
	return out
}
