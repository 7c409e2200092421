package cron

import (
	"sync"
	"time"
)

// MinGap is the shortest interval between two runs of the same job.
const MinGap = 23 * time.Hour

// guard serializes a job and refuses a second run inside MinGap, so a
// restart or an overlapping schedule never sends the same digest twice.
type guard struct {
	mu   sync.Mutex
	last time.Time
}

func (g *guard) run(now time.Time, fn func()) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.last.IsZero() && now.Sub(g.last) < MinGap {
		return false
	}
	g.last = now
	fn()
	return true
}
