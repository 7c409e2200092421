package activity

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const DefaultSourceTimeout = 8 * time.Second

// Window is what every source is asked about.
type Window struct {
	TenantID uint
	// LastViewed is nil the first time the dashboard is opened.
	LastViewed *time.Time
	Now        time.Time
}

type Source interface {
	Type() Type
	Fetch(ctx context.Context, w Window) ([]Item, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc struct {
	T  Type
	Fn func(ctx context.Context, w Window) ([]Item, error)
}

func (s SourceFunc) Type() Type { return s.T }

func (s SourceFunc) Fetch(ctx context.Context, w Window) ([]Item, error) {
	return s.Fn(ctx, w)
}

var ErrSourceTimeout = errors.New("activity source timed out")

type Result struct {
	Items    []Item `json:"items"`
	Degraded []Type `json:"degraded"`
}

// Aggregator queries all sources concurrently. A source that fails or does
// not answer within Timeout is dropped from the result and listed as degraded.
type Aggregator struct {
	Sources []Source
	Timeout time.Duration
	// OnError is called once per failed source.
	OnError func(t Type, err error)
}

func (a *Aggregator) Collect(ctx context.Context, w Window) Result {
	timeout := a.Timeout
	if timeout <= 0 {
		timeout = DefaultSourceTimeout
	}

	feed := NewFeed()
	var (
		mu       sync.Mutex
		degraded []Type
	)

	var g errgroup.Group
	for _, src := range a.Sources {
		src := src
		g.Go(func() error {
			items, err := fetchWithTimeout(ctx, src, w, timeout)
			if err != nil {
				log.Printf("Activity source %s failed for tenant %d: %v", src.Type(), w.TenantID, err)
				if a.OnError != nil {
					a.OnError(src.Type(), err)
				}
				mu.Lock()
				degraded = append(degraded, src.Type())
				mu.Unlock()
				return nil
			}
			feed.Replace(src.Type(), items)
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(degraded, func(i, j int) bool { return degraded[i] < degraded[j] })
	return Result{Items: feed.Items(), Degraded: degraded}
}

type fetchResult struct {
	items []Item
	err   error
}

func fetchWithTimeout(ctx context.Context, src Source, w Window, timeout time.Duration) ([]Item, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan fetchResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fetchResult{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		items, err := src.Fetch(ctx, w)
		done <- fetchResult{items: items, err: err}
	}()

	select {
	case res := <-done:
		return res.items, res.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrSourceTimeout, ctx.Err())
	}
}
