package remote

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lernio/pathway/internal/progress"
)

// Router applies one retry/fallback policy across an ordered list of
// endpoints: try each endpoint in registration order, skip any that the
// failure gate currently holds down, and report the first success. Every
// Service method goes through the same policy, so load and push behave
// identically when the primary endpoint misbehaves.
type Router struct {
	services map[string]Service
	fallback []string // ordered fallback chain
	gate     *failureGate
	mu       sync.RWMutex
}

// NewRouter creates a progress-service router.
func NewRouter() *Router {
	return &Router{
		services: make(map[string]Service),
		gate:     newFailureGate(defaultFailureThreshold, defaultCooldown),
	}
}

// Register adds an endpoint to the fallback chain.
func (r *Router) Register(name string, svc Service) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[name] = svc
	r.fallback = append(r.fallback, name)
}

// HasService returns true if at least one endpoint is registered.
func (r *Router) HasService() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.services) > 0
}

func (r *Router) FetchProgress(ctx context.Context, pathID string) (progress.Record, error) {
	var rec progress.Record
	err := r.do(ctx, "fetch progress", func(ctx context.Context, svc Service) error {
		var err error
		rec, err = svc.FetchProgress(ctx, pathID)
		return err
	})
	return rec, err
}

func (r *Router) MarkLessonComplete(ctx context.Context, pathID string, topicOrdinal, lessonOrdinal int) error {
	return r.do(ctx, "mark lesson complete", func(ctx context.Context, svc Service) error {
		return svc.MarkLessonComplete(ctx, pathID, topicOrdinal, lessonOrdinal)
	})
}

func (r *Router) MarkTopicComplete(ctx context.Context, pathID string, topicOrdinal int, score float64) error {
	return r.do(ctx, "mark topic complete", func(ctx context.Context, svc Service) error {
		return svc.MarkTopicComplete(ctx, pathID, topicOrdinal, score)
	})
}

func (r *Router) do(ctx context.Context, op string, call func(context.Context, Service) error) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.fallback) == 0 {
		return fmt.Errorf("no progress endpoints registered")
	}

	var lastErr error
	for _, name := range r.fallback {
		if !r.gate.available(name) {
			slog.Debug("skipping cooled-down endpoint", "endpoint", name, "op", op)
			continue
		}

		err := call(ctx, r.services[name])
		if err != nil {
			r.gate.recordFailure(name)
			slog.Warn("progress endpoint failed, trying next",
				"endpoint", name,
				"op", op,
				"error", err,
			)
			lastErr = err
			continue
		}

		r.gate.recordSuccess(name)
		return nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("all endpoints cooling down")
	}
	return fmt.Errorf("all progress endpoints failed: %w", lastErr)
}

const (
	defaultFailureThreshold = 3
	defaultCooldown         = 30 * time.Second
)

// failureGate holds an endpoint down for a cooldown period after it fails
// repeatedly, so a dead primary stops adding latency to every operation.
type failureGate struct {
	mu        sync.Mutex
	failures  map[string]int
	retryAt   map[string]time.Time
	threshold int
	cooldown  time.Duration
	now       func() time.Time
}

func newFailureGate(threshold int, cooldown time.Duration) *failureGate {
	return &failureGate{
		failures:  make(map[string]int),
		retryAt:   make(map[string]time.Time),
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

func (g *failureGate) available(name string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	until, ok := g.retryAt[name]
	if !ok {
		return true
	}
	if g.now().After(until) {
		delete(g.retryAt, name)
		g.failures[name] = 0
		return true
	}
	return false
}

func (g *failureGate) recordFailure(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.failures[name]++
	if g.failures[name] >= g.threshold {
		g.retryAt[name] = g.now().Add(g.cooldown)
	}
}

func (g *failureGate) recordSuccess(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.failures[name] = 0
	delete(g.retryAt, name)
}
