// Package notify delivers progress events to connected clients (WebSocket
// today, more channels later). Delivery is fire-and-forget: a slow or dead
// client never blocks the progression engine.
package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/lernio/pathway/internal/progress"
)

// Channel is the interface each delivery mechanism must implement.
type Channel interface {
	Deliver(ctx context.Context, event progress.Event) error
	Close() error
}

// Gateway fans progress events out to registered channels.
type Gateway struct {
	mu       sync.RWMutex
	channels map[string]Channel
}

// NewGateway creates a new notification gateway.
func NewGateway() *Gateway {
	return &Gateway{
		channels: make(map[string]Channel),
	}
}

// Register adds a channel to the gateway.
func (g *Gateway) Register(name string, ch Channel) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.channels[name] = ch
	slog.Info("notify channel registered", "channel", name)
}

// Unregister removes and closes a channel.
func (g *Gateway) Unregister(name string) {
	g.mu.Lock()
	ch, ok := g.channels[name]
	delete(g.channels, name)
	g.mu.Unlock()

	if ok {
		if err := ch.Close(); err != nil {
			slog.Warn("notify channel close failed", "channel", name, "error", err)
		}
	}
}

// HasChannel returns true if the named channel is registered.
func (g *Gateway) HasChannel(name string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.channels[name]
	return ok
}

// Publish delivers an event to every registered channel. Failures are
// logged and skipped.
func (g *Gateway) Publish(event progress.Event) {
	g.mu.RLock()
	channels := make(map[string]Channel, len(g.channels))
	for name, ch := range g.channels {
		channels[name] = ch
	}
	g.mu.RUnlock()

	ctx := context.Background()
	for name, ch := range channels {
		if err := ch.Deliver(ctx, event); err != nil {
			slog.Warn("event delivery failed", "channel", name, "error", err)
		}
	}
}

// Close shuts down all registered channels.
func (g *Gateway) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for name, ch := range g.channels {
		if err := ch.Close(); err != nil {
			slog.Warn("notify channel close failed", "channel", name, "error", err)
		}
	}
	g.channels = make(map[string]Channel)
}

// MockChannel is a test double for Channel.
type MockChannel struct {
	mu        sync.Mutex
	Delivered []progress.Event
	Err       error
	Closed    bool
}

func (m *MockChannel) Deliver(_ context.Context, event progress.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Delivered = append(m.Delivered, event)
	return nil
}

func (m *MockChannel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// Events returns a copy of the delivered events.
func (m *MockChannel) Events() []progress.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]progress.Event, len(m.Delivered))
	copy(out, m.Delivered)
	return out
}
