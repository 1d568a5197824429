package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Event types recorded by the engine. Anomalies cover malformed remote data
// and out-of-range ordinals; the rest form the learner's activity journal.
const (
	EventAnomaly        = "anomaly"
	EventLessonComplete = "lesson.completed"
	EventTopicComplete  = "topic.completed"
	EventQuizScored     = "quiz.scored"
	EventPathComplete   = "path.completed"
	EventPushFailed     = "push.failed"
)

// Event is a progression event persisted to the progress_events table.
type Event struct {
	PathID    string
	LearnerID string
	Type      string
	Message   string
	Data      map[string]any
	CreatedAt time.Time
}

// EventLogger defines event logging behavior.
type EventLogger interface {
	LogEvent(event Event) error
}

// NopEventLogger ignores all events.
type NopEventLogger struct{}

func (NopEventLogger) LogEvent(Event) error {
	return nil
}

// MemoryEventLogger stores events in memory for tests.
type MemoryEventLogger struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryEventLogger() *MemoryEventLogger {
	return &MemoryEventLogger{
		events: []Event{},
	}
}

func (l *MemoryEventLogger) LogEvent(event Event) error {
	if event.Type == "" {
		return fmt.Errorf("event type is required")
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()

	return nil
}

func (l *MemoryEventLogger) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event{}, l.events...)
}

// CountByType returns how many logged events have the given type.
func (l *MemoryEventLogger) CountByType(eventType string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

// PostgresEventLogger inserts events into the progress_events table.
type PostgresEventLogger struct {
	pool *pgxpool.Pool
}

func NewPostgresEventLogger(pool *pgxpool.Pool) *PostgresEventLogger {
	return &PostgresEventLogger{pool: pool}
}

func (l *PostgresEventLogger) LogEvent(event Event) error {
	if l == nil || l.pool == nil {
		return fmt.Errorf("event logger pool is nil")
	}
	if event.Type == "" {
		return fmt.Errorf("event type is required")
	}
	if event.PathID == "" {
		return fmt.Errorf("path id is required")
	}

	payload := event.Data
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	_, err = l.pool.Exec(ctx,
		`INSERT INTO progress_events (path_id, learner_id, event_type, message, data, created_at)
		 VALUES ($1, $2, $3, $4, $5::jsonb, $6)`,
		event.PathID,
		event.LearnerID,
		event.Type,
		event.Message,
		string(data),
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert progress event: %w", err)
	}

	slog.Debug("progress event logged",
		"type", event.Type,
		"path_id", event.PathID,
		"learner_id", event.LearnerID,
	)
	return nil
}
