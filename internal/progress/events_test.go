package progress

import "testing"

func TestMemoryEventLogger_LogEvent(t *testing.T) {
	logger := NewMemoryEventLogger()

	err := logger.LogEvent(Event{
		PathID:    "go-basics",
		LearnerID: "learner-1",
		Type:      EventLessonComplete,
		Data: map[string]any{
			"topic":  0,
			"lesson": 2,
		},
	})
	if err != nil {
		t.Fatalf("LogEvent() error = %v", err)
	}

	events := logger.Events()
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
	if events[0].Type != EventLessonComplete {
		t.Errorf("Type = %q, want %q", events[0].Type, EventLessonComplete)
	}
	if events[0].CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestMemoryEventLogger_CountByType(t *testing.T) {
	logger := NewMemoryEventLogger()
	logger.LogEvent(Event{PathID: "p", Type: EventQuizScored})
	logger.LogEvent(Event{PathID: "p", Type: EventQuizScored})
	logger.LogEvent(Event{PathID: "p", Type: EventTopicComplete})

	if got := logger.CountByType(EventQuizScored); got != 2 {
		t.Errorf("CountByType(quiz.scored) = %d, want 2", got)
	}
	if got := logger.CountByType(EventPathComplete); got != 0 {
		t.Errorf("CountByType(path.completed) = %d, want 0", got)
	}
}

func TestPostgresEventLogger_LogEvent_NilPool(t *testing.T) {
	logger := NewPostgresEventLogger(nil)

	err := logger.LogEvent(Event{
		PathID: "go-basics",
		Type:   EventTopicComplete,
	})
	if err == nil {
		t.Fatal("expected error for nil pool")
	}
}
