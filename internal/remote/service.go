// Package remote bridges the progression engine to the backend progress
// service. Reads are best-effort: any transport failure or malformed payload
// is reported as absence, never as an error the caller must branch on.
// Writes are fire-and-retry: a failed push is journaled to the outbox and
// replayed after the next successful remote contact.
package remote

import (
	"context"
	"sync"

	"github.com/lernio/pathway/internal/progress"
)

// Session identifies the learner making requests. It is passed explicitly
// into constructors; nothing in this package reads ambient global state.
type Session struct {
	LearnerID string
	Token     string
}

// Service is the remote progress API consumed by the synchronizer.
type Service interface {
	FetchProgress(ctx context.Context, pathID string) (progress.Record, error)
	MarkLessonComplete(ctx context.Context, pathID string, topicOrdinal, lessonOrdinal int) error
	MarkTopicComplete(ctx context.Context, pathID string, topicOrdinal int, score float64) error
}

// MockService is a test double for Service.
type MockService struct {
	mu sync.Mutex

	Record   progress.Record
	FetchErr error
	PushErr  error

	FetchCalls  int
	LessonCalls []PushedLesson
	TopicCalls  []PushedTopic
}

// PushedLesson captures one MarkLessonComplete invocation.
type PushedLesson struct {
	PathID        string
	TopicOrdinal  int
	LessonOrdinal int
}

// PushedTopic captures one MarkTopicComplete invocation.
type PushedTopic struct {
	PathID       string
	TopicOrdinal int
	Score        float64
}

func (m *MockService) FetchProgress(_ context.Context, pathID string) (progress.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FetchCalls++
	if m.FetchErr != nil {
		return progress.Record{}, m.FetchErr
	}
	rec := m.Record.Clone()
	rec.PathID = pathID
	return rec, nil
}

func (m *MockService) MarkLessonComplete(_ context.Context, pathID string, topicOrdinal, lessonOrdinal int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PushErr != nil {
		return m.PushErr
	}
	m.LessonCalls = append(m.LessonCalls, PushedLesson{pathID, topicOrdinal, lessonOrdinal})
	return nil
}

func (m *MockService) MarkTopicComplete(_ context.Context, pathID string, topicOrdinal int, score float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PushErr != nil {
		return m.PushErr
	}
	m.TopicCalls = append(m.TopicCalls, PushedTopic{pathID, topicOrdinal, score})
	return nil
}

// TopicCompletions returns the recorded MarkTopicComplete calls.
func (m *MockService) TopicCompletions() []PushedTopic {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PushedTopic{}, m.TopicCalls...)
}
