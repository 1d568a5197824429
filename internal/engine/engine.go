// Package engine coordinates a learner's session on one learning path. It
// owns the progress store, the remote synchronizer, and the active quiz
// session, and serializes every state-changing command so that invariants
// hold no matter how UI events interleave.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lernio/pathway/internal/path"
	"github.com/lernio/pathway/internal/progress"
	"github.com/lernio/pathway/internal/quiz"
	"github.com/lernio/pathway/internal/remote"
)

const quizScoreTimeout = 10 * time.Second

// Notifier receives progress events for live delivery to clients.
// Implementations must not block.
type Notifier interface {
	Publish(event progress.Event)
}

// Config holds dependencies for the engine.
type Config struct {
	Path      *path.Path
	LearnerID string
	Sync      *remote.Synchronizer
	Quizzes   quiz.Provider
	Events    progress.EventLogger // defaults to NopEventLogger
	Notifier  Notifier             // optional
}

// Engine is the per-learner session coordinator for one path.
type Engine struct {
	mu sync.Mutex

	path      *path.Path
	learnerID string
	store     *progress.Store
	sync      *remote.Synchronizer
	quizzes   quiz.Provider
	events    progress.EventLogger
	notifier  Notifier

	session      *quiz.Session
	sessionTopic int
}

// New creates an engine. Call Start before issuing commands.
func New(cfg Config) (*Engine, error) {
	if cfg.Path == nil {
		return nil, fmt.Errorf("path is required")
	}
	if cfg.Sync == nil {
		return nil, fmt.Errorf("synchronizer is required")
	}
	if cfg.Quizzes == nil {
		return nil, fmt.Errorf("quiz provider is required")
	}
	events := cfg.Events
	if events == nil {
		events = progress.NopEventLogger{}
	}
	return &Engine{
		path:         cfg.Path,
		learnerID:    cfg.LearnerID,
		sync:         cfg.Sync,
		quizzes:      cfg.Quizzes,
		events:       events,
		notifier:     cfg.Notifier,
		sessionTopic: -1,
	}, nil
}

// Start initializes session state. Local state derived from the path
// definition is built first, then merged with the backend's record when
// the backend is reachable. A failed load is not an error: the learner
// starts from local state and queued pushes replay on the next successful
// sync.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	local := progress.NewStore(e.path, e.learnerID, nil, e.events)

	rem, ok := e.sync.Load(ctx, e.path.Key())
	if ok {
		merged := remote.Reconcile(local.Snapshot(), rem)
		local.Replace(merged)
	}

	e.store = local
	slog.Info("session started",
		"path_id", e.path.Key(),
		"learner_id", e.learnerID,
		"remote_loaded", ok,
		"completed_topics", local.Snapshot().CompletedCount(),
	)
	return nil
}

// StartTopic records the learner opening a topic. Locked topics are
// rejected; opening an unlocked topic updates the resume position.
func (e *Engine) StartTopic(ordinal int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.readyLocked(); err != nil {
		return err
	}

	state := e.gateLocked(ordinal)
	if state == progress.Locked {
		return fmt.Errorf("topic %d is locked", ordinal)
	}
	e.store.SetLastTopic(ordinal)
	return nil
}

// CompleteLesson marks a lesson done. The call is idempotent: repeating it
// changes nothing and pushes nothing. A first-time completion is pushed to
// the backend and may move the topic's gate to quiz-pending.
func (e *Engine) CompleteLesson(ctx context.Context, lessonID string) error {
	topicOrdinal, lessonOrdinal, err := path.ParseLessonID(lessonID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.readyLocked(); err != nil {
		return err
	}

	state := e.gateLocked(topicOrdinal)
	if state == progress.Locked {
		return fmt.Errorf("topic %d is locked", topicOrdinal)
	}

	if !e.store.ApplyLessonCompleted(topicOrdinal, lessonOrdinal) {
		return nil
	}

	e.sync.PushLessonCompletion(ctx, e.path.Key(), topicOrdinal, lessonOrdinal)
	e.emitLocked(progress.EventLessonComplete,
		fmt.Sprintf("lesson %s completed", lessonID),
		map[string]any{"topic": topicOrdinal, "lesson": lessonOrdinal},
	)
	return nil
}

// BeginQuiz opens a quiz attempt for a topic whose lessons are complete.
// Any previous quiz session is abandoned first; an abandoned attempt
// records nothing. The returned session is already started.
func (e *Engine) BeginQuiz(ctx context.Context, topicOrdinal int) (*quiz.Session, error) {
	e.mu.Lock()
	if err := e.readyLocked(); err != nil {
		e.mu.Unlock()
		return nil, err
	}

	state := e.gateLocked(topicOrdinal)
	if state != progress.QuizPending && state != progress.Completed {
		e.mu.Unlock()
		return nil, fmt.Errorf("quiz for topic %d is not available (gate %s)", topicOrdinal, state)
	}

	if e.session != nil {
		e.session.Close()
	}

	topic := e.path.Topics[topicOrdinal]
	session := quiz.NewSession(e.quizzes, topic.Name, func(result quiz.Result) {
		ctx, cancel := context.WithTimeout(context.Background(), quizScoreTimeout)
		defer cancel()
		e.CompleteQuiz(ctx, topicOrdinal, result.Score)
	})
	e.session = session
	e.sessionTopic = topicOrdinal
	e.mu.Unlock()

	if err := session.Start(ctx); err != nil {
		return session, err
	}
	return session, nil
}

// CompleteQuiz applies a graded quiz score. A passing score completes the
// topic exactly once and never reverts on later failed retakes. Passing
// outcomes are pushed to the backend: the completing one, and any retake
// that beats the stored score, so the authoritative remote record keeps
// the learner's best result. A failing score is recorded for display only.
func (e *Engine) CompleteQuiz(ctx context.Context, topicOrdinal int, score float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.readyLocked(); err != nil {
		return err
	}
	if topicOrdinal < 0 || topicOrdinal >= e.path.TopicCount() {
		return fmt.Errorf("topic %d out of range", topicOrdinal)
	}

	prev := e.store.Snapshot().Topic(topicOrdinal)
	passed := score >= progress.PassingScore
	newlyCompleted := e.store.ApplyQuizResult(topicOrdinal, passed, score)

	e.emitLocked(progress.EventQuizScored,
		fmt.Sprintf("quiz scored %.1f", score),
		map[string]any{"topic": topicOrdinal, "score": score, "passed": passed},
	)

	// passed && !newlyCompleted means the topic was already completed.
	improved := passed && !newlyCompleted && score > prev.QuizScore
	if !newlyCompleted && !improved {
		return nil
	}

	e.sync.PushQuizResult(ctx, e.path.Key(), topicOrdinal, score)
	if !newlyCompleted {
		return nil
	}

	e.emitLocked(progress.EventTopicComplete,
		fmt.Sprintf("topic %d completed", topicOrdinal),
		map[string]any{"topic": topicOrdinal, "score": score},
	)

	if progress.IsPathComplete(e.store.Snapshot(), e.path.TopicCount()) {
		final, _ := progress.FinalScore(e.store.Snapshot())
		e.emitLocked(progress.EventPathComplete,
			"learning path completed",
			map[string]any{"final_score": final},
		)
	}
	return nil
}

// AbandonQuiz closes the active quiz session, if any, without recording
// anything.
func (e *Engine) AbandonQuiz() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != nil {
		e.session.Close()
		e.session = nil
		e.sessionTopic = -1
	}
}

// Session returns the active quiz session and its topic ordinal. ok is
// false when no session is active.
func (e *Engine) Session() (*quiz.Session, int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil, 0, false
	}
	return e.session, e.sessionTopic, true
}

// Snapshot returns a copy of the current progress record.
func (e *Engine) Snapshot() (progress.Record, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.readyLocked(); err != nil {
		return progress.Record{}, err
	}
	return e.store.Snapshot(), nil
}

// GateStates returns the derived gate state of every topic, in ordinal
// order.
func (e *Engine) GateStates() ([]progress.GateState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.readyLocked(); err != nil {
		return nil, err
	}
	states := make([]progress.GateState, e.path.TopicCount())
	for i := range states {
		states[i] = e.gateLocked(i)
	}
	return states, nil
}

// ResumeIndex returns the topic the learner should land on.
func (e *Engine) ResumeIndex() (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.readyLocked(); err != nil {
		return 0, err
	}
	return progress.ResumeIndex(e.store.Snapshot(), e.path.TopicCount()), nil
}

// Flush replays queued backend pushes.
func (e *Engine) Flush(ctx context.Context) {
	e.sync.Flush(ctx, e.path.Key())
}

func (e *Engine) readyLocked() error {
	if e.store == nil {
		return fmt.Errorf("engine not started")
	}
	return nil
}

func (e *Engine) gateLocked(ordinal int) progress.GateState {
	lessonCount := 0
	if ordinal >= 0 && ordinal < len(e.path.Topics) {
		lessonCount = len(e.path.Topics[ordinal].Lessons)
	}
	return progress.Gate(e.store.Snapshot(), ordinal, lessonCount, e.path.TopicCount())
}

func (e *Engine) emitLocked(eventType, message string, data map[string]any) {
	ev := progress.Event{
		PathID:    e.path.Key(),
		LearnerID: e.learnerID,
		Type:      eventType,
		Message:   message,
		Data:      data,
	}
	if err := e.events.LogEvent(ev); err != nil {
		slog.Warn("event log failed", "type", eventType, "error", err)
	}
	if e.notifier != nil {
		e.notifier.Publish(ev)
	}
}
