package remote

import (
	"context"
	"log/slog"

	"github.com/lernio/pathway/internal/progress"
)

// Synchronizer reconciles the local progress store with the backend progress
// service. It never surfaces transport errors to callers: loads report
// absence, pushes journal their failure and move on. The learner can always
// continue locally with the network down.
type Synchronizer struct {
	svc     Service
	outbox  progress.Outbox
	events  progress.EventLogger
	session Session
}

// NewSynchronizer creates a synchronizer. outbox and events may be nil, in
// which case failed pushes are dropped after logging (the original
// behavior) and events are discarded.
func NewSynchronizer(svc Service, outbox progress.Outbox, events progress.EventLogger, session Session) *Synchronizer {
	if events == nil {
		events = progress.NopEventLogger{}
	}
	return &Synchronizer{
		svc:     svc,
		outbox:  outbox,
		events:  events,
		session: session,
	}
}

// Load attempts a remote fetch. Any failure (timeout, non-2xx, malformed
// payload) yields ok=false so the store can fall back to locally derivable
// data. A successful load also drains the push outbox: the backend is
// reachable again, so journaled writes are replayed before the fresh record
// is used.
func (s *Synchronizer) Load(ctx context.Context, pathID string) (progress.Record, bool) {
	rec, err := s.svc.FetchProgress(ctx, pathID)
	if err != nil {
		slog.Warn("progress load failed, continuing with local state",
			"path_id", pathID,
			"error", err,
		)
		return progress.Record{}, false
	}

	s.Flush(ctx, pathID)
	rec.LearnerID = s.session.LearnerID
	return rec, true
}

// PushLessonCompletion records a lesson completion remotely, best effort.
func (s *Synchronizer) PushLessonCompletion(ctx context.Context, pathID string, topicOrdinal, lessonOrdinal int) {
	err := s.svc.MarkLessonComplete(ctx, pathID, topicOrdinal, lessonOrdinal)
	if err == nil {
		return
	}
	s.journalFailure(PendingFromLesson(pathID, s.session.LearnerID, topicOrdinal, lessonOrdinal), err)
}

// PushQuizResult records a passed topic quiz remotely, best effort.
func (s *Synchronizer) PushQuizResult(ctx context.Context, pathID string, topicOrdinal int, score float64) {
	err := s.svc.MarkTopicComplete(ctx, pathID, topicOrdinal, score)
	if err == nil {
		return
	}
	s.journalFailure(PendingFromQuiz(pathID, s.session.LearnerID, topicOrdinal, score), err)
}

// Flush replays journaled pushes. Pushes that fail again stay queued.
func (s *Synchronizer) Flush(ctx context.Context, pathID string) {
	if s.outbox == nil {
		return
	}
	pending, err := s.outbox.Pending(pathID, s.session.LearnerID)
	if err != nil {
		slog.Warn("outbox read failed", "path_id", pathID, "error", err)
		return
	}

	for _, p := range pending {
		var pushErr error
		switch p.Kind {
		case progress.PushLesson:
			pushErr = s.svc.MarkLessonComplete(ctx, p.PathID, p.TopicOrdinal, p.LessonOrdinal)
		case progress.PushQuiz:
			pushErr = s.svc.MarkTopicComplete(ctx, p.PathID, p.TopicOrdinal, p.Score)
		default:
			slog.Warn("dropping outbox entry with unknown kind", "kind", p.Kind, "id", p.ID)
			_ = s.outbox.MarkDone(p.ID)
			continue
		}
		if pushErr != nil {
			slog.Warn("outbox replay failed, keeping entry",
				"id", p.ID,
				"kind", p.Kind,
				"error", pushErr,
			)
			continue
		}
		if err := s.outbox.MarkDone(p.ID); err != nil {
			slog.Warn("outbox mark-done failed", "id", p.ID, "error", err)
		}
	}
}

func (s *Synchronizer) journalFailure(push progress.PendingPush, cause error) {
	slog.Warn("progress push failed",
		"path_id", push.PathID,
		"kind", push.Kind,
		"topic", push.TopicOrdinal,
		"error", cause,
	)
	_ = s.events.LogEvent(progress.Event{
		PathID:    push.PathID,
		LearnerID: push.LearnerID,
		Type:      progress.EventPushFailed,
		Message:   cause.Error(),
		Data: map[string]any{
			"kind":  string(push.Kind),
			"topic": push.TopicOrdinal,
		},
	})
	if s.outbox == nil {
		return
	}
	if err := s.outbox.Enqueue(push); err != nil {
		slog.Warn("outbox enqueue failed, push dropped", "error", err)
	}
}

// PendingFromLesson builds the outbox entry for a lesson push.
func PendingFromLesson(pathID, learnerID string, topicOrdinal, lessonOrdinal int) progress.PendingPush {
	return progress.PendingPush{
		PathID:        pathID,
		LearnerID:     learnerID,
		Kind:          progress.PushLesson,
		TopicOrdinal:  topicOrdinal,
		LessonOrdinal: lessonOrdinal,
	}
}

// PendingFromQuiz builds the outbox entry for a quiz-result push.
func PendingFromQuiz(pathID, learnerID string, topicOrdinal int, score float64) progress.PendingPush {
	return progress.PendingPush{
		PathID:       pathID,
		LearnerID:    learnerID,
		Kind:         progress.PushQuiz,
		TopicOrdinal: topicOrdinal,
		Score:        score,
	}
}

// Reconcile merges a freshly loaded remote record with local in-session
// state. Remote completion is monotonically authoritative: topics the remote
// marks completed stay completed locally. Local completion is never erased
// by remote silence, and local lesson progress is preserved for topics the
// remote does not consider completed (the remote schema may not track
// partial lesson completion at all).
func Reconcile(local, rem progress.Record) progress.Record {
	out := local.Clone()

	for ordinal, remoteTP := range rem.Topics {
		localTP := out.Topic(ordinal)

		switch {
		case remoteTP.Completed() && !localTP.Completed():
			// Remote is authoritative once durably stored.
			out.Topics[ordinal] = cloneTopicProgress(remoteTP)
		case remoteTP.Completed() && localTP.Completed():
			// Both agree; keep the higher passing score.
			if remoteTP.QuizScore > localTP.QuizScore {
				localTP.QuizScore = remoteTP.QuizScore
				out.Topics[ordinal] = localTP
			}
		case localTP.Completed():
			// Local pass not yet durable remotely; keep it.
		default:
			// Neither side completed: keep the larger lesson set and the
			// best displayed score.
			if remoteTP.LessonCount() > localTP.LessonCount() {
				localTP.CompletedLessons = cloneLessonSet(remoteTP.CompletedLessons)
			}
			if remoteTP.QuizScore > localTP.QuizScore {
				localTP.QuizScore = remoteTP.QuizScore
			}
			if localTP.LessonCount() > 0 || localTP.QuizScore > 0 {
				out.Topics[ordinal] = localTP
			}
		}
	}

	if rem.LastTopic > out.LastTopic {
		out.LastTopic = rem.LastTopic
	}
	return out
}

func cloneTopicProgress(tp progress.TopicProgress) progress.TopicProgress {
	return progress.TopicProgress{
		CompletedLessons: cloneLessonSet(tp.CompletedLessons),
		QuizPassed:       tp.QuizPassed,
		QuizScore:        tp.QuizScore,
	}
}

func cloneLessonSet(in map[int]bool) map[int]bool {
	out := make(map[int]bool, len(in))
	for k := range in {
		out[k] = true
	}
	return out
}
