package progress

import (
	"sync"

	"github.com/lernio/pathway/internal/path"
)

// Store owns the progress record for one (learner, path) pair. All mutation
// goes through its API; readers only ever see snapshots. The store performs
// no I/O and its operations do not fail: malformed ordinals are clamped or
// ignored and reported through the event logger as anomalies.
type Store struct {
	mu     sync.RWMutex
	path   *path.Path
	record Record
	events EventLogger
}

// NewStore creates a store for the given path, seeded from a remote record
// when one is available. When remote is nil, progress is derived from any
// legacy per-topic completion flags embedded in the path payload itself, so a
// failed fetch still yields a usable (if conservative) starting point.
func NewStore(p *path.Path, learnerID string, remote *Record, events EventLogger) *Store {
	if events == nil {
		events = NopEventLogger{}
	}
	s := &Store{
		path:   p,
		events: events,
	}
	if remote != nil {
		s.record = remote.Clone()
		s.record.PathID = p.Key()
		s.record.LearnerID = learnerID
		s.clampRecord()
	} else {
		s.record = seedFromPath(p, learnerID)
	}
	return s
}

// seedFromPath derives a best-effort record from legacy completed flags.
// A legacy-completed topic with no quiz score is treated as passed at exactly
// the passing threshold, so it stays completed under the quiz-score rule.
func seedFromPath(p *path.Path, learnerID string) Record {
	rec := NewRecord(p.Key(), learnerID)
	for _, t := range p.Topics {
		if !t.LegacyCompleted {
			continue
		}
		score := t.LegacyQuizScore
		if score < PassingScore {
			score = PassingScore
		}
		lessons := make(map[int]bool, len(t.Lessons))
		for l := range t.Lessons {
			lessons[l] = true
		}
		rec.Topics[t.Ordinal] = TopicProgress{
			CompletedLessons: lessons,
			QuizPassed:       true,
			QuizScore:        score,
		}
	}
	rec.LastTopic = ResumeIndex(rec, p.TopicCount())
	return rec
}

// clampRecord drops topic entries outside the path's topic range and caps
// lesson sets at the topic's lesson count. Remote payloads are not trusted to
// be well-formed.
func (s *Store) clampRecord() {
	n := s.path.TopicCount()
	for ord, tp := range s.record.Topics {
		if ord < 0 || ord >= n {
			delete(s.record.Topics, ord)
			s.anomaly("topic ordinal out of range in remote record", ord, -1)
			continue
		}
		max := len(s.path.Topics[ord].Lessons)
		for l := range tp.CompletedLessons {
			if l < 0 || l >= max {
				delete(tp.CompletedLessons, l)
				s.anomaly("lesson ordinal out of range in remote record", ord, l)
			}
		}
	}
	if s.record.LastTopic < 0 {
		s.record.LastTopic = 0
	}
	if s.record.LastTopic >= n && n > 0 {
		s.record.LastTopic = n - 1
	}
}

// ApplyLessonCompleted marks one lesson complete. Completing an
// already-completed lesson is a no-op; the completed-lesson count never
// exceeds the topic's lesson count. Returns true if the lesson was newly
// marked.
func (s *Store) ApplyLessonCompleted(topicOrdinal, lessonOrdinal int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if topicOrdinal < 0 || topicOrdinal >= s.path.TopicCount() {
		s.anomaly("lesson completion for out-of-range topic", topicOrdinal, lessonOrdinal)
		return false
	}
	if lessonOrdinal < 0 || lessonOrdinal >= len(s.path.Topics[topicOrdinal].Lessons) {
		s.anomaly("completion for out-of-range lesson", topicOrdinal, lessonOrdinal)
		return false
	}

	tp := s.record.Topic(topicOrdinal)
	if tp.CompletedLessons == nil {
		tp.CompletedLessons = make(map[int]bool)
	}
	if tp.CompletedLessons[lessonOrdinal] {
		return false
	}
	tp.CompletedLessons[lessonOrdinal] = true
	s.record.Topics[topicOrdinal] = tp
	return true
}

// ApplyQuizResult records a quiz outcome. The passed transition is
// monotonic: once a topic is completed it stays completed even if a retake
// fails; a later passing attempt can only raise the stored score. A failing
// attempt on a not-yet-completed topic records the latest score for display.
// Returns true when the call completed the topic for the first time.
func (s *Store) ApplyQuizResult(topicOrdinal int, passed bool, score float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if topicOrdinal < 0 || topicOrdinal >= s.path.TopicCount() {
		s.anomaly("quiz result for out-of-range topic", topicOrdinal, -1)
		return false
	}

	tp := s.record.Topic(topicOrdinal)
	wasCompleted := tp.Completed()

	switch {
	case passed && score >= PassingScore:
		tp.QuizPassed = true
		if score > tp.QuizScore || !wasCompleted {
			tp.QuizScore = score
		}
	case wasCompleted:
		// Failed retake of a completed topic: nothing changes.
	default:
		tp.QuizScore = score
	}
	s.record.Topics[topicOrdinal] = tp
	return !wasCompleted && tp.Completed()
}

// SetLastTopic records the last-visited topic ordinal, clamped to range.
func (s *Store) SetLastTopic(ordinal int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.path.TopicCount()
	if ordinal < 0 || ordinal >= n {
		s.anomaly("last-visited topic out of range", ordinal, -1)
		if ordinal < 0 {
			ordinal = 0
		} else {
			ordinal = n - 1
		}
	}
	s.record.LastTopic = ordinal
}

// Replace swaps in a reconciled record, clamping it to the path shape.
// Used after a remote load merges with in-session state.
func (s *Store) Replace(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = rec.Clone()
	s.clampRecord()
}

// Snapshot returns an immutable copy of the record; callers never observe a
// record mid-mutation.
func (s *Store) Snapshot() Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.record.Clone()
}

func (s *Store) anomaly(msg string, topicOrdinal, lessonOrdinal int) {
	data := map[string]any{"topic": topicOrdinal}
	if lessonOrdinal >= 0 {
		data["lesson"] = lessonOrdinal
	}
	_ = s.events.LogEvent(Event{
		PathID:    s.record.PathID,
		LearnerID: s.record.LearnerID,
		Type:      EventAnomaly,
		Message:   msg,
		Data:      data,
	})
}
