// Package progress implements the learning-path progression engine: the
// authoritative in-session progress record, the per-topic gate derivation,
// completion math, and the session engine that serializes all mutation.
package progress

// PassingScore is the minimum quiz score (percent) that completes a topic.
// The quiz session and the topic gate must agree on this value.
const PassingScore = 80.0

// TopicProgress is the per-topic slice of a progress record.
type TopicProgress struct {
	// CompletedLessons is the set of completed lesson ordinals. Using a set
	// rather than a counter makes lesson completion idempotent.
	CompletedLessons map[int]bool `json:"completed_lessons"`
	QuizPassed       bool         `json:"quiz_passed"`
	QuizScore        float64      `json:"quiz_score"`
}

// LessonCount returns how many lessons of the topic are completed.
func (tp TopicProgress) LessonCount() int {
	return len(tp.CompletedLessons)
}

// Completed reports whether the topic counts as completed. The quiz-score
// rule is authoritative: a topic is done iff its quiz was passed at or above
// PassingScore. Lesson completion alone never completes a topic.
func (tp TopicProgress) Completed() bool {
	return tp.QuizPassed && tp.QuizScore >= PassingScore
}

// Record is one learner's progress through one learning path. It is the unit
// synchronized with the backend progress service.
type Record struct {
	PathID    string                `json:"path_id"`
	LearnerID string                `json:"learner_id"`
	Topics    map[int]TopicProgress `json:"topics"`
	LastTopic int                   `json:"last_topic"`
}

// NewRecord returns an all-incomplete record.
func NewRecord(pathID, learnerID string) Record {
	return Record{
		PathID:    pathID,
		LearnerID: learnerID,
		Topics:    make(map[int]TopicProgress),
	}
}

// Topic returns the progress slice for a topic ordinal, zero-valued if the
// topic has no recorded progress yet.
func (r Record) Topic(ordinal int) TopicProgress {
	tp, ok := r.Topics[ordinal]
	if !ok {
		return TopicProgress{}
	}
	return tp
}

// CompletedCount returns the number of completed topics.
func (r Record) CompletedCount() int {
	n := 0
	for _, tp := range r.Topics {
		if tp.Completed() {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of the record; mutations on the copy never leak
// back into the original.
func (r Record) Clone() Record {
	out := Record{
		PathID:    r.PathID,
		LearnerID: r.LearnerID,
		Topics:    make(map[int]TopicProgress, len(r.Topics)),
		LastTopic: r.LastTopic,
	}
	for ord, tp := range r.Topics {
		lessons := make(map[int]bool, len(tp.CompletedLessons))
		for l := range tp.CompletedLessons {
			lessons[l] = true
		}
		out.Topics[ord] = TopicProgress{
			CompletedLessons: lessons,
			QuizPassed:       tp.QuizPassed,
			QuizScore:        tp.QuizScore,
		}
	}
	return out
}
