package progress

// GateState is the derived state of one topic. Exactly one topic is Active
// or QuizPending at a time: the topic at the resume index. Everything the
// learner has completed is Completed; everything past the gate is Locked.
type GateState int

const (
	Locked GateState = iota
	Active
	QuizPending
	Completed
)

func (g GateState) String() string {
	switch g {
	case Locked:
		return "locked"
	case Active:
		return "active"
	case QuizPending:
		return "quiz_pending"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// ResumeIndex returns the topic ordinal a returning learner should be placed
// into: one past the highest completed topic, but never past the first
// incomplete topic and never past the last topic. Zero when nothing is
// completed.
func ResumeIndex(rec Record, topicCount int) int {
	if topicCount == 0 {
		return 0
	}

	maxCompleted := -1
	for ord, tp := range rec.Topics {
		if tp.Completed() && ord > maxCompleted {
			maxCompleted = ord
		}
	}
	if maxCompleted < 0 {
		return 0
	}

	idx := maxCompleted + 1

	// A record synced from elsewhere can have gaps; never resume beyond the
	// first topic that is not completed.
	firstIncomplete := topicCount
	for ord := 0; ord < topicCount; ord++ {
		if !rec.Topic(ord).Completed() {
			firstIncomplete = ord
			break
		}
	}
	if firstIncomplete < idx {
		idx = firstIncomplete
	}
	if idx > topicCount-1 {
		idx = topicCount - 1
	}
	return idx
}

// Gate derives the state of one topic from the record and the topic's static
// lesson count. Gate state is never stored; deriving it on demand keeps it
// from drifting out of sync with the record.
func Gate(rec Record, topicOrdinal, lessonCount, topicCount int) GateState {
	tp := rec.Topic(topicOrdinal)
	if tp.Completed() {
		return Completed
	}
	if topicOrdinal != ResumeIndex(rec, topicCount) {
		return Locked
	}
	// A topic with no lessons gates on its quiz immediately.
	if tp.LessonCount() >= lessonCount {
		return QuizPending
	}
	return Active
}
