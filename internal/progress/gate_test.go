package progress

import "testing"

func completed(score float64) TopicProgress {
	return TopicProgress{QuizPassed: true, QuizScore: score}
}

func TestResumeIndex(t *testing.T) {
	tests := []struct {
		name       string
		topics     map[int]TopicProgress
		topicCount int
		want       int
	}{
		{"empty record", nil, 4, 0},
		{"first completed", map[int]TopicProgress{0: completed(85)}, 4, 1},
		{"two completed", map[int]TopicProgress{0: completed(85), 1: completed(90)}, 4, 2},
		{"all completed stays on last", map[int]TopicProgress{0: completed(85), 1: completed(90)}, 2, 1},
		{"gap caps at first incomplete", map[int]TopicProgress{0: completed(85), 2: completed(90)}, 4, 1},
		{"failed attempt does not advance", map[int]TopicProgress{0: {QuizScore: 60}}, 4, 0},
		{"single topic path", map[int]TopicProgress{0: completed(100)}, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := NewRecord("p", "l")
			for ord, tp := range tt.topics {
				rec.Topics[ord] = tp
			}
			if got := ResumeIndex(rec, tt.topicCount); got != tt.want {
				t.Errorf("ResumeIndex() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestGate(t *testing.T) {
	rec := NewRecord("p", "l")
	rec.Topics[0] = completed(85)
	rec.Topics[1] = TopicProgress{CompletedLessons: map[int]bool{0: true}}

	tests := []struct {
		name        string
		ordinal     int
		lessonCount int
		want        GateState
	}{
		{"completed topic", 0, 2, Completed},
		{"active topic with lessons left", 1, 2, Active},
		{"locked future topic", 2, 2, Locked},
		{"locked last topic", 3, 2, Locked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Gate(rec, tt.ordinal, tt.lessonCount, 4); got != tt.want {
				t.Errorf("Gate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGate_QuizPending(t *testing.T) {
	rec := NewRecord("p", "l")
	rec.Topics[0] = TopicProgress{CompletedLessons: map[int]bool{0: true, 1: true}}

	if got := Gate(rec, 0, 2, 3); got != QuizPending {
		t.Errorf("all lessons done: Gate() = %v, want QuizPending", got)
	}
}

func TestGate_ZeroLessonTopic(t *testing.T) {
	rec := NewRecord("p", "l")
	if got := Gate(rec, 0, 0, 3); got != QuizPending {
		t.Errorf("zero-lesson topic: Gate() = %v, want QuizPending", got)
	}
}

func TestGate_ExactlyOneUnlockedIncompleteTopic(t *testing.T) {
	rec := NewRecord("p", "l")
	rec.Topics[0] = completed(85)
	rec.Topics[1] = completed(90)

	unlocked := 0
	for ord := 0; ord < 5; ord++ {
		switch Gate(rec, ord, 2, 5) {
		case Active, QuizPending:
			unlocked++
		}
	}
	if unlocked != 1 {
		t.Errorf("unlocked incomplete topics = %d, want exactly 1", unlocked)
	}
}
