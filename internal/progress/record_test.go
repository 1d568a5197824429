package progress

import "testing"

func TestTopicProgress_Completed(t *testing.T) {
	tests := []struct {
		name string
		tp   TopicProgress
		want bool
	}{
		{"passed at threshold", TopicProgress{QuizPassed: true, QuizScore: 80.0}, true},
		{"passed above threshold", TopicProgress{QuizPassed: true, QuizScore: 100}, true},
		{"just below threshold", TopicProgress{QuizPassed: true, QuizScore: 79.999}, false},
		{"score without flag", TopicProgress{QuizPassed: false, QuizScore: 95}, false},
		{"flag without score", TopicProgress{QuizPassed: true, QuizScore: 0}, false},
		{"zero value", TopicProgress{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tp.Completed(); got != tt.want {
				t.Errorf("Completed() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTopicProgress_LessonCount(t *testing.T) {
	tp := TopicProgress{CompletedLessons: map[int]bool{0: true, 2: true}}
	if got := tp.LessonCount(); got != 2 {
		t.Errorf("LessonCount() = %d, want 2", got)
	}

	var empty TopicProgress
	if got := empty.LessonCount(); got != 0 {
		t.Errorf("LessonCount() on zero value = %d, want 0", got)
	}
}

func TestRecord_Clone(t *testing.T) {
	rec := NewRecord("go-basics", "learner-1")
	rec.Topics[0] = TopicProgress{
		CompletedLessons: map[int]bool{0: true},
		QuizPassed:       true,
		QuizScore:        90,
	}

	clone := rec.Clone()
	clone.Topics[0].CompletedLessons[1] = true
	clone.Topics[1] = TopicProgress{QuizScore: 50}

	if rec.Topics[0].LessonCount() != 1 {
		t.Error("mutating the clone's lesson set changed the original")
	}
	if _, ok := rec.Topics[1]; ok {
		t.Error("adding a topic to the clone changed the original")
	}
}

func TestRecord_CompletedCount(t *testing.T) {
	rec := NewRecord("go-basics", "learner-1")
	rec.Topics[0] = TopicProgress{QuizPassed: true, QuizScore: 85}
	rec.Topics[1] = TopicProgress{QuizPassed: true, QuizScore: 70} // below threshold
	rec.Topics[2] = TopicProgress{QuizScore: 90} // no flag

	if got := rec.CompletedCount(); got != 1 {
		t.Errorf("CompletedCount() = %d, want 1", got)
	}
}
