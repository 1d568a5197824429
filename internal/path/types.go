package path

import (
	"fmt"
	"strconv"
	"strings"
)

// Path is an ordered sequence of gated topics. The structure is immutable
// once parsed; only the progress overlay kept elsewhere changes as the
// learner advances.
type Path struct {
	ID          string  `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	Description string  `json:"description" yaml:"description"`
	Difficulty  string  `json:"difficulty" yaml:"difficulty"`
	Duration    string  `json:"duration" yaml:"duration"`
	Topics      []Topic `json:"topics" yaml:"topics"`
}

// Topic is one gated unit of a path: its lessons plus a mandatory quiz.
// Ordinal is the topic's fixed position and defines ordering.
type Topic struct {
	Ordinal      int      `json:"topicIndex" yaml:"ordinal"`
	Name         string   `json:"name" yaml:"name"`
	Description  string   `json:"description" yaml:"description"`
	TimeRequired string   `json:"time_required" yaml:"time_required"`
	Links        []string `json:"links" yaml:"links"`
	Videos       []string `json:"videos" yaml:"videos"`
	Lessons      []Lesson `json:"lessons" yaml:"lessons"`

	// Legacy seed flags carried by older backend payloads. Used only to
	// derive a best-effort progress record when the progress service is
	// unreachable; the quiz-score rule is authoritative everywhere else.
	LegacyCompleted bool    `json:"completed" yaml:"completed"`
	LegacyQuizScore float64 `json:"quiz_score" yaml:"quiz_score"`
}

// Lesson is a single unit of study inside a topic. Its ID is derived from
// position, not content, so re-fetched payloads keep lesson identity stable.
type Lesson struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
}

// LessonID returns the deterministic id for a lesson position.
func LessonID(topicOrdinal, lessonOrdinal int) string {
	return fmt.Sprintf("%d-%d", topicOrdinal, lessonOrdinal)
}

// ParseLessonID splits a lesson id back into topic and lesson ordinals.
// The id must be exactly "t-l"; trailing text is rejected.
func ParseLessonID(id string) (topicOrdinal, lessonOrdinal int, err error) {
	topicPart, lessonPart, found := strings.Cut(id, "-")
	if !found {
		return 0, 0, fmt.Errorf("invalid lesson id %q", id)
	}
	topicOrdinal, err = strconv.Atoi(topicPart)
	if err != nil || topicOrdinal < 0 {
		return 0, 0, fmt.Errorf("invalid lesson id %q: bad topic ordinal", id)
	}
	lessonOrdinal, err = strconv.Atoi(lessonPart)
	if err != nil || lessonOrdinal < 0 {
		return 0, 0, fmt.Errorf("invalid lesson id %q: bad lesson ordinal", id)
	}
	return topicOrdinal, lessonOrdinal, nil
}

// Key returns the identity used when synchronizing progress. The id is
// preferred; the name is a legacy fallback key for paths created before
// ids were assigned.
func (p *Path) Key() string {
	if p.ID != "" {
		return p.ID
	}
	return p.Name
}

// TopicCount returns the number of topics in the path.
func (p *Path) TopicCount() int {
	return len(p.Topics)
}
