package path

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Backend payloads are not uniform: a topic's lessons may arrive as a list of
// plain strings or as structured sub-objects, under either the "subtopics" or
// the "lessons" key. Parsing flattens all of them into []Lesson with
// deterministic position-derived ids.

type pathPayload struct {
	ID          string          `json:"id"`
	GoalID      string          `json:"goal_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Difficulty  string          `json:"difficulty"`
	Duration    string          `json:"duration"`
	Topics      []topicPayload  `json:"topics"`
	Progress    json.RawMessage `json:"progress"` // ignored; progress is synchronized separately
}

type topicPayload struct {
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	TimeRequired string        `json:"time_required"`
	Links        []string      `json:"links"`
	Videos       []string      `json:"videos"`
	Subtopics    []lessonEntry `json:"subtopics"`
	Lessons      []lessonEntry `json:"lessons"`
	Completed    bool          `json:"completed"`
	QuizScore    float64       `json:"quiz_score"`
}

// lessonEntry accepts either a bare string or an object with name/description.
type lessonEntry struct {
	Name        string
	Description string
}

func (e *lessonEntry) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		e.Name = s
		return nil
	}
	var obj struct {
		Name        string `json:"name"`
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("lesson entry is neither string nor object: %w", err)
	}
	e.Name = obj.Name
	if e.Name == "" {
		e.Name = obj.Title
	}
	e.Description = obj.Description
	return nil
}

func (e *lessonEntry) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err == nil {
		e.Name = s
		return nil
	}
	var obj struct {
		Name        string `yaml:"name"`
		Title       string `yaml:"title"`
		Description string `yaml:"description"`
	}
	if err := unmarshal(&obj); err != nil {
		return fmt.Errorf("lesson entry is neither string nor mapping: %w", err)
	}
	e.Name = obj.Name
	if e.Name == "" {
		e.Name = obj.Title
	}
	e.Description = obj.Description
	return nil
}

// Parse decodes a learning-path payload from the backend into a Path.
// Topic ordinals are assigned from position and lessons are flattened from
// whichever key the payload used.
func Parse(data []byte) (*Path, error) {
	var payload pathPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode path payload: %w", err)
	}
	if len(payload.Topics) == 0 {
		return nil, fmt.Errorf("path payload has no topics")
	}

	id := payload.ID
	if id == "" {
		id = payload.GoalID
	}

	p := &Path{
		ID:          id,
		Name:        payload.Name,
		Description: payload.Description,
		Difficulty:  payload.Difficulty,
		Duration:    payload.Duration,
		Topics:      make([]Topic, 0, len(payload.Topics)),
	}
	for i, t := range payload.Topics {
		p.Topics = append(p.Topics, buildTopic(i, t))
	}
	return p, nil
}

func buildTopic(ordinal int, t topicPayload) Topic {
	entries := t.Subtopics
	if len(entries) == 0 {
		entries = t.Lessons
	}

	topic := Topic{
		Ordinal:         ordinal,
		Name:            t.Name,
		Description:     t.Description,
		TimeRequired:    t.TimeRequired,
		Links:           t.Links,
		Videos:          t.Videos,
		Lessons:         make([]Lesson, 0, len(entries)),
		LegacyCompleted: t.Completed,
		LegacyQuizScore: t.QuizScore,
	}
	if topic.Name == "" {
		topic.Name = fmt.Sprintf("Topic %d", ordinal+1)
	}
	for j, entry := range entries {
		topic.Lessons = append(topic.Lessons, buildLesson(ordinal, j, entry))
	}
	return topic
}

func buildLesson(topicOrdinal, lessonOrdinal int, entry lessonEntry) Lesson {
	title := strings.TrimSpace(entry.Name)
	if title == "" {
		title = fmt.Sprintf("Lesson %d", lessonOrdinal+1)
	}
	desc := entry.Description
	if desc == "" {
		desc = "Learn about " + title
	}
	return Lesson{
		ID:          LessonID(topicOrdinal, lessonOrdinal),
		Title:       title,
		Description: desc,
	}
}
