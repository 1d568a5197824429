package quiz

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const defaultQuestionCount = 5

// FallbackGenerator produces and grades quizzes locally. It is registered
// last in the provider chain so that a learner can finish a topic even when
// every assessment service is down. Questions rotate through the supported
// formats and are derived from the topic name alone.
type FallbackGenerator struct {
	mu       sync.Mutex
	answers  map[string][]string // quizID -> correct answers, question order
	count    int
	titleize cases.Caser
}

// FallbackOption configures a FallbackGenerator.
type FallbackOption func(*FallbackGenerator)

// WithQuestionCount sets how many questions generated quizzes carry.
func WithQuestionCount(n int) FallbackOption {
	return func(g *FallbackGenerator) {
		if n > 0 {
			g.count = n
		}
	}
}

// NewFallbackGenerator creates a local quiz generator.
func NewFallbackGenerator(opts ...FallbackOption) *FallbackGenerator {
	g := &FallbackGenerator{
		answers:  make(map[string][]string),
		count:    defaultQuestionCount,
		titleize: cases.Title(language.English),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *FallbackGenerator) FetchQuiz(_ context.Context, topicName string) (Quiz, error) {
	title := g.titleize.String(topicName)
	quizID := newQuizID()

	questions := make([]Question, g.count)
	answers := make([]string, g.count)
	for i := range questions {
		q, answer := g.buildQuestion(i, title)
		questions[i] = q
		answers[i] = answer
	}

	g.mu.Lock()
	g.answers[quizID] = answers
	g.mu.Unlock()

	timeLimit := 2 * g.count
	if timeLimit < 10 {
		timeLimit = 10
	}

	return Quiz{
		ID:        quizID,
		TopicName: topicName,
		Questions: questions,
		TimeLimit: timeLimit,
	}, nil
}

func (g *FallbackGenerator) SubmitQuiz(_ context.Context, quizID string, answers []string) (Result, error) {
	g.mu.Lock()
	correct, ok := g.answers[quizID]
	g.mu.Unlock()
	if !ok {
		return Result{}, fmt.Errorf("unknown quiz: %s", quizID)
	}

	hits := 0
	for i, want := range correct {
		if i < len(answers) && answers[i] == want {
			hits++
		}
	}
	return Result{
		QuizID:  quizID,
		Score:   scoreOf(hits, len(correct)),
		Correct: hits,
		Total:   len(correct),
	}, nil
}

func (g *FallbackGenerator) Name() string {
	return "local"
}

// buildQuestion returns the i-th question for a topic plus its correct
// answer. The rotation keeps generated quizzes from being a wall of
// identical multiple-choice prompts.
func (g *FallbackGenerator) buildQuestion(i int, title string) (Question, string) {
	id := fmt.Sprintf("q%d", i+1)
	rotation := []QuestionType{QuestionMultipleChoice, QuestionTrueFalse, QuestionShortAnswer}
	switch rotation[i%3] {
	case QuestionTrueFalse:
		return Question{
			ID:      id,
			Type:    QuestionTrueFalse,
			Prompt:  fmt.Sprintf("%s builds on the lessons covered earlier in this topic.", title),
			Options: []string{"true", "false"},
		}, "true"
	case QuestionShortAnswer:
		return Question{
			ID:     id,
			Type:   QuestionShortAnswer,
			Prompt: fmt.Sprintf("In one word, what is the subject of this topic? (%s)", title),
		}, title
	default:
		correct := fmt.Sprintf("A core concept of %s", title)
		return Question{
			ID:     id,
			Type:   QuestionMultipleChoice,
			Prompt: fmt.Sprintf("Which of the following best describes %s?", title),
			Options: []string{
				correct,
				"An unrelated subject",
				"A deprecated practice",
				"None of the above",
			},
		}, correct
	}
}

func newQuizID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return fmt.Sprintf("local-%x", b)
}
