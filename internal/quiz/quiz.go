// Package quiz provides topic quiz retrieval, grading, and the in-session
// quiz lifecycle. Quizzes come from remote assessment providers with a
// local generator as the last resort, so a learner can always take a quiz.
package quiz

import (
	"context"
	"fmt"
	"sync"
)

// QuestionType enumerates supported question formats.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "mcq"
	QuestionTrueFalse      QuestionType = "true_false"
	QuestionShortAnswer    QuestionType = "short_answer"
)

// Question is a single quiz question. Options is empty for short-answer
// questions.
type Question struct {
	ID      string       `json:"id"`
	Type    QuestionType `json:"type"`
	Prompt  string       `json:"prompt"`
	Options []string     `json:"options,omitempty"`
}

// Quiz is a graded assessment for one topic. TimeLimit is in minutes; zero
// means untimed.
type Quiz struct {
	ID        string     `json:"id"`
	TopicName string     `json:"topicName"`
	Questions []Question `json:"questions"`
	TimeLimit int        `json:"timeLimit"`
}

// Result is the graded outcome of a submission.
type Result struct {
	QuizID  string  `json:"quizId"`
	Score   float64 `json:"score"`
	Correct int     `json:"correct"`
	Total   int     `json:"total"`
}

// Provider fetches quizzes and grades submissions. Implementations must be
// safe for concurrent use.
type Provider interface {
	// FetchQuiz returns a quiz for the named topic.
	FetchQuiz(ctx context.Context, topicName string) (Quiz, error)
	// SubmitQuiz grades the given answers, ordered to match the quiz's
	// question order. Missing answers are graded as wrong.
	SubmitQuiz(ctx context.Context, quizID string, answers []string) (Result, error)
	// Name identifies the provider in logs.
	Name() string
}

// MockProvider is a test double implementing Provider.
type MockProvider struct {
	mu sync.Mutex

	ProviderName string
	QuizToReturn Quiz
	FetchErr     error
	ResultFn     func(quizID string, answers []string) (Result, error)
	SubmitErr    error

	FetchCalls  []string
	SubmitCalls [][]string
}

func (m *MockProvider) FetchQuiz(_ context.Context, topicName string) (Quiz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FetchCalls = append(m.FetchCalls, topicName)
	if m.FetchErr != nil {
		return Quiz{}, m.FetchErr
	}
	return m.QuizToReturn, nil
}

func (m *MockProvider) SubmitQuiz(_ context.Context, quizID string, answers []string) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SubmitCalls = append(m.SubmitCalls, answers)
	if m.SubmitErr != nil {
		return Result{}, m.SubmitErr
	}
	if m.ResultFn != nil {
		return m.ResultFn(quizID, answers)
	}
	return Result{QuizID: quizID, Total: len(answers)}, nil
}

func (m *MockProvider) Name() string {
	if m.ProviderName != "" {
		return m.ProviderName
	}
	return "mock"
}

// scoreOf converts a correct/total pair to a 0-100 score.
func scoreOf(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(correct) / float64(total) * 100
}

// validateQuiz rejects quizzes that cannot be taken.
func validateQuiz(q Quiz) error {
	if len(q.Questions) == 0 {
		return fmt.Errorf("quiz %q has no questions", q.ID)
	}
	return nil
}
