package quiz

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func threeQuestionQuiz() Quiz {
	return Quiz{
		ID:        "quiz-1",
		TopicName: "go basics",
		Questions: []Question{
			{ID: "q1", Type: QuestionMultipleChoice, Prompt: "pick one", Options: []string{"a", "b"}},
			{ID: "q2", Type: QuestionTrueFalse, Prompt: "true?", Options: []string{"true", "false"}},
			{ID: "q3", Type: QuestionShortAnswer, Prompt: "say it"},
		},
	}
}

func TestSession_HappyPath(t *testing.T) {
	provider := &MockProvider{
		QuizToReturn: threeQuestionQuiz(),
		ResultFn: func(quizID string, answers []string) (Result, error) {
			return Result{QuizID: quizID, Score: 85, Correct: 2, Total: 3}, nil
		},
	}

	var scored atomic.Int32
	s := NewSession(provider, "go basics", func(Result) { scored.Add(1) })

	if got := s.State(); got != StateLoading {
		t.Fatalf("initial state = %v, want loading", got)
	}
	if err := s.Start(t.Context()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if got := s.State(); got != StateActive {
		t.Fatalf("state after load = %v, want active", got)
	}

	if err := s.Answer(0, "a"); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if err := s.Answer(5, "x"); err == nil {
		t.Error("Answer() out of range should error")
	}

	result, err := s.Submit(t.Context())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if result.Score != 85 {
		t.Errorf("Score = %v, want 85", result.Score)
	}
	if got := s.State(); got != StateScored {
		t.Errorf("state after submit = %v, want scored", got)
	}

	// Callback runs on its own goroutine.
	waitFor(t, func() bool { return scored.Load() == 1 })
}

func TestSession_EmptyQuizIsLoadFailure(t *testing.T) {
	provider := &MockProvider{QuizToReturn: Quiz{ID: "empty"}}
	s := NewSession(provider, "go basics", nil)

	if err := s.Start(t.Context()); err == nil {
		t.Fatal("Start() should error on a quiz with no questions")
	}
	if got := s.State(); got != StateLoadFailed {
		t.Errorf("state = %v, want load_failed", got)
	}
	if _, ok := s.Quiz(); ok {
		t.Error("Quiz() ok = true after failed load")
	}
}

func TestSession_RetryAfterLoadFailure(t *testing.T) {
	provider := &MockProvider{FetchErr: errors.New("down")}
	s := NewSession(provider, "go basics", nil)

	if err := s.Start(t.Context()); err == nil {
		t.Fatal("Start() should fail")
	}

	provider.mu.Lock()
	provider.FetchErr = nil
	provider.QuizToReturn = threeQuestionQuiz()
	provider.mu.Unlock()

	if err := s.Retry(t.Context()); err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	if got := s.State(); got != StateActive {
		t.Errorf("state after retry = %v, want active", got)
	}
}

func TestSession_RetryAfterSubmitFailureKeepsAnswers(t *testing.T) {
	var submitted [][]string
	var submitErr error = errors.New("scoring down")
	var mu sync.Mutex

	provider := &MockProvider{
		QuizToReturn: threeQuestionQuiz(),
		ResultFn: func(quizID string, answers []string) (Result, error) {
			mu.Lock()
			defer mu.Unlock()
			submitted = append(submitted, answers)
			if submitErr != nil {
				return Result{}, submitErr
			}
			return Result{QuizID: quizID, Score: 100, Correct: 3, Total: 3}, nil
		},
	}

	s := NewSession(provider, "go basics", nil)
	if err := s.Start(t.Context()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	s.Answer(0, "a")
	s.Answer(1, "true")

	if _, err := s.Submit(t.Context()); err == nil {
		t.Fatal("Submit() should fail")
	}
	if got := s.State(); got != StateSubmitFailed {
		t.Fatalf("state = %v, want submit_failed", got)
	}

	mu.Lock()
	submitErr = nil
	mu.Unlock()

	if err := s.Retry(t.Context()); err != nil {
		t.Fatalf("Retry() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(submitted) != 2 {
		t.Fatalf("submissions = %d, want 2", len(submitted))
	}
	if submitted[1][0] != "a" || submitted[1][1] != "true" {
		t.Errorf("retried answers = %v, answers were not kept", submitted[1])
	}
}

func TestSession_ConcurrentSubmitScoresOnce(t *testing.T) {
	release := make(chan struct{})
	provider := &MockProvider{
		QuizToReturn: threeQuestionQuiz(),
		ResultFn: func(quizID string, answers []string) (Result, error) {
			<-release
			return Result{QuizID: quizID, Score: 90, Correct: 3, Total: 3}, nil
		},
	}

	var scored atomic.Int32
	s := NewSession(provider, "go basics", func(Result) { scored.Add(1) })
	if err := s.Start(t.Context()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	firstDone := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background())
		firstDone <- err
	}()

	// Second submit while the first is in flight must be rejected, not
	// queued.
	waitFor(t, func() bool { return s.State() == StateSubmitting })
	if _, err := s.Submit(t.Context()); !errors.Is(err, ErrSubmitInFlight) {
		t.Errorf("concurrent Submit() error = %v, want ErrSubmitInFlight", err)
	}

	close(release)
	if err := <-firstDone; err != nil {
		t.Fatalf("first Submit() error = %v", err)
	}

	// A submit after scoring returns the stored result without rescoring.
	result, err := s.Submit(t.Context())
	if err != nil {
		t.Fatalf("Submit() after scored error = %v", err)
	}
	if result.Score != 90 {
		t.Errorf("Score = %v, want 90", result.Score)
	}

	waitFor(t, func() bool { return scored.Load() > 0 })
	time.Sleep(20 * time.Millisecond)
	if got := scored.Load(); got != 1 {
		t.Errorf("scored callbacks = %d, want exactly 1", got)
	}
}

func TestSession_TimeLimitAutoSubmits(t *testing.T) {
	quiz := threeQuestionQuiz()
	quiz.TimeLimit = 1
	provider := &MockProvider{
		QuizToReturn: quiz,
		ResultFn: func(quizID string, answers []string) (Result, error) {
			return Result{QuizID: quizID, Score: 0, Correct: 0, Total: 3}, nil
		},
	}

	s := NewSession(provider, "go basics", nil)
	if err := s.Start(t.Context()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// Fire the expiry path directly rather than waiting out the timer.
	s.expire()

	if got := s.State(); got != StateScored {
		t.Errorf("state after expiry = %v, want scored", got)
	}
}

func TestSession_CloseStopsEverything(t *testing.T) {
	quiz := threeQuestionQuiz()
	quiz.TimeLimit = 1
	var scored atomic.Int32
	provider := &MockProvider{QuizToReturn: quiz}

	s := NewSession(provider, "go basics", func(Result) { scored.Add(1) })
	if err := s.Start(t.Context()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	s.Close()

	if got := s.State(); got != StateClosed {
		t.Errorf("state = %v, want closed", got)
	}
	if _, err := s.Submit(t.Context()); !errors.Is(err, ErrClosed) {
		t.Errorf("Submit() after Close error = %v, want ErrClosed", err)
	}
	if err := s.Answer(0, "a"); !errors.Is(err, ErrClosed) {
		t.Errorf("Answer() after Close error = %v, want ErrClosed", err)
	}

	// A late expiry must not resurrect the session or score anything.
	s.expire()
	if got := scored.Load(); got != 0 {
		t.Errorf("scored callbacks after Close = %d, want 0", got)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
