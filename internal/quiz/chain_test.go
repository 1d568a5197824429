package quiz

import (
	"errors"
	"testing"
)

func TestChain_FallsThroughToNextProvider(t *testing.T) {
	broken := &MockProvider{ProviderName: "primary", FetchErr: errors.New("down")}
	chain := NewChain(broken, NewFallbackGenerator())

	q, err := chain.FetchQuiz(t.Context(), "go basics")
	if err != nil {
		t.Fatalf("FetchQuiz() error = %v", err)
	}
	if len(q.Questions) == 0 {
		t.Error("fallback quiz has no questions")
	}
	if len(broken.FetchCalls) != 1 {
		t.Errorf("primary fetch calls = %d, want 1", len(broken.FetchCalls))
	}
}

func TestChain_SubmitRoutesToIssuer(t *testing.T) {
	issuer := &MockProvider{
		ProviderName: "primary",
		QuizToReturn: Quiz{ID: "q-1", Questions: []Question{{ID: "q1"}}},
		ResultFn: func(quizID string, answers []string) (Result, error) {
			return Result{QuizID: quizID, Score: 80, Correct: 4, Total: 5}, nil
		},
	}
	other := &MockProvider{ProviderName: "backup"}
	chain := NewChain(issuer, other)

	q, err := chain.FetchQuiz(t.Context(), "go basics")
	if err != nil {
		t.Fatalf("FetchQuiz() error = %v", err)
	}

	result, err := chain.SubmitQuiz(t.Context(), q.ID, []string{"a"})
	if err != nil {
		t.Fatalf("SubmitQuiz() error = %v", err)
	}
	if result.Score != 80 {
		t.Errorf("Score = %v, want 80", result.Score)
	}
	if len(other.SubmitCalls) != 0 {
		t.Error("submission leaked to a provider that did not issue the quiz")
	}
}

func TestChain_SubmitSameQuizTwice(t *testing.T) {
	issuer := &MockProvider{
		ProviderName: "primary",
		QuizToReturn: Quiz{ID: "q-shared", Questions: []Question{{ID: "q1"}}},
		ResultFn: func(quizID string, answers []string) (Result, error) {
			return Result{QuizID: quizID, Score: 80, Correct: 4, Total: 5}, nil
		},
	}
	chain := NewChain(issuer)

	// Two sessions can hold the same quiz when the cache serves both, and
	// each submits independently.
	q, err := chain.FetchQuiz(t.Context(), "go basics")
	if err != nil {
		t.Fatalf("FetchQuiz() error = %v", err)
	}
	if _, err := chain.SubmitQuiz(t.Context(), q.ID, []string{"a"}); err != nil {
		t.Fatalf("first SubmitQuiz() error = %v", err)
	}
	if _, err := chain.SubmitQuiz(t.Context(), q.ID, []string{"b"}); err != nil {
		t.Fatalf("second SubmitQuiz() error = %v", err)
	}
	if len(issuer.SubmitCalls) != 2 {
		t.Errorf("issuer submit calls = %d, want 2", len(issuer.SubmitCalls))
	}
}

func TestChain_SubmitUnknownQuiz(t *testing.T) {
	chain := NewChain(NewFallbackGenerator())
	if _, err := chain.SubmitQuiz(t.Context(), "never-issued", nil); err == nil {
		t.Error("SubmitQuiz() for a quiz the chain never issued should error")
	}
}

func TestChain_AllProvidersFail(t *testing.T) {
	chain := NewChain(
		&MockProvider{FetchErr: errors.New("down")},
		&MockProvider{FetchErr: errors.New("also down")},
	)
	if _, err := chain.FetchQuiz(t.Context(), "go basics"); err == nil {
		t.Error("FetchQuiz() should error when every provider fails")
	}
}

func TestChain_NoProviders(t *testing.T) {
	if _, err := NewChain().FetchQuiz(t.Context(), "go basics"); err == nil {
		t.Error("FetchQuiz() with no providers should error")
	}
}
