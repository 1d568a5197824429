package quiz

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Chain tries providers in registration order until one succeeds. Register
// a FallbackGenerator last to make FetchQuiz effectively infallible.
//
// Submissions do not fall through: a quiz must be graded by the provider
// that issued it, so SubmitQuiz is routed to the provider recorded at fetch
// time.
type Chain struct {
	mu        sync.Mutex
	providers []Provider
	issuedBy  map[string]Provider // quizID -> issuing provider
}

// NewChain creates a provider chain.
func NewChain(providers ...Provider) *Chain {
	return &Chain{
		providers: providers,
		issuedBy:  make(map[string]Provider),
	}
}

// Register appends a provider to the chain.
func (c *Chain) Register(p Provider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.providers = append(c.providers, p)
}

func (c *Chain) FetchQuiz(ctx context.Context, topicName string) (Quiz, error) {
	c.mu.Lock()
	providers := make([]Provider, len(c.providers))
	copy(providers, c.providers)
	c.mu.Unlock()

	if len(providers) == 0 {
		return Quiz{}, fmt.Errorf("no quiz providers registered")
	}

	var lastErr error
	for _, p := range providers {
		quiz, err := p.FetchQuiz(ctx, topicName)
		if err != nil {
			slog.Warn("quiz fetch failed, trying next provider",
				"provider", p.Name(),
				"topic", topicName,
				"error", err,
			)
			lastErr = err
			continue
		}
		c.mu.Lock()
		c.issuedBy[quiz.ID] = p
		c.mu.Unlock()
		return quiz, nil
	}
	return Quiz{}, fmt.Errorf("all quiz providers failed: %w", lastErr)
}

func (c *Chain) SubmitQuiz(ctx context.Context, quizID string, answers []string) (Result, error) {
	c.mu.Lock()
	p, ok := c.issuedBy[quizID]
	c.mu.Unlock()
	if !ok {
		return Result{}, fmt.Errorf("quiz %s was not issued by this chain", quizID)
	}

	// The routing entry stays after grading: the cache can hand the same
	// quiz ID to several sessions, and each must be able to submit.
	return p.SubmitQuiz(ctx, quizID, answers)
}

func (c *Chain) Name() string {
	return "chain"
}
