package quiz

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/lernio/pathway/internal/platform/cache"
)

const quizCacheTTL = 15 * time.Minute

// CachingProvider wraps a remote Provider with a Redis/Dragonfly quiz
// cache. Repeat fetches for the same topic within the TTL skip the
// assessment service, which matters when a learner retries a failed quiz
// back to back. Cache failures degrade to the inner provider silently.
//
// Submissions always pass through: grading is stateful on the inner
// provider's side.
type CachingProvider struct {
	inner Provider
	cache *cache.Cache
}

// NewCachingProvider wraps inner with a quiz cache.
func NewCachingProvider(inner Provider, c *cache.Cache) *CachingProvider {
	return &CachingProvider{inner: inner, cache: c}
}

func (p *CachingProvider) FetchQuiz(ctx context.Context, topicName string) (Quiz, error) {
	key := "quiz:" + p.inner.Name() + ":" + topicName

	if data, err := p.cache.Client.Get(ctx, key).Bytes(); err == nil {
		var quiz Quiz
		if err := json.Unmarshal(data, &quiz); err == nil {
			return quiz, nil
		}
		slog.Warn("discarding corrupt cached quiz", "key", key)
	}

	quiz, err := p.inner.FetchQuiz(ctx, topicName)
	if err != nil {
		return Quiz{}, err
	}

	if data, err := json.Marshal(quiz); err == nil {
		if err := p.cache.Client.Set(ctx, key, data, quizCacheTTL).Err(); err != nil {
			slog.Warn("quiz cache write failed", "key", key, "error", err)
		}
	}
	return quiz, nil
}

func (p *CachingProvider) SubmitQuiz(ctx context.Context, quizID string, answers []string) (Result, error) {
	return p.inner.SubmitQuiz(ctx, quizID, answers)
}

func (p *CachingProvider) Name() string {
	return p.inner.Name()
}
