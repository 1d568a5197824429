package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lernio/pathway/internal/progress"
)

// Client is the HTTP implementation of Service against one backend endpoint.
type Client struct {
	baseURL string
	session Session
	client  *http.Client
	name    string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithName sets the endpoint name used in logs (for multi-endpoint use).
func WithName(name string) ClientOption {
	return func(c *Client) {
		c.name = name
	}
}

// NewClient creates a progress-service client for one base URL. The session
// is fixed at construction; every request carries its learner id and token.
func NewClient(baseURL string, session Session, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		session: session,
		client:  &http.Client{Timeout: 10 * time.Second},
		name:    "progress",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// progressPayload mirrors the backend's progress response.
type progressPayload struct {
	CompletedTopics []int                           `json:"completedTopics"`
	TopicProgress   map[string]topicProgressPayload `json:"topicProgress"`
	LastTopicIndex  int                             `json:"lastTopicIndex"`
}

type topicProgressPayload struct {
	CompletedLessons int     `json:"completedLessons"`
	QuizPassed       bool    `json:"quizPassed"`
	QuizScore        float64 `json:"quizScore"`
}

// FetchProgress retrieves the learner's record for a path. The payload is
// schema-validated before decoding; a shape the backend never promised is an
// error here and becomes absence at the synchronizer.
func (c *Client) FetchProgress(ctx context.Context, pathID string) (progress.Record, error) {
	url := fmt.Sprintf("%s/learning-path/progress/%s?learner=%s", c.baseURL, pathID, c.session.LearnerID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return progress.Record{}, fmt.Errorf("create request: %w", err)
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return progress.Record{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return progress.Record{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return progress.Record{}, fmt.Errorf("progress api error (status %d): %s", resp.StatusCode, string(body))
	}

	if err := validateProgressPayload(body); err != nil {
		return progress.Record{}, fmt.Errorf("malformed progress payload: %w", err)
	}

	var payload progressPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return progress.Record{}, fmt.Errorf("unmarshal response: %w", err)
	}

	return recordFromPayload(pathID, c.session.LearnerID, payload), nil
}

// recordFromPayload converts the wire shape into a Record. The remote schema
// tracks a lesson count, not lesson identity, so a count of n marks lessons
// 0..n-1 complete. Topics listed in completedTopics are completed even when
// topicProgress has no entry for them.
func recordFromPayload(pathID, learnerID string, payload progressPayload) progress.Record {
	rec := progress.NewRecord(pathID, learnerID)
	rec.LastTopic = payload.LastTopicIndex

	for key, tp := range payload.TopicProgress {
		var ordinal int
		if _, err := fmt.Sscanf(key, "%d", &ordinal); err != nil {
			continue
		}
		lessons := make(map[int]bool, tp.CompletedLessons)
		for l := 0; l < tp.CompletedLessons; l++ {
			lessons[l] = true
		}
		rec.Topics[ordinal] = progress.TopicProgress{
			CompletedLessons: lessons,
			QuizPassed:       tp.QuizPassed,
			QuizScore:        tp.QuizScore,
		}
	}

	for _, ordinal := range payload.CompletedTopics {
		tp := rec.Topic(ordinal)
		tp.QuizPassed = true
		if tp.QuizScore < progress.PassingScore {
			tp.QuizScore = progress.PassingScore
		}
		if tp.CompletedLessons == nil {
			tp.CompletedLessons = make(map[int]bool)
		}
		rec.Topics[ordinal] = tp
	}
	return rec
}

// MarkLessonComplete records one lesson completion on the backend.
func (c *Client) MarkLessonComplete(ctx context.Context, pathID string, topicOrdinal, lessonOrdinal int) error {
	url := fmt.Sprintf("%s/lesson/complete/%s/%d/%d", c.baseURL, pathID, topicOrdinal, lessonOrdinal)
	body := map[string]any{
		"learner":     c.session.LearnerID,
		"completedAt": time.Now().UTC().Format(time.RFC3339),
	}
	return c.post(ctx, url, body)
}

// MarkTopicComplete records a topic completion with its quiz score.
func (c *Client) MarkTopicComplete(ctx context.Context, pathID string, topicOrdinal int, score float64) error {
	url := fmt.Sprintf("%s/topic/complete/%s/%d", c.baseURL, pathID, topicOrdinal)
	body := map[string]any{
		"learner":     c.session.LearnerID,
		"quizScore":   score,
		"completedAt": time.Now().UTC().Format(time.RFC3339),
	}
	return c.post(ctx, url, body)
}

func (c *Client) post(ctx context.Context, url string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("progress api error (status %d): %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.session.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.session.Token)
	}
}
