package quiz

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultHTTPTimeout = 10 * time.Second

// HTTPProvider implements Provider against an assessment service exposing
// quiz generation and grading endpoints.
type HTTPProvider struct {
	baseURL string
	token   string
	client  *http.Client
	name    string
}

// HTTPOption configures an HTTPProvider.
type HTTPOption func(*HTTPProvider)

// WithClient sets a custom HTTP client.
func WithClient(client *http.Client) HTTPOption {
	return func(p *HTTPProvider) {
		p.client = client
	}
}

// WithToken sets the bearer token sent on every request.
func WithToken(token string) HTTPOption {
	return func(p *HTTPProvider) {
		p.token = token
	}
}

// WithProviderName sets the provider name (for multi-instance use, e.g.
// when the same service is registered under primary and backup URLs).
func WithProviderName(name string) HTTPOption {
	return func(p *HTTPProvider) {
		p.name = name
	}
}

// NewHTTPProvider creates a provider for an assessment service.
func NewHTTPProvider(baseURL string, opts ...HTTPOption) *HTTPProvider {
	p := &HTTPProvider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultHTTPTimeout},
		name:    "assessment",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type quizResponse struct {
	QuizID    string `json:"quizId"`
	TopicName string `json:"topicName"`
	Questions []struct {
		ID      string   `json:"id"`
		Type    string   `json:"type"`
		Prompt  string   `json:"prompt"`
		Options []string `json:"options"`
	} `json:"questions"`
	TimeLimit int `json:"timeLimit"`
}

type submitRequest struct {
	Answers []string `json:"answers"`
}

type submitResponse struct {
	Score   float64 `json:"score"`
	Correct int     `json:"correct"`
	Total   int     `json:"total"`
}

func (p *HTTPProvider) FetchQuiz(ctx context.Context, topicName string) (Quiz, error) {
	endpoint := p.baseURL + "/quiz/generate?topic=" + url.QueryEscape(topicName)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Quiz{}, fmt.Errorf("create request: %w", err)
	}
	p.authorize(req)

	body, err := p.do(req)
	if err != nil {
		return Quiz{}, err
	}

	if err := validateQuizPayload(body); err != nil {
		return Quiz{}, err
	}
	var qr quizResponse
	if err := json.Unmarshal(body, &qr); err != nil {
		return Quiz{}, fmt.Errorf("unmarshal quiz: %w", err)
	}

	quiz := Quiz{
		ID:        qr.QuizID,
		TopicName: qr.TopicName,
		TimeLimit: qr.TimeLimit,
		Questions: make([]Question, len(qr.Questions)),
	}
	for i, q := range qr.Questions {
		quiz.Questions[i] = Question{
			ID:      q.ID,
			Type:    QuestionType(q.Type),
			Prompt:  q.Prompt,
			Options: q.Options,
		}
	}
	if err := validateQuiz(quiz); err != nil {
		return Quiz{}, err
	}
	return quiz, nil
}

func (p *HTTPProvider) SubmitQuiz(ctx context.Context, quizID string, answers []string) (Result, error) {
	payload, err := json.Marshal(submitRequest{Answers: answers})
	if err != nil {
		return Result{}, fmt.Errorf("marshal submission: %w", err)
	}

	endpoint := p.baseURL + "/quiz/submit/" + url.PathEscape(quizID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	p.authorize(req)

	body, err := p.do(req)
	if err != nil {
		return Result{}, err
	}

	var sr submitResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return Result{}, fmt.Errorf("unmarshal result: %w", err)
	}
	return Result{
		QuizID:  quizID,
		Score:   sr.Score,
		Correct: sr.Correct,
		Total:   sr.Total,
	}, nil
}

func (p *HTTPProvider) Name() string {
	return p.name
}

func (p *HTTPProvider) authorize(req *http.Request) {
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}
}

func (p *HTTPProvider) do(req *http.Request) ([]byte, error) {
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("assessment api error (status %d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}
