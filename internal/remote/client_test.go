package remote

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lernio/pathway/internal/progress"
)

func TestClient_FetchProgress(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"completedTopics": [0, 2],
			"topicProgress": {
				"0": {"completedLessons": 3, "quizPassed": true, "quizScore": 88},
				"1": {"completedLessons": 1, "quizPassed": false, "quizScore": 40}
			},
			"lastTopicIndex": 1
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, Session{LearnerID: "learner-1", Token: "tok"})
	rec, err := c.FetchProgress(t.Context(), "go-basics")
	if err != nil {
		t.Fatalf("FetchProgress() error = %v", err)
	}

	if gotPath != "/learning-path/progress/go-basics" {
		t.Errorf("request path = %q", gotPath)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization = %q, want Bearer tok", gotAuth)
	}

	tp0 := rec.Topic(0)
	if !tp0.Completed() || tp0.QuizScore != 88 || tp0.LessonCount() != 3 {
		t.Errorf("topic 0 = %+v, want completed at 88 with 3 lessons", tp0)
	}
	tp1 := rec.Topic(1)
	if tp1.Completed() {
		t.Error("topic 1 should not be completed")
	}
	if tp1.LessonCount() != 1 || tp1.QuizScore != 40 {
		t.Errorf("topic 1 = %+v, want 1 lesson and display score 40", tp1)
	}

	// Topic 2 appears only in completedTopics: forced complete at threshold.
	tp2 := rec.Topic(2)
	if !tp2.Completed() {
		t.Error("topic 2 listed in completedTopics should be completed")
	}
	if tp2.QuizScore != progress.PassingScore {
		t.Errorf("topic 2 score = %v, want %v", tp2.QuizScore, progress.PassingScore)
	}
	if rec.LastTopic != 1 {
		t.Errorf("LastTopic = %d, want 1", rec.LastTopic)
	}
}

func TestClient_FetchProgress_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
		},
		{
			name: "not json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("<html>oops</html>"))
			},
		},
		{
			name: "missing required fields",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"lastTopicIndex": 0}`))
			},
		},
		{
			name: "wrong field types",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"completedTopics": "zero", "topicProgress": {}, "lastTopicIndex": 0}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := NewClient(srv.URL, Session{LearnerID: "learner-1"})
			if _, err := c.FetchProgress(t.Context(), "go-basics"); err == nil {
				t.Error("FetchProgress() should error")
			}
		})
	}
}

func TestClient_MarkTopicComplete(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, Session{LearnerID: "learner-1"})
	if err := c.MarkTopicComplete(t.Context(), "go-basics", 2, 85.5); err != nil {
		t.Fatalf("MarkTopicComplete() error = %v", err)
	}

	if gotPath != "/topic/complete/go-basics/2" {
		t.Errorf("request path = %q", gotPath)
	}
	if gotBody["quizScore"] != 85.5 {
		t.Errorf("quizScore = %v, want 85.5", gotBody["quizScore"])
	}
	if gotBody["learner"] != "learner-1" {
		t.Errorf("learner = %v, want learner-1", gotBody["learner"])
	}
	if gotBody["completedAt"] == "" {
		t.Error("completedAt should be set")
	}
}

func TestClient_MarkLessonComplete(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, Session{LearnerID: "learner-1"})
	if err := c.MarkLessonComplete(t.Context(), "go-basics", 1, 3); err != nil {
		t.Fatalf("MarkLessonComplete() error = %v", err)
	}
	if gotPath != "/lesson/complete/go-basics/1/3" {
		t.Errorf("request path = %q", gotPath)
	}
}

func TestClient_MarkLessonComplete_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, Session{LearnerID: "learner-1"})
	if err := c.MarkLessonComplete(t.Context(), "go-basics", 0, 0); err == nil {
		t.Error("MarkLessonComplete() should error on non-2xx")
	}
}
