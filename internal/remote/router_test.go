package remote

import (
	"errors"
	"testing"
	"time"

	"github.com/lernio/pathway/internal/progress"
)

func TestRouter_FallsBackOnFailure(t *testing.T) {
	primary := &MockService{FetchErr: errors.New("connection refused")}
	backup := &MockService{Record: func() progress.Record {
		rec := progress.NewRecord("p", "l")
		rec.Topics[0] = progress.TopicProgress{QuizPassed: true, QuizScore: 90}
		return rec
	}()}

	r := NewRouter()
	r.Register("primary", primary)
	r.Register("backup", backup)

	rec, err := r.FetchProgress(t.Context(), "go-basics")
	if err != nil {
		t.Fatalf("FetchProgress() error = %v", err)
	}
	if !rec.Topic(0).Completed() {
		t.Error("record should come from the backup endpoint")
	}
	if primary.FetchCalls != 1 || backup.FetchCalls != 1 {
		t.Errorf("calls = %d/%d, want 1/1", primary.FetchCalls, backup.FetchCalls)
	}
}

func TestRouter_AllEndpointsFail(t *testing.T) {
	r := NewRouter()
	r.Register("primary", &MockService{FetchErr: errors.New("down")})
	r.Register("backup", &MockService{FetchErr: errors.New("also down")})

	if _, err := r.FetchProgress(t.Context(), "go-basics"); err == nil {
		t.Error("FetchProgress() should error when every endpoint fails")
	}
}

func TestRouter_NoEndpoints(t *testing.T) {
	r := NewRouter()
	if err := r.MarkLessonComplete(t.Context(), "p", 0, 0); err == nil {
		t.Error("MarkLessonComplete() should error with no endpoints")
	}
}

func TestRouter_GateHoldsDownFailingEndpoint(t *testing.T) {
	primary := &MockService{FetchErr: errors.New("down")}
	backup := &MockService{}

	r := NewRouter()
	r.Register("primary", primary)
	r.Register("backup", backup)

	// Trip the gate: threshold consecutive failures.
	for i := 0; i < defaultFailureThreshold; i++ {
		if _, err := r.FetchProgress(t.Context(), "p"); err != nil {
			t.Fatalf("fallback fetch %d error = %v", i, err)
		}
	}
	if primary.FetchCalls != defaultFailureThreshold {
		t.Fatalf("primary calls = %d, want %d", primary.FetchCalls, defaultFailureThreshold)
	}

	// Gated: the next operation skips the primary entirely.
	if _, err := r.FetchProgress(t.Context(), "p"); err != nil {
		t.Fatalf("FetchProgress() error = %v", err)
	}
	if primary.FetchCalls != defaultFailureThreshold {
		t.Errorf("primary calls = %d, want unchanged %d", primary.FetchCalls, defaultFailureThreshold)
	}
}

func TestFailureGate_CooldownExpires(t *testing.T) {
	current := time.Now()
	g := newFailureGate(2, 30*time.Second)
	g.now = func() time.Time { return current }

	g.recordFailure("ep")
	if !g.available("ep") {
		t.Fatal("one failure should not trip the gate")
	}
	g.recordFailure("ep")
	if g.available("ep") {
		t.Fatal("threshold failures should trip the gate")
	}

	current = current.Add(31 * time.Second)
	if !g.available("ep") {
		t.Error("endpoint should be available after the cooldown")
	}
}

func TestFailureGate_SuccessResets(t *testing.T) {
	g := newFailureGate(3, 30*time.Second)

	g.recordFailure("ep")
	g.recordFailure("ep")
	g.recordSuccess("ep")
	g.recordFailure("ep")
	g.recordFailure("ep")

	if !g.available("ep") {
		t.Error("success should reset the consecutive-failure count")
	}
}
