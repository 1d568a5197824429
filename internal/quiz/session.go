package quiz

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// State is the lifecycle state of a quiz session.
type State int

const (
	StateLoading State = iota
	StateActive
	StateSubmitting
	StateScored
	StateSubmitFailed
	StateLoadFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateActive:
		return "active"
	case StateSubmitting:
		return "submitting"
	case StateScored:
		return "scored"
	case StateSubmitFailed:
		return "submit_failed"
	case StateLoadFailed:
		return "load_failed"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	// ErrNotActive is returned when an operation needs an active quiz.
	ErrNotActive = errors.New("quiz is not active")
	// ErrSubmitInFlight is returned when a submission is already running.
	ErrSubmitInFlight = errors.New("submission already in flight")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("session is closed")
)

// Session drives one quiz attempt from load to scoring. All methods are
// safe for concurrent use; the scored callback fires at most once per
// session no matter how submission is triggered (caller, timer expiry, or
// a retry racing either).
//
// A session that fails to load holds no quiz data: Quiz() is only valid
// while the state is Active, Submitting, or later.
type Session struct {
	mu       sync.Mutex
	provider Provider
	topic    string
	onScored func(Result)

	state   State
	quiz    Quiz
	answers []string
	result  Result
	timer   *time.Timer
	scored  bool
}

// NewSession creates a session for one attempt at the named topic's quiz.
// onScored may be nil. The session starts in Loading; call Start to fetch
// the quiz.
func NewSession(provider Provider, topicName string, onScored func(Result)) *Session {
	return &Session{
		provider: provider,
		topic:    topicName,
		onScored: onScored,
		state:    StateLoading,
	}
}

// Start fetches the quiz and activates the session. A fetch error, or a
// quiz with no questions, moves the session to LoadFailed; Retry starts a
// fresh fetch. When the quiz carries a time limit, an expiry timer is
// armed that auto-submits whatever answers exist.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.state != StateLoading && s.state != StateLoadFailed {
		s.mu.Unlock()
		return fmt.Errorf("cannot start from state %s", s.state)
	}
	s.state = StateLoading
	s.mu.Unlock()

	quiz, err := s.provider.FetchQuiz(ctx, s.topic)
	if err == nil {
		err = validateQuiz(quiz)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return ErrClosed
	}
	if err != nil {
		s.state = StateLoadFailed
		return fmt.Errorf("load quiz: %w", err)
	}

	s.quiz = quiz
	s.answers = make([]string, len(quiz.Questions))
	s.state = StateActive

	if quiz.TimeLimit > 0 {
		s.timer = time.AfterFunc(time.Duration(quiz.TimeLimit)*time.Minute, s.expire)
	}
	return nil
}

// Answer records the learner's answer to the question at index i.
// Answers can be revised until submission starts.
func (s *Session) Answer(i int, answer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateClosed:
		return ErrClosed
	case StateActive:
	default:
		return ErrNotActive
	}
	if i < 0 || i >= len(s.answers) {
		return fmt.Errorf("question index %d out of range", i)
	}
	s.answers[i] = answer
	return nil
}

// Submit grades the current answers. While a submission is in flight,
// further Submit calls fail with ErrSubmitInFlight rather than queueing a
// second attempt. On provider failure the session moves to SubmitFailed
// with answers intact; Retry resubmits them.
func (s *Session) Submit(ctx context.Context) (Result, error) {
	s.mu.Lock()
	switch s.state {
	case StateClosed:
		s.mu.Unlock()
		return Result{}, ErrClosed
	case StateSubmitting:
		s.mu.Unlock()
		return Result{}, ErrSubmitInFlight
	case StateScored:
		result := s.result
		s.mu.Unlock()
		return result, nil
	case StateActive, StateSubmitFailed:
	default:
		s.mu.Unlock()
		return Result{}, ErrNotActive
	}
	s.state = StateSubmitting
	quizID := s.quiz.ID
	answers := make([]string, len(s.answers))
	copy(answers, s.answers)
	s.mu.Unlock()

	result, err := s.provider.SubmitQuiz(ctx, quizID, answers)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return Result{}, ErrClosed
	}
	if err != nil {
		s.state = StateSubmitFailed
		return Result{}, fmt.Errorf("submit quiz: %w", err)
	}

	s.result = result
	s.state = StateScored
	s.stopTimerLocked()

	if !s.scored {
		s.scored = true
		if s.onScored != nil {
			// Callback runs outside the session lock so it can call back
			// into session accessors.
			cb := s.onScored
			go cb(result)
		}
	}
	return result, nil
}

// Retry recovers from a failed load or a failed submission. From
// LoadFailed it fetches a fresh quiz; from SubmitFailed it resubmits the
// answers already given.
func (s *Session) Retry(ctx context.Context) error {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()

	switch state {
	case StateLoadFailed:
		return s.Start(ctx)
	case StateSubmitFailed:
		_, err := s.Submit(ctx)
		return err
	case StateClosed:
		return ErrClosed
	default:
		return fmt.Errorf("nothing to retry in state %s", state)
	}
}

// Close abandons the session. The expiry timer is stopped and no scored
// callback will fire afterwards. Closing a session records nothing; an
// abandoned attempt leaves progress exactly as it was.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return
	}
	s.state = StateClosed
	s.scored = true // suppress any late callback
	s.stopTimerLocked()
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Quiz returns the loaded quiz. ok is false before a successful load.
func (s *Session) Quiz() (Quiz, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateLoading || s.state == StateLoadFailed || s.state == StateClosed {
		return Quiz{}, false
	}
	return s.quiz, true
}

// Result returns the graded result. ok is false until the session is
// scored.
func (s *Session) Result() (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateScored {
		return Result{}, false
	}
	return s.result, true
}

// expire is the time-limit callback. It submits whatever answers exist;
// unanswered questions grade as wrong.
func (s *Session) expire() {
	ctx, cancel := context.WithTimeout(context.Background(), defaultHTTPTimeout)
	defer cancel()
	_, _ = s.Submit(ctx)
}

func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
