package progress

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"
)

// PushKind identifies which remote write a pending push corresponds to.
type PushKind string

const (
	PushLesson PushKind = "lesson"
	PushQuiz   PushKind = "quiz"
)

// PendingPush is a remote write that failed and is waiting for replay.
// Local state stays the source of truth for the session either way; the
// outbox only narrows the window where progress is lost if the process dies
// before the backend hears about it.
type PendingPush struct {
	ID            string
	PathID        string
	LearnerID     string
	Kind          PushKind
	TopicOrdinal  int
	LessonOrdinal int
	Score         float64
	QueuedAt      time.Time
}

// Outbox stores failed pushes for later replay. Replay order does not
// matter: reconciliation on load treats remote-completed as monotonically
// authoritative, so reordered pushes cannot corrupt state.
type Outbox interface {
	Enqueue(push PendingPush) error
	Pending(pathID, learnerID string) ([]PendingPush, error)
	MarkDone(id string) error
}

// MemoryOutbox is an in-memory Outbox for sessions without a database.
type MemoryOutbox struct {
	mu     sync.Mutex
	pushes map[string]PendingPush
	order  []string
}

func NewMemoryOutbox() *MemoryOutbox {
	return &MemoryOutbox{
		pushes: make(map[string]PendingPush),
	}
}

func (o *MemoryOutbox) Enqueue(push PendingPush) error {
	if push.PathID == "" {
		return fmt.Errorf("path id is required")
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	if push.ID == "" {
		push.ID = generateID()
	}
	if push.QueuedAt.IsZero() {
		push.QueuedAt = time.Now()
	}
	o.pushes[push.ID] = push
	o.order = append(o.order, push.ID)
	return nil
}

func (o *MemoryOutbox) Pending(pathID, learnerID string) ([]PendingPush, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var out []PendingPush
	for _, id := range o.order {
		p, ok := o.pushes[id]
		if !ok {
			continue
		}
		if p.PathID == pathID && p.LearnerID == learnerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (o *MemoryOutbox) MarkDone(id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.pushes[id]; !ok {
		return fmt.Errorf("push not found: %s", id)
	}
	delete(o.pushes, id)
	return nil
}

func generateID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return fmt.Sprintf("%x", b)
}
