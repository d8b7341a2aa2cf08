// Package broadcast fans job lifecycle events out to live subscribers.
//
// Delivery is at-most-once: a subscriber that cannot keep up has events
// dropped rather than stalling publishers. The store remains the source
// of truth; every event mirrors state already persisted.
package broadcast

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-enrichment/internal/model"
)

// EventType identifies the kind of update carried by an Event.
type EventType string

const (
	EventStatus   EventType = "status"
	EventProgress EventType = "progress"
	EventLog      EventType = "log"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
)

// Event is a single update about a job, pushed to subscribers.
type Event struct {
	JobID     string    `json:"job_id"`
	Type      EventType `json:"type"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// JobReader is the slice of the store the broadcaster needs.
type JobReader interface {
	GetJob(ctx context.Context, jobID string) (*model.Job, error)
}

// Authorizer decides whether a subscriber may watch a job. A non-nil
// error rejects the subscription.
type Authorizer interface {
	Authorize(ctx context.Context, subscriberID, jobID string) error
}

// OwnerAuthorizer admits only the job's owner.
type OwnerAuthorizer struct {
	Jobs JobReader
}

func (a *OwnerAuthorizer) Authorize(ctx context.Context, subscriberID, jobID string) error {
	job, err := a.Jobs.GetJob(ctx, jobID)
	if err != nil {
		return eris.Wrapf(err, "broadcast: authorize subscription to %s", jobID)
	}
	if job.OwnerID != subscriberID {
		return eris.Errorf("broadcast: subscriber %s does not own job %s", subscriberID, jobID)
	}
	return nil
}

const subscriberBuffer = 16

type subscriber struct {
	ch chan Event
}

// Broadcaster routes events by job id. The zero value is not usable;
// construct with New.
type Broadcaster struct {
	auth Authorizer
	jobs JobReader

	mu   sync.Mutex
	subs map[string]map[*subscriber]struct{}
}

func New(auth Authorizer, jobs JobReader) *Broadcaster {
	return &Broadcaster{
		auth: auth,
		jobs: jobs,
		subs: make(map[string]map[*subscriber]struct{}),
	}
}

// Subscribe registers a listener for a job's events. The returned
// channel first carries a status snapshot reflecting the job's current
// persisted state, then live events until ctx is cancelled. The channel
// is closed on unsubscribe.
func (b *Broadcaster) Subscribe(ctx context.Context, subscriberID, jobID string) (<-chan Event, error) {
	if err := b.auth.Authorize(ctx, subscriberID, jobID); err != nil {
		return nil, err
	}

	job, err := b.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, eris.Wrapf(err, "broadcast: snapshot job %s", jobID)
	}

	snapshot := StatusEvent(job)
	snapshot.Timestamp = time.Now().UTC()

	sub := &subscriber{ch: make(chan Event, subscriberBuffer)}
	sub.ch <- snapshot

	b.mu.Lock()
	if b.subs[jobID] == nil {
		b.subs[jobID] = make(map[*subscriber]struct{})
	}
	b.subs[jobID][sub] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.remove(jobID, sub)
	}()

	return sub.ch, nil
}

func (b *Broadcaster) remove(jobID string, sub *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if set, ok := b.subs[jobID]; ok {
		if _, ok := set[sub]; ok {
			delete(set, sub)
			close(sub.ch)
		}
		if len(set) == 0 {
			delete(b.subs, jobID)
		}
	}
}

// Publish delivers an event to every current subscriber of the job.
// Slow subscribers have the event dropped.
func (b *Broadcaster) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs[ev.JobID] {
		select {
		case sub.ch <- ev:
		default:
			zap.L().Debug("dropped event for slow subscriber",
				zap.String("job_id", ev.JobID),
				zap.String("type", string(ev.Type)))
		}
	}
}

// SubscriberCount reports how many listeners a job currently has.
func (b *Broadcaster) SubscriberCount(jobID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[jobID])
}
