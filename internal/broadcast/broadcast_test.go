package broadcast

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-enrichment/internal/model"
)

type stubJobReader struct {
	jobs map[string]*model.Job
}

func (r *stubJobReader) GetJob(_ context.Context, jobID string) (*model.Job, error) {
	if job, ok := r.jobs[jobID]; ok {
		return job, nil
	}
	return nil, eris.Errorf("job not found: %s", jobID)
}

func newTestBroadcaster(jobs ...*model.Job) *Broadcaster {
	reader := &stubJobReader{jobs: make(map[string]*model.Job)}
	for _, j := range jobs {
		reader.jobs[j.ID] = j
	}
	return New(&OwnerAuthorizer{Jobs: reader}, reader)
}

func recvEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestSubscribe_RejectsNonOwner(t *testing.T) {
	b := newTestBroadcaster(&model.Job{ID: "job-1", OwnerID: "user-1"})

	_, err := b.Subscribe(context.Background(), "intruder", "job-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not own")
	assert.Equal(t, 0, b.SubscriberCount("job-1"))
}

func TestSubscribe_RejectsUnknownJob(t *testing.T) {
	b := newTestBroadcaster()

	_, err := b.Subscribe(context.Background(), "user-1", "missing")
	assert.Error(t, err)
}

func TestSubscribe_SnapshotFirst(t *testing.T) {
	job := &model.Job{
		ID: "job-1", OwnerID: "user-1",
		Status:     model.JobStatusProcessing,
		TotalLeads: 10, ProcessedLeads: 5, ProgressPercent: 50,
	}
	b := newTestBroadcaster(job)

	ch, err := b.Subscribe(context.Background(), "user-1", "job-1")
	require.NoError(t, err)

	ev := recvEvent(t, ch)
	assert.Equal(t, EventStatus, ev.Type)
	payload, ok := ev.Payload.(StatusPayload)
	require.True(t, ok)
	assert.Equal(t, model.JobStatusProcessing, payload.Status)
	assert.Equal(t, 50, payload.ProgressPercent)
}

func TestPublish_DeliversToSubscribers(t *testing.T) {
	b := newTestBroadcaster(&model.Job{ID: "job-1", OwnerID: "user-1"})

	ch, err := b.Subscribe(context.Background(), "user-1", "job-1")
	require.NoError(t, err)
	recvEvent(t, ch) // snapshot

	b.Publish(ProgressEvent("job-1", model.JobProgress{ProcessedLeads: 5, ProgressPercent: 50}))

	ev := recvEvent(t, ch)
	assert.Equal(t, EventProgress, ev.Type)
	assert.False(t, ev.Timestamp.IsZero())
	payload := ev.Payload.(ProgressPayload)
	assert.Equal(t, 5, payload.ProcessedLeads)
}

func TestPublish_NoSubscribersIsNoop(t *testing.T) {
	b := newTestBroadcaster(&model.Job{ID: "job-1", OwnerID: "user-1"})
	b.Publish(LogEvent("job-1", model.LogLevelInfo, "nobody listening"))
}

func TestPublish_DropsWhenSubscriberFull(t *testing.T) {
	b := newTestBroadcaster(&model.Job{ID: "job-1", OwnerID: "user-1"})

	ch, err := b.Subscribe(context.Background(), "user-1", "job-1")
	require.NoError(t, err)

	// Fill the buffer without draining. The snapshot occupies one slot.
	for i := 0; i < subscriberBuffer+10; i++ {
		b.Publish(LogEvent("job-1", model.LogLevelInfo, "flood"))
	}

	// Publisher never blocked; the channel holds at most its capacity.
	drained := 0
	for {
		select {
		case <-ch:
			drained++
		default:
			assert.LessOrEqual(t, drained, subscriberBuffer)
			return
		}
	}
}

func TestSubscribe_UnsubscribeOnContextCancel(t *testing.T) {
	b := newTestBroadcaster(&model.Job{ID: "job-1", OwnerID: "user-1"})

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := b.Subscribe(ctx, "user-1", "job-1")
	require.NoError(t, err)
	assert.Equal(t, 1, b.SubscriberCount("job-1"))

	cancel()
	require.Eventually(t, func() bool {
		return b.SubscriberCount("job-1") == 0
	}, time.Second, 10*time.Millisecond)

	// Channel drains the snapshot and then reports closed.
	recvEvent(t, ch)
	_, ok := <-ch
	assert.False(t, ok)
}

func TestPublish_IndependentJobs(t *testing.T) {
	b := newTestBroadcaster(
		&model.Job{ID: "job-1", OwnerID: "user-1"},
		&model.Job{ID: "job-2", OwnerID: "user-1"},
	)

	ch1, err := b.Subscribe(context.Background(), "user-1", "job-1")
	require.NoError(t, err)
	ch2, err := b.Subscribe(context.Background(), "user-1", "job-2")
	require.NoError(t, err)
	recvEvent(t, ch1)
	recvEvent(t, ch2)

	b.Publish(CompleteEvent("job-2", "exports/out.xlsx"))

	ev := recvEvent(t, ch2)
	assert.Equal(t, EventComplete, ev.Type)
	select {
	case ev := <-ch1:
		t.Fatalf("job-1 subscriber received %s event for job-2", ev.Type)
	case <-time.After(50 * time.Millisecond):
	}
}
