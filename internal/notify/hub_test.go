package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"sdxlruntime/internal/domain"
	"sdxlruntime/internal/jobqueue"
)

func newTestHub(t *testing.T) (*Hub, *jobqueue.Registry, *jobqueue.Queue) {
	t.Helper()
	registry := jobqueue.NewRegistry()
	queue := jobqueue.NewQueue()
	return NewHub(registry, queue, zerolog.Nop()), registry, queue
}

func recvEvent(t *testing.T, ch chan domain.Event) domain.Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatal("subscriber channel closed")
		}
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return domain.Event{}
}

func TestSubscribeUnknownJob(t *testing.T) {
	hub, _, _ := newTestHub(t)
	if _, err := hub.Subscribe("missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Subscribe = %v, want ErrNotFound", err)
	}
}

func TestPublishDeliversAndBuffers(t *testing.T) {
	hub, registry, _ := newTestHub(t)
	job := registry.Create(domain.GenerationRequest{Prompt: "cat"})

	ch, err := hub.Subscribe(job.ID)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	ev := domain.Event{Status: domain.StatusProgress, Pipeline: domain.PipelineBase, Step: 3}
	hub.Publish(job, ev)

	got := recvEvent(t, ch)
	if got.Status != domain.StatusProgress || got.Step != 3 {
		t.Fatalf("delivered event = %+v, want %+v", got, ev)
	}

	// The same event also landed in the job's private buffer for pollers.
	buffered, ok := job.DrainLatest()
	if !ok {
		t.Fatal("job buffer empty after publish")
	}
	if buffered.Step != 3 {
		t.Fatalf("buffered event step = %d, want 3", buffered.Step)
	}
}

func TestBroadcastQueuePositionsSkipsDequeued(t *testing.T) {
	hub, registry, queue := newTestHub(t)

	waiting := registry.Create(domain.GenerationRequest{Prompt: "cat"})
	claimed := registry.Create(domain.GenerationRequest{Prompt: "dog"})
	queue.Enqueue(claimed.ID)
	queue.Enqueue(waiting.ID)

	waitingCh, err := hub.Subscribe(waiting.ID)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	claimedCh, err := hub.Subscribe(claimed.ID)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	// A worker claims the head of the queue.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := queue.Take(ctx, nil); err != nil {
		t.Fatalf("Take: %v", err)
	}

	hub.BroadcastQueuePositions()

	ev := recvEvent(t, waitingCh)
	if ev.Status != domain.StatusQueued || ev.Position != 1 {
		t.Fatalf("waiting subscriber got %+v, want queued position 1", ev)
	}
	select {
	case ev := <-claimedCh:
		t.Fatalf("claimed job received broadcast %+v", ev)
	default:
	}
}

func TestSlowSubscriberDoesNotBlockPeers(t *testing.T) {
	hub, registry, _ := newTestHub(t)
	job := registry.Create(domain.GenerationRequest{Prompt: "cat"})

	slow, err := hub.Subscribe(job.ID)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	healthy, err := hub.Subscribe(job.ID)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	// Overflow the slow subscriber's buffer without reading from it. Publish
	// must keep returning promptly and the healthy subscriber keeps up.
	total := subscriberBuffer + 8
	go func() {
		for range healthy {
		}
	}()
	done := make(chan struct{})
	go func() {
		for i := 1; i <= total; i++ {
			hub.Publish(job, domain.Event{Status: domain.StatusProgress, Step: i})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
	if len(slow) != subscriberBuffer {
		t.Fatalf("slow subscriber holds %d events, want full buffer %d", len(slow), subscriberBuffer)
	}
}

func TestUnsubscribeCleansUpMembership(t *testing.T) {
	hub, registry, _ := newTestHub(t)
	job := registry.Create(domain.GenerationRequest{Prompt: "cat"})

	ch, err := hub.Subscribe(job.ID)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if got := hub.SubscriberCount(job.ID); got != 1 {
		t.Fatalf("SubscriberCount = %d, want 1", got)
	}

	hub.Unsubscribe(job.ID, ch)
	if got := hub.SubscriberCount(job.ID); got != 0 {
		t.Fatalf("SubscriberCount after Unsubscribe = %d, want 0", got)
	}
	hub.mu.Lock()
	_, stillThere := hub.subs[job.ID]
	hub.mu.Unlock()
	if stillThere {
		t.Fatal("empty subscriber set not removed")
	}

	// Publishing after detach delivers nothing to the old channel.
	hub.Publish(job, domain.Event{Status: domain.StatusProgress, Step: 1})
	select {
	case ev := <-ch:
		t.Fatalf("detached subscriber received %+v", ev)
	default:
	}
}

func TestDropClosesSubscribers(t *testing.T) {
	hub, registry, _ := newTestHub(t)
	job := registry.Create(domain.GenerationRequest{Prompt: "cat"})

	first, err := hub.Subscribe(job.ID)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	second, err := hub.Subscribe(job.ID)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	hub.Drop(job.ID)

	for _, ch := range []chan domain.Event{first, second} {
		select {
		case _, ok := <-ch:
			if ok {
				t.Fatal("expected closed channel, got event")
			}
		case <-time.After(time.Second):
			t.Fatal("channel not closed by Drop")
		}
	}
	if got := hub.SubscriberCount(job.ID); got != 0 {
		t.Fatalf("SubscriberCount after Drop = %d, want 0", got)
	}
}
