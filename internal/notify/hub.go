package notify

import (
	"sync"

	"github.com/rs/zerolog"

	"sdxlruntime/internal/domain"
	"sdxlruntime/internal/jobqueue"
)

// subscriberBuffer bounds each subscriber's channel. A subscriber that falls
// this far behind starts losing events; the job's private buffer stays
// lossless either way.
const subscriberBuffer = 64

// Hub fans job lifecycle events out to the subscribers attached to each job.
// Every published event lands in the job's private buffer first, then is
// offered to each attached subscriber. Delivery is best-effort per
// subscriber: one broken or slow subscriber never blocks the worker or its
// peers.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan domain.Event]struct{}

	registry *jobqueue.Registry
	queue    *jobqueue.Queue
	log      zerolog.Logger
}

// NewHub wires the hub to the registry (attach validation) and the admission
// queue (position broadcasts).
func NewHub(registry *jobqueue.Registry, queue *jobqueue.Queue, log zerolog.Logger) *Hub {
	return &Hub{
		subs:     make(map[string]map[chan domain.Event]struct{}),
		registry: registry,
		queue:    queue,
		log:      log,
	}
}

// Subscribe attaches a new subscriber channel to the job. Unknown ids are
// rejected with domain.ErrNotFound.
func (h *Hub) Subscribe(id string) (chan domain.Event, error) {
	if _, err := h.registry.Get(id); err != nil {
		return nil, err
	}
	ch := make(chan domain.Event, subscriberBuffer)
	h.mu.Lock()
	set, ok := h.subs[id]
	if !ok {
		set = make(map[chan domain.Event]struct{})
		h.subs[id] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()
	return ch, nil
}

// Unsubscribe detaches the channel. When the subscriber set becomes empty the
// hub entry is dropped so no membership leaks. The channel is not closed:
// the caller owns the read side.
func (h *Hub) Unsubscribe(id string, ch chan domain.Event) {
	h.mu.Lock()
	if set, ok := h.subs[id]; ok {
		delete(set, ch)
		if len(set) == 0 {
			delete(h.subs, id)
		}
	}
	h.mu.Unlock()
}

// SubscriberCount reports how many subscribers are attached to the job.
func (h *Hub) SubscriberCount(id string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[id])
}

// Publish appends the event to the job's private buffer and fans it out to
// the attached subscribers.
func (h *Hub) Publish(job *domain.Job, ev domain.Event) {
	job.Append(ev)
	h.fanOut(job.ID, ev)
}

// BroadcastQueuePositions pushes a fresh {queued, position} event to the
// subscribers of every job still waiting in the admission queue. Jobs that
// are processing or terminal are skipped; queue membership decides, so the
// snapshot is consistent with the atomic claim in Queue.Take.
func (h *Hub) BroadcastQueuePositions() {
	h.mu.Lock()
	ids := make([]string, 0, len(h.subs))
	for id := range h.subs {
		ids = append(ids, id)
	}
	h.mu.Unlock()

	for _, id := range ids {
		position := h.queue.PositionOf(id)
		if position < 1 {
			continue
		}
		h.fanOut(id, domain.Event{Status: domain.StatusQueued, Position: position})
	}
}

// Drop tears down the job's hub entry, closing any remaining subscriber
// channels. Used at retirement; later attach attempts fail the registry
// lookup in Subscribe.
func (h *Hub) Drop(id string) {
	h.mu.Lock()
	for ch := range h.subs[id] {
		close(ch)
	}
	delete(h.subs, id)
	h.mu.Unlock()
}

func (h *Hub) fanOut(id string, ev domain.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[id] {
		select {
		case ch <- ev:
		default:
			// Subscriber buffer full. The connection is effectively dead
			// until it disconnects and is cleaned up.
			h.log.Error().
				Str("job_id", id).
				Str("status", string(ev.Status)).
				Msg("hub: subscriber buffer full, dropping event")
		}
	}
}
