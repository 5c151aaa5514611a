package domain

import (
	"sync"
	"time"
)

// JobState enumerates job lifecycle states. The only legal transitions are
// queued -> processing -> completed|failed; terminal states are absorbing.
type JobState string

const (
	JobStateQueued     JobState = "queued"
	JobStateProcessing JobState = "processing"
	JobStateCompleted  JobState = "completed"
	JobStateFailed     JobState = "failed"
)

// Terminal reports whether the state admits no further transitions.
func (s JobState) Terminal() bool {
	return s == JobStateCompleted || s == JobStateFailed
}

// Job tracks one generation request through its lifecycle. The mutex guards
// state, the terminal event and the private event buffer; the worker that
// dequeued the job is the only writer of state and result.
type Job struct {
	ID        string
	Request   GenerationRequest
	CreatedAt time.Time

	mu       sync.Mutex
	state    JobState
	terminal *Event
	events   []Event
	touched  time.Time
}

// NewJob constructs a queued job.
func NewJob(id string, req GenerationRequest) *Job {
	now := time.Now()
	req.JobID = id
	return &Job{
		ID:        id,
		Request:   req,
		CreatedAt: now,
		state:     JobStateQueued,
		touched:   now,
	}
}

// State returns the current lifecycle state.
func (j *Job) State() JobState {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// MarkProcessing transitions queued -> processing. It reports false when the
// job was not queued, which callers treat as a no-op.
func (j *Job) MarkProcessing() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state != JobStateQueued {
		return false
	}
	j.state = JobStateProcessing
	j.touched = time.Now()
	return true
}

// Complete records the terminal completed event. The result is set at most
// once: a second call, or a call on a job that is not processing, reports
// false and changes nothing.
func (j *Job) Complete(ev Event) bool {
	return j.finish(JobStateCompleted, ev)
}

// Fail records the terminal failed event under the same at-most-once rule.
func (j *Job) Fail(ev Event) bool {
	return j.finish(JobStateFailed, ev)
}

func (j *Job) finish(state JobState, ev Event) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state != JobStateProcessing {
		return false
	}
	j.state = state
	j.terminal = &ev
	j.touched = time.Now()
	return true
}

// TerminalEvent returns the recorded terminal event, if any.
func (j *Job) TerminalEvent() (Event, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.terminal == nil {
		return Event{}, false
	}
	return *j.terminal, true
}

// Append pushes an event onto the job's private buffer. Events are retained
// in FIFO order for pull consumers.
func (j *Job) Append(ev Event) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, ev)
	j.touched = time.Now()
}

// DrainLatest empties the buffer and returns the most recent event, matching
// the poll contract: older buffered events are discarded.
func (j *Job) DrainLatest() (Event, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.events) == 0 {
		return Event{}, false
	}
	ev := j.events[len(j.events)-1]
	j.events = nil
	return ev, true
}

// Touch records subscriber interest so the reaper leaves the job alone.
func (j *Job) Touch() {
	j.mu.Lock()
	j.touched = time.Now()
	j.mu.Unlock()
}

// IdleFor returns how long ago the job was last touched.
func (j *Job) IdleFor(now time.Time) time.Duration {
	j.mu.Lock()
	defer j.mu.Unlock()
	return now.Sub(j.touched)
}
