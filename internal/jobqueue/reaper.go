package jobqueue

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"sdxlruntime/internal/domain"
)

// Reaper retires terminal jobs that nobody came back for. Retirement is
// normally subscriber-triggered; the reaper only covers abandoned jobs, so it
// never touches queued or processing entries (a queued id is owned by the
// admission queue until a worker claims it).
type Reaper struct {
	registry *Registry
	ttl      time.Duration
	interval time.Duration
	retire   func(*domain.Job)
	log      zerolog.Logger
}

// NewReaper builds a reaper that sweeps every interval and retires terminal
// jobs untouched for at least ttl.
func NewReaper(registry *Registry, ttl, interval time.Duration, retire func(*domain.Job), log zerolog.Logger) *Reaper {
	return &Reaper{
		registry: registry,
		ttl:      ttl,
		interval: interval,
		retire:   retire,
		log:      log,
	}
}

// Run sweeps until ctx is done.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(time.Now())
		}
	}
}

func (r *Reaper) sweep(now time.Time) {
	for _, job := range r.registry.Snapshot() {
		if !job.State().Terminal() {
			continue
		}
		idle := job.IdleFor(now)
		if idle < r.ttl {
			continue
		}
		r.log.Info().
			Str("job_id", job.ID).
			Str("state", string(job.State())).
			Dur("idle", idle).
			Msg("reaper: retiring abandoned job")
		r.retire(job)
	}
}
