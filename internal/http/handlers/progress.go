package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"sdxlruntime/internal/domain"
)

// Progress is the poll endpoint. Queued jobs answer with their position;
// completed jobs return the final payload exactly once and are then retired;
// anything else returns the most recent buffered event (older buffered
// events are discarded).
func (a *App) Progress(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := a.Registry.Get(jobID)
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "job not found")
		return
	}
	job.Touch()

	if position := a.Queue.PositionOf(jobID); position > 0 {
		a.json(w, http.StatusOK, domain.Event{Status: domain.StatusQueued, Position: position})
		return
	}

	if job.State() == domain.JobStateCompleted {
		ev, _ := job.TerminalEvent()
		a.json(w, http.StatusOK, ev)
		a.RetireJob(job)
		return
	}

	if ev, ok := job.DrainLatest(); ok {
		a.json(w, http.StatusOK, ev)
		return
	}
	// Buffer already drained: report the current state. Failed jobs keep
	// answering with their terminal event until the reaper claims them.
	if ev, ok := job.TerminalEvent(); ok {
		a.json(w, http.StatusOK, ev)
		return
	}
	a.json(w, http.StatusOK, domain.Event{Status: domain.StatusProcessing})
}
