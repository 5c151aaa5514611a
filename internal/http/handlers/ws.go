package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"sdxlruntime/internal/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// ProgressSocket is the push endpoint. On connect it sends the current queue
// position (when applicable) or the terminal result (when the job already
// finished), then streams every event until a terminal one ends the loop.
// Disconnecting only detaches this subscriber; once a terminal job has no
// subscribers left it is retired.
func (a *App) ProgressSocket(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.Log.Error().Err(err).Str("job_id", jobID).Msg("ws: upgrade failed")
		return
	}
	defer conn.Close()

	job, err := a.Registry.Get(jobID)
	if err != nil {
		_ = conn.WriteJSON(domain.Event{Status: domain.StatusError, Message: "Job not found."})
		return
	}
	job.Touch()

	sub, err := a.Hub.Subscribe(jobID)
	if err != nil {
		_ = conn.WriteJSON(domain.Event{Status: domain.StatusError, Message: "Job not found."})
		return
	}
	defer func() {
		a.Hub.Unsubscribe(jobID, sub)
		if job.State().Terminal() && a.Hub.SubscriberCount(jobID) == 0 {
			a.RetireJob(job)
		}
	}()

	if position := a.Queue.PositionOf(jobID); position > 0 {
		if err := conn.WriteJSON(domain.Event{Status: domain.StatusQueued, Position: position}); err != nil {
			return
		}
	}

	// A job that finished before we attached gets its terminal event
	// immediately; anything published between Subscribe and this check is
	// simply left unread on sub, so the client still sees the terminal event
	// exactly once.
	if ev, ok := job.TerminalEvent(); ok {
		_ = conn.WriteJSON(ev)
		return
	}

	// Read pump purely for disconnect detection; clients send nothing.
	disconnected := make(chan struct{})
	go func() {
		defer close(disconnected)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev, ok := <-sub:
			if !ok {
				// Hub dropped the job.
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				a.Log.Error().Err(err).Str("job_id", jobID).Msg("ws: send failed")
				return
			}
			if ev.Terminal() {
				return
			}
		case <-disconnected:
			a.Log.Info().Str("job_id", jobID).Msg("ws: client disconnected")
			return
		}
	}
}
