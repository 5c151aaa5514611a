package handlers

import (
	"encoding/json"
	"net/http"

	"sdxlruntime/internal/domain"
)

type generateResponse struct {
	JobID string `json:"job_id"`
}

// Generate admits a request: register the job, enqueue its id and return the
// id immediately. Processing happens asynchronously; subscribers learn their
// queue position from the broadcast this triggers.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	var req domain.GenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	job := a.Registry.Create(req)
	a.Queue.Enqueue(job.ID)
	a.Hub.BroadcastQueuePositions()

	a.Log.Info().Str("job_id", job.ID).Msg("enqueued job")
	a.json(w, http.StatusOK, generateResponse{JobID: job.ID})
}
