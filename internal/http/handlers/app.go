package handlers

import (
	"encoding/json"
	"net/http"

	"sdxlruntime/internal/domain"
	"sdxlruntime/internal/infra"
	"sdxlruntime/internal/jobqueue"
	"sdxlruntime/internal/notify"
	"sdxlruntime/internal/storage"
)

// App bundles the components the endpoints operate on. The collections are
// injected, never package globals.
type App struct {
	Log      infra.Logger
	Registry *jobqueue.Registry
	Queue    *jobqueue.Queue
	Hub      *notify.Hub
	Store    *storage.FileStore
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]string{"error": code, "message": message})
}

// RetireJob removes every trace of a job: hub entry, registry entry and any
// side-channel artifact. Safe to call more than once.
func (a *App) RetireJob(job *domain.Job) {
	a.Hub.Drop(job.ID)
	a.Registry.Remove(job.ID)
	if err := a.Store.Remove(storage.VideoKey(job.ID)); err != nil {
		a.Log.Warn().Err(err).Str("job_id", job.ID).Msg("retire: artifact cleanup failed")
	}
}
