package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"sdxlruntime/internal/storage"
)

// Video streams the job's side-channel artifact as an attachment download.
// The artifact is keyed by job id, so concurrent video jobs never serve each
// other's files. The file may outlive the registry entry until retirement,
// so presence on disk is what decides, not the registry.
func (a *App) Video(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")

	f, err := a.Store.Open(storage.VideoKey(jobID))
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "video not found")
		return
	}
	defer f.Close()

	modTime := time.Time{}
	if info, err := f.Stat(); err == nil {
		modTime = info.ModTime()
	}

	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", jobID+".mp4"))
	http.ServeContent(w, r, jobID+".mp4", modTime, f)
}
