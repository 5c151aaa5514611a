package httpapi

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"sdxlruntime/internal/http/handlers"
	"sdxlruntime/internal/infra"
	"sdxlruntime/internal/middleware"
)

// NewRouter wires the endpoint surface. /progress/{job_id} serves both the
// poll and the push transport: WebSocket upgrades are detected on the shared
// GET route.
func NewRouter(app *handlers.App, cfg *infra.Config, log infra.Logger) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP, middleware.RequestID, middleware.Logger(log), chimiddleware.Recoverer, middleware.CORS())
	if cfg.RateLimitPerMin > 0 {
		r.Use(middleware.RateLimit(cfg.RateLimitPerMin, time.Minute))
	}

	r.Get("/health", app.Health)
	r.Post("/generate", app.Generate)
	r.Get("/progress/{job_id}", func(w stdhttp.ResponseWriter, req *stdhttp.Request) {
		if websocket.IsWebSocketUpgrade(req) {
			app.ProgressSocket(w, req)
			return
		}
		app.Progress(w, req)
	})
	r.Get("/video/{job_id}", app.Video)

	return r
}
