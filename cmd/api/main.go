package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"sdxlruntime/internal/engine"
	"sdxlruntime/internal/http/handlers"
	"sdxlruntime/internal/http/httpapi"
	"sdxlruntime/internal/infra"
	"sdxlruntime/internal/jobqueue"
	"sdxlruntime/internal/notify"
	"sdxlruntime/internal/storage"
	"sdxlruntime/internal/worker"
)

const reaperInterval = time.Minute

func main() {
	// Load local env vars if present.
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure artifact storage")
	}

	registry := jobqueue.NewRegistry()
	queue := jobqueue.NewQueue()
	hub := notify.NewHub(registry, queue, logger)

	pool := worker.NewPool(worker.Config{
		Workers:         cfg.GenerationWorkers,
		EnableWatermark: cfg.EnableWatermark,
		WatermarkText:   cfg.WatermarkText,
	}, queue, registry, hub, engineFactory(cfg, store, logger), logger)
	pool.Start(ctx)

	app := &handlers.App{
		Log:      logger,
		Registry: registry,
		Queue:    queue,
		Hub:      hub,
		Store:    store,
	}

	if cfg.JobRetentionTTL > 0 {
		reaper := jobqueue.NewReaper(registry, cfg.JobRetentionTTL, reaperInterval, app.RetireJob, logger)
		go reaper.Run(ctx)
	}

	router := httpapi.NewRouter(app, cfg, logger)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().
			Str("model_family", cfg.ModelFamily).
			Int("workers", cfg.GenerationWorkers).
			Msgf("serving runtime listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	pool.Wait()
	logger.Info().Msg("server stopped")
}

// engineFactory binds the configured model family. Every worker slot gets
// its own instance; the pool owns load and lifecycle.
func engineFactory(cfg *infra.Config, store *storage.FileStore, logger infra.Logger) engine.Factory {
	switch cfg.ModelFamily {
	case infra.ModelFamilyWan:
		return func(slot int) (engine.Engine, error) {
			return engine.NewWan(engine.WanOptions{
				ModelID: cfg.ModelID,
				Device:  cfg.Device,
				Store:   store,
				Logger:  logger,
			}), nil
		}
	default:
		return func(slot int) (engine.Engine, error) {
			return engine.NewDiffusers(engine.DiffusersOptions{
				ModelID:    cfg.ModelID,
				Device:     cfg.Device,
				UseRefiner: cfg.UseRefiner,
				Logger:     logger,
			}), nil
		}
	}
}
