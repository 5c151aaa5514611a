package worker

import (
	"context"
	"encoding/base64"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"sdxlruntime/internal/domain"
	"sdxlruntime/internal/engine"
	"sdxlruntime/internal/jobqueue"
	"sdxlruntime/internal/notify"
	"sdxlruntime/internal/storage"
	"sdxlruntime/internal/watermark"
)

// Config carries the pool knobs the core consumes.
type Config struct {
	Workers         int
	EnableWatermark bool
	WatermarkText   string
}

// Pool drains the admission queue with a fixed set of workers. Each worker
// owns one engine instance for the life of the process, so the engine is
// never invoked concurrently and its load cost is amortized across the jobs
// that worker processes sequentially.
type Pool struct {
	cfg      Config
	queue    *jobqueue.Queue
	registry *jobqueue.Registry
	hub      *notify.Hub
	log      zerolog.Logger

	engines []engine.Engine
	wg      sync.WaitGroup
}

// NewPool constructs one engine per worker slot via the factory. A slot
// whose factory fails is skipped; the pool degrades rather than aborting.
func NewPool(cfg Config, queue *jobqueue.Queue, registry *jobqueue.Registry, hub *notify.Hub, factory engine.Factory, log zerolog.Logger) *Pool {
	p := &Pool{
		cfg:      cfg,
		queue:    queue,
		registry: registry,
		hub:      hub,
		log:      log,
	}
	for slot := 0; slot < cfg.Workers; slot++ {
		eng, err := factory(slot)
		if err != nil {
			log.Error().Err(err).Int("worker", slot).Msg("pool: engine construction failed, skipping worker")
			continue
		}
		p.engines = append(p.engines, eng)
	}
	return p
}

// Start loads each engine and launches its worker goroutine. Workers whose
// engine fails to load are not started. An empty pool leaves the service up
// but unable to drain the queue, which is logged loudly.
func (p *Pool) Start(ctx context.Context) {
	started := 0
	for slot, eng := range p.engines {
		if err := eng.Load(ctx); err != nil {
			p.log.Error().Err(err).Int("worker", slot).Msg("pool: engine load failed, worker not started")
			continue
		}
		p.wg.Add(1)
		go p.run(ctx, slot, eng)
		started++
	}
	if started == 0 {
		p.log.Error().Int("configured", p.cfg.Workers).Msg("pool: no workers started, queued jobs will never be processed")
		return
	}
	p.log.Info().Int("workers", started).Int("configured", p.cfg.Workers).Msg("pool: workers started")
}

// Wait blocks until every worker has returned.
func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) run(ctx context.Context, slot int, eng engine.Engine) {
	defer p.wg.Done()
	for {
		id, err := p.queue.Take(ctx, p.claim)
		if err != nil {
			return
		}
		job, err := p.registry.Get(id)
		if err != nil {
			// Retired while queued (reaper never does this, but Remove is
			// public); nothing to process.
			p.log.Warn().Str("job_id", id).Msg("pool: dequeued unknown job")
			continue
		}
		p.process(ctx, slot, eng, job)
	}
}

// claim runs under the queue lock: the queued -> processing transition is
// atomic with the dequeue, so position queries never see a claimed job.
func (p *Pool) claim(id string) {
	if job, err := p.registry.Get(id); err == nil {
		job.MarkProcessing()
	}
}

func (p *Pool) process(ctx context.Context, slot int, eng engine.Engine, job *domain.Job) {
	p.log.Info().Int("worker", slot).Str("job_id", job.ID).Msg("pool: processing job")

	// Remaining queued jobs moved up a rank.
	p.hub.BroadcastQueuePositions()
	p.hub.Publish(job, domain.Event{Status: domain.StatusProcessing, Message: "Job is processing."})

	onBase := p.progressFunc(job, domain.PipelineBase)
	onRefiner := p.progressFunc(job, domain.PipelineRefiner)

	start := time.Now()
	artifact, err := p.predict(ctx, eng, job.Request, onBase, onRefiner)
	elapsed := roundSeconds(time.Since(start))

	if err != nil {
		if artifact != nil && artifact.VideoKey != "" {
			// The durable deliverable exists even though a later step failed:
			// report success with a warning instead of failing the job.
			p.finishPartial(job, artifact, elapsed, err)
			return
		}
		p.fail(slot, job, err)
		return
	}

	result := artifact.ImagePNG
	if p.cfg.EnableWatermark {
		marked, werr := watermark.Apply(result, p.cfg.WatermarkText)
		if werr != nil {
			if artifact.VideoKey != "" {
				p.finishPartial(job, artifact, elapsed, werr)
				return
			}
			p.fail(slot, job, werr)
			return
		}
		result = marked
	}

	ev := domain.Event{
		Status:         domain.StatusCompleted,
		Image:          base64.StdEncoding.EncodeToString(result),
		ProcessingTime: elapsed,
	}
	if artifact.VideoKey != "" {
		ev.VideoURL = "/video/" + job.ID
	}
	if job.Complete(ev) {
		p.hub.Publish(job, ev)
	}
	p.log.Info().
		Int("worker", slot).
		Str("job_id", job.ID).
		Float64("processing_time", elapsed).
		Msg("pool: completed job")
}

func (p *Pool) progressFunc(job *domain.Job, pipeline domain.Pipeline) engine.ProgressFunc {
	return func(step int, preview []byte) {
		ev := domain.Event{
			Status:   domain.StatusProgress,
			Pipeline: pipeline,
			Step:     step,
		}
		if len(preview) > 0 {
			ev.Image = base64.StdEncoding.EncodeToString(preview)
		}
		p.hub.Publish(job, ev)
	}
}

// predict isolates engine misbehavior: a panic inside the engine becomes a
// per-job failure, never a dead worker.
func (p *Pool) predict(ctx context.Context, eng engine.Engine, req domain.GenerationRequest, onBase, onRefiner engine.ProgressFunc) (artifact *engine.Artifact, err error) {
	defer func() {
		if r := recover(); r != nil {
			artifact = nil
			err = fmt.Errorf("%w: panic: %v", domain.ErrEngineFailure, r)
		}
	}()
	return eng.Predict(ctx, req, onBase, onRefiner)
}

func (p *Pool) finishPartial(job *domain.Job, artifact *engine.Artifact, elapsed float64, cause error) {
	ev := domain.Event{
		Status:         domain.StatusCompleted,
		VideoURL:       "/video/" + job.ID,
		ProcessingTime: elapsed,
		Warning:        fmt.Sprintf("preview unavailable: %v", cause),
	}
	if len(artifact.ImagePNG) > 0 {
		ev.Image = base64.StdEncoding.EncodeToString(artifact.ImagePNG)
	}
	if job.Complete(ev) {
		p.hub.Publish(job, ev)
	}
	p.log.Warn().
		Err(cause).
		Str("job_id", job.ID).
		Str("video_key", storage.VideoKey(job.ID)).
		Msg("pool: completed job with partial artifact")
}

func (p *Pool) fail(slot int, job *domain.Job, cause error) {
	ev := domain.Event{Status: domain.StatusFailed, Message: cause.Error()}
	if job.Fail(ev) {
		p.hub.Publish(job, ev)
	}
	p.log.Error().Err(cause).Int("worker", slot).Str("job_id", job.ID).Msg("pool: job failed")
}

func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}
