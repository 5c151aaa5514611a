package engine

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"sdxlruntime/internal/domain"
)

// DiffusersOptions configure the image model family.
type DiffusersOptions struct {
	ModelID    string
	Device     string
	UseRefiner bool
	Logger     zerolog.Logger
}

// Diffusers is the SDXL-style image family: a base stage over the denoising
// budget and an optional refiner stage over the remainder.
type Diffusers struct {
	modelID    string
	device     string
	useRefiner bool
	log        zerolog.Logger
	loaded     bool
}

// NewDiffusers builds an unloaded engine instance.
func NewDiffusers(opts DiffusersOptions) *Diffusers {
	return &Diffusers{
		modelID:    opts.ModelID,
		device:     opts.Device,
		useRefiner: opts.UseRefiner,
		log:        opts.Logger,
	}
}

// Load validates the device and readies the instance. Model loading is the
// expensive part in production, which is why the pool amortizes it across
// the jobs processed by the owning worker.
func (e *Diffusers) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateDevice(e.device); err != nil {
		return err
	}
	e.loaded = true
	e.log.Info().
		Str("model_id", e.modelID).
		Str("device", e.device).
		Bool("use_refiner", e.useRefiner).
		Msg("diffusers: model loaded")
	return nil
}

// Predict runs the denoising loop, reporting each step through the stage
// callbacks, and returns the final PNG.
func (e *Diffusers) Predict(ctx context.Context, req domain.GenerationRequest, onBase, onRefiner ProgressFunc) (*Artifact, error) {
	if !e.loaded {
		return nil, errors.New("diffusers: model not loaded")
	}

	width, height := req.Width, req.Height
	if width <= 0 {
		width = domain.DefaultImageSize
	}
	if height <= 0 {
		height = domain.DefaultImageSize
	}

	seed := seedFor(req)
	steps := req.NumInferenceSteps
	baseSteps := steps
	refinerSteps := 0
	if e.useRefiner {
		baseSteps = maxInt(1, int(float64(steps)*req.DenoisingLimit))
		refinerSteps = steps - baseSteps
	}

	for step := 1; step <= baseSteps; step++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if onBase != nil {
			progress := float64(step) / float64(steps)
			onBase(step, renderPreview(width, height, seed, progress))
		}
	}
	for step := 1; step <= refinerSteps; step++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if onRefiner != nil {
			progress := float64(baseSteps+step) / float64(steps)
			onRefiner(step, renderPreview(width, height, seed, progress))
		}
	}

	final, err := encodePNG(renderFrame(width, height, seed, 1.0))
	if err != nil {
		return nil, err
	}
	return &Artifact{ImagePNG: final}, nil
}
