package engine

import (
	"context"

	"sdxlruntime/internal/domain"
)

// ProgressFunc receives per-step progress for one pipeline stage together
// with a PNG-encoded preview of the current latents. Steps are 1-based.
type ProgressFunc func(step int, previewPNG []byte)

// Artifact is the outcome of one prediction. ImagePNG is the primary
// deliverable for image families and the first-frame preview for video
// families; VideoKey names a durable file in the artifact store when the
// family produces one. Predict may return a non-nil Artifact together with an
// error when the side-channel artifact was durably written but a later step
// failed; the worker downgrades that case to completed-with-warning.
type Artifact struct {
	ImagePNG []byte
	VideoKey string
}

// Engine is the capability surface the worker pool drives. Load runs once
// per worker slot at startup; Predict runs one job to completion and may
// invoke the callbacks zero or more times. An instance is owned by a single
// worker and is never invoked concurrently.
type Engine interface {
	Load(ctx context.Context) error
	Predict(ctx context.Context, req domain.GenerationRequest, onBase, onRefiner ProgressFunc) (*Artifact, error)
}

// Factory constructs the engine bound to one worker slot.
type Factory func(slot int) (Engine, error)
