package domain

import "strings"

// Defaults applied to a generation request before it is enqueued. The video
// dimensions differ from the image ones because video model families trade
// resolution for frame count.
const (
	DefaultGuidanceScale  = 8.0
	DefaultInferenceSteps = 50
	DefaultDenoisingLimit = 0.8
	DefaultImageSize      = 1024
	DefaultVideoWidth     = 832
	DefaultVideoHeight    = 480
	DefaultNumFrames      = 81
	DefaultFPS            = 15
)

// GenerationRequest carries the client-supplied parameters for one job. The
// field set mirrors the SDXL pipeline surface; video-capable model families
// additionally consume NumFrames and FPS. JobID is assigned by the registry
// at admission and is never taken from the wire.
type GenerationRequest struct {
	Prompt            string  `json:"prompt"`
	Prompt2           string  `json:"prompt_2,omitempty"`
	NegativePrompt    string  `json:"negative_prompt,omitempty"`
	NegativePrompt2   string  `json:"negative_prompt_2,omitempty"`
	Height            int     `json:"height,omitempty"`
	Width             int     `json:"width,omitempty"`
	GuidanceScale     float64 `json:"guidance_scale,omitempty"`
	GuidanceRescale   float64 `json:"guidance_rescale,omitempty"`
	NumInferenceSteps int     `json:"num_inference_steps,omitempty"`
	DenoisingLimit    float64 `json:"denoising_limit,omitempty"`
	Eta               float64 `json:"eta,omitempty"`
	Seed              *int64  `json:"seed,omitempty"`
	NumFrames         int     `json:"num_frames,omitempty"`
	FPS               int     `json:"fps,omitempty"`

	JobID string `json:"-"`
}

// Normalize fills unset fields with pipeline defaults.
func (r *GenerationRequest) Normalize() {
	if r.GuidanceScale <= 0 {
		r.GuidanceScale = DefaultGuidanceScale
	}
	if r.NumInferenceSteps <= 0 {
		r.NumInferenceSteps = DefaultInferenceSteps
	}
	if r.DenoisingLimit <= 0 || r.DenoisingLimit > 1 {
		r.DenoisingLimit = DefaultDenoisingLimit
	}
	// Width and height stay unset here: each model family applies its own
	// defaults (1024x1024 for images, 832x480 for video).
	if r.NumFrames <= 0 {
		r.NumFrames = DefaultNumFrames
	}
	if r.FPS <= 0 {
		r.FPS = DefaultFPS
	}
}

// Validate reports whether the request can be admitted.
func (r *GenerationRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return ErrInvalidPrompt
	}
	return nil
}
