package engine

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strconv"

	"sdxlruntime/internal/domain"
)

// The engines in this package are deterministic synthetic stand-ins for the
// real model pipelines: same interface, same callback cadence, same artifact
// shapes, no GPU. Rendering is seeded from the request so identical requests
// produce identical bytes.

const previewScale = 8

// Valid values for the DEVICE knob, including the offload modes.
var validDevices = map[string]struct{}{
	"cuda":                          {},
	"cpu":                           {},
	"enable_model_cpu_offload":      {},
	"enable_sequential_cpu_offload": {},
}

func validateDevice(device string) error {
	if _, ok := validDevices[device]; !ok {
		return fmt.Errorf("engine: unsupported device %q", device)
	}
	return nil
}

// seedFor derives the rendering seed: an explicit request seed wins,
// otherwise the job id and prompt pin the output.
func seedFor(req domain.GenerationRequest) string {
	if req.Seed != nil {
		return deterministicSeed(*req.Seed)
	}
	return deterministicSeed(req.JobID, req.Prompt, req.NegativePrompt)
}

func deterministicSeed(parts ...any) string {
	hasher := sha256.New()
	for _, part := range parts {
		fmt.Fprintf(hasher, "%v|", part)
	}
	return hex.EncodeToString(hasher.Sum(nil))[:16]
}

func colorFromSeed(seed string, shift int) color.RGBA {
	if len(seed) < 6 {
		seed = "3a7f42c910be58d6"
	}
	doubled := seed + seed
	start := (shift * 6) % len(seed)
	segment := doubled[start : start+6]
	return color.RGBA{
		R: hexByte(segment[0:2]),
		G: hexByte(segment[2:4]),
		B: hexByte(segment[4:6]),
		A: 255,
	}
}

func hexByte(s string) uint8 {
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0
	}
	return uint8(v)
}

// renderFrame draws the synthetic output for the given denoising progress in
// [0, 1]. Detail accretes with progress: the base wash is always present,
// stripes sharpen as progress grows and the diagonal accents only appear in
// the refinement tail, so successive previews visibly converge on the final
// frame.
func renderFrame(width, height int, seed string, progress float64) *image.RGBA {
	if width <= 0 {
		width = domain.DefaultImageSize
	}
	if height <= 0 {
		height = domain.DefaultImageSize
	}
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	base := colorFromSeed(seed, 0)
	accent := colorFromSeed(seed, 1)
	draw.Draw(img, img.Bounds(), &image.Uniform{base}, image.Point{}, draw.Src)

	stripeHeight := maxInt(32, height/12)
	covered := int(float64(height) * progress)
	for y := 0; y < covered; y += stripeHeight * 2 {
		stripe := image.Rect(0, y, width, minInt(covered, y+stripeHeight))
		draw.Draw(img, stripe, &image.Uniform{accent}, image.Point{}, draw.Over)
	}

	if progress > 0.5 {
		diagonal := colorFromSeed(seed, 2)
		step := maxInt(16, width/32)
		for i := 0; i < maxInt(width, height); i += step {
			for y := 0; y < height; y++ {
				x := i + y
				if x >= width {
					break
				}
				img.Set(x, y, diagonal)
			}
		}
	}
	return img
}

// renderPreview is the latents-preview analog: a downscaled snapshot of the
// frame at the current progress, cheap enough to emit every step.
func renderPreview(width, height int, seed string, progress float64) []byte {
	if width <= 0 {
		width = domain.DefaultImageSize
	}
	if height <= 0 {
		height = domain.DefaultImageSize
	}
	pw := maxInt(8, width/previewScale)
	ph := maxInt(8, height/previewScale)
	data, err := encodePNG(renderFrame(pw, ph, seed, progress))
	if err != nil {
		return nil
	}
	return data
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("engine: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
