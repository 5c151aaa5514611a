// Package watermark tiles translucent text across a generated image. It is a
// pure post-processing step, gated by configuration, applied to the final
// artifact before it becomes the job result.
package watermark

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"
)

// Glyphs are 5x7 bitmaps; enough coverage for watermark notices. Unknown
// runes render as blanks.
const (
	glyphWidth  = 5
	glyphHeight = 7
)

// Apply decodes a PNG, overlays the tiled watermark text and re-encodes it.
func Apply(pngData []byte, text string) ([]byte, error) {
	src, err := png.Decode(bytes.NewReader(pngData))
	if err != nil {
		return nil, fmt.Errorf("watermark: decode image: %w", err)
	}
	bounds := src.Bounds()
	out := image.NewRGBA(bounds)
	draw.Draw(out, bounds, src, bounds.Min, draw.Src)

	text = strings.ToUpper(strings.TrimSpace(text))
	if text == "" {
		text = "AI-GENERATED"
	}

	// Scale the glyphs relative to the image, then stagger rows so the tiles
	// read diagonally.
	scale := maxInt(1, minInt(bounds.Dx(), bounds.Dy())/(glyphHeight*30))
	ink := color.RGBA{R: 255, G: 255, B: 255, A: 128}
	textW := len(text) * (glyphWidth + 1) * scale
	stepX := textW + 4*glyphWidth*scale
	stepY := 3 * glyphHeight * scale

	row := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y += stepY {
		offset := (row * stepX / 3) % stepX
		for x := bounds.Min.X - offset; x < bounds.Max.X; x += stepX {
			drawText(out, x, y, text, scale, ink)
		}
		row++
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("watermark: encode image: %w", err)
	}
	return buf.Bytes(), nil
}

func drawText(dst *image.RGBA, x, y int, text string, scale int, ink color.RGBA) {
	for _, r := range text {
		glyph, ok := font[r]
		if ok {
			drawGlyph(dst, x, y, glyph, scale, ink)
		}
		x += (glyphWidth + 1) * scale
	}
}

func drawGlyph(dst *image.RGBA, x, y int, glyph [glyphHeight]uint8, scale int, ink color.RGBA) {
	bounds := dst.Bounds()
	for gy := 0; gy < glyphHeight; gy++ {
		for gx := 0; gx < glyphWidth; gx++ {
			if glyph[gy]&(1<<(glyphWidth-1-gx)) == 0 {
				continue
			}
			for sy := 0; sy < scale; sy++ {
				for sx := 0; sx < scale; sx++ {
					px, py := x+gx*scale+sx, y+gy*scale+sy
					if px < bounds.Min.X || px >= bounds.Max.X || py < bounds.Min.Y || py >= bounds.Max.Y {
						continue
					}
					blend(dst, px, py, ink)
				}
			}
		}
	}
}

func blend(dst *image.RGBA, x, y int, ink color.RGBA) {
	base := dst.RGBAAt(x, y)
	a := uint32(ink.A)
	inv := 255 - a
	dst.SetRGBA(x, y, color.RGBA{
		R: uint8((uint32(ink.R)*a + uint32(base.R)*inv) / 255),
		G: uint8((uint32(ink.G)*a + uint32(base.G)*inv) / 255),
		B: uint8((uint32(ink.B)*a + uint32(base.B)*inv) / 255),
		A: 255,
	})
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

var font = map[rune][glyphHeight]uint8{
	' ': {},
	'-': {0b00000, 0b00000, 0b00000, 0b11111, 0b00000, 0b00000, 0b00000},
	'.': {0b00000, 0b00000, 0b00000, 0b00000, 0b00000, 0b00110, 0b00110},
	'/': {0b00001, 0b00010, 0b00010, 0b00100, 0b01000, 0b01000, 0b10000},
	':': {0b00000, 0b00110, 0b00110, 0b00000, 0b00110, 0b00110, 0b00000},
	'0': {0b01110, 0b10001, 0b10011, 0b10101, 0b11001, 0b10001, 0b01110},
	'1': {0b00100, 0b01100, 0b00100, 0b00100, 0b00100, 0b00100, 0b01110},
	'2': {0b01110, 0b10001, 0b00001, 0b00010, 0b00100, 0b01000, 0b11111},
	'3': {0b11111, 0b00010, 0b00100, 0b00010, 0b00001, 0b10001, 0b01110},
	'4': {0b00010, 0b00110, 0b01010, 0b10010, 0b11111, 0b00010, 0b00010},
	'5': {0b11111, 0b10000, 0b11110, 0b00001, 0b00001, 0b10001, 0b01110},
	'6': {0b00110, 0b01000, 0b10000, 0b11110, 0b10001, 0b10001, 0b01110},
	'7': {0b11111, 0b00001, 0b00010, 0b00100, 0b01000, 0b01000, 0b01000},
	'8': {0b01110, 0b10001, 0b10001, 0b01110, 0b10001, 0b10001, 0b01110},
	'9': {0b01110, 0b10001, 0b10001, 0b01111, 0b00001, 0b00010, 0b01100},
	'A': {0b01110, 0b10001, 0b10001, 0b11111, 0b10001, 0b10001, 0b10001},
	'B': {0b11110, 0b10001, 0b10001, 0b11110, 0b10001, 0b10001, 0b11110},
	'C': {0b01110, 0b10001, 0b10000, 0b10000, 0b10000, 0b10001, 0b01110},
	'D': {0b11100, 0b10010, 0b10001, 0b10001, 0b10001, 0b10010, 0b11100},
	'E': {0b11111, 0b10000, 0b10000, 0b11110, 0b10000, 0b10000, 0b11111},
	'F': {0b11111, 0b10000, 0b10000, 0b11110, 0b10000, 0b10000, 0b10000},
	'G': {0b01110, 0b10001, 0b10000, 0b10111, 0b10001, 0b10001, 0b01111},
	'H': {0b10001, 0b10001, 0b10001, 0b11111, 0b10001, 0b10001, 0b10001},
	'I': {0b01110, 0b00100, 0b00100, 0b00100, 0b00100, 0b00100, 0b01110},
	'J': {0b00111, 0b00010, 0b00010, 0b00010, 0b00010, 0b10010, 0b01100},
	'K': {0b10001, 0b10010, 0b10100, 0b11000, 0b10100, 0b10010, 0b10001},
	'L': {0b10000, 0b10000, 0b10000, 0b10000, 0b10000, 0b10000, 0b11111},
	'M': {0b10001, 0b11011, 0b10101, 0b10101, 0b10001, 0b10001, 0b10001},
	'N': {0b10001, 0b11001, 0b10101, 0b10011, 0b10001, 0b10001, 0b10001},
	'O': {0b01110, 0b10001, 0b10001, 0b10001, 0b10001, 0b10001, 0b01110},
	'P': {0b11110, 0b10001, 0b10001, 0b11110, 0b10000, 0b10000, 0b10000},
	'Q': {0b01110, 0b10001, 0b10001, 0b10001, 0b10101, 0b10010, 0b01101},
	'R': {0b11110, 0b10001, 0b10001, 0b11110, 0b10100, 0b10010, 0b10001},
	'S': {0b01111, 0b10000, 0b10000, 0b01110, 0b00001, 0b00001, 0b11110},
	'T': {0b11111, 0b00100, 0b00100, 0b00100, 0b00100, 0b00100, 0b00100},
	'U': {0b10001, 0b10001, 0b10001, 0b10001, 0b10001, 0b10001, 0b01110},
	'V': {0b10001, 0b10001, 0b10001, 0b10001, 0b10001, 0b01010, 0b00100},
	'W': {0b10001, 0b10001, 0b10001, 0b10101, 0b10101, 0b10101, 0b01010},
	'X': {0b10001, 0b10001, 0b01010, 0b00100, 0b01010, 0b10001, 0b10001},
	'Y': {0b10001, 0b10001, 0b01010, 0b00100, 0b00100, 0b00100, 0b00100},
	'Z': {0b11111, 0b00001, 0b00010, 0b00100, 0b01000, 0b10000, 0b11111},
}
