package watermark

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func solidPNG(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestApplyAltersPixels(t *testing.T) {
	src := solidPNG(t, 256, 256, color.RGBA{R: 10, G: 20, B: 30, A: 255})

	out, err := Apply(src, "DEMO")
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 256, 256) {
		t.Fatalf("output bounds = %v, want unchanged", img.Bounds())
	}

	changed := 0
	for y := 0; y < 256; y++ {
		for x := 0; x < 256; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			if uint8(r>>8) != 10 || uint8(g>>8) != 20 || uint8(b>>8) != 30 {
				changed++
			}
		}
	}
	if changed == 0 {
		t.Fatal("no pixels changed, watermark not drawn")
	}
	// The overlay is a tiled notice, not a full fill.
	if changed > 256*256/2 {
		t.Fatalf("%d pixels changed, overlay covers more than half the image", changed)
	}
}

func TestApplyDefaultsEmptyText(t *testing.T) {
	src := solidPNG(t, 128, 128, color.RGBA{A: 255})
	out, err := Apply(src, "   ")
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if bytes.Equal(out, src) {
		t.Fatal("blank text produced no watermark, want default notice")
	}
}

func TestApplyLowercaseMatchesUppercase(t *testing.T) {
	src := solidPNG(t, 128, 128, color.RGBA{R: 200, G: 200, B: 200, A: 255})
	lower, err := Apply(src, "demo only")
	if err != nil {
		t.Fatalf("Apply lower: %v", err)
	}
	upper, err := Apply(src, "DEMO ONLY")
	if err != nil {
		t.Fatalf("Apply upper: %v", err)
	}
	if !bytes.Equal(lower, upper) {
		t.Fatal("case of the input text changed the rendered watermark")
	}
}

func TestApplyRejectsNonPNG(t *testing.T) {
	if _, err := Apply([]byte("definitely not a png"), "DEMO"); err == nil {
		t.Fatal("Apply on junk bytes succeeded")
	}
}

func TestApplyIsDeterministic(t *testing.T) {
	src := solidPNG(t, 200, 120, color.RGBA{R: 64, G: 0, B: 128, A: 255})
	first, err := Apply(src, "AI-GENERATED IMAGE. DEMO PURPOSES ONLY.")
	if err != nil {
		t.Fatalf("first Apply: %v", err)
	}
	second, err := Apply(src, "AI-GENERATED IMAGE. DEMO PURPOSES ONLY.")
	if err != nil {
		t.Fatalf("second Apply: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatal("same input produced different output")
	}
}
