package ela

import (
	"image"
	"image/color"
	"math/rand/v2"
	"strings"
	"testing"
)

func flatImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func noisyImage(w, h int, seed uint64) *image.RGBA {
	rng := rand.New(rand.NewPCG(seed, seed))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = uint8(rng.IntN(256))
		img.Pix[i+1] = uint8(rng.IntN(256))
		img.Pix[i+2] = uint8(rng.IntN(256))
		img.Pix[i+3] = 255
	}
	return img
}

func TestAnalyzeDeterministic(t *testing.T) {
	img := noisyImage(64, 48, 7)
	first, err := Analyze(img, Options{})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	second, err := Analyze(img, Options{})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if first != second {
		t.Fatalf("results differ: %+v vs %+v", first, second)
	}
}

func TestAnalyzeSmoothVsNoisy(t *testing.T) {
	smooth, err := Analyze(flatImage(64, 64, color.RGBA{R: 120, G: 130, B: 140, A: 255}), Options{})
	if err != nil {
		t.Fatalf("Analyze smooth: %v", err)
	}
	if !smooth.Valid || smooth.Interpretation != LowNoise {
		t.Fatalf("flat image should read as low noise: %+v", smooth)
	}

	noisy, err := Analyze(noisyImage(64, 64, 1), Options{})
	if err != nil {
		t.Fatalf("Analyze noisy: %v", err)
	}
	if noisy.Interpretation != HighNoise {
		t.Fatalf("random noise should read as high noise: %+v", noisy)
	}
	if noisy.Score <= smooth.Score {
		t.Fatalf("noisy score %.3f not above smooth %.3f", noisy.Score, smooth.Score)
	}
	if noisy.MaxDifference < int(noisy.Score) {
		t.Fatalf("max difference %d below mean %.3f", noisy.MaxDifference, noisy.Score)
	}
}

func TestInterpretThreshold(t *testing.T) {
	if got := Interpret(1.99, 2.0); got != LowNoise {
		t.Fatalf("below threshold = %q", got)
	}
	if got := Interpret(2.0, 2.0); got != HighNoise {
		t.Fatalf("at threshold = %q", got)
	}
}

func TestAnalyzeEmptyImage(t *testing.T) {
	if _, err := Analyze(image.NewRGBA(image.Rect(0, 0, 0, 0)), Options{}); err == nil || !strings.Contains(err.Error(), "empty") {
		t.Fatalf("expected empty image error, got %v", err)
	}
}
