// Package ela implements Error Level Analysis: an image is recompressed as
// JPEG and the per-pixel difference against the original is scored.
package ela

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"deepcheck/internal/media/frames"
)

const (
	DefaultQuality   = 90
	DefaultThreshold = 2.0

	LowNoise  = "Low noise (smooth, consistent with synthetic generation or heavy compression)"
	HighNoise = "High noise (natural camera grain)"
)

// Result is the ELA sub-result of an evidence bundle.
type Result struct {
	Valid          bool    `json:"valid"`
	Score          float64 `json:"score"`
	MaxDifference  int     `json:"max_difference"`
	Interpretation string  `json:"interpretation,omitempty"`
	Error          string  `json:"error,omitempty"`
}

// Options tunes the recompression.
type Options struct {
	Quality   int
	Threshold float64
}

func (o Options) withDefaults() Options {
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = DefaultQuality
	}
	if o.Threshold <= 0 {
		o.Threshold = DefaultThreshold
	}
	return o
}

// Invalid builds a failed result carrying reason.
func Invalid(reason string) Result {
	return Result{Valid: false, Error: reason}
}

// Analyze recompresses img and scores the difference. The result is a pure
// function of the pixels and options.
func Analyze(img image.Image, opts Options) (Result, error) {
	opts = opts.withDefaults()
	original := frames.ToRGBA(img)
	bounds := original.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return Result{}, fmt.Errorf("ela: empty image")
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, original, &jpeg.Options{Quality: opts.Quality}); err != nil {
		return Result{}, fmt.Errorf("ela: encode jpeg: %w", err)
	}
	decoded, err := jpeg.Decode(&buf)
	if err != nil {
		return Result{}, fmt.Errorf("ela: decode jpeg: %w", err)
	}
	compressed := frames.ToRGBA(decoded)

	var (
		sum     float64
		maxDiff int
	)
	w, h := bounds.Dx(), bounds.Dy()
	for y := 0; y < h; y++ {
		po := original.Pix[y*original.Stride : y*original.Stride+w*4]
		pc := compressed.Pix[y*compressed.Stride : y*compressed.Stride+w*4]
		for x := 0; x < w; x++ {
			// RGB only; alpha is opaque after the JPEG round trip.
			for c := 0; c < 3; c++ {
				d := absDiff(po[x*4+c], pc[x*4+c])
				sum += float64(d)
				if d > maxDiff {
					maxDiff = d
				}
			}
		}
	}
	score := sum / float64(w*h*3)
	return Result{
		Valid:          true,
		Score:          score,
		MaxDifference:  maxDiff,
		Interpretation: Interpret(score, opts.Threshold),
	}, nil
}

// Interpret maps a mean difference to its human-readable label.
func Interpret(score, threshold float64) string {
	if score < threshold {
		return LowNoise
	}
	return HighNoise
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
