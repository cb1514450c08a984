// Package flux measures frame-to-frame motion consistency. Natural footage
// moves unevenly; generated clips tend toward either frozen or uniformly
// drifting motion, which shows up in the variance of adjacent-frame flux.
package flux

import (
	"errors"
	"image"

	"gonum.org/v1/gonum/stat"

	"deepcheck/internal/media/frames"
)

const (
	DefaultSamples = 8
	AnalysisWidth  = 160
	AnalysisHeight = 90

	NotApplicableStill = "not applicable to still images"
)

// ErrTooFewFrames reports fewer than two decodable samples.
var ErrTooFewFrames = errors.New("at least two decodable frames are required")

// Result is the frame consistency sub-result of an evidence bundle.
type Result struct {
	Valid         bool    `json:"valid"`
	FluxScore     float64 `json:"flux_score"`
	AvgMovement   float64 `json:"avg_movement"`
	FramesSampled int     `json:"frames_sampled"`
	Error         string  `json:"error,omitempty"`
}

// Invalid builds a failed result carrying reason.
func Invalid(reason string, sampled int) Result {
	return Result{Valid: false, FramesSampled: sampled, Error: reason}
}

// Analyze scores the ordered samples. Each frame is reduced to grayscale at
// the common analysis size before differencing.
func Analyze(samples []image.Image) (Result, error) {
	if len(samples) < 2 {
		return Invalid(ErrTooFewFrames.Error(), len(samples)), ErrTooFewFrames
	}
	mats := make([][]float64, len(samples))
	for i, img := range samples {
		mats[i] = frames.GrayMatrix(img, AnalysisWidth, AnalysisHeight)
	}
	flux := Series(mats)
	// Population variance, matching a plain mean of squared deviations.
	mean, variance := stat.PopMeanVariance(flux, nil)
	return Result{
		Valid:         true,
		FluxScore:     variance,
		AvgMovement:   mean,
		FramesSampled: len(samples),
	}, nil
}

// Series returns the mean absolute difference between each pair of adjacent
// equally sized intensity matrices.
func Series(mats [][]float64) []float64 {
	if len(mats) < 2 {
		return nil
	}
	out := make([]float64, 0, len(mats)-1)
	for i := 1; i < len(mats); i++ {
		prev, cur := mats[i-1], mats[i]
		var sum float64
		for j := range cur {
			d := cur[j] - prev[j]
			if d < 0 {
				d = -d
			}
			sum += d
		}
		out = append(out, sum/float64(len(cur)))
	}
	return out
}
