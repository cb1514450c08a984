// Package spectrum computes the rotation-invariant radial power spectrum
// profile used by the frequency-domain classifier. Generative upsampling
// leaves periodic artifacts that show up as bumps in the high-frequency
// tail of this profile.
package spectrum

import (
	"errors"
	"image"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"deepcheck/internal/media/frames"
)

const (
	// Size is the square edge every image is resized to before the FFT.
	Size = 256
	// Bins is the number of leading radii kept in a profile.
	Bins = 128

	logEpsilon = 1e-9
)

// ErrProfileShape reports a profile whose length does not match Bins.
var ErrProfileShape = errors.New("radial profile has unexpected length")

// Profile converts img to grayscale, resizes it to Size x Size and returns
// the first Bins values of its radial log-magnitude spectrum.
func Profile(img image.Image) []float64 {
	return RadialProfile(Magnitude(frames.GrayMatrix(img, Size, Size), Size, Size), Size, Size, Bins)
}

// Magnitude returns 20*ln(|F|+1e-9) of the centred (fft-shifted) 2-D DFT of
// a row-major h x w matrix.
func Magnitude(values []float64, h, w int) []float64 {
	data := make([]complex128, len(values))
	for i, v := range values {
		data[i] = complex(v, 0)
	}
	fft2(data, h, w)

	out := make([]float64, h*w)
	for y := 0; y < h; y++ {
		sy := (y + h/2) % h
		for x := 0; x < w; x++ {
			sx := (x + w/2) % w
			mag := math.Hypot(real(data[y*w+x]), imag(data[y*w+x]))
			out[sy*w+sx] = 20 * math.Log(mag+logEpsilon)
		}
	}
	return out
}

// fft2 transforms a row-major h x w matrix in place: rows first, then
// columns.
func fft2(data []complex128, h, w int) {
	rowFFT := fourier.NewCmplxFFT(w)
	for y := 0; y < h; y++ {
		row := data[y*w : (y+1)*w]
		rowFFT.Coefficients(row, row)
	}
	colFFT := fourier.NewCmplxFFT(h)
	col := make([]complex128, h)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			col[y] = data[y*w+x]
		}
		colFFT.Coefficients(col, col)
		for y := 0; y < h; y++ {
			data[y*w+x] = col[y]
		}
	}
}

// RadialProfile averages values over integer radius rings around
// (h/2, w/2), truncating each pixel's distance toward zero, and returns the
// first limit rings.
func RadialProfile(values []float64, h, w, limit int) []float64 {
	cy, cx := h/2, w/2
	maxR := int(math.Hypot(float64(max(cy, h-1-cy)), float64(max(cx, w-1-cx)))) + 1
	sums := make([]float64, maxR+1)
	counts := make([]int, maxR+1)
	for y := 0; y < h; y++ {
		dy := float64(y - cy)
		for x := 0; x < w; x++ {
			dx := float64(x - cx)
			r := int(math.Sqrt(dx*dx + dy*dy))
			sums[r] += values[y*w+x]
			counts[r]++
		}
	}
	if limit > len(sums) {
		limit = len(sums)
	}
	out := make([]float64, limit)
	for r := 0; r < limit; r++ {
		if counts[r] > 0 {
			out[r] = sums[r] / float64(counts[r])
		}
	}
	return out
}

// CheckShape validates a stored or incoming feature vector.
func CheckShape(profile []float64) error {
	if len(profile) != Bins {
		return ErrProfileShape
	}
	return nil
}
