package classifier

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// DefaultRetainedVariance is the explained-variance fraction PCA keeps.
const DefaultRetainedVariance = 0.95

// ErrNoVariance reports training data whose rows are all identical.
var ErrNoVariance = errors.New("pca: training data has no variance")

// PCA is a fitted linear projection onto the leading principal axes.
type PCA struct {
	Mean                   []float64   `json:"mean"`
	Components             [][]float64 `json:"components"`
	ExplainedVarianceRatio []float64   `json:"explained_variance_ratio"`
}

// FitPCA centres x and keeps the fewest components whose cumulative
// explained variance exceeds retain. The count is capped by
// min(samples, features).
func FitPCA(x [][]float64, retain float64) (*PCA, error) {
	n := len(x)
	if n < 2 {
		return nil, fmt.Errorf("pca: need at least 2 samples, got %d", n)
	}
	if retain <= 0 || retain > 1 {
		retain = DefaultRetainedVariance
	}
	d := len(x[0])
	mean := make([]float64, d)
	for _, row := range x {
		if len(row) != d {
			return nil, fmt.Errorf("pca: ragged input (%d vs %d features)", len(row), d)
		}
		for j, v := range row {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= float64(n)
	}
	centred := mat.NewDense(n, d, nil)
	for i, row := range x {
		for j, v := range row {
			centred.Set(i, j, v-mean[j])
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(centred, mat.SVDThin); !ok {
		return nil, errors.New("pca: svd factorization failed")
	}
	values := svd.Values(nil)
	var total float64
	for _, s := range values {
		total += s * s
	}
	if total == 0 {
		return nil, ErrNoVariance
	}

	k := len(values)
	var cum float64
	for i, s := range values {
		cum += s * s / total
		if cum > retain {
			k = i + 1
			break
		}
	}

	var v mat.Dense
	svd.VTo(&v)
	model := &PCA{Mean: mean, Components: make([][]float64, k), ExplainedVarianceRatio: make([]float64, k)}
	for c := 0; c < k; c++ {
		row := make([]float64, d)
		for j := 0; j < d; j++ {
			row[j] = v.At(j, c)
		}
		model.Components[c] = row
		model.ExplainedVarianceRatio[c] = values[c] * values[c] / total
	}
	return model, nil
}

// Dims returns the number of retained components.
func (p *PCA) Dims() int { return len(p.Components) }

// Transform projects x onto the retained components.
func (p *PCA) Transform(x []float64) []float64 {
	out := make([]float64, len(p.Components))
	for c, comp := range p.Components {
		var dot float64
		for j, w := range comp {
			dot += (x[j] - p.Mean[j]) * w
		}
		out[c] = dot
	}
	return out
}

// InverseTransform maps projected coordinates back to feature space.
func (p *PCA) InverseTransform(z []float64) []float64 {
	out := make([]float64, len(p.Mean))
	copy(out, p.Mean)
	for c, comp := range p.Components {
		for j, w := range comp {
			out[j] += z[c] * w
		}
	}
	return out
}

// ReconstructionError returns the mean squared difference between x and
// its projection round trip.
func (p *PCA) ReconstructionError(x []float64) float64 {
	back := p.InverseTransform(p.Transform(x))
	var sum float64
	for j := range x {
		d := x[j] - back[j]
		sum += d * d
	}
	return sum / float64(len(x))
}
