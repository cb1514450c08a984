package classifier

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// rbf evaluates exp(-gamma * ||a-b||^2).
func rbf(gamma float64, a, b []float64) float64 {
	return math.Exp(-gamma * sqDist(a, b))
}

func sqDist(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// ScaleGamma returns 1 / (n_features * Var(X)), where the variance is taken
// over every element of X. A zero-variance X falls back to 1.
func ScaleGamma(x [][]float64) float64 {
	if len(x) == 0 || len(x[0]) == 0 {
		return 1
	}
	flat := make([]float64, 0, len(x)*len(x[0]))
	for _, row := range x {
		flat = append(flat, row...)
	}
	_, variance := stat.PopMeanVariance(flat, nil)
	if variance == 0 || math.IsNaN(variance) {
		return 1
	}
	return 1 / (float64(len(x[0])) * variance)
}

// AutoGamma returns 1 / n_features.
func AutoGamma(features int) float64 {
	if features <= 0 {
		return 1
	}
	return 1 / float64(features)
}

// kernelMatrix computes the full symmetric RBF Gram matrix of x.
func kernelMatrix(gamma float64, x [][]float64) [][]float64 {
	n := len(x)
	k := make([][]float64, n)
	for i := range k {
		k[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		k[i][i] = 1
		for j := i + 1; j < n; j++ {
			v := rbf(gamma, x[i], x[j])
			k[i][j] = v
			k[j][i] = v
		}
	}
	return k
}

// decision evaluates sum_i coef_i * K(sv_i, x) - rho.
func decision(gamma float64, svs [][]float64, coefs []float64, rho float64, x []float64) float64 {
	var sum float64
	for i, sv := range svs {
		sum += coefs[i] * rbf(gamma, sv, x)
	}
	return sum - rho
}

func cloneRow(row []float64) []float64 {
	out := make([]float64, len(row))
	copy(out, row)
	return out
}

func allFinite(row []float64) bool {
	return !floats.HasNaN(row) && !math.IsInf(floats.Max(row), 1) && !math.IsInf(floats.Min(row), -1)
}
