package classifier

import (
	"errors"
	"fmt"
	"math"
)

// DefaultNu bounds the fraction of training outliers and support vectors.
const DefaultNu = 0.1

// OneClassSVM is a trained novelty detector. Positive decision values are
// inliers.
type OneClassSVM struct {
	Gamma          float64     `json:"gamma"`
	Nu             float64     `json:"nu"`
	Rho            float64     `json:"rho"`
	SupportVectors [][]float64 `json:"support_vectors"`
	Coefs          []float64   `json:"coefs"`
}

// TrainOneClass fits the estimator on x. Zero gamma selects AutoGamma.
func TrainOneClass(x [][]float64, nu, gamma float64) (*OneClassSVM, error) {
	n := len(x)
	if n == 0 {
		return nil, errors.New("one-class svm: no samples")
	}
	if nu <= 0 || nu > 1 {
		return nil, fmt.Errorf("one-class svm: nu %.3f outside (0, 1]", nu)
	}
	if gamma <= 0 {
		gamma = AutoGamma(len(x[0]))
	}

	// Start from a feasible point: the first floor(nu*n) alphas at the
	// bound, one fractional, the rest zero, so sum(alpha) = nu*n.
	alpha := make([]float64, n)
	total := nu * float64(n)
	whole := int(math.Floor(total))
	for i := 0; i < whole && i < n; i++ {
		alpha[i] = 1
	}
	if whole < n {
		alpha[whole] = total - float64(whole)
	}

	prob := &smoProblem{
		k:     kernelMatrix(gamma, x),
		y:     constant(n, 1),
		p:     make([]float64, n),
		c:     1,
		alpha: alpha,
	}
	sol, err := prob.solve()
	if err != nil && !errors.Is(err, ErrNotConverged) {
		return nil, err
	}
	model := &OneClassSVM{Gamma: gamma, Nu: nu, Rho: sol.rho}
	for i, a := range sol.alpha {
		if a > 0 {
			model.SupportVectors = append(model.SupportVectors, cloneRow(x[i]))
			model.Coefs = append(model.Coefs, a)
		}
	}
	return model, nil
}

// Decision returns the signed score of x; > 0 is an inlier.
func (m *OneClassSVM) Decision(x []float64) float64 {
	return decision(m.Gamma, m.SupportVectors, m.Coefs, m.Rho, x)
}

// Inlier reports whether x falls inside the learned support.
func (m *OneClassSVM) Inlier(x []float64) bool {
	return m.Decision(x) > 0
}
