package classifier

import (
	"errors"
	"math"
)

const (
	smoTolerance = 1e-3
	smoTau       = 1e-12
)

// ErrNotConverged reports an SMO run that hit its iteration cap.
var ErrNotConverged = errors.New("svm solver did not converge")

// smoProblem is the dual
//
//	min 0.5 a'Qa + p'a  s.t.  y'a = const, 0 <= a_i <= c
//
// with Q_ij = y_i y_j K_ij.
type smoProblem struct {
	k     [][]float64
	y     []float64
	p     []float64
	c     float64
	alpha []float64
}

type smoSolution struct {
	alpha      []float64
	rho        float64
	iterations int
}

func (s *smoProblem) q(i, j int) float64 {
	return s.y[i] * s.y[j] * s.k[i][j]
}

func (s *smoProblem) upper(i int) bool { return s.alpha[i] >= s.c }
func (s *smoProblem) lower(i int) bool { return s.alpha[i] <= 0 }

func (s *smoProblem) solve() (smoSolution, error) {
	n := len(s.y)
	grad := make([]float64, n)
	copy(grad, s.p)
	for j := 0; j < n; j++ {
		if s.alpha[j] == 0 {
			continue
		}
		for i := 0; i < n; i++ {
			grad[i] += s.q(i, j) * s.alpha[j]
		}
	}

	maxIter := max(10_000_000, 100*n)
	iter := 0
	for ; iter < maxIter; iter++ {
		i, j, done := s.selectWorkingSet(grad)
		if done {
			break
		}
		s.update(i, j, grad)
	}
	sol := smoSolution{alpha: s.alpha, rho: s.rho(grad), iterations: iter}
	if iter >= maxIter {
		return sol, ErrNotConverged
	}
	return sol, nil
}

// selectWorkingSet picks the maximal violating pair using second-order
// gain for the second index.
func (s *smoProblem) selectWorkingSet(grad []float64) (int, int, bool) {
	n := len(s.y)
	gmax, gmax2 := math.Inf(-1), math.Inf(-1)
	i := -1
	for t := 0; t < n; t++ {
		if s.y[t] > 0 {
			if !s.upper(t) && -grad[t] >= gmax {
				gmax, i = -grad[t], t
			}
		} else if !s.lower(t) && grad[t] >= gmax {
			gmax, i = grad[t], t
		}
	}
	if i < 0 {
		return 0, 0, true
	}

	j := -1
	objMin := math.Inf(1)
	for t := 0; t < n; t++ {
		var gradDiff float64
		if s.y[t] > 0 {
			if s.lower(t) {
				continue
			}
			gradDiff = gmax + grad[t]
			gmax2 = math.Max(gmax2, grad[t])
		} else {
			if s.upper(t) {
				continue
			}
			gradDiff = gmax - grad[t]
			gmax2 = math.Max(gmax2, -grad[t])
		}
		quad := s.k[i][i] + s.k[t][t] - 2*s.k[i][t]
		if gradDiff <= 0 {
			continue
		}
		if quad <= 0 {
			quad = smoTau
		}
		if obj := -(gradDiff * gradDiff) / quad; obj <= objMin {
			objMin, j = obj, t
		}
	}
	if gmax+gmax2 < smoTolerance || j < 0 {
		return 0, 0, true
	}
	return i, j, false
}

func (s *smoProblem) update(i, j int, grad []float64) {
	c := s.c
	oldI, oldJ := s.alpha[i], s.alpha[j]
	ai, aj := oldI, oldJ
	qii, qjj, qij := s.k[i][i], s.k[j][j], s.q(i, j)

	if s.y[i] != s.y[j] {
		quad := qii + qjj + 2*qij
		if quad <= 0 {
			quad = smoTau
		}
		delta := (-grad[i] - grad[j]) / quad
		diff := ai - aj
		ai += delta
		aj += delta
		if diff > 0 {
			if aj < 0 {
				aj, ai = 0, diff
			}
		} else if ai < 0 {
			ai, aj = 0, -diff
		}
		if diff > 0 {
			if ai > c {
				ai, aj = c, c-diff
			}
		} else if aj > c {
			aj, ai = c, c+diff
		}
	} else {
		quad := qii + qjj - 2*qij
		if quad <= 0 {
			quad = smoTau
		}
		delta := (grad[i] - grad[j]) / quad
		sum := ai + aj
		ai -= delta
		aj += delta
		if sum > c {
			if ai > c {
				ai, aj = c, sum-c
			}
		} else if aj < 0 {
			aj, ai = 0, sum
		}
		if sum > c {
			if aj > c {
				aj, ai = c, sum-c
			}
		} else if ai < 0 {
			ai, aj = 0, sum
		}
	}
	s.alpha[i], s.alpha[j] = ai, aj

	di, dj := ai-oldI, aj-oldJ
	for t := range grad {
		grad[t] += s.q(t, i)*di + s.q(t, j)*dj
	}
}

// rho is the offset of the decision function: the mean of y_i*grad_i over
// free variables, or the midpoint of the feasible interval when none are
// free.
func (s *smoProblem) rho(grad []float64) float64 {
	ub, lb := math.Inf(1), math.Inf(-1)
	var sumFree float64
	free := 0
	for i := range s.y {
		yg := s.y[i] * grad[i]
		switch {
		case s.upper(i):
			if s.y[i] < 0 {
				ub = math.Min(ub, yg)
			} else {
				lb = math.Max(lb, yg)
			}
		case s.lower(i):
			if s.y[i] > 0 {
				ub = math.Min(ub, yg)
			} else {
				lb = math.Max(lb, yg)
			}
		default:
			free++
			sumFree += yg
		}
	}
	if free > 0 {
		return sumFree / float64(free)
	}
	return (ub + lb) / 2
}
