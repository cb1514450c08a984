package classifier

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
)

// Class labels used throughout training and inference.
const (
	LabelReal = 0
	LabelFake = 1
)

const defaultProbabilityFolds = 5

// ErrSingleClass reports training data that contains only one label.
var ErrSingleClass = errors.New("training data must contain both classes")

// SVCParams configures C-SVC training.
type SVCParams struct {
	C float64
	// Gamma of the RBF kernel; zero selects ScaleGamma of the training set.
	Gamma float64
	// Probability enables Platt scaling fitted on cross-validated decision values.
	Probability bool
	Folds       int
	Seed        uint64
}

// SVC is a trained binary RBF support vector classifier. A positive
// decision value means LabelFake.
type SVC struct {
	Gamma          float64     `json:"gamma"`
	Rho            float64     `json:"rho"`
	SupportVectors [][]float64 `json:"support_vectors"`
	Coefs          []float64   `json:"coefs"`
	ProbA          float64     `json:"prob_a"`
	ProbB          float64     `json:"prob_b"`
	HasProbability bool        `json:"has_probability"`
}

// TrainSVC fits a classifier on rows x with labels LabelReal/LabelFake.
func TrainSVC(x [][]float64, labels []int, params SVCParams) (*SVC, error) {
	if len(x) == 0 || len(x) != len(labels) {
		return nil, fmt.Errorf("svc: %d samples with %d labels", len(x), len(labels))
	}
	if params.C <= 0 {
		params.C = 1
	}
	if params.Gamma <= 0 {
		params.Gamma = ScaleGamma(x)
	}
	y := signs(labels)
	if !hasBothSigns(y) {
		return nil, ErrSingleClass
	}

	model, err := fitBinary(x, y, params.C, params.Gamma)
	if err != nil {
		return nil, err
	}
	if params.Probability {
		folds := params.Folds
		if folds <= 1 {
			folds = defaultProbabilityFolds
		}
		dec, err := crossValidatedDecisions(x, y, params.C, params.Gamma, folds, params.Seed)
		if err != nil {
			return nil, err
		}
		model.ProbA, model.ProbB = fitSigmoid(dec, y)
		model.HasProbability = true
	}
	return model, nil
}

// Decision returns the signed distance-like score of x.
func (m *SVC) Decision(x []float64) float64 {
	return decision(m.Gamma, m.SupportVectors, m.Coefs, m.Rho, x)
}

// Predict returns LabelFake for a positive decision value, else LabelReal.
func (m *SVC) Predict(x []float64) int {
	if m.Decision(x) > 0 {
		return LabelFake
	}
	return LabelReal
}

// ProbabilityFake returns the Platt-scaled probability of LabelFake. Models
// trained without probability fall back to a hard 0/1.
func (m *SVC) ProbabilityFake(x []float64) float64 {
	dec := m.Decision(x)
	if !m.HasProbability {
		if dec > 0 {
			return 1
		}
		return 0
	}
	return sigmoidPredict(dec, m.ProbA, m.ProbB)
}

func fitBinary(x [][]float64, y []float64, c, gamma float64) (*SVC, error) {
	n := len(x)
	prob := &smoProblem{
		k:     kernelMatrix(gamma, x),
		y:     y,
		p:     constant(n, -1),
		c:     c,
		alpha: make([]float64, n),
	}
	sol, err := prob.solve()
	if err != nil && !errors.Is(err, ErrNotConverged) {
		return nil, err
	}
	model := &SVC{Gamma: gamma, Rho: sol.rho}
	for i, a := range sol.alpha {
		if a > 0 {
			model.SupportVectors = append(model.SupportVectors, cloneRow(x[i]))
			model.Coefs = append(model.Coefs, a*y[i])
		}
	}
	return model, nil
}

// crossValidatedDecisions returns out-of-fold decision values for every
// sample over a seeded random fold assignment.
func crossValidatedDecisions(x [][]float64, y []float64, c, gamma float64, folds int, seed uint64) ([]float64, error) {
	n := len(x)
	if folds > n {
		folds = n
	}
	perm := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)).Perm(n)
	dec := make([]float64, n)
	for f := 0; f < folds; f++ {
		begin, end := f*n/folds, (f+1)*n/folds
		var trainX [][]float64
		var trainY []float64
		for _, idx := range append(append([]int(nil), perm[:begin]...), perm[end:]...) {
			trainX = append(trainX, x[idx])
			trainY = append(trainY, y[idx])
		}
		held := perm[begin:end]
		if !hasBothSigns(trainY) {
			// A one-class fold votes for the class it saw.
			v := -1.0
			if len(trainY) > 0 && trainY[0] > 0 {
				v = 1
			}
			for _, idx := range held {
				dec[idx] = v
			}
			continue
		}
		model, err := fitBinary(trainX, trainY, c, gamma)
		if err != nil {
			return nil, err
		}
		for _, idx := range held {
			dec[idx] = model.Decision(x[idx])
		}
	}
	return dec, nil
}

// fitSigmoid fits P(y=1|f) = 1/(1+exp(A*f+B)) by Newton's method with
// backtracking line search, using the regularized targets of Platt's
// formulation.
func fitSigmoid(dec, y []float64) (float64, float64) {
	const (
		maxIter = 100
		minStep = 1e-10
		sigma   = 1e-12
		eps     = 1e-5
	)
	var prior1, prior0 float64
	for _, v := range y {
		if v > 0 {
			prior1++
		} else {
			prior0++
		}
	}
	hi := (prior1 + 1) / (prior1 + 2)
	lo := 1 / (prior0 + 2)
	t := make([]float64, len(y))
	for i, v := range y {
		if v > 0 {
			t[i] = hi
		} else {
			t[i] = lo
		}
	}

	objective := func(a, b float64) float64 {
		var f float64
		for i := range dec {
			fApB := dec[i]*a + b
			if fApB >= 0 {
				f += t[i]*fApB + math.Log1p(math.Exp(-fApB))
			} else {
				f += (t[i]-1)*fApB + math.Log1p(math.Exp(fApB))
			}
		}
		return f
	}

	a, b := 0.0, math.Log((prior0+1)/(prior1+1))
	fval := objective(a, b)
	for iter := 0; iter < maxIter; iter++ {
		h11, h22, h21, g1, g2 := sigma, sigma, 0.0, 0.0, 0.0
		for i := range dec {
			fApB := dec[i]*a + b
			var p, q float64
			if fApB >= 0 {
				e := math.Exp(-fApB)
				p, q = e/(1+e), 1/(1+e)
			} else {
				e := math.Exp(fApB)
				p, q = 1/(1+e), e/(1+e)
			}
			d2 := p * q
			h11 += dec[i] * dec[i] * d2
			h22 += d2
			h21 += dec[i] * d2
			d1 := t[i] - p
			g1 += dec[i] * d1
			g2 += d1
		}
		if math.Abs(g1) < eps && math.Abs(g2) < eps {
			break
		}
		det := h11*h22 - h21*h21
		dA := -(h22*g1 - h21*g2) / det
		dB := -(-h21*g1 + h11*g2) / det
		gd := g1*dA + g2*dB

		step := 1.0
		for step >= minStep {
			na, nb := a+step*dA, b+step*dB
			if nf := objective(na, nb); nf < fval+1e-4*step*gd {
				a, b, fval = na, nb, nf
				break
			}
			step /= 2
		}
		if step < minStep {
			break
		}
	}
	return a, b
}

func sigmoidPredict(dec, a, b float64) float64 {
	fApB := dec*a + b
	if fApB >= 0 {
		e := math.Exp(-fApB)
		return e / (1 + e)
	}
	return 1 / (1 + math.Exp(fApB))
}

func signs(labels []int) []float64 {
	y := make([]float64, len(labels))
	for i, l := range labels {
		if l == LabelFake {
			y[i] = 1
		} else {
			y[i] = -1
		}
	}
	return y
}

func hasBothSigns(y []float64) bool {
	var pos, neg bool
	for _, v := range y {
		if v > 0 {
			pos = true
		} else {
			neg = true
		}
	}
	return pos && neg
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
