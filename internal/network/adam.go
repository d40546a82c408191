package network

import "math"

// adamState tracks the first and second moment estimates for one
// parameter matrix, applying the standard Adam update with L2 weight
// decay added directly into the gradient (spec.md section 4.2: "MSE +
// weight_decay * 1/2 sum w^2").
type adamState struct {
	m, v []float64 // flattened moments, same length as the parameter
	t    int
}

const (
	adamBeta1 = 0.9
	adamBeta2 = 0.999
	adamEps   = 1e-8
)

func newAdamState(n int) *adamState {
	return &adamState{m: make([]float64, n), v: make([]float64, n)}
}

// step updates params in place given grads (already including the weight
// decay term where applicable) and returns nothing; lr is the learning
// rate.
func (a *adamState) step(params, grads []float64, lr float64) {
	a.t++
	bc1 := 1 - math.Pow(adamBeta1, float64(a.t))
	bc2 := 1 - math.Pow(adamBeta2, float64(a.t))
	for i, g := range grads {
		a.m[i] = adamBeta1*a.m[i] + (1-adamBeta1)*g
		a.v[i] = adamBeta2*a.v[i] + (1-adamBeta2)*g*g
		mHat := a.m[i] / bc1
		vHat := a.v[i] / bc2
		params[i] -= lr * mHat / (math.Sqrt(vHat) + adamEps)
	}
}
