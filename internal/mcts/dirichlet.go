package mcts

import (
	"math"
	"math/rand"
)

// sampleGamma draws from Gamma(shape, 1) via Marsaglia & Tsang's
// method, the standard approach used to build Dirichlet samples from
// independent Gammas.
func sampleGamma(rng *rand.Rand, shape float64) float64 {
	if shape < 1 {
		u := rng.Float64()
		return sampleGamma(rng, shape+1) * math.Pow(u, 1/shape)
	}
	d := shape - 1.0/3.0
	c := 1.0 / math.Sqrt(9*d)
	for {
		var x, v float64
		for {
			x = rng.NormFloat64()
			v = 1 + c*x
			if v > 0 {
				break
			}
		}
		v = v * v * v
		u := rng.Float64()
		if u < 1-0.0331*x*x*x*x {
			return d * v
		}
		if math.Log(u) < 0.5*x*x+d*(1-v+math.Log(v)) {
			return d * v
		}
	}
}

// sampleDirichlet returns n samples from Dirichlet(alpha, alpha, ...).
func sampleDirichlet(rng *rand.Rand, n int, alpha float64) []float64 {
	out := make([]float64, n)
	sum := 0.0
	for i := range out {
		out[i] = sampleGamma(rng, alpha)
		sum += out[i]
	}
	if sum == 0 {
		for i := range out {
			out[i] = 1.0 / float64(n)
		}
		return out
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// addDirichletNoise mixes Dirichlet(policy_alpha) noise into the
// root's children priors with weight policy_epsilon, per spec.md
// section 4.5; evaluation passes simply never call this (firstSimulation
// gating happens in Search.simulate).
func (s *Search) addDirichletNoise(root *SearchNode) {
	if len(root.Children) == 0 {
		return
	}
	noise := sampleDirichlet(s.cfg.Rand, len(root.Children), s.cfg.PolicyAlpha)
	eps := s.cfg.PolicyEpsilon
	for i, c := range root.Children {
		c.Prior = (1-eps)*c.Prior + eps*noise[i]
	}
}
