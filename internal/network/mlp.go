package network

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

const leakySlope = 0.01

// mlpLayer is one fully connected layer: z = x*W^T + b, with weights
// stored as (out x in) gonum matrices for the batched forward/backward
// matmuls.
type mlpLayer struct {
	in, out int
	w       *mat.Dense // out x in
	b       []float64  // out
	wOpt    *adamState
	bOpt    *adamState

	// Cached from the last forward pass, for backward.
	lastInput *mat.Dense // batch x in
	lastPre   *mat.Dense // batch x out (pre-activation)
}

func newMLPLayer(in, out int) *mlpLayer {
	w := mat.NewDense(out, in, nil)
	scale := 1.0 / float64(in+1)
	w.Apply(func(i, j int, v float64) float64 {
		return (rand.Float64()*2 - 1) * scale
	}, w)
	return &mlpLayer{
		in: in, out: out,
		w:    w,
		b:    make([]float64, out),
		wOpt: newAdamState(in * out),
		bOpt: newAdamState(out),
	}
}

// forward computes z = x*w^T + b for a batch (rows = examples).
func (l *mlpLayer) forward(x *mat.Dense) *mat.Dense {
	batch, _ := x.Dims()
	z := mat.NewDense(batch, l.out, nil)
	z.Mul(x, l.w.T())
	z.Apply(func(i, j int, v float64) float64 {
		return v + l.b[j]
	}, z)
	l.lastInput = x
	l.lastPre = z
	return z
}

// backward takes dL/dz (batch x out), updates this layer's weights via
// Adam, and returns dL/dx (batch x in) for the previous layer.
func (l *mlpLayer) backward(dz *mat.Dense, lr, weightDecay float64) *mat.Dense {
	batch, _ := dz.Dims()

	// dW = dz^T * x / batch, plus weight decay * w.
	dw := mat.NewDense(l.out, l.in, nil)
	dw.Mul(dz.T(), l.lastInput)
	dw.Scale(1.0/float64(batch), dw)
	dw.Apply(func(i, j int, v float64) float64 {
		return v + weightDecay*l.w.At(i, j)
	}, dw)

	db := make([]float64, l.out)
	for i := 0; i < batch; i++ {
		for j := 0; j < l.out; j++ {
			db[j] += dz.At(i, j)
		}
	}
	for j := range db {
		db[j] /= float64(batch)
	}

	// dX = dz * w.
	dx := mat.NewDense(batch, l.in, nil)
	dx.Mul(dz, l.w)

	l.wOpt.step(l.w.RawMatrix().Data, dw.RawMatrix().Data, lr)
	l.bOpt.step(l.b, db, lr)

	return dx
}

// mlp implements Net as nn_depth leaky-ReLU linear layers of width
// nn_width, then a linear->tanh scalar output (spec.md section 4.2).
type mlp struct {
	cfg    ModelConfig
	layers []*mlpLayer
}

func newMLP(cfg ModelConfig) *mlp {
	in := cfg.InputSize()
	m := &mlp{cfg: cfg}
	for i := 0; i < cfg.NNDepth; i++ {
		m.layers = append(m.layers, newMLPLayer(in, cfg.NNWidth))
		in = cfg.NNWidth
	}
	m.layers = append(m.layers, newMLPLayer(in, 1))
	return m
}

func leakyRelu(v float64) float64 {
	if v >= 0 {
		return v
	}
	return leakySlope * v
}

func leakyReluGrad(v float64) float64 {
	if v >= 0 {
		return 1
	}
	return leakySlope
}

func toDense(batch [][]float64) *mat.Dense {
	rows := len(batch)
	if rows == 0 {
		return mat.NewDense(0, 0, nil)
	}
	cols := len(batch[0])
	d := mat.NewDense(rows, cols, nil)
	for i, row := range batch {
		d.SetRow(i, row)
	}
	return d
}

// forwardActivated runs the full stack and returns the per-layer
// post-activation outputs (the last one pre-tanh), for reuse by Train.
func (m *mlp) forwardActivated(x *mat.Dense) (acts []*mat.Dense, preTanh *mat.Dense) {
	cur := x
	for i, layer := range m.layers {
		z := layer.forward(cur)
		if i < len(m.layers)-1 {
			a := mat.NewDense(z.RawMatrix().Rows, z.RawMatrix().Cols, nil)
			a.Apply(func(r, c int, v float64) float64 { return leakyRelu(v) }, z)
			acts = append(acts, a)
			cur = a
		} else {
			preTanh = z
		}
	}
	return acts, preTanh
}

func (m *mlp) Forward(batch [][]float64) []float64 {
	x := toDense(batch)
	_, preTanh := m.forwardActivated(x)
	rows, _ := preTanh.Dims()
	out := make([]float64, rows)
	for i := 0; i < rows; i++ {
		out[i] = tanh(preTanh.At(i, 0))
	}
	return out
}

func (m *mlp) Train(batch [][]float64, targets []float64) (mseLoss, wdLoss float64) {
	x := toDense(batch)
	n := len(batch)
	_, preTanh := m.forwardActivated(x)

	pred := make([]float64, n)
	dPreTanh := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		p := tanh(preTanh.At(i, 0))
		pred[i] = p
		diff := p - targets[i]
		mseLoss += diff * diff
		// d(MSE)/d(pred) * d(tanh)/d(z), MSE = mean((p-t)^2).
		dPreTanh.Set(i, 0, 2*diff/float64(n)*(1-p*p))
	}
	mseLoss /= float64(n)

	dz := mat.DenseCopyOf(dPreTanh)
	for i := len(m.layers) - 1; i >= 0; i-- {
		layer := m.layers[i]
		dx := layer.backward(dz, m.cfg.LearningRate, m.cfg.WeightDecay)
		if i > 0 {
			// Backprop through the leaky-ReLU of layer i-1's output.
			prevPre := m.layers[i-1].lastPre
			r, c := dx.Dims()
			ndz := mat.NewDense(r, c, nil)
			ndz.Apply(func(rr, cc int, v float64) float64 {
				return v * leakyReluGrad(prevPre.At(rr, cc))
			}, dx)
			dz = ndz
		}
	}

	wdLoss = m.weightDecayLoss()
	return mseLoss, wdLoss
}

func (m *mlp) weightDecayLoss() float64 {
	sum := 0.0
	for _, l := range m.layers {
		raw := l.w.RawMatrix().Data
		for _, v := range raw {
			sum += v * v
		}
	}
	return 0.5 * m.cfg.WeightDecay * sum
}

func tanh(v float64) float64 {
	if v > 20 {
		return 1
	}
	if v < -20 {
		return -1
	}
	e2 := math.Exp(2 * v)
	return (e2 - 1) / (e2 + 1)
}

func (m *mlp) Config() ModelConfig { return m.cfg }

func (m *mlp) Print() string {
	s := fmt.Sprintf("MLP(depth=%d, width=%d)\n", m.cfg.NNDepth, m.cfg.NNWidth)
	for i, l := range m.layers {
		s += fmt.Sprintf("  layer %d: %dx%d\n", i, l.in, l.out)
	}
	return s
}
