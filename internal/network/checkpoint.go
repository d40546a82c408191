package network

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"
)

// layerSnapshot is the gob-serializable form of one mlpLayer: weights and
// biases copied out of the gonum matrices, plus Adam moment state so a
// reload resumes training exactly where a crash left off.
type layerSnapshot struct {
	In, Out    int
	W          []float64
	B          []float64
	AdamWM     []float64
	AdamWV     []float64
	AdamWT     int
	AdamBM     []float64
	AdamBV     []float64
	AdamBT     int
}

type mlpSnapshot struct {
	Cfg    ModelConfig
	Layers []layerSnapshot
}

func checkpointPath(dir string, step int) string {
	return filepath.Join(dir, fmt.Sprintf("checkpoint-%d.pt", step))
}

func optimizerPath(dir string, step int) string {
	return filepath.Join(dir, fmt.Sprintf("checkpoint-%d-optimizer.pt", step))
}

func (m *mlp) snapshot() mlpSnapshot {
	snap := mlpSnapshot{Cfg: m.cfg}
	for _, l := range m.layers {
		snap.Layers = append(snap.Layers, layerSnapshot{
			In: l.in, Out: l.out,
			W: append([]float64{}, l.w.RawMatrix().Data...),
			B: append([]float64{}, l.b...),
			AdamWM: append([]float64{}, l.wOpt.m...),
			AdamWV: append([]float64{}, l.wOpt.v...),
			AdamWT: l.wOpt.t,
			AdamBM: append([]float64{}, l.bOpt.m...),
			AdamBV: append([]float64{}, l.bOpt.v...),
			AdamBT: l.bOpt.t,
		})
	}
	return snap
}

func (m *mlp) restore(snap mlpSnapshot) error {
	if len(snap.Layers) != len(m.layers) {
		return fmt.Errorf("network: checkpoint has %d layers, model has %d", len(snap.Layers), len(m.layers))
	}
	for i, ls := range snap.Layers {
		l := m.layers[i]
		if ls.In != l.in || ls.Out != l.out {
			return fmt.Errorf("network: layer %d shape mismatch", i)
		}
		l.w = mat.NewDense(ls.Out, ls.In, append([]float64{}, ls.W...))
		l.b = append([]float64{}, ls.B...)
		l.wOpt = &adamState{m: append([]float64{}, ls.AdamWM...), v: append([]float64{}, ls.AdamWV...), t: ls.AdamWT}
		l.bOpt = &adamState{m: append([]float64{}, ls.AdamBM...), v: append([]float64{}, ls.AdamBV...), t: ls.AdamBT}
	}
	return nil
}

func (m *mlp) SaveCheckpoint(dir string, step int) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("network: mkdir checkpoint dir: %w", err)
	}
	f, err := os.Create(checkpointPath(dir, step))
	if err != nil {
		return fmt.Errorf("network: create checkpoint: %w", err)
	}
	defer f.Close()
	snap := m.snapshot()
	if err := gob.NewEncoder(f).Encode(snap); err != nil {
		return fmt.Errorf("network: encode checkpoint: %w", err)
	}

	optF, err := os.Create(optimizerPath(dir, step))
	if err != nil {
		return fmt.Errorf("network: create optimizer checkpoint: %w", err)
	}
	defer optF.Close()
	if err := gob.NewEncoder(optF).Encode(snap.Layers); err != nil {
		return fmt.Errorf("network: encode optimizer checkpoint: %w", err)
	}
	return nil
}

func (m *mlp) LoadCheckpoint(dir string, step int) error {
	f, err := os.Open(checkpointPath(dir, step))
	if err != nil {
		return fmt.Errorf("network: open checkpoint: %w", err)
	}
	defer f.Close()
	var snap mlpSnapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return fmt.Errorf("network: decode checkpoint: %w", err)
	}
	return m.restore(snap)
}
