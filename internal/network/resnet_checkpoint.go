package network

import (
	"encoding/gob"
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"
)

// bnSnapshot is the gob-serializable form of one batchNorm1d: learned
// gamma/beta, running mean/variance, and Adam moment state for both.
type bnSnapshot struct {
	Width      int
	Gamma      []float64
	Beta       []float64
	RunMean    []float64
	RunVar     []float64
	AdamGammaM []float64
	AdamGammaV []float64
	AdamGammaT int
	AdamBetaM  []float64
	AdamBetaV  []float64
	AdamBetaT  int
}

// resBlockSnapshot is one resBlock: its two linear layers and batchnorm.
type resBlockSnapshot struct {
	L1  layerSnapshot
	L2  layerSnapshot
	BN1 bnSnapshot
}

type resNetSnapshot struct {
	Cfg        ModelConfig
	InputLayer layerSnapshot
	InputBN    bnSnapshot
	Blocks     []resBlockSnapshot
	OutHidden  layerSnapshot
	OutFinal   layerSnapshot
}

func snapshotLayer(l *mlpLayer) layerSnapshot {
	return layerSnapshot{
		In: l.in, Out: l.out,
		W:      append([]float64{}, l.w.RawMatrix().Data...),
		B:      append([]float64{}, l.b...),
		AdamWM: append([]float64{}, l.wOpt.m...),
		AdamWV: append([]float64{}, l.wOpt.v...),
		AdamWT: l.wOpt.t,
		AdamBM: append([]float64{}, l.bOpt.m...),
		AdamBV: append([]float64{}, l.bOpt.v...),
		AdamBT: l.bOpt.t,
	}
}

func restoreLayer(l *mlpLayer, ls layerSnapshot) error {
	if ls.In != l.in || ls.Out != l.out {
		return fmt.Errorf("network: layer shape mismatch (checkpoint %dx%d, model %dx%d)", ls.Out, ls.In, l.out, l.in)
	}
	l.w = mat.NewDense(ls.Out, ls.In, append([]float64{}, ls.W...))
	l.b = append([]float64{}, ls.B...)
	l.wOpt = &adamState{m: append([]float64{}, ls.AdamWM...), v: append([]float64{}, ls.AdamWV...), t: ls.AdamWT}
	l.bOpt = &adamState{m: append([]float64{}, ls.AdamBM...), v: append([]float64{}, ls.AdamBV...), t: ls.AdamBT}
	return nil
}

func snapshotBN(bn *batchNorm1d) bnSnapshot {
	return bnSnapshot{
		Width:      bn.width,
		Gamma:      append([]float64{}, bn.gamma...),
		Beta:       append([]float64{}, bn.beta...),
		RunMean:    append([]float64{}, bn.runMean...),
		RunVar:     append([]float64{}, bn.runVar...),
		AdamGammaM: append([]float64{}, bn.gammaOpt.m...),
		AdamGammaV: append([]float64{}, bn.gammaOpt.v...),
		AdamGammaT: bn.gammaOpt.t,
		AdamBetaM:  append([]float64{}, bn.betaOpt.m...),
		AdamBetaV:  append([]float64{}, bn.betaOpt.v...),
		AdamBetaT:  bn.betaOpt.t,
	}
}

func restoreBN(bn *batchNorm1d, s bnSnapshot) error {
	if s.Width != bn.width {
		return fmt.Errorf("network: batchnorm width mismatch (checkpoint %d, model %d)", s.Width, bn.width)
	}
	bn.gamma = append([]float64{}, s.Gamma...)
	bn.beta = append([]float64{}, s.Beta...)
	bn.runMean = append([]float64{}, s.RunMean...)
	bn.runVar = append([]float64{}, s.RunVar...)
	bn.gammaOpt = &adamState{m: append([]float64{}, s.AdamGammaM...), v: append([]float64{}, s.AdamGammaV...), t: s.AdamGammaT}
	bn.betaOpt = &adamState{m: append([]float64{}, s.AdamBetaM...), v: append([]float64{}, s.AdamBetaV...), t: s.AdamBetaT}
	return nil
}

func (n *resNet) snapshot() resNetSnapshot {
	snap := resNetSnapshot{
		Cfg:        n.cfg,
		InputLayer: snapshotLayer(n.inputLayer),
		InputBN:    snapshotBN(n.inputBN),
		OutHidden:  snapshotLayer(n.outHidden),
		OutFinal:   snapshotLayer(n.outFinal),
	}
	for _, b := range n.blocks {
		snap.Blocks = append(snap.Blocks, resBlockSnapshot{
			L1:  snapshotLayer(b.l1),
			L2:  snapshotLayer(b.l2),
			BN1: snapshotBN(b.bn1),
		})
	}
	return snap
}

func (n *resNet) restore(snap resNetSnapshot) error {
	if len(snap.Blocks) != len(n.blocks) {
		return fmt.Errorf("network: checkpoint has %d residual blocks, model has %d", len(snap.Blocks), len(n.blocks))
	}
	if err := restoreLayer(n.inputLayer, snap.InputLayer); err != nil {
		return err
	}
	if err := restoreBN(n.inputBN, snap.InputBN); err != nil {
		return err
	}
	for i, bs := range snap.Blocks {
		b := n.blocks[i]
		if err := restoreLayer(b.l1, bs.L1); err != nil {
			return fmt.Errorf("network: block %d l1: %w", i, err)
		}
		if err := restoreLayer(b.l2, bs.L2); err != nil {
			return fmt.Errorf("network: block %d l2: %w", i, err)
		}
		if err := restoreBN(b.bn1, bs.BN1); err != nil {
			return fmt.Errorf("network: block %d bn1: %w", i, err)
		}
	}
	if err := restoreLayer(n.outHidden, snap.OutHidden); err != nil {
		return err
	}
	return restoreLayer(n.outFinal, snap.OutFinal)
}

func (n *resNet) SaveCheckpoint(dir string, step int) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("network: mkdir checkpoint dir: %w", err)
	}
	f, err := os.Create(checkpointPath(dir, step))
	if err != nil {
		return fmt.Errorf("network: create checkpoint: %w", err)
	}
	defer f.Close()
	snap := n.snapshot()
	if err := gob.NewEncoder(f).Encode(snap); err != nil {
		return fmt.Errorf("network: encode checkpoint: %w", err)
	}

	optF, err := os.Create(optimizerPath(dir, step))
	if err != nil {
		return fmt.Errorf("network: create optimizer checkpoint: %w", err)
	}
	defer optF.Close()
	if err := gob.NewEncoder(optF).Encode(snap.Blocks); err != nil {
		return fmt.Errorf("network: encode optimizer checkpoint: %w", err)
	}
	return nil
}

func (n *resNet) LoadCheckpoint(dir string, step int) error {
	f, err := os.Open(checkpointPath(dir, step))
	if err != nil {
		return fmt.Errorf("network: open checkpoint: %w", err)
	}
	defer f.Close()
	var snap resNetSnapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return fmt.Errorf("network: decode checkpoint: %w", err)
	}
	return n.restore(snap)
}
