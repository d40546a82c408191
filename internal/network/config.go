// Package network implements the value-regression model described in
// spec.md section 4.2: a narrow capability set (Forward/Train/
// SaveCheckpoint/LoadCheckpoint) behind which two architectures,
// ResNet and MLP, are selected by configuration. Tensor storage and
// linear algebra are backed by gonum.org/v1/gonum/mat, the same
// dependency samuelfneumann-GoLearn and the CFFinch62-GoBG/
// Elvenson-alphabeth manifests use for this purpose; the forward/backward
// passes themselves remain hand-rolled, generalizing the teacher's own
// (ZachBeta-neural_rps/alphago_demo/pkg/neural) single-hidden-layer nets
// to arbitrary depth/width and to the ResNet skip-connection form, since
// spec.md places a full autodiff backend out of scope.
package network

import (
	"fmt"
	"strconv"
	"strings"
)

// ModelConfig, per spec.md section 3. ObservationShape is [C,H,W]; both
// architectures take the flattened C*H*W vector (InputSize) as input.
type ModelConfig struct {
	ObservationShape [3]int
	NNDepth          int
	NNWidth          int
	LearningRate     float64
	WeightDecay      float64
	NNModel          string // "resnet" or "mlp"
}

// Validate rejects unknown nn_model strings, a fatal configuration error
// per spec.md section 7.
func (c ModelConfig) Validate() error {
	switch c.NNModel {
	case "resnet", "mlp":
	default:
		return fmt.Errorf("network: unknown nn_model %q", c.NNModel)
	}
	if c.NNDepth <= 0 || c.NNWidth <= 0 {
		return fmt.Errorf("network: nn_depth and nn_width must be positive")
	}
	return nil
}

// Marshal renders the config as whitespace-separated scalars
// ("channels height width depth width lr wd model_name"), the vpnet.pb
// layout from spec.md section 6.
func (c ModelConfig) Marshal() string {
	return fmt.Sprintf("%d %d %d %d %d %g %g %s",
		c.ObservationShape[0], c.ObservationShape[1], c.ObservationShape[2],
		c.NNDepth, c.NNWidth, c.LearningRate, c.WeightDecay, c.NNModel)
}

// ParseModelConfig reverses Marshal.
func ParseModelConfig(s string) (ModelConfig, error) {
	fields := strings.Fields(s)
	if len(fields) != 8 {
		return ModelConfig{}, fmt.Errorf("network: expected 8 fields, got %d", len(fields))
	}
	ints := make([]int, 5)
	for i := 0; i < 5; i++ {
		v, err := strconv.Atoi(fields[i])
		if err != nil {
			return ModelConfig{}, fmt.Errorf("network: field %d: %w", i, err)
		}
		ints[i] = v
	}
	lr, err := strconv.ParseFloat(fields[5], 64)
	if err != nil {
		return ModelConfig{}, fmt.Errorf("network: learning_rate: %w", err)
	}
	wd, err := strconv.ParseFloat(fields[6], 64)
	if err != nil {
		return ModelConfig{}, fmt.Errorf("network: weight_decay: %w", err)
	}
	return ModelConfig{
		ObservationShape: [3]int{ints[0], ints[1], ints[2]},
		NNDepth:          ints[3],
		NNWidth:          ints[4],
		LearningRate:     lr,
		WeightDecay:      wd,
		NNModel:          fields[7],
	}, nil
}

// InputSize is the flattened observation width (C*H*W).
func (c ModelConfig) InputSize() int {
	return c.ObservationShape[0] * c.ObservationShape[1] * c.ObservationShape[2]
}
