package network

// LatestCheckpointStep is the canonical "latest" checkpoint step used
// for weight-coherence reloads (spec.md section 6: "checkpoint--1.pt
// (latest)").
const LatestCheckpointStep = -1

// Net is the narrow capability set the rest of the training core depends
// on (spec.md section 9, "Polymorphism"): a tagged variant over
// {ResNetModel, MlpModel} behind one interface, no deeper hierarchy.
type Net interface {
	// Forward returns the scalar value prediction in [-1, 1] for a batch
	// of flattened observations.
	Forward(batch [][]float64) []float64

	// Train performs one gradient step over a batch and returns
	// (mseLoss, weightDecayLoss).
	Train(batch [][]float64, targets []float64) (mseLoss, wdLoss float64)

	// SaveCheckpoint persists weights (and optimizer state) tagged by
	// step; step -1 is the canonical "latest" per spec.md section 6.
	SaveCheckpoint(dir string, step int) error

	// LoadCheckpoint restores weights saved by SaveCheckpoint.
	LoadCheckpoint(dir string, step int) error

	// Config returns the model's ModelConfig.
	Config() ModelConfig

	// Print renders the model for debugging, per spec.md section 4.2.
	Print() string
}

// New constructs a Net per cfg.NNModel, fatal on an unrecognized model
// name (spec.md section 7: "Unknown nn_model strings are fatal at
// construction").
func New(cfg ModelConfig) (Net, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.NNModel {
	case "mlp":
		return newMLP(cfg), nil
	case "resnet":
		return newResNet(cfg), nil
	default:
		panic("network: unreachable after Validate")
	}
}
