// Package config resolves the training core's configuration keys
// (spec.md section 6) from a YAML/JSON file layered over built-in
// defaults via github.com/spf13/viper (environment variables are not
// consulted), grounded in
// niceyeti-tabular/tabular/reinforcement/learning.go's viper/yaml
// config loader — the only configuration-library usage in the
// reference corpus.
package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config is the fully resolved set of keys from spec.md section 6.
type Config struct {
	Game    string
	Path    string
	NNModel string
	NNWidth int
	NNDepth int

	LearningRate float64
	WeightDecay  float64

	Devices          []string
	ExplicitLearning bool

	Actors     int
	Evaluators int

	UCTC              float64
	MinSimulations    int
	MaxSimulations    int
	MaxMemoryMB       int
	PolicyAlpha       float64
	PolicyEpsilon     float64
	Temperature       float64
	TemperatureDrop   int
	CutoffValue       float64
	CutoffProbability float64

	ReplayBufferSize  int
	ReplayBufferReuse int
	TrainBatchSize    int

	InferenceBatchSize int
	InferenceThreads   int
	InferenceCache     int

	TDLambda  float64
	TDNSteps  int

	CheckpointFreq   int
	EvalLevels       int
	EvaluationWindow int
	MaxSteps         int
}

// defaults mirrors the conservative defaults a first-run config.json
// would need; every key remains overridable.
var defaults = map[string]interface{}{
	"nn_model":              "mlp",
	"nn_width":              128,
	"nn_depth":              2,
	"learning_rate":         1e-3,
	"weight_decay":          1e-4,
	"explicit_learning":     false,
	"actors":                4,
	"evaluators":            1,
	"uct_c":                 1.4,
	"min_simulations":       50,
	"max_simulations":       200,
	"max_memory_mb":         512,
	"policy_alpha":          0.3,
	"policy_epsilon":        0.25,
	"temperature":           1.0,
	"temperature_drop":      10,
	"cutoff_value":          0.95,
	"cutoff_probability":    0.1,
	"replay_buffer_size":    100000,
	"replay_buffer_reuse":   4,
	"train_batch_size":      256,
	"inference_batch_size":  16,
	"inference_threads":     2,
	"inference_cache":       100000,
	"td_lambda":             0.8,
	"td_n_steps":            0,
	"checkpoint_freq":       100,
	"eval_levels":           5,
	"evaluation_window":     50,
	"max_steps":             0,
}

// Load resolves configuration from path (a YAML or JSON file) layered
// over defaults, per spec.md section 6.
func Load(path string) (Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, errors.Wrap(err, "config: read")
	}

	cfg := Config{
		Game:               v.GetString("game"),
		Path:               v.GetString("path"),
		NNModel:            v.GetString("nn_model"),
		NNWidth:            v.GetInt("nn_width"),
		NNDepth:            v.GetInt("nn_depth"),
		LearningRate:       v.GetFloat64("learning_rate"),
		WeightDecay:        v.GetFloat64("weight_decay"),
		Devices:            splitDevices(v.GetString("devices")),
		ExplicitLearning:   v.GetBool("explicit_learning"),
		Actors:             v.GetInt("actors"),
		Evaluators:         v.GetInt("evaluators"),
		UCTC:               v.GetFloat64("uct_c"),
		MinSimulations:     v.GetInt("min_simulations"),
		MaxSimulations:     v.GetInt("max_simulations"),
		MaxMemoryMB:        v.GetInt("max_memory_mb"),
		PolicyAlpha:        v.GetFloat64("policy_alpha"),
		PolicyEpsilon:      v.GetFloat64("policy_epsilon"),
		Temperature:        v.GetFloat64("temperature"),
		TemperatureDrop:    v.GetInt("temperature_drop"),
		CutoffValue:        v.GetFloat64("cutoff_value"),
		CutoffProbability:  v.GetFloat64("cutoff_probability"),
		ReplayBufferSize:   v.GetInt("replay_buffer_size"),
		ReplayBufferReuse:  v.GetInt("replay_buffer_reuse"),
		TrainBatchSize:     v.GetInt("train_batch_size"),
		InferenceBatchSize: v.GetInt("inference_batch_size"),
		InferenceThreads:   v.GetInt("inference_threads"),
		InferenceCache:     v.GetInt("inference_cache"),
		TDLambda:           v.GetFloat64("td_lambda"),
		TDNSteps:           v.GetInt("td_n_steps"),
		CheckpointFreq:     v.GetInt("checkpoint_freq"),
		EvalLevels:         v.GetInt("eval_levels"),
		EvaluationWindow:   v.GetInt("evaluation_window"),
		MaxSteps:           v.GetInt("max_steps"),
	}
	return cfg, cfg.Validate()
}

func splitDevices(s string) []string {
	if s == "" {
		return []string{"cpu"}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate enforces the configuration-error taxonomy of spec.md
// section 7: bad game type, missing path, explicit_learning with one
// device are all fatal before any thread spawns.
func (c Config) Validate() error {
	if c.Game == "" {
		return errors.New("config: \"game\" is required")
	}
	if c.Path == "" {
		return errors.New("config: \"path\" is required")
	}
	switch c.NNModel {
	case "resnet", "mlp":
	default:
		return errors.Errorf("config: unknown nn_model %q", c.NNModel)
	}
	if c.ExplicitLearning && len(c.Devices) < 2 {
		return errors.New("config: explicit_learning requires at least 2 devices")
	}
	return nil
}
