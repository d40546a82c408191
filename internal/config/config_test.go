package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{"game": "backgammon", "path": "/tmp/run1", "devices": "cpu"}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "backgammon", cfg.Game)
	require.Equal(t, "mlp", cfg.NNModel)
	require.Equal(t, 128, cfg.NNWidth)
	require.Equal(t, 0.8, cfg.TDLambda)
	require.Equal(t, []string{"cpu"}, cfg.Devices)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `{"game": "backgammon", "path": "/tmp/run2", "devices": "gpu:0,gpu:1", "nn_model": "resnet", "actors": 8}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "resnet", cfg.NNModel)
	require.Equal(t, 8, cfg.Actors)
	require.Equal(t, []string{"gpu:0", "gpu:1"}, cfg.Devices)
}

func TestValidateRejectsMissingGame(t *testing.T) {
	path := writeConfig(t, `{"path": "/tmp/run3"}`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestValidateRejectsUnknownModel(t *testing.T) {
	path := writeConfig(t, `{"game": "backgammon", "path": "/tmp/run4", "nn_model": "transformer"}`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestValidateRejectsExplicitLearningWithOneDevice(t *testing.T) {
	path := writeConfig(t, `{"game": "backgammon", "path": "/tmp/run5", "devices": "gpu:0", "explicit_learning": true}`)
	_, err := Load(path)
	require.Error(t, err)
}
