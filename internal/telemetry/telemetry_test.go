package telemetry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewFileLoggerWritesJSONLines(t *testing.T) {
	dir := t.TempDir()
	log, err := NewFileLogger(dir, "test.log")
	require.NoError(t, err)

	log.WithField("step", 1).Info("hello")

	data, err := os.ReadFile(filepath.Join(dir, "test.log"))
	require.NoError(t, err)
	require.Contains(t, string(data), `"step":1`)
	require.Contains(t, string(data), `"msg":"hello"`)
}

func TestActorAndEvaluatorLogNames(t *testing.T) {
	require.Equal(t, "actor-3", ActorLogName(3))
	require.Equal(t, "evaluator-0", EvaluatorLogName(0))
}
