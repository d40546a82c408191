package supervisor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// S6 from spec.md section 8: resuming a run reads the last non-empty
// line of learner.jsonl and recovers (step, total_trajectories).
func TestReadResumeStateFreshRun(t *testing.T) {
	dir := t.TempDir()
	_, ok, err := readResumeState(dir)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestReadResumeStateReadsLastLine(t *testing.T) {
	dir := t.TempDir()
	contents := `{"time_rel":1.0,"step":0,"total_trajectories":10}
{"time_rel":2.0,"step":1,"total_trajectories":25}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "learner.jsonl"), []byte(contents), 0o644))

	rs, ok, err := readResumeState(dir)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, rs.Step)
	require.Equal(t, 25, rs.TotalTrajectories)
}

func TestReadResumeStateMissingKeyErrors(t *testing.T) {
	dir := t.TempDir()
	contents := `{"time_rel":1.0,"step":0}` + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "learner.jsonl"), []byte(contents), 0o644))

	_, _, err := readResumeState(dir)
	require.Error(t, err)
}

func TestReadResumeStateIgnoresTrailingBlankLines(t *testing.T) {
	dir := t.TempDir()
	contents := `{"time_rel":1.0,"step":3,"total_trajectories":99}` + "\n\n\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "learner.jsonl"), []byte(contents), 0o644))

	rs, ok, err := readResumeState(dir)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 3, rs.Step)
	require.Equal(t, 99, rs.TotalTrajectories)
}
