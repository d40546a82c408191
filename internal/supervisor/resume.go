package supervisor

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/mattrek/alphazero-stochastic/internal/telemetry"
)

// resumeState is the subset of a learner.jsonl record the supervisor
// needs on resume (spec.md section 6: "resume parser reads the last
// non-empty line and requires keys time_rel, step, total_trajectories").
type resumeState struct {
	TimeRel           float64 `json:"time_rel"`
	Step              int     `json:"step"`
	TotalTrajectories int     `json:"total_trajectories"`
}

// readResumeState reads the last non-empty line of path/learner.jsonl,
// if it exists, and returns (state, true); returns (zero, false) for a
// fresh run.
func readResumeState(dir string) (resumeState, bool, error) {
	path := filepath.Join(dir, telemetry.LearnerLogName)
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return resumeState{}, false, nil
	}
	if err != nil {
		return resumeState{}, false, errors.Wrap(err, "supervisor: open learner log")
	}
	defer f.Close()

	var lastLine string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1<<20), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lastLine = line
		}
	}
	if err := scanner.Err(); err != nil {
		return resumeState{}, false, errors.Wrap(err, "supervisor: scan learner log")
	}
	if lastLine == "" {
		return resumeState{}, false, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(lastLine), &raw); err != nil {
		return resumeState{}, false, errors.Wrap(err, "supervisor: parse learner log line")
	}
	for _, key := range []string{"time_rel", "step", "total_trajectories"} {
		if _, ok := raw[key]; !ok {
			return resumeState{}, false, errors.Errorf("supervisor: learner log line missing key %q", key)
		}
	}

	var rs resumeState
	if err := json.Unmarshal([]byte(lastLine), &rs); err != nil {
		return resumeState{}, false, errors.Wrap(err, "supervisor: decode learner log line")
	}
	return rs, true, nil
}
