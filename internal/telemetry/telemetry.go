// Package telemetry sets up the per-thread structured loggers named
// in spec.md section 6 ("actor-<i>", "evaluator-<i>", learner.jsonl),
// grounded in the vasic-digital-SuperAgent MCTS manifest's use of
// *logrus.Logger passed into the search engine.
package telemetry

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// NewFileLogger returns a logrus logger appending JSON-formatted lines
// to dir/name; name is the full file name (e.g. "actor-3.log", or
// "learner.jsonl" for the learner's data log), per spec.md section 6's
// persisted-layout table.
func NewFileLogger(dir, name string) (*logrus.Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "telemetry: mkdir")
	}
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "telemetry: open log file")
	}
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(f)
	return logger, nil
}

// ActorLogName returns the per-actor log file name, e.g. "actor-3".
func ActorLogName(id int) string {
	return "actor-" + strconv.Itoa(id)
}

// EvaluatorLogName returns the per-rating-evaluator log file name.
func EvaluatorLogName(id int) string {
	return "evaluator-" + strconv.Itoa(id)
}

// LearnerLogName is the learner's structured data log, one JSON
// object per step, resume-parsed by the supervisor.
const LearnerLogName = "learner.jsonl"
