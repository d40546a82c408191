// Package supervisor wires the training core together: it resolves
// configuration, verifies the game shape, creates devices, resumes
// from the last log record if present, spawns actors and rating
// evaluators, runs the learner inline, and tears everything down on
// stop (spec.md section 4.11).
package supervisor

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mattrek/alphazero-stochastic/internal/actor"
	"github.com/mattrek/alphazero-stochastic/internal/backgammon"
	"github.com/mattrek/alphazero-stochastic/internal/config"
	"github.com/mattrek/alphazero-stochastic/internal/device"
	"github.com/mattrek/alphazero-stochastic/internal/inference"
	"github.com/mattrek/alphazero-stochastic/internal/learner"
	"github.com/mattrek/alphazero-stochastic/internal/mcts"
	"github.com/mattrek/alphazero-stochastic/internal/network"
	"github.com/mattrek/alphazero-stochastic/internal/rating"
	"github.com/mattrek/alphazero-stochastic/internal/replay"
	"github.com/mattrek/alphazero-stochastic/internal/stoptoken"
	"github.com/mattrek/alphazero-stochastic/internal/telemetry"
	"github.com/mattrek/alphazero-stochastic/internal/trajectory"
)

// Supervisor owns the whole wired pipeline for one run.
type Supervisor struct {
	cfg  config.Config
	stop *stoptoken.Token
	log  *logrus.Logger

	devices       *device.Manager
	cpuDeviceName string
	queue         *trajectory.Queue
	buffer        *replay.Buffer
	eval          *inference.Evaluator
	registry      *rating.Registry
	learner       *learner.Learner
}

// New resolves cfg from path and constructs (without yet running) a
// Supervisor.
func New(cfgPath string) (*Supervisor, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	newState, err := resolveGame(cfg.Game)
	if err != nil {
		return nil, err
	}
	if err := verifyGameShape(newState); err != nil {
		return nil, err
	}

	log, err := telemetry.NewFileLogger(cfg.Path, "supervisor.log")
	if err != nil {
		return nil, err
	}

	s := &Supervisor{cfg: cfg, stop: stoptoken.New(), log: log}

	if err := s.buildDevices(cfg); err != nil {
		return nil, err
	}

	s.queue = trajectory.NewQueue(1024, s.stop)
	s.buffer = replay.New(cfg.ReplayBufferSize)
	bufferPath := filepath.Join(cfg.Path, "replay_buffer.data")
	if _, err := os.Stat(bufferPath); err == nil {
		if err := s.buffer.Load(bufferPath); err != nil {
			return nil, errors.Wrap(err, "supervisor: load replay buffer")
		}
	}

	evalLog, err := telemetry.NewFileLogger(cfg.Path, "inference.log")
	if err != nil {
		return nil, err
	}
	evalCfg := inference.Config{
		BatchSize: cfg.InferenceBatchSize,
		MaxWait:   50 * time.Millisecond,
		Threads:   cfg.InferenceThreads,
		CacheSize: cfg.InferenceCache,
	}
	// Unbatched GPU inference is slower than CPU (spec.md section
	// 4.11): force inference loans onto the CPU replica when the
	// learner's own device is a GPU and batches are effectively disabled.
	if cfg.InferenceBatchSize <= 1 && !strings.HasPrefix(cfg.Devices[0], "cpu") {
		evalCfg.PreferredDevice = s.cpuDeviceName
	}
	s.eval, err = inference.New(evalCfg, s.devices, s.stop, evalLog.WithField("component", "inference"))
	if err != nil {
		return nil, err
	}

	s.registry = rating.NewRegistry(cfg.EvaluationWindow)

	resumeStep, resumeTotal, resumeTimeRel, err := s.resolveResume()
	if err != nil {
		return nil, err
	}

	learnerLog, err := telemetry.NewFileLogger(cfg.Path, telemetry.LearnerLogName)
	if err != nil {
		return nil, err
	}
	learnerCfg := learner.Config{
		Path:              cfg.Path,
		ReplayBufferSize:  cfg.ReplayBufferSize,
		ReplayBufferReuse: cfg.ReplayBufferReuse,
		TrainBatchSize:    cfg.TrainBatchSize,
		CheckpointFreq:    cfg.CheckpointFreq,
		TDLambda:          cfg.TDLambda,
		TDNSteps:          cfg.TDNSteps,
		PlayerCentric:     true,
		ExplicitLearning:  cfg.ExplicitLearning,
		MaxSteps:          cfg.MaxSteps,
	}
	learnerDevice, _ := s.devices.ByName(cfg.Devices[0])
	s.learner = learner.New(learnerCfg, s.queue, s.buffer, s.devices, learnerDevice, s.eval, s.registry, s.stop, learnerLog.WithField("component", "learner"), resumeStep, resumeTotal, resumeTimeRel)

	return s, nil
}

func (s *Supervisor) resolveResume() (step, total int, timeRel float64, err error) {
	rs, ok, err := readResumeState(s.cfg.Path)
	if err != nil {
		return 0, 0, 0, err
	}
	if !ok {
		return 0, 0, 0, nil
	}
	return rs.Step + 1, rs.TotalTrajectories, rs.TimeRel, nil
}

// buildDevices creates one replica per configured device name (the
// first is the learner's designated device) plus an extra CPU device
// if none of the configured devices is already a CPU, per spec.md
// section 4.11 ("GPU list plus a CPU device").
func (s *Supervisor) buildDevices(cfg config.Config) error {
	s.devices = device.New()
	modelCfg := network.ModelConfig{
		ObservationShape: [3]int{1, 1, backgammon.StateEncodingSize},
		NNDepth:          cfg.NNDepth,
		NNWidth:          cfg.NNWidth,
		LearningRate:     cfg.LearningRate,
		WeightDecay:      cfg.WeightDecay,
		NNModel:          cfg.NNModel,
	}

	hasCPU := false
	for _, name := range cfg.Devices {
		if strings.HasPrefix(name, "cpu") {
			hasCPU = true
			s.cpuDeviceName = name
		}
		net, err := network.New(modelCfg)
		if err != nil {
			return errors.Wrap(err, "supervisor: construct network")
		}
		s.devices.AddDevice(name, cfg.InferenceBatchSize, net)
	}
	if !hasCPU {
		net, err := network.New(modelCfg)
		if err != nil {
			return errors.Wrap(err, "supervisor: construct cpu network")
		}
		s.devices.AddDevice("cpu", cfg.InferenceBatchSize, net)
		s.cpuDeviceName = "cpu"
	}
	return nil
}

// Stop signals every actor, evaluator, and the learner to shut down
// at their next cooperative check, per spec.md section 4.11.
func (s *Supervisor) Stop() {
	s.stop.Stop()
}

// Run spawns actors and rating evaluators, runs the learner inline,
// and joins everything on return (normal or stop-triggered).
func (s *Supervisor) Run() error {
	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs *multierror.Error
	addErr := func(err error) {
		if err == nil {
			return
		}
		mu.Lock()
		errs = multierror.Append(errs, err)
		mu.Unlock()
	}

	actors := make([]*actor.Actor, 0, s.cfg.Actors)
	for i := 0; i < s.cfg.Actors; i++ {
		logf, err := telemetry.NewFileLogger(s.cfg.Path, telemetry.ActorLogName(i)+".log")
		if err != nil {
			addErr(err)
			continue
		}
		newState, _ := resolveGame(s.cfg.Game)
		a := actor.New(i, actor.Config{
			Search: mcts.Config{
				UCTC:           s.cfg.UCTC,
				PolicyAlpha:    s.cfg.PolicyAlpha,
				PolicyEpsilon:  s.cfg.PolicyEpsilon,
				MinSimulations: s.cfg.MinSimulations,
				MaxSimulations: s.cfg.MaxSimulations,
				MaxMemoryMB:    s.cfg.MaxMemoryMB,
			},
			Temperature:       s.cfg.Temperature,
			TemperatureDrop:   s.cfg.TemperatureDrop,
			CutoffProbability: s.cfg.CutoffProbability,
			CutoffValue:       s.cfg.CutoffValue,
		}, newState, s.eval, s.stop, logf.WithField("component", "actor"))
		actors = append(actors, a)
	}

	actorOutputs := make([]<-chan *trajectory.Trajectory, len(actors))
	for i, a := range actors {
		actorOutputs[i] = a.Output()
		wg.Add(1)
		go func(a *actor.Actor) {
			defer wg.Done()
			a.Run()
		}(a)
	}
	trajectory.FanIn(s.stop, s.queue, actorOutputs...)

	for i := 0; i < s.cfg.Evaluators; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			logf, err := telemetry.NewFileLogger(s.cfg.Path, telemetry.EvaluatorLogName(id)+".log")
			if err != nil {
				addErr(err)
				s.stop.Stop()
				return
			}
			newState, _ := resolveGame(s.cfg.Game)
			r := rating.New(id, rating.Config{
				Search: mcts.Config{
					UCTC:           s.cfg.UCTC,
					MinSimulations: s.cfg.MinSimulations,
					MaxSimulations: s.cfg.MaxSimulations,
					MaxMemoryMB:    s.cfg.MaxMemoryMB,
				},
				DifficultyLevels: s.cfg.EvalLevels,
				BaseSimulations:  s.cfg.MaxSimulations,
			}, newState, s.eval, s.registry, s.stop, logf.WithField("component", "evaluator"))
			r.Run()
		}(i)
	}

	addErr(s.learner.Run())

	s.stop.Stop()
	s.queue.BlockNewValues()
	s.queue.Clear()
	wg.Wait()

	return errs.ErrorOrNil()
}
