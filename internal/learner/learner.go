// Package learner implements the training loop of spec.md section
// 4.10: drain trajectories into the replay buffer with luck-adjusted
// TD(lambda) targets, train the designated device, checkpoint,
// broadcast the reload to every other replica, and emit one
// structured record per step.
package learner

import (
	"math/rand"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mattrek/alphazero-stochastic/internal/device"
	"github.com/mattrek/alphazero-stochastic/internal/network"
	"github.com/mattrek/alphazero-stochastic/internal/rating"
	"github.com/mattrek/alphazero-stochastic/internal/replay"
	"github.com/mattrek/alphazero-stochastic/internal/stoptoken"
	"github.com/mattrek/alphazero-stochastic/internal/trajectory"
)

// Config bundles the learner's tunable parameters from spec.md
// section 6.
type Config struct {
	Path               string
	ReplayBufferSize   int
	ReplayBufferReuse  int
	TrainBatchSize     int
	CheckpointFreq     int
	TDLambda           float64
	TDNSteps           int
	PlayerCentric      bool
	ExplicitLearning   bool
	MaxSteps           int
}

// Learner owns one training loop.
type Learner struct {
	cfg            Config
	queue          *trajectory.Queue
	buffer         *replay.Buffer
	devices        *device.Manager
	learnerDevice  *device.Device
	evaluator      evaluatorFacade
	ratingRegistry *rating.Registry
	stop           *stoptoken.Token
	log            *logrus.Entry

	rng               *rand.Rand
	step              int
	totalTrajectories int
	startTime         time.Time
}

// evaluatorFacade is the narrow slice of inference.Evaluator the
// learner depends on, kept as an interface here so this package
// doesn't import inference directly (the dependency runs the other
// way: supervisor wires a concrete *inference.Evaluator in).
type evaluatorFacade interface {
	ClearCache()
	CacheSnapshot() (meanBatchSize float64, hits, misses int64)
}

// New constructs a Learner, resuming from a prior (step,
// totalTrajectories) pair if one was recovered from learner.jsonl
// (spec.md section 4.11 / S6).
func New(cfg Config, queue *trajectory.Queue, buffer *replay.Buffer, devices *device.Manager, learnerDevice *device.Device, evaluator evaluatorFacade, registry *rating.Registry, stop *stoptoken.Token, log *logrus.Entry, startStep, startTotalTrajectories int, startTimeRel float64) *Learner {
	return &Learner{
		cfg: cfg, queue: queue, buffer: buffer, devices: devices,
		learnerDevice: learnerDevice, evaluator: evaluator,
		ratingRegistry: registry, stop: stop, log: log,
		rng: rand.New(rand.NewSource(42)),
		step: startStep, totalTrajectories: startTotalTrajectories,
		startTime: time.Now().Add(-time.Duration(startTimeRel * float64(time.Second))),
	}
}

// Run loops until the stop token fires or max_steps is reached.
func (l *Learner) Run() error {
	for !l.stop.Stopped() {
		if l.cfg.MaxSteps > 0 && l.step >= l.cfg.MaxSteps {
			return nil
		}
		if err := l.runStep(); err != nil {
			l.stop.Stop()
			return err
		}
	}
	return nil
}

func (l *Learner) runStep() error {
	learnRate := l.cfg.ReplayBufferSize / l.cfg.ReplayBufferReuse
	if learnRate <= 0 {
		learnRate = 1
	}

	stats := newStageAccumulator()
	consumed := 0
	var trajs []*trajectory.Trajectory
	for consumed < learnRate {
		traj, ok := l.queue.Pop()
		if !ok {
			if l.stop.Stopped() {
				return nil
			}
			continue
		}
		trajs = append(trajs, traj)
		consumed += len(traj.States)
	}
	l.totalTrajectories += len(trajs)

	for _, traj := range trajs {
		stats.recordGame(traj)
		for i := range traj.States {
			target := trajectory.TDLambdaTarget(traj, i, l.cfg.TDLambda, l.cfg.TDNSteps)
			target = trajectory.PlayerCentricTarget(target, traj.States[i].CurrentPlayer, l.cfg.PlayerCentric)
			l.buffer.Add(replay.Sample{Observation: traj.States[i].Observation, Target: target})
		}
	}

	if err := l.buffer.Save(filepath.Join(l.cfg.Path, "replay_buffer.data")); err != nil {
		return errors.Wrap(err, "learner: persist replay buffer")
	}

	mse, wd, err := l.train()
	if err != nil {
		return errors.Wrap(err, "learner: train")
	}

	if err := l.learnerDevice.Net.SaveCheckpoint(l.cfg.Path, network.LatestCheckpointStep); err != nil {
		return errors.Wrap(err, "learner: save latest checkpoint")
	}
	if l.cfg.CheckpointFreq > 0 && l.step%l.cfg.CheckpointFreq == 0 {
		if err := l.learnerDevice.Net.SaveCheckpoint(l.cfg.Path, l.step); err != nil {
			return errors.Wrap(err, "learner: save numbered checkpoint")
		}
	}

	if err := l.devices.BroadcastReload(l.cfg.Path, l.learnerDevice); err != nil {
		return errors.Wrap(err, "learner: broadcast reload")
	}

	l.evaluator.ClearCache()
	l.emitRecord(stats, mse, wd)
	l.step++
	return nil
}

// train acquires the learner device (excluding it from inference
// loans when explicit_learning is set) and trains
// floor(buffer_size/train_batch_size) minibatches.
func (l *Learner) train() (mseLoss, wdLoss float64, err error) {
	if l.cfg.ExplicitLearning {
		l.devices.SetLearning(l.learnerDevice, true)
		defer l.devices.SetLearning(l.learnerDevice, false)
	}

	minibatches := l.buffer.Size() / l.cfg.TrainBatchSize
	var mseSum, wdSum float64
	for i := 0; i < minibatches; i++ {
		samples := l.buffer.Sample(l.rng, l.cfg.TrainBatchSize)
		obsBatch := make([][]float64, len(samples))
		targets := make([]float64, len(samples))
		for j, s := range samples {
			obsBatch[j] = s.Observation
			targets[j] = s.Target
		}
		mse, wd := l.learnerDevice.Net.Train(obsBatch, targets)
		mseSum += mse
		wdSum += wd
	}
	if minibatches == 0 {
		return 0, 0, nil
	}
	return mseSum / float64(minibatches), wdSum / float64(minibatches), nil
}

func (l *Learner) emitRecord(stats *stageAccumulator, mse, wd float64) {
	p0Wins, p1Wins, draws := stats.Outcomes()
	luckMean, luckStddev := stats.LuckStats()
	meanBatch, cacheHits, cacheMisses := l.evaluator.CacheSnapshot()

	fields := logrus.Fields{
		"time_rel":           time.Since(l.startTime).Seconds(),
		"step":               l.step,
		"total_trajectories": l.totalTrajectories,
		"buffer_size":        l.buffer.Size(),
		"buffer_total_added": l.buffer.TotalAdded(),
		"mse_loss":           mse,
		"weight_decay_loss":  wd,
		"mean_game_length":   stats.MeanGameLength(),
		"p0_wins":            p0Wins,
		"p1_wins":            p1Wins,
		"draws":              draws,
		"stage_accuracy":     stats.StageAccuracy(),
		"stage_prediction":   stats.StagePrediction(),
		"luck_magnitude_mean":   luckMean,
		"luck_magnitude_stddev": luckStddev,
		"eval_means":            l.ratingRegistry.Means(),
		"inference_mean_batch":  meanBatch,
		"inference_cache_hits":  cacheHits,
		"inference_cache_misses": cacheMisses,
	}
	l.log.WithFields(fields).Info("learner step complete")
}

// Step returns the current training step (for resume bookkeeping and
// tests).
func (l *Learner) Step() int { return l.step }

// TotalTrajectories returns the lifetime trajectory count consumed.
func (l *Learner) TotalTrajectories() int { return l.totalTrajectories }
