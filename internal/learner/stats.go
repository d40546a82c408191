package learner

import (
	"math"

	"github.com/mattrek/alphazero-stochastic/internal/trajectory"
)

const numStages = 7

// stageAccumulator tracks value-prediction accuracy at 7 equally
// spaced points through a game (spec.md section 4.10), plus game
// length and outcome distribution, and (supplemented feature, per
// DESIGN.md) a running mean/stddev of per-game accumulated luck
// magnitude — the luck signal is already computed for TD targets, so
// surfacing it in the log record is free.
type stageAccumulator struct {
	stageSumSq  [numStages]float64
	stageCount  [numStages]int
	stageSumVal [numStages]float64

	gameLengths   []int
	p0Wins        int
	p1Wins        int
	draws         int

	luckCount int64
	luckMean  float64
	luckM2    float64
}

func newStageAccumulator() *stageAccumulator {
	return &stageAccumulator{}
}

// recordGame folds one trajectory's decisions into the rolling stats.
func (s *stageAccumulator) recordGame(traj *trajectory.Trajectory) {
	n := len(traj.States)
	s.gameLengths = append(s.gameLengths, n)

	switch {
	case traj.Returns[0] > traj.Returns[1]:
		s.p0Wins++
	case traj.Returns[1] > traj.Returns[0]:
		s.p1Wins++
	default:
		s.draws++
	}

	if n > 0 {
		for i, st := range traj.States {
			stage := i * numStages / n
			if stage >= numStages {
				stage = numStages - 1
			}
			p0Return := traj.Returns[0]
			predicted := st.ValueAfterAction
			if st.CurrentPlayer == 1 {
				predicted = -predicted
			}
			diff := predicted - p0Return
			s.stageSumSq[stage] += diff * diff
			s.stageSumVal[stage] += predicted
			s.stageCount[stage]++
		}
		s.recordLuck(math.Abs(traj.States[n-1].AccumulatedLuckP0))
	}
}

// recordLuck updates the running mean/stddev via Welford's algorithm.
func (s *stageAccumulator) recordLuck(magnitude float64) {
	s.luckCount++
	delta := magnitude - s.luckMean
	s.luckMean += delta / float64(s.luckCount)
	delta2 := magnitude - s.luckMean
	s.luckM2 += delta * delta2
}

// StageAccuracy returns the mean squared prediction error at each of
// the 7 game stages.
func (s *stageAccumulator) StageAccuracy() [numStages]float64 {
	var out [numStages]float64
	for i := 0; i < numStages; i++ {
		if s.stageCount[i] > 0 {
			out[i] = s.stageSumSq[i] / float64(s.stageCount[i])
		}
	}
	return out
}

// StagePrediction returns the mean predicted value at each stage.
func (s *stageAccumulator) StagePrediction() [numStages]float64 {
	var out [numStages]float64
	for i := 0; i < numStages; i++ {
		if s.stageCount[i] > 0 {
			out[i] = s.stageSumVal[i] / float64(s.stageCount[i])
		}
	}
	return out
}

func (s *stageAccumulator) MeanGameLength() float64 {
	if len(s.gameLengths) == 0 {
		return 0
	}
	sum := 0
	for _, n := range s.gameLengths {
		sum += n
	}
	return float64(sum) / float64(len(s.gameLengths))
}

func (s *stageAccumulator) Outcomes() (p0Wins, p1Wins, draws int) {
	return s.p0Wins, s.p1Wins, s.draws
}

// LuckStats returns the rolling mean and standard deviation of
// per-game accumulated luck magnitude.
func (s *stageAccumulator) LuckStats() (mean, stddev float64) {
	if s.luckCount == 0 {
		return 0, 0
	}
	variance := s.luckM2 / float64(s.luckCount)
	return s.luckMean, math.Sqrt(variance)
}
