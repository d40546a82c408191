// Package actor implements the self-play worker thread of spec.md
// section 4.8: it drives two MCTS bots (one per seat, sharing the
// inference evaluator) through one game, applies the per-game early
// cutoff, and publishes the resulting Trajectory.
package actor

import (
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/mattrek/alphazero-stochastic/internal/game"
	"github.com/mattrek/alphazero-stochastic/internal/mcts"
	"github.com/mattrek/alphazero-stochastic/internal/stoptoken"
	"github.com/mattrek/alphazero-stochastic/internal/trajectory"
)

// Config bundles the search and self-play parameters an actor needs,
// drawn from spec.md section 6's configuration keys.
type Config struct {
	Search            mcts.Config
	Temperature       float64
	TemperatureDrop   int
	CutoffProbability float64
	CutoffValue       float64
}

// Actor plays games against itself (both seats use the same search
// configuration and shared evaluator — "two MCTS bots" in spec.md
// section 4.8 means two seats, not two distinct policies, since only
// one network is trained here) and publishes completed trajectories
// on its own output channel, fanned in to the shared queue by
// trajectory.FanIn.
type Actor struct {
	id       int
	cfg      Config
	newState game.NewInitialStateFunc
	eval     mcts.Evaluator
	out      chan *trajectory.Trajectory
	stop     *stoptoken.Token
	log      *logrus.Entry
	rng      *rand.Rand
}

// New constructs an actor identified by id.
func New(id int, cfg Config, newState game.NewInitialStateFunc, eval mcts.Evaluator, stop *stoptoken.Token, log *logrus.Entry) *Actor {
	return &Actor{
		id:       id,
		cfg:      cfg,
		newState: newState,
		eval:     eval,
		out:      make(chan *trajectory.Trajectory),
		stop:     stop,
		log:      log,
		rng:      rand.New(rand.NewSource(int64(id) + 1)),
	}
}

// Output is the actor's own trajectory channel, merged with every
// other actor's by trajectory.FanIn into the shared queue.
func (a *Actor) Output() <-chan *trajectory.Trajectory {
	return a.out
}

// Run loops playing games and publishing trajectories until the stop
// token fires, then closes Output().
func (a *Actor) Run() {
	defer close(a.out)
	for !a.stop.Stopped() {
		traj := a.playGame()
		if traj == nil {
			return
		}
		select {
		case a.out <- traj:
		case <-a.stop.Done():
			return
		}
	}
}

// playGame plays one self-play game end to end, or returns nil if the
// stop token fired mid-game.
func (a *Actor) playGame() *trajectory.Trajectory {
	state := a.newState()
	cutoffActive := a.rng.Float64() < a.cfg.CutoffProbability

	var states []trajectory.TrajState
	accumLuck := 0.0
	ply := 0

	for !state.IsTerminal() {
		if a.stop.Stopped() {
			return nil
		}

		if state.IsChance() {
			outcomes := state.ChanceOutcomes()
			chosen := sampleOutcome(a.rng, outcomes)
			accumLuck += trajectory.EvaluateLuck(state, chosen, a.eval)
			state.ApplyAction(chosen)
			continue
		}

		search := mcts.NewSearch(a.cfg.Search, state, a.eval)
		search.Run()
		chosen := search.SelectAction(ply, a.cfg.Temperature, a.cfg.TemperatureDrop)
		if chosen == nil {
			break
		}
		actingPlayer := state.CurrentPlayer()
		recorded := mcts.RecordedValue(chosen, actingPlayer)

		states = append(states, trajectory.TrajState{
			Observation:       state.ObservationTensor(),
			CurrentPlayer:     actingPlayer,
			ChosenAction:      chosen.Action,
			ValueAfterAction:  recorded,
			AccumulatedLuckP0: accumLuck,
		})
		ply++

		if cutoffActive && math.Abs(recorded) > a.cfg.CutoffValue {
			return &trajectory.Trajectory{States: states, Returns: returnsFromActingValue(recorded, actingPlayer)}
		}

		state.ApplyAction(chosen.Action)
	}

	return &trajectory.Trajectory{States: states, Returns: state.Returns()}
}

func returnsFromActingValue(recorded float64, actingPlayer int) []float64 {
	p0 := recorded
	if actingPlayer == 1 {
		p0 = -recorded
	}
	return []float64{p0, -p0}
}

func sampleOutcome(rng *rand.Rand, outcomes []game.ChanceOutcome) int {
	r := rng.Float64()
	acc := 0.0
	for _, oc := range outcomes {
		acc += oc.Probability
		if r <= acc {
			return oc.Action
		}
	}
	return outcomes[len(outcomes)-1].Action
}
