// Package trajectory implements self-play game records and the
// luck-adjusted TD(lambda) valuation of spec.md section 4.7: the
// return at each decision state subtracts the accumulated difference
// between what actually happened at chance transitions and what was
// expected, so the learning signal reflects decisions rather than
// dice.
package trajectory

import "github.com/mattrek/alphazero-stochastic/internal/game"

// TrajState is one recorded decision within a game, per spec.md
// section 3. It never records a chance outcome.
type TrajState struct {
	Observation       []float64
	CurrentPlayer     int
	ChosenAction      int
	ValueAfterAction  float64 // acting player's perspective
	AccumulatedLuckP0 float64 // running sum, player-0 perspective
}

// Trajectory is the ordered sequence of decisions in one self-play
// game, plus the final per-player returns.
type Trajectory struct {
	States  []TrajState
	Returns []float64 // per-player terminal returns
}

// Evaluator is the value lookup TD targets and luck evaluation need;
// satisfied by mcts.Evaluator / inference.Evaluator.
type Evaluator interface {
	Evaluate(obs []float64) (float64, bool)
}

// EvaluateLuck implements spec.md section 4.7's chance-transition luck
// formula: luck = V(s.a*) - sum_i p_i*V(s.a_i), where V is the
// player-0 perspective value. state must be a chance node; chosen is
// the action actually sampled.
func EvaluateLuck(state game.State, chosen int, eval Evaluator) float64 {
	outcomes := state.ChanceOutcomes()
	expectation := 0.0
	var chosenValue float64
	for _, oc := range outcomes {
		child := state.Clone()
		child.ApplyAction(oc.Action)
		v := valueForPlayerZero(child, eval)
		expectation += oc.Probability * v
		if oc.Action == chosen {
			chosenValue = v
		}
	}
	return chosenValue - expectation
}

func valueForPlayerZero(state game.State, eval Evaluator) float64 {
	if state.IsTerminal() {
		return state.Returns()[0]
	}
	v, ok := eval.Evaluate(state.ObservationTensor())
	if !ok {
		return 0
	}
	mover := state.CurrentPlayer()
	if mover == game.ChancePlayer {
		// A chance child feeding into another chance node (double roll
		// compositions never do this for backgammon, but stay general):
		// attribute value to whichever player is nominally "to move"
		// after the pending chance resolves is undefined here, so fall
		// back to the raw network output.
		return v
	}
	if mover == 1 {
		return -v
	}
	return v
}
