package rating

import (
	"math/rand"

	"github.com/mattrek/alphazero-stochastic/internal/game"
)

// rolloutChooseAction is the "rollout-MCTS" reference opponent of
// spec.md section 4.9, simplified to flat Monte Carlo: the budget of
// random playouts is split evenly across the legal actions (at least one
// playout each) and the action with the best mean return for the mover
// is returned. A pack-grounded full UCT tree
// would run PUCT/UCT selection between playouts (as
// ZachBeta-neural_rps/alphago_demo/pkg/mcts's GetUCB does); the flat
// simplification keeps this reference bot independent of the value
// network, which spec.md requires rating's opponent to be.
func rolloutChooseAction(rng *rand.Rand, state game.State, budget int) int {
	actions := state.LegalActions()
	if len(actions) == 0 {
		return -1
	}
	mover := state.CurrentPlayer()
	perAction := budget / len(actions)
	if perAction < 1 {
		perAction = 1
	}

	best := actions[0]
	bestMean := -2.0
	for _, a := range actions {
		sum := 0.0
		for i := 0; i < perAction; i++ {
			sum += randomPlayout(rng, state, a, mover)
		}
		mean := sum / float64(perAction)
		if mean > bestMean {
			bestMean = mean
			best = a
		}
	}
	return best
}

// randomPlayout applies action to a clone of state, then plays
// uniformly random legal actions (sampling chance outcomes by
// probability) to termination, returning the result from mover's
// perspective.
func randomPlayout(rng *rand.Rand, state game.State, action, mover int) float64 {
	s := state.Clone()
	s.ApplyAction(action)
	for !s.IsTerminal() {
		if s.IsChance() {
			outcomes := s.ChanceOutcomes()
			r := rng.Float64()
			acc := 0.0
			chosen := outcomes[len(outcomes)-1].Action
			for _, oc := range outcomes {
				acc += oc.Probability
				if r <= acc {
					chosen = oc.Action
					break
				}
			}
			s.ApplyAction(chosen)
			continue
		}
		actions := s.LegalActions()
		if len(actions) == 0 {
			break
		}
		s.ApplyAction(actions[rng.Intn(len(actions))])
	}
	returns := s.Returns()
	if mover == 1 {
		return -returns[0]
	}
	return returns[0]
}
