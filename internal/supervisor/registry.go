package supervisor

import (
	"github.com/pkg/errors"

	"github.com/mattrek/alphazero-stochastic/internal/backgammon"
	"github.com/mattrek/alphazero-stochastic/internal/game"
)

// gameRegistry resolves the configured "game" key to a concrete
// game.NewInitialStateFunc (spec.md section 6). internal/backgammon is
// the one implementation provided here.
var gameRegistry = map[string]func() game.NewInitialStateFunc{
	"backgammon": func() game.NewInitialStateFunc {
		cfg := backgammon.DefaultConfig()
		return func() game.State { return backgammon.NewInitialState(cfg) }
	},
	"backgammon-hyper": func() game.NewInitialStateFunc {
		cfg := backgammon.DefaultConfig()
		cfg.Checkers = 3
		return func() game.State { return backgammon.NewInitialState(cfg) }
	},
}

func resolveGame(name string) (game.NewInitialStateFunc, error) {
	ctor, ok := gameRegistry[name]
	if !ok {
		return nil, errors.Errorf("supervisor: unknown game %q", name)
	}
	return ctor(), nil
}

// verifyGameShape checks the "two-player zero-sum sequential
// terminal-reward" property spec.md section 4.11 requires the
// supervisor to verify before spawning any thread: exactly two
// non-chance players, and the returns of one game played out by always
// taking the first chance outcome and the first legal action sum to
// zero.
func verifyGameShape(newState game.NewInitialStateFunc) error {
	state := newState()
	if state.NumPlayers() != 2 {
		return errors.Errorf("supervisor: game must be two-player, got %d", state.NumPlayers())
	}

	for !state.IsTerminal() {
		if state.IsChance() {
			outcomes := state.ChanceOutcomes()
			if len(outcomes) == 0 {
				return errors.New("supervisor: chance node with no outcomes")
			}
			state.ApplyAction(outcomes[0].Action)
			continue
		}
		actions := state.LegalActions()
		if len(actions) == 0 {
			return errors.New("supervisor: decision node with no legal actions")
		}
		state.ApplyAction(actions[0])
	}

	returns := state.Returns()
	if len(returns) != 2 {
		return errors.New("supervisor: terminal returns must have one entry per player")
	}
	sum := returns[0] + returns[1]
	if sum < -1e-6 || sum > 1e-6 {
		return errors.Errorf("supervisor: game is not zero-sum (returns sum to %f)", sum)
	}
	return nil
}
