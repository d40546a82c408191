// Package rating implements the rating evaluator thread of spec.md
// section 4.9: it plays the AZ bot against a rollout-MCTS reference
// opponent whose budget is scaled per difficulty level, recording a
// recent-window mean return per level.
package rating

import (
	"math"
	"math/rand"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/mattrek/alphazero-stochastic/internal/game"
	"github.com/mattrek/alphazero-stochastic/internal/mcts"
	"github.com/mattrek/alphazero-stochastic/internal/stoptoken"
)

// Registry is the shared eval-results store, protected by a mutex per
// spec.md section 3 ("eval-results are shared via explicit mutual
// exclusion").
type Registry struct {
	mu         sync.Mutex
	windows    map[int][]float64
	windowSize int
}

// NewRegistry returns a registry keeping at most windowSize recent
// returns per difficulty level.
func NewRegistry(windowSize int) *Registry {
	return &Registry{windows: make(map[int][]float64), windowSize: windowSize}
}

// Record appends ret to difficulty's recent window, evicting the
// oldest entry once the window is full.
func (r *Registry) Record(difficulty int, ret float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w := r.windows[difficulty]
	w = append(w, ret)
	if len(w) > r.windowSize {
		w = w[len(w)-r.windowSize:]
	}
	r.windows[difficulty] = w
}

// Mean returns the recent-window mean return for difficulty, or 0 if
// no games have been recorded.
func (r *Registry) Mean(difficulty int) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	w := r.windows[difficulty]
	if len(w) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range w {
		sum += v
	}
	return sum / float64(len(w))
}

// Means returns a snapshot of every recorded difficulty's mean, for
// the learner's log record.
func (r *Registry) Means() map[int]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[int]float64, len(r.windows))
	for d := range r.windows {
		sum := 0.0
		for _, v := range r.windows[d] {
			sum += v
		}
		out[d] = sum / float64(len(r.windows[d]))
	}
	return out
}

// Config bundles the rating thread's parameters.
type Config struct {
	Search          mcts.Config
	DifficultyLevels int // eval_levels
	BaseSimulations  int // max_simulations
}

// Evaluator plays AZ against the rollout opponent.
type Evaluator struct {
	id       int
	cfg      Config
	newState game.NewInitialStateFunc
	eval     mcts.Evaluator
	registry *Registry
	stop     *stoptoken.Token
	log      *logrus.Entry
	rng      *rand.Rand
	level    int
}

// New constructs a rating evaluator thread identified by id.
func New(id int, cfg Config, newState game.NewInitialStateFunc, eval mcts.Evaluator, registry *Registry, stop *stoptoken.Token, log *logrus.Entry) *Evaluator {
	return &Evaluator{
		id: id, cfg: cfg, newState: newState, eval: eval,
		registry: registry, stop: stop, log: log,
		rng: rand.New(rand.NewSource(int64(id) + 1000)),
	}
}

// Run cycles through difficulty levels, alternating which side AZ
// plays, until the stop token fires.
func (e *Evaluator) Run() {
	azPlays0 := true
	for !e.stop.Stopped() {
		difficulty := e.level % e.cfg.DifficultyLevels
		e.level++

		ret, ok := e.playOne(difficulty, azPlays0)
		if !ok {
			return
		}
		e.registry.Record(difficulty, ret)
		azPlays0 = !azPlays0
	}
}

// playOne plays one game, returning the return from AZ's perspective.
func (e *Evaluator) playOne(difficulty int, azPlays0 bool) (float64, bool) {
	state := e.newState()
	rolloutBudget := int(float64(e.cfg.BaseSimulations) * math.Pow(10, float64(difficulty)/2))

	for !state.IsTerminal() {
		if e.stop.Stopped() {
			return 0, false
		}
		if state.IsChance() {
			outcomes := state.ChanceOutcomes()
			r := e.rng.Float64()
			acc := 0.0
			chosen := outcomes[len(outcomes)-1].Action
			for _, oc := range outcomes {
				acc += oc.Probability
				if r <= acc {
					chosen = oc.Action
					break
				}
			}
			state.ApplyAction(chosen)
			continue
		}

		mover := state.CurrentPlayer()
		azTurn := (mover == 0) == azPlays0
		if azTurn {
			search := mcts.NewSearch(e.cfg.Search, state, e.eval)
			search.Run()
			node := search.SelectAction(e.cfg.Search.MaxSimulations, 0, 0)
			if node == nil {
				break
			}
			state.ApplyAction(node.Action)
		} else {
			a := rolloutChooseAction(e.rng, state, rolloutBudget)
			if a < 0 {
				break
			}
			state.ApplyAction(a)
		}
	}

	returns := state.Returns()
	if azPlays0 {
		return returns[0], true
	}
	return -returns[0], true
}
