package mcts

import (
	"math"
	"math/rand"

	"github.com/mattrek/alphazero-stochastic/internal/game"
)

// Evaluator is the narrow capability MCTS needs from the inference
// layer: a blocking value lookup for one observation. Both
// inference.Evaluator and a bare network.Net wrapper satisfy it.
type Evaluator interface {
	Evaluate(obs []float64) (float64, bool)
}

// Config parameterizes one search, per the `uct_c`, `policy_alpha`,
// `policy_epsilon`, `min_simulations`, `max_simulations`,
// `max_memory_mb` configuration keys of spec.md section 6.
type Config struct {
	UCTC           float64
	PolicyAlpha    float64
	PolicyEpsilon  float64
	MinSimulations int
	MaxSimulations int
	MaxMemoryMB    int
	Solver         bool
	Rand           *rand.Rand
}

// approxNodeBytes is a rough per-node footprint used for the
// max_memory_mb search cutoff; exactness doesn't matter, only that it
// scales with node count.
const approxNodeBytes = 256

// Search owns one MCTS tree rooted at an initial state.
type Search struct {
	cfg  Config
	eval Evaluator
	root *SearchNode

	nodeCount int
}

// NewSearch builds a fresh tree rooted at state (which is cloned, per
// the single-owner rule in spec.md section 3).
func NewSearch(cfg Config, state game.State, eval Evaluator) *Search {
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(1))
	}
	s := &Search{cfg: cfg, eval: eval}
	s.root = newNode(state.Clone(), -1, game.ChancePlayer, 1.0)
	s.nodeCount = 1
	return s
}

// Root exposes the tree's root node.
func (s *Search) Root() *SearchNode { return s.root }

// Run executes simulations until max_simulations is reached, the
// memory cutoff trips (after at least min_simulations have run), or
// the root is solved.
func (s *Search) Run() int {
	n := 0
	for n < s.cfg.MaxSimulations {
		if n >= s.cfg.MinSimulations {
			if s.root.Outcome != nil {
				break
			}
			if s.nodeCount*approxNodeBytes/(1024*1024) >= s.cfg.MaxMemoryMB && s.cfg.MaxMemoryMB > 0 {
				break
			}
		}
		s.simulate(n == 0)
		n++
	}
	return n
}

// simulate runs one selection-expansion-evaluation-backup pass.
// firstSimulation indicates whether this is the first simulation, which is when
// Dirichlet root noise (if configured) is mixed in, immediately after
// the root is expanded.
func (s *Search) simulate(firstSimulation bool) {
	path := []*SearchNode{s.root}
	cur := s.root

	for cur.expanded && !cur.state.IsTerminal() {
		if cur.state.IsChance() {
			cur = s.selectChanceChild(cur)
		} else {
			cur = s.selectPUCTChild(cur)
		}
		path = append(path, cur)
	}

	var value float64
	if cur.state.IsTerminal() {
		v := cur.state.Returns()[0]
		cur.Outcome = &v
		value = v
	} else {
		s.expand(cur)
		if firstSimulation && s.cfg.PolicyAlpha > 0 && cur == s.root {
			s.addDirichletNoise(cur)
		}
		value = s.evaluateNode(cur)
		cur.Eval = value
	}

	s.backup(path, value)
	if s.cfg.Solver {
		s.propagateSolved(path)
	}
}

// expand creates one child per legal action (decision node) or per
// chance outcome (chance node); it never recurses into grandchildren.
func (s *Search) expand(n *SearchNode) {
	st := n.state
	if st.IsChance() {
		outcomes := st.ChanceOutcomes()
		for _, oc := range outcomes {
			child := st.Clone()
			child.ApplyAction(oc.Action)
			n.Children = append(n.Children, newNode(child, oc.Action, game.ChancePlayer, oc.Probability))
			s.nodeCount++
		}
		n.expanded = true
		return
	}

	actions := st.LegalActions()
	if len(actions) == 0 {
		n.expanded = true
		return
	}
	prior := 1.0 / float64(len(actions))
	mover := st.CurrentPlayer()
	for _, a := range actions {
		child := st.Clone()
		child.ApplyAction(a)
		n.Children = append(n.Children, newNode(child, a, mover, prior))
		s.nodeCount++
	}
	n.expanded = true
}

// evaluateNode calls the network on n's state and converts the
// network's current-mover-perspective output to the player-0
// perspective used internally for backup. n is the unexpanded leaf
// where selection stopped, which can be a chance node (for example the
// child reached by a Roll action); its CurrentPlayer is then
// ChancePlayer and the network output is taken as player-0 perspective
// unchanged.
func (s *Search) evaluateNode(n *SearchNode) float64 {
	obs := n.state.ObservationTensor()
	v, ok := s.eval.Evaluate(obs)
	if !ok {
		return 0
	}
	mover := n.state.CurrentPlayer()
	if mover == 1 {
		return -v
	}
	return v
}

func (s *Search) backup(path []*SearchNode, value float64) {
	for _, n := range path {
		n.Visits++
		n.TotalValue += value
	}
}

// selectPUCTChild picks the child maximizing mover-perspective mean
// value plus the PUCT exploration bonus, per spec.md section 4.5 and
// the GLOSSARY's PUCT definition.
func (s *Search) selectPUCTChild(n *SearchNode) *SearchNode {
	mover := n.state.CurrentPlayer()
	var best *SearchNode
	bestScore := math.Inf(-1)
	parentVisits := math.Sqrt(float64(n.Visits))
	for _, c := range n.Children {
		q := c.resolvedOrMean()
		if mover == 1 {
			q = -q
		}
		u := s.cfg.UCTC * c.Prior * parentVisits / (1 + float64(c.Visits))
		score := q + u
		if c.Outcome != nil {
			// A proven win for the mover dominates any unresolved sibling.
			won := *c.Outcome
			if mover == 1 {
				won = -won
			}
			if won > 0 {
				score = math.Inf(1)
			}
		}
		if score > bestScore {
			bestScore = score
			best = c
		}
	}
	return best
}

// selectChanceChild samples proportional to transition probability
// (spec.md section 4.5: "selection samples according to prior... not UCT").
func (s *Search) selectChanceChild(n *SearchNode) *SearchNode {
	r := s.cfg.Rand.Float64()
	acc := 0.0
	for _, c := range n.Children {
		acc += c.Prior
		if r <= acc {
			return c
		}
	}
	return n.Children[len(n.Children)-1]
}

// propagateSolved walks the simulation path from leaf to root,
// resolving any node whose children are all expanded and resolved
// (standard MCTS-Solver semantics, spec.md section 4.5).
func (s *Search) propagateSolved(path []*SearchNode) {
	for i := len(path) - 1; i >= 0; i-- {
		n := path[i]
		if n.Outcome != nil || !n.expanded || len(n.Children) == 0 {
			continue
		}
		allResolved := true
		for _, c := range n.Children {
			if c.Outcome == nil {
				allResolved = false
				break
			}
		}
		if !allResolved {
			return
		}
		if n.state.IsChance() {
			ev := 0.0
			for _, c := range n.Children {
				ev += c.Prior * (*c.Outcome)
			}
			n.Outcome = &ev
			continue
		}
		mover := n.state.CurrentPlayer()
		best := *n.Children[0].Outcome
		for _, c := range n.Children[1:] {
			v := *c.Outcome
			better := v > best
			if mover == 1 {
				better = v < best
			}
			if better {
				best = v
			}
		}
		n.Outcome = &best
	}
}
