// Package mcts implements the PUCT search engine described in
// spec.md section 4.5, generalized from the teacher's
// ZachBeta-neural_rps/alphago_demo/pkg/mcts UCB tree to handle explicit
// chance nodes, Dirichlet root noise, an optional MCTS-Solver resolved-
// outcome propagation, and temperature-based self-play action
// selection.
package mcts

import (
	"github.com/mattrek/alphazero-stochastic/internal/game"
)

// SearchNode is one edge+resulting-state pair in the tree: Action is
// the action applied to the parent state to reach this node, Player
// is the player who chose it (the parent state's mover), and the
// remaining fields are the standard MCTS statistics from spec.md
// section 3. TotalValue and Eval/Outcome are always stored from
// player 0's perspective, converted to a mover's perspective only at
// selection time; this keeps backup a plain accumulation with no sign
// bookkeeping.
type SearchNode struct {
	Action int
	Player int
	Prior  float64

	Visits     int
	TotalValue float64

	Children []*SearchNode
	Outcome  *float64 // resolved terminal/solved value, player-0 perspective
	Eval     float64  // bootstrap network evaluation, player-0 perspective

	state     game.State
	expanded  bool
}

func newNode(state game.State, action, player int, prior float64) *SearchNode {
	return &SearchNode{
		Action: action,
		Player: player,
		Prior:  prior,
		state:  state,
	}
}

// MeanValue returns the visit-averaged value (player 0 perspective);
// 0 for an unvisited node.
func (n *SearchNode) MeanValue() float64 {
	if n.Visits == 0 {
		return 0
	}
	return n.TotalValue / float64(n.Visits)
}

// resolvedOrMean returns the node's resolved outcome if the solver has
// settled it, else its visit-averaged value.
func (n *SearchNode) resolvedOrMean() float64 {
	if n.Outcome != nil {
		return *n.Outcome
	}
	return n.MeanValue()
}

// IsExpanded reports whether the node's children have been created.
func (n *SearchNode) IsExpanded() bool { return n.expanded }

// State exposes the node's owned game state (read-only by convention;
// callers that need to mutate should Clone it first).
func (n *SearchNode) State() game.State { return n.state }
