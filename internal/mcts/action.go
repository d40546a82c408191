package mcts

import "math"

// SelectAction implements spec.md section 4.5's self-play action rule:
// before temperatureDrop moves into the game, sample a child
// proportional to visit-count^(1/temperature); after, pick the
// max-visits child (deterministic). ply is the number of decisions
// already made in the current game.
func (s *Search) SelectAction(ply int, temperature float64, temperatureDrop int) *SearchNode {
	if len(s.root.Children) == 0 {
		return nil
	}
	if ply >= temperatureDrop || temperature <= 0 {
		return mostVisited(s.root.Children)
	}
	return sampleByVisits(s.cfg.Rand, s.root.Children, temperature)
}

func mostVisited(children []*SearchNode) *SearchNode {
	best := children[0]
	for _, c := range children[1:] {
		if c.Visits > best.Visits {
			best = c
		}
	}
	return best
}

func sampleByVisits(rng interface{ Float64() float64 }, children []*SearchNode, temperature float64) *SearchNode {
	weights := make([]float64, len(children))
	sum := 0.0
	for i, c := range children {
		w := math.Pow(float64(c.Visits), 1/temperature)
		weights[i] = w
		sum += w
	}
	if sum == 0 {
		return children[0]
	}
	r := rng.Float64() * sum
	acc := 0.0
	for i, w := range weights {
		acc += w
		if r <= acc {
			return children[i]
		}
	}
	return children[len(children)-1]
}

// RecordedValue implements the "value of the chosen child" rule from
// spec.md section 4.5: a resolved outcome if the solver settled it,
// else the child's bootstrap eval (never the visit-averaged
// TotalValue, which exploration distorts) — converted from the
// internal player-0 perspective to actingPlayer's perspective, the
// convention Trajectory.TrajState.value_after_action uses (spec.md
// section 3).
func RecordedValue(chosen *SearchNode, actingPlayer int) float64 {
	v := chosen.resolvedOrMean()
	if chosen.Outcome != nil {
		v = *chosen.Outcome
	} else {
		v = chosen.Eval
	}
	if actingPlayer == 1 {
		return -v
	}
	return v
}
