package backgammon

import "github.com/mattrek/alphazero-stochastic/internal/game"

// dice pair enumeration: 21 unordered pairs (i<=j) in 1..6, doubles at
// probability 1/36 and non-doubles at 2/36 (spec.md section 4.1).
var diceOutcomeTable = buildDiceOutcomeTable()

type diceOutcome struct {
	d1, d2 int
	prob   float64
}

func buildDiceOutcomeTable() []diceOutcome {
	var outs []diceOutcome
	for i := 1; i <= 6; i++ {
		for j := i; j <= 6; j++ {
			p := 2.0 / 36.0
			if i == j {
				p = 1.0 / 36.0
			}
			outs = append(outs, diceOutcome{d1: i, d2: j, prob: p})
		}
	}
	return outs
}

// normalChanceOutcomes returns the 21 non-opening dice-pair outcomes,
// action-encoded as their index into diceOutcomeTable.
func normalChanceOutcomes() []game.ChanceOutcome {
	outs := make([]game.ChanceOutcome, len(diceOutcomeTable))
	for i, o := range diceOutcomeTable {
		outs[i] = game.ChanceOutcome{Action: i, Probability: o.prob}
	}
	return outs
}

func decodeNormalRoll(action int) [2]int {
	o := diceOutcomeTable[action]
	return [2]int{o.d1, o.d2}
}

// openingOutcomeTable: the 30-outcome joint starter+dice distribution
// (no doubles; first half favors player X=0, second half favors O=1),
// per spec.md section 4.1.
var openingOutcomeTable = buildOpeningOutcomeTable()

type openingOutcome struct {
	player int
	d1, d2 int
}

func buildOpeningOutcomeTable() []openingOutcome {
	var nonDoubles []diceOutcome
	for _, o := range diceOutcomeTable {
		if o.d1 != o.d2 {
			nonDoubles = append(nonDoubles, o)
		}
	}
	// 15 non-double pairs. First half (15 outcomes) assigns player 0 as
	// starter, second half assigns player 1, for 30 equiprobable outcomes.
	var outs []openingOutcome
	for _, o := range nonDoubles {
		outs = append(outs, openingOutcome{player: 0, d1: o.d1, d2: o.d2})
	}
	for _, o := range nonDoubles {
		outs = append(outs, openingOutcome{player: 1, d1: o.d1, d2: o.d2})
	}
	return outs
}

func openingChanceOutcomes() []game.ChanceOutcome {
	outs := make([]game.ChanceOutcome, len(openingOutcomeTable))
	p := 1.0 / float64(len(openingOutcomeTable))
	for i := range openingOutcomeTable {
		outs[i] = game.ChanceOutcome{Action: i, Probability: p}
	}
	return outs
}

func decodeOpeningRoll(action int) openingOutcome {
	return openingOutcomeTable[action]
}
