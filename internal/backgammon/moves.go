package backgammon

// BarSource is the pseudo point index used in a CheckerMove to mean "enter
// from the bar" rather than move a checker already on the board.
const BarSource = NumPoints

// CheckerMove is one single-checker move: move the checker on Source by
// Die pips in the mover's direction (or enter from the bar if
// Source == BarSource).
type CheckerMove struct {
	Source int
	Die    int
}

// LegalLevel is the maximum number of dice a player is obligated to play
// from a given state, per spec.md section 4.1.
type LegalLevel int

const (
	LegalLevelNone LegalLevel = iota
	LegalLevelLowDie
	LegalLevelHighDie
	LegalLevelTwoDice
	LegalLevelThreeDice
	LegalLevelFourDice
)

// diceSequence expands a rolled pair into the multiset of dice to be
// played: two values for a normal roll, four copies for a double.
func diceSequence(dice [2]int) []int {
	if dice[0] == dice[1] {
		return []int{dice[0], dice[0], dice[0], dice[0]}
	}
	return []int{dice[0], dice[1]}
}

// singleMoves returns every legal single-checker move of a single die
// face from the current board for player, ignoring the other die(s) in
// the roll.
func singleMoves(b *Board, player, die int) []CheckerMove {
	var moves []CheckerMove
	if b.Bar[player] > 0 {
		dest := entryPoint(player, die)
		if !b.blockedBy(player, dest) {
			moves = append(moves, CheckerMove{Source: BarSource, Die: die})
		}
		return moves
	}

	dir := direction(player)
	canBearOff := b.allCheckersHome(player)
	for src := 0; src < NumPoints; src++ {
		if b.Points[player][src] == 0 {
			continue
		}
		dest := src + dir*die
		if dest >= 0 && dest < NumPoints {
			if !b.blockedBy(player, dest) {
				moves = append(moves, CheckerMove{Source: src, Die: die})
			}
			continue
		}
		// Off the board: only legal as a bear-off.
		if !canBearOff {
			continue
		}
		// Exact bear-off is always legal from a home-board checker.
		pip := pipsToOff(player, src)
		if pip == die {
			moves = append(moves, CheckerMove{Source: src, Die: die})
			continue
		}
		// Overage bear-off: legal only if src is the farthest checker from
		// home and the die overshoots it.
		if pip < die && b.furthestFromHome(player) == src {
			moves = append(moves, CheckerMove{Source: src, Die: die})
		}
	}
	return moves
}

// pipsToOff returns the exact die value that would bear a checker on src
// directly off the board.
func pipsToOff(player, src int) int {
	if player == 0 {
		return src + 1
	}
	return NumPoints - src
}

// applyCheckerMove mutates b in place by playing mv for player.
func applyCheckerMove(b *Board, player int, mv CheckerMove) {
	opp := opponent(player)
	dir := direction(player)

	if mv.Source == BarSource {
		dest := entryPoint(player, mv.Die)
		if b.Points[opp][dest] == 1 {
			b.Points[opp][dest] = 0
			b.Bar[opp]++
		}
		b.Bar[player]--
		b.Points[player][dest]++
		return
	}

	dest := mv.Source + dir*mv.Die
	b.Points[player][mv.Source]--
	if dest < 0 || dest >= NumPoints {
		b.Off[player]++
		return
	}
	if b.Points[opp][dest] == 1 {
		b.Points[opp][dest] = 0
		b.Bar[opp]++
	}
	b.Points[player][dest]++
}

// legalSequences performs a bounded depth-first search over candidate
// single-checker moves to find every maximal-length sequence of moves
// playing the given dice, and the length of the longest such sequence
// (the legal level). The DFS is bounded by the dice count (<=4 plies).
func legalSequences(b *Board, player int, dice [2]int) ([][]CheckerMove, LegalLevel) {
	remaining := diceSequence(dice)
	isDouble := dice[0] == dice[1]

	best := 0
	var bestSeqs [][]CheckerMove

	var dfs func(board Board, used []CheckerMove, avail []int)
	dfs = func(board Board, used []CheckerMove, avail []int) {
		progressed := false
		// Try each distinct remaining die face (distinct values only, to
		// avoid exploring symmetric orderings of identical dice).
		tried := map[int]bool{}
		for i, d := range avail {
			if tried[d] {
				continue
			}
			tried[d] = true
			moves := singleMoves(&board, player, d)
			for _, mv := range moves {
				progressed = true
				nextBoard := board
				applyCheckerMove(&nextBoard, player, mv)
				nextAvail := make([]int, 0, len(avail)-1)
				skipped := false
				for j, d2 := range avail {
					if j == i && !skipped {
						skipped = true
						continue
					}
					nextAvail = append(nextAvail, d2)
				}
				nextUsed := append(append([]CheckerMove{}, used...), mv)
				dfs(nextBoard, nextUsed, nextAvail)
			}
		}
		if !progressed {
			n := len(used)
			switch {
			case n > best:
				best = n
				bestSeqs = [][]CheckerMove{append([]CheckerMove{}, used...)}
			case n == best && n > 0:
				bestSeqs = append(bestSeqs, append([]CheckerMove{}, used...))
			}
		}
	}

	dfs(*b, nil, remaining)

	level := levelFromCount(best, isDouble)

	// The "larger die preferred when only one die can be played" rule: if
	// exactly one die can be played and it is a non-double roll, drop any
	// sequence that used only the lower die when the higher die is also
	// individually playable.
	if !isDouble && best == 1 {
		hi, lo := dice[1], dice[0]
		if lo > hi {
			hi, lo = lo, hi
		}
		hiPlayable := len(singleMoves(b, player, hi)) > 0
		if hiPlayable {
			filtered := bestSeqs[:0:0]
			for _, seq := range bestSeqs {
				if seq[0].Die == hi {
					filtered = append(filtered, seq)
				}
			}
			if len(filtered) > 0 {
				bestSeqs = filtered
				level = LegalLevelHighDie
			}
		}
	}

	return bestSeqs, level
}

func levelFromCount(n int, isDouble bool) LegalLevel {
	switch {
	case n <= 0:
		return LegalLevelNone
	case n == 1:
		return LegalLevelLowDie // refined to HighDie by the caller when applicable
	case n == 2:
		return LegalLevelTwoDice
	case n == 3:
		return LegalLevelThreeDice
	default:
		return LegalLevelFourDice
	}
}

// sortedDice returns dice in ascending order.
func sortedDice(dice [2]int) [2]int {
	d := dice
	if d[0] > d[1] {
		d[0], d[1] = d[1], d[0]
	}
	return d
}
