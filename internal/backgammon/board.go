// Package backgammon implements the one representative stochastic game
// required by spec.md section 4.1: a two-player, zero-sum, sequential
// game with chance (dice) nodes, non-trivial legal-move generation, and
// an action encoding that constrains the value-network interface.
//
// Board layout follows the same per-player [2][24]point + bar + off shape
// as kevung-gnubgparser's Position type (github.com/kevung/gnubgparser):
// Points[p][i] is the number of player p's checkers on point i (0-indexed,
// point i+1 in conventional backgammon notation). Player 0 moves from
// point 23 down to point 0 and off; player 1 moves from point 0 up to
// point 23 and off (the two home boards are mirrored, as in the standard
// game).
package backgammon

const (
	NumPoints       = 24
	DefaultCheckers = 15
	HyperCheckers   = 3

	homeSize = 6
)

// Board is the raw checker layout, independent of whose turn it is.
type Board struct {
	Points [2][NumPoints]int
	Bar    [2]int
	Off    [2]int
}

// direction returns +1 if player p moves toward increasing point index
// (player 1) or -1 if moving toward decreasing point index (player 0).
func direction(player int) int {
	if player == 0 {
		return -1
	}
	return 1
}

// homeRange returns the [lo, hi] inclusive point-index range of player p's
// home board, the six points closest to bearing off.
func homeRange(player int) (lo, hi int) {
	if player == 0 {
		return 0, homeSize - 1
	}
	return NumPoints - homeSize, NumPoints - 1
}

// entryPoint returns the point index a checker re-entering from the bar
// lands on for the given die face.
func entryPoint(player, die int) int {
	if player == 0 {
		return NumPoints - die
	}
	return die - 1
}

// opponent returns the other player index.
func opponent(player int) int {
	return 1 - player
}

// newStandardBoard returns the classic 2/5/3/5 backgammon starting layout.
func newStandardBoard(checkers int) Board {
	if checkers == HyperCheckers {
		return newHyperBoard()
	}
	var b Board
	// Player 0: moves 23 -> 0. Standard setup counted from player 0's
	// 24-point (index 23).
	b.Points[0][23] = 2
	b.Points[0][12] = 5
	b.Points[0][7] = 3
	b.Points[0][5] = 5
	// Player 1: mirror image.
	b.Points[1][0] = 2
	b.Points[1][11] = 5
	b.Points[1][16] = 3
	b.Points[1][18] = 5
	return b
}

// newHyperBoard returns the 3-checkers-per-side "hypergammon" variant
// layout: one checker on each of the farthest three points.
func newHyperBoard() Board {
	var b Board
	b.Points[0][23] = 1
	b.Points[0][22] = 1
	b.Points[0][21] = 1
	b.Points[1][0] = 1
	b.Points[1][1] = 1
	b.Points[1][2] = 1
	return b
}

// CheckerCount returns the total number of player p's checkers anywhere
// on the board, bar, or off; used by the checker-conservation invariant
// (spec.md section 8, property 4).
func (b *Board) CheckerCount(player int) int {
	n := b.Bar[player] + b.Off[player]
	for i := 0; i < NumPoints; i++ {
		n += b.Points[player][i]
	}
	return n
}

// blockedBy reports whether point idx is occupied by 2+ of the opponent's
// checkers (and thus closed to player).
func (b *Board) blockedBy(player, idx int) bool {
	return b.Points[opponent(player)][idx] >= 2
}

// allCheckersHome reports whether player has every checker in its home
// board (required to bear off).
func (b *Board) allCheckersHome(player int) bool {
	if b.Bar[player] > 0 {
		return false
	}
	lo, hi := homeRange(player)
	for i := 0; i < NumPoints; i++ {
		if i >= lo && i <= hi {
			continue
		}
		if b.Points[player][i] > 0 {
			return false
		}
	}
	return true
}

// furthestFromHome returns the index of the point farthest from bearing
// off that still holds one of player's checkers, or -1 if none (used for
// the bear-off overage rule). "Farthest" is measured outward from the
// home board.
func (b *Board) furthestFromHome(player int) int {
	lo, hi := homeRange(player)
	if player == 0 {
		for i := hi; i >= lo; i-- {
			if b.Points[player][i] > 0 {
				return i
			}
		}
	} else {
		for i := lo; i <= hi; i++ {
			if b.Points[player][i] > 0 {
				return i
			}
		}
	}
	return -1
}

// clone returns a deep copy (Board holds only arrays, so a value copy
// already suffices, but this keeps call sites explicit about intent).
func (b Board) clone() Board {
	return b
}
