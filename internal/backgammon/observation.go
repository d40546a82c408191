package backgammon

// MLP observation layout, per spec.md section 4.1: for each player, a
// one-hot-plus-overage encoding of the bar count, of each of the 24
// points, and of the borne-off count; then two turn flags, a one-hot of
// remaining-die counts per face, and constant match/cube slots.
const (
	barWidth    = 6
	pointWidth  = 6
	offWidth    = 16
	dieFaces    = 6
	dieCountW   = 5 // one-hot of 0..4 remaining dice of a face (doubles play up to 4)
	turnFlags   = 2
	matchSlots  = 4

	perPlayerWidth = barWidth + NumPoints*pointWidth + offWidth
	dieSectionW    = dieFaces * dieCountW

	// StateEncodingSize is the total MLP observation width. The exact
	// additive structure follows spec.md section 4.1; PlayerCentric
	// (compile/config time) decides whether player 0 is always "us".
	StateEncodingSize = 2*perPlayerWidth + turnFlags + dieSectionW + matchSlots
)

// oneHotPlusOverage writes a one-hot-with-overage encoding of count into
// dst[0:width]: dst[min(count,width-1)] = 1, plus for count >= width-1 the
// last slot doubles as "width-1 or more".
func oneHotPlusOverage(dst []float64, count, width int) {
	idx := count
	if idx >= width {
		idx = width - 1
	}
	if idx < 0 {
		idx = 0
	}
	dst[idx] = 1
}

func encodePlayerBoard(dst []float64, b *Board, player int) int {
	off := 0
	oneHotPlusOverage(dst[off:off+barWidth], b.Bar[player], barWidth)
	off += barWidth
	for i := 0; i < NumPoints; i++ {
		oneHotPlusOverage(dst[off:off+pointWidth], b.Points[player][i], pointWidth)
		off += pointWidth
	}
	oneHotPlusOverage(dst[off:off+offWidth], b.Off[player], offWidth)
	off += offWidth
	return off
}

// observationTensor renders the full MLP feature vector for the state.
// When playerCentric is set and player 1 is to move, the board is
// flipped so the acting player's layout is canonical: player 1's
// checkers are encoded first and every point index is mirrored, putting
// player 1's home board in the slots player 0's home uses.
func observationTensor(s *State, playerCentric bool) []float64 {
	obs := make([]float64, StateEncodingSize)
	off := 0

	board := s.board
	first, second := 0, 1
	if playerCentric && s.toMove >= 0 && s.toMove == 1 {
		first, second = 1, 0
		for i := 0; i < NumPoints; i++ {
			board.Points[0][i] = s.board.Points[0][NumPoints-1-i]
			board.Points[1][i] = s.board.Points[1][NumPoints-1-i]
		}
	}
	off += encodePlayerBoard(obs[off:], &board, first)
	off += encodePlayerBoard(obs[off:], &board, second)

	// Turn flags: whose turn, decision vs chance.
	if s.toMove == first {
		obs[off] = 1
	}
	off++
	if s.toMove < 0 {
		obs[off] = 1
	}
	off++

	// Remaining die counts per face (how many of each face value remain
	// to be played this turn).
	counts := remainingDieCounts(s.diceToPlay)
	for face := 0; face < dieFaces; face++ {
		c := counts[face]
		if c > dieCountW-1 {
			c = dieCountW - 1
		}
		obs[off+face*dieCountW+c] = 1
	}
	off += dieSectionW

	// Constant match/cube state slots. Doubling-cube play is a Non-goal
	// (spec.md section 1); these remain fixed at a money-game default so
	// the vector shape is stable across states.
	obs[off] = 1   // cube at 1
	obs[off+1] = 0 // cube centered
	obs[off+2] = 0 // not Crawford
	obs[off+3] = 0 // reserved
	off += matchSlots

	return obs
}

func remainingDieCounts(dice []int) [6]int {
	var counts [6]int
	for _, d := range dice {
		if d >= 1 && d <= 6 {
			counts[d-1]++
		}
	}
	return counts
}
