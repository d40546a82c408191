package backgammon

import (
	"fmt"
	"math/rand"

	"github.com/mattrek/alphazero-stochastic/internal/game"
)

// chanceKind distinguishes the one-off 30-outcome opening roll from the
// steady-state 21-outcome per-turn roll.
type chanceKind int

const (
	chanceNone chanceKind = iota
	chanceOpening
	chanceNormal
)

// Config resolves the source ambiguities flagged in spec.md section 9 and
// the variant knobs of section 4.1.
type Config struct {
	Checkers              int  // 15 standard, 3 for the "hyper" variant
	PlayerCentric         bool // always flip the board to the acting player's perspective
	RandomizeInitialBoard bool // 5% degenerate starting layouts; off by default (ambiguity 9a)
}

// DefaultConfig returns the standard 15-checker, player-centric ruleset.
func DefaultConfig() Config {
	return Config{Checkers: DefaultCheckers, PlayerCentric: true}
}

// State implements game.State for backgammon.
type State struct {
	cfg Config

	board Board

	toMove       int // game.ChancePlayer / game.TerminalPlayer / 0 / 1
	rollingPlayer int // the player whose roll is pending at a chance node
	kind         chanceKind

	dice       [2]int
	diceToPlay []int

	gameOver bool
	returns  []float64
}

// NewInitialState returns the starting backgammon position: a chance
// node awaiting the distinguished opening roll.
func NewInitialState(cfg Config) *State {
	board := newStandardBoard(cfg.Checkers)
	if cfg.RandomizeInitialBoard && rand.Float64() < 0.05 {
		board = degenerateInitialBoard(cfg.Checkers)
	}
	return &State{
		cfg:    cfg,
		board:  board,
		toMove: game.ChancePlayer,
		kind:   chanceOpening,
	}
}

// degenerateInitialBoard implements the curriculum/input-conditioning
// experiment flagged as source ambiguity 9a: a single-pile or bar-only
// starting layout, gated entirely behind Config.RandomizeInitialBoard.
func degenerateInitialBoard(checkers int) Board {
	var b Board
	if rand.Intn(2) == 0 {
		// Single pile: all checkers stacked on each side's 24-point.
		b.Points[0][23] = checkers
		b.Points[1][0] = checkers
	} else {
		// Bar-only: both sides must re-enter from scratch.
		b.Bar[0] = checkers
		b.Bar[1] = checkers
	}
	return b
}

func (s *State) CurrentPlayer() int { return s.toMove }
func (s *State) IsTerminal() bool   { return s.gameOver }
func (s *State) IsChance() bool     { return s.toMove == game.ChancePlayer }
func (s *State) NumPlayers() int    { return 2 }

func (s *State) LegalActions() []int {
	if s.IsChance() || s.IsTerminal() {
		return nil
	}
	if s.diceToPlay == nil {
		return []int{RollAction}
	}
	seqs, level := legalSequences(&s.board, s.toMove, s.dice)
	if level == LegalLevelNone {
		return []int{EndTurnAction}
	}
	seen := map[int]bool{}
	var actions []int
	for _, seq := range seqs {
		a := CheckerMovesToAction(seq)
		if !seen[a] {
			seen[a] = true
			actions = append(actions, a)
		}
	}
	return actions
}

func (s *State) ChanceOutcomes() []game.ChanceOutcome {
	switch s.kind {
	case chanceOpening:
		return openingChanceOutcomes()
	case chanceNormal:
		return normalChanceOutcomes()
	default:
		return nil
	}
}

func (s *State) ApplyAction(action int) {
	if s.IsChance() {
		s.applyChance(action)
		return
	}
	switch {
	case action == RollAction:
		s.rollingPlayer = s.toMove
		s.toMove = game.ChancePlayer
		s.kind = chanceNormal
	case action == EndTurnAction:
		s.endTurn()
	case action == DoubleAction || action == TakeAction || action == DropAction:
		// Doubling-cube play is a Non-goal (spec.md section 1); these
		// sentinels are reserved in the action space but never legal.
		panic("backgammon: cube actions are not implemented")
	default:
		s.applyMoveSequence(action)
	}
}

func (s *State) applyChance(action int) {
	switch s.kind {
	case chanceOpening:
		o := decodeOpeningRoll(action)
		s.toMove = o.player
		s.dice = [2]int{o.d1, o.d2}
	case chanceNormal:
		s.dice = decodeNormalRoll(action)
		// Ambiguity 9b: the player who rolled remains the player to move;
		// "Roll" was their explicit action, not a turn change.
		s.toMove = s.rollingPlayer
	}
	s.diceToPlay = diceSequence(s.dice)
}

func (s *State) applyMoveSequence(action int) {
	moves := ActionToCheckerMoves(action)
	for _, mv := range moves {
		applyCheckerMove(&s.board, s.toMove, mv)
	}
	s.checkTerminal()
	if !s.gameOver {
		s.endTurn()
	}
}

func (s *State) endTurn() {
	s.toMove = opponent(s.toMove)
	s.dice = [2]int{}
	s.diceToPlay = nil
	s.kind = chanceNormal
}

func (s *State) checkTerminal() {
	for p := 0; p < 2; p++ {
		if s.board.Off[p] == s.cfg.Checkers {
			s.gameOver = true
			s.returns = scoreGame(&s.board, p)
			return
		}
	}
}

// scoreGame returns the per-player return vector once winner has borne
// off every checker: 1 point for a single game, 2 for a gammon (loser
// bore off nothing), 3 for a backgammon (loser still has a checker in
// the winner's home board or on the bar).
func scoreGame(b *Board, winner int) []float64 {
	loser := opponent(winner)
	points := 1.0
	if b.Off[loser] == 0 {
		points = 2.0
		lo, hi := homeRange(winner)
		if b.Bar[loser] > 0 {
			points = 3.0
		} else {
			for i := lo; i <= hi; i++ {
				if b.Points[loser][i] > 0 {
					points = 3.0
					break
				}
			}
		}
	}
	ret := make([]float64, 2)
	ret[winner] = points
	ret[loser] = -points
	return ret
}

func (s *State) Returns() []float64 {
	if !s.gameOver {
		return []float64{0, 0}
	}
	return s.returns
}

func (s *State) Clone() game.State {
	clone := *s
	return &clone
}

func (s *State) ObservationTensor() []float64 {
	return observationTensor(s, s.cfg.PlayerCentric)
}

func (s *State) ActionToString(player, action int) string {
	switch action {
	case RollAction:
		return "Roll"
	case EndTurnAction:
		return "EndTurn"
	case DoubleAction:
		return "Double"
	case TakeAction:
		return "Take"
	case DropAction:
		return "Drop"
	}
	moves := ActionToCheckerMoves(action)
	out := ""
	for i, mv := range moves {
		if i > 0 {
			out += " "
		}
		src := "bar"
		if mv.Source != BarSource {
			src = fmt.Sprintf("%d", mv.Source+1)
		}
		out += fmt.Sprintf("%s/%d", src, mv.Die)
	}
	return out
}

// DetermineLegalLevel exposes the DFS-computed legal level directly, for
// the testable properties in spec.md section 8 (S1, S2, property 3).
func (s *State) DetermineLegalLevel() LegalLevel {
	if s.diceToPlay == nil {
		return LegalLevelNone
	}
	_, level := legalSequences(&s.board, s.toMove, s.dice)
	return level
}

// Board exposes the raw layout for tests and observation-invariant checks.
func (s *State) Board() Board { return s.board }

// Dice exposes the currently rolled dice for tests.
func (s *State) Dice() [2]int { return s.dice }
