package trajectory

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mattrek/alphazero-stochastic/internal/game"
)

// luckChild is a terminal state whose player-0 return is fixed by
// whichever action built it.
type luckChild struct {
	applied bool
	value   float64
}

func (c *luckChild) CurrentPlayer() int                      { return 0 }
func (c *luckChild) IsChance() bool                          { return false }
func (c *luckChild) IsTerminal() bool                        { return c.applied }
func (c *luckChild) NumPlayers() int                          { return 2 }
func (c *luckChild) LegalActions() []int                      { return nil }
func (c *luckChild) ChanceOutcomes() []game.ChanceOutcome     { return nil }
func (c *luckChild) ObservationTensor() []float64             { return []float64{c.value} }
func (c *luckChild) Returns() []float64                       { return []float64{c.value, -c.value} }
func (c *luckChild) Clone() game.State                        { cp := *c; return &cp }
func (c *luckChild) ActionToString(player, action int) string { return "" }
func (c *luckChild) ApplyAction(a int) {
	c.applied = true
	if a == 2 {
		c.value = -0.4
	} else {
		c.value = 0.4
	}
}

// luckRoot is the chance node from spec.md section 8's S4:
// outcomes [(a1,0.5,V=+0.4),(a2,0.5,V=-0.4)].
type luckRoot struct{}

func (r *luckRoot) CurrentPlayer() int  { return game.ChancePlayer }
func (r *luckRoot) IsChance() bool      { return true }
func (r *luckRoot) IsTerminal() bool    { return false }
func (r *luckRoot) NumPlayers() int     { return 2 }
func (r *luckRoot) LegalActions() []int { return nil }
func (r *luckRoot) ChanceOutcomes() []game.ChanceOutcome {
	return []game.ChanceOutcome{{Action: 1, Probability: 0.5}, {Action: 2, Probability: 0.5}}
}
func (r *luckRoot) ApplyAction(a int)               {}
func (r *luckRoot) ObservationTensor() []float64    { return nil }
func (r *luckRoot) Returns() []float64              { return nil }
func (r *luckRoot) Clone() game.State               { return &luckChild{} }
func (r *luckRoot) ActionToString(player, action int) string { return "" }

func TestEvaluateLuckMatchesWorkedExample(t *testing.T) {
	root := &luckRoot{}
	got := EvaluateLuck(root, 1, nil)
	require.InDelta(t, 0.4, got, 1e-9)
}

func TestEvaluateLuckUnluckyOutcome(t *testing.T) {
	root := &luckRoot{}
	got := EvaluateLuck(root, 2, nil)
	require.InDelta(t, -0.4, got, 1e-9)
}
