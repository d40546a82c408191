package supervisor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveGameKnownNames(t *testing.T) {
	for _, name := range []string{"backgammon", "backgammon-hyper"} {
		newState, err := resolveGame(name)
		require.NoError(t, err)
		require.NotNil(t, newState)
	}
}

func TestResolveGameUnknownNameErrors(t *testing.T) {
	_, err := resolveGame("chess")
	require.Error(t, err)
}

func TestVerifyGameShapeAcceptsBackgammon(t *testing.T) {
	newState, err := resolveGame("backgammon")
	require.NoError(t, err)
	require.NoError(t, verifyGameShape(newState))
}
