package trajectory

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mattrek/alphazero-stochastic/internal/stoptoken"
)

func TestQueuePushPop(t *testing.T) {
	tok := stoptoken.New()
	q := NewQueue(2, tok)
	tr := &Trajectory{Returns: []float64{1, -1}}
	require.NoError(t, q.Push(tr))

	got, ok := q.Pop()
	require.True(t, ok)
	require.Same(t, tr, got)
}

func TestQueueBlockNewValuesRejectsPush(t *testing.T) {
	tok := stoptoken.New()
	q := NewQueue(2, tok)
	q.BlockNewValues()
	err := q.Push(&Trajectory{})
	require.ErrorIs(t, err, ErrBlocked)
}

func TestQueueClearDrainsBuffered(t *testing.T) {
	tok := stoptoken.New()
	q := NewQueue(2, tok)
	require.NoError(t, q.Push(&Trajectory{}))
	require.Equal(t, 1, q.Len())
	q.Clear()
	require.Equal(t, 0, q.Len())
}

func TestQueueStopUnblocksPop(t *testing.T) {
	tok := stoptoken.New()
	q := NewQueue(2, tok)
	tok.Stop()
	_, ok := q.Pop()
	require.False(t, ok)
}
