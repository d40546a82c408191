package trajectory

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// S3 from spec.md section 8: 3-state trajectory, v=[0.2,0.4,-0.1],
// accum_luck=[0,0.1,0.1], p0 return +1, lambda=0.5, n=0.
func TestTDLambdaTargetMatchesWorkedExample(t *testing.T) {
	traj := &Trajectory{
		States: []TrajState{
			{ValueAfterAction: 0.2, CurrentPlayer: 0, AccumulatedLuckP0: 0},
			{ValueAfterAction: 0.4, CurrentPlayer: 0, AccumulatedLuckP0: 0.1},
			{ValueAfterAction: -0.1, CurrentPlayer: 0, AccumulatedLuckP0: 0.1},
		},
		Returns: []float64{1, -1},
	}
	got := TDLambdaTarget(traj, 0, 0.5, 0)
	require.InDelta(t, 0.2625, got, 1e-9)
}

func TestTDLambdaGreaterEqualOne(t *testing.T) {
	traj := &Trajectory{
		States: []TrajState{
			{ValueAfterAction: 0.2, CurrentPlayer: 0, AccumulatedLuckP0: 0},
			{ValueAfterAction: 0.4, CurrentPlayer: 0, AccumulatedLuckP0: 0.1},
			{ValueAfterAction: -0.1, CurrentPlayer: 0, AccumulatedLuckP0: 0.1},
		},
		Returns: []float64{1, -1},
	}
	// n=0 with lambda=1 must fall back to the bootstrap.
	got := TDLambdaTarget(traj, 0, 1.0, 0)
	require.InDelta(t, 0.9, got, 1e-9)
}

func TestTDLambdaLessEqualZero(t *testing.T) {
	traj := &Trajectory{
		States: []TrajState{
			{ValueAfterAction: 0.2, CurrentPlayer: 0, AccumulatedLuckP0: 0},
			{ValueAfterAction: 0.4, CurrentPlayer: 1, AccumulatedLuckP0: 0.1},
		},
		Returns: []float64{1, -1},
	}
	got := TDLambdaTarget(traj, 1, 0.0, 0)
	require.InDelta(t, -0.4, got, 1e-9)
}

// Invariant 1: |td_lambda_returns(s)| <= 1+eps after clipping the
// terminal bootstrap.
func TestTDLambdaBoundedByOnePlusEpsilon(t *testing.T) {
	traj := &Trajectory{
		States: []TrajState{
			{ValueAfterAction: 0.9, CurrentPlayer: 0, AccumulatedLuckP0: 0},
			{ValueAfterAction: 0.9, CurrentPlayer: 0, AccumulatedLuckP0: 5.0},
		},
		Returns: []float64{1, -1},
	}
	got := TDLambdaTarget(traj, 0, 1.0, 0)
	require.LessOrEqual(t, got, 1.0+1e-9)
	require.GreaterOrEqual(t, got, -1.0-1e-9)
}
