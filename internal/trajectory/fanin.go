package trajectory

import (
	channerics "github.com/niceyeti/channerics/channels"

	"github.com/mattrek/alphazero-stochastic/internal/stoptoken"
)

// FanIn merges one trajectory channel per actor into a single stream
// and forwards each trajectory to q, grounded in
// niceyeti-tabular/reinforcement/learning.go's channerics.Merge fan-in
// of per-agent episode channels over a shared "done" channel.
func FanIn(stop *stoptoken.Token, q *Queue, sources ...<-chan *Trajectory) {
	merged := channerics.Merge(stop.Done(), sources...)
	go func() {
		for t := range merged {
			for {
				err := q.Push(t)
				if err == nil || err == ErrBlocked {
					break
				}
			}
		}
	}()
}
