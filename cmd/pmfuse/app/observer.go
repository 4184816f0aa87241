package app

import (
	"github.com/rs/zerolog"

	"github.com/astriolab/pmfuse/pkg/align"
)

// loggingObserver returns an observer that logs a progress line after
// every iteration. The engine logs its own diagnostics at info; this one
// sits at debug so -v shows the per-iteration gate and drift numbers
// without double-reporting in normal runs.
func loggingObserver(log *zerolog.Logger) align.Observer {
	return align.ObserverFunc(func(state *align.IterationState) {
		log.Debug().
			Int("iteration", state.Iteration).
			Int("valid_frames", state.ValidFrames).
			Int("aligned", state.Aligned).
			Int("candidates", state.Candidates).
			Float64("drift", state.Drift).
			Float64("rms", state.RMS).
			Bool("converged", state.Converged).
			Msg("Iteration observed")
	})
}

// stateRecorder keeps the per-iteration snapshots so the run report can
// show the full convergence history.
type stateRecorder struct {
	states []*align.IterationState
}

// Iteration implements align.Observer.
func (r *stateRecorder) Iteration(state *align.IterationState) {
	r.states = append(r.states, state)
}
