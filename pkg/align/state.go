package align

import (
	"github.com/astriolab/pmfuse/pkg/calibrate"
	"github.com/astriolab/pmfuse/pkg/catalog"
	"github.com/astriolab/pmfuse/pkg/constants"
	"github.com/astriolab/pmfuse/pkg/frame"
	"github.com/astriolab/pmfuse/pkg/quality"
)

// Mode selects the convergence policy.
type Mode string

const (
	// ModeMembership stops once the alignment flag vector repeats itself
	// between iterations.
	ModeMembership Mode = "membership"

	// ModeDrift stops once absolute proper motions move less than a
	// fraction of their errors between iterations.
	ModeDrift Mode = "drift"
)

// String returns the mode name.
func (m Mode) String() string {
	return string(m)
}

// Cap returns the mode's default iteration ceiling.
func (m Mode) Cap() int {
	if m == ModeDrift {
		return constants.DefaultDriftCap
	}
	return constants.DefaultMembershipCap
}

// IterationState is one completed iteration: the snapshot the next
// iteration starts from plus the diagnostics behind it. Observers must
// treat it as read-only.
type IterationState struct {
	Iteration int `json:"iteration" yaml:"iteration"`

	// Table is the post-iteration star snapshot.
	Table *catalog.Table `json:"-" yaml:"-"`

	// Transformations carries the per-frame fits, trimmed when the gate
	// trims, that seed the next iteration's priors.
	Transformations map[string]*frame.Transformation `json:"-" yaml:"-"`

	// Reports holds the gate verdict for every frame that produced a
	// transformation this iteration, keyed by frame ID.
	Reports map[string]*quality.Report `json:"reports" yaml:"reports"`

	Offset       *calibrate.Offset `json:"offset" yaml:"offset"`
	ValidFrames  int               `json:"valid_frames" yaml:"valid_frames"`
	Aligned      int               `json:"aligned" yaml:"aligned"`
	Candidates   int               `json:"candidates" yaml:"candidates"`
	FlagsChanged bool              `json:"flags_changed" yaml:"flags_changed"`

	// Drift is the mean |Δ absolute PM| against the previous iteration,
	// NaN on the first. RMS measures the distance to the reference PMs
	// over the alignment stars.
	Drift     float64 `json:"drift" yaml:"drift"`
	RMS       float64 `json:"rms" yaml:"rms"`
	Converged bool    `json:"converged" yaml:"converged"`
}

// Observer receives each iteration's state as it completes. Calls arrive
// sequentially from the run loop.
type Observer interface {
	Iteration(state *IterationState)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(state *IterationState)

// Iteration calls f.
func (f ObserverFunc) Iteration(state *IterationState) {
	f(state)
}

// Result is a finished run.
type Result struct {
	RunID string `json:"run_id" yaml:"run_id"`

	// Table keeps the stars that ended the run with an absolute PM.
	Table *catalog.Table `json:"-" yaml:"-"`

	Iterations int               `json:"iterations" yaml:"iterations"`
	Converged  bool              `json:"converged" yaml:"converged"`
	Offset     *calibrate.Offset `json:"offset" yaml:"offset"`

	// Drift and RMS record the per-iteration convergence series.
	Drift []float64 `json:"drift" yaml:"drift"`
	RMS   []float64 `json:"rms" yaml:"rms"`
}
