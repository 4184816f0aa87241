// Package align drives the iterative reduction loop: transform every
// frame against the current star table, gate the fits, aggregate the
// surviving measurements into per-star relative motions, calibrate them
// onto the reference system, and refine the alignment membership,
// repeating until the chosen policy declares convergence or the
// iteration cap runs out.
package align

import (
	"context"
	"math"

	"github.com/agentstation/utc"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/astriolab/pmfuse/pkg/aggregate"
	"github.com/astriolab/pmfuse/pkg/calibrate"
	"github.com/astriolab/pmfuse/pkg/catalog"
	"github.com/astriolab/pmfuse/pkg/constants"
	"github.com/astriolab/pmfuse/pkg/errors"
	"github.com/astriolab/pmfuse/pkg/frame"
	"github.com/astriolab/pmfuse/pkg/logging"
	"github.com/astriolab/pmfuse/pkg/membership"
	"github.com/astriolab/pmfuse/pkg/quality"
	"github.com/astriolab/pmfuse/pkg/transform"
)

// Config tunes a run. Zero values pull their defaults from constants, so
// the zero Config runs membership mode with the standard thresholds.
type Config struct {
	// Mode picks the convergence policy, ModeMembership when empty.
	Mode Mode `json:"mode" yaml:"mode"`

	// MaxIterations caps the loop. Zero uses the mode's cap.
	MaxIterations int `json:"max_iterations" yaml:"max_iterations"`

	// Workers bounds the per-frame transform fan-out.
	Workers int `json:"workers" yaml:"workers"`

	// MinStars is the alignment floor per frame footprint. A footprint
	// holding fewer flagged stars falls back to fitting on every star
	// it contains.
	MinStars int `json:"min_stars" yaml:"min_stars"`

	// Gate configures the per-frame quality checks. A zero Alpha
	// defaults by mode: strict for membership runs, permissive for
	// drift runs.
	Gate quality.Config `json:"gate" yaml:"gate"`

	// Components, ClipProb and Seed feed the membership classifier.
	Components int     `json:"components" yaml:"components"`
	ClipProb   float64 `json:"clip_prob" yaml:"clip_prob"`
	Seed       uint64  `json:"seed" yaml:"seed"`

	// Anchor pins the classifier's centering for the first
	// AnchorIterations engine iterations; afterwards the classifier
	// centers on the candidate median. Nil means the rest-frame origin.
	// A negative AnchorIterations disables anchoring entirely.
	Anchor           []float64 `json:"anchor" yaml:"anchor"`
	AnchorIterations int       `json:"anchor_iterations" yaml:"anchor_iterations"`

	// DriftFraction scales the drift-mode threshold: the run converges
	// once the mean |Δ absolute PM| drops below this fraction of the
	// mean relative-PM error on both components.
	DriftFraction float64 `json:"drift_fraction" yaml:"drift_fraction"`
}

func (c Config) withDefaults() Config {
	if c.Mode == "" {
		c.Mode = ModeMembership
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = c.Mode.Cap()
	}
	if c.Workers <= 0 {
		c.Workers = constants.MaxConcurrentFrames
	}
	if c.MinStars <= 0 {
		c.MinStars = constants.DefaultMinStarsAlignment
	}
	if c.Gate.MinStars == 0 {
		c.Gate.MinStars = c.MinStars
	}
	if c.Gate.Alpha == 0 {
		if c.Mode == ModeMembership {
			c.Gate.Alpha = constants.DefaultMemberAlpha
		} else {
			c.Gate.Alpha = constants.DefaultAlpha
		}
	}
	if c.ClipProb == 0 {
		c.ClipProb = constants.DefaultClipProb
	}
	if c.AnchorIterations == 0 {
		c.AnchorIterations = constants.DefaultAnchorIterations
	}
	if c.Anchor == nil {
		c.Anchor = []float64{0, 0}
	}
	if c.DriftFraction == 0 {
		c.DriftFraction = constants.DefaultDriftErrorFraction
	}
	return c
}

// Engine owns one reduction setup: a transformer, the frame manifest and
// the tuning knobs. A single engine can run any number of tables.
type Engine struct {
	transformer transform.Transformer
	frames      []frame.Frame
	refEpoch    utc.Time
	cfg         Config
	observers   []Observer
}

// New builds an engine over the manifest's frames.
func New(tr transform.Transformer, manifest *frame.Manifest, cfg Config) (*Engine, error) {
	if tr == nil {
		return nil, errors.NewValidationError("transformer", nil, "transformer is required")
	}
	if manifest == nil {
		return nil, errors.NewValidationError("manifest", nil, "frame manifest is required")
	}
	if err := manifest.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Mode {
	case "", ModeMembership, ModeDrift:
	default:
		return nil, errors.NewValidationError("mode", cfg.Mode, "unknown convergence mode")
	}
	return &Engine{
		transformer: tr,
		frames:      append([]frame.Frame(nil), manifest.Frames...),
		refEpoch:    manifest.ReferenceEpoch,
		cfg:         cfg.withDefaults(),
	}, nil
}

// Observe registers an observer for per-iteration diagnostics. Not safe
// to call once Run has started.
func (e *Engine) Observe(obs Observer) {
	if obs != nil {
		e.observers = append(e.observers, obs)
	}
}

// Run reduces the table to converged absolute proper motions. The input
// table is never mutated. Hitting the iteration cap is not an error: the
// run logs a warning and returns the best estimate with Converged false.
func (e *Engine) Run(ctx context.Context, table *catalog.Table) (*Result, error) {
	if table == nil || table.Len() == 0 {
		return nil, errors.NewValidationError("table", nil, "star table is empty")
	}

	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	log := logging.FromContext(ctx)

	work := table.Clone()
	seedFlags(work)

	log.Info().
		Str("mode", e.cfg.Mode.String()).
		Int("frames", len(e.frames)).
		Int("stars", work.Len()).
		Int("aligned", work.CountAligned()).
		Msg("Starting alignment run")

	res := &Result{RunID: runID}
	priors := make(map[string]*frame.Transformation, len(e.frames))
	var prevAbs map[catalog.StarID]catalog.PM

	for it := 0; it < e.cfg.MaxIterations; it++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		itCtx := logging.WithIteration(ctx, it)
		ilog := logging.FromContext(itCtx)

		results, err := e.transformAll(itCtx, work, priors)
		if err != nil {
			return nil, err
		}

		// Gate and measure in slot order so reruns stay deterministic.
		var measurements []frame.Measurement
		reports := make(map[string]*quality.Report, len(e.frames))
		carried := make(map[string]*frame.Transformation, len(e.frames))
		valid := 0
		for i, tres := range results {
			if tres == nil {
				continue // transform failed, already logged
			}
			f := &e.frames[i]
			rep, trimmed := quality.Check(tres.Transformation, e.cfg.Gate)
			reports[f.ID] = rep
			carried[f.ID] = trimmed
			priors[f.ID] = trimmed
			if !rep.Passed() {
				ilog.Warn().
					Str("frame", f.ID).
					Bool("normal", rep.Normal).
					Bool("centered", rep.Centered).
					Bool("populated", rep.Populated).
					Float64("p_value", rep.PValue).
					Msg("Frame failed the quality gate")
				continue
			}
			valid++
			measurements = append(measurements, frame.Measurements(f, tres.Matches, e.refEpoch, work)...)
		}

		if valid == 0 || len(measurements) == 0 {
			return nil, errors.ErrNoValidFrames
		}
		applyAggregates(work, aggregate.Collect(measurements))

		offset, err := calibrate.Calibrate(work)
		if err != nil {
			return nil, err
		}

		flagsChanged := false
		refined := true
		if e.cfg.Mode == ModeMembership {
			changed, cerr := e.classify(it, work)
			if cerr != nil {
				ilog.Warn().Err(cerr).Msg("Membership refinement failed, keeping previous flags")
				refined = false
			} else {
				flagsChanged = changed
			}
		}

		curAbs := absSnapshot(work)
		ds := driftBetween(prevAbs, work)
		drift := math.NaN()
		if ds.ok {
			drift = (ds.ra + ds.dec) / 2
		}
		rms := rmsToReference(work)

		converged := false
		switch e.cfg.Mode {
		case ModeMembership:
			converged = refined && !flagsChanged
		case ModeDrift:
			converged = ds.ok &&
				ds.ra <= e.cfg.DriftFraction*ds.errRA &&
				ds.dec <= e.cfg.DriftFraction*ds.errDec
		}

		res.Iterations = it + 1
		res.Offset = offset
		res.Drift = append(res.Drift, drift)
		res.RMS = append(res.RMS, rms)

		state := &IterationState{
			Iteration:       it,
			Table:           work.Clone(),
			Transformations: carried,
			Reports:         reports,
			Offset:          offset,
			ValidFrames:     valid,
			Aligned:         work.CountAligned(),
			Candidates:      work.CountCandidates(),
			FlagsChanged:    flagsChanged,
			Drift:           drift,
			RMS:             rms,
			Converged:       converged,
		}
		for _, obs := range e.observers {
			obs.Iteration(state)
		}

		ilog.Info().
			Int("valid_frames", valid).
			Int("aligned", state.Aligned).
			Float64("drift", drift).
			Float64("rms", rms).
			Bool("converged", converged).
			Msg("Iteration complete")

		prevAbs = curAbs
		if converged {
			res.Converged = true
			break
		}
	}

	if !res.Converged {
		log.Warn().
			Int("iterations", res.Iterations).
			Err(errors.ErrNotConverged).
			Msg("Iteration cap reached, emitting best estimate")
	}

	res.Table = work.Subset(func(s catalog.Star) bool { return s.AbsPM != nil })
	log.Info().
		Int("stars", res.Table.Len()).
		Int("iterations", res.Iterations).
		Bool("converged", res.Converged).
		Msg("Alignment run finished")
	return res, nil
}

// transformAll fans the frames out over the worker pool. A frame whose
// transform fails is logged and dropped without touching the others;
// only context cancellation aborts the whole round.
func (e *Engine) transformAll(ctx context.Context, work *catalog.Table, priors map[string]*frame.Transformation) ([]*transform.Result, error) {
	results := make([]*transform.Result, len(e.frames))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)

	for i := range e.frames {
		g.Go(func() error {
			f := &e.frames[i]
			req := &transform.Request{
				Frame:  f,
				Subset: e.frameSubset(gctx, f, work),
				Prior:  priors[f.ID],
			}
			res, err := e.transformer.Transform(gctx, req)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				logging.FromContext(ctx).Warn().
					Str("frame", f.ID).
					Err(err).
					Msg("Frame transform failed, excluding frame")
				return nil
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// frameSubset clones the stars a frame's solver call sees. When the
// footprint holds too few alignment stars the whole footprint gets
// flagged so the fit still has something to hold on to.
func (e *Engine) frameSubset(ctx context.Context, f *frame.Frame, work *catalog.Table) *catalog.Table {
	foot := work.Clone()
	if len(f.Stars) > 0 {
		foot = work.SubsetIDs(f.Stars)
	}
	if foot.CountAligned() < e.cfg.MinStars {
		logging.FromContext(ctx).Warn().
			Str("frame", f.ID).
			Int("aligned", foot.CountAligned()).
			Int("min", e.cfg.MinStars).
			Msg("Too few alignment stars in footprint, fitting on every star")
		for _, id := range foot.IDs() {
			_ = foot.SetCandidate(id, true)
			_ = foot.SetAlignment(id, true)
		}
	}
	return foot
}

// classify refines UseForAlignment over the relative-PM plane and
// reports whether the flag vector changed. Stars without a relative PM
// this iteration drop out of the alignment set; clipped stars never
// come back.
func (e *Engine) classify(iteration int, work *catalog.Table) (bool, error) {
	n := work.Len()
	points := make([][]float64, n)
	candidates := make([]bool, n)
	before := work.AlignmentFlags()
	for i := 0; i < n; i++ {
		s := work.At(i)
		if s.RelPM == nil {
			points[i] = []float64{0, 0}
			continue
		}
		points[i] = []float64{s.RelPM.RA, s.RelPM.Dec}
		candidates[i] = before[i]
	}

	cfg := membership.Config{
		Components: e.cfg.Components,
		ClipProb:   e.cfg.ClipProb,
		Seed:       e.cfg.Seed,
	}
	if iteration < e.cfg.AnchorIterations {
		cfg.Anchor = e.cfg.Anchor
	}

	res, err := membership.Classify(points, candidates, cfg)
	if err != nil {
		return false, err
	}

	changed := false
	for i, id := range work.IDs() {
		if res.Flags[i] != before[i] {
			changed = true
		}
		_ = work.SetAlignment(id, res.Flags[i])
		if res.LogProbs != nil {
			_ = work.SetLogProb(id, res.LogProbs[i])
		}
	}
	return changed, nil
}

// seedFlags gives every star membership when the caller provided none.
func seedFlags(tbl *catalog.Table) {
	if tbl.CountAligned() > 0 {
		return
	}
	for _, id := range tbl.IDs() {
		_ = tbl.SetCandidate(id, true)
		_ = tbl.SetAlignment(id, true)
	}
}

// applyAggregates writes each star's per-iteration fold onto the table,
// clearing stars that reached no valid frame this iteration.
func applyAggregates(tbl *catalog.Table, agg map[catalog.StarID]*aggregate.Result) {
	for _, id := range tbl.IDs() {
		r := agg[id]
		if r == nil {
			_ = tbl.SetRelPM(id, nil)
			_ = tbl.SetInstrMag(id, nil)
			_ = tbl.SetFrameCount(id, 0)
			continue
		}
		pm := r.RelPM
		mag := r.InstrMag
		_ = tbl.SetRelPM(id, &pm)
		_ = tbl.SetInstrMag(id, &mag)
		_ = tbl.SetFrameCount(id, r.Frames)
	}
}
