// Package membership refines candidate membership flags in the
// relative-proper-motion plane.
//
// Each round fits a Gaussian mixture to the current candidate subset after
// centering and rescaling it, scores every star by mixture log-density, and
// clips candidates scoring far below the candidate bulk. Rounds repeat until
// the flag vector reaches a fixed point or the round cap. A candidate is
// never resurrected: the refined set is always a subset of the seed.
package membership

import (
	"github.com/astriolab/pmfuse/pkg/constants"
	"github.com/astriolab/pmfuse/pkg/errors"
	"github.com/astriolab/pmfuse/pkg/mixture"
	"github.com/astriolab/pmfuse/pkg/stats"
)

// Config controls the refinement loop. The zero value fits one spherical
// component, clips at constants.DefaultClipProb population deviations, and
// caps at constants.DefaultClassifierCap rounds.
type Config struct {
	Components int                    `json:"components" yaml:"components"` // mixture components (default 1)
	Covariance mixture.CovarianceType `json:"covariance" yaml:"covariance"` // covariance shape (default mixture.Spherical)
	ClipProb   float64                `json:"clip_prob" yaml:"clip_prob"`   // clip scores below median - ClipProb*std
	MaxRounds  int                    `json:"max_rounds" yaml:"max_rounds"` // refinement round cap
	Seed       uint64                 `json:"seed" yaml:"seed"`             // mixture initialization seed
	Anchor     []float64              `json:"anchor" yaml:"anchor"`         // fixed centering anchor; nil centers on the candidate median
}

func (c Config) withDefaults() Config {
	if c.Components == 0 {
		c.Components = 1
	}
	if c.Covariance == "" {
		c.Covariance = mixture.Spherical
	}
	if c.ClipProb == 0 {
		c.ClipProb = constants.DefaultClipProb
	}
	if c.MaxRounds == 0 {
		c.MaxRounds = constants.DefaultClassifierCap
	}
	return c
}

// Result is the outcome of one classification call.
type Result struct {
	Flags     []bool    // refined flags, aligned with the input points
	LogProbs  []float64 // final-round scores for every point; nil when no round ran
	Threshold float64   // final retention cutoff; meaningful only when Rounds > 0
	Rounds    int       // refinement rounds run
	Converged bool      // fixed point reached before the round cap
}

// Classify refines candidate flags over the given coordinates.
//
// Fewer than two candidates is not an error: the flags come back unchanged
// with Rounds == 0. A degenerate candidate set (zero spread on an axis) or
// a mixture fit failure returns an explicit error and no result, leaving
// the previous membership in the caller's hands.
func Classify(points [][]float64, candidates []bool, cfg Config) (*Result, error) {
	cfg = cfg.withDefaults()
	if len(points) != len(candidates) {
		return nil, errors.NewValidationError("candidates", len(candidates), "flag count must match point count")
	}
	if cfg.Anchor != nil && len(points) > 0 && len(cfg.Anchor) != len(points[0]) {
		return nil, errors.NewValidationError("anchor", len(cfg.Anchor), "anchor dimension must match point dimension")
	}

	res := &Result{Flags: append([]bool(nil), candidates...)}

	for round := 1; round <= cfg.MaxRounds; round++ {
		idx := flagged(res.Flags)
		if len(idx) < 2 {
			res.Converged = true
			return res, nil
		}

		scaled, err := rescale(points, idx, cfg.Anchor)
		if err != nil {
			return nil, err
		}

		subset := make([][]float64, len(idx))
		for i, j := range idx {
			subset[i] = scaled[j]
		}
		model, err := mixture.Fit(subset, mixture.Config{
			Components: cfg.Components,
			Covariance: cfg.Covariance,
			Seed:       cfg.Seed,
		})
		if err != nil {
			return nil, err
		}

		scores := model.LogProbs(scaled)
		candScores := make([]float64, len(idx))
		for i, j := range idx {
			candScores[i] = scores[j]
		}
		threshold := stats.Median(candScores) - cfg.ClipProb*stats.PopStd(candScores)

		next := make([]bool, len(res.Flags))
		changed := false
		for i := range next {
			next[i] = res.Flags[i] && scores[i] >= threshold
			if next[i] != res.Flags[i] {
				changed = true
			}
		}

		res.Flags = next
		res.LogProbs = scores
		res.Threshold = threshold
		res.Rounds = round
		if !changed {
			res.Converged = true
			return res, nil
		}
	}
	return res, nil
}

// rescale centers every point on the anchor (the candidate median when the
// anchor is nil) and divides each axis by the candidate population std.
func rescale(points [][]float64, idx []int, anchor []float64) ([][]float64, error) {
	dim := len(points[idx[0]])
	col := make([]float64, len(idx))

	center := anchor
	if center == nil {
		center = make([]float64, dim)
		for j := 0; j < dim; j++ {
			for i, p := range idx {
				col[i] = points[p][j]
			}
			center[j] = stats.Median(col)
		}
	}

	scale := make([]float64, dim)
	for j := 0; j < dim; j++ {
		for i, p := range idx {
			col[i] = points[p][j]
		}
		scale[j] = stats.PopStd(col)
		if scale[j] == 0 {
			return nil, errors.NewFitError("membership", len(idx),
				"candidate coordinates have zero spread", errors.ErrSingularModel)
		}
	}

	out := make([][]float64, len(points))
	for i, x := range points {
		if len(x) != dim {
			return nil, errors.NewValidationError("points", i, "ragged sample dimensions")
		}
		row := make([]float64, dim)
		for j, v := range x {
			row[j] = (v - center[j]) / scale[j]
		}
		out[i] = row
	}
	return out, nil
}

func flagged(flags []bool) []int {
	var idx []int
	for i, f := range flags {
		if f {
			idx = append(idx, i)
		}
	}
	return idx
}
