// Package quality gates frame transformations on the shape of their
// residuals.
//
// A transformation earns its frame a place in the iteration when the
// residual cloud looks like zero-centered Gaussian noise: the pooled
// components pass Shapiro-Wilk, the centroid sits at the origin within
// tolerance, and enough stars back the fit. An optional trim pass clips
// gross outliers first and hands the trimmed transformation to the next
// iteration. Gate failure is never an error: the frame just sits the
// iteration out.
package quality

import (
	"math"

	"github.com/astriolab/pmfuse/pkg/constants"
	"github.com/astriolab/pmfuse/pkg/frame"
	"github.com/astriolab/pmfuse/pkg/mixture"
	"github.com/astriolab/pmfuse/pkg/stats"
)

// Config controls the gate checks. The zero value tests untrimmed
// residuals with the package defaults.
type Config struct {
	Alpha           float64 `json:"alpha" yaml:"alpha"`                       // Shapiro-Wilk significance (default constants.DefaultAlpha)
	CenterTolerance float64 `json:"center_tolerance" yaml:"center_tolerance"` // max |centroid| per axis (default constants.DefaultCenterTolerance)
	MinStars        int     `json:"min_stars" yaml:"min_stars"`               // residual count must exceed this (default constants.DefaultMinStarsAlignment)
	ClipSigma       float64 `json:"clip_sigma" yaml:"clip_sigma"`             // trim cut in score deviations (default constants.DefaultGateClipSigma)
	Trim            bool    `json:"trim" yaml:"trim"`                         // clip outlier residuals before testing
}

func (c Config) withDefaults() Config {
	if c.Alpha == 0 {
		c.Alpha = constants.DefaultAlpha
	}
	if c.CenterTolerance == 0 {
		c.CenterTolerance = constants.DefaultCenterTolerance
	}
	if c.MinStars == 0 {
		c.MinStars = constants.DefaultMinStarsAlignment
	}
	if c.ClipSigma == 0 {
		c.ClipSigma = constants.DefaultGateClipSigma
	}
	return c
}

// Report carries the three gate flags plus the numbers behind them.
type Report struct {
	Normal    bool `json:"normal" yaml:"normal"`       // pooled residuals look Gaussian at Alpha
	Centered  bool `json:"centered" yaml:"centered"`   // centroid within tolerance on both axes
	Populated bool `json:"populated" yaml:"populated"` // more residuals than MinStars

	PValue      float64      `json:"p_value" yaml:"p_value"` // pooled Shapiro-Wilk p-value
	W           float64      `json:"w" yaml:"w"`             // pooled Shapiro-Wilk statistic
	Centroid    frame.Offset `json:"centroid" yaml:"centroid"`
	Size        int          `json:"size" yaml:"size"`                 // residuals tested, after any trim
	Trimmed     int          `json:"trimmed" yaml:"trimmed"`           // residuals removed by the trim pass
	TrimApplied bool         `json:"trim_applied" yaml:"trim_applied"` // trim ran (false when off or the fit failed)
}

// Passed reports whether the frame cleared every gate check.
func (r *Report) Passed() bool {
	return r.Normal && r.Centered && r.Populated
}

// Check tests a transformation's residuals and returns the report together
// with the transformation to carry into the next iteration (trimmed when
// trimming ran). A mixture failure during the trim downgrades to testing
// the untrimmed sample.
func Check(tr *frame.Transformation, cfg Config) (*Report, *frame.Transformation) {
	cfg = cfg.withDefaults()
	report := &Report{}
	if tr == nil {
		return report, nil
	}

	out := tr.Clone()
	if cfg.Trim && len(out.Residuals) > 0 {
		if kept, ok := trim(out.Residuals, cfg.ClipSigma); ok {
			report.TrimApplied = true
			report.Trimmed = len(out.Residuals) - len(kept)
			out.Residuals = kept
		}
	}
	residuals := out.Residuals

	report.Size = len(residuals)
	report.Populated = report.Size > cfg.MinStars

	report.Centroid = out.Centroid()
	report.Centered = math.Abs(report.Centroid.X) < cfg.CenterTolerance &&
		math.Abs(report.Centroid.Y) < cfg.CenterTolerance

	// Both residual components pool into one sample, the way the fit is
	// expected to scatter in x and y alike.
	pooled := make([]float64, 0, 2*len(residuals))
	for _, r := range residuals {
		pooled = append(pooled, r.X)
	}
	for _, r := range residuals {
		pooled = append(pooled, r.Y)
	}
	if w, p, err := stats.ShapiroWilk(pooled); err == nil {
		report.W = w
		report.PValue = p
		report.Normal = p > cfg.Alpha
	}

	out.Normality = report.PValue
	return report, out
}

// trim drops residuals scoring far below the bulk under a single spherical
// Gaussian. ok is false when the mixture cannot be fit, in which case the
// gate tests the untrimmed sample.
func trim(residuals []frame.Offset, clipSigma float64) ([]frame.Offset, bool) {
	points := make([][]float64, len(residuals))
	for i, r := range residuals {
		points[i] = []float64{r.X, r.Y}
	}
	model, err := mixture.Fit(points, mixture.Config{})
	if err != nil {
		return nil, false
	}

	scores := model.LogProbs(points)
	cut := stats.Median(scores) - clipSigma*stats.PopStd(scores)
	kept := make([]frame.Offset, 0, len(residuals))
	for i, r := range residuals {
		if scores[i] >= cut {
			kept = append(kept, r)
		}
	}
	return kept, true
}
