package frame

import (
	"math"

	"github.com/agentstation/utc"

	"github.com/astriolab/pmfuse/pkg/catalog"
	"github.com/astriolab/pmfuse/pkg/constants"
)

// Match is one star's pairing between the reference catalog and a frame,
// in frame pixel coordinates. RefX/RefY is the reference position projected
// onto the frame by the fitted transformation.
type Match struct {
	StarID    catalog.StarID `json:"star_id" yaml:"star_id"`
	RefX      float64        `json:"ref_x" yaml:"ref_x"`
	RefY      float64        `json:"ref_y" yaml:"ref_y"`
	ObsX      float64        `json:"obs_x" yaml:"obs_x"`
	ObsY      float64        `json:"obs_y" yaml:"obs_y"`
	Quality   float64        `json:"quality" yaml:"quality"`                       // Centroid fit quality, larger is worse
	Mag       float64        `json:"mag" yaml:"mag"`                               // Instrumental magnitude
	MagErr    *float64       `json:"mag_error,omitempty" yaml:"mag_error,omitempty"` // Per-frame magnitude error when the solver reports one
	Saturated bool           `json:"saturated" yaml:"saturated"`
}

// Measurement is one star's contribution from one frame, in physical units.
// Exactly one measurement exists per (star, frame) pair.
type Measurement struct {
	StarID      catalog.StarID
	FrameID     string
	RelPM       catalog.PM // Relative proper motion with per-axis errors (mas/yr)
	InstrMag    float64
	InstrMagErr *float64 // nil when the frame provides none
	RefNoiseRA  float64  // Reference centroid noise in PM units (mas/yr)
	RefNoiseDec float64
	Saturated   bool
}

// Measurements converts a frame's matches into per-star measurements
// against the reference epoch. Positional offsets divide by the epoch
// baseline, so callers must not pass a frame whose epoch equals the
// reference epoch. Saturated matches take the worst centroid quality seen
// in the frame. Reference positional errors (mas) come from the table and
// map to PM units through the same baseline.
func Measurements(f *Frame, matches []Match, ref utc.Time, tbl *catalog.Table) []Measurement {
	if len(matches) == 0 {
		return nil
	}

	baseline := f.Baseline(ref)
	scaleMas := f.PixelScale * constants.MasPerArcsec

	worst := worstQuality(matches)

	out := make([]Measurement, 0, len(matches))
	for _, m := range matches {
		q := m.Quality
		if m.Saturated {
			q = worst
		}
		pmErr := math.Abs(q * scaleMas * constants.QualityErrorFactor / baseline)

		// Detector X runs opposite to RA on the sky
		dx := m.ObsX - m.RefX
		dy := m.ObsY - m.RefY

		meas := Measurement{
			StarID:  m.StarID,
			FrameID: f.ID,
			RelPM: catalog.PM{
				RA:     -dx * scaleMas / baseline,
				Dec:    dy * scaleMas / baseline,
				RAErr:  pmErr,
				DecErr: pmErr,
			},
			InstrMag:  m.Mag,
			Saturated: m.Saturated,
		}
		if m.MagErr != nil {
			e := *m.MagErr
			meas.InstrMagErr = &e
		}
		if star, ok := tbl.Star(m.StarID); ok {
			meas.RefNoiseRA = math.Abs(star.RAErr / baseline)
			meas.RefNoiseDec = math.Abs(star.DecErr / baseline)
		}
		out = append(out, meas)
	}
	return out
}

// worstQuality returns the largest quality value among the matches.
func worstQuality(matches []Match) float64 {
	worst := math.Inf(-1)
	for _, m := range matches {
		if m.Quality > worst {
			worst = m.Quality
		}
	}
	return worst
}
