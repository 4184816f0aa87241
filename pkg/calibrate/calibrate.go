// Package calibrate ties the relative proper-motion frame to the absolute
// reference frame.
//
// The alignment stars that carry a reference proper motion define an
// ensemble offset per axis; adding it to a star's relative proper motion
// yields the absolute one, with errors combined in quadrature.
package calibrate

import (
	"math"

	"github.com/astriolab/pmfuse/pkg/catalog"
	"github.com/astriolab/pmfuse/pkg/errors"
	"github.com/astriolab/pmfuse/pkg/stats"
)

// Offset is the ensemble translation from relative to absolute proper
// motion with its 1-sigma uncertainty per axis.
type Offset struct {
	RA     float64 `json:"ra" yaml:"ra"`
	Dec    float64 `json:"dec" yaml:"dec"`
	RAErr  float64 `json:"ra_error" yaml:"ra_error"`
	DecErr float64 `json:"dec_error" yaml:"dec_error"`
	Stars  int     `json:"stars" yaml:"stars"` // Alignment stars contributing
}

// Compute derives the offset over the alignment stars carrying both a
// reference and a relative proper motion. Per star the difference
// (reference - relative) enters an inverse-variance weighted mean, with
// the two measurement errors combined in quadrature.
func Compute(table *catalog.Table) (*Offset, error) {
	var dRA, dDec, eRA, eDec []float64
	for i := 0; i < table.Len(); i++ {
		s := table.At(i)
		if !s.UseForAlignment || !s.HasRefPM() || s.RelPM == nil {
			continue
		}
		dRA = append(dRA, s.RefPM.RA-s.RelPM.RA)
		dDec = append(dDec, s.RefPM.Dec-s.RelPM.Dec)
		eRA = append(eRA, math.Hypot(s.RefPM.RAErr, s.RelPM.RAErr))
		eDec = append(eDec, math.Hypot(s.RefPM.DecErr, s.RelPM.DecErr))
	}
	if len(dRA) == 0 {
		return nil, errors.NewFitError("calibration", 0,
			"no alignment star carries a reference proper motion", errors.ErrInsufficientStars)
	}

	ra, err := stats.WeightedAverage(dRA, eRA)
	if err != nil {
		return nil, err
	}
	dec, err := stats.WeightedAverage(dDec, eDec)
	if err != nil {
		return nil, err
	}

	return &Offset{
		RA:     ra.WeightedMean,
		Dec:    dec.WeightedMean,
		RAErr:  ra.WeightedErr,
		DecErr: dec.WeightedErr,
		Stars:  len(dRA),
	}, nil
}

// Apply returns the star's absolute proper motion, or nil when the star
// has no relative one.
func (o *Offset) Apply(s catalog.Star) *catalog.PM {
	if s.RelPM == nil {
		return nil
	}
	return &catalog.PM{
		RA:     s.RelPM.RA + o.RA,
		Dec:    s.RelPM.Dec + o.Dec,
		RAErr:  math.Hypot(s.RelPM.RAErr, o.RAErr),
		DecErr: math.Hypot(s.RelPM.DecErr, o.DecErr),
	}
}

// Calibrate computes the offset and writes an absolute proper motion onto
// every star with a relative one, clearing it on the rest. The table is
// modified in place.
func Calibrate(table *catalog.Table) (*Offset, error) {
	off, err := Compute(table)
	if err != nil {
		return nil, err
	}
	for i := 0; i < table.Len(); i++ {
		s := table.At(i)
		if err := table.SetAbsPM(s.ID, off.Apply(s)); err != nil {
			return nil, err
		}
	}
	return off, nil
}
