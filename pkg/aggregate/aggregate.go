// Package aggregate folds a star's per-frame measurements into per-kind
// weighted statistics.
//
// Aggregation never fails: a kind without usable per-frame errors degrades
// to a population-level error estimate, and a star with no contributing
// frames simply yields no result.
package aggregate

import (
	"math"

	"github.com/astriolab/pmfuse/pkg/catalog"
	"github.com/astriolab/pmfuse/pkg/frame"
	"github.com/astriolab/pmfuse/pkg/stats"
)

// Result holds one star's aggregates across the frames that passed the
// quality gate.
type Result struct {
	StarID   catalog.StarID                   `json:"star_id" yaml:"star_id"`
	Frames   int                              `json:"frames" yaml:"frames"` // Contributing frame count
	Values   map[catalog.Kind]stats.Aggregate `json:"values" yaml:"values"` // Per-kind aggregates
	RelPM    catalog.PM                       `json:"rel_pm" yaml:"rel_pm"` // Weighted relative PM, reference noise folded into the errors
	InstrMag catalog.Quantity                 `json:"instr_mag" yaml:"instr_mag"`
}

// Star folds one star's measurements across frames. A nil result means the
// star had no contributing frames this iteration; the star is excluded,
// not failed.
func Star(ms []frame.Measurement) *Result {
	if len(ms) == 0 {
		return nil
	}

	values := make(map[catalog.Kind]stats.Aggregate, len(catalog.Kinds()))
	for _, kind := range catalog.Kinds() {
		vals, errs, usable := series(ms, kind)
		values[kind] = fold(vals, errs, usable)
	}

	res := &Result{
		StarID: ms[0].StarID,
		Frames: len(ms),
		Values: values,
	}

	// The reference-epoch centroid noise, averaged across frames, widens
	// the relative-PM errors in quadrature.
	ra := values[catalog.KindRelPMRA]
	dec := values[catalog.KindRelPMDec]
	res.RelPM = catalog.PM{
		RA:     ra.WeightedMean,
		Dec:    dec.WeightedMean,
		RAErr:  math.Hypot(ra.WeightedErr, values[catalog.KindRefNoiseRA].Mean),
		DecErr: math.Hypot(dec.WeightedErr, values[catalog.KindRefNoiseDec].Mean),
	}

	mag := values[catalog.KindInstrMag]
	res.InstrMag = catalog.Quantity{Value: mag.WeightedMean, Err: mag.WeightedErr}
	return res
}

// Collect groups measurements by star and folds each group.
func Collect(ms []frame.Measurement) map[catalog.StarID]*Result {
	byStar := make(map[catalog.StarID][]frame.Measurement)
	for _, m := range ms {
		byStar[m.StarID] = append(byStar[m.StarID], m)
	}

	out := make(map[catalog.StarID]*Result, len(byStar))
	for id, group := range byStar {
		out[id] = Star(group)
	}
	return out
}

// Apply writes the aggregates onto the star, replacing the derived
// pointers rather than writing through them.
func (r *Result) Apply(s *catalog.Star) {
	if r == nil || s == nil {
		return
	}
	pm := r.RelPM
	mag := r.InstrMag
	s.RelPM = &pm
	s.InstrMag = &mag
	s.FrameCount = r.Frames
}

// series extracts one kind's values and per-frame errors. usable is false
// when any frame lacks a positive finite error for the kind.
func series(ms []frame.Measurement, kind catalog.Kind) (vals, errs []float64, usable bool) {
	vals = make([]float64, len(ms))
	errs = make([]float64, len(ms))
	usable = true
	for i, m := range ms {
		switch kind {
		case catalog.KindRelPMRA:
			vals[i], errs[i] = m.RelPM.RA, m.RelPM.RAErr
		case catalog.KindRelPMDec:
			vals[i], errs[i] = m.RelPM.Dec, m.RelPM.DecErr
		case catalog.KindInstrMag:
			vals[i] = m.InstrMag
			if m.InstrMagErr != nil {
				errs[i] = *m.InstrMagErr
			}
		case catalog.KindRefNoiseRA:
			vals[i] = m.RefNoiseRA
		case catalog.KindRefNoiseDec:
			vals[i] = m.RefNoiseDec
		}
		if !(errs[i] > 0) || math.IsInf(errs[i], 0) {
			usable = false
		}
	}
	return vals, errs, usable
}

// fold aggregates one kind. When any per-frame error is unusable the whole
// kind falls back to the population std across frames, keeping the weights
// mutually consistent.
func fold(vals, errs []float64, usable bool) stats.Aggregate {
	if !usable {
		sub := stats.PopStd(vals)
		if sub == 0 {
			// Identical or single-valued sample: the aggregate is exact.
			return stats.Aggregate{
				WeightedMean: vals[0],
				Mean:         vals[0],
				N:            len(vals),
			}
		}
		errs = make([]float64, len(vals))
		for i := range errs {
			errs[i] = sub
		}
	}

	// vals is non-empty and every error is positive, so the call cannot fail.
	agg, _ := stats.WeightedAverage(vals, errs)
	return agg
}
