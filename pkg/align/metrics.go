package align

import (
	"math"

	"github.com/astriolab/pmfuse/pkg/catalog"
)

// driftStats holds the per-component mean |Δ absolute PM| between two
// iterations and the mean relative-PM error that scales the convergence
// threshold. ok is false when no star carries a PM in both iterations.
type driftStats struct {
	ra, dec       float64
	errRA, errDec float64
	ok            bool
}

// absSnapshot captures the per-star absolute PMs of this iteration.
func absSnapshot(tbl *catalog.Table) map[catalog.StarID]catalog.PM {
	out := make(map[catalog.StarID]catalog.PM, tbl.Len())
	for i := 0; i < tbl.Len(); i++ {
		s := tbl.At(i)
		if s.AbsPM != nil {
			out[s.ID] = *s.AbsPM
		}
	}
	return out
}

// driftBetween compares the table's absolute PMs against the previous
// iteration's snapshot.
func driftBetween(prev map[catalog.StarID]catalog.PM, tbl *catalog.Table) driftStats {
	if len(prev) == 0 {
		return driftStats{}
	}
	var ds driftStats
	var n int
	for i := 0; i < tbl.Len(); i++ {
		s := tbl.At(i)
		if s.AbsPM == nil || s.RelPM == nil {
			continue
		}
		p, found := prev[s.ID]
		if !found {
			continue
		}
		ds.ra += math.Abs(s.AbsPM.RA - p.RA)
		ds.dec += math.Abs(s.AbsPM.Dec - p.Dec)
		ds.errRA += s.RelPM.RAErr
		ds.errDec += s.RelPM.DecErr
		n++
	}
	if n == 0 {
		return driftStats{}
	}
	ds.ra /= float64(n)
	ds.dec /= float64(n)
	ds.errRA /= float64(n)
	ds.errDec /= float64(n)
	ds.ok = true
	return ds
}

// rmsToReference is the RMS two-dimensional distance between absolute
// and reference PMs over the alignment stars. NaN when no alignment star
// carries both.
func rmsToReference(tbl *catalog.Table) float64 {
	var sum float64
	var n int
	for i := 0; i < tbl.Len(); i++ {
		s := tbl.At(i)
		if !s.UseForAlignment || s.AbsPM == nil || !s.HasRefPM() {
			continue
		}
		dra := s.AbsPM.RA - s.RefPM.RA
		ddec := s.AbsPM.Dec - s.RefPM.Dec
		sum += dra*dra + ddec*ddec
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return math.Sqrt(sum / float64(n))
}
