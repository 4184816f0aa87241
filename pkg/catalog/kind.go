package catalog

// Kind identifies a per-frame scalar that the aggregator folds across frames.
// Aggregates are keyed by Kind instead of string-built column names.
type Kind string

// String returns the string representation of a Kind.
func (k Kind) String() string {
	return string(k)
}

// Measurement kinds aggregated per star.
const (
	KindRelPMRA     Kind = "rel_pmra"      // Relative proper motion, RA axis (mas/yr)
	KindRelPMDec    Kind = "rel_pmdec"     // Relative proper motion, Dec axis (mas/yr)
	KindInstrMag    Kind = "instr_mag"     // Instrumental magnitude
	KindRefNoiseRA  Kind = "ref_noise_ra"  // Reference centroid noise in PM units, RA axis (mas/yr)
	KindRefNoiseDec Kind = "ref_noise_dec" // Reference centroid noise in PM units, Dec axis (mas/yr)
)

// Kinds returns all measurement kinds in aggregation order.
func Kinds() []Kind {
	return []Kind{
		KindRelPMRA,
		KindRelPMDec,
		KindInstrMag,
		KindRefNoiseRA,
		KindRefNoiseDec,
	}
}
