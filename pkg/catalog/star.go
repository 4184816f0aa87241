package catalog

// StarID represents a star identifier type for compile-time safety.
type StarID string

// String returns the string representation of a StarID.
func (id StarID) String() string {
	return string(id)
}

// PM is a proper motion vector with 1-sigma uncertainties, in mas/yr.
type PM struct {
	RA     float64 `json:"pmra" yaml:"pmra"`               // Proper motion along right ascension
	Dec    float64 `json:"pmdec" yaml:"pmdec"`             // Proper motion along declination
	RAErr  float64 `json:"pmra_error" yaml:"pmra_error"`   // Uncertainty on the RA component
	DecErr float64 `json:"pmdec_error" yaml:"pmdec_error"` // Uncertainty on the Dec component
}

// Quantity is a scalar measurement with a 1-sigma uncertainty.
type Quantity struct {
	Value float64 `json:"value" yaml:"value"`
	Err   float64 `json:"error" yaml:"error"`
}

// Star is a single source shared by the reference catalog and the epoch frames.
//
// Derived fields (RelPM, AbsPM, InstrMag, LogProb) are nil until a pipeline
// stage computes them. Stages replace these pointers rather than writing
// through them, so value copies of a Star may safely share them.
type Star struct {
	ID StarID `json:"id" yaml:"id"` // Unique source identifier

	// Reference-epoch astrometry
	RA     float64 `json:"ra" yaml:"ra"`                             // Right ascension (deg)
	Dec    float64 `json:"dec" yaml:"dec"`                           // Declination (deg)
	RAErr  float64 `json:"ra_error" yaml:"ra_error"`                 // Position uncertainty along RA (mas)
	DecErr float64 `json:"dec_error" yaml:"dec_error"`               // Position uncertainty along Dec (mas)
	RefPM  *PM     `json:"ref_pm,omitempty" yaml:"ref_pm,omitempty"` // Reference-epoch proper motion, nil when the archive has none
	Mag    float64 `json:"mag" yaml:"mag"`                           // Reference magnitude

	// Membership flags
	CandidateMember bool `json:"candidate_member" yaml:"candidate_member"`   // Star may belong to the target population
	UseForAlignment bool `json:"use_for_alignment" yaml:"use_for_alignment"` // Star anchors the per-frame fits (implies CandidateMember)

	// Derived quantities, nil until computed
	RelPM      *PM       `json:"rel_pm,omitempty" yaml:"rel_pm,omitempty"`       // Aggregated relative proper motion
	AbsPM      *PM       `json:"abs_pm,omitempty" yaml:"abs_pm,omitempty"`       // Calibrated absolute proper motion
	InstrMag   *Quantity `json:"instr_mag,omitempty" yaml:"instr_mag,omitempty"` // Aggregated instrumental magnitude
	LogProb    *float64  `json:"log_prob,omitempty" yaml:"log_prob,omitempty"`   // Mixture log-probability from the last classification
	FrameCount int       `json:"frame_count" yaml:"frame_count"`                 // Frames contributing to the aggregates
}

// Clone returns a deep copy of the star.
func (s Star) Clone() Star {
	out := s
	out.RefPM = clonePM(s.RefPM)
	out.RelPM = clonePM(s.RelPM)
	out.AbsPM = clonePM(s.AbsPM)
	if s.InstrMag != nil {
		q := *s.InstrMag
		out.InstrMag = &q
	}
	if s.LogProb != nil {
		p := *s.LogProb
		out.LogProb = &p
	}
	return out
}

// HasRefPM reports whether the star carries a reference-epoch proper motion.
func (s Star) HasRefPM() bool {
	return s.RefPM != nil
}

// HasAbsPM reports whether the star has a calibrated absolute proper motion.
func (s Star) HasAbsPM() bool {
	return s.AbsPM != nil
}

func clonePM(pm *PM) *PM {
	if pm == nil {
		return nil
	}
	c := *pm
	return &c
}
