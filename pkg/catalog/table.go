// Package catalog defines the star table shared by every pipeline stage.
//
// A Table is an ordered, ID-indexed collection of stars. Iterative stages
// never mutate a snapshot they were handed; they Clone first and mutate the
// clone through the table's setters, which maintain the membership flag
// invariant (a star used for alignment is always a candidate member).
// Table order is load order and is preserved by Clone and Subset, which
// keeps iteration deterministic.
package catalog

import (
	"github.com/astriolab/pmfuse/pkg/errors"
)

// Table is an ordered collection of stars indexed by ID.
type Table struct {
	stars []Star
	index map[StarID]int
}

// NewTable builds a table from stars, validating ID uniqueness and the
// membership flag invariant.
func NewTable(stars []Star) (*Table, error) {
	t := &Table{
		stars: make([]Star, 0, len(stars)),
		index: make(map[StarID]int, len(stars)),
	}
	for _, s := range stars {
		if err := t.append(s); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Table) append(s Star) error {
	if s.ID == "" {
		return errors.NewValidationError("id", s.ID.String(), "star ID cannot be empty")
	}
	if _, ok := t.index[s.ID]; ok {
		return errors.NewValidationError("id", s.ID.String(), "duplicate star ID")
	}
	if s.UseForAlignment && !s.CandidateMember {
		return errors.NewValidationError("use_for_alignment", s.ID.String(),
			"alignment star must be a candidate member")
	}
	t.index[s.ID] = len(t.stars)
	t.stars = append(t.stars, s.Clone())
	return nil
}

// Len returns the number of stars in the table.
func (t *Table) Len() int {
	return len(t.stars)
}

// At returns the star at position i. The copy shares derived pointers with
// the table; callers must not write through them.
func (t *Table) At(i int) Star {
	return t.stars[i]
}

// Star returns the star with the given ID.
func (t *Table) Star(id StarID) (Star, bool) {
	i, ok := t.index[id]
	if !ok {
		return Star{}, false
	}
	return t.stars[i], true
}

// Contains reports whether the table holds a star with the given ID.
func (t *Table) Contains(id StarID) bool {
	_, ok := t.index[id]
	return ok
}

// IDs returns the star IDs in table order.
func (t *Table) IDs() []StarID {
	ids := make([]StarID, len(t.stars))
	for i, s := range t.stars {
		ids[i] = s.ID
	}
	return ids
}

// Stars returns a copy of the star slice in table order.
func (t *Table) Stars() []Star {
	out := make([]Star, len(t.stars))
	copy(out, t.stars)
	return out
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := &Table{
		stars: make([]Star, len(t.stars)),
		index: make(map[StarID]int, len(t.index)),
	}
	for i, s := range t.stars {
		out.stars[i] = s.Clone()
		out.index[s.ID] = i
	}
	return out
}

// Subset returns a new table holding the stars keep selects, preserving
// table order.
func (t *Table) Subset(keep func(Star) bool) *Table {
	out := &Table{index: make(map[StarID]int)}
	for _, s := range t.stars {
		if keep(s) {
			out.index[s.ID] = len(out.stars)
			out.stars = append(out.stars, s.Clone())
		}
	}
	return out
}

// SubsetIDs returns a new table holding the listed stars, in table order.
// Unknown IDs are ignored.
func (t *Table) SubsetIDs(ids []StarID) *Table {
	want := make(map[StarID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	return t.Subset(func(s Star) bool { return want[s.ID] })
}

// AlignmentSubset returns the stars currently flagged for alignment.
func (t *Table) AlignmentSubset() *Table {
	return t.Subset(func(s Star) bool { return s.UseForAlignment })
}

// CandidateSubset returns the stars currently flagged as candidate members.
func (t *Table) CandidateSubset() *Table {
	return t.Subset(func(s Star) bool { return s.CandidateMember })
}

// CountAligned returns the number of stars flagged for alignment.
func (t *Table) CountAligned() int {
	n := 0
	for _, s := range t.stars {
		if s.UseForAlignment {
			n++
		}
	}
	return n
}

// CountCandidates returns the number of candidate members.
func (t *Table) CountCandidates() int {
	n := 0
	for _, s := range t.stars {
		if s.CandidateMember {
			n++
		}
	}
	return n
}

// AlignmentFlags returns the UseForAlignment flags in table order.
func (t *Table) AlignmentFlags() []bool {
	flags := make([]bool, len(t.stars))
	for i, s := range t.stars {
		flags[i] = s.UseForAlignment
	}
	return flags
}

// SetAlignment sets the UseForAlignment flag for id. Flagging a star that
// is not a candidate member fails validation.
func (t *Table) SetAlignment(id StarID, use bool) error {
	i, ok := t.index[id]
	if !ok {
		return errors.NewNotFoundError("star", id.String())
	}
	if use && !t.stars[i].CandidateMember {
		return errors.NewValidationError("use_for_alignment", id.String(),
			"alignment star must be a candidate member")
	}
	t.stars[i].UseForAlignment = use
	return nil
}

// SetCandidate sets the CandidateMember flag for id. Clearing it also
// clears UseForAlignment.
func (t *Table) SetCandidate(id StarID, member bool) error {
	i, ok := t.index[id]
	if !ok {
		return errors.NewNotFoundError("star", id.String())
	}
	t.stars[i].CandidateMember = member
	if !member {
		t.stars[i].UseForAlignment = false
	}
	return nil
}

// SetRelPM records the aggregated relative proper motion for id.
// A nil pm clears the value.
func (t *Table) SetRelPM(id StarID, pm *PM) error {
	i, ok := t.index[id]
	if !ok {
		return errors.NewNotFoundError("star", id.String())
	}
	t.stars[i].RelPM = clonePM(pm)
	return nil
}

// SetAbsPM records the calibrated absolute proper motion for id.
// A nil pm clears the value.
func (t *Table) SetAbsPM(id StarID, pm *PM) error {
	i, ok := t.index[id]
	if !ok {
		return errors.NewNotFoundError("star", id.String())
	}
	t.stars[i].AbsPM = clonePM(pm)
	return nil
}

// SetInstrMag records the aggregated instrumental magnitude for id.
func (t *Table) SetInstrMag(id StarID, q *Quantity) error {
	i, ok := t.index[id]
	if !ok {
		return errors.NewNotFoundError("star", id.String())
	}
	if q == nil {
		t.stars[i].InstrMag = nil
		return nil
	}
	c := *q
	t.stars[i].InstrMag = &c
	return nil
}

// SetLogProb records the mixture log-probability for id.
func (t *Table) SetLogProb(id StarID, lp float64) error {
	i, ok := t.index[id]
	if !ok {
		return errors.NewNotFoundError("star", id.String())
	}
	v := lp
	t.stars[i].LogProb = &v
	return nil
}

// SetFrameCount records the number of frames contributing to id's aggregates.
func (t *Table) SetFrameCount(id StarID, n int) error {
	i, ok := t.index[id]
	if !ok {
		return errors.NewNotFoundError("star", id.String())
	}
	t.stars[i].FrameCount = n
	return nil
}
