package catalog

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/astriolab/pmfuse/pkg/errors"
)

func testStars() []Star {
	return []Star{
		{ID: "s1", RA: 201.5, Dec: -47.3, CandidateMember: true, UseForAlignment: true},
		{ID: "s2", RA: 201.6, Dec: -47.4, CandidateMember: true, UseForAlignment: false},
		{ID: "s3", RA: 201.7, Dec: -47.5, CandidateMember: false, UseForAlignment: false},
	}
}

func TestNewTable(t *testing.T) {
	t.Run("valid stars", func(t *testing.T) {
		tbl, err := NewTable(testStars())
		if err != nil {
			t.Fatalf("NewTable failed: %v", err)
		}
		if tbl.Len() != 3 {
			t.Errorf("Expected 3 stars, got %d", tbl.Len())
		}
	})

	t.Run("empty ID rejected", func(t *testing.T) {
		_, err := NewTable([]Star{{ID: ""}})
		if !errors.IsValidationError(err) {
			t.Errorf("Expected validation error, got %v", err)
		}
	})

	t.Run("duplicate ID rejected", func(t *testing.T) {
		_, err := NewTable([]Star{{ID: "s1"}, {ID: "s1"}})
		if !errors.IsValidationError(err) {
			t.Errorf("Expected validation error, got %v", err)
		}
	})

	t.Run("alignment without candidate rejected", func(t *testing.T) {
		_, err := NewTable([]Star{{ID: "s1", UseForAlignment: true}})
		if !errors.IsValidationError(err) {
			t.Errorf("Expected validation error, got %v", err)
		}
	})
}

func TestTableLookup(t *testing.T) {
	tbl, err := NewTable(testStars())
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}

	t.Run("by ID", func(t *testing.T) {
		s, ok := tbl.Star("s2")
		if !ok {
			t.Fatal("Expected to find s2")
		}
		if s.RA != 201.6 {
			t.Errorf("Expected RA 201.6, got %v", s.RA)
		}
	})

	t.Run("missing ID", func(t *testing.T) {
		if _, ok := tbl.Star("nope"); ok {
			t.Error("Should not find unknown star")
		}
		if tbl.Contains("nope") {
			t.Error("Contains should be false for unknown star")
		}
	})

	t.Run("order preserved", func(t *testing.T) {
		want := []StarID{"s1", "s2", "s3"}
		if diff := cmp.Diff(want, tbl.IDs()); diff != "" {
			t.Errorf("IDs mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestTableClone(t *testing.T) {
	stars := testStars()
	lp := -3.5
	stars[0].RelPM = &PM{RA: 1.0, Dec: 2.0, RAErr: 0.1, DecErr: 0.2}
	stars[0].LogProb = &lp

	tbl, err := NewTable(stars)
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}

	clone := tbl.Clone()
	if err := clone.SetRelPM("s1", &PM{RA: 9.0, Dec: 9.0}); err != nil {
		t.Fatalf("SetRelPM failed: %v", err)
	}
	if err := clone.SetAlignment("s1", false); err != nil {
		t.Fatalf("SetAlignment failed: %v", err)
	}

	// Original snapshot must be untouched
	orig, _ := tbl.Star("s1")
	if orig.RelPM.RA != 1.0 {
		t.Errorf("clone mutation leaked into original: RelPM.RA = %v", orig.RelPM.RA)
	}
	if !orig.UseForAlignment {
		t.Error("clone mutation leaked into original: UseForAlignment cleared")
	}
}

func TestTableSubset(t *testing.T) {
	tbl, err := NewTable(testStars())
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}

	t.Run("alignment subset", func(t *testing.T) {
		sub := tbl.AlignmentSubset()
		if sub.Len() != 1 {
			t.Fatalf("Expected 1 alignment star, got %d", sub.Len())
		}
		if sub.At(0).ID != "s1" {
			t.Errorf("Expected s1, got %s", sub.At(0).ID)
		}
	})

	t.Run("candidate subset", func(t *testing.T) {
		sub := tbl.CandidateSubset()
		if sub.Len() != 2 {
			t.Errorf("Expected 2 candidates, got %d", sub.Len())
		}
	})

	t.Run("subset by IDs ignores unknown", func(t *testing.T) {
		sub := tbl.SubsetIDs([]StarID{"s3", "s1", "ghost"})
		want := []StarID{"s1", "s3"} // table order, not request order
		if diff := cmp.Diff(want, sub.IDs()); diff != "" {
			t.Errorf("IDs mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("subset is independent", func(t *testing.T) {
		sub := tbl.AlignmentSubset()
		if err := sub.SetCandidate("s1", false); err != nil {
			t.Fatalf("SetCandidate failed: %v", err)
		}
		orig, _ := tbl.Star("s1")
		if !orig.CandidateMember {
			t.Error("subset mutation leaked into original")
		}
	})
}

func TestTableFlags(t *testing.T) {
	tbl, err := NewTable(testStars())
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}

	t.Run("counters", func(t *testing.T) {
		if got := tbl.CountAligned(); got != 1 {
			t.Errorf("CountAligned = %d, want 1", got)
		}
		if got := tbl.CountCandidates(); got != 2 {
			t.Errorf("CountCandidates = %d, want 2", got)
		}
	})

	t.Run("alignment requires candidate", func(t *testing.T) {
		err := tbl.SetAlignment("s3", true)
		if !errors.IsValidationError(err) {
			t.Errorf("Expected validation error, got %v", err)
		}
	})

	t.Run("clearing candidate clears alignment", func(t *testing.T) {
		if err := tbl.SetCandidate("s1", false); err != nil {
			t.Fatalf("SetCandidate failed: %v", err)
		}
		s, _ := tbl.Star("s1")
		if s.UseForAlignment {
			t.Error("UseForAlignment should be cleared with CandidateMember")
		}
	})

	t.Run("flag vector", func(t *testing.T) {
		tbl2, _ := NewTable(testStars())
		want := []bool{true, false, false}
		if diff := cmp.Diff(want, tbl2.AlignmentFlags()); diff != "" {
			t.Errorf("AlignmentFlags mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("unknown star", func(t *testing.T) {
		if err := tbl.SetAlignment("ghost", true); !errors.IsNotFound(err) {
			t.Errorf("Expected not found, got %v", err)
		}
	})
}

func TestTableSetters(t *testing.T) {
	tbl, err := NewTable(testStars())
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}

	t.Run("derived values round trip", func(t *testing.T) {
		rel := &PM{RA: -2.1, Dec: 0.4, RAErr: 0.05, DecErr: 0.06}
		if err := tbl.SetRelPM("s2", rel); err != nil {
			t.Fatalf("SetRelPM failed: %v", err)
		}
		if err := tbl.SetAbsPM("s2", &PM{RA: -8.3, Dec: -4.2, RAErr: 0.2, DecErr: 0.2}); err != nil {
			t.Fatalf("SetAbsPM failed: %v", err)
		}
		if err := tbl.SetInstrMag("s2", &Quantity{Value: 18.4, Err: 0.02}); err != nil {
			t.Fatalf("SetInstrMag failed: %v", err)
		}
		if err := tbl.SetLogProb("s2", -4.4); err != nil {
			t.Fatalf("SetLogProb failed: %v", err)
		}
		if err := tbl.SetFrameCount("s2", 3); err != nil {
			t.Fatalf("SetFrameCount failed: %v", err)
		}

		s, _ := tbl.Star("s2")
		if diff := cmp.Diff(rel, s.RelPM); diff != "" {
			t.Errorf("RelPM mismatch (-want +got):\n%s", diff)
		}
		if !s.HasAbsPM() {
			t.Error("expected absolute PM")
		}
		if s.InstrMag == nil || s.InstrMag.Value != 18.4 {
			t.Errorf("InstrMag = %+v, want 18.4", s.InstrMag)
		}
		if s.LogProb == nil || *s.LogProb != -4.4 {
			t.Errorf("LogProb = %v, want -4.4", s.LogProb)
		}
		if s.FrameCount != 3 {
			t.Errorf("FrameCount = %d, want 3", s.FrameCount)
		}
	})

	t.Run("setter copies input", func(t *testing.T) {
		pm := &PM{RA: 1.0}
		if err := tbl.SetRelPM("s1", pm); err != nil {
			t.Fatalf("SetRelPM failed: %v", err)
		}
		pm.RA = 99.0
		s, _ := tbl.Star("s1")
		if s.RelPM.RA != 1.0 {
			t.Errorf("caller mutation leaked into table: %v", s.RelPM.RA)
		}
	})

	t.Run("nil clears", func(t *testing.T) {
		if err := tbl.SetRelPM("s1", nil); err != nil {
			t.Fatalf("SetRelPM failed: %v", err)
		}
		s, _ := tbl.Star("s1")
		if s.RelPM != nil {
			t.Error("expected RelPM cleared")
		}
	})
}

func TestStarClone(t *testing.T) {
	lp := -1.25
	s := Star{
		ID:       "s1",
		RefPM:    &PM{RA: -3.2, Dec: -6.7, RAErr: 0.03, DecErr: 0.04},
		InstrMag: &Quantity{Value: 17.0, Err: 0.01},
		LogProb:  &lp,
	}
	c := s.Clone()
	c.RefPM.RA = 0
	c.InstrMag.Value = 0
	*c.LogProb = 0

	if s.RefPM.RA != -3.2 || s.InstrMag.Value != 17.0 || *s.LogProb != -1.25 {
		t.Error("Clone shares pointers with the original")
	}
}

func TestKinds(t *testing.T) {
	kinds := Kinds()
	if len(kinds) != 5 {
		t.Fatalf("Expected 5 kinds, got %d", len(kinds))
	}
	if kinds[0] != KindRelPMRA || kinds[1] != KindRelPMDec {
		t.Error("PM kinds must come first for aggregation order")
	}
	if KindInstrMag.String() != "instr_mag" {
		t.Errorf("unexpected Kind string: %s", KindInstrMag)
	}
}
