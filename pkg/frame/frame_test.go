package frame

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/agentstation/utc"

	"github.com/astriolab/pmfuse/pkg/errors"
)

func utcDate(year int, month time.Month, day int) utc.Time {
	return utc.Time{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func TestFrameBaseline(t *testing.T) {
	f := &Frame{
		ID:         "icyy01lxq",
		Epoch:      utcDate(2010, time.January, 1),
		PixelScale: 0.05,
	}
	ref := utc.Time{Time: f.Epoch.Time.Add(3652*24*time.Hour + 12*time.Hour)} // 3652.5 days

	got := f.Baseline(ref)
	if math.Abs(got-10.0) > 1e-12 {
		t.Errorf("Baseline = %v, want 10.0", got)
	}

	// Reference epoch before the frame gives a negative baseline
	past := utcDate(2005, time.January, 1)
	if f.Baseline(past) >= 0 {
		t.Error("Baseline should be negative when the reference epoch is earlier")
	}
}

func TestFrameValidate(t *testing.T) {
	valid := Frame{ID: "f1", Epoch: utcDate(2012, time.April, 3), PixelScale: 0.04}

	tests := []struct {
		name    string
		mutate  func(*Frame)
		wantErr bool
	}{
		{"valid", func(*Frame) {}, false},
		{"empty ID", func(f *Frame) { f.ID = "" }, true},
		{"zero pixel scale", func(f *Frame) { f.PixelScale = 0 }, true},
		{"negative pixel scale", func(f *Frame) { f.PixelScale = -0.04 }, true},
		{"zero epoch", func(f *Frame) { f.Epoch = utc.Time{} }, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := valid
			tc.mutate(&f)
			err := f.Validate()
			if tc.wantErr && !errors.IsValidationError(err) {
				t.Errorf("Expected validation error, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestManifest(t *testing.T) {
	t.Run("load valid manifest", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "frames.yaml")
		doc := `reference_epoch: 2016-01-01T00:00:00Z
frames:
  - id: icyy01lxq
    path: icyy01lxq_flc.fits
    epoch: 2012-04-03T12:00:00Z
    filter: F814W
    pixel_scale: 0.04
    exposure: 426.0
  - id: icyy01lyq
    epoch: 2012-04-03T13:00:00Z
    pixel_scale: 0.04
`
		if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
			t.Fatalf("write fixture: %v", err)
		}

		m, err := LoadManifest(path)
		if err != nil {
			t.Fatalf("LoadManifest failed: %v", err)
		}
		if len(m.Frames) != 2 {
			t.Fatalf("Expected 2 frames, got %d", len(m.Frames))
		}
		if m.Frames[0].Filter != "F814W" {
			t.Errorf("Filter = %q", m.Frames[0].Filter)
		}
		if b := m.Frames[0].Baseline(m.ReferenceEpoch); b <= 3.6 || b >= 3.8 {
			t.Errorf("Baseline = %v, want about 3.75", b)
		}
	})

	t.Run("duplicate frame ID rejected", func(t *testing.T) {
		m := &Manifest{
			ReferenceEpoch: utcDate(2016, time.January, 1),
			Frames: []Frame{
				{ID: "a", Epoch: utcDate(2012, time.April, 3), PixelScale: 0.04},
				{ID: "a", Epoch: utcDate(2012, time.April, 4), PixelScale: 0.04},
			},
		}
		if err := m.Validate(); !errors.IsValidationError(err) {
			t.Errorf("Expected validation error, got %v", err)
		}
	})

	t.Run("empty manifest rejected", func(t *testing.T) {
		m := &Manifest{ReferenceEpoch: utcDate(2016, time.January, 1)}
		if err := m.Validate(); !errors.IsValidationError(err) {
			t.Errorf("Expected validation error, got %v", err)
		}
	})

	t.Run("frame at reference epoch rejected", func(t *testing.T) {
		epoch := utcDate(2016, time.January, 1)
		m := &Manifest{
			ReferenceEpoch: epoch,
			Frames:         []Frame{{ID: "a", Epoch: epoch, PixelScale: 0.04}},
		}
		if err := m.Validate(); !errors.IsValidationError(err) {
			t.Errorf("Expected validation error, got %v", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadManifest(filepath.Join(t.TempDir(), "nope.yaml"))
		var ioErr *errors.IOError
		if !errors.As(err, &ioErr) {
			t.Errorf("Expected IOError, got %v", err)
		}
	})
}

func TestTransformation(t *testing.T) {
	tr := &Transformation{
		FrameID: "f1",
		Residuals: []Offset{
			{X: 0.02, Y: -0.01},
			{X: -0.02, Y: 0.03},
			{X: 0.03, Y: 0.01},
		},
	}

	t.Run("size", func(t *testing.T) {
		if tr.Size() != 3 {
			t.Errorf("Size = %d, want 3", tr.Size())
		}
	})

	t.Run("centroid", func(t *testing.T) {
		c := tr.Centroid()
		if math.Abs(c.X-0.01) > 1e-12 || math.Abs(c.Y-0.01) > 1e-12 {
			t.Errorf("Centroid = %+v, want (0.01, 0.01)", c)
		}
	})

	t.Run("empty centroid", func(t *testing.T) {
		empty := &Transformation{FrameID: "f1"}
		if c := empty.Centroid(); c.X != 0 || c.Y != 0 {
			t.Errorf("Centroid of empty sample = %+v", c)
		}
	})

	t.Run("clone is independent", func(t *testing.T) {
		c := tr.Clone()
		c.Residuals[0].X = 99
		if tr.Residuals[0].X == 99 {
			t.Error("Clone shares residual storage")
		}
		var nilTr *Transformation
		if nilTr.Clone() != nil {
			t.Error("Clone of nil should be nil")
		}
	})
}
