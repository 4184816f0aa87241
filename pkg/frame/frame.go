// Package frame describes epoch images, their fitted transformations onto
// the reference grid, and the per-star measurements those fits yield.
package frame

import (
	"os"

	"github.com/agentstation/utc"
	"github.com/goccy/go-yaml"

	"github.com/astriolab/pmfuse/pkg/catalog"
	"github.com/astriolab/pmfuse/pkg/constants"
	"github.com/astriolab/pmfuse/pkg/errors"
)

// Frame describes a single epoch image matched against the reference catalog.
type Frame struct {
	ID         string           `json:"id" yaml:"id"`                                 // Image identifier (dataset root name)
	Path       string           `json:"path,omitempty" yaml:"path,omitempty"`         // Source file the transformer consumes
	Epoch      utc.Time         `json:"epoch" yaml:"epoch"`                           // Observation epoch
	Filter     string           `json:"filter,omitempty" yaml:"filter,omitempty"`     // Photometric filter
	PixelScale float64          `json:"pixel_scale" yaml:"pixel_scale"`               // Plate scale (arcsec/px)
	Exposure   float64          `json:"exposure,omitempty" yaml:"exposure,omitempty"` // Exposure time (s)
	Stars      []catalog.StarID `json:"stars,omitempty" yaml:"stars,omitempty"`       // Catalog stars inside the footprint; empty means all
}

// Baseline returns the time span from the frame's epoch to the reference
// epoch, in Julian years. Positive when the reference epoch is later.
func (f *Frame) Baseline(ref utc.Time) float64 {
	days := ref.Sub(f.Epoch).Hours() / 24
	return days / constants.DaysPerJulianYear
}

// Validate checks the frame descriptor.
func (f *Frame) Validate() error {
	if f.ID == "" {
		return errors.NewValidationError("id", f.ID, "frame ID cannot be empty")
	}
	if f.PixelScale <= 0 {
		return errors.NewValidationError("pixel_scale", f.PixelScale, "pixel scale must be positive")
	}
	if f.Epoch.IsZero() {
		return errors.NewValidationError("epoch", f.Epoch, "frame epoch cannot be zero")
	}
	return nil
}

// Manifest lists the frames of an observation set and the epoch of the
// reference catalog they are reduced against.
type Manifest struct {
	ReferenceEpoch utc.Time `json:"reference_epoch" yaml:"reference_epoch"` // Epoch of the reference catalog
	Frames         []Frame  `json:"frames" yaml:"frames"`                   // Frames to reduce
}

// LoadManifest reads and validates a YAML frame manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.WrapParse("yaml", path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks the manifest and every frame in it.
func (m *Manifest) Validate() error {
	if m.ReferenceEpoch.IsZero() {
		return errors.NewValidationError("reference_epoch", m.ReferenceEpoch, "reference epoch cannot be zero")
	}
	if len(m.Frames) == 0 {
		return errors.NewValidationError("frames", nil, "manifest has no frames")
	}

	seen := make(map[string]bool, len(m.Frames))
	for i := range m.Frames {
		f := &m.Frames[i]
		if err := f.Validate(); err != nil {
			return err
		}
		if seen[f.ID] {
			return errors.NewValidationError("id", f.ID, "duplicate frame ID")
		}
		seen[f.ID] = true
		if f.Baseline(m.ReferenceEpoch) == 0 {
			return errors.NewValidationError("epoch", f.ID, "frame epoch equals the reference epoch")
		}
	}
	return nil
}
