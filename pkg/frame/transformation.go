package frame

// Offset is a 2D positional offset in frame pixels.
type Offset struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Transformation is the fitted linear mapping of one frame onto the
// reference grid, summarized by the post-fit offsets of its matched stars.
// A transformation is re-created for its frame on every iteration; the
// quality gate may emit a trimmed copy that seeds the next iteration's fit.
type Transformation struct {
	FrameID   string   `json:"frame_id" yaml:"frame_id"` // Frame the fit belongs to
	Residuals []Offset `json:"-" yaml:"-"`               // Matched-star offsets after the fit
	Normality float64  `json:"normality" yaml:"normality"` // Pooled normality p-value, set by the quality gate
}

// Size returns the matched-star count behind the fit.
func (t *Transformation) Size() int {
	return len(t.Residuals)
}

// Centroid returns the mean residual offset. A well-behaved fit centers
// its residuals on the origin.
func (t *Transformation) Centroid() Offset {
	if len(t.Residuals) == 0 {
		return Offset{}
	}
	var sx, sy float64
	for _, r := range t.Residuals {
		sx += r.X
		sy += r.Y
	}
	n := float64(len(t.Residuals))
	return Offset{X: sx / n, Y: sy / n}
}

// Clone returns a deep copy of the transformation.
func (t *Transformation) Clone() *Transformation {
	if t == nil {
		return nil
	}
	out := &Transformation{
		FrameID:   t.FrameID,
		Normality: t.Normality,
	}
	if t.Residuals != nil {
		out.Residuals = make([]Offset, len(t.Residuals))
		copy(out.Residuals, t.Residuals)
	}
	return out
}
