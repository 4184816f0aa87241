package stats

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/astriolab/pmfuse/pkg/errors"
)

func TestShapiroWilk(t *testing.T) {
	t.Run("symmetric triple", func(t *testing.T) {
		// For n=3 the weight vector is (-sqrt(0.5), 0, sqrt(0.5)), so a
		// symmetric sample scores W=1 and the exact n=3 formula gives p=1.
		w, p, err := ShapiroWilk([]float64{0, 1, 2})
		if err != nil {
			t.Fatalf("ShapiroWilk failed: %v", err)
		}
		if !almostEqual(w, 1.0, 1e-12) {
			t.Errorf("W = %v, want 1", w)
		}
		if !almostEqual(p, 1.0, 1e-9) {
			t.Errorf("p = %v, want 1", p)
		}
	})

	t.Run("degenerate triple", func(t *testing.T) {
		// Two coincident points push W to its n=3 floor of 0.75, where the
		// exact formula pins p at zero.
		w, p, err := ShapiroWilk([]float64{0, 0, 1})
		if err != nil {
			t.Fatalf("ShapiroWilk failed: %v", err)
		}
		if !almostEqual(w, 0.75, 1e-12) {
			t.Errorf("W = %v, want 0.75", w)
		}
		if p > 1e-9 {
			t.Errorf("p = %v, want ~0", p)
		}
	})

	t.Run("skewed triple", func(t *testing.T) {
		// W = num²/den with num = sqrt(0.5)*(2-0) and den = 2.54.
		w, p, err := ShapiroWilk([]float64{0, 0.1, 2})
		if err != nil {
			t.Fatalf("ShapiroWilk failed: %v", err)
		}
		if !almostEqual(w, 2.0/2.54, 1e-9) {
			t.Errorf("W = %v, want %v", w, 2.0/2.54)
		}
		if p <= 0.05 || p >= 0.12 {
			t.Errorf("p = %v, want in (0.05, 0.12)", p)
		}
	})

	t.Run("normal scores accepted", func(t *testing.T) {
		// A sample placed exactly at normal order-statistic positions is as
		// normal as a sample of its size can look.
		const n = 50
		x := make([]float64, n)
		for i := range x {
			x[i] = distuv.UnitNormal.Quantile((float64(i) + 0.625) / (n + 0.25))
		}
		w, p, err := ShapiroWilk(x)
		if err != nil {
			t.Fatalf("ShapiroWilk failed: %v", err)
		}
		if w < 0.97 || w > 1 {
			t.Errorf("W = %v, want in [0.97, 1]", w)
		}
		if p < 0.5 {
			t.Errorf("p = %v, want > 0.5", p)
		}
	})

	t.Run("two point mass rejected", func(t *testing.T) {
		x := make([]float64, 200)
		for i := 100; i < 200; i++ {
			x[i] = 1
		}
		w, p, err := ShapiroWilk(x)
		if err != nil {
			t.Fatalf("ShapiroWilk failed: %v", err)
		}
		if w < 0.5 || w > 0.8 {
			t.Errorf("W = %v, want in [0.5, 0.8]", w)
		}
		if p > 1e-12 {
			t.Errorf("p = %v, want < 1e-12", p)
		}
	})

	t.Run("small uniform grids", func(t *testing.T) {
		// The test has essentially no power against short evenly spaced
		// samples, which covers the n<=5, n<=11 and n>=12 weight branches.
		for n := 4; n <= 12; n++ {
			x := make([]float64, n)
			for i := range x {
				x[i] = float64(i + 1)
			}
			w, p, err := ShapiroWilk(x)
			if err != nil {
				t.Fatalf("ShapiroWilk(n=%d) failed: %v", n, err)
			}
			if w < 0.9 || w > 1 {
				t.Errorf("n=%d: W = %v, want in [0.9, 1]", n, w)
			}
			if p < 0.2 {
				t.Errorf("n=%d: p = %v, want > 0.2", n, p)
			}
		}
	})

	t.Run("affine invariance", func(t *testing.T) {
		x := []float64{0.5, 1.1, 1.9, 2.2, 2.5, 3.1, 3.8, 4.4}
		y := make([]float64, len(x))
		for i, v := range x {
			y[i] = 5*v - 3
		}
		w1, p1, err := ShapiroWilk(x)
		if err != nil {
			t.Fatalf("ShapiroWilk failed: %v", err)
		}
		w2, p2, err := ShapiroWilk(y)
		if err != nil {
			t.Fatalf("ShapiroWilk failed: %v", err)
		}
		if !almostEqual(w1, w2, 1e-9) {
			t.Errorf("W changed under affine transform: %v vs %v", w1, w2)
		}
		if !almostEqual(p1, p2, 1e-9) {
			t.Errorf("p changed under affine transform: %v vs %v", p1, p2)
		}
	})

	t.Run("input preserved", func(t *testing.T) {
		in := []float64{3, 1, 2}
		w1, p1, err := ShapiroWilk(in)
		if err != nil {
			t.Fatalf("ShapiroWilk failed: %v", err)
		}
		if in[0] != 3 || in[1] != 1 || in[2] != 2 {
			t.Errorf("input slice mutated: %v", in)
		}
		w2, p2, err := ShapiroWilk([]float64{1, 2, 3})
		if err != nil {
			t.Fatalf("ShapiroWilk failed: %v", err)
		}
		if w1 != w2 || p1 != p2 {
			t.Errorf("order-dependent result: (%v, %v) vs (%v, %v)", w1, p1, w2, p2)
		}
	})
}

func TestShapiroWilkErrors(t *testing.T) {
	t.Run("too few samples", func(t *testing.T) {
		_, _, err := ShapiroWilk([]float64{1, 2})
		if err == nil {
			t.Fatal("expected error for n < 3")
		}
		if !errors.IsInsufficientStars(err) {
			t.Errorf("error = %v, want ErrInsufficientStars", err)
		}
	})

	t.Run("zero range", func(t *testing.T) {
		_, _, err := ShapiroWilk([]float64{2, 2, 2, 2})
		if err == nil {
			t.Fatal("expected error for zero range")
		}
		if !errors.Is(err, errors.ErrInvalidInput) {
			t.Errorf("error = %v, want ErrInvalidInput", err)
		}
		var fitErr *errors.FitError
		if !errors.As(err, &fitErr) {
			t.Fatalf("error = %T, want *FitError", err)
		}
		if fitErr.Samples != 4 {
			t.Errorf("Samples = %d, want 4", fitErr.Samples)
		}
	})
}

func TestShapiroWilkMatchesReference(t *testing.T) {
	// Reference W values computed independently with the AS R94 weights.
	tests := []struct {
		name   string
		sample []float64
		w      float64
		pMin   float64
		pMax   float64
	}{
		{
			name:   "right skewed",
			sample: []float64{0.1, 0.2, 0.3, 0.5, 0.9, 1.7, 3.3, 6.5},
			w:      0.7612,
			pMin:   0,
			pMax:   0.05,
		},
		{
			name:   "bell shaped",
			sample: []float64{-2.1, -1.3, -0.6, -0.2, 0, 0.3, 0.7, 1.2, 2.0},
			w:      0.9949,
			pMin:   0.9,
			pMax:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, p, err := ShapiroWilk(tt.sample)
			if err != nil {
				t.Fatalf("ShapiroWilk failed: %v", err)
			}
			if math.Abs(w-tt.w) > 0.01 {
				t.Errorf("W = %v, want %v +/- 0.01", w, tt.w)
			}
			if p < tt.pMin || p > tt.pMax {
				t.Errorf("p = %v, want in [%v, %v]", p, tt.pMin, tt.pMax)
			}
		})
	}
}
