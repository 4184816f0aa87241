package quality

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/astriolab/pmfuse/pkg/frame"
)

// gaussianResiduals builds a deterministic zero-centered Gaussian residual
// cloud from normal quantiles, pairing axes through a stride permutation.
func gaussianResiduals(n int, sigma float64) []frame.Offset {
	res := make([]frame.Offset, n)
	for i := range res {
		zx := distuv.UnitNormal.Quantile((float64(i) + 0.625) / (float64(n) + 0.25))
		j := (i*37 + 11) % n
		zy := distuv.UnitNormal.Quantile((float64(j) + 0.625) / (float64(n) + 0.25))
		res[i] = frame.Offset{X: sigma * zx, Y: sigma * zy}
	}
	return res
}

func uniformResiduals(n int, half float64) []frame.Offset {
	res := make([]frame.Offset, n)
	for i := range res {
		x := ((float64(i)+0.5)/float64(n)*2 - 1) * half
		j := (i*73 + 29) % n
		y := ((float64(j)+0.5)/float64(n)*2 - 1) * half
		res[i] = frame.Offset{X: x, Y: y}
	}
	return res
}

func TestCheckAcceptsGaussianResiduals(t *testing.T) {
	tr := &frame.Transformation{
		FrameID:   "F606W-01",
		Residuals: gaussianResiduals(150, 0.002),
	}

	rep, out := Check(tr, Config{})
	if !rep.Passed() {
		t.Fatalf("Passed() = false, report %+v", rep)
	}
	if !rep.Normal || !rep.Centered || !rep.Populated {
		t.Errorf("flags = %v %v %v, want all true", rep.Normal, rep.Centered, rep.Populated)
	}
	if rep.Size != 150 {
		t.Errorf("Size = %d, want 150", rep.Size)
	}
	if rep.W < 0.99 {
		t.Errorf("W = %v, want > 0.99", rep.W)
	}
	if rep.PValue < 0.5 {
		t.Errorf("PValue = %v, want > 0.5", rep.PValue)
	}
	if rep.TrimApplied || rep.Trimmed != 0 {
		t.Errorf("trim ran without being asked: applied=%v trimmed=%d", rep.TrimApplied, rep.Trimmed)
	}
	if out == tr {
		t.Fatal("Check returned the input transformation, want a copy")
	}
	if out.FrameID != tr.FrameID {
		t.Errorf("FrameID = %q, want %q", out.FrameID, tr.FrameID)
	}
	if out.Normality != rep.PValue {
		t.Errorf("Normality = %v, want report p-value %v", out.Normality, rep.PValue)
	}
}

func TestCheckRejectsUniformResiduals(t *testing.T) {
	tr := &frame.Transformation{
		FrameID:   "F606W-02",
		Residuals: uniformResiduals(200, 0.005),
	}

	rep, _ := Check(tr, Config{Alpha: 1e-6})
	if rep.Passed() {
		t.Fatalf("Passed() = true for uniform residuals, report %+v", rep)
	}
	if rep.Normal {
		t.Errorf("Normal = true, p-value %v", rep.PValue)
	}
	if !rep.Centered || !rep.Populated {
		t.Errorf("Centered/Populated = %v/%v, want true/true", rep.Centered, rep.Populated)
	}
	if rep.PValue >= 1e-6 {
		t.Errorf("PValue = %v, want < 1e-6", rep.PValue)
	}
	if rep.W < 0.9 || rep.W > 0.98 {
		t.Errorf("W = %v, want in (0.9, 0.98)", rep.W)
	}
}

func TestCheckFlagsOffCenter(t *testing.T) {
	res := gaussianResiduals(150, 0.002)
	for i := range res {
		res[i].X += 0.05
	}
	tr := &frame.Transformation{FrameID: "F814W-03", Residuals: res}

	rep, _ := Check(tr, Config{})
	if rep.Centered {
		t.Errorf("Centered = true with centroid %+v", rep.Centroid)
	}
	if !rep.Normal || !rep.Populated {
		t.Errorf("Normal/Populated = %v/%v, want true/true", rep.Normal, rep.Populated)
	}
	if math.Abs(rep.Centroid.X-0.05) > 1e-6 {
		t.Errorf("Centroid.X = %v, want 0.05", rep.Centroid.X)
	}
	if math.Abs(rep.Centroid.Y) > 1e-6 {
		t.Errorf("Centroid.Y = %v, want 0", rep.Centroid.Y)
	}
	if rep.Passed() {
		t.Error("Passed() = true, want false")
	}
}

func TestCheckFlagsSmallSample(t *testing.T) {
	tr := &frame.Transformation{
		FrameID:   "F814W-04",
		Residuals: gaussianResiduals(60, 0.002),
	}

	rep, _ := Check(tr, Config{})
	if rep.Populated {
		t.Errorf("Populated = true for %d residuals with default MinStars", rep.Size)
	}
	if !rep.Normal || !rep.Centered {
		t.Errorf("Normal/Centered = %v/%v, want true/true", rep.Normal, rep.Centered)
	}
	if rep.Size != 60 {
		t.Errorf("Size = %d, want 60", rep.Size)
	}
	if rep.Passed() {
		t.Error("Passed() = true, want false")
	}
}

func TestCheckTrimsOutliers(t *testing.T) {
	res := gaussianResiduals(120, 0.002)
	res = append(res,
		frame.Offset{X: 0.5, Y: 0.5},
		frame.Offset{X: -0.5, Y: 0.45},
		frame.Offset{X: 0.45, Y: -0.5},
	)
	tr := &frame.Transformation{FrameID: "F606W-05", Residuals: res}

	// Untrimmed, the outliers wreck the pooled normality.
	rep, _ := Check(tr, Config{Alpha: 1e-6})
	if rep.Normal {
		t.Fatalf("Normal = true with outliers present, p-value %v", rep.PValue)
	}
	if rep.TrimApplied || rep.Trimmed != 0 {
		t.Fatalf("trim ran without being asked: applied=%v trimmed=%d", rep.TrimApplied, rep.Trimmed)
	}

	rep, out := Check(tr, Config{Alpha: 1e-6, Trim: true})
	if !rep.TrimApplied {
		t.Fatal("TrimApplied = false, want true")
	}
	if rep.Trimmed != 3 {
		t.Fatalf("Trimmed = %d, want 3", rep.Trimmed)
	}
	if rep.Size != 120 {
		t.Errorf("Size = %d, want 120", rep.Size)
	}
	if !rep.Passed() {
		t.Errorf("Passed() = false after trim, report %+v", rep)
	}
	if out.Size() != 120 {
		t.Errorf("trimmed transformation carries %d residuals, want 120", out.Size())
	}
	if len(tr.Residuals) != 123 {
		t.Errorf("input transformation mutated: %d residuals, want 123", len(tr.Residuals))
	}
}

func TestCheckTrimKeepsIdenticalResiduals(t *testing.T) {
	res := make([]frame.Offset, 150)
	for i := range res {
		res[i] = frame.Offset{X: 0.001, Y: -0.002}
	}
	tr := &frame.Transformation{FrameID: "F814W-06", Residuals: res}

	rep, out := Check(tr, Config{Trim: true})
	if !rep.TrimApplied {
		t.Fatal("TrimApplied = false, want true")
	}
	if rep.Trimmed != 0 {
		t.Errorf("Trimmed = %d, want 0", rep.Trimmed)
	}
	if rep.Size != 150 || out.Size() != 150 {
		t.Errorf("Size = %d / %d, want 150 / 150", rep.Size, out.Size())
	}
	// A zero-range pooled sample cannot be tested for normality.
	if rep.Normal {
		t.Error("Normal = true for identical residuals")
	}
	if !rep.Centered || !rep.Populated {
		t.Errorf("Centered/Populated = %v/%v, want true/true", rep.Centered, rep.Populated)
	}
}

func TestCheckTrimDowngradesOnBadResiduals(t *testing.T) {
	res := gaussianResiduals(120, 0.002)
	res[7].Y = math.NaN()
	tr := &frame.Transformation{FrameID: "F606W-07", Residuals: res}

	rep, out := Check(tr, Config{Trim: true})
	if rep.TrimApplied {
		t.Error("TrimApplied = true, want downgrade to untrimmed")
	}
	if rep.Trimmed != 0 {
		t.Errorf("Trimmed = %d, want 0", rep.Trimmed)
	}
	if rep.Size != 120 || out.Size() != 120 {
		t.Errorf("Size = %d / %d, want 120 / 120", rep.Size, out.Size())
	}
	if rep.Normal {
		t.Error("Normal = true for a sample containing NaN")
	}
	if rep.Passed() {
		t.Error("Passed() = true, want false")
	}
}

func TestCheckNilTransformation(t *testing.T) {
	rep, out := Check(nil, Config{Trim: true})
	if out != nil {
		t.Fatalf("out = %+v, want nil", out)
	}
	if rep.Passed() {
		t.Error("Passed() = true for nil transformation")
	}
	if rep.Size != 0 {
		t.Errorf("Size = %d, want 0", rep.Size)
	}
}
