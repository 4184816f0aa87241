// Package mixture fits Gaussian mixture models by expectation maximization
// and scores points by mixture log-density.
//
// The residual quality gate and the membership classifier both consume the
// same contract: fit on a sample, score every point, clip on the score
// distribution. Initialization is seeded, so a fit over frozen inputs
// reproduces bit for bit.
package mixture

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/astriolab/pmfuse/pkg/constants"
)

// CovarianceType selects the shape of the per-component covariance.
type CovarianceType string

// Supported covariance shapes.
const (
	// Spherical fits a single shared variance per component.
	Spherical CovarianceType = "spherical"
	// Diagonal fits an axis-aligned variance per component and dimension.
	Diagonal CovarianceType = "diag"
	// Full fits an unconstrained covariance matrix per component.
	Full CovarianceType = "full"
)

// String returns the string representation of the covariance type.
func (c CovarianceType) String() string {
	return string(c)
}

// Config controls a mixture fit. The zero value fits a single spherical
// component with the package defaults.
type Config struct {
	Components int            `json:"components" yaml:"components"` // number of components (default 1)
	Covariance CovarianceType `json:"covariance" yaml:"covariance"` // covariance shape (default Spherical)
	MaxIter    int            `json:"max_iter" yaml:"max_iter"`     // EM iteration cap (default constants.DefaultEMMaxIter)
	Tolerance  float64        `json:"tolerance" yaml:"tolerance"`   // stop threshold on mean log-likelihood change
	RegCovar   float64        `json:"reg_covar" yaml:"reg_covar"`   // variance floor added to every covariance
	Seed       uint64         `json:"seed" yaml:"seed"`             // seed for the initial component placement
}

// withDefaults fills unset fields with the package defaults.
func (c Config) withDefaults() Config {
	if c.Components == 0 {
		c.Components = 1
	}
	if c.Covariance == "" {
		c.Covariance = Spherical
	}
	if c.MaxIter == 0 {
		c.MaxIter = constants.DefaultEMMaxIter
	}
	if c.Tolerance == 0 {
		c.Tolerance = constants.DefaultEMTolerance
	}
	if c.RegCovar == 0 {
		c.RegCovar = constants.CovarianceFloor
	}
	return c
}

// Model is a fitted Gaussian mixture.
type Model struct {
	covType CovarianceType
	dim     int

	weights []float64
	means   [][]float64

	// Exactly one of the following is populated, by covariance type.
	spherical []float64
	diagonal  [][]float64
	fullCov   []*mat.SymDense
	fullChol  []*mat.Cholesky

	logNorm []float64 // per component, -(dim*log(2pi) + log|cov|)/2

	iterations int
	logLik     float64
	converged  bool
}

// Components returns the number of mixture components.
func (m *Model) Components() int {
	return len(m.weights)
}

// Dim returns the dimensionality the model was fit on.
func (m *Model) Dim() int {
	return m.dim
}

// Iterations returns the number of EM iterations run.
func (m *Model) Iterations() int {
	return m.iterations
}

// Converged reports whether the fit reached its tolerance before the
// iteration cap.
func (m *Model) Converged() bool {
	return m.converged
}

// LogLikelihood returns the mean per-sample log-likelihood of the
// training data under the final model.
func (m *Model) LogLikelihood() float64 {
	return m.logLik
}

// Weights returns a copy of the mixing proportions.
func (m *Model) Weights() []float64 {
	out := make([]float64, len(m.weights))
	copy(out, m.weights)
	return out
}

// Mean returns a copy of the k-th component mean.
func (m *Model) Mean(k int) []float64 {
	out := make([]float64, m.dim)
	copy(out, m.means[k])
	return out
}

// Variance returns the per-dimension variance of the k-th component. For
// full covariance this is the matrix diagonal.
func (m *Model) Variance(k int) []float64 {
	out := make([]float64, m.dim)
	switch m.covType {
	case Spherical:
		for j := range out {
			out[j] = m.spherical[k]
		}
	case Diagonal:
		copy(out, m.diagonal[k])
	case Full:
		for j := range out {
			out[j] = m.fullCov[k].At(j, j)
		}
	}
	return out
}

// LogProb returns the mixture log-density at x.
func (m *Model) LogProb(x []float64) float64 {
	if len(x) != m.dim {
		panic("mixture: point dimension mismatch")
	}
	s := newScratch(m)
	return m.logProb(x, s)
}

// LogProbs scores every point, preserving order.
func (m *Model) LogProbs(points [][]float64) []float64 {
	s := newScratch(m)
	out := make([]float64, len(points))
	for i, x := range points {
		if len(x) != m.dim {
			panic("mixture: point dimension mismatch")
		}
		out[i] = m.logProb(x, s)
	}
	return out
}

// scratch holds per-call working buffers so batch scoring does not
// allocate per point.
type scratch struct {
	compLog []float64
	diff    []float64
	solved  *mat.VecDense
}

func newScratch(m *Model) *scratch {
	s := &scratch{
		compLog: make([]float64, len(m.weights)),
		diff:    make([]float64, m.dim),
	}
	if m.covType == Full {
		s.solved = mat.NewVecDense(m.dim, nil)
	}
	return s
}

func (m *Model) logProb(x []float64, s *scratch) float64 {
	for k := range m.weights {
		s.compLog[k] = math.Log(m.weights[k]) + m.componentLogProb(k, x, s)
	}
	return floats.LogSumExp(s.compLog)
}

// componentLogProb evaluates the k-th Gaussian log-density at x.
func (m *Model) componentLogProb(k int, x []float64, s *scratch) float64 {
	for j := range x {
		s.diff[j] = x[j] - m.means[k][j]
	}

	var quad float64
	switch m.covType {
	case Spherical:
		quad = floats.Dot(s.diff, s.diff) / m.spherical[k]
	case Diagonal:
		for j, d := range s.diff {
			quad += d * d / m.diagonal[k][j]
		}
	case Full:
		b := mat.NewVecDense(m.dim, s.diff)
		if err := m.fullChol[k].SolveVecTo(s.solved, b); err != nil {
			panic("mixture: solve on factorized covariance failed: " + err.Error())
		}
		quad = mat.Dot(b, s.solved)
	}

	return m.logNorm[k] - 0.5*quad
}

// refreshNorms recomputes the per-component normalization terms from the
// current covariances.
func (m *Model) refreshNorms() {
	const log2Pi = 1.8378770664093453
	for k := range m.weights {
		var logDet float64
		switch m.covType {
		case Spherical:
			logDet = float64(m.dim) * math.Log(m.spherical[k])
		case Diagonal:
			for _, v := range m.diagonal[k] {
				logDet += math.Log(v)
			}
		case Full:
			logDet = m.fullChol[k].LogDet()
		}
		m.logNorm[k] = -0.5 * (float64(m.dim)*log2Pi + logDet)
	}
}
