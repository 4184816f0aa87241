package mixture

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/astriolab/pmfuse/pkg/errors"
)

// respFloor keeps an emptied component from zeroing its weight, which
// would put a -Inf into every score.
const respFloor = 2.220446049250313e-15

// Fit estimates a Gaussian mixture over points.
//
// Points must be finite and share one dimension. Too few samples wrap
// ErrInsufficientStars and covariance collapse wraps ErrSingularModel, both
// as explicit errors. Hitting the iteration cap is not an error: the model
// is returned with Converged() == false.
func Fit(points [][]float64, cfg Config) (*Model, error) {
	cfg = cfg.withDefaults()
	if err := validate(points, cfg); err != nil {
		return nil, err
	}

	m := &Model{
		covType: cfg.Covariance,
		dim:     len(points[0]),
		weights: make([]float64, cfg.Components),
		means:   make([][]float64, cfg.Components),
		logNorm: make([]float64, cfg.Components),
	}
	for k := range m.means {
		m.means[k] = make([]float64, m.dim)
	}
	switch m.covType {
	case Spherical:
		m.spherical = make([]float64, cfg.Components)
	case Diagonal:
		m.diagonal = make([][]float64, cfg.Components)
		for k := range m.diagonal {
			m.diagonal[k] = make([]float64, m.dim)
		}
	case Full:
		m.fullCov = make([]*mat.SymDense, cfg.Components)
		m.fullChol = make([]*mat.Cholesky, cfg.Components)
	}

	if cfg.Components == 1 {
		if err := m.fitSingle(points, cfg.RegCovar); err != nil {
			return nil, err
		}
		return m, nil
	}

	if err := m.initialize(points, cfg); err != nil {
		return nil, err
	}

	resp := make([]float64, len(points)*cfg.Components)
	prev := math.Inf(-1)
	for iter := 1; iter <= cfg.MaxIter; iter++ {
		ll := m.eStep(points, resp)
		if err := m.mStep(points, resp, cfg.RegCovar); err != nil {
			return nil, err
		}
		m.iterations = iter
		m.logLik = ll
		if math.Abs(ll-prev) < cfg.Tolerance {
			m.converged = true
			break
		}
		prev = ll
	}
	return m, nil
}

func validate(points [][]float64, cfg Config) error {
	if cfg.Components < 1 {
		return errors.NewValidationError("components", cfg.Components, "must be at least 1")
	}
	switch cfg.Covariance {
	case Spherical, Diagonal, Full:
	default:
		return errors.NewValidationError("covariance", cfg.Covariance.String(), "unknown covariance type")
	}
	if len(points) == 0 {
		return errors.NewFitError("gaussian-mixture", 0, "empty sample", errors.ErrInsufficientStars)
	}
	if len(points) < cfg.Components {
		return errors.NewFitError("gaussian-mixture", len(points), "fewer samples than components", errors.ErrInsufficientStars)
	}
	dim := len(points[0])
	if dim == 0 {
		return errors.NewValidationError("points", 0, "zero-dimensional sample")
	}
	for i, x := range points {
		if len(x) != dim {
			return errors.NewValidationError("points", i, "ragged sample dimensions")
		}
		for _, v := range x {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return errors.NewValidationError("points", i, "sample values must be finite")
			}
		}
	}
	return nil
}

// fitSingle is the closed-form single-component fit: the maximum-likelihood
// Gaussian is the sample mean and covariance, no EM needed.
func (m *Model) fitSingle(points [][]float64, reg float64) error {
	n := float64(len(points))
	mean := m.means[0]
	for _, x := range points {
		floats.Add(mean, x)
	}
	floats.Scale(1/n, mean)
	m.weights[0] = 1

	switch m.covType {
	case Spherical:
		var ss float64
		for _, x := range points {
			for j, v := range x {
				d := v - mean[j]
				ss += d * d
			}
		}
		m.spherical[0] = ss/(n*float64(m.dim)) + reg
	case Diagonal:
		vars := m.diagonal[0]
		for _, x := range points {
			for j, v := range x {
				d := v - mean[j]
				vars[j] += d * d
			}
		}
		for j := range vars {
			vars[j] = vars[j]/n + reg
		}
	case Full:
		cov := scatter(points, mean, nil, n, reg, m.dim)
		if err := m.factorize(0, cov, len(points)); err != nil {
			return err
		}
	}
	m.refreshNorms()

	s := newScratch(m)
	var ll float64
	for _, x := range points {
		ll += m.logProb(x, s)
	}
	m.logLik = ll / n
	m.converged = true
	return nil
}

// initialize seeds the mixture with a farthest-first traversal: the first
// mean is a seeded random sample point and every further mean is the point
// farthest from the means chosen so far, so separated clusters each receive
// a starting mean. Weights start equal and every covariance starts at the
// pooled sample variance.
func (m *Model) initialize(points [][]float64, cfg Config) error {
	n := len(points)
	rng := rand.New(rand.NewPCG(cfg.Seed, 0))

	chosen := make([]int, 1, cfg.Components)
	chosen[0] = rng.IntN(n)
	minDist := make([]float64, n)
	for i := range minDist {
		minDist[i] = sqDist(points[i], points[chosen[0]])
	}
	for len(chosen) < cfg.Components {
		best := 0
		for i := 1; i < n; i++ {
			if minDist[i] > minDist[best] {
				best = i
			}
		}
		chosen = append(chosen, best)
		for i := range minDist {
			if d := sqDist(points[i], points[best]); d < minDist[i] {
				minDist[i] = d
			}
		}
	}
	for k, idx := range chosen {
		copy(m.means[k], points[idx])
	}
	for k := range m.weights {
		m.weights[k] = 1 / float64(cfg.Components)
	}

	mean := make([]float64, m.dim)
	for _, x := range points {
		floats.Add(mean, x)
	}
	floats.Scale(1/float64(n), mean)

	switch m.covType {
	case Spherical:
		var ss float64
		for _, x := range points {
			for j, v := range x {
				d := v - mean[j]
				ss += d * d
			}
		}
		pooled := ss/(float64(n)*float64(m.dim)) + cfg.RegCovar
		for k := range m.spherical {
			m.spherical[k] = pooled
		}
	case Diagonal:
		vars := make([]float64, m.dim)
		for _, x := range points {
			for j, v := range x {
				d := v - mean[j]
				vars[j] += d * d
			}
		}
		for j := range vars {
			vars[j] = vars[j]/float64(n) + cfg.RegCovar
		}
		for k := range m.diagonal {
			copy(m.diagonal[k], vars)
		}
	case Full:
		for k := 0; k < cfg.Components; k++ {
			cov := scatter(points, mean, nil, float64(n), cfg.RegCovar, m.dim)
			if err := m.factorize(k, cov, n); err != nil {
				return err
			}
		}
	}
	m.refreshNorms()
	return nil
}

// eStep fills resp with posterior responsibilities and returns the mean
// per-sample log-likelihood under the current parameters.
func (m *Model) eStep(points [][]float64, resp []float64) float64 {
	k := len(m.weights)
	s := newScratch(m)
	var ll float64
	for i, x := range points {
		// logProb leaves the per-component joint logs in s.compLog.
		li := m.logProb(x, s)
		ll += li
		for c := 0; c < k; c++ {
			resp[i*k+c] = math.Exp(s.compLog[c] - li)
		}
	}
	return ll / float64(len(points))
}

// mStep re-estimates weights, means and covariances from the
// responsibilities.
func (m *Model) mStep(points [][]float64, resp []float64, reg float64) error {
	n := len(points)
	k := len(m.weights)

	for c := 0; c < k; c++ {
		var nk float64
		for i := 0; i < n; i++ {
			nk += resp[i*k+c]
		}
		nk += respFloor
		m.weights[c] = nk / float64(n)

		mean := m.means[c]
		for j := range mean {
			mean[j] = 0
		}
		for i, x := range points {
			r := resp[i*k+c]
			for j, v := range x {
				mean[j] += r * v
			}
		}
		floats.Scale(1/nk, mean)

		switch m.covType {
		case Spherical:
			var ss float64
			for i, x := range points {
				r := resp[i*k+c]
				for j, v := range x {
					d := v - mean[j]
					ss += r * d * d
				}
			}
			m.spherical[c] = ss/(nk*float64(m.dim)) + reg
		case Diagonal:
			vars := m.diagonal[c]
			for j := range vars {
				vars[j] = 0
			}
			for i, x := range points {
				r := resp[i*k+c]
				for j, v := range x {
					d := v - mean[j]
					vars[j] += r * d * d
				}
			}
			for j := range vars {
				vars[j] = vars[j]/nk + reg
			}
		case Full:
			cov := scatter(points, mean, responsibilityColumn(resp, k, c), nk, reg, m.dim)
			if err := m.factorize(c, cov, n); err != nil {
				return err
			}
		}
	}

	// The responsibility floor adds a little mass per component.
	total := floats.Sum(m.weights)
	floats.Scale(1/total, m.weights)

	m.refreshNorms()
	return nil
}

// scatter accumulates the (optionally weighted) covariance matrix of points
// around mean, divides by norm and adds reg to the diagonal.
func scatter(points [][]float64, mean, weights []float64, norm, reg float64, dim int) *mat.SymDense {
	cov := mat.NewSymDense(dim, nil)
	for i, x := range points {
		w := 1.0
		if weights != nil {
			w = weights[i]
		}
		for j := 0; j < dim; j++ {
			dj := x[j] - mean[j]
			for l := j; l < dim; l++ {
				cov.SetSym(j, l, cov.At(j, l)+w*dj*(x[l]-mean[l]))
			}
		}
	}
	for j := 0; j < dim; j++ {
		for l := j; l < dim; l++ {
			v := cov.At(j, l) / norm
			if j == l {
				v += reg
			}
			cov.SetSym(j, l, v)
		}
	}
	return cov
}

// responsibilityColumn copies component c's responsibilities out of the
// flat n-by-k matrix.
func responsibilityColumn(resp []float64, k, c int) []float64 {
	n := len(resp) / k
	col := make([]float64, n)
	for i := 0; i < n; i++ {
		col[i] = resp[i*k+c]
	}
	return col
}

// factorize stores component k's covariance together with its Cholesky
// factor, which scoring solves against.
func (m *Model) factorize(k int, cov *mat.SymDense, samples int) error {
	chol := &mat.Cholesky{}
	if ok := chol.Factorize(cov); !ok {
		return errors.NewFitError("gaussian-mixture", samples,
			"component covariance is not positive definite", errors.ErrSingularModel)
	}
	m.fullCov[k] = cov
	m.fullChol[k] = chol
	return nil
}

func sqDist(a, b []float64) float64 {
	var s float64
	for j := range a {
		d := a[j] - b[j]
		s += d * d
	}
	return s
}
