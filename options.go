package pmfuse

import (
	"time"

	"github.com/astriolab/pmfuse/pkg/align"
	"github.com/astriolab/pmfuse/pkg/errors"
	"github.com/astriolab/pmfuse/pkg/frame"
	"github.com/astriolab/pmfuse/pkg/transform"
)

// options configures a Reducer.
type options struct {
	manifest      *frame.Manifest
	transformer   transform.Transformer
	solverCommand string
	solverArgs    []string
	workDir       string
	solverTimeout time.Duration
	align         align.Config
	observers     []align.Observer
}

func defaultOptions() *options {
	return &options{
		align: align.Config{Mode: align.ModeMembership},
	}
}

// Option is a function that configures a Reducer.
type Option func(*options) error

func (options *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}
	return options, nil
}

// newOptions returns reducer options with default values.
func newOptions(opts ...Option) (*options, error) {
	return defaultOptions().apply(opts...)
}

// WithManifest sets the frame manifest naming the epochs to reduce.
func WithManifest(m *frame.Manifest) Option {
	return func(o *options) error {
		if m == nil {
			return &errors.ValidationError{
				Field:   "manifest",
				Message: "cannot be nil",
			}
		}
		o.manifest = m
		return nil
	}
}

// WithManifestFile loads the frame manifest from a YAML file.
func WithManifestFile(path string) Option {
	return func(o *options) error {
		m, err := frame.LoadManifest(path)
		if err != nil {
			return err
		}
		o.manifest = m
		return nil
	}
}

// WithTransformer sets the frame transformer directly, replacing any
// external solver configured with WithSolver.
func WithTransformer(tr transform.Transformer) Option {
	return func(o *options) error {
		if tr == nil {
			return &errors.ValidationError{
				Field:   "transformer",
				Message: "cannot be nil",
			}
		}
		o.transformer = tr
		return nil
	}
}

// WithSolver sets the external plate-solver executable and the extra
// arguments appended to every invocation.
func WithSolver(command string, args ...string) Option {
	return func(o *options) error {
		if command == "" {
			return &errors.ValidationError{
				Field:   "command",
				Message: "cannot be empty",
			}
		}
		o.solverCommand = command
		o.solverArgs = args
		return nil
	}
}

// WithWorkDir sets the scratch directory for solver input and output files.
func WithWorkDir(dir string) Option {
	return func(o *options) error {
		o.workDir = dir
		return nil
	}
}

// WithSolverTimeout bounds each solver invocation.
func WithSolverTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return &errors.ValidationError{
				Field:   "timeout",
				Value:   d,
				Message: "cannot be negative",
			}
		}
		o.solverTimeout = d
		return nil
	}
}

// WithAlignment replaces the whole engine configuration. Apply it before
// the narrower knobs below or it overwrites them.
func WithAlignment(cfg align.Config) Option {
	return func(o *options) error {
		o.align = cfg
		return nil
	}
}

// WithMode selects the convergence policy.
func WithMode(mode align.Mode) Option {
	return func(o *options) error {
		o.align.Mode = mode
		return nil
	}
}

// WithSeed fixes the membership classifier's random seed so runs repeat
// bit for bit.
func WithSeed(seed uint64) Option {
	return func(o *options) error {
		o.align.Seed = seed
		return nil
	}
}

// WithWorkers caps how many frames are solved concurrently.
func WithWorkers(n int) Option {
	return func(o *options) error {
		if n < 0 {
			return &errors.ValidationError{
				Field:   "workers",
				Value:   n,
				Message: "cannot be negative",
			}
		}
		o.align.Workers = n
		return nil
	}
}

// WithObserver registers an observer that receives a state snapshot after
// every iteration.
func WithObserver(obs align.Observer) Option {
	return func(o *options) error {
		o.observers = append(o.observers, obs)
		return nil
	}
}
