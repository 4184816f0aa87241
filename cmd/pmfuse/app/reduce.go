package app

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/astriolab/pmfuse"
	"github.com/astriolab/pmfuse/internal/cmd/output"
	"github.com/astriolab/pmfuse/internal/report"
	"github.com/astriolab/pmfuse/pkg/align"
	"github.com/astriolab/pmfuse/pkg/catalog"
	"github.com/astriolab/pmfuse/pkg/errors"
	"github.com/astriolab/pmfuse/pkg/frame"
	"github.com/astriolab/pmfuse/pkg/logging"
)

// reduceOptions collects the reduce flags. Zero values fall back to the
// loaded configuration, then to the engine defaults.
type reduceOptions struct {
	framesPath    string
	outPath       string
	reportPath    string
	qualityColumn string
	mode          string
	iterations    int
	minStars      int
	workers       int
	seed          uint64
	clipProb      float64
	solver        string
	solverArgs    []string
	workDir       string
	timeout       time.Duration
}

// NewReduceCommand creates the reduce command, the end-to-end run: load a
// star table, iterate plate solutions and membership against the frame
// manifest, and write the reduced table.
func (a *App) NewReduceCommand() *cobra.Command {
	opts := &reduceOptions{}

	cmd := &cobra.Command{
		Use:     "reduce <stars.csv>",
		GroupID: "core",
		Short:   "Reduce a star table to absolute proper motions",
		Long: `Reduce runs the full proper-motion pipeline for one field.

The star table provides the reference-epoch positions, catalog proper
motions where available, and the initial membership guesses. The frame
manifest lists the imaging frames and their epochs. Each frame is solved
by the external plate solver named with --solver, which receives a star
list on stdin and prints matched positions on stdout.

The reduced table keeps every star that ended the run with an absolute
proper motion. A Markdown run report with the convergence history is
written when --report is given.`,
		Example: `  # Membership mode with defaults from .pmfuse.yaml
  pmfuse reduce field42.csv --frames field42_frames.yaml

  # Drift mode, explicit solver, JSON summary
  pmfuse reduce field42.csv -f frames.yaml --mode drift \
    --solver sixdfit --solver-arg --quadratic -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runReduce(cmd, args[0], opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.framesPath, "frames", "f", "", "frame manifest YAML file")
	flags.StringVar(&opts.outPath, "out", "", "output star table (default <stars>_reduced.csv)")
	flags.StringVar(&opts.reportPath, "report", "", "write a Markdown run report to this file")
	flags.StringVar(&opts.qualityColumn, "quality-column", "", "drop input rows with a falsy value in this column")
	flags.StringVar(&opts.mode, "mode", "", "convergence mode: membership or drift")
	flags.IntVar(&opts.iterations, "iterations", 0, "iteration cap (0 uses the mode default)")
	flags.IntVar(&opts.minStars, "min-stars", 0, "minimum alignment stars per frame")
	flags.IntVar(&opts.workers, "workers", 0, "concurrent frame solves (0 uses one per CPU)")
	flags.Uint64Var(&opts.seed, "seed", 0, "random seed for the membership classifier")
	flags.Float64Var(&opts.clipProb, "clip", 0, "residual clip threshold in sigma")
	flags.StringVar(&opts.solver, "solver", "", "plate solver command")
	flags.StringArrayVar(&opts.solverArgs, "solver-arg", nil, "argument passed to the solver (repeatable)")
	flags.StringVar(&opts.workDir, "workdir", "", "working directory for solver runs")
	flags.DurationVar(&opts.timeout, "timeout", 0, "per-frame solver timeout")

	return cmd
}

// runReduce executes the pipeline with flag values merged over config.
func (a *App) runReduce(cmd *cobra.Command, starsPath string, opts *reduceOptions) error {
	a.mergeReduceConfig(opts)

	if opts.framesPath == "" {
		return errors.NewConfigError("reduce", "a frame manifest is required (--frames or config)", nil)
	}
	if opts.solver == "" {
		return errors.NewConfigError("reduce", "a plate solver command is required (--solver or config)", nil)
	}

	manifest, err := frame.LoadManifest(opts.framesPath)
	if err != nil {
		return err
	}

	var loadOpts []catalog.LoadOption
	if opts.qualityColumn != "" {
		loadOpts = append(loadOpts, catalog.WithQualityFilter(opts.qualityColumn))
	}
	table, err := catalog.Load(starsPath, loadOpts...)
	if err != nil {
		return err
	}

	a.logger.Info().
		Str("stars", starsPath).
		Str("frames", opts.framesPath).
		Int("loaded", table.Len()).
		Msg("Starting reduction")

	recorder := &stateRecorder{}
	reducer, err := pmfuse.New(
		pmfuse.WithManifest(manifest),
		pmfuse.WithSolver(opts.solver, opts.solverArgs...),
		pmfuse.WithWorkDir(opts.workDir),
		pmfuse.WithSolverTimeout(opts.timeout),
		pmfuse.WithAlignment(align.Config{
			Mode:          align.Mode(opts.mode),
			MaxIterations: opts.iterations,
			MinStars:      opts.minStars,
			Workers:       opts.workers,
			Seed:          opts.seed,
			ClipProb:      opts.clipProb,
		}),
		pmfuse.WithObserver(loggingObserver(a.logger)),
		pmfuse.WithObserver(recorder),
	)
	if err != nil {
		return err
	}

	ctx := logging.WithLogger(cmd.Context(), a.logger)
	result, err := reducer.Run(ctx, table)
	if err != nil {
		return err
	}

	outPath := opts.outPath
	if outPath == "" {
		outPath = defaultOutPath(starsPath)
	}
	if err := catalog.Save(outPath, result.Table); err != nil {
		return err
	}
	a.logger.Info().
		Str("path", outPath).
		Int("stars", result.Table.Len()).
		Msg("Reduced table written")

	if opts.reportPath != "" {
		run := &report.Report{
			Result:   result,
			States:   recorder.states,
			Manifest: manifest,
			Mode:     resolvedMode(opts.mode),
		}
		if err := report.Save(opts.reportPath, run); err != nil {
			return err
		}
		a.logger.Info().Str("path", opts.reportPath).Msg("Run report written")
	}

	return a.printReduceSummary(cmd, opts, result, outPath)
}

// mergeReduceConfig fills unset flags from the loaded configuration. The
// engine supplies the final defaults for anything still zero.
func (a *App) mergeReduceConfig(opts *reduceOptions) {
	c := a.config
	if opts.framesPath == "" {
		opts.framesPath = c.Frames
	}
	if opts.solver == "" {
		opts.solver = c.Solver
	}
	if len(opts.solverArgs) == 0 {
		opts.solverArgs = c.SolverArgs
	}
	if opts.workDir == "" {
		opts.workDir = c.WorkDir
	}
	if opts.timeout == 0 {
		opts.timeout = c.SolverTimeout
	}
	if opts.mode == "" {
		opts.mode = c.Mode
	}
	if opts.iterations == 0 {
		opts.iterations = c.MaxIterations
	}
	if opts.minStars == 0 {
		opts.minStars = c.MinStars
	}
	if opts.workers == 0 {
		opts.workers = c.Workers
	}
	if opts.seed == 0 {
		opts.seed = c.Seed
	}
	if opts.clipProb == 0 {
		opts.clipProb = c.ClipProb
	}
	if opts.qualityColumn == "" {
		opts.qualityColumn = c.QualityColumn
	}
}

// reduceSummary is the operator-facing digest printed after a run.
type reduceSummary struct {
	RunID      string  `json:"run_id" yaml:"run_id"`
	Mode       string  `json:"mode" yaml:"mode"`
	Converged  bool    `json:"converged" yaml:"converged"`
	Iterations int     `json:"iterations" yaml:"iterations"`
	Stars      int     `json:"stars" yaml:"stars"`
	Aligned    int     `json:"aligned" yaml:"aligned"`
	Candidates int     `json:"candidates" yaml:"candidates"`
	OffsetRA   float64 `json:"offset_ra" yaml:"offset_ra"`
	OffsetDec  float64 `json:"offset_dec" yaml:"offset_dec"`
	Output     string  `json:"output" yaml:"output"`
}

// printReduceSummary renders the run digest in the configured format.
func (a *App) printReduceSummary(cmd *cobra.Command, opts *reduceOptions, result *align.Result, outPath string) error {
	summary := reduceSummary{
		RunID:      result.RunID,
		Mode:       resolvedMode(opts.mode),
		Converged:  result.Converged,
		Iterations: result.Iterations,
		Stars:      result.Table.Len(),
		Aligned:    result.Table.CountAligned(),
		Candidates: result.Table.CountCandidates(),
		Output:     outPath,
	}
	if result.Offset != nil {
		summary.OffsetRA = result.Offset.RA
		summary.OffsetDec = result.Offset.Dec
	}

	format := output.DetectFormat(a.config.Format)
	return output.NewFormatter(format).Format(cmd.OutOrStdout(), summary)
}

// resolvedMode names the convergence mode actually used.
func resolvedMode(mode string) string {
	if mode == "" {
		return string(align.ModeMembership)
	}
	return mode
}

// defaultOutPath derives the output path from the input star table, so
// field42.csv reduces to field42_reduced.csv.
func defaultOutPath(starsPath string) string {
	ext := filepath.Ext(starsPath)
	if ext == "" {
		ext = ".csv"
	}
	return strings.TrimSuffix(starsPath, ext) + "_reduced" + ext
}
