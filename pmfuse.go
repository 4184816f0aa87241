// Package pmfuse is the main entry point for the proper-motion fusion
// pipeline. It reduces a star table against a set of epoch frames by
// repeatedly solving plate transformations, gating them on residual
// quality, aggregating the surviving measurements into relative proper
// motions, and calibrating those onto the reference system until the
// run converges.
//
// The package wraps the lower-level pipeline stages with:
// - Functional options for configuring the solver and the engine
// - A single Run call that owns the whole iteration loop
// - Per-iteration observers for progress reporting and diagnostics
//
// Example usage:
//
//	// Create a reducer driven by an external plate solver
//	red, err := pmfuse.New(
//	    pmfuse.WithManifestFile("frames.yaml"),
//	    pmfuse.WithSolver("xym2pm", "--weighted"),
//	    pmfuse.WithMode(align.ModeMembership),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Load the input table
//	table, err := catalog.Load("stars.csv")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Run the reduction
//	res, err := red.Run(ctx, table)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("converged=%v after %d iterations\n", res.Converged, res.Iterations)
//
//	// Save the refined table
//	if err := catalog.Save("out.csv", res.Table); err != nil {
//	    log.Fatal(err)
//	}
package pmfuse

import (
	"context"
	"fmt"

	"github.com/astriolab/pmfuse/pkg/align"
	"github.com/astriolab/pmfuse/pkg/catalog"
	"github.com/astriolab/pmfuse/pkg/errors"
	"github.com/astriolab/pmfuse/pkg/frame"
	"github.com/astriolab/pmfuse/pkg/transform"
)

// Compile-time interface check to ensure proper implementation.
var _ Reducer = (*reducer)(nil)

// Reducer runs the cross-epoch reduction for one field.
type Reducer interface {
	// Run reduces the table against every frame in the manifest and
	// returns the converged result. The input table is never mutated.
	Run(ctx context.Context, table *catalog.Table) (*align.Result, error)

	// Frames lists the frames the reducer will solve, in manifest order.
	Frames() []frame.Frame

	// Observe registers an observer that receives a state snapshot
	// after every iteration. Not safe to call once Run has started.
	Observe(obs align.Observer)
}

// reducer is the internal implementation of the Reducer interface.
type reducer struct {
	engine *align.Engine
	frames []frame.Frame
}

// New creates a new Reducer instance with the given options. A frame
// manifest is required, and so is a way to solve frames: either a
// transformer or an external solver command.
func New(opts ...Option) (Reducer, error) {
	options, err := newOptions(opts...)
	if err != nil {
		return nil, fmt.Errorf("applying options: %w", err)
	}

	if options.manifest == nil {
		return nil, errors.NewConfigError("pmfuse", "a frame manifest is required", nil)
	}

	tr := options.transformer
	if tr == nil {
		if options.solverCommand == "" {
			return nil, errors.NewConfigError("pmfuse", "a transformer or solver command is required", nil)
		}
		tr = &transform.Exec{
			Command: options.solverCommand,
			Args:    options.solverArgs,
			WorkDir: options.workDir,
			Timeout: options.solverTimeout,
		}
	}

	engine, err := align.New(tr, options.manifest, options.align)
	if err != nil {
		return nil, err
	}
	for _, obs := range options.observers {
		engine.Observe(obs)
	}

	return &reducer{
		engine: engine,
		frames: append([]frame.Frame(nil), options.manifest.Frames...),
	}, nil
}

// Run reduces the table against every frame in the manifest and returns
// the converged result.
func (r *reducer) Run(ctx context.Context, table *catalog.Table) (*align.Result, error) {
	return r.engine.Run(ctx, table)
}

// Frames lists the frames the reducer will solve, in manifest order.
func (r *reducer) Frames() []frame.Frame {
	out := make([]frame.Frame, len(r.frames))
	copy(out, r.frames)
	return out
}

// Observe registers an observer that receives a state snapshot after
// every iteration.
func (r *reducer) Observe(obs align.Observer) {
	r.engine.Observe(obs)
}
