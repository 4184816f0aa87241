// Package errors provides custom error types for the pmfuse system.
// These errors enable better error handling, programmatic error checking,
// and improved debugging throughout the reduction pipeline.
package errors

import (
	"context"
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is reports whether any error in err's tree matches target.
// It's an alias for the standard library errors.Is for convenience.
var Is = errors.Is

// As finds the first error in err's tree that matches target.
// It's an alias for the standard library errors.As for convenience.
var As = errors.As

// Common sentinel errors for the pmfuse system
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoValidFrames indicates that no frame produced a usable transformation
	ErrNoValidFrames = errors.New("no valid frames")

	// ErrInsufficientStars indicates that too few stars remain for a fit
	ErrInsufficientStars = errors.New("insufficient stars")

	// ErrNotConverged indicates that iteration stopped at the cap without converging
	ErrNotConverged = errors.New("not converged")

	// ErrSingularModel indicates that a mixture fit collapsed to a singular covariance
	ErrSingularModel = errors.New("singular model")

	// ErrMissingColumn indicates that a catalog lacks a required column
	ErrMissingColumn = errors.New("missing column")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")

	// ErrNotImplemented indicates that a feature is not yet implemented
	ErrNotImplemented = errors.New("not implemented")
)

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// FrameError represents a failure while processing a single frame.
// Frame failures are usually downgraded to warnings by the engine;
// the error type records which frame and stage failed for diagnostics.
type FrameError struct {
	Frame string // Frame identifier
	Stage string // "load", "transform", "gate", "measure"
	Err   error
}

// Error implements the error interface
func (e *FrameError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("frame %s failed during %s: %v", e.Frame, e.Stage, e.Err)
	}
	return fmt.Sprintf("frame %s failed: %v", e.Frame, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *FrameError) Unwrap() error {
	return e.Err
}

// NewFrameError creates a new FrameError
func NewFrameError(frame, stage string, err error) *FrameError {
	return &FrameError{Frame: frame, Stage: stage, Err: err}
}

// FitError represents a statistical model fit failure
type FitError struct {
	Model   string // "gaussian-mixture", "shapiro-wilk", "weighted-mean"
	Samples int    // Number of samples the fit was attempted on
	Message string
	Err     error
}

// Error implements the error interface
func (e *FitError) Error() string {
	if e.Samples > 0 {
		return fmt.Sprintf("%s fit failed on %d samples: %s", e.Model, e.Samples, e.Message)
	}
	return fmt.Sprintf("%s fit failed: %s", e.Model, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *FitError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *FitError) Is(target error) bool {
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewFitError creates a new FitError
func NewFitError(model string, samples int, message string, err error) *FitError {
	return &FitError{
		Model:   model,
		Samples: samples,
		Message: message,
		Err:     err,
	}
}

// ConvergenceError represents an iteration loop stopping at its cap
type ConvergenceError struct {
	Policy     string  // "membership", "drift"
	Iterations int     // Iterations performed before giving up
	Residual   float64 // Last observed convergence metric
}

// Error implements the error interface
func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("%s loop did not converge after %d iterations (residual %g)", e.Policy, e.Iterations, e.Residual)
}

// Is implements errors.Is support
func (e *ConvergenceError) Is(target error) bool {
	return target == ErrNotConverged
}

// NewConvergenceError creates a new ConvergenceError
func NewConvergenceError(policy string, iterations int, residual float64) *ConvergenceError {
	return &ConvergenceError{
		Policy:     policy,
		Iterations: iterations,
		Residual:   residual,
	}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// DependencyError indicates a required external dependency is missing
type DependencyError struct {
	Dependency string
	Message    string
}

// Error implements the error interface
func (e *DependencyError) Error() string {
	return fmt.Sprintf("dependency %s: %s", e.Dependency, e.Message)
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsInsufficientStars checks if an error indicates too few stars
func IsInsufficientStars(err error) bool {
	return errors.Is(err, ErrInsufficientStars)
}

// IsNotConverged checks if an error indicates a convergence failure
func IsNotConverged(err error) bool {
	return errors.Is(err, ErrNotConverged)
}

// IsSingularModel checks if an error indicates a degenerate fit
func IsSingularModel(err error) bool {
	return errors.Is(err, ErrSingularModel)
}

// IsTimeout checks if an error is a timeout error, matching both the
// package sentinel and context deadline expiry
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}

// IsCanceled checks if an error is a cancellation error, matching both
// the package sentinel and context cancellation
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled) || errors.Is(err, context.Canceled)
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "csv", "yaml", "transform", etc.
	File    string
	Line    int
	Column  int
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" && e.Line > 0 {
		return fmt.Sprintf("parse error in %s at %s:%d:%d: %s", e.Format, e.File, e.Line, e.Column, e.Message)
	}
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, file string, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		File:    file,
		Message: message,
		Err:     err,
	}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "create", "delete", "open", "close"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError
func NewIOError(operation, path string, err error) *IOError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &IOError{
		Operation: operation,
		Path:      path,
		Message:   message,
		Err:       err,
	}
}

// TimeoutError represents an operation timeout
type TimeoutError struct {
	Operation string
	Duration  string
	Message   string
}

// Error implements the error interface
func (e *TimeoutError) Error() string {
	if e.Duration != "" {
		return fmt.Sprintf("operation %s timed out after %s: %s", e.Operation, e.Duration, e.Message)
	}
	return fmt.Sprintf("operation %s timed out: %s", e.Operation, e.Message)
}

// Is implements errors.Is support
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// NewTimeoutError creates a new TimeoutError
func NewTimeoutError(operation, duration, message string) *TimeoutError {
	return &TimeoutError{
		Operation: operation,
		Duration:  duration,
		Message:   message,
	}
}

// ProcessError represents an error from an external process or command
type ProcessError struct {
	Operation string // What operation was being performed
	Command   string // The command that was executed
	Output    string // Stdout/stderr output from the process
	ExitCode  int    // Exit code if available
	Err       error  // Underlying error
}

// Error implements the error interface
func (e *ProcessError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("process error during %s (command: %s): %v\nOutput: %s", e.Operation, e.Command, e.Err, e.Output)
	}
	return fmt.Sprintf("process error during %s (command: %s): %v", e.Operation, e.Command, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *ProcessError) Unwrap() error {
	return e.Err
}

// NewProcessError creates a new ProcessError
func NewProcessError(operation, command, output string, err error) *ProcessError {
	return &ProcessError{
		Operation: operation,
		Command:   command,
		Output:    output,
		Err:       err,
	}
}

// Helper wrapping functions for common patterns

// WrapValidation wraps an error as a ValidationError
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}

// WrapFrame wraps an error as a FrameError
func WrapFrame(frame, stage string, err error) error {
	if err == nil {
		return nil
	}
	return NewFrameError(frame, stage, err)
}

// WrapFit wraps an error as a FitError
func WrapFit(model string, samples int, err error) error {
	if err == nil {
		return nil
	}
	return NewFitError(model, samples, err.Error(), err)
}
