package errors_test

import (
	"fmt"

	"github.com/astriolab/pmfuse/pkg/errors"
)

// Example demonstrates basic error creation and checking.
func Example() {
	// Create a not found error
	err := &errors.NotFoundError{
		Resource: "star",
		ID:       "104382",
	}

	// Check error type
	if errors.IsNotFound(err) {
		fmt.Println("Resource not found")
	}

	// Output: Resource not found
}

// Example_frameError demonstrates per-frame error handling.
func Example_frameError() {
	// Simulate a frame failing during its transformation fit
	err := &errors.FrameError{
		Frame: "icyy01lxq",
		Stage: "transform",
		Err:   errors.ErrInsufficientStars,
	}

	// Frame failures are usually downgraded, not fatal
	if errors.IsInsufficientStars(err) {
		fmt.Println("Skipping frame with too few alignment stars")
	}

	// Output: Skipping frame with too few alignment stars
}

// Example_fitError shows statistical fit error handling.
func Example_fitError() {
	// Create a fit error
	err := &errors.FitError{
		Model:   "gaussian-mixture",
		Samples: 3,
		Message: "covariance collapsed to zero",
		Err:     errors.ErrSingularModel,
	}

	if errors.IsSingularModel(err) {
		fmt.Println("Degenerate fit, keeping previous membership")
	}

	// Output: Degenerate fit, keeping previous membership
}

// Example_errorWrapping demonstrates error wrapping patterns.
func Example_errorWrapping() {
	// Original error
	originalErr := fmt.Errorf("no such file")

	// Wrap with IO error
	ioErr := errors.WrapIO("open", "frame.xym", originalErr)

	// Wrap with frame error
	_ = &errors.FrameError{
		Frame: "icyy01lxq",
		Stage: "load",
		Err:   ioErr,
	}

	// Frame error type is already known
	fmt.Println("Frame error occurred")

	// Output: Frame error occurred
}

// Example_validationError shows input validation errors.
func Example_validationError() {
	// Validate input
	pixelScale := 0.0
	if pixelScale <= 0 {
		err := &errors.ValidationError{
			Field:   "pixel_scale",
			Value:   pixelScale,
			Message: "pixel scale must be positive",
		}
		fmt.Println(err.Error())
	}

	// Output: validation failed for field pixel_scale: pixel scale must be positive
}

// Example_processError demonstrates subprocess error handling.
func Example_processError() {
	// Create process error
	err := &errors.ProcessError{
		Operation: "fit transformation",
		Command:   "xym2mat frame.xym reference.xym",
		Output:    "fatal: no overlap between frames",
		ExitCode:  2,
	}

	// Handle process errors
	fmt.Printf("Command failed with exit code %d\n", err.ExitCode)
	if err.ExitCode == 2 {
		fmt.Println("Solver could not match the frame")
	}

	// Output:
	// Command failed with exit code 2
	// Solver could not match the frame
}

// Example_convergenceError shows handling an iteration loop that hit its cap.
func Example_convergenceError() {
	err := errors.NewConvergenceError("drift", 20, 0.34)

	if errors.IsNotConverged(err) {
		fmt.Println("Loop capped, reporting last iteration")
	}

	// Output: Loop capped, reporting last iteration
}

// Example_errorChaining shows chained error handling.
func Example_errorChaining() {
	// Create a chain of errors
	baseErr := &errors.NotFoundError{
		Resource: "file",
		ID:       "members.csv",
	}

	parseErr := &errors.ParseError{
		Format:  "csv",
		File:    "members.csv",
		Message: "failed to read member table",
		Err:     baseErr,
	}

	// Check through the chain using standard library
	if parseErr.Err != nil {
		if _, ok := parseErr.Err.(*errors.NotFoundError); ok {
			fmt.Println("File not found in parse chain")
		}
	}

	// Output: File not found in parse chain
}
