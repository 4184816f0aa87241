// Package constants provides shared constants used throughout the pmfuse codebase.
// This includes iteration caps, statistical thresholds, timeouts, file permissions,
// and other configuration values that should be consistent across the application.
package constants

import "time"

// Iteration constants bound the refinement loops. The caps are safety valves
// against oscillation, not correctness guarantees: a capped run still emits
// its best estimate together with a warning.
const (
	// DefaultMembershipCap is the iteration ceiling when convergence is
	// defined by a stable alignment-membership vector.
	DefaultMembershipCap = 5

	// DefaultDriftCap is the iteration ceiling when convergence is defined
	// by proper-motion drift falling below the error-derived threshold.
	DefaultDriftCap = 20

	// DefaultClassifierCap bounds the recursive mixture classifier's inner
	// fixed-point loop.
	DefaultClassifierCap = 1000

	// DefaultEMMaxIter bounds a single Gaussian-mixture EM fit.
	DefaultEMMaxIter = 200
)

// Statistical defaults for the quality gate and the classifiers.
const (
	// DefaultAlpha is the Shapiro-Wilk significance level used to reject a
	// frame whose transformation residuals are not Gaussian.
	DefaultAlpha = 1e-64

	// DefaultMemberAlpha is the stricter normality significance once
	// alignment is restricted to likely members.
	DefaultMemberAlpha = 1e-6

	// DefaultCenterTolerance is how far (in pixels) the residual centroid
	// may sit from the origin on either axis before the frame is rejected
	// for an unresolved systematic offset.
	DefaultCenterTolerance = 1e-2

	// DefaultMinStarsAlignment is the minimum number of matched stars for a
	// frame transformation to be trusted.
	DefaultMinStarsAlignment = 100

	// DefaultGateClipSigma scales the log-probability clipping window used
	// when trimming transformation residuals.
	DefaultGateClipSigma = 3.0

	// DefaultClipProb scales the log-probability clipping window of the
	// membership classifier.
	DefaultClipProb = 6.0

	// DefaultDriftErrorFraction scales the mean measurement error into the
	// drift convergence threshold.
	DefaultDriftErrorFraction = 0.1

	// DefaultAnchorIterations is how many classifier rounds keep the fixed
	// anchor before re-centering on the candidate median.
	DefaultAnchorIterations = 4

	// DefaultEMTolerance stops an EM fit once the mean log-likelihood gain
	// falls below it.
	DefaultEMTolerance = 1e-6

	// CovarianceFloor regularizes mixture covariances against collapse onto
	// a single point.
	CovarianceFloor = 1e-6
)

// Timeout constants define the durations used around the external transformer.
const (
	// DefaultTransformTimeout bounds a single external frame-transform call.
	DefaultTransformTimeout = 10 * time.Minute

	// CommandTimeout is the default timeout for CLI commands.
	CommandTimeout = 2 * time.Hour
)

// Limit constants define concurrency and buffer capacities.
const (
	// MaxConcurrentFrames is the default bound on the per-frame worker pool.
	MaxConcurrentFrames = 8

	// ChannelBufferSize is the default buffer size for result channels.
	ChannelBufferSize = 64

	// WriteBufferSize is the default buffer size for write operations.
	WriteBufferSize = 4096
)

// File permission constants define standard Unix file permissions.
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x).
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--).
	FilePermissions = 0644
)

// Unit conversion constants used when turning positional offsets into
// proper motions.
const (
	// DaysPerJulianYear converts day baselines into Julian years.
	DaysPerJulianYear = 365.25

	// MasPerArcsec converts arcseconds to milliarcseconds.
	MasPerArcsec = 1e3

	// QualityErrorFactor maps a solver centroid-quality value to the
	// 1-sigma positional error in pixels.
	QualityErrorFactor = 0.85
)

// Path constants.
const (
	// DefaultConfigName is the config file cobra/viper searches for.
	DefaultConfigName = ".pmfuse"

	// DefaultWorkDir is where the exec transformer keeps its scratch files.
	DefaultWorkDir = "./pmfuse-work"
)
