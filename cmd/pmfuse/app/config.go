package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/astriolab/pmfuse/pkg/errors"
)

// Config holds the application configuration loaded from various sources
// including config files, environment variables, and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Reduction defaults. Zero values defer to the engine defaults, so a
	// config file only needs the keys it wants to pin.
	Frames        string
	Solver        string
	SolverArgs    []string
	WorkDir       string
	SolverTimeout time.Duration
	Mode          string
	MaxIterations int
	MinStars      int
	Workers       int
	Seed          uint64
	ClipProb      float64
	QualityColumn string

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (merged later via UpdateFromFlags)
// 2. Environment variables
// 3. .env files
// 4. Config file (~/.pmfuse.yaml or ./.pmfuse.yaml)
// 5. Defaults
func LoadConfig() (*Config, error) {
	// Load .env files first (before Viper env binding)
	loadEnvFiles()

	// Set up Viper for environment variables
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	// Search for config in standard locations
	home, err := os.UserHomeDir()
	if err == nil {
		viper.AddConfigPath(home)
	}
	viper.AddConfigPath(".")
	viper.SetConfigType("yaml")
	viper.SetConfigName(".pmfuse")

	// Read config file (ignore error if not found)
	_ = viper.ReadInConfig()

	return buildConfig(), nil
}

// LoadConfigFile loads configuration like LoadConfig but reads the given
// config file instead of searching the standard locations. Unlike the
// search path, an explicitly requested file that cannot be read is an
// error.
func LoadConfigFile(path string) (*Config, error) {
	loadEnvFiles()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return nil, errors.NewConfigError("config", fmt.Sprintf("reading config file %s", path), err)
	}

	return buildConfig(), nil
}

// buildConfig assembles a Config from the current viper state.
func buildConfig() *Config {
	return &Config{
		// Global flags (may be overridden by cobra flags later)
		Verbose: viper.GetBool("verbose"),
		Quiet:   viper.GetBool("quiet"),
		NoColor: viper.GetBool("no-color"),
		Format:  viper.GetString("format"),

		// Config file
		ConfigFile: viper.ConfigFileUsed(),

		// Reduction defaults
		Frames:        viper.GetString("frames"),
		Solver:        viper.GetString("solver"),
		SolverArgs:    viper.GetStringSlice("solver_args"),
		WorkDir:       viper.GetString("workdir"),
		SolverTimeout: viper.GetDuration("solver_timeout"),
		Mode:          viper.GetString("mode"),
		MaxIterations: viper.GetInt("max_iterations"),
		MinStars:      viper.GetInt("min_stars"),
		Workers:       viper.GetInt("workers"),
		Seed:          viper.GetUint64("seed"),
		ClipProb:      viper.GetFloat64("clip_prob"),
		QualityColumn: viper.GetString("quality_column"),

		// Logging configuration. LogLevel stays empty when unset so the
		// -v and -q shortcuts can take effect in determineLogLevel.
		LogLevel:  os.Getenv("LOG_LEVEL"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "auto"),
		LogOutput: getEnvOrDefault("LOG_OUTPUT", "stderr"),
	}
}

// UpdateFromFlags updates config values from parsed command flags.
// This should be called after cobra parses flags to ensure flag
// values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// loadEnvFiles loads environment variables from .env files.
func loadEnvFiles() {
	// Try to load .env files in order of precedence
	// .env.local overrides .env
	envFiles := []string{
		".env",
		".env.local",
	}

	for _, envFile := range envFiles {
		_ = godotenv.Load(envFile)
	}
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
