package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestLoadConfig verifies basic config loading.
func TestLoadConfig(t *testing.T) {
	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if config == nil {
		t.Fatal("LoadConfig() returned nil config")
	}

	// LogLevel may be empty (triggers precedence logic in logger.go),
	// but the format and output always have defaults.
	if config.LogFormat == "" {
		t.Error("LogFormat not set to default")
	}
	if config.LogOutput == "" {
		t.Error("LogOutput not set to default")
	}
}

// TestConfig_EnvironmentVariables verifies environment variable loading.
func TestConfig_EnvironmentVariables(t *testing.T) {
	// Save original env
	oldVerbose := os.Getenv("VERBOSE")
	oldFormat := os.Getenv("FORMAT")
	defer func() {
		os.Setenv("VERBOSE", oldVerbose)
		os.Setenv("FORMAT", oldFormat)
	}()

	os.Setenv("VERBOSE", "true")
	os.Setenv("FORMAT", "json")

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if !config.Verbose {
		t.Error("VERBOSE environment variable not loaded")
	}
	if config.Format != "json" {
		t.Errorf("Format = %s, want json", config.Format)
	}
}

// TestConfig_SolverSettings verifies the reduction settings parse from env.
func TestConfig_SolverSettings(t *testing.T) {
	vars := map[string]string{
		"SOLVER":         "sixdfit",
		"SOLVER_TIMEOUT": "90s",
		"MODE":           "drift",
		"MAX_ITERATIONS": "12",
		"MIN_STARS":      "25",
		"WORKERS":        "4",
		"SEED":           "42",
		"CLIP_PROB":      "3.5",
		"QUALITY_COLUMN": "use_src",
	}

	// Save and restore env
	old := make(map[string]string, len(vars))
	for key := range vars {
		old[key] = os.Getenv(key)
	}
	defer func() {
		for key, value := range old {
			os.Setenv(key, value)
		}
	}()

	for key, value := range vars {
		os.Setenv(key, value)
	}

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if config.Solver != "sixdfit" {
		t.Errorf("Solver = %q, want sixdfit", config.Solver)
	}
	if config.SolverTimeout != 90*time.Second {
		t.Errorf("SolverTimeout = %v, want 90s", config.SolverTimeout)
	}
	if config.Mode != "drift" {
		t.Errorf("Mode = %q, want drift", config.Mode)
	}
	if config.MaxIterations != 12 {
		t.Errorf("MaxIterations = %d, want 12", config.MaxIterations)
	}
	if config.MinStars != 25 {
		t.Errorf("MinStars = %d, want 25", config.MinStars)
	}
	if config.Workers != 4 {
		t.Errorf("Workers = %d, want 4", config.Workers)
	}
	if config.Seed != 42 {
		t.Errorf("Seed = %d, want 42", config.Seed)
	}
	if config.ClipProb != 3.5 {
		t.Errorf("ClipProb = %v, want 3.5", config.ClipProb)
	}
	if config.QualityColumn != "use_src" {
		t.Errorf("QualityColumn = %q, want use_src", config.QualityColumn)
	}
}

// TestConfig_BooleanFlags verifies boolean flag parsing.
func TestConfig_BooleanFlags(t *testing.T) {
	tests := []struct {
		name     string
		envVar   string
		envValue string
		check    func(*Config) bool
		want     bool
	}{
		{
			name:     "NoColor",
			envVar:   "NO_COLOR",
			envValue: "1",
			check:    func(c *Config) bool { return c.NoColor },
			want:     true,
		},
		{
			name:     "Quiet",
			envVar:   "QUIET",
			envValue: "true",
			check:    func(c *Config) bool { return c.Quiet },
			want:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			old := os.Getenv(tt.envVar)
			defer os.Setenv(tt.envVar, old)

			os.Setenv(tt.envVar, tt.envValue)

			config, err := LoadConfig()
			if err != nil {
				t.Fatalf("LoadConfig() failed: %v", err)
			}

			got := tt.check(config)
			if got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

// TestConfig_LoggingOptions verifies logging configuration.
func TestConfig_LoggingOptions(t *testing.T) {
	// Save original env
	oldLevel := os.Getenv("LOG_LEVEL")
	oldFormat := os.Getenv("LOG_FORMAT")
	oldOutput := os.Getenv("LOG_OUTPUT")
	defer func() {
		os.Setenv("LOG_LEVEL", oldLevel)
		os.Setenv("LOG_FORMAT", oldFormat)
		os.Setenv("LOG_OUTPUT", oldOutput)
	}()

	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("LOG_FORMAT", "json")
	os.Setenv("LOG_OUTPUT", "stdout")

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if config.LogLevel != "debug" {
		t.Errorf("LogLevel = %s, want debug", config.LogLevel)
	}
	if config.LogFormat != "json" {
		t.Errorf("LogFormat = %s, want json", config.LogFormat)
	}
	if config.LogOutput != "stdout" {
		t.Errorf("LogOutput = %s, want stdout", config.LogOutput)
	}
}

// TestConfig_UpdateFromFlags verifies the flag merge rules.
func TestConfig_UpdateFromFlags(t *testing.T) {
	config := &Config{
		Format:   "yaml",
		LogLevel: "warn",
	}

	// Empty strings keep the loaded values
	config.UpdateFromFlags(true, false, true, "", "")
	if !config.Verbose || config.Quiet || !config.NoColor {
		t.Errorf("boolean flags not applied: %+v", config)
	}
	if config.Format != "yaml" {
		t.Errorf("empty format flag overwrote config: Format = %q", config.Format)
	}
	if config.LogLevel != "warn" {
		t.Errorf("empty log-level flag overwrote config: LogLevel = %q", config.LogLevel)
	}

	// Non-empty strings win
	config.UpdateFromFlags(false, true, false, "csv", "error")
	if config.Format != "csv" {
		t.Errorf("Format = %q, want csv", config.Format)
	}
	if config.LogLevel != "error" {
		t.Errorf("LogLevel = %q, want error", config.LogLevel)
	}
}

// TestLoadConfigFile verifies explicit config file handling.
func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "pmfuse.yaml")
	content := "solver: sixdfit\nworkers: 3\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	config, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile() failed: %v", err)
	}
	if config.Solver != "sixdfit" {
		t.Errorf("Solver = %q, want sixdfit", config.Solver)
	}
	if config.Workers != 3 {
		t.Errorf("Workers = %d, want 3", config.Workers)
	}
	if config.ConfigFile != path {
		t.Errorf("ConfigFile = %q, want %q", config.ConfigFile, path)
	}

	// A missing explicit file is an error, unlike the search path
	if _, err := LoadConfigFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("LoadConfigFile() with missing file did not fail")
	}
}
