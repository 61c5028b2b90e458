// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable [Load] reads.
const EnvVar = "BUREAU_CHUNK_CONFIG"

// Environment identifies the deployment type.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Config is the chunk service configuration.
type Config struct {
	Environment Environment `yaml:"environment"`

	// Root is the base directory; other paths default beneath it.
	Root string `yaml:"root"`

	Service ServiceConfig `yaml:"service"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Log     LogConfig     `yaml:"log"`

	Development *Overrides `yaml:"development,omitempty"`
	Staging     *Overrides `yaml:"staging,omitempty"`
	Production  *Overrides `yaml:"production,omitempty"`
}

// Overrides holds the per-environment replacements. Empty fields leave
// the base value alone.
type Overrides struct {
	Service *ServiceConfig `yaml:"service,omitempty"`
	Fetch   *FetchConfig   `yaml:"fetch,omitempty"`
	Log     *LogConfig     `yaml:"log,omitempty"`
}

// ServiceConfig configures the socket and the files it serves.
type ServiceConfig struct {
	// SocketPath is the Unix socket the service listens on.
	SocketPath string `yaml:"socket_path"`

	// DataDir resolves relative file names in register-file and
	// reserve requests.
	DataDir string `yaml:"data_dir"`

	// ChunkSize splits original (unsorted) files into fixed chunks
	// when a request does not name a size. Example: "8MiB".
	ChunkSize string `yaml:"chunk_size"`
}

// FetchConfig configures the fetch path.
type FetchConfig struct {
	// Compression for chunk frames: "none", "lz4" or "zstd".
	Compression string `yaml:"compression"`

	// LatencyBuckets and LatencyBucketWidth size the sliding window
	// that averages fetch latency per stream.
	LatencyBuckets     int    `yaml:"latency_buckets"`
	LatencyBucketWidth string `yaml:"latency_bucket_width"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is a slog level name: debug, info, warn, error.
	Level string `yaml:"level"`
}

// Default returns the base configuration a file is merged over.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	root := filepath.Join(homeDir, ".cache", "bureau-chunk")
	return &Config{
		Environment: Development,
		Root:        root,
		Service: ServiceConfig{
			SocketPath: "${BUREAU_CHUNK_ROOT}/chunk.sock",
			DataDir:    "${BUREAU_CHUNK_ROOT}/data",
			ChunkSize:  "8MiB",
		},
		Fetch: FetchConfig{
			Compression:        "none",
			LatencyBuckets:     10,
			LatencyBucketWidth: "1s",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads the file named by BUREAU_CHUNK_CONFIG. Fails when the
// variable is unset.
func Load() (*Config, error) {
	path := os.Getenv(EnvVar)
	if path == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of the chunk service config file, or use --config", EnvVar)
	}
	return LoadFile(path)
}

// LoadFile loads configuration from path over [Default], applies the
// section for the configured environment, and expands variables.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse is LoadFile for in-memory YAML.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *Overrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		// Production logs less unless told otherwise.
		if overrides == nil {
			overrides = &Overrides{Log: &LogConfig{Level: "warn"}}
		}
	}
	if overrides == nil {
		return
	}

	if service := overrides.Service; service != nil {
		setIfNonEmpty(&c.Service.SocketPath, service.SocketPath)
		setIfNonEmpty(&c.Service.DataDir, service.DataDir)
		setIfNonEmpty(&c.Service.ChunkSize, service.ChunkSize)
	}
	if fetch := overrides.Fetch; fetch != nil {
		setIfNonEmpty(&c.Fetch.Compression, fetch.Compression)
		setIfNonEmpty(&c.Fetch.LatencyBucketWidth, fetch.LatencyBucketWidth)
		if fetch.LatencyBuckets != 0 {
			c.Fetch.LatencyBuckets = fetch.LatencyBuckets
		}
	}
	if log := overrides.Log; log != nil {
		setIfNonEmpty(&c.Log.Level, log.Level)
	}
}

func setIfNonEmpty(target *string, value string) {
	if value != "" {
		*target = value
	}
}

func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.Root = expandVars(c.Root, vars)
	vars["BUREAU_CHUNK_ROOT"] = c.Root

	c.Service.SocketPath = expandVars(c.Service.SocketPath, vars)
	c.Service.DataDir = expandVars(c.Service.DataDir, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default}, checking vars before
// the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name, defaultValue := parts[1], parts[2]
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// ChunkSizeBytes parses Service.ChunkSize.
func (c *Config) ChunkSizeBytes() (int64, error) {
	return ParseSize(c.Service.ChunkSize)
}

// LatencyWidth parses Fetch.LatencyBucketWidth.
func (c *Config) LatencyWidth() (time.Duration, error) {
	return time.ParseDuration(c.Fetch.LatencyBucketWidth)
}

// ParseSize parses a human-readable byte size ("8MiB", "1 MB",
// "65536"). The result must be positive and fit an int64.
func ParseSize(s string) (int64, error) {
	size, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if size == 0 || size > 1<<62 {
		return 0, fmt.Errorf("invalid size %q: must be between 1 byte and 4EiB", s)
	}
	return int64(size), nil
}

var compressions = []string{"none", "lz4", "zstd"}

// Validate reports every invalid field.
func (c *Config) Validate() error {
	var errs []error

	switch c.Environment {
	case Development, Staging, Production:
	default:
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Service.SocketPath == "" {
		errs = append(errs, errors.New("service.socket_path is required"))
	}
	if c.Service.DataDir == "" {
		errs = append(errs, errors.New("service.data_dir is required"))
	}
	if _, err := c.ChunkSizeBytes(); err != nil {
		errs = append(errs, fmt.Errorf("service.chunk_size: %w", err))
	}

	if !contains(compressions, c.Fetch.Compression) {
		errs = append(errs, fmt.Errorf("fetch.compression must be one of: %v", compressions))
	}
	if c.Fetch.LatencyBuckets < 1 {
		errs = append(errs, errors.New("fetch.latency_buckets must be at least 1"))
	}
	if width, err := c.LatencyWidth(); err != nil {
		errs = append(errs, fmt.Errorf("fetch.latency_bucket_width: %w", err))
	} else if width <= 0 {
		errs = append(errs, errors.New("fetch.latency_bucket_width must be positive"))
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be one of debug, info, warn, error; got %q", c.Log.Level))
	}

	return errors.Join(errs...)
}

// ResolveDataPath joins a relative name onto Service.DataDir. Absolute
// names are returned cleaned.
func (c *Config) ResolveDataPath(name string) string {
	return ResolvePath(c.Service.DataDir, name)
}

// ResolvePath joins a relative name onto dir.
func ResolvePath(dir, name string) string {
	if filepath.IsAbs(name) {
		return filepath.Clean(name)
	}
	return filepath.Join(dir, name)
}

// EnsurePaths creates the data directory and the socket's parent.
func (c *Config) EnsurePaths() error {
	for _, path := range []string{c.Service.DataDir, filepath.Dir(c.Service.SocketPath)} {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}
	return nil
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
