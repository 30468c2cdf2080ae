// Package config loads docwalk settings from defaults, an optional YAML
// file, DOCWALK_* environment variables and bound command-line flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/meigma/docwalk"
	"github.com/meigma/docwalk/emit"
)

// EnvPrefix is the prefix for environment overrides, e.g.
// DOCWALK_WALK_MAX_DEPTH overrides walk.max_depth.
const EnvPrefix = "DOCWALK"

// Config is the complete CLI configuration.
type Config struct {
	Storage []string     `mapstructure:"storage"`
	Output  OutputConfig `mapstructure:"output"`
	Store   StoreConfig  `mapstructure:"store"`
	Walk    WalkConfig   `mapstructure:"walk"`
	Log     LogConfig    `mapstructure:"log"`
}

// OutputConfig controls record export.
type OutputConfig struct {
	Path   string `mapstructure:"path"`
	Format string `mapstructure:"format"`
	Dedup  bool   `mapstructure:"dedup"`
}

// StoreConfig controls the optional content-addressed text store.
type StoreConfig struct {
	Dir      string `mapstructure:"dir"`
	MaxBytes int64  `mapstructure:"max_bytes"`
}

// WalkConfig controls traversal.
type WalkConfig struct {
	MaxDepth      int      `mapstructure:"max_depth"`
	MaxEntrySize  int64    `mapstructure:"max_entry_size"`
	TempDir       string   `mapstructure:"temp_dir"`
	Exclude       []string `mapstructure:"exclude"`
	ParallelRoots int      `mapstructure:"parallel_roots"`
}

// LogConfig controls CLI logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// New returns a viper instance with defaults and environment overrides
// configured. Callers may bind flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage", []string{"storage"})

	v.SetDefault("output.path", "output/extracted_data.csv")
	v.SetDefault("output.format", string(emit.FormatCSV))
	v.SetDefault("output.dedup", false)

	v.SetDefault("store.dir", "")
	v.SetDefault("store.max_bytes", 0)

	v.SetDefault("walk.max_depth", docwalk.DefaultMaxDepth)
	v.SetDefault("walk.max_entry_size", docwalk.DefaultMaxEntrySize)
	v.SetDefault("walk.temp_dir", "")
	v.SetDefault("walk.exclude", []string{})
	v.SetDefault("walk.parallel_roots", 1)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads the config file at path, if any, into v and returns the
// validated configuration. An empty path searches the working directory for
// docwalk.yaml (or any other extension viper reads); a missing file is not
// an error in that case.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("docwalk")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Storage) == 0 {
		errs = append(errs, errors.New("storage: at least one root is required"))
	}
	if c.Output.Path == "" {
		errs = append(errs, errors.New("output.path: must not be empty"))
	}
	if _, err := emit.ParseFormat(c.Output.Format); err != nil {
		errs = append(errs, fmt.Errorf("output.format: %w", err))
	}
	if c.Store.MaxBytes < 0 {
		errs = append(errs, fmt.Errorf("store.max_bytes: must be >= 0, got %d", c.Store.MaxBytes))
	}
	if c.Walk.MaxDepth < 1 {
		errs = append(errs, fmt.Errorf("walk.max_depth: must be >= 1, got %d", c.Walk.MaxDepth))
	}
	if c.Walk.MaxEntrySize < 0 {
		errs = append(errs, fmt.Errorf("walk.max_entry_size: must be >= 0, got %d", c.Walk.MaxEntrySize))
	}
	if c.Walk.ParallelRoots < 1 {
		errs = append(errs, fmt.Errorf("walk.parallel_roots: must be >= 1, got %d", c.Walk.ParallelRoots))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Level parses the configured log level.
func (c *Config) Level() (slog.Level, error) {
	var lvl slog.Level
	err := lvl.UnmarshalText([]byte(c.Log.Level))
	return lvl, err
}

// OutputFormat returns the parsed output format.
func (c *Config) OutputFormat() emit.Format {
	f, err := emit.ParseFormat(c.Output.Format)
	if err != nil {
		return emit.FormatCSV
	}
	return f
}

// WalkerOptions maps the walk settings to library options.
func (c *Config) WalkerOptions() []docwalk.Option {
	opts := []docwalk.Option{
		docwalk.WithMaxDepth(c.Walk.MaxDepth),
		docwalk.WithMaxEntrySize(uint64(max(c.Walk.MaxEntrySize, 0))), //nolint:gosec // clamped above
	}
	if c.Walk.TempDir != "" {
		opts = append(opts, docwalk.WithTempDir(c.Walk.TempDir))
	}
	if len(c.Walk.Exclude) > 0 {
		opts = append(opts, docwalk.WithExclude(c.Walk.Exclude...))
	}
	return opts
}
