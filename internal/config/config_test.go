package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/docwalk"
	"github.com/meigma/docwalk/emit"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "docwalk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, []string{"storage"}, cfg.Storage)
	assert.Equal(t, "output/extracted_data.csv", cfg.Output.Path)
	assert.Equal(t, emit.FormatCSV, cfg.OutputFormat())
	assert.False(t, cfg.Output.Dedup)
	assert.Equal(t, docwalk.DefaultMaxDepth, cfg.Walk.MaxDepth)
	assert.Equal(t, int64(docwalk.DefaultMaxEntrySize), cfg.Walk.MaxEntrySize)
	assert.Equal(t, 1, cfg.Walk.ParallelRoots)
	assert.Empty(t, cfg.Store.Dir)
	assert.Zero(t, cfg.Store.MaxBytes)

	lvl, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, lvl)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
storage:
  - /srv/docs
  - /srv/more
output:
  path: out/records.jsonl
  format: jsonl
  dedup: true
store:
  dir: /var/lib/docwalk/text
  max_bytes: 1073741824
walk:
  max_depth: 4
  max_entry_size: 1048576
  exclude:
    - "**/tmp/**"
  parallel_roots: 3
log:
  level: debug
  format: json
`)

	cfg, err := Load(New(), path)
	require.NoError(t, err)

	assert.Equal(t, []string{"/srv/docs", "/srv/more"}, cfg.Storage)
	assert.Equal(t, emit.FormatJSONL, cfg.OutputFormat())
	assert.True(t, cfg.Output.Dedup)
	assert.Equal(t, "/var/lib/docwalk/text", cfg.Store.Dir)
	assert.Equal(t, int64(1<<30), cfg.Store.MaxBytes)
	assert.Equal(t, 4, cfg.Walk.MaxDepth)
	assert.Equal(t, int64(1<<20), cfg.Walk.MaxEntrySize)
	assert.Equal(t, []string{"**/tmp/**"}, cfg.Walk.Exclude)
	assert.Equal(t, 3, cfg.Walk.ParallelRoots)
	assert.Equal(t, "json", cfg.Log.Format)

	w, err := docwalk.New(cfg.WalkerOptions()...)
	require.NoError(t, err)
	assert.Equal(t, 4, w.MaxDepth())
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("DOCWALK_WALK_MAX_DEPTH", "7")
	t.Setenv("DOCWALK_OUTPUT_FORMAT", "jsonl")
	path := writeConfig(t, "walk:\n  max_depth: 2\n")

	cfg, err := Load(New(), path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Walk.MaxDepth)
	assert.Equal(t, emit.FormatJSONL, cfg.OutputFormat())
}

func TestExplicitMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(New(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() Config {
		return Config{
			Storage: []string{"storage"},
			Output:  OutputConfig{Path: "out.csv", Format: "csv"},
			Walk:    WalkConfig{MaxDepth: 10, ParallelRoots: 1},
			Log:     LogConfig{Level: "info", Format: "text"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"no storage", func(c *Config) { c.Storage = nil }, "storage"},
		{"empty output", func(c *Config) { c.Output.Path = "" }, "output.path"},
		{"bad format", func(c *Config) { c.Output.Format = "xml" }, "output.format"},
		{"negative store size", func(c *Config) { c.Store.MaxBytes = -1 }, "store.max_bytes"},
		{"zero depth", func(c *Config) { c.Walk.MaxDepth = 0 }, "walk.max_depth"},
		{"negative size", func(c *Config) { c.Walk.MaxEntrySize = -1 }, "walk.max_entry_size"},
		{"zero parallel", func(c *Config) { c.Walk.ParallelRoots = 0 }, "walk.parallel_roots"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}

	base := valid()
	require.NoError(t, base.Validate())

	all := valid()
	all.Storage = nil
	all.Walk.MaxDepth = 0
	err := all.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage")
	assert.Contains(t, err.Error(), "walk.max_depth", "every invalid setting is reported")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}
