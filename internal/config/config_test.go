package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trapbench/trapbench/internal/backend"
	"github.com/trapbench/trapbench/internal/benchmark"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 0.0, cfg.A)
	assert.Equal(t, 1.0, cfg.B)
	assert.Equal(t, int64(1_000_000), cfg.N)
	assert.Equal(t, 0, cfg.Func)
	assert.Equal(t, 3, cfg.Repeats)
	assert.Equal(t, "bin", cfg.BinDir)
	assert.Equal(t, "bench/results.csv", cfg.Output)
	assert.Equal(t, "mpirun", cfg.Launcher)
	assert.Equal(t, "text", cfg.Format)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Zero(t, cfg.Timeout)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, benchmark.DefaultConfig(), cfg.Benchmark())
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000), cfg.N)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trapbench.yaml")
	content := `
a: 0.5
n: 2000
func: 2
repeats: 5
bin_dir: /opt/trap/bin
timeout: 90s
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(New(), path)
	require.NoError(t, err)

	assert.Equal(t, 0.5, cfg.A)
	assert.Equal(t, 1.0, cfg.B, "unset keys keep their defaults")
	assert.Equal(t, int64(2000), cfg.N)
	assert.Equal(t, 5, cfg.Repeats)
	assert.Equal(t, "/opt/trap/bin", cfg.BinDir)
	assert.Equal(t, 90*time.Second, cfg.Timeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, backend.FuncExp, cfg.Benchmark().Func)
}

func TestLoad_TOMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trapbench.toml")
	require.NoError(t, os.WriteFile(path, []byte("repeats = 7\nlauncher = \"srun\"\n"), 0644))

	cfg, err := Load(New(), path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Repeats)
	assert.Equal(t, "srun", cfg.Launcher)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("TRAPBENCH_REPEATS", "9")
	t.Setenv("TRAPBENCH_BIN_DIR", "/env/bin")
	t.Setenv("TRAPBENCH_LOG_LEVEL", "warn")

	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Repeats)
	assert.Equal(t, "/env/bin", cfg.BinDir)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_FlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("TRAPBENCH_REPEATS", "9")

	fs := pflag.NewFlagSet("bench", pflag.ContinueOnError)
	fs.Int("repeats", 3, "")
	fs.String("bin-dir", "bin", "")
	fs.String("log-level", "info", "")
	fs.Bool("unrelated", false, "")
	require.NoError(t, fs.Parse([]string{"--repeats", "4", "--log-level", "error"}))

	v := New()
	require.NoError(t, BindFlags(v, fs))

	cfg, err := Load(v, "")
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Repeats)
	assert.Equal(t, "bin", cfg.BinDir)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestFlagKey(t *testing.T) {
	assert.Equal(t, "bin_dir", FlagKey("bin-dir"))
	assert.Equal(t, "metrics_file", FlagKey("metrics-file"))
	assert.Equal(t, "log.level", FlagKey("log-level"))
	assert.Equal(t, "log.file", FlagKey("log-file"))
	assert.Equal(t, "n", FlagKey("n"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		msg    string
	}{
		{"zero n", func(c *Config) { c.N = 0 }, "n must be greater than 0"},
		{"zero repeats", func(c *Config) { c.Repeats = 0 }, "repeats must be greater than 0"},
		{"bad format", func(c *Config) { c.Format = "xml" }, "format must be one of"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log.level must be one of"},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }, "timeout must be at least 0"},
		{"empty bin dir", func(c *Config) { c.BinDir = "" }, "bin_dir is required"},
		{"record without db", func(c *Config) { c.Record = true; c.DB = "" }, "db is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trapbench.yaml")
	require.NoError(t, os.WriteFile(path, []byte("n: -5\n"), 0644))

	_, err := Load(New(), path)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
