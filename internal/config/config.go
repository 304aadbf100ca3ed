// Package config loads harness settings from defaults, an optional config
// file, TRAPBENCH_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/trapbench/trapbench/internal/backend"
	"github.com/trapbench/trapbench/internal/benchmark"
)

// EnvPrefix is the prefix of environment overrides, e.g. TRAPBENCH_REPEATS.
const EnvPrefix = "TRAPBENCH"

// ConfigName is the base name of the config file searched in the working
// directory: trapbench.yaml, trapbench.toml or trapbench.json.
const ConfigName = "trapbench"

// ErrInvalidConfig is returned when the merged settings fail validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds every setting of the harness.
type Config struct {
	// Problem parameters
	A       float64 `mapstructure:"a"`
	B       float64 `mapstructure:"b"`
	N       int64   `mapstructure:"n" validate:"gt=0"`
	Func    int     `mapstructure:"func" validate:"gte=0"`
	Repeats int     `mapstructure:"repeats" validate:"gt=0"`

	// Backends
	BinDir   string        `mapstructure:"bin_dir" validate:"required"`
	Launcher string        `mapstructure:"launcher" validate:"required"`
	Timeout  time.Duration `mapstructure:"timeout" validate:"gte=0"`

	// Outputs
	Output      string `mapstructure:"output"`
	Format      string `mapstructure:"format" validate:"oneof=text json yaml"`
	Report      string `mapstructure:"report"`
	MetricsFile string `mapstructure:"metrics_file"`
	CrossCheck  bool   `mapstructure:"cross_check"`

	// History
	Record bool   `mapstructure:"record"`
	DB     string `mapstructure:"db" validate:"required_if=Record true"`

	Log     LogConfig `mapstructure:"log"`
	NoColor bool      `mapstructure:"no_color"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	File  string `mapstructure:"file"`
}

// defaults lists every known key. Flags are only bound to these keys.
var defaults = map[string]any{
	"a":            0.0,
	"b":            1.0,
	"n":            int64(1_000_000),
	"func":         0,
	"repeats":      3,
	"bin_dir":      "bin",
	"launcher":     backend.DefaultLauncher,
	"timeout":      time.Duration(0),
	"output":       "bench/results.csv",
	"format":       "text",
	"report":       "",
	"metrics_file": "",
	"cross_check":  false,
	"record":       false,
	"db":           ".trapbench/history.db",
	"log.level":    "info",
	"log.file":     "",
	"no_color":     false,
}

// New returns a viper instance with defaults and environment overrides set.
func New() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// FlagKey maps a flag name to its config key: "bin-dir" becomes "bin_dir"
// and "log-level" becomes "log.level".
func FlagKey(flag string) string {
	if rest, ok := strings.CutPrefix(flag, "log-"); ok {
		return "log." + strings.ReplaceAll(rest, "-", "_")
	}
	return strings.ReplaceAll(flag, "-", "_")
}

// BindFlags binds every flag in fs that names a known key.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var errs []error
	fs.VisitAll(func(f *pflag.Flag) {
		key := FlagKey(f.Name)
		if _, ok := defaults[key]; !ok {
			return
		}
		if err := v.BindPFlag(key, f); err != nil {
			errs = append(errs, fmt.Errorf("failed to bind flag --%s: %w", f.Name, err))
		}
	})
	return errors.Join(errs...)
}

// Load reads the config file and returns the merged, validated settings.
// An empty path searches the working directory for trapbench.{yaml,toml,json}
// and tolerates its absence; an explicit path must exist.
func Load(v *viper.Viper, path string) (Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(ConfigName)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the built-in settings, ignoring files and environment.
func Default() Config {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return cfg
}

var validate = newValidator()

// newValidator reports fields by their config key rather than Go name.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, describe(fe))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func describe(fe validator.FieldError) string {
	field := strings.ToLower(fe.Namespace())
	field = strings.TrimPrefix(field, "config.")
	switch fe.Tag() {
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fmt.Sprint(fe.Value()))
	case "required", "required_if":
		return fmt.Sprintf("%s is required", field)
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

// Benchmark returns the problem parameters as a benchmark configuration.
func (c Config) Benchmark() benchmark.Config {
	return benchmark.Config{
		A:       c.A,
		B:       c.B,
		N:       c.N,
		Func:    backend.Func(c.Func),
		Repeats: c.Repeats,
	}
}
