// Package config decodes wasmut.toml and built-in defaults into the
// typed configuration every other package is handed: section structs for
// engine, filter, report, and operators, plus a logging section built
// the same way a CLI's own configureLogger helper would.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"wasmut.dev/pkg/wasmut/internal/engine"
	"wasmut.dev/pkg/wasmut/internal/operator"
	"wasmut.dev/pkg/wasmut/internal/policy"
	"wasmut.dev/pkg/wasmut/internal/wasi"
	"wasmut.dev/pkg/wasmut/internal/wasmut"
)

// DefaultTimeoutMultiplier is the default per-mutant execution budget as
// a multiple of the baseline run's cycle count, absent a config override.
const DefaultTimeoutMultiplier = 2.0

// MapDir is one WASI directory preopen: a host path mapped to a guest
// path inside the mutant's sandbox.
type MapDir struct {
	Host  string `toml:"host"`
	Guest string `toml:"guest"`
}

// EngineConfig is the `[engine]` table.
type EngineConfig struct {
	TimeoutMultiplier      *float64 `toml:"timeout_multiplier"`
	MapDirs                []MapDir `toml:"-"` // decoded from map_dirs [host, guest] pairs by Parse
	CoverageBasedExecution *bool    `toml:"coverage_based_execution"`
	MetaMutant             *bool    `toml:"meta_mutant"`
	Workers                int      `toml:"workers"`
}

func (e EngineConfig) timeoutMultiplier() float64 {
	if e.TimeoutMultiplier != nil {
		return *e.TimeoutMultiplier
	}
	return DefaultTimeoutMultiplier
}

func (e EngineConfig) coverageBasedExecution() bool {
	if e.CoverageBasedExecution != nil {
		return *e.CoverageBasedExecution
	}
	return true
}

func (e EngineConfig) metaMutant() bool {
	if e.MetaMutant != nil {
		return *e.MetaMutant
	}
	return true
}

// FilterConfig is the `[filter]` table: regex allowlists, nil meaning
// "everything allowed" (internal/policy's own empty-means-all semantics).
type FilterConfig struct {
	AllowedFiles     []string `toml:"allowed_files"`
	AllowedFunctions []string `toml:"allowed_functions"`
}

// ReportConfig is the `[report]` table.
type ReportConfig struct {
	PathRewrite []string `toml:"path_rewrite"` // exactly [pattern, replacement] when set
	Format      string   `toml:"format"`
	OutputDir   string   `toml:"output_dir"`
}

func (r ReportConfig) pathRewrite() (pattern, replacement string, ok bool) {
	if len(r.PathRewrite) == 0 {
		return "", "", false
	}
	return r.PathRewrite[0], r.PathRewrite[1], true
}

// OperatorConfig is the `[operators]` table.
type OperatorConfig struct {
	EnabledOperators []string `toml:"enabled_operators"`
}

// LoggingConfig is the [EXPANDED] `[logging]` table, ported from the
// teacher's flat log.* viper keys into their own nested table since this
// package decodes TOML directly rather than through viper.
type LoggingConfig struct {
	File       string `toml:"file"`
	Level      string `toml:"level"`
	Format     string `toml:"format"` // "text" or "json"
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

// Config is the full `wasmut.toml` schema, every section optional and
// defaulted when absent (mirroring config.rs's Config::parse filling in
// Default::default() per missing section).
type Config struct {
	Engine    EngineConfig   `toml:"engine"`
	Filter    FilterConfig   `toml:"filter"`
	Report    ReportConfig   `toml:"report"`
	Operators OperatorConfig `toml:"operators"`
	Logging   LoggingConfig  `toml:"logging"`
}

// Default returns the configuration that applies when every section is
// absent from the TOML file: zero values everywhere except the [logging]
// defaults set below.
func Default() Config {
	return Config{
		Logging: LoggingConfig{
			File:       "",
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
			Compress:   true,
		},
	}
}

// Parse decodes s as TOML over the defaults, so an omitted section or key
// falls back to Default()'s value rather than TOML's own zero value.
func Parse(s string) (Config, error) {
	cfg := Default()
	if err := toml.Unmarshal([]byte(s), &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: parse config: %v", wasmut.ErrConfigError, err)
	}
	var raw struct {
		Engine struct {
			MapDirs [][]string `toml:"map_dirs"`
		} `toml:"engine"`
	}
	if err := toml.Unmarshal([]byte(s), &raw); err != nil {
		return Config{}, fmt.Errorf("%w: parse config: %v", wasmut.ErrConfigError, err)
	}
	for _, pair := range raw.Engine.MapDirs {
		if len(pair) != 2 {
			return Config{}, fmt.Errorf("%w: engine.map_dirs entries must be [host, guest], got %d elements", wasmut.ErrConfigError, len(pair))
		}
		cfg.Engine.MapDirs = append(cfg.Engine.MapDirs, MapDir{Host: pair[0], Guest: pair[1]})
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseFile reads and parses the config file at path.
func ParseFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: read config file %q: %v", wasmut.ErrIO, path, err)
	}
	return Parse(string(data))
}

// Validate rejects configurations that would otherwise fail confusingly
// deep inside the engine or operator registry.
func (c Config) Validate() error {
	if c.Engine.timeoutMultiplier() <= 0 {
		return fmt.Errorf("%w: engine.timeout_multiplier must be > 0, got %v", wasmut.ErrConfigError, c.Engine.timeoutMultiplier())
	}
	if c.Engine.Workers < 0 {
		return fmt.Errorf("%w: engine.workers must be >= 0, got %d", wasmut.ErrConfigError, c.Engine.Workers)
	}
	switch c.Report.Format {
	case "", "console", "html":
	default:
		return fmt.Errorf("%w: report.format must be console or html, got %q", wasmut.ErrConfigError, c.Report.Format)
	}
	if n := len(c.Report.PathRewrite); n != 0 && n != 2 {
		return fmt.Errorf("%w: report.path_rewrite must have exactly 2 elements [pattern, replacement], got %d", wasmut.ErrConfigError, n)
	}
	return nil
}

// TimeoutMultiplier returns the resolved engine.timeout_multiplier.
func (c Config) TimeoutMultiplier() float64 { return c.Engine.timeoutMultiplier() }

// CoverageBasedExecution returns the resolved engine.coverage_based_execution.
func (c Config) CoverageBasedExecution() bool { return c.Engine.coverageBasedExecution() }

// MetaMutant returns the resolved engine.meta_mutant.
func (c Config) MetaMutant() bool { return c.Engine.metaMutant() }

// Preopens converts engine.map_dirs into the wasi package's preopen list.
func (c Config) Preopens() []wasi.Preopen {
	out := make([]wasi.Preopen, len(c.Engine.MapDirs))
	for i, d := range c.Engine.MapDirs {
		out[i] = wasi.Preopen{GuestPath: d.Guest, HostRoot: d.Host}
	}
	return out
}

// EngineConfig converts the decoded config into engine.Config, resolving
// Workers=0 to mean "let the engine pick" (runtime.NumCPU()), matching
// engine.Run's own documented default.
func (c Config) EngineConfig() engine.Config {
	return engine.Config{
		Workers:                c.Engine.Workers,
		TimeoutMultiplier:      c.Engine.timeoutMultiplier(),
		CoverageBasedExecution: c.Engine.coverageBasedExecution(),
	}
}

// PathRewrite returns the resolved report.path_rewrite pair, if any.
func (c Config) PathRewrite() (pattern, replacement string, ok bool) {
	return c.Report.pathRewrite()
}

// Policy builds the discovery-time filter policy from the [filter] table.
func (c Config) Policy() (*policy.Policy, error) {
	return policy.Build(policy.Filter{
		AllowedFiles:     c.Filter.AllowedFiles,
		AllowedFunctions: c.Filter.AllowedFunctions,
	})
}

// Registry builds the operator registry from the [operators] table.
func (c Config) Registry() (*operator.Registry, error) {
	return operator.NewRegistry(c.Operators.EnabledOperators)
}
