// Package config handles loading and accessing commit gate configuration.
// Configuration is resolved from (highest to lowest priority):
// 1. Command-line flags, applied by the caller
// 2. Environment variables (COMMIT_GATE_*)
// 3. Project config (.claude/commit-gate.yaml)
// 4. Defaults
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

// ConfigFileName is the name of the config file under .claude/.
const ConfigFileName = "commit-gate.yaml"

// Git backends.
const (
	BackendCLI   = "cli"
	BackendGoGit = "go-git"
)

// Sentinel validation errors.
var (
	ErrInvalidBackend  = errors.New("invalid git backend")
	ErrEmptyCommand    = errors.New("command must not be empty")
	ErrEmptyPatterns   = errors.New("lint patterns must not be empty")
	ErrNegativeTimeout = errors.New("timeout must not be negative")
	ErrInvalidLogLevel = errors.New("invalid log level")
)

// Command is an argv vector. In YAML it may be written as a list or as a
// single whitespace-separated string; in the environment only the string
// form is accepted.
type Command []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *Command) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*c = strings.Fields(node.Value)
		return nil
	}
	var argv []string
	if err := node.Decode(&argv); err != nil {
		return err
	}
	*c = argv
	return nil
}

// EnvDecode implements envconfig.Decoder.
func (c *Command) EnvDecode(val string) error {
	*c = strings.Fields(val)
	return nil
}

func (c Command) String() string {
	return strings.Join(c, " ")
}

// Config represents the commit gate configuration.
type Config struct {
	// Enabled turns the gate on. Disabled is the environment-only kill
	// switch and wins over everything else.
	Enabled  bool `yaml:"enabled" json:"enabled" env:"COMMIT_GATE_ENABLED,overwrite"`
	Disabled bool `yaml:"-" json:"-" env:"COMMIT_GATE_DISABLED,overwrite"`

	// ShellTools are the tool names whose command input is inspected.
	ShellTools []string `yaml:"shell_tools" json:"shell_tools" env:"COMMIT_GATE_SHELL_TOOLS,overwrite"`

	// GitBackend selects how the staging area is queried: "cli" runs the
	// git binary, "go-git" works in-process.
	GitBackend string `yaml:"git_backend" json:"git_backend" env:"COMMIT_GATE_GIT_BACKEND,overwrite"`

	Lint  LintConfig  `yaml:"lint" json:"lint"`
	Tests TestsConfig `yaml:"tests" json:"tests"`

	// Timeout bounds each subprocess. Zero waits forever.
	Timeout time.Duration `yaml:"timeout" json:"timeout" env:"COMMIT_GATE_TIMEOUT,overwrite"`

	// Journal is the sqlite decision journal, relative to the work
	// directory. Empty disables it.
	Journal string `yaml:"journal" json:"journal" env:"COMMIT_GATE_JOURNAL,overwrite"`

	// MetricsTextfile receives Prometheus text-format metrics after each
	// evaluation. Empty disables it.
	MetricsTextfile string `yaml:"metrics_textfile" json:"metrics_textfile" env:"COMMIT_GATE_METRICS_TEXTFILE,overwrite"`

	LogLevel string `yaml:"log_level" json:"log_level" env:"COMMIT_GATE_LOG_LEVEL,overwrite"`
}

// LintConfig configures the auto-fixing lint check.
type LintConfig struct {
	// Command runs with the scoped paths appended.
	Command Command `yaml:"command" json:"command" env:"COMMIT_GATE_LINT_COMMAND,overwrite"`
	// Patterns are git pathspecs selecting the staged files to lint.
	Patterns []string `yaml:"patterns" json:"patterns" env:"COMMIT_GATE_LINT_PATTERNS,overwrite"`
}

// TestsConfig configures the test check.
type TestsConfig struct {
	Command Command `yaml:"command" json:"command" env:"COMMIT_GATE_TESTS_COMMAND,overwrite"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Enabled:    true,
		ShellTools: []string{"Bash", "bash", "Shell", "shell"},
		GitBackend: BackendCLI,
		Lint: LintConfig{
			Command:  Command{"uv", "run", "ruff", "check", "--fix"},
			Patterns: []string{"*.py"},
		},
		Tests: TestsConfig{
			Command: Command{"uv", "run", "pytest", "--tb=short", "-q", "--no-header", "-rF"},
		},
		Journal:  filepath.Join(".claude", "commit-gate.db"),
		LogLevel: "info",
	}
}

// Path returns the project config path for workDir.
func Path(workDir string) string {
	return filepath.Join(workDir, ".claude", ConfigFileName)
}

// Load reads the project config from workDir and applies environment
// overrides. A missing file yields the defaults.
func Load(ctx context.Context, workDir string) (*Config, error) {
	return LoadFile(ctx, Path(workDir), envconfig.OsLookuper())
}

// LoadFile reads the config at path and applies overrides from lookuper.
func LoadFile(ctx context.Context, path string, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the gate cannot run with.
func (c *Config) Validate() error {
	var errs []error
	switch c.GitBackend {
	case BackendCLI, BackendGoGit:
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidBackend, c.GitBackend))
	}
	if len(c.Lint.Command) == 0 {
		errs = append(errs, fmt.Errorf("lint: %w", ErrEmptyCommand))
	}
	if len(c.Lint.Patterns) == 0 {
		errs = append(errs, ErrEmptyPatterns)
	}
	if len(c.Tests.Command) == 0 {
		errs = append(errs, fmt.Errorf("tests: %w", ErrEmptyCommand))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("%w: %s", ErrNegativeTimeout, c.Timeout))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Active reports whether the gate should evaluate commands.
func (c *Config) Active() bool {
	return c.Enabled && !c.Disabled
}

// IsShellTool reports whether toolName is one of the configured shell tools.
func (c *Config) IsShellTool(toolName string) bool {
	for _, t := range c.ShellTools {
		if t == toolName {
			return true
		}
	}
	return false
}

// Level parses LogLevel. An empty level is info.
func (c *Config) Level() (slog.Level, error) {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.LogLevel)
}

// Save writes the config to the project config path under workDir.
func (c *Config) Save(workDir string) error {
	configDir := filepath.Join(workDir, ".claude")
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(Path(workDir), data, 0600)
}
