package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the single run configuration, resolved once at startup from the
// optional config file, .env files and CLI flags.
type Config struct {
	Mode       Mode     `yaml:"-"`
	DemoFilter []string `yaml:"-"`

	RootDir       string `yaml:"root"`
	ScratchDir    string `yaml:"scratch"`
	ReservedEntry string `yaml:"reserved_entry"` // shared config file skipped during enumeration
	Stylesheet    string `yaml:"stylesheet"`     // conventional per-demo stylesheet name

	Serve   ServeConfig   `yaml:"serve"`
	Build   BuildConfig   `yaml:"build"`
	Logging LoggingConfig `yaml:"logging"`

	// Env holds extra values exposed to demo code as process.env.<KEY>.
	Env map[string]string `yaml:"env,omitempty"`
}

// ServeConfig configures the development server session.
type ServeConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"` // 0 binds an ephemeral port
	HTTPS      bool   `yaml:"https"`
	Open       bool   `yaml:"open"`
	Browser    string `yaml:"browser,omitempty"` // application used to open tabs; empty = system default
	LiveReload bool   `yaml:"live_reload"`
}

// BuildConfig configures one-shot production bundling.
type BuildConfig struct {
	OutDir string `yaml:"out_dir"`
	Minify bool   `yaml:"minify"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

const (
	DefaultRootDir       = "./demos"
	DefaultScratchDir    = "./.demos"
	DefaultReservedEntry = "config.js"
	DefaultStylesheet    = "styles.css"
	DefaultHost          = "localhost"
	DefaultPort          = 3000
	DefaultOutDir        = "./dist"
)

// Defaults returns a configuration populated with the built-in defaults.
func Defaults() *Config {
	return &Config{
		Mode:          ModeServe,
		RootDir:       DefaultRootDir,
		ScratchDir:    DefaultScratchDir,
		ReservedEntry: DefaultReservedEntry,
		Stylesheet:    DefaultStylesheet,
		Serve: ServeConfig{
			Host:       DefaultHost,
			Port:       DefaultPort,
			HTTPS:      true,
			Open:       true,
			LiveReload: true,
		},
		Build: BuildConfig{
			OutDir: DefaultOutDir,
			Minify: true,
		},
		Logging: LoggingConfig{
			Level:  LogLevelInfo,
			Format: LogFormatText,
		},
	}
}

// Load reads the YAML config file at configPath on top of Defaults.
// A missing file is not an error; the defaults are returned instead.
func Load(configPath string) (*Config, error) {
	cfg := Defaults()
	if configPath == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults fills empty fields left blank by the config file.
func (c *Config) ApplyDefaults() {
	if c.Mode == "" {
		c.Mode = ModeServe
	}
	if c.RootDir == "" {
		c.RootDir = DefaultRootDir
	}
	if c.ScratchDir == "" {
		c.ScratchDir = DefaultScratchDir
	}
	if c.ReservedEntry == "" {
		c.ReservedEntry = DefaultReservedEntry
	}
	if c.Stylesheet == "" {
		c.Stylesheet = DefaultStylesheet
	}
	if c.Serve.Host == "" {
		c.Serve.Host = DefaultHost
	}
	if c.Build.OutDir == "" {
		c.Build.OutDir = DefaultOutDir
	}
	c.Logging.Level = NormalizeLogLevel(string(c.Logging.Level))
	c.Logging.Format = NormalizeLogFormat(string(c.Logging.Format))
}

// Resolve makes every path absolute so later stages never depend on the working directory.
func (c *Config) Resolve() error {
	for _, p := range []*string{&c.RootDir, &c.ScratchDir, &c.Build.OutDir} {
		abs, err := filepath.Abs(*p)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", *p, err)
		}
		*p = abs
	}
	return nil
}
