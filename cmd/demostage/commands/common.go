package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/demostage/internal/config"
	"git.home.luguber.info/inful/demostage/internal/lifecycle"
	"git.home.luguber.info/inful/demostage/internal/logfields"
	"git.home.luguber.info/inful/demostage/internal/version"
)

// Global carries process-wide collaborators into every command.
type Global struct {
	Logger    *slog.Logger
	Lifecycle *lifecycle.Manager
	Out       io.Writer
}

// Stdout returns the writer commands print results to.
func (g *Global) Stdout() io.Writer {
	if g == nil || g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

// CLI definition & global flags.
type CLI struct {
	Config    string           `short:"c" help:"Configuration file path (optional)." default:"demostage.yaml" type:"path"`
	Verbose   bool             `short:"v" help:"Enable verbose logging."`
	Root      string           `name:"root" help:"Demo root directory (default ./demos)." type:"path"`
	Scratch   string           `name:"scratch" help:"Scratch workspace directory (default ./.demos)." type:"path"`
	LogFormat string           `name:"log-format" help:"Log format (text or json)."`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit."`

	Serve      ServeCmd   `cmd:"" default:"withargs" help:"Stage demos and serve them with live reload (default)."`
	Build      BuildCmd   `cmd:"" help:"Stage demos and write a production bundle."`
	List       ListCmd    `cmd:"" help:"List the demos that would be staged."`
	VersionCmd VersionCmd `cmd:"" name:"version" help:"Print version information."`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	lc := config.LoggingConfig{
		Level:  config.LogLevelInfo,
		Format: config.NormalizeLogFormat(c.LogFormat),
	}
	if c.Verbose {
		lc.Level = config.LogLevelDebug
	}
	slog.SetDefault(lc.NewLogger(os.Stderr))
	return nil
}

// LoadConfig resolves the run configuration once: defaults, then the
// optional config file, then global flags, then the command's own
// overrides. The result is absolute and validated.
func (c *CLI) LoadConfig(mode config.Mode, demos []string, override func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Mode = mode
	cfg.DemoFilter = demos
	if c.Root != "" {
		cfg.RootDir = c.Root
	}
	if c.Scratch != "" {
		cfg.ScratchDir = c.Scratch
	}
	if c.Verbose {
		cfg.Logging.Level = config.LogLevelDebug
	}
	if c.LogFormat != "" {
		cfg.Logging.Format = config.NormalizeLogFormat(c.LogFormat)
	}
	if override != nil {
		override(cfg)
	}
	if err := cfg.Resolve(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	slog.SetDefault(cfg.Logging.NewLogger(os.Stderr))
	slog.Debug("Resolved configuration",
		logfields.Mode(cfg.Mode.String()),
		slog.String("root", cfg.RootDir),
		slog.String("scratch", cfg.ScratchDir),
		slog.Any("demos", cfg.DemoFilter))
	return cfg, nil
}

// VersionCmd prints build information.
type VersionCmd struct{}

func (v *VersionCmd) Run(g *Global, _ *CLI) error {
	_, err := fmt.Fprintln(g.Stdout(), version.String())
	return err
}

// lifecycleOf returns the global lifecycle manager, creating one if the
// caller did not bind it.
func lifecycleOf(g *Global) *lifecycle.Manager {
	if g.Lifecycle == nil {
		g.Lifecycle = lifecycle.New()
	}
	return g.Lifecycle
}

// background is split out so tests can cancel serve sessions.
var background = context.Background
