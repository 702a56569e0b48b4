package commands

import (
	"fmt"

	"git.home.luguber.info/inful/demostage/internal/bundler"
	"git.home.luguber.info/inful/demostage/internal/config"
	"git.home.luguber.info/inful/demostage/internal/orchestrator"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Out      string   `short:"o" name:"out" help:"Output directory for bundles (default ./dist)." type:"path"`
	NoMinify bool     `name:"no-minify" help:"Skip HTML/CSS minification of published assets."`
	Demos    []string `arg:"" optional:"" name:"demo" help:"Demo names to build (default: all)."`

	// Bundler replaces esbuild; set by tests.
	Bundler bundler.Bundler `kong:"-"`
}

func (b *BuildCmd) apply(cfg *config.Config) {
	if b.Out != "" {
		cfg.Build.OutDir = b.Out
	}
	if b.NoMinify {
		cfg.Build.Minify = false
	}
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig(config.ModeBuild, b.Demos, b.apply)
	if err != nil {
		return err
	}

	lc := lifecycleOf(g)
	o := orchestrator.New(cfg, orchestrator.Deps{
		Bundler:   b.Bundler,
		Lifecycle: lc,
	})

	// A signal cancels the bundler; Build still removes the workspace.
	ctx, stop := lc.Notify(background())
	defer stop()
	if err := o.Build(ctx); err != nil {
		return err
	}
	_, err = fmt.Fprintf(g.Stdout(), "Build written to %s\n", cfg.Build.OutDir)
	return err
}
