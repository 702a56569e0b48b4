package commands

import (
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/demostage/internal/browser"
	"git.home.luguber.info/inful/demostage/internal/bundler"
	"git.home.luguber.info/inful/demostage/internal/config"
	"git.home.luguber.info/inful/demostage/internal/metrics"
	"git.home.luguber.info/inful/demostage/internal/orchestrator"
)

// ServeCmd implements the default 'serve' command.
type ServeCmd struct {
	Port         int      `name:"port" help:"Dev server port; 0 picks a free port (default 3000)." default:"-1"`
	NoHTTPS      bool     `name:"no-https" help:"Serve plain HTTP instead of HTTPS."`
	NoOpen       bool     `name:"no-open" help:"Do not open browser tabs."`
	Browser      string   `name:"browser" help:"Browser application used to open tabs (e.g. \"google chrome\")."`
	NoLiveReload bool     `name:"no-live-reload" help:"Disable LiveReload SSE and script injection."`
	Demos        []string `arg:"" optional:"" name:"demo" help:"Demo names to serve (default: all)."`

	// Opener and Bundler replace the system browser and esbuild; set by tests.
	Opener  browser.Opener  `kong:"-"`
	Bundler bundler.Bundler `kong:"-"`
}

func (s *ServeCmd) apply(cfg *config.Config) {
	if s.Port >= 0 {
		cfg.Serve.Port = s.Port
	}
	if s.NoHTTPS {
		cfg.Serve.HTTPS = false
	}
	if s.NoOpen {
		cfg.Serve.Open = false
	}
	if s.Browser != "" {
		cfg.Serve.Browser = s.Browser
	}
	if s.NoLiveReload {
		cfg.Serve.LiveReload = false
	}
}

// Run serves until a termination signal arrives. Workspace cleanup is left
// to the lifecycle manager, which main drives on the way out.
func (s *ServeCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig(config.ModeServe, s.Demos, s.apply)
	if err != nil {
		return err
	}

	reg := prom.NewRegistry()
	lc := lifecycleOf(g)
	o := orchestrator.New(cfg, orchestrator.Deps{
		Bundler:        s.Bundler,
		Opener:         s.Opener,
		Recorder:       metrics.NewPrometheusRecorder(reg),
		MetricsHandler: metrics.HTTPHandler(reg),
		Lifecycle:      lc,
	})

	ctx, stop := lc.Notify(background())
	defer stop()
	return o.Serve(ctx)
}
