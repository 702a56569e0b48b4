// Package orchestrator sequences a run: locate demos, stage them into the
// scratch workspace, inject the scaffold, then either bundle for production
// or serve with live reload while watching the sources.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/demostage/internal/browser"
	"git.home.luguber.info/inful/demostage/internal/bundler"
	"git.home.luguber.info/inful/demostage/internal/config"
	"git.home.luguber.info/inful/demostage/internal/demos"
	derrors "git.home.luguber.info/inful/demostage/internal/errors"
	"git.home.luguber.info/inful/demostage/internal/lifecycle"
	"git.home.luguber.info/inful/demostage/internal/logfields"
	"git.home.luguber.info/inful/demostage/internal/metrics"
	"git.home.luguber.info/inful/demostage/internal/scaffold"
	"git.home.luguber.info/inful/demostage/internal/server/httpserver"
	"git.home.luguber.info/inful/demostage/internal/stage"
	"git.home.luguber.info/inful/demostage/internal/util/sets"
	"git.home.luguber.info/inful/demostage/internal/watch"
	"git.home.luguber.info/inful/demostage/internal/workspace"
)

const shutdownTimeout = 5 * time.Second

// Deps are the collaborators an Orchestrator drives. Nil fields get defaults:
// esbuild, the system browser, no metrics and a fresh lifecycle manager.
type Deps struct {
	Bundler        bundler.Bundler
	Opener         browser.Opener
	Recorder       metrics.Recorder
	Lifecycle      *lifecycle.Manager
	MetricsHandler http.Handler
	Debounce       time.Duration
}

// Orchestrator runs one build or serve session. It is single-use.
type Orchestrator struct {
	cfg       *config.Config
	deps      Deps
	locator   *demos.Locator
	workspace *workspace.Manager

	mu      sync.Mutex
	state   State
	session string
	pattern string
}

// New wires an orchestrator for cfg, which must be resolved and validated.
func New(cfg *config.Config, deps Deps) *Orchestrator {
	if deps.Bundler == nil {
		deps.Bundler = bundler.NewEsbuild()
	}
	if deps.Opener == nil {
		deps.Opener = browser.NewSystem(cfg.Serve.Browser)
	}
	if deps.Recorder == nil {
		deps.Recorder = metrics.NoopRecorder{}
	}
	if deps.Lifecycle == nil {
		deps.Lifecycle = lifecycle.New()
	}
	return &Orchestrator{
		cfg:       cfg,
		deps:      deps,
		locator:   demos.NewLocator(cfg.RootDir, cfg.ReservedEntry),
		workspace: workspace.NewManager(cfg.ScratchDir),
		state:     StateIdle,
		session:   uuid.NewString(),
	}
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Session returns the run's unique id.
func (o *Orchestrator) Session() string { return o.session }

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	prev := o.state
	o.state = s
	o.mu.Unlock()
	if prev != s {
		slog.Debug("State transition",
			logfields.Session(o.session),
			slog.String("from", prev.String()),
			logfields.State(s.String()))
	}
}

// Prepare locates the demos and stages them with their scaffold into a fresh
// scratch workspace. Removal of the workspace is registered with the
// lifecycle manager once the demo set is known, so a lookup failure leaves
// the filesystem untouched.
func (o *Orchestrator) Prepare(_ context.Context) ([]demos.Demo, error) {
	o.setState(StateStaging)

	var list []demos.Demo
	err := metrics.Observe(o.deps.Recorder, metrics.StageList, func() error {
		var err error
		list, err = o.locator.List(o.cfg.DemoFilter)
		return err
	})
	if err != nil {
		return nil, err
	}
	slog.Info("Active demos", logfields.Session(o.session), slog.Any("demos", demos.Names(list)))

	o.deps.Lifecycle.Register(o.workspace.Cleanup)
	if err := o.workspace.Reset(); err != nil {
		return nil, err
	}

	o.pattern = demos.Pattern(list, o.cfg.ReservedEntry, len(o.cfg.DemoFilter) == 0)
	err = metrics.Observe(o.deps.Recorder, metrics.StageCopy, func() error {
		res, err := stage.Stage(o.cfg.RootDir, o.pattern, o.workspace.Path())
		o.deps.Recorder.IncFilesCopied(res.Files)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = metrics.Observe(o.deps.Recorder, metrics.StageScaffold, func() error {
		return scaffold.InjectAll(o.workspace.Path(), list, o.scaffoldOptions())
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (o *Orchestrator) scaffoldOptions() scaffold.Options {
	return scaffold.Options{Stylesheet: o.cfg.Stylesheet}
}

// job describes bundling every demo's bootstrap script into outDir/<demo>/bundle.js.
func (o *Orchestrator) job(list []demos.Demo, outDir string, production bool) (bundler.Job, error) {
	env, err := config.LoadEnv(filepath.Dir(o.cfg.RootDir), o.cfg.Env)
	if err != nil {
		return bundler.Job{}, derrors.ConfigInvalid("env", err.Error())
	}
	job := bundler.Job{
		OutDir:     outDir,
		Production: production,
		Define:     bundler.EnvDefines(env, production),
	}
	for _, d := range list {
		job.Entries = append(job.Entries, bundler.Entry{
			Name:   d.Name,
			Input:  filepath.Join(o.workspace.Path(), d.Name, scaffold.EntryFile),
			Output: d.Name + "/" + trimExt(scaffold.BundleScript),
		})
	}
	return job, nil
}

func (o *Orchestrator) bundle(ctx context.Context, stageName string, fn func(context.Context) error) error {
	err := metrics.Observe(o.deps.Recorder, stageName, func() error { return fn(ctx) })
	if err != nil {
		o.deps.Recorder.IncBundleOutcome(metrics.BundleFailed)
		if _, ok := derrors.As(err); !ok {
			err = derrors.BundleFailed(err)
		}
		return err
	}
	o.deps.Recorder.IncBundleOutcome(metrics.BundleOK)
	return nil
}

// Build stages the demos and writes production bundles plus their HTML and
// stylesheet to the output directory. The scratch workspace is removed on
// every exit path, including bundler failure.
func (o *Orchestrator) Build(ctx context.Context) (err error) {
	defer func() {
		o.setState(StateCleaningUp)
		cerr := metrics.Observe(o.deps.Recorder, metrics.StageCleanup, o.deps.Lifecycle.Cleanup)
		if err == nil && cerr != nil {
			err = derrors.WorkspaceError("cleanup", cerr)
		}
		if err != nil {
			o.setState(StateFailed)
			return
		}
		o.setState(StateDone)
	}()

	list, err := o.Prepare(ctx)
	if err != nil {
		return err
	}

	o.setState(StateBundling)
	job, err := o.job(list, o.cfg.Build.OutDir, true)
	if err != nil {
		return err
	}
	for _, d := range list {
		if err := os.RemoveAll(filepath.Join(o.cfg.Build.OutDir, d.Name)); err != nil {
			return derrors.WorkspaceError("clean output", err)
		}
	}
	defer func() { _ = o.deps.Bundler.Close() }()
	if err := o.bundle(ctx, metrics.StageBundle, func(ctx context.Context) error {
		return o.deps.Bundler.Bundle(ctx, job)
	}); err != nil {
		return err
	}

	for _, d := range list {
		staged := filepath.Join(o.workspace.Path(), d.Name)
		out := filepath.Join(o.cfg.Build.OutDir, d.Name)
		if err := bundler.Publish(staged, out, scaffold.ShellFile, o.cfg.Stylesheet, o.cfg.Build.Minify); err != nil {
			return err
		}
	}

	slog.Info("Build complete",
		logfields.Dest(o.cfg.Build.OutDir),
		slog.Any("demos", demos.Names(list)))
	return nil
}

// Serve stages the demos, bundles them in development mode, starts the dev
// server, opens the browser, and watches the sources until ctx is cancelled.
// Workspace removal is left to the lifecycle manager's exit path.
func (o *Orchestrator) Serve(ctx context.Context) error {
	slog.Info("Starting serve session", logfields.Session(o.session))

	list, err := o.Prepare(ctx)
	if err != nil {
		return err
	}

	o.setState(StateBundling)
	job, err := o.job(list, o.workspace.Path(), false)
	if err != nil {
		return err
	}
	defer func() { _ = o.deps.Bundler.Close() }()
	if err := o.bundle(ctx, metrics.StageBundle, func(ctx context.Context) error {
		return o.deps.Bundler.Bundle(ctx, job)
	}); err != nil {
		return err
	}

	var hub *httpserver.LiveReloadHub
	if o.cfg.Serve.LiveReload {
		hub = httpserver.NewLiveReloadHub(o.deps.Recorder)
	}
	srvOpts := httpserver.Options{
		Host:           o.cfg.Serve.Host,
		Port:           o.cfg.Serve.Port,
		Root:           o.workspace.Path(),
		HTTPS:          o.cfg.Serve.HTTPS,
		LiveReloadHub:  hub,
		MetricsHandler: o.deps.MetricsHandler,
	}
	if len(list) == 1 {
		srvOpts.DefaultDemo = list[0].Name
	}
	srv := httpserver.New(srvOpts)
	if err := srv.Start(ctx); err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Stop(sctx); err != nil {
			slog.Warn("Dev server shutdown error", logfields.Error(err))
		}
	}()
	o.setState(StateServing)

	if o.cfg.Serve.Open {
		for _, u := range browser.URLs(srv.URL("/"), list) {
			if err := o.deps.Opener.Open(u); err != nil {
				slog.Warn("Could not open browser", logfields.URL(u), logfields.Error(err))
			}
		}
	}

	w, err := watch.New(watch.Options{
		Root:      o.cfg.RootDir,
		Syncer:    o.syncer(list),
		Debounce:  o.deps.Debounce,
		OnChange:  o.onChange(hub),
		Recorder:  o.deps.Recorder,
		Lifecycle: o.deps.Lifecycle,
	})
	if err != nil {
		return derrors.WorkspaceError("watch", err)
	}
	o.setState(StateWatching)

	done := make(chan error, 1)
	go func() {
		var runErr error
		defer func() { done <- runErr }()
		defer o.deps.Lifecycle.Recover()
		runErr = w.Run(ctx)
	}()

	<-ctx.Done()
	o.setState(StateTerminating)
	_ = w.Close()
	if err := <-done; err != nil {
		slog.Warn("Watcher stopped with error", logfields.Error(err))
	}
	slog.Info("Serve session ended", logfields.Session(o.session))
	return nil
}

// onChange rebuilds and tells browsers to reload. The workspace itself is
// only written by the watcher goroutine, through syncer.
func (o *Orchestrator) onChange(hub *httpserver.LiveReloadHub) func(context.Context) {
	var n int
	return func(ctx context.Context) {
		if err := o.bundle(ctx, metrics.StageRebuild, o.deps.Bundler.Rebuild); err != nil {
			// The page keeps the previous bundle; the next save retries.
			slog.Warn("Rebuild failed", logfields.Error(err))
			return
		}
		n++
		if hub != nil {
			hub.Broadcast(fmt.Sprintf("%s-%d", o.session, n))
		}
	}
}

func (o *Orchestrator) syncer(list []demos.Demo) *scaffoldingSyncer {
	return &scaffoldingSyncer{
		syncer:  stage.NewSyncer(o.cfg.RootDir, o.pattern, o.workspace.Path()),
		root:    o.cfg.RootDir,
		scratch: o.workspace.Path(),
		demos:   sets.New(demos.Names(list)...),
		opts:    o.scaffoldOptions(),
	}
}

// scaffoldingSyncer mirrors a source change and, when the change touches a
// file the scaffold renders from or overwrites, re-injects that one demo.
// Other demos' staged directories are never written.
type scaffoldingSyncer struct {
	syncer  *stage.Syncer
	root    string
	scratch string
	demos   sets.Set[string]
	opts    scaffold.Options
}

func (s *scaffoldingSyncer) Apply(c stage.Change) (stage.Action, int, error) {
	action, n, err := s.syncer.Apply(c)
	if err != nil || action == stage.ActionSkipped {
		return action, n, err
	}
	demo, ok := s.affectedScaffold(c.Path)
	if !ok {
		return action, n, nil
	}
	dir := filepath.Join(s.scratch, demo)
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		return action, n, nil
	}
	if err := scaffold.Inject(dir, s.opts); err != nil {
		slog.Warn("Scaffold refresh failed", logfields.Demo(demo), logfields.Error(err))
	}
	return action, n, nil
}

// affectedScaffold names the demo whose scaffold depends on path: the demo
// directory itself, its stylesheet, or a source file shadowing the shell or
// the entry script.
func (s *scaffoldingSyncer) affectedScaffold(path string) (string, bool) {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return "", false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if !s.demos.Has(parts[0]) {
		return "", false
	}
	switch {
	case len(parts) == 1:
		return parts[0], true
	case len(parts) == 2:
		switch parts[1] {
		case s.opts.Stylesheet, scaffold.ShellFile, scaffold.EntryFile:
			return parts[0], true
		}
	}
	return "", false
}

func trimExt(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}
