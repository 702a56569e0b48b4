package bundler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/evanw/esbuild/pkg/api"

	derrors "git.home.luguber.info/inful/demostage/internal/errors"
	"git.home.luguber.info/inful/demostage/internal/logfields"
)

// Esbuild bundles demos with esbuild's Go API, keeping a build context alive
// between Bundle and Rebuild so watch-triggered rebuilds are incremental.
type Esbuild struct {
	mu  sync.Mutex
	ctx api.BuildContext
	job Job
}

// NewEsbuild returns an esbuild-backed Bundler.
func NewEsbuild() *Esbuild { return &Esbuild{} }

// Options translates a job into esbuild build options.
func Options(job Job) api.BuildOptions {
	entries := make([]api.EntryPoint, 0, len(job.Entries))
	for _, e := range job.Entries {
		entries = append(entries, api.EntryPoint{InputPath: e.Input, OutputPath: e.Output})
	}
	opts := api.BuildOptions{
		EntryPointsAdvanced: entries,
		Outdir:              job.OutDir,
		Bundle:              true,
		Write:               true,
		Platform:            api.PlatformBrowser,
		Format:              api.FormatIIFE,
		Loader:              map[string]api.Loader{".js": api.LoaderJSX},
		Define:              job.Define,
		LogLevel:            api.LogLevelSilent,
	}
	if job.Production {
		opts.MinifyWhitespace = true
		opts.MinifyIdentifiers = true
		opts.MinifySyntax = true
	} else {
		opts.Sourcemap = api.SourceMapLinked
	}
	return opts
}

func (b *Esbuild) Bundle(ctx context.Context, job Job) error {
	if len(job.Entries) == 0 {
		return derrors.BundleFailed(errors.New("no entry points"))
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ctx != nil {
		b.ctx.Dispose()
		b.ctx = nil
	}
	bctx, cerr := api.Context(Options(job))
	if cerr != nil {
		return derrors.BundleFailed(errors.New(formatMessages(cerr.Errors, api.ErrorMessage)))
	}
	b.ctx, b.job = bctx, job

	return b.run(ctx, "bundle")
}

func (b *Esbuild) Rebuild(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ctx == nil {
		return derrors.BundleFailed(errors.New("rebuild before first bundle"))
	}
	return b.run(ctx, "rebuild")
}

// run executes one build on the current context; b.mu must be held.
func (b *Esbuild) run(ctx context.Context, op string) error {
	start := time.Now()
	done := make(chan api.BuildResult, 1)
	go func() { done <- b.ctx.Rebuild() }()

	var res api.BuildResult
	select {
	case res = <-done:
	case <-ctx.Done():
		b.ctx.Cancel()
		<-done
		return derrors.BundleFailed(ctx.Err())
	}

	if len(res.Warnings) > 0 {
		slog.Warn("Bundler reported warnings",
			logfields.Op(op),
			slog.String("warnings", formatMessages(res.Warnings, api.WarningMessage)))
	}
	if len(res.Errors) > 0 {
		return derrors.BundleFailed(errors.New(formatMessages(res.Errors, api.ErrorMessage))).
			WithContext("errors", len(res.Errors))
	}

	slog.Info("Bundled demos",
		logfields.Op(op),
		logfields.Files(len(b.job.Entries)),
		slog.Bool("production", b.job.Production),
		logfields.Duration(time.Since(start)))
	return nil
}

func (b *Esbuild) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ctx != nil {
		b.ctx.Dispose()
		b.ctx = nil
	}
	return nil
}

func formatMessages(msgs []api.Message, kind api.MessageKind) string {
	formatted := api.FormatMessages(msgs, api.FormatMessagesOptions{Kind: kind})
	out := strings.TrimSpace(strings.Join(formatted, ""))
	if out == "" {
		return fmt.Sprintf("%d bundler message(s)", len(msgs))
	}
	return out
}
