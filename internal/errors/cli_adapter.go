package errors

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// CLIErrorAdapter handles error presentation and exit code determination for the CLI.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
	out     io.Writer
}

// NewCLIErrorAdapter creates a new CLI error adapter.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{
		verbose: verbose,
		logger:  logger,
		out:     os.Stderr,
	}
}

// ExitCodeFor determines the appropriate exit code for an error.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}

	if dse, ok := As(err); ok {
		return a.exitCodeFromDemoStage(dse)
	}

	return 1
}

// exitCodeFromDemoStage maps DemoStageError to exit codes.
func (a *CLIErrorAdapter) exitCodeFromDemoStage(err *DemoStageError) int {
	switch err.Category {
	case CategoryConfig:
		return 7 // Configuration error
	case CategoryFileSystem, CategoryBundler:
		return 11 // Build error
	case CategoryServer, CategoryRuntime:
		return 12 // Runtime error
	case CategoryInternal:
		return 10 // Internal error
	default:
		return 1 // General error
	}
}

// FormatError formats an error for user-friendly display.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}

	if dse, ok := As(err); ok {
		return a.formatDemoStage(dse)
	}

	return fmt.Sprintf("Error: %v", err)
}

func (a *CLIErrorAdapter) formatDemoStage(err *DemoStageError) string {
	if a.verbose {
		return err.Error()
	}

	if err.Category == CategoryConfig {
		return err.Message
	}
	if err.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", err.Category, err.Message, err.Cause)
	}
	return fmt.Sprintf("%s: %s", err.Category, err.Message)
}

// Report logs the error, prints the user-facing message and returns the exit code.
// It never exits on its own so callers can run their finalizers first.
func (a *CLIErrorAdapter) Report(err error) int {
	if err == nil {
		return 0
	}
	a.logError(err)
	_, _ = fmt.Fprintf(a.out, "%s\n", a.FormatError(err))
	return a.ExitCodeFor(err)
}

// logError logs an error with appropriate level and context.
func (a *CLIErrorAdapter) logError(err error) {
	if dse, ok := As(err); ok {
		attrs := []slog.Attr{
			slog.String("category", string(dse.Category)),
		}
		for k, v := range dse.Context {
			attrs = append(attrs, slog.Any(k, v))
		}
		if dse.Cause != nil {
			attrs = append(attrs, slog.String("cause", dse.Cause.Error()))
		}
		a.logger.LogAttrs(context.Background(), a.slogLevel(dse.Severity), dse.Message, attrs...)
		return
	}

	a.logger.Error("Unclassified error", "error", err)
}

func (a *CLIErrorAdapter) slogLevel(severity ErrorSeverity) slog.Level {
	if severity == SeverityWarning {
		return slog.LevelWarn
	}
	return slog.LevelError
}
