package errors

import "fmt"

// Convenience functions for common error patterns

// Config errors

func DemoNotFound(name, path string) *DemoStageError {
	return New(CategoryConfig, SeverityFatal, fmt.Sprintf("demo %q not found", name)).
		WithContext("demo", name).
		WithContext("path", path)
}

func NoDemos(root string, filter []string) *DemoStageError {
	return New(CategoryConfig, SeverityFatal, "no demos to stage").
		WithContext("root", root).
		WithContext("filter", filter)
}

func ConfigInvalid(field, reason string) *DemoStageError {
	return New(CategoryConfig, SeverityFatal, fmt.Sprintf("invalid configuration: %s: %s", field, reason)).
		WithContext("field", field).
		WithContext("reason", reason)
}

// Filesystem errors

func WorkspaceError(operation string, cause error) *DemoStageError {
	return Wrap(cause, CategoryFileSystem, SeverityFatal, "workspace operation failed").
		WithContext("operation", operation)
}

func StageFailed(src string, cause error) *DemoStageError {
	return Wrap(cause, CategoryFileSystem, SeverityFatal, "staging failed").
		WithContext("source", src)
}

func ScaffoldFailed(dir string, cause error) *DemoStageError {
	return Wrap(cause, CategoryFileSystem, SeverityFatal, "scaffold injection failed").
		WithContext("dir", dir)
}

// External collaborator errors

func BundleFailed(cause error) *DemoStageError {
	return Wrap(cause, CategoryBundler, SeverityFatal, "bundling failed")
}

func ServerFailed(addr string, cause error) *DemoStageError {
	return Wrap(cause, CategoryServer, SeverityFatal, "dev server failed").
		WithContext("addr", addr)
}

// Internal errors

func Panic(value any) *DemoStageError {
	return New(CategoryInternal, SeverityFatal, fmt.Sprintf("uncaught fault: %v", value))
}
