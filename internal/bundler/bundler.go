// Package bundler wraps the JavaScript bundler the demos are compiled with.
//
// The orchestrator only depends on the Bundler interface. Esbuild is the real
// implementation; Noop and Func exist so staging, serving and cleanup can be
// exercised without compiling any JavaScript.
package bundler

import (
	"context"
	"encoding/json"
	"sort"
)

// Entry is one bundle to produce.
type Entry struct {
	Name   string // demo name, used in logs
	Input  string // absolute path of the entry script
	Output string // output path relative to Job.OutDir, without extension
}

// Job describes one bundling run over every active demo.
type Job struct {
	Entries    []Entry
	OutDir     string
	Production bool
	Define     map[string]string // identifier -> JS expression
}

// Bundler compiles entry scripts into browser bundles.
type Bundler interface {
	// Bundle runs a fresh build for job and remembers it for Rebuild.
	Bundle(ctx context.Context, job Job) error
	// Rebuild reruns the last job incrementally.
	Rebuild(ctx context.Context) error
	// Close releases resources held for incremental rebuilds.
	Close() error
}

// EnvDefines renders env as process.env.<KEY> defines plus NODE_ENV.
func EnvDefines(env map[string]string, production bool) map[string]string {
	nodeEnv := "development"
	if production {
		nodeEnv = "production"
	}
	defines := make(map[string]string, len(env)+1)
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		defines["process.env."+k] = jsString(env[k])
	}
	defines["process.env.NODE_ENV"] = jsString(nodeEnv)
	return defines
}

func jsString(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(b)
}

// Noop is a Bundler that records jobs without compiling anything.
type Noop struct {
	Jobs     []Job
	Rebuilds int
	Closed   bool
}

func (n *Noop) Bundle(_ context.Context, job Job) error {
	n.Jobs = append(n.Jobs, job)
	return nil
}

func (n *Noop) Rebuild(context.Context) error {
	n.Rebuilds++
	return nil
}

func (n *Noop) Close() error {
	n.Closed = true
	return nil
}

// Func adapts a function to the Bundler interface. Rebuild reruns the last
// job through the same function.
type Func func(ctx context.Context, job Job) error

type funcBundler struct {
	fn   Func
	last *Job
}

// FromFunc returns a Bundler backed by fn.
func FromFunc(fn Func) Bundler { return &funcBundler{fn: fn} }

func (f *funcBundler) Bundle(ctx context.Context, job Job) error {
	f.last = &job
	return f.fn(ctx, job)
}

func (f *funcBundler) Rebuild(ctx context.Context) error {
	if f.last == nil {
		return nil
	}
	return f.fn(ctx, *f.last)
}

func (f *funcBundler) Close() error { return nil }
