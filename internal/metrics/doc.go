// Package metrics provides observability hooks for staging, bundling and
// the dev server.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so nothing needs nil checks:
//
//	orch := orchestrator.New(cfg, deps) // deps.Recorder may be left nil
//
// The serve command swaps in a PrometheusRecorder on a private registry and
// exposes it on the dev server under /metrics.
package metrics
