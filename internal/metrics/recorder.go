package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFailed  ResultLabel = "failed"
)

// Stage names used as metric labels.
const (
	StageList     = "list"
	StageCopy     = "copy"
	StageScaffold = "scaffold"
	StageBundle   = "bundle"
	StageRebuild  = "rebuild"
	StageCleanup  = "cleanup"
)

// Recorder defines observability hooks for the staging pipeline.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	IncFilesCopied(n int)
	IncSyncAction(action string)
	IncBundleOutcome(outcome BundleOutcome)
	IncLiveReload()
}

// BundleOutcome labels bundler runs.
type BundleOutcome string

const (
	BundleOK     BundleOutcome = "ok"
	BundleFailed BundleOutcome = "failed"
)

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) IncStageResult(string, ResultLabel)         {}
func (NoopRecorder) IncFilesCopied(int)                         {}
func (NoopRecorder) IncSyncAction(string)                       {}
func (NoopRecorder) IncBundleOutcome(BundleOutcome)             {}
func (NoopRecorder) IncLiveReload()                             {}

// Observe runs fn as stage, recording its duration and result.
func Observe(r Recorder, stage string, fn func() error) error {
	start := time.Now()
	err := fn()
	r.ObserveStageDuration(stage, time.Since(start))
	if err != nil {
		r.IncStageResult(stage, ResultFailed)
	} else {
		r.IncStageResult(stage, ResultSuccess)
	}
	return err
}
