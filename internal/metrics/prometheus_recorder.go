package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stageDuration *prom.HistogramVec
	stageResults  *prom.CounterVec
	filesCopied   prom.Counter
	syncActions   *prom.CounterVec
	bundles       *prom.CounterVec
	liveReloads   prom.Counter
}

// NewPrometheusRecorder constructs and registers Prometheus metrics on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "demostage",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual pipeline stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		stageResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "demostage",
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"}),
		filesCopied: prom.NewCounter(prom.CounterOpts{
			Namespace: "demostage",
			Name:      "files_copied_total",
			Help:      "Files copied into the scratch workspace",
		}),
		syncActions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "demostage",
			Name:      "sync_actions_total",
			Help:      "Incremental sync actions applied to the scratch workspace",
		}, []string{"action"}),
		bundles: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "demostage",
			Name:      "bundles_total",
			Help:      "Bundler runs by outcome",
		}, []string{"outcome"}),
		liveReloads: prom.NewCounter(prom.CounterOpts{
			Namespace: "demostage",
			Name:      "livereload_broadcasts_total",
			Help:      "Live reload notifications sent to browsers",
		}),
	}
	reg.MustRegister(pr.stageDuration, pr.stageResults, pr.filesCopied, pr.syncActions, pr.bundles, pr.liveReloads)
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) IncFilesCopied(n int) {
	if p == nil || n <= 0 {
		return
	}
	p.filesCopied.Add(float64(n))
}

func (p *PrometheusRecorder) IncSyncAction(action string) {
	if p == nil {
		return
	}
	p.syncActions.WithLabelValues(action).Inc()
}

func (p *PrometheusRecorder) IncBundleOutcome(outcome BundleOutcome) {
	if p == nil {
		return
	}
	p.bundles.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncLiveReload() {
	if p == nil {
		return
	}
	p.liveReloads.Inc()
}
