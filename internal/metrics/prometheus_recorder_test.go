package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveStageDuration(StageCopy, 150*time.Millisecond)
	pr.IncStageResult(StageCopy, ResultSuccess)
	pr.IncFilesCopied(4)
	pr.IncSyncAction("copied")
	pr.IncBundleOutcome(BundleOK)
	pr.IncLiveReload()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(mfs) != 6 {
		t.Fatalf("expected 6 metric families, got %d", len(mfs))
	}

	rec := httptest.NewRecorder()
	HTTPHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "demostage_files_copied_total 4") {
		t.Fatalf("scrape missing files counter:\n%s", rec.Body.String())
	}
}

func TestPrometheusRecorder_NilSafe(t *testing.T) {
	var pr *PrometheusRecorder
	pr.IncLiveReload()
	pr.IncFilesCopied(1)
	pr.ObserveStageDuration(StageBundle, time.Second)
}
