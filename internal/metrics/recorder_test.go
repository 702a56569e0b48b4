package metrics

import (
	"errors"
	"testing"
	"time"
)

type testRecorder struct {
	NoopRecorder
	stageDurations map[string]int
	stageResults   map[string]map[ResultLabel]int
}

func newTestRecorder() *testRecorder {
	return &testRecorder{stageDurations: map[string]int{}, stageResults: map[string]map[ResultLabel]int{}}
}

func (t *testRecorder) ObserveStageDuration(stage string, _ time.Duration) {
	t.stageDurations[stage]++
}

func (t *testRecorder) IncStageResult(stage string, result ResultLabel) {
	m, ok := t.stageResults[stage]
	if !ok {
		m = map[ResultLabel]int{}
		t.stageResults[stage] = m
	}
	m[result]++
}

func TestObserve_RecordsDurationAndResult(t *testing.T) {
	rec := newTestRecorder()

	if err := Observe(rec, StageCopy, func() error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	boom := errors.New("boom")
	if err := Observe(rec, StageBundle, func() error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("Observe() = %v, want boom", err)
	}

	if rec.stageDurations[StageCopy] != 1 || rec.stageDurations[StageBundle] != 1 {
		t.Fatalf("durations not recorded: %v", rec.stageDurations)
	}
	if rec.stageResults[StageCopy][ResultSuccess] != 1 {
		t.Errorf("copy success not recorded: %v", rec.stageResults)
	}
	if rec.stageResults[StageBundle][ResultFailed] != 1 {
		t.Errorf("bundle failure not recorded: %v", rec.stageResults)
	}
}
