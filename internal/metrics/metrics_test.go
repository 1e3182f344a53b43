package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounts(t *testing.T) {
	r := New()
	r.RecordStage("viewer-request", "continue")
	r.RecordStage("viewer-request", "continue")
	r.RecordCacheLookup("hit")
	r.RecordCacheWrite("ok")
	r.RecordOriginFetch("http", "ok")
	r.RecordRun(PathOrigin, 5*time.Millisecond)

	if got := testutil.ToFloat64(r.stageInvocations.WithLabelValues("viewer-request", "continue")); got != 2 {
		t.Fatalf("expected 2 stage invocations, got %v", got)
	}
	if got := testutil.ToFloat64(r.cacheLookups.WithLabelValues("hit")); got != 1 {
		t.Fatalf("expected 1 cache hit, got %v", got)
	}
	if got := testutil.ToFloat64(r.originFetches.WithLabelValues("http", "ok")); got != 1 {
		t.Fatalf("expected 1 origin fetch, got %v", got)
	}
	if got := testutil.ToFloat64(r.runs.WithLabelValues(PathOrigin)); got != 1 {
		t.Fatalf("expected 1 run, got %v", got)
	}
}

func TestRecorderExposition(t *testing.T) {
	r := New()
	r.RecordCacheWrite("error")

	expected := `
# HELP edgesim_cache_writes_total Count of cache writes by result.
# TYPE edgesim_cache_writes_total counter
edgesim_cache_writes_total{result="error"} 1
`
	if err := testutil.GatherAndCompare(r.Registry(), strings.NewReader(expected), "edgesim_cache_writes_total"); err != nil {
		t.Fatalf("unexpected exposition: %v", err)
	}
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	r.RecordStage("viewer-request", "error")
	r.RecordCacheLookup("miss")
	r.RecordCacheWrite("ok")
	r.RecordOriginFetch("none", "not_found")
	r.RecordRun(PathError, time.Second)
	if r.Registry() != nil {
		t.Fatalf("nil recorder should expose no registry")
	}
}
