package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestExpvarMetricsRecorder(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	ctx := context.Background()

	rec.Observe(ctx, "load", true, 20*time.Millisecond)
	rec.Observe(ctx, "load", true, 30*time.Millisecond)
	rec.Observe(ctx, "save", false, 5*time.Millisecond)
	rec.Observe(ctx, "", true, time.Millisecond) // ignored

	snap := rec.Snapshot()
	if snap.DurationsMS["load"] != 50 {
		t.Fatalf("load duration = %v", snap.DurationsMS["load"])
	}
	if snap.Results["load"]["success"] != 2 || snap.Results["save"]["error"] != 1 {
		t.Fatalf("results = %+v", snap.Results)
	}
	if _, ok := snap.Results[""]; ok {
		t.Fatalf("empty stage recorded")
	}
	if rec.Name() == "" {
		t.Fatalf("missing expvar name")
	}
}

func TestJSONTracer(t *testing.T) {
	buf := &bytes.Buffer{}
	tracer := NewJSONTracer(buf)

	_, span := tracer.Start(context.Background(), "load")
	span.End(nil)
	_, span = tracer.Start(context.Background(), "save")
	span.End(errors.New("disk full"))

	entries := tracer.Entries()
	if len(entries) != 2 {
		t.Fatalf("entries = %d", len(entries))
	}
	if entries[0].Stage != "load" || entries[0].Status != "success" {
		t.Fatalf("entry 0 = %+v", entries[0])
	}
	if entries[1].Status != "error" || entries[1].Error != "disk full" {
		t.Fatalf("entry 1 = %+v", entries[1])
	}

	dec := json.NewDecoder(buf)
	var first JSONTraceEntry
	if err := dec.Decode(&first); err != nil || first.Stage != "load" {
		t.Fatalf("decoded = %+v, %v", first, err)
	}
}

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("NewPrometheusMetricsRecorder: %v", err)
	}

	ctx := context.Background()
	rec.Observe(ctx, "load", true, 40*time.Millisecond)
	rec.Observe(ctx, "load", false, 10*time.Millisecond)
	rec.Observe(ctx, "", true, time.Millisecond) // ignored

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	byName := make(map[string]*dto.MetricFamily, len(families))
	for _, mf := range families {
		byName[mf.GetName()] = mf
	}

	counter := byName["marrowmap_pipeline_stage_results_total"]
	if counter == nil {
		t.Fatalf("counter family missing, got %v", byName)
	}
	total := 0.0
	for _, m := range counter.GetMetric() {
		total += m.GetCounter().GetValue()
	}
	if total != 2 {
		t.Fatalf("counter total = %v", total)
	}
	if byName["marrowmap_pipeline_stage_duration_seconds"] == nil {
		t.Fatalf("histogram family missing")
	}

	// double registration against the same registry fails
	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Fatalf("duplicate registration accepted")
	}
}
