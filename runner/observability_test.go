package runner

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/melos/logger"
	"github.com/kbukum/melos/observability"
	"github.com/kbukum/melos/task"
)

func failingExec(code int) Executor {
	return ExecutorFunc(func(_ context.Context, t task.Task, _ OutputFunc) task.Result {
		return task.Result{Package: t.Package, Outcome: task.Failed(code)}
	})
}

func TestWithTracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer tp.Shutdown(context.Background())
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	ctx := observability.WithRunContext(context.Background(), observability.NewRunContext("run-7", "test", nil))
	WithTracing(failingExec(2)).Execute(ctx, task.Task{Package: "core", Command: "test"}, func(string, bool) {})

	spans := recorder.Ended()
	if len(spans) != 1 || spans[0].Name() != observability.SpanPackage {
		t.Fatalf("expected one %s span, got %v", observability.SpanPackage, spans)
	}
	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	want := map[string]string{
		observability.AttrPackage:  "core",
		observability.AttrRunID:    "run-7",
		observability.AttrOutcome:  "failed",
		observability.AttrExitCode: "2",
	}
	for k, v := range want {
		if attrs[k] != v {
			t.Errorf("attribute %s: expected %q, got %q", k, v, attrs[k])
		}
	}
}

func TestWithMetrics(t *testing.T) {
	metrics, err := observability.NewMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := WithMetrics(failingExec(1), metrics).Execute(context.Background(), task.Task{Package: "core"}, func(string, bool) {})
	if r.Outcome != task.Failed(1) {
		t.Errorf("expected outcome to pass through, got %s", r.Outcome)
	}
}

func TestRun_WithMeterRecordsPackagesAndRun(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	metrics, err := observability.NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	exec := &fakeExec{run: func(_ context.Context, t task.Task, _ OutputFunc) task.Outcome {
		if t.Package == "b" {
			return task.Failed(1)
		}
		return task.Succeeded()
	}}
	g := newGraph(t, map[string][]string{"a": nil, "b": nil, "c": nil})
	r := New(Config{Concurrency: 2}, WithExecutor(exec), WithMeter(metrics), WithLogger(logger.NewNop()))
	plan, err := r.Plan(g, g.Names())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := r.Run(context.Background(), "test", plan, tasksFor(g.Names(), "test"), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sums := map[string]int64{}
	outcomes := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				sums[m.Name] += dp.Value
				if m.Name == "package.total" {
					if v, ok := dp.Attributes.Value("outcome"); ok {
						outcomes[v.AsString()] += dp.Value
					}
				}
			}
		}
	}

	if sums["package.total"] != 3 {
		t.Errorf("expected 3 packages recorded, got %d", sums["package.total"])
	}
	if sums["package.active"] != 0 {
		t.Errorf("expected no active packages after the run, got %d", sums["package.active"])
	}
	if sums["run.total"] != 1 {
		t.Errorf("expected 1 run recorded, got %d", sums["run.total"])
	}
	if outcomes["failed"] != 1 {
		t.Errorf("expected 1 failed package, got %v", outcomes)
	}
}

func TestWithLogging(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&logger.Config{Level: "debug", Format: "json"}, "melos", &buf)

	WithLogging(failingExec(4), log).Execute(context.Background(), task.Task{Package: "core", Command: "test"}, func(string, bool) {})

	out := buf.String()
	if !strings.Contains(out, `"package started"`) || !strings.Contains(out, `"package failed"`) {
		t.Errorf("expected start and failure entries, got %s", out)
	}
	if !strings.Contains(out, `"exit_code":4`) {
		t.Errorf("expected exit code field, got %s", out)
	}
}

func TestWithLogging_TimedOut(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&logger.Config{Level: "debug", Format: "json"}, "melos", &buf)
	timedOut := ExecutorFunc(func(_ context.Context, t task.Task, _ OutputFunc) task.Result {
		return task.Result{Package: t.Package, Outcome: task.TimedOut()}
	})

	WithLogging(timedOut, log).Execute(context.Background(), task.Task{Package: "core", Command: "sleep 5"}, func(string, bool) {})

	out := buf.String()
	if !strings.Contains(out, `"package timed out"`) || !strings.Contains(out, "TIMEOUT") {
		t.Errorf("expected a timeout entry carrying the TIMEOUT code, got %s", out)
	}
	if strings.Contains(out, `"package failed"`) {
		t.Errorf("did not expect a plain failure entry, got %s", out)
	}
}
