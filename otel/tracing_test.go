package otel_test

import (
	"testing"

	otelcodes "go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/petal-labs/loom"
	loomotel "github.com/petal-labs/loom/otel"
)

// newTestTracer returns a tracer backed by an in-memory span exporter.
func newTestTracer() (*tracetest.InMemoryExporter, *sdktrace.TracerProvider) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
	)
	return exporter, tp
}

// walkChain runs a three-node walk with the handler attached.
func walkChain(t *testing.T, h *loomotel.TracingHandler) {
	t.Helper()
	g := loom.NewGraph("traced")
	a := loom.Add(1)
	g.Connect(a, loom.Add(2), loom.Add(4))

	s := g.Stepper()
	s.OnEvent(h.Handle)
	s.Prepare(loom.PackArgs(1.0), a)
	if err := s.RunToEnd(0); err != nil {
		t.Fatalf("RunToEnd error = %v", err)
	}
}

func TestTracingHandler_WalkCreatesRootSpan(t *testing.T) {
	exporter, tp := newTestTracer()
	h := loomotel.NewTracingHandler(tp.Tracer("test"))

	walkChain(t, h)

	spans := exporter.GetSpans()
	if len(spans) == 0 {
		t.Fatal("expected at least one span")
	}

	// The root walk span finishes last.
	walkSpan := spans[len(spans)-1]
	if walkSpan.Name != "walk:traced" {
		t.Errorf("expected span name 'walk:traced', got %q", walkSpan.Name)
	}

	found := false
	for _, attr := range walkSpan.Attributes {
		if string(attr.Key) == "loom.walk_id" && attr.Value.AsString() != "" {
			found = true
		}
	}
	if !found {
		t.Error("expected loom.walk_id attribute on walk span")
	}
}

func TestTracingHandler_GenerationSpansNestUnderWalk(t *testing.T) {
	exporter, tp := newTestTracer()
	h := loomotel.NewTracingHandler(tp.Tracer("test"))

	walkChain(t, h)

	spans := exporter.GetSpans()
	// Three generations plus the walk span.
	if len(spans) != 4 {
		t.Fatalf("span count = %d, want 4", len(spans))
	}

	walkSpan := spans[len(spans)-1]
	stepNames := map[string]bool{}
	for _, s := range spans[:len(spans)-1] {
		stepNames[s.Name] = true
		if s.Parent.SpanID() != walkSpan.SpanContext.SpanID() {
			t.Errorf("span %q is not a child of the walk span", s.Name)
		}
		if s.Status.Code != otelcodes.Ok {
			t.Errorf("span %q status = %v, want Ok", s.Name, s.Status.Code)
		}
	}
	for _, want := range []string{"step:1", "step:2", "step:3"} {
		if !stepNames[want] {
			t.Errorf("missing generation span %q", want)
		}
	}
}

func TestTracingHandler_RowEventsAttachToGenerationSpan(t *testing.T) {
	exporter, tp := newTestTracer()
	h := loomotel.NewTracingHandler(tp.Tracer("test"))

	walkChain(t, h)

	var rowEvents, endEvents int
	for _, s := range exporter.GetSpans() {
		for _, ev := range s.Events {
			switch ev.Name {
			case string(loom.EventRowExecuted):
				rowEvents++
			case string(loom.EventBranchEnded):
				endEvents++
			}
		}
	}
	if rowEvents != 3 {
		t.Errorf("row events = %d, want 3", rowEvents)
	}
	if endEvents != 1 {
		t.Errorf("branch end events = %d, want 1", endEvents)
	}
}

func TestTracingHandler_FailedStepEndsSpanWithError(t *testing.T) {
	exporter, tp := newTestTracer()
	h := loomotel.NewTracingHandler(tp.Tracer("test"))

	g := loom.NewGraph("failing")
	a := loom.Add(1)
	g.Add(a, loom.NewUnit(func() {})) // arity mismatch downstream

	s := g.Stepper()
	s.OnEvent(h.Handle)
	s.Prepare(loom.PackArgs(1.0), a)
	if err := s.RunToEnd(0); err == nil {
		t.Fatal("walk succeeded, want a failure")
	}

	var foundError bool
	for _, span := range exporter.GetSpans() {
		if span.Status.Code == otelcodes.Error {
			foundError = true
		}
	}
	if !foundError {
		t.Error("no span recorded error status for the failed generation")
	}
}

func TestTracingHandler_ActiveWalkSpanContext(t *testing.T) {
	_, tp := newTestTracer()
	h := loomotel.NewTracingHandler(tp.Tracer("test"))

	var walkID string
	g := loom.NewGraph("t")
	a := loom.Add(1)
	g.Add(a, loom.Add(2))

	s := g.Stepper()
	s.OnEvent(h.Handle)
	s.OnEvent(func(e loom.Event) {
		if e.Kind == loom.EventWalkPrepared {
			walkID = e.WalkID
			if !h.ActiveWalkSpanContext(walkID).IsValid() {
				t.Error("walk span context invalid while the walk is active")
			}
		}
	})

	s.Prepare(loom.PackArgs(1.0), a)
	if err := s.RunToEnd(0); err != nil {
		t.Fatalf("RunToEnd error = %v", err)
	}

	if h.ActiveWalkSpanContext(walkID).IsValid() {
		t.Error("walk span context still active after the walk finished")
	}
	if h.ActiveWalkSpanContext("missing").IsValid() {
		t.Error("unknown walk ID returned a valid span context")
	}
}
