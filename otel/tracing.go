// Package otel provides OpenTelemetry integration for loom walk events.
package otel

import (
	"context"
	"strconv"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/petal-labs/loom"
)

// TracingHandler translates loom stepper events into OpenTelemetry spans:
// one root span per prepared walk, with a child span per generation. Row
// executions and branch terminations become span events on the active
// generation span.
type TracingHandler struct {
	tracer trace.Tracer

	mu        sync.RWMutex
	walkSpans map[string]trace.Span            // walkID -> span
	walkCtxs  map[string]context.Context       // walkID -> context (for child spans)
	stepSpans map[string]trace.Span            // walkID -> active generation span
}

// NewTracingHandler creates a TracingHandler that uses the given tracer
// to create spans from stepper events.
func NewTracingHandler(tracer trace.Tracer) *TracingHandler {
	return &TracingHandler{
		tracer:    tracer,
		walkSpans: make(map[string]trace.Span),
		walkCtxs:  make(map[string]context.Context),
		stepSpans: make(map[string]trace.Span),
	}
}

// Handle processes a stepper event and creates or ends spans accordingly.
// Register it with Stepper.OnEvent.
func (h *TracingHandler) Handle(e loom.Event) {
	switch e.Kind {
	case loom.EventWalkPrepared:
		h.handleWalkPrepared(e)
	case loom.EventStepStarted:
		h.handleStepStarted(e)
	case loom.EventStepFinished:
		h.handleStepFinished(e)
	case loom.EventStepFailed:
		h.handleStepFailed(e)
	case loom.EventRowExecuted, loom.EventBranchEnded:
		h.handleRowEvent(e)
	case loom.EventWalkFinished:
		h.handleWalkFinished(e)
	}
}

// handleWalkPrepared creates a root span for the walk.
func (h *TracingHandler) handleWalkPrepared(e loom.Event) {
	spanName := "walk:" + e.WalkID
	if e.Graph != "" {
		spanName = "walk:" + e.Graph
	}

	ctx, span := h.tracer.Start(context.Background(), spanName,
		trace.WithAttributes(
			attribute.String("loom.walk_id", e.WalkID),
			attribute.Int("loom.start_rows", e.Rows),
		),
		trace.WithTimestamp(e.Time),
	)

	if e.Graph != "" {
		span.SetAttributes(attribute.String("loom.graph", e.Graph))
	}

	h.mu.Lock()
	h.walkSpans[e.WalkID] = span
	h.walkCtxs[e.WalkID] = ctx
	h.mu.Unlock()
}

// handleStepStarted creates a generation span under the walk span.
func (h *TracingHandler) handleStepStarted(e loom.Event) {
	h.mu.RLock()
	parentCtx, ok := h.walkCtxs[e.WalkID]
	h.mu.RUnlock()

	if !ok {
		// No parent walk span; start from background context.
		parentCtx = context.Background()
	}

	spanName := "step:" + strconv.Itoa(e.Generation)

	_, span := h.tracer.Start(parentCtx, spanName,
		trace.WithAttributes(
			attribute.String("loom.walk_id", e.WalkID),
			attribute.Int("loom.generation", e.Generation),
			attribute.Int("loom.frontier_rows", e.Rows),
		),
		trace.WithTimestamp(e.Time),
	)

	h.mu.Lock()
	h.stepSpans[e.WalkID] = span
	h.mu.Unlock()
}

// handleStepFinished ends the generation span with success status.
func (h *TracingHandler) handleStepFinished(e loom.Event) {
	h.mu.Lock()
	span, ok := h.stepSpans[e.WalkID]
	if ok {
		delete(h.stepSpans, e.WalkID)
	}
	h.mu.Unlock()

	if ok {
		span.SetAttributes(attribute.Int("loom.produced_rows", e.Rows))
		span.SetStatus(codes.Ok, "")
		span.End(trace.WithTimestamp(e.Time))
	}
}

// handleStepFailed ends the generation span with error status.
func (h *TracingHandler) handleStepFailed(e loom.Event) {
	h.mu.Lock()
	span, ok := h.stepSpans[e.WalkID]
	if ok {
		delete(h.stepSpans, e.WalkID)
	}
	h.mu.Unlock()

	if ok {
		errMsg := "step failed"
		if e.Err != nil {
			errMsg = e.Err.Error()
		}
		span.SetStatus(codes.Error, errMsg)
		if e.Err != nil {
			span.RecordError(e.Err, trace.WithTimestamp(e.Time))
		}
		span.End(trace.WithTimestamp(e.Time))
	}
}

// handleRowEvent adds a span event for row.executed and branch.ended.
func (h *TracingHandler) handleRowEvent(e loom.Event) {
	h.mu.RLock()
	span, ok := h.stepSpans[e.WalkID]
	h.mu.RUnlock()

	if !ok {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("loom.caller", e.Caller),
		attribute.String("loom.caller_kind", e.CallerKind),
	}
	if e.Kind == loom.EventRowExecuted {
		attrs = append(attrs, attribute.Int("loom.produced_rows", e.Rows))
	}

	span.AddEvent(string(e.Kind), trace.WithTimestamp(e.Time), trace.WithAttributes(attrs...))
}

// handleWalkFinished ends the root walk span.
func (h *TracingHandler) handleWalkFinished(e loom.Event) {
	h.mu.Lock()
	span, ok := h.walkSpans[e.WalkID]
	if ok {
		delete(h.walkSpans, e.WalkID)
		delete(h.walkCtxs, e.WalkID)
	}
	h.mu.Unlock()

	if ok {
		span.SetAttributes(attribute.Int("loom.generations", e.Generation))
		span.SetStatus(codes.Ok, "")
		span.End(trace.WithTimestamp(e.Time))
	}
}

// ActiveWalkSpanContext returns the SpanContext for the active walk span
// identified by walkID. Returns an empty SpanContext if not found.
func (h *TracingHandler) ActiveWalkSpanContext(walkID string) trace.SpanContext {
	h.mu.RLock()
	span, ok := h.walkSpans[walkID]
	h.mu.RUnlock()

	if !ok {
		return trace.SpanContext{}
	}
	return span.SpanContext()
}
