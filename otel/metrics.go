package otel

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/petal-labs/loom"
)

// MetricsHandler translates loom stepper events into OpenTelemetry
// metrics. It records counters for generations, rows, and failures, and a
// histogram of walk durations.
type MetricsHandler struct {
	stepExecutions metric.Int64Counter
	stepFailures   metric.Int64Counter
	rowExecutions  metric.Int64Counter
	branchEnds     metric.Int64Counter
	walkDuration   metric.Float64Histogram

	mu         sync.Mutex
	walkStarts map[string]time.Time
}

// NewMetricsHandler creates a MetricsHandler that uses the given meter to
// create instruments for recording loom walk metrics.
func NewMetricsHandler(meter metric.Meter) (*MetricsHandler, error) {
	stepExec, err := meter.Int64Counter("loom.step.executions",
		metric.WithDescription("Number of executed generations"),
	)
	if err != nil {
		return nil, err
	}

	stepFail, err := meter.Int64Counter("loom.step.failures",
		metric.WithDescription("Number of failed generations"),
	)
	if err != nil {
		return nil, err
	}

	rowExec, err := meter.Int64Counter("loom.row.executions",
		metric.WithDescription("Number of executed rows"),
	)
	if err != nil {
		return nil, err
	}

	branchEnds, err := meter.Int64Counter("loom.branch.ends",
		metric.WithDescription("Number of terminated branches"),
	)
	if err != nil {
		return nil, err
	}

	walkDur, err := meter.Float64Histogram("loom.walk.duration",
		metric.WithDescription("Duration of a walk from prepare to empty frontier in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &MetricsHandler{
		stepExecutions: stepExec,
		stepFailures:   stepFail,
		rowExecutions:  rowExec,
		branchEnds:     branchEnds,
		walkDuration:   walkDur,
		walkStarts:     make(map[string]time.Time),
	}, nil
}

// Handle processes a stepper event and records the appropriate metrics.
// Register it with Stepper.OnEvent.
func (h *MetricsHandler) Handle(e loom.Event) {
	switch e.Kind {
	case loom.EventWalkPrepared:
		h.mu.Lock()
		h.walkStarts[e.WalkID] = e.Time
		h.mu.Unlock()
	case loom.EventStepFinished:
		h.handleStepFinished(e)
	case loom.EventStepFailed:
		h.handleStepFailed(e)
	case loom.EventRowExecuted:
		h.handleRowExecuted(e)
	case loom.EventBranchEnded:
		h.handleBranchEnded(e)
	case loom.EventWalkFinished:
		h.handleWalkFinished(e)
	}
}

// handleStepFinished increments the generation counter.
func (h *MetricsHandler) handleStepFinished(e loom.Event) {
	ctx := context.Background()
	h.stepExecutions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("graph", e.Graph),
	))
}

// handleStepFailed increments the failure counter.
func (h *MetricsHandler) handleStepFailed(e loom.Event) {
	ctx := context.Background()
	h.stepFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("graph", e.Graph),
	))
}

// handleRowExecuted increments the row counter, attributed by target kind.
func (h *MetricsHandler) handleRowExecuted(e loom.Event) {
	ctx := context.Background()
	h.rowExecutions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("graph", e.Graph),
		attribute.String("caller_kind", e.CallerKind),
	))
}

// handleBranchEnded increments the termination counter.
func (h *MetricsHandler) handleBranchEnded(e loom.Event) {
	ctx := context.Background()
	h.branchEnds.Add(ctx, 1, metric.WithAttributes(
		attribute.String("graph", e.Graph),
	))
}

// handleWalkFinished records the walk duration from the matching prepare.
func (h *MetricsHandler) handleWalkFinished(e loom.Event) {
	h.mu.Lock()
	start, ok := h.walkStarts[e.WalkID]
	if ok {
		delete(h.walkStarts, e.WalkID)
	}
	h.mu.Unlock()

	if !ok {
		return
	}

	ctx := context.Background()
	h.walkDuration.Record(ctx, e.Time.Sub(start).Seconds(), metric.WithAttributes(
		attribute.String("graph", e.Graph),
	))
}
