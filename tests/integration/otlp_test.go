//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/petal-labs/loom"
	loomotel "github.com/petal-labs/loom/otel"
)

// TestExportWalkTrace runs a real walk with the tracing handler attached
// and flushes the spans to the configured collector. It verifies the
// export path end to end; span contents are covered by the unit tests.
func TestExportWalkTrace(t *testing.T) {
	skipIfNoCollector(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tp, err := loomotel.InitTraceProvider(ctx, loomotel.ProviderConfig{
		Endpoint:    collectorEndpoint(t),
		Insecure:    true,
		ServiceName: "loom-integration",
	})
	if err != nil {
		t.Fatalf("InitTraceProvider: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			t.Errorf("provider shutdown: %v", err)
		}
	}()

	h := loomotel.NewTracingHandler(tp.Tracer("integration"))

	g := loom.NewGraph("exported")
	a := loom.Add(1)
	g.Connect(a, loom.Mul(2), loom.Sub(3))

	s := g.Stepper()
	s.OnEvent(h.Handle)
	s.Prepare(loom.PackArgs(5.0), a)
	if err := s.RunToEnd(0); err != nil {
		t.Fatalf("RunToEnd: %v", err)
	}

	entries := s.Flush()
	if len(entries) != 1 || entries[0].Packs[0].Args[0] != 9.0 {
		t.Fatalf("walk result = %+v, want one pack [9]", entries)
	}

	if err := tp.ForceFlush(ctx); err != nil {
		t.Fatalf("flushing spans to collector: %v", err)
	}
}
