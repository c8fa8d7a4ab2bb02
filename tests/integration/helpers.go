//go:build integration

// Package integration contains integration tests that export to a real
// OTLP collector. These tests are excluded from normal `go test ./...`
// runs and require:
//
//	LOOM_OTLP_ENDPOINT=localhost:4318 go test -tags=integration ./tests/integration/... -v -count=1
package integration

import (
	"os"
	"testing"
)

// endpointEnv names the OTLP/HTTP collector endpoint, host:port.
const endpointEnv = "LOOM_OTLP_ENDPOINT"

func skipIfNoCollector(t *testing.T) {
	t.Helper()
	if os.Getenv(endpointEnv) == "" {
		t.Skipf("%s not set; skipping collector integration test", endpointEnv)
	}
}

func collectorEndpoint(t *testing.T) string {
	t.Helper()
	return os.Getenv(endpointEnv)
}
