package metrics

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestRegisterCounter tests the RegisterCounter method of the Collector.
func TestRegisterCounter(t *testing.T) {
	ctx := WithMetrics(context.Background(), "edr_proof")
	collector := FromContext(ctx, "edr_proof")

	counter, err := collector.RegisterCounter(ctx, "alerts_ingested", "vendor")
	if err != nil {
		t.Fatal(err)
	}
	defer collector.UnregisterCounter(ctx, "alerts_ingested", "vendor") //nolint:errcheck

	err = collector.AddCounter(ctx, "alerts_ingested", 3, "crowdstrike")
	if err != nil {
		t.Fatal(err)
	}

	counterVec, ok := counter.(prometheus.Collector)
	if !ok {
		t.Fatal("counter is not a Collector")
	}
	err = testutil.CollectAndCompare(counterVec, strings.NewReader(`
	    # HELP edr_proof_edr_proof_alerts_ingested Counter for edr_proof_alerts_ingested
		# TYPE edr_proof_edr_proof_alerts_ingested counter
		edr_proof_edr_proof_alerts_ingested{vendor="crowdstrike"} 3
	`))
	if err != nil {
		t.Fatal(err)
	}
}

// TestRegisterHistogram tests the RegisterHistogram method of the Collector.
func TestRegisterHistogram(t *testing.T) {
	ctx := WithMetrics(context.Background(), "edr_proof")
	collector := FromContext(ctx, "edr_proof")

	_, err := collector.RegisterHistogram(ctx, "analysis_seconds", "sanitizer")
	if err != nil {
		t.Fatal(err)
	}
	defer collector.UnregisterHistogram(ctx, "analysis_seconds", "sanitizer") //nolint:errcheck

	err = collector.ObserveHistogram(ctx, "analysis_seconds", 2.5, "glasswall")
	if err != nil {
		t.Fatal(err)
	}
}

// TestAddCounterUnregistered tests that updating an unregistered metric fails.
func TestAddCounterUnregistered(t *testing.T) {
	ctx := WithMetrics(context.Background(), "edr_proof")
	collector := FromContext(ctx, "edr_proof")

	if err := collector.AddCounter(ctx, "missing", 1); err == nil {
		t.Fatal("expected error for unregistered counter")
	}
	if err := collector.ObserveHistogram(ctx, "missing", 1); err == nil {
		t.Fatal("expected error for unregistered histogram")
	}
}
