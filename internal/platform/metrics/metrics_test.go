package metrics

import (
	"testing"
	"time"
)

func TestCollectorSnapshot(t *testing.T) {
	c := New()
	c.Record(200, 10*time.Millisecond)
	c.Record(500, 30*time.Millisecond)
	c.Record(429, 0)
	c.RecordAggregation(true)
	c.RecordAggregation(false)
	c.RecordTransition()

	snap := c.Snapshot()
	if got := snap["requestsTotal"].(uint64); got != 3 {
		t.Fatalf("requestsTotal = %d, want 3", got)
	}
	if got := snap["errorsTotal"].(uint64); got != 1 {
		t.Fatalf("errorsTotal = %d, want 1", got)
	}
	if got := snap["rateLimitedTotal"].(uint64); got != 1 {
		t.Fatalf("rateLimitedTotal = %d, want 1", got)
	}
	if got := snap["avgDurationMs"].(float64); got != 40.0/3.0 {
		t.Fatalf("avgDurationMs = %v, want %v", got, 40.0/3.0)
	}
	if got := snap["aggregationsTotal"].(uint64); got != 2 {
		t.Fatalf("aggregationsTotal = %d, want 2", got)
	}
	if got := snap["aggregationFailures"].(uint64); got != 1 {
		t.Fatalf("aggregationFailures = %d, want 1", got)
	}
	if got := snap["transitionsTotal"].(uint64); got != 1 {
		t.Fatalf("transitionsTotal = %d, want 1", got)
	}
}

func TestCollectorEmptySnapshot(t *testing.T) {
	snap := New().Snapshot()
	if got := snap["avgDurationMs"].(float64); got != 0 {
		t.Fatalf("avgDurationMs on empty collector = %v, want 0", got)
	}
}
