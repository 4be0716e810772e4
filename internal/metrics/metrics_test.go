package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordToolCall(t *testing.T) {
	before := testutil.ToFloat64(toolCallsTotal.WithLabelValues("get_weather", "ok"))
	RecordToolCall("get_weather", "ok")
	RecordToolCall("get_weather", "ok")

	got := testutil.ToFloat64(toolCallsTotal.WithLabelValues("get_weather", "ok"))
	if got != before+2 {
		t.Errorf("expected %v, got %v", before+2, got)
	}
}

func TestRecordRequestAndTask(t *testing.T) {
	before := testutil.ToFloat64(requestsTotal.WithLabelValues("completed"))
	RecordRequest("completed", time.Now())
	if got := testutil.ToFloat64(requestsTotal.WithLabelValues("completed")); got != before+1 {
		t.Errorf("expected %v, got %v", before+1, got)
	}

	before = testutil.ToFloat64(tasksTotal.WithLabelValues("Budget Planner", "failed"))
	RecordTask("Budget Planner", "failed")
	if got := testutil.ToFloat64(tasksTotal.WithLabelValues("Budget Planner", "failed")); got != before+1 {
		t.Errorf("expected %v, got %v", before+1, got)
	}
}

func TestSessionGauge(t *testing.T) {
	before := testutil.ToFloat64(activeSessions)
	SessionOpened()
	SessionOpened()
	SessionClosed()
	if got := testutil.ToFloat64(activeSessions); got != before+1 {
		t.Errorf("expected %v, got %v", before+1, got)
	}
}
