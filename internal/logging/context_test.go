package logging

import (
	"context"
	"testing"
	"time"
)

type ctxKey string

func TestDetachContext_OutlivesCancelledRequest(t *testing.T) {
	// The audit pattern: a request context gets cancelled mid-flight, but the
	// decision row still has to be written with the request's trace values.
	req := context.WithValue(context.Background(), ctxKey("request_id"), "req-41")
	req, cancel := context.WithCancel(req)

	audit := DetachContext(req)
	cancel()

	if req.Err() == nil {
		t.Fatal("request context should be cancelled")
	}
	if audit.Err() != nil {
		t.Errorf("detached context should stay live after parent cancel, got %v", audit.Err())
	}
	if v := audit.Value(ctxKey("request_id")); v != "req-41" {
		t.Errorf("detached context lost request value: got %v", v)
	}
}

func TestDetachContextWithTimeout_IndependentLifetime(t *testing.T) {
	req, cancelReq := context.WithCancel(context.Background())
	audit, cancelAudit := DetachContextWithTimeout(req, 100*time.Millisecond)
	defer cancelAudit()

	cancelReq()

	if audit.Err() != nil {
		t.Fatalf("detached context cancelled with its parent: %v", audit.Err())
	}

	// Its own deadline still applies.
	select {
	case <-audit.Done():
	case <-time.After(time.Second):
		t.Fatal("detached context never expired")
	}
	if audit.Err() != context.DeadlineExceeded {
		t.Errorf("want DeadlineExceeded after budget elapses, got %v", audit.Err())
	}
}

func TestDetachContextWithTimeout_DeadlineMatchesBudget(t *testing.T) {
	budget := 50 * time.Millisecond
	audit, cancel := DetachContextWithTimeout(context.Background(), budget)
	defer cancel()

	deadline, ok := audit.Deadline()
	if !ok {
		t.Fatal("detached context has no deadline")
	}
	if skew := time.Until(deadline) - budget; skew < -10*time.Millisecond || skew > 10*time.Millisecond {
		t.Errorf("deadline off by %v from the %v budget", skew, budget)
	}
}
