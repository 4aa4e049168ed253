package pulse

import (
	"context"
	"errors"
	"net"
	"syscall"
	"time"
)

// Compile-time interface guard.
var _ Checker = (*TCPChecker)(nil)

// TCPChecker tests that a TCP connection to host:port can be established.
type TCPChecker struct {
	dialer net.Dialer
}

// NewTCPChecker creates a TCP checker. The deadline comes from the context.
func NewTCPChecker() *TCPChecker {
	return &TCPChecker{}
}

// Check dials the target and measures connection time.
func (c *TCPChecker) Check(ctx context.Context, t Target) Outcome {
	start := time.Now()
	conn, err := c.dialer.DialContext(ctx, "tcp", t.Addr())
	elapsed := time.Since(start)

	if err != nil {
		return TCPOutcome{Result: classifyDialError(err)}
	}
	conn.Close()

	return TCPOutcome{Result: Healthy(), Latency: elapsed}
}

// classifyDialError separates refusal and reset from timeouts.
func classifyDialError(err error) Status {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return Unhealthy(ReasonTimeout)
	case errors.Is(err, syscall.ECONNREFUSED):
		return Unhealthy("connection refused")
	case errors.Is(err, syscall.ECONNRESET):
		return Unhealthy("connection reset")
	case errors.Is(err, context.Canceled):
		return Unhealthy("cancelled")
	}
	return Unhealthy("%v", err)
}
