package pulse

import (
	"context"
	"fmt"
	"time"

	probing "github.com/prometheus-community/pro-bing"
	"go.uber.org/zap"
)

// Compile-time interface guard.
var _ Checker = (*ICMPChecker)(nil)

// ICMPChecker sends echo requests and is healthy when any reply arrives.
type ICMPChecker struct {
	logger *zap.Logger
}

// NewICMPChecker creates an ICMP checker.
func NewICMPChecker(logger *zap.Logger) *ICMPChecker {
	return &ICMPChecker{logger: logger}
}

// Check pings the target host Count times. Unprivileged mode uses UDP
// sockets and needs net.ipv4.ping_group_range on Linux.
func (c *ICMPChecker) Check(ctx context.Context, t Target) Outcome {
	spec, err := specOf[ICMPSpec](t)
	if err != nil {
		return ServiceOutcome{Service: KindICMP, Result: Unhealthy("%v", err)}
	}

	pinger, err := probing.NewPinger(t.Host)
	if err != nil {
		return ServiceOutcome{Service: KindICMP, Result: Unhealthy("ICMP setup failed: %v", err)}
	}
	pinger.Count = spec.Count
	if pinger.Count <= 0 {
		pinger.Count = 1
	}
	if t.Timeout > 0 {
		pinger.Timeout = t.Timeout
	}
	pinger.SetPrivileged(spec.Privileged)

	if err := pinger.RunWithContext(ctx); err != nil {
		c.logger.Debug("ping failed", zap.String("target", t.Alias), zap.Error(err))
		return ServiceOutcome{Service: KindICMP, Result: errorReason("ICMP failed", err)}
	}

	stats := pinger.Statistics()
	if stats.PacketsRecv == 0 {
		if ctx.Err() != nil {
			return ServiceOutcome{Service: KindICMP, Result: errorReason("", ctx.Err())}
		}
		return ServiceOutcome{Service: KindICMP, Result: Unhealthy("no echo reply from %s", t.Host)}
	}

	return ServiceOutcome{
		Service: KindICMP,
		Result:  Healthy(),
		Latency: stats.AvgRtt,
		Info:    icmpInfo(stats),
	}
}

func icmpInfo(stats *probing.Statistics) string {
	return fmt.Sprintf("ICMP: %d/%d packets, avg %s", stats.PacketsRecv, stats.PacketsSent, stats.AvgRtt.Round(time.Microsecond))
}
