package pulse

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// Compile-time interface guard.
var _ Checker = (*KafkaChecker)(nil)

// KafkaChecker reads cluster metadata from one bootstrap broker.
type KafkaChecker struct{}

// NewKafkaChecker creates a Kafka checker.
func NewKafkaChecker() *KafkaChecker {
	return &KafkaChecker{}
}

// Check dials the broker and counts brokers and topics. With a topic
// configured only that topic's metadata is requested.
func (c *KafkaChecker) Check(ctx context.Context, t Target) Outcome {
	spec, err := specOf[KafkaSpec](t)
	if err != nil {
		return ServiceOutcome{Service: KindKafka, Result: Unhealthy("%v", err)}
	}

	dialer := &kafka.Dialer{Timeout: t.Timeout, DualStack: true}
	if spec.UseTLS {
		dialer.TLS = &tls.Config{MinVersion: tls.VersionTLS12, ServerName: t.Host}
	}

	start := time.Now()
	conn, err := dialer.DialContext(ctx, "tcp", t.Addr())
	if err != nil {
		return ServiceOutcome{Service: KindKafka, Result: errorReason("Kafka error", err)}
	}
	defer conn.Close()
	if err := applyDeadline(ctx, conn); err != nil {
		return ServiceOutcome{Service: KindKafka, Result: errorReason("Kafka error", err)}
	}

	brokers, err := conn.Brokers()
	if err != nil {
		return ServiceOutcome{Service: KindKafka, Result: errorReason("Kafka error", err)}
	}

	var partitions []kafka.Partition
	if spec.Topic != "" {
		partitions, err = conn.ReadPartitions(spec.Topic)
	} else {
		partitions, err = conn.ReadPartitions()
	}
	if err != nil {
		return ServiceOutcome{Service: KindKafka, Result: errorReason("Kafka error", err)}
	}

	return ServiceOutcome{
		Service: KindKafka,
		Result:  Healthy(),
		Latency: time.Since(start),
		Info:    fmt.Sprintf("Kafka: %d brokers, %d topics", len(brokers), countTopics(partitions)),
	}
}

func countTopics(partitions []kafka.Partition) int {
	seen := make(map[string]struct{}, len(partitions))
	for _, p := range partitions {
		seen[p.Topic] = struct{}{}
	}
	return len(seen)
}

// applyDeadline bounds the connection's blocking calls by ctx's deadline.
func applyDeadline(ctx context.Context, conn interface{ SetDeadline(time.Time) error }) error {
	deadline, ok := ctx.Deadline()
	if !ok {
		return nil
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("set deadline: %w", err)
	}
	return nil
}
