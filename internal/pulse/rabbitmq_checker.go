package pulse

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Compile-time interface guard.
var _ Checker = (*RabbitMQChecker)(nil)

// RabbitMQChecker completes an AMQP 0-9-1 handshake on the configured vhost.
type RabbitMQChecker struct{}

// NewRabbitMQChecker creates a RabbitMQ checker.
func NewRabbitMQChecker() *RabbitMQChecker {
	return &RabbitMQChecker{}
}

// Check opens and closes a connection, reporting the broker version
// announced during connection negotiation.
func (c *RabbitMQChecker) Check(ctx context.Context, t Target) Outcome {
	spec, err := specOf[RabbitMQSpec](t)
	if err != nil {
		return ServiceOutcome{Service: KindRabbitMQ, Result: Unhealthy("%v", err)}
	}

	start := time.Now()
	conn, err := amqp.DialConfig(amqpURL(t, spec), amqpConfig(ctx, t, spec))
	if err != nil {
		if ctx.Err() != nil {
			return ServiceOutcome{Service: KindRabbitMQ, Result: errorReason("RabbitMQ connection failed", ctx.Err())}
		}
		return ServiceOutcome{Service: KindRabbitMQ, Result: Unhealthy("RabbitMQ connection failed: %v", err)}
	}
	latency := time.Since(start)
	defer conn.Close()

	return ServiceOutcome{
		Service: KindRabbitMQ,
		Result:  Healthy(),
		Latency: latency,
		Info:    "RabbitMQ v" + amqpVersion(conn.Properties),
	}
}

func amqpURL(t Target, spec RabbitMQSpec) string {
	scheme := "amqp"
	if spec.UseTLS {
		scheme = "amqps"
	}
	u := url.URL{Scheme: scheme, Host: t.Addr(), Path: "/"}
	if spec.Username != "" {
		u.User = url.UserPassword(spec.Username, spec.Password)
	}
	return u.String()
}

func amqpConfig(ctx context.Context, t Target, spec RabbitMQSpec) amqp.Config {
	vhost := spec.VHost
	if vhost == "" {
		vhost = "/"
	}
	cfg := amqp.Config{
		Vhost:      vhost,
		Properties: amqp.NewConnectionProperties(),
		Locale:     "en_US",
		Dial: func(network, addr string) (net.Conn, error) {
			var d net.Dialer
			conn, err := d.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			if deadline, ok := ctx.Deadline(); ok {
				_ = conn.SetDeadline(deadline)
			}
			return conn, nil
		},
	}
	cfg.Properties.SetClientConnectionName("uptimewatch")
	if spec.UseTLS {
		cfg.TLSClientConfig = &tls.Config{
			MinVersion:         tls.VersionTLS12,
			ServerName:         t.Host,
			InsecureSkipVerify: true, //nolint:gosec // G402: brokers commonly use self-signed certificates
		}
	}
	return cfg
}

func amqpVersion(props amqp.Table) string {
	if v, ok := props["version"]; ok {
		return fmt.Sprint(v)
	}
	return "unknown"
}
