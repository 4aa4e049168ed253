package pulse

import (
	"context"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// Compile-time interface guard.
var _ Checker = (*PostgresChecker)(nil)

// PostgresChecker connects and runs SELECT version().
type PostgresChecker struct{}

// NewPostgresChecker creates a Postgres checker.
func NewPostgresChecker() *PostgresChecker {
	return &PostgresChecker{}
}

// Check opens a fresh connection for every probe so pool state never
// masks a server that stopped accepting connections.
func (c *PostgresChecker) Check(ctx context.Context, t Target) Outcome {
	spec, err := specOf[PostgresSpec](t)
	if err != nil {
		return ServiceOutcome{Service: KindPostgres, Result: Unhealthy("%v", err)}
	}

	start := time.Now()
	conn, err := pgx.Connect(ctx, postgresDSN(t, spec))
	if err != nil {
		return ServiceOutcome{Service: KindPostgres, Result: errorReason("Connection failed", err)}
	}
	defer conn.Close(context.WithoutCancel(ctx))

	var version string
	if err := conn.QueryRow(ctx, "SELECT version()").Scan(&version); err != nil {
		return ServiceOutcome{Service: KindPostgres, Result: errorReason("Query failed", err)}
	}

	return ServiceOutcome{
		Service: KindPostgres,
		Result:  Healthy(),
		Latency: time.Since(start),
		Info:    postgresInfo(version),
	}
}

func postgresDSN(t Target, spec PostgresSpec) string {
	u := url.URL{
		Scheme: "postgres",
		Host:   t.Addr(),
		Path:   "/" + spec.Database,
	}
	if spec.Username != "" {
		u.User = url.UserPassword(spec.Username, spec.Password)
	}
	q := url.Values{}
	mode := spec.SSLMode
	if mode == "" {
		mode = "prefer"
	}
	q.Set("sslmode", mode)
	if t.Timeout > 0 {
		q.Set("connect_timeout", strconv.Itoa(int(math.Ceil(t.Timeout.Seconds()))))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// postgresInfo keeps the product and version words of version() output,
// e.g. "PostgreSQL 16.2 on x86_64-pc-linux-gnu, ..." becomes "PostgreSQL 16.2".
func postgresInfo(version string) string {
	fields := strings.Fields(version)
	if len(fields) > 2 {
		fields = fields[:2]
	}
	if len(fields) == 0 {
		return "PostgreSQL"
	}
	return strings.TrimSuffix(strings.Join(fields, " "), ",")
}
