package pulse

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Compile-time interface guard.
var _ Checker = (*MySQLChecker)(nil)

// MySQLChecker connects and runs SELECT VERSION().
type MySQLChecker struct{}

// NewMySQLChecker creates a MySQL checker.
func NewMySQLChecker() *MySQLChecker {
	return &MySQLChecker{}
}

// Check opens a single connection, queries the server version and closes.
func (c *MySQLChecker) Check(ctx context.Context, t Target) Outcome {
	spec, err := specOf[MySQLSpec](t)
	if err != nil {
		return ServiceOutcome{Service: KindMySQL, Result: Unhealthy("%v", err)}
	}

	connector, err := mysql.NewConnector(mysqlConfig(t, spec))
	if err != nil {
		return ServiceOutcome{Service: KindMySQL, Result: Unhealthy("MySQL connection failed: %v", err)}
	}
	db := sql.OpenDB(connector)
	defer db.Close()
	db.SetMaxOpenConns(1)

	start := time.Now()
	conn, err := db.Conn(ctx)
	if err != nil {
		return ServiceOutcome{Service: KindMySQL, Result: errorReason("MySQL connection failed", err)}
	}
	defer conn.Close()

	var version string
	err = conn.QueryRowContext(ctx, "SELECT VERSION()").Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ServiceOutcome{Service: KindMySQL, Result: Unhealthy("MySQL VERSION() query returned no result")}
	case err != nil:
		return ServiceOutcome{Service: KindMySQL, Result: errorReason("MySQL query failed", err)}
	}

	return ServiceOutcome{
		Service: KindMySQL,
		Result:  Healthy(),
		Latency: time.Since(start),
		Info:    mysqlInfo(version),
	}
}

func mysqlConfig(t Target, spec MySQLSpec) *mysql.Config {
	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = t.Addr()
	cfg.User = spec.Username
	cfg.Passwd = spec.Password
	cfg.DBName = spec.Database
	cfg.Timeout = t.Timeout
	cfg.ReadTimeout = t.Timeout
	cfg.WriteTimeout = t.Timeout
	if spec.UseTLS {
		cfg.TLSConfig = "skip-verify"
	}
	return cfg
}

// mysqlInfo drops distribution suffixes: "8.0.36-0ubuntu0.22.04.1" is
// reported as "MySQL v8.0.36".
func mysqlInfo(version string) string {
	v, _, _ := strings.Cut(version, "-")
	return "MySQL v" + v
}
