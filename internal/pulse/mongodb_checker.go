package pulse

import (
	"context"
	"net/url"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Compile-time interface guard.
var _ Checker = (*MongoDBChecker)(nil)

// MongoDBChecker pings the primary and reads buildInfo.
type MongoDBChecker struct{}

// NewMongoDBChecker creates a MongoDB checker.
func NewMongoDBChecker() *MongoDBChecker {
	return &MongoDBChecker{}
}

// Check connects, pings the primary and reports the server version.
// A failed buildInfo still counts as healthy once the ping succeeded.
func (c *MongoDBChecker) Check(ctx context.Context, t Target) Outcome {
	spec, err := specOf[MongoDBSpec](t)
	if err != nil {
		return ServiceOutcome{Service: KindMongoDB, Result: Unhealthy("%v", err)}
	}

	opts := options.Client().ApplyURI(mongoURI(t, spec))
	if t.Timeout > 0 {
		opts.SetConnectTimeout(t.Timeout).SetServerSelectionTimeout(t.Timeout)
	}

	start := time.Now()
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return ServiceOutcome{Service: KindMongoDB, Result: errorReason("MongoDB connection failed", err)}
	}
	defer func() { _ = client.Disconnect(context.WithoutCancel(ctx)) }()

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return ServiceOutcome{Service: KindMongoDB, Result: errorReason("MongoDB ping failed", err)}
	}
	latency := time.Since(start)

	db := spec.Database
	if db == "" {
		db = "admin"
	}
	info := "MongoDB connection successful"
	var build bson.M
	if err := client.Database(db).RunCommand(ctx, bson.D{{Key: "buildInfo", Value: 1}}).Decode(&build); err == nil {
		version, ok := build["version"].(string)
		if !ok {
			version = "unknown"
		}
		info = "MongoDB v" + version
	}

	return ServiceOutcome{Service: KindMongoDB, Result: Healthy(), Latency: latency, Info: info}
}

func mongoURI(t Target, spec MongoDBSpec) string {
	u := url.URL{
		Scheme: "mongodb",
		Host:   t.Addr(),
		Path:   "/" + spec.Database,
	}
	if spec.Username != "" && spec.Password != "" {
		u.User = url.UserPassword(spec.Username, spec.Password)
	}
	if spec.UseTLS {
		u.RawQuery = "ssl=true"
	}
	return u.String()
}
