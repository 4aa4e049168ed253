package pulse

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// Compile-time interface guard.
var _ Checker = (*ElasticsearchChecker)(nil)

// ElasticsearchChecker queries _cluster/health.
type ElasticsearchChecker struct {
	transport http.RoundTripper
}

// NewElasticsearchChecker creates an Elasticsearch checker. Certificates are
// not verified; clusters commonly run with self-signed certificates.
func NewElasticsearchChecker() *ElasticsearchChecker {
	return &ElasticsearchChecker{
		transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				MinVersion:         tls.VersionTLS12,
				InsecureSkipVerify: true, //nolint:gosec // G402: see constructor comment
			},
			DisableKeepAlives: true,
		},
	}
}

type clusterHealth struct {
	ClusterName string `json:"cluster_name"`
	Status      string `json:"status"`
}

// Check reports the cluster name and health colour. Any 2xx response is
// healthy; a yellow or red cluster is reported in Info only.
func (c *ElasticsearchChecker) Check(ctx context.Context, t Target) Outcome {
	spec, err := specOf[ElasticsearchSpec](t)
	if err != nil {
		return ServiceOutcome{Service: KindElasticsearch, Result: Unhealthy("%v", err)}
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    []string{spec.MonitorURL(t.Host, t.Port)},
		Username:     spec.Username,
		Password:     spec.Password,
		Transport:    c.transport,
		DisableRetry: true,
	})
	if err != nil {
		return ServiceOutcome{Service: KindElasticsearch, Result: Unhealthy("Elasticsearch request failed: %v", err)}
	}

	opts := []func(*esapi.ClusterHealthRequest){es.Cluster.Health.WithContext(ctx)}
	if spec.Index != "" {
		opts = append(opts, es.Cluster.Health.WithIndex(spec.Index))
	}

	start := time.Now()
	res, err := es.Cluster.Health(opts...)
	if err != nil {
		return ServiceOutcome{Service: KindElasticsearch, Result: errorReason("Elasticsearch request failed", err)}
	}
	defer res.Body.Close()
	latency := time.Since(start)

	if res.IsError() {
		return ServiceOutcome{Service: KindElasticsearch, Result: Unhealthy("Elasticsearch returned status: %d", res.StatusCode)}
	}

	info := "Elasticsearch cluster responding"
	var health clusterHealth
	if err := json.NewDecoder(res.Body).Decode(&health); err == nil {
		info = fmt.Sprintf("Elasticsearch cluster '%s' status: %s", orUnknown(health.ClusterName), orUnknown(health.Status))
	}

	return ServiceOutcome{Service: KindElasticsearch, Result: Healthy(), Latency: latency, Info: info}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
