package pulse

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Compile-time interface guard.
var _ prometheus.Collector = (*StatusCollector)(nil)

var monitorLabels = []string{"monitor_name", "monitor_type", "monitor_url", "monitor_hostname", "monitor_port"}

var (
	descStatus = prometheus.NewDesc("monitor_status",
		"Current health of the target (1 = healthy, 0 = unhealthy).", monitorLabels, nil)
	descConsecutiveFailures = prometheus.NewDesc("monitor_consecutive_failures",
		"Number of consecutive failed checks.", monitorLabels, nil)
	descUptime = prometheus.NewDesc("monitor_uptime_percentage",
		"Share of healthy checks in the retained history.", monitorLabels, nil)
	descResponseTime = prometheus.NewDesc("monitor_response_time",
		"Response time of the last check in milliseconds.", monitorLabels, nil)
	descCertDaysRemaining = prometheus.NewDesc("monitor_cert_days_remaining",
		"Days until the TLS certificate expires.", monitorLabels, nil)
	descCertIsValid = prometheus.NewDesc("monitor_cert_is_valid",
		"Whether the TLS certificate is currently valid (1 = valid).", monitorLabels, nil)
)

// StatusCollector exports the state of every target as Prometheus gauges.
// Values are read from the store at scrape time.
type StatusCollector struct {
	store *StatusStore
}

// NewStatusCollector creates a collector over store.
func NewStatusCollector(store *StatusStore) *StatusCollector {
	return &StatusCollector{store: store}
}

func (c *StatusCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- descStatus
	ch <- descConsecutiveFailures
	ch <- descUptime
	ch <- descResponseTime
	ch <- descCertDaysRemaining
	ch <- descCertIsValid
}

func (c *StatusCollector) Collect(ch chan<- prometheus.Metric) {
	for _, ts := range c.store.Snapshot() {
		labels := []string{ts.Alias, string(ts.Kind), ts.MonitorURL, ts.Host, strconv.Itoa(ts.Port)}

		ch <- prometheus.MustNewConstMetric(descStatus, prometheus.GaugeValue, boolGauge(ts.Healthy), labels...)
		ch <- prometheus.MustNewConstMetric(descConsecutiveFailures, prometheus.GaugeValue, float64(ts.ConsecutiveFailures), labels...)
		ch <- prometheus.MustNewConstMetric(descUptime, prometheus.GaugeValue, ts.UptimePercentage, labels...)

		if ts.LastResponseTimeMs != nil {
			ch <- prometheus.MustNewConstMetric(descResponseTime, prometheus.GaugeValue, *ts.LastResponseTimeMs, labels...)
		}
		if ts.Kind != KindHTTP || ts.LastChecked == nil {
			continue
		}
		if ts.CertDaysRemaining != nil {
			ch <- prometheus.MustNewConstMetric(descCertDaysRemaining, prometheus.GaugeValue, float64(*ts.CertDaysRemaining), labels...)
		}
		if ts.CertIsValid != nil {
			ch <- prometheus.MustNewConstMetric(descCertIsValid, prometheus.GaugeValue, boolGauge(*ts.CertIsValid), labels...)
		}
	}
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
