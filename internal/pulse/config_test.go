package pulse

import (
	"strings"
	"testing"
	"time"

	"go.uber.org/multierr"
)

func boolRef(b bool) *bool { return &b }

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Interval != 60*time.Second {
		t.Errorf("Interval = %v, want 60s", cfg.Interval)
	}
	if cfg.KeepHistory != 24*time.Hour {
		t.Errorf("KeepHistory = %v, want 24h", cfg.KeepHistory)
	}
	if cfg.MaxHistory != 2880 {
		t.Errorf("MaxHistory = %d, want 2880", cfg.MaxHistory)
	}
}

func TestDefaultTimeout(t *testing.T) {
	tests := []struct {
		kind Kind
		want time.Duration
	}{
		{KindTCP, 5 * time.Second},
		{KindRedis, 5 * time.Second},
		{KindICMP, 5 * time.Second},
		{KindHTTP, 10 * time.Second},
		{KindPostgres, 10 * time.Second},
		{KindKafka, 10 * time.Second},
	}
	for _, tt := range tests {
		if got := DefaultTimeout(tt.kind); got != tt.want {
			t.Errorf("DefaultTimeout(%s) = %v, want %v", tt.kind, got, tt.want)
		}
	}
}

func TestBuildTargets_OrderAndAliases(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Hosts = []HostConfig{
		{
			Address: "example.com",
			Alias:   "Example",
			Checks: []CheckConfig{
				{Type: "http", Port: 443, Protocol: "https", Path: "/health"},
				{Type: "tcp", Port: 22, Name: "Example SSH"},
			},
		},
		{
			Address: "10.0.0.5",
			Checks: []CheckConfig{
				{Type: "postgresql", Port: 5432, Database: "app", Username: "svc"},
				{Type: "redis", Port: 6379, Database: "2"},
				{Type: "ping"},
			},
		},
	}

	targets, err := BuildTargets(cfg)
	if err != nil {
		t.Fatalf("BuildTargets() error = %v", err)
	}

	want := []struct {
		alias string
		kind  Kind
		url   string
	}{
		{"Example (HTTP:443)", KindHTTP, "https://example.com:443/health"},
		{"Example SSH", KindTCP, "tcp://example.com:22"},
		{"10.0.0.5 (Postgres:5432)", KindPostgres, "postgres://10.0.0.5:5432/app"},
		{"10.0.0.5 (Redis:6379)", KindRedis, "redis://10.0.0.5:6379/2"},
		{"10.0.0.5 (ICMP)", KindICMP, "icmp://10.0.0.5"},
	}
	if len(targets) != len(want) {
		t.Fatalf("len(targets) = %d, want %d", len(targets), len(want))
	}
	for i, w := range want {
		if targets[i].Alias != w.alias {
			t.Errorf("targets[%d].Alias = %q, want %q", i, targets[i].Alias, w.alias)
		}
		if targets[i].Kind() != w.kind {
			t.Errorf("targets[%d].Kind() = %q, want %q", i, targets[i].Kind(), w.kind)
		}
		if targets[i].MonitorURL != w.url {
			t.Errorf("targets[%d].MonitorURL = %q, want %q", i, targets[i].MonitorURL, w.url)
		}
	}
}

func TestBuildTargets_Defaults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Hosts = []HostConfig{{
		Address: "svc.local",
		Checks: []CheckConfig{
			{Type: "http", Port: 80},
			{Type: "tcp", Port: 22},
			{Type: "rabbitmq", Port: 5672},
			{Type: "icmp"},
			{Type: "kafka", Port: 9092, TimeoutSeconds: 3},
			{Type: "http", Port: 8443, Protocol: "https", CheckSSLCertificate: boolRef(false), Timeout: 1500 * time.Millisecond},
		},
	}}

	targets, err := BuildTargets(cfg)
	if err != nil {
		t.Fatalf("BuildTargets() error = %v", err)
	}

	httpSpec := targets[0].Spec.(HTTPSpec)
	if httpSpec.Method != "GET" || httpSpec.ExpectedStatus != 200 || !httpSpec.CheckCertificate || httpSpec.Scheme != "http" {
		t.Errorf("HTTP defaults = %+v", httpSpec)
	}
	if targets[0].Timeout != 10*time.Second {
		t.Errorf("HTTP timeout = %v, want 10s", targets[0].Timeout)
	}
	if targets[1].Timeout != 5*time.Second {
		t.Errorf("TCP timeout = %v, want 5s", targets[1].Timeout)
	}
	if vhost := targets[2].Spec.(RabbitMQSpec).VHost; vhost != "/" {
		t.Errorf("RabbitMQ vhost = %q, want /", vhost)
	}
	if targets[2].MonitorURL != "amqp://svc.local:5672/" {
		t.Errorf("RabbitMQ MonitorURL = %q", targets[2].MonitorURL)
	}
	if count := targets[3].Spec.(ICMPSpec).Count; count != 3 {
		t.Errorf("ICMP count = %d, want 3", count)
	}
	if targets[4].Timeout != 3*time.Second {
		t.Errorf("timeout_seconds = %v, want 3s", targets[4].Timeout)
	}
	if targets[5].Timeout != 1500*time.Millisecond {
		t.Errorf("timeout = %v, want 1.5s", targets[5].Timeout)
	}
	if targets[5].Spec.(HTTPSpec).CheckCertificate {
		t.Error("CheckCertificate = true, want false when disabled")
	}
}

func TestBuildTargets_HTTPAuthAndAssertions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Hosts = []HostConfig{{
		Address: "api.example.com",
		Checks: []CheckConfig{{
			Type: "http", Port: 443, Protocol: "https", Method: "post",
			Auth: &AuthConfig{Type: "OAuth2", ClientID: "id", ClientSecret: "s", TokenURL: "https://idp/token"},
			Assertions: []AssertionConfig{
				{Query: "status", Predicate: "==", Value: 200},
				{Query: "jsonpath[$.ok]", Predicate: "isBoolean"},
			},
		}},
	}}

	targets, err := BuildTargets(cfg)
	if err != nil {
		t.Fatalf("BuildTargets() error = %v", err)
	}
	spec := targets[0].Spec.(HTTPSpec)
	if spec.Method != "POST" {
		t.Errorf("Method = %q, want POST", spec.Method)
	}
	if spec.Auth == nil || spec.Auth.Kind != AuthOAuth2 {
		t.Errorf("Auth = %+v, want oauth2", spec.Auth)
	}
	if len(spec.Assertions) != 2 {
		t.Errorf("len(Assertions) = %d, want 2", len(spec.Assertions))
	}
}

func TestBuildTargets_AggregatesErrors(t *testing.T) {
	cfg := MonitorConfig{
		Interval:    0,
		KeepHistory: time.Hour,
		MaxHistory:  10,
		Hosts: []HostConfig{
			{Address: "", Checks: []CheckConfig{{Type: "tcp", Port: 1}}},
			{Address: "h", Checks: []CheckConfig{
				{Type: "gopher", Port: 70},
				{Type: "tcp", Port: 70000},
				{Type: "http", Port: 80, Method: "TRACE", BodyRegexCheck: "(["},
				{Type: "http", Port: 80, Auth: &AuthConfig{Type: "bearer"}},
				{Type: "http", Port: 80, Assertions: []AssertionConfig{{Query: "nope", Predicate: "=="}}},
				{Type: "postgres", Port: 5432, SSLMode: "sometimes"},
				{Type: "redis", Port: 6379, Database: "zero"},
			}},
		},
	}

	targets, err := BuildTargets(cfg)
	if err == nil {
		t.Fatal("BuildTargets() error = nil, want errors")
	}
	if targets != nil {
		t.Errorf("targets = %v, want nil on error", targets)
	}

	msg := err.Error()
	for _, want := range []string{
		"monitor.interval must be positive",
		"hosts[0]: address is required",
		`unknown check type "gopher"`,
		"port 70000 out of range",
		`unsupported method "TRACE"`,
		"invalid body_regex_check",
		"bearer auth requires token",
		"hosts[1].checks[4]: http check: assertions[0]",
		`unknown ssl_mode "sometimes"`,
		`database must be a non-negative integer, got "zero"`,
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("error missing %q\ngot: %s", want, msg)
		}
	}
	if n := len(multierr.Errors(err)); n < 8 {
		t.Errorf("len(multierr.Errors) = %d, want every problem reported", n)
	}
}

func TestMonitorConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Hosts = []HostConfig{{Address: "h", Checks: []CheckConfig{{Type: "tcp", Port: 22}}}}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	cfg.MaxHistory = -1
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() error = nil for negative max_history")
	}
}

func TestMonitorConfig_ValidateHistoryBounds(t *testing.T) {
	tests := []struct {
		name        string
		keepHistory time.Duration
		maxHistory  int
		wantErr     string
	}{
		{"both set", time.Hour, 100, ""},
		{"window disabled", 0, 100, ""},
		{"count cap disabled", time.Hour, 0, ""},
		{"both disabled", 0, 0, "cannot both be zero"},
		{"negative window", -time.Hour, 100, "keep_history must not be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.KeepHistory = tt.keepHistory
			cfg.MaxHistory = tt.maxHistory
			err := cfg.Validate()
			switch {
			case tt.wantErr == "" && err != nil:
				t.Errorf("Validate() error = %v, want nil", err)
			case tt.wantErr != "" && (err == nil || !strings.Contains(err.Error(), tt.wantErr)):
				t.Errorf("Validate() error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestBuildTargets_HTTPMethods(t *testing.T) {
	for _, method := range []string{"get", "HEAD", "post", "PUT", "patch", "DELETE", "options"} {
		cfg := DefaultConfig()
		cfg.Hosts = []HostConfig{{Address: "h", Checks: []CheckConfig{{Type: "http", Port: 80, Method: method}}}}
		targets, err := BuildTargets(cfg)
		if err != nil {
			t.Errorf("method %q: BuildTargets() error = %v", method, err)
			continue
		}
		if got := targets[0].Spec.(HTTPSpec).Method; got != strings.ToUpper(method) {
			t.Errorf("Method = %q, want %q", got, strings.ToUpper(method))
		}
	}
}

func TestMonitorConfig_ValidateNotifiers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Notifiers = []NotifierConfig{
		{Type: "webhook", URL: "https://hooks.example.com/uptime"},
		{Type: "pager", URL: "https://pager.example.com"},
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() error = nil for unknown notifier type")
	}
	if !strings.Contains(err.Error(), `notifiers[1]: unknown notifier type "pager"`) {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"tcp", KindTCP, false},
		{"HTTP", KindHTTP, false},
		{"https", KindHTTP, false},
		{"PostgreSQL", KindPostgres, false},
		{"mongo", KindMongoDB, false},
		{"amqp", KindRabbitMQ, false},
		{" elasticsearch ", KindElasticsearch, false},
		{"smtp", "", true},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseKind(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseKind(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
