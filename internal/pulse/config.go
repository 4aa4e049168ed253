package pulse

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/HerbHall/uptimewatch/internal/assertion"
	"go.uber.org/multierr"
)

// MonitorConfig is the "monitor" section of the configuration file.
type MonitorConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	KeepHistory time.Duration `mapstructure:"keep_history"`
	MaxHistory  int           `mapstructure:"max_history"`
	Hosts       []HostConfig  `mapstructure:"hosts"`
	// Notifiers receive target down and recovery transitions.
	Notifiers []NotifierConfig `mapstructure:"notifiers"`
}

// HostConfig groups the checks run against one address.
type HostConfig struct {
	Address string        `mapstructure:"address"`
	Alias   string        `mapstructure:"alias"`
	Checks  []CheckConfig `mapstructure:"checks"`
}

// CheckConfig is one check definition. Type selects which fields apply.
type CheckConfig struct {
	Type           string        `mapstructure:"type"`
	Name           string        `mapstructure:"name"`
	Port           int           `mapstructure:"port"`
	Timeout        time.Duration `mapstructure:"timeout"`
	TimeoutSeconds int           `mapstructure:"timeout_seconds"`

	// HTTP
	Protocol            string            `mapstructure:"protocol"`
	Path                string            `mapstructure:"path"`
	Method              string            `mapstructure:"method"`
	Headers             map[string]string `mapstructure:"headers"`
	ExpectedStatusCode  int               `mapstructure:"expected_status_code"`
	BodyRegexCheck      string            `mapstructure:"body_regex_check"`
	CheckSSLCertificate *bool             `mapstructure:"check_ssl_certificate"`
	Auth                *AuthConfig       `mapstructure:"auth"`
	Assertions          []AssertionConfig `mapstructure:"assertions"`

	// Databases and brokers
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"ssl_mode"`
	UseTLS   bool   `mapstructure:"use_tls"`
	VHost    string `mapstructure:"vhost"`
	Topic    string `mapstructure:"topic"`
	Index    string `mapstructure:"index"`

	// ICMP
	Count      int  `mapstructure:"count"`
	Privileged bool `mapstructure:"privileged"`
}

// AuthConfig holds HTTP credentials. Type is basic, bearer or oauth2.
type AuthConfig struct {
	Type         string `mapstructure:"type"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Token        string `mapstructure:"token"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	TokenURL     string `mapstructure:"token_url"`
}

// AssertionConfig is the configuration form of an assertion, e.g.
// {query: "jsonpath[$.status]", predicate: "==", value: "ok"}.
type AssertionConfig struct {
	Query     string `mapstructure:"query"`
	Predicate string `mapstructure:"predicate"`
	Value     any    `mapstructure:"value"`
}

// DefaultConfig returns the monitor defaults.
func DefaultConfig() MonitorConfig {
	return MonitorConfig{
		Interval:    60 * time.Second,
		KeepHistory: 24 * time.Hour,
		MaxHistory:  2880,
	}
}

// DefaultTimeout is the probe timeout used when a check sets none.
func DefaultTimeout(k Kind) time.Duration {
	switch k {
	case KindTCP, KindRedis, KindICMP:
		return 5 * time.Second
	default:
		return 10 * time.Second
	}
}

const defaultICMPCount = 3

var httpMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodPost:    true,
	http.MethodHead:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
}

var postgresSSLModes = map[string]bool{
	"disable": true, "allow": true, "prefer": true,
	"require": true, "verify-ca": true, "verify-full": true,
}

// Validate reports every problem in the configuration at once.
func (c MonitorConfig) Validate() error {
	_, err := BuildTargets(c)
	_, nerr := buildNotifiers(c.Notifiers)
	return multierr.Append(err, nerr)
}

// BuildTargets flattens hosts and their checks, in configuration order, into
// immutable targets. Target i owns status slot i.
func BuildTargets(c MonitorConfig) ([]Target, error) {
	var errs error
	if c.Interval <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("monitor.interval must be positive, got %v", c.Interval))
	}
	if c.KeepHistory < 0 {
		errs = multierr.Append(errs, fmt.Errorf("monitor.keep_history must not be negative, got %v", c.KeepHistory))
	}
	if c.MaxHistory < 0 {
		errs = multierr.Append(errs, fmt.Errorf("monitor.max_history must not be negative, got %d", c.MaxHistory))
	}
	if c.KeepHistory == 0 && c.MaxHistory == 0 {
		errs = multierr.Append(errs, errors.New("monitor.keep_history and monitor.max_history cannot both be zero"))
	}

	var targets []Target
	for hi, h := range c.Hosts {
		if strings.TrimSpace(h.Address) == "" {
			errs = multierr.Append(errs, fmt.Errorf("hosts[%d]: address is required", hi))
			continue
		}
		for ci, cc := range h.Checks {
			t, err := buildTarget(h, cc)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("hosts[%d].checks[%d]: %w", hi, ci, err))
				continue
			}
			targets = append(targets, t)
		}
	}
	if errs != nil {
		return nil, errs
	}
	return targets, nil
}

func buildTarget(h HostConfig, cc CheckConfig) (Target, error) {
	kind, err := ParseKind(cc.Type)
	if err != nil {
		return Target{}, err
	}
	if kind != KindICMP && (cc.Port < 1 || cc.Port > 65535) {
		return Target{}, fmt.Errorf("%s check: port %d out of range 1-65535", kind, cc.Port)
	}

	spec, err := buildSpec(kind, cc)
	if err != nil {
		return Target{}, fmt.Errorf("%s check: %w", kind, err)
	}

	timeout, err := checkTimeout(kind, cc)
	if err != nil {
		return Target{}, fmt.Errorf("%s check: %w", kind, err)
	}

	t := Target{
		Alias:   targetAlias(h, cc, kind),
		Host:    h.Address,
		Port:    cc.Port,
		Timeout: timeout,
		Spec:    spec,
	}
	t.MonitorURL = spec.MonitorURL(t.Host, t.Port)
	return t, nil
}

// targetAlias is the check name, or "<host alias or address> (<Type>:<port>)".
func targetAlias(h HostConfig, cc CheckConfig, kind Kind) string {
	if cc.Name != "" {
		return cc.Name
	}
	host := h.Alias
	if host == "" {
		host = h.Address
	}
	if kind == KindICMP {
		return fmt.Sprintf("%s (%s)", host, kind.DisplayName())
	}
	return fmt.Sprintf("%s (%s:%d)", host, kind.DisplayName(), cc.Port)
}

func checkTimeout(kind Kind, cc CheckConfig) (time.Duration, error) {
	switch {
	case cc.Timeout < 0 || cc.TimeoutSeconds < 0:
		return 0, errors.New("timeout must not be negative")
	case cc.Timeout > 0:
		return cc.Timeout, nil
	case cc.TimeoutSeconds > 0:
		return time.Duration(cc.TimeoutSeconds) * time.Second, nil
	default:
		return DefaultTimeout(kind), nil
	}
}

func buildSpec(kind Kind, cc CheckConfig) (Spec, error) {
	switch kind {
	case KindTCP:
		return TCPSpec{}, nil
	case KindHTTP:
		return buildHTTPSpec(cc)
	case KindPostgres:
		mode := strings.ToLower(cc.SSLMode)
		if mode == "" {
			mode = "prefer"
		}
		if !postgresSSLModes[mode] {
			return nil, fmt.Errorf("unknown ssl_mode %q", cc.SSLMode)
		}
		if cc.Database == "" || cc.Username == "" {
			return nil, errors.New("database and username are required")
		}
		return PostgresSpec{Database: cc.Database, Username: cc.Username, Password: cc.Password, SSLMode: mode}, nil
	case KindRedis:
		db := 0
		if cc.Database != "" {
			n, err := strconv.Atoi(cc.Database)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("database must be a non-negative integer, got %q", cc.Database)
			}
			db = n
		}
		return RedisSpec{Username: cc.Username, Password: cc.Password, Database: db, UseTLS: cc.UseTLS}, nil
	case KindRabbitMQ:
		vhost := cc.VHost
		if vhost == "" {
			vhost = "/"
		}
		return RabbitMQSpec{Username: cc.Username, Password: cc.Password, VHost: vhost, UseTLS: cc.UseTLS}, nil
	case KindKafka:
		return KafkaSpec{Topic: cc.Topic, UseTLS: cc.UseTLS}, nil
	case KindMySQL:
		if cc.Database == "" || cc.Username == "" {
			return nil, errors.New("database and username are required")
		}
		return MySQLSpec{Database: cc.Database, Username: cc.Username, Password: cc.Password, UseTLS: cc.UseTLS}, nil
	case KindMongoDB:
		return MongoDBSpec{Database: cc.Database, Username: cc.Username, Password: cc.Password, UseTLS: cc.UseTLS}, nil
	case KindElasticsearch:
		return ElasticsearchSpec{Username: cc.Username, Password: cc.Password, Index: cc.Index, UseTLS: cc.UseTLS}, nil
	case KindICMP:
		count := cc.Count
		if count == 0 {
			count = defaultICMPCount
		}
		if count < 0 {
			return nil, fmt.Errorf("count must be positive, got %d", cc.Count)
		}
		return ICMPSpec{Count: count, Privileged: cc.Privileged}, nil
	}
	return nil, fmt.Errorf("unsupported check type %q", kind)
}

func buildHTTPSpec(cc CheckConfig) (Spec, error) {
	var errs error

	scheme := strings.ToLower(cc.Protocol)
	switch {
	case scheme == "" && strings.EqualFold(cc.Type, "https"):
		scheme = "https"
	case scheme == "":
		scheme = "http"
	case scheme != "http" && scheme != "https":
		errs = multierr.Append(errs, fmt.Errorf("protocol must be http or https, got %q", cc.Protocol))
	}

	method := strings.ToUpper(cc.Method)
	if method == "" {
		method = http.MethodGet
	}
	if !httpMethods[method] {
		errs = multierr.Append(errs, fmt.Errorf("unsupported method %q", cc.Method))
	}

	status := cc.ExpectedStatusCode
	if status == 0 {
		status = http.StatusOK
	}
	if status < 100 || status > 599 {
		errs = multierr.Append(errs, fmt.Errorf("expected_status_code %d out of range", status))
	}

	if cc.BodyRegexCheck != "" {
		if _, err := regexp.Compile(cc.BodyRegexCheck); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("invalid body_regex_check %q: %w", cc.BodyRegexCheck, err))
		}
	}

	auth, err := buildAuth(cc.Auth)
	errs = multierr.Append(errs, err)

	assertions := make([]assertion.Assertion, 0, len(cc.Assertions))
	for i, ac := range cc.Assertions {
		a, err := assertion.New(ac.Query, ac.Predicate, ac.Value)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("assertions[%d]: %w", i, err))
			continue
		}
		assertions = append(assertions, a)
	}

	if errs != nil {
		return nil, errs
	}

	checkCert := true
	if cc.CheckSSLCertificate != nil {
		checkCert = *cc.CheckSSLCertificate
	}
	return HTTPSpec{
		Scheme:           scheme,
		Method:           method,
		Path:             cc.Path,
		Headers:          cc.Headers,
		Auth:             auth,
		ExpectedStatus:   status,
		BodyRegex:        cc.BodyRegexCheck,
		CheckCertificate: checkCert,
		Assertions:       assertions,
	}, nil
}

func buildAuth(ac *AuthConfig) (*Auth, error) {
	if ac == nil {
		return nil, nil
	}
	a := &Auth{
		Kind:         AuthKind(strings.ToLower(ac.Type)),
		Username:     ac.Username,
		Password:     ac.Password,
		Token:        ac.Token,
		ClientID:     ac.ClientID,
		ClientSecret: ac.ClientSecret,
		TokenURL:     ac.TokenURL,
	}
	switch a.Kind {
	case AuthBasic:
		if a.Username == "" {
			return nil, errors.New("basic auth requires username")
		}
	case AuthBearer:
		if a.Token == "" {
			return nil, errors.New("bearer auth requires token")
		}
	case AuthOAuth2:
		if a.ClientID == "" || a.TokenURL == "" {
			return nil, errors.New("oauth2 auth requires client_id and token_url")
		}
	default:
		return nil, fmt.Errorf("unknown auth type %q", ac.Type)
	}
	return a, nil
}
