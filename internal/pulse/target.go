package pulse

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/HerbHall/uptimewatch/internal/assertion"
)

// Kind identifies the protocol a target is probed with.
type Kind string

const (
	KindTCP           Kind = "tcp"
	KindHTTP          Kind = "http"
	KindPostgres      Kind = "postgres"
	KindRedis         Kind = "redis"
	KindRabbitMQ      Kind = "rabbitmq"
	KindKafka         Kind = "kafka"
	KindMySQL         Kind = "mysql"
	KindMongoDB       Kind = "mongodb"
	KindElasticsearch Kind = "elasticsearch"
	KindICMP          Kind = "icmp"
)

var kindDisplay = map[Kind]string{
	KindTCP:           "TCP",
	KindHTTP:          "HTTP",
	KindPostgres:      "Postgres",
	KindRedis:         "Redis",
	KindRabbitMQ:      "RabbitMQ",
	KindKafka:         "Kafka",
	KindMySQL:         "MySQL",
	KindMongoDB:       "MongoDB",
	KindElasticsearch: "Elasticsearch",
	KindICMP:          "ICMP",
}

var kindAliases = map[string]Kind{
	"postgresql": KindPostgres,
	"mongo":      KindMongoDB,
	"amqp":       KindRabbitMQ,
	"ping":       KindICMP,
	"https":      KindHTTP,
}

// ParseKind resolves a configured check type.
func ParseKind(s string) (Kind, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if _, ok := kindDisplay[Kind(key)]; ok {
		return Kind(key), nil
	}
	if k, ok := kindAliases[key]; ok {
		return k, nil
	}
	return "", fmt.Errorf("unknown check type %q", s)
}

// DisplayName is the label used in generated aliases ("Postgres", "HTTP").
func (k Kind) DisplayName() string {
	if s, ok := kindDisplay[k]; ok {
		return s
	}
	return string(k)
}

// Target is one immutable thing to probe. It is built once at startup.
type Target struct {
	Alias      string
	Host       string
	Port       int
	MonitorURL string
	Timeout    time.Duration
	Spec       Spec
}

// Kind reports the protocol of the target's spec.
func (t Target) Kind() Kind {
	return t.Spec.Kind()
}

// Addr returns host:port.
func (t Target) Addr() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

// Spec holds the protocol-specific parameters of a target.
type Spec interface {
	Kind() Kind
	// MonitorURL renders the canonical URL shown for the target.
	MonitorURL(host string, port int) string
}

func hostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// TCPSpec probes that a TCP connection can be established.
type TCPSpec struct{}

func (TCPSpec) Kind() Kind { return KindTCP }
func (TCPSpec) MonitorURL(host string, port int) string {
	return "tcp://" + hostPort(host, port)
}

// AuthKind selects how an HTTP check authenticates.
type AuthKind string

const (
	AuthBasic  AuthKind = "basic"
	AuthBearer AuthKind = "bearer"
	AuthOAuth2 AuthKind = "oauth2"
)

// Auth carries HTTP credentials. Only the fields of Kind are used.
type Auth struct {
	Kind         AuthKind
	Username     string
	Password     string
	Token        string
	ClientID     string
	ClientSecret string
	TokenURL     string
}

// HTTPSpec describes an HTTP(S) request and how to judge its response.
type HTTPSpec struct {
	Scheme           string // "http" or "https"
	Method           string
	Path             string
	Headers          map[string]string
	Auth             *Auth
	ExpectedStatus   int
	BodyRegex        string
	CheckCertificate bool
	Assertions       []assertion.Assertion
}

func (HTTPSpec) Kind() Kind { return KindHTTP }
func (s HTTPSpec) MonitorURL(host string, port int) string {
	return s.Scheme + "://" + hostPort(host, port) + s.path()
}

// URL is the request URL for host:port.
func (s HTTPSpec) URL(host string, port int) string {
	return s.MonitorURL(host, port)
}

func (s HTTPSpec) path() string {
	if s.Path == "" || s.Path[0] != '/' {
		return "/" + s.Path
	}
	return s.Path
}

// PostgresSpec runs "SELECT version()".
type PostgresSpec struct {
	Database string
	Username string
	Password string
	SSLMode  string
}

func (PostgresSpec) Kind() Kind { return KindPostgres }
func (s PostgresSpec) MonitorURL(host string, port int) string {
	return "postgres://" + hostPort(host, port) + "/" + s.Database
}

// RedisSpec runs "INFO server".
type RedisSpec struct {
	Username string
	Password string
	Database int
	UseTLS   bool
}

func (RedisSpec) Kind() Kind { return KindRedis }
func (s RedisSpec) MonitorURL(host string, port int) string {
	scheme := "redis"
	if s.UseTLS {
		scheme = "rediss"
	}
	return scheme + "://" + hostPort(host, port) + "/" + strconv.Itoa(s.Database)
}

// RabbitMQSpec opens an AMQP connection on VHost.
type RabbitMQSpec struct {
	Username string
	Password string
	VHost    string
	UseTLS   bool
}

func (RabbitMQSpec) Kind() Kind { return KindRabbitMQ }
func (s RabbitMQSpec) MonitorURL(host string, port int) string {
	scheme := "amqp"
	if s.UseTLS {
		scheme = "amqps"
	}
	vhost := ""
	if s.VHost != "" && s.VHost != "/" {
		vhost = url.PathEscape(s.VHost)
	}
	return scheme + "://" + hostPort(host, port) + "/" + vhost
}

// KafkaSpec reads broker and topic metadata.
type KafkaSpec struct {
	Topic  string
	UseTLS bool
}

func (KafkaSpec) Kind() Kind { return KindKafka }
func (KafkaSpec) MonitorURL(host string, port int) string {
	return "kafka://" + hostPort(host, port)
}

// MySQLSpec runs "SELECT VERSION()".
type MySQLSpec struct {
	Database string
	Username string
	Password string
	UseTLS   bool
}

func (MySQLSpec) Kind() Kind { return KindMySQL }
func (s MySQLSpec) MonitorURL(host string, port int) string {
	return "mysql://" + hostPort(host, port) + "/" + s.Database
}

// MongoDBSpec pings the server and reads buildInfo.
type MongoDBSpec struct {
	Database string
	Username string
	Password string
	UseTLS   bool
}

func (MongoDBSpec) Kind() Kind { return KindMongoDB }
func (s MongoDBSpec) MonitorURL(host string, port int) string {
	return "mongodb://" + hostPort(host, port) + "/" + s.Database
}

// ElasticsearchSpec queries cluster health.
type ElasticsearchSpec struct {
	Username string
	Password string
	Index    string
	UseTLS   bool
}

func (ElasticsearchSpec) Kind() Kind { return KindElasticsearch }
func (s ElasticsearchSpec) MonitorURL(host string, port int) string {
	scheme := "http"
	if s.UseTLS {
		scheme = "https"
	}
	return scheme + "://" + hostPort(host, port)
}

// ICMPSpec sends echo requests.
type ICMPSpec struct {
	Count      int
	Privileged bool
}

func (ICMPSpec) Kind() Kind { return KindICMP }
func (ICMPSpec) MonitorURL(host string, _ int) string {
	return "icmp://" + host
}
