package dali

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Connection defaults applied by NewClientBuilder.
const (
	DefaultHost      = "localhost"
	DefaultPort      = 8000
	DefaultUsername  = "root"
	DefaultPassword  = "root"
	DefaultNamespace = "test"
	DefaultDatabase  = "test"
)

// ClientConfig holds the connection parameters of a Client.
type ClientConfig struct {
	Host      string `json:"host" yaml:"host"`
	Port      int    `json:"port" yaml:"port"`
	Username  string `json:"username" yaml:"username"`
	Password  string `json:"password" yaml:"password"`
	Namespace string `json:"namespace" yaml:"namespace"`
	Database  string `json:"database" yaml:"database"`
}

// DefaultClientConfig returns the configuration a builder starts from.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Host:      DefaultHost,
		Port:      DefaultPort,
		Username:  DefaultUsername,
		Password:  DefaultPassword,
		Namespace: DefaultNamespace,
		Database:  DefaultDatabase,
	}
}

// Builder returns a ClientBuilder pre-populated with every field of c.
func (c ClientConfig) Builder() *ClientBuilder {
	return NewClientBuilder().
		Host(c.Host).
		Port(c.Port).
		Username(c.Username).
		Password(c.Password).
		Namespace(c.Namespace).
		Database(c.Database)
}

// ClientBuilder accumulates overrides on top of DefaultClientConfig.
// Setters do not validate their input; empty strings and non-positive
// ports are stored as given.
type ClientBuilder struct {
	config    ClientConfig
	timeout   time.Duration
	logger    zerolog.Logger
	metrics   MetricsCollector
	transport http.RoundTripper
}

// NewClientBuilder returns a builder holding the default configuration.
func NewClientBuilder() *ClientBuilder {
	return &ClientBuilder{
		config:  DefaultClientConfig(),
		logger:  zerolog.Nop(),
		metrics: nopMetrics{},
	}
}

// Host sets the server host name.
func (b *ClientBuilder) Host(host string) *ClientBuilder {
	b.config.Host = host
	return b
}

// Port sets the server port.
func (b *ClientBuilder) Port(port int) *ClientBuilder {
	b.config.Port = port
	return b
}

// Username sets the Basic-Auth user.
func (b *ClientBuilder) Username(username string) *ClientBuilder {
	b.config.Username = username
	return b
}

// Password sets the Basic-Auth password.
func (b *ClientBuilder) Password(password string) *ClientBuilder {
	b.config.Password = password
	return b
}

// Namespace sets the value of the NS header.
func (b *ClientBuilder) Namespace(namespace string) *ClientBuilder {
	b.config.Namespace = namespace
	return b
}

// Database sets the value of the DB header.
func (b *ClientBuilder) Database(database string) *ClientBuilder {
	b.config.Database = database
	return b
}

// Timeout bounds every request made by the client. Zero, the default,
// means requests wait until the server answers or the context is done.
func (b *ClientBuilder) Timeout(timeout time.Duration) *ClientBuilder {
	b.timeout = timeout
	return b
}

// Logger sets the logger used for request events. Defaults to zerolog.Nop().
func (b *ClientBuilder) Logger(logger zerolog.Logger) *ClientBuilder {
	b.logger = logger
	return b
}

// Metrics sets the collector notified for every request.
func (b *ClientBuilder) Metrics(metrics MetricsCollector) *ClientBuilder {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	b.metrics = metrics
	return b
}

// Transport sets the RoundTripper used by the per-request http.Client.
// Nil selects http.DefaultTransport.
func (b *ClientBuilder) Transport(transport http.RoundTripper) *ClientBuilder {
	b.transport = transport
	return b
}

// Build returns a Client. The connection fields always have a value, so the
// only failure is a negative Timeout, reported as a *BuildError.
func (b *ClientBuilder) Build() (*Client, error) {
	if b.timeout < 0 {
		return nil, &BuildError{Field: "timeout", Reason: fmt.Sprintf("must be >= 0, got %s", b.timeout)}
	}
	return &Client{
		config:    b.config,
		timeout:   b.timeout,
		logger:    b.logger,
		metrics:   b.metrics,
		transport: b.transport,
	}, nil
}

// Client sends queries to a database HTTP endpoint. It holds no connection
// state and is safe for concurrent use.
type Client struct {
	config    ClientConfig
	timeout   time.Duration
	logger    zerolog.Logger
	metrics   MetricsCollector
	transport http.RoundTripper
}

// Config returns a copy of the client's connection parameters.
func (c *Client) Config() ClientConfig { return c.config }

// SQLEndpoint returns the /sql URL derived from Host and Port. Execute does
// not call it; callers pass the URI explicitly.
func (c *Client) SQLEndpoint() string {
	return fmt.Sprintf("http://%s:%d/sql", c.config.Host, c.config.Port)
}

// authHeader returns the Basic-Auth value for the configured credentials.
func (c *Client) authHeader() string {
	return basicAuth(c.config.Username, c.config.Password)
}

func basicAuth(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}
