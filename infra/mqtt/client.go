// Package mqtt publishes finished optimization runs to an MQTT broker.
package mqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/squadopt/core/history"
	"github.com/kilianp07/squadopt/infra/logger"
)

// DefaultTopic receives run records when no topic is configured.
const DefaultTopic = "squadopt/runs"

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker     string      `json:"broker"`
	ClientID   string      `json:"client_id"`
	Username   string      `json:"username"`
	Password   string      `json:"password"`
	Topic      string      `json:"topic"`
	QoS        byte        `json:"qos"`
	Retained   bool        `json:"retained"`
	UseTLS     bool        `json:"use_tls"`
	ClientCert string      `json:"client_cert"`
	ClientKey  string      `json:"client_key"`
	CABundle   string      `json:"ca_bundle"`
	MaxRetries int         `json:"max_retries"`
	BackoffMS  int         `json:"backoff_ms"`
	TimeoutMS  int         `json:"timeout_ms"`
	TLSConfig  *tls.Config `json:"-"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "squadopt-" + uuid.NewString()[:8]
	}
	if c.Topic == "" {
		c.Topic = DefaultTopic
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS <= 0 {
		c.BackoffMS = 100
	}
	if c.TimeoutMS <= 0 {
		c.TimeoutMS = 5000
	}
}

// Validate checks the settings needed to connect.
func (c Config) Validate() error {
	if c.Broker == "" {
		return errors.New("mqtt: broker is required")
	}
	if c.QoS > 2 {
		return fmt.Errorf("mqtt: qos %d out of range", c.QoS)
	}
	return nil
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// Message is the payload published for each run.
type Message struct {
	MessageID   string            `json:"message_id"`
	PublishedAt time.Time         `json:"published_at"`
	Run         history.RunRecord `json:"run"`
}

// Publisher sends run records to a single topic.
type Publisher struct {
	cli        pahoClient
	topic      string
	qos        byte
	retained   bool
	maxRetries int
	backoff    time.Duration
	timeout    time.Duration
	logger     logger.Logger
}

// NewPublisher connects to the broker. Connection events are logged to log;
// a nil log falls back to a default component logger.
func NewPublisher(cfg Config, log logger.Logger) (*Publisher, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.New("mqtt_publisher")
	}
	opts.OnConnect = func(paho.Client) {
		log.Infof("MQTT connected to %s", cfg.Broker)
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}

	c := newMQTTClient(opts)
	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	token := c.Connect()
	if !token.WaitTimeout(timeout) {
		return nil, fmt.Errorf("mqtt: connect to %s timed out after %s", cfg.Broker, timeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt: connect to %s: %w", cfg.Broker, err)
	}
	return &Publisher{
		cli:        c,
		topic:      cfg.Topic,
		qos:        cfg.QoS,
		retained:   cfg.Retained,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
		timeout:    timeout,
		logger:     log,
	}, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
// Without a client certificate only the CA bundle is used.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires ca_bundle")
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caBytes) {
		return nil, fmt.Errorf("ca bundle %s holds no certificate", c.CABundle)
	}
	cfg := &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}
	if c.ClientCert != "" || c.ClientKey != "" {
		cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("load cert: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	return cfg, nil
}

// Publish sends rec and returns the message identifier. Failed attempts are
// retried with exponential backoff until the retries are exhausted or ctx is
// done.
func (p *Publisher) Publish(ctx context.Context, rec history.RunRecord) (string, error) {
	msg := Message{MessageID: uuid.NewString(), PublishedAt: time.Now().UTC(), Run: rec}
	payload, err := json.Marshal(msg)
	if err != nil {
		return "", err
	}

	var publishErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		token := p.cli.Publish(p.topic, p.qos, p.retained, payload)
		if !token.WaitTimeout(p.timeout) {
			publishErr = fmt.Errorf("publish timed out after %s", p.timeout)
		} else {
			publishErr = token.Error()
		}
		if publishErr == nil {
			p.logger.Infof("published run %s to %s", rec.RunID, p.topic)
			return msg.MessageID, nil
		}
		p.logger.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt == p.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(p.backoff * time.Duration(1<<attempt)):
		}
	}
	return "", fmt.Errorf("mqtt: publish run %s: %w", rec.RunID, publishErr)
}

// Disconnect gracefully closes the MQTT connection.
func (p *Publisher) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
