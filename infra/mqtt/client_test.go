package mqtt

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"math/big"
	"os"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/squadopt/core/history"
	"github.com/kilianp07/squadopt/infra/logger"
)

// helper to generate self-signed cert
func generateCert(t *testing.T) (certFile, keyFile, caFile string) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tmpl := x509.Certificate{SerialNumber: big.NewInt(1), Subject: pkix.Name{CommonName: "test"}, NotBefore: time.Now(), NotAfter: time.Now().Add(time.Hour)}
	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &priv.PublicKey, priv)
	require.NoError(t, err)
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)})

	dir := t.TempDir()
	certFile = dir + "/cert.pem"
	keyFile = dir + "/key.pem"
	caFile = dir + "/ca.pem"
	require.NoError(t, os.WriteFile(certFile, certPEM, 0o644))
	require.NoError(t, os.WriteFile(keyFile, keyPEM, 0o644))
	require.NoError(t, os.WriteFile(caFile, certPEM, 0o644))
	return
}

func withMock(t *testing.T, mc *mockClient) {
	t.Helper()
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	t.Cleanup(func() { newMQTTClient = func(opts *paho.ClientOptions) pahoClient { return paho.NewClient(opts) } })
}

func TestLoadTLSConfig(t *testing.T) {
	cert, key, ca := generateCert(t)
	tlsCfg, err := Config{UseTLS: true, ClientCert: cert, ClientKey: key, CABundle: ca}.LoadTLSConfig()
	require.NoError(t, err)
	assert.Len(t, tlsCfg.Certificates, 1)
	assert.NotNil(t, tlsCfg.RootCAs)

	tlsCfg, err = Config{UseTLS: true, CABundle: ca}.LoadTLSConfig()
	require.NoError(t, err)
	assert.Empty(t, tlsCfg.Certificates)

	_, err = Config{UseTLS: true}.LoadTLSConfig()
	assert.Error(t, err)
}

func TestNewClientOptionsAuth(t *testing.T) {
	opts, err := NewClientOptions(Config{Broker: "tcp://localhost:1883", ClientID: "id", Username: "u", Password: "p"})
	require.NoError(t, err)
	assert.Equal(t, "u", opts.Username)
	assert.Equal(t, "p", opts.Password)
	assert.Equal(t, "id", opts.ClientID)
}

func TestConfigDefaultsAndValidate(t *testing.T) {
	var cfg Config
	cfg.SetDefaults()
	assert.Equal(t, DefaultTopic, cfg.Topic)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.NotEmpty(t, cfg.ClientID)
	assert.Error(t, cfg.Validate())

	cfg.Broker = "tcp://localhost:1883"
	assert.NoError(t, cfg.Validate())
	cfg.QoS = 3
	assert.Error(t, cfg.Validate())
}

func TestPublish(t *testing.T) {
	mc := &mockClient{}
	withMock(t, mc)
	pub, err := NewPublisher(Config{Broker: "tcp://localhost:1883", ClientID: "id", Topic: "fpl/squads", QoS: 1, Retained: true}, logger.NopLogger{})
	require.NoError(t, err)

	rec := history.RunRecord{RunID: "run1", Criterion: "xP", Formation: "3-4-3", Objective: 61.5}
	id, err := pub.Publish(context.Background(), rec)
	require.NoError(t, err)
	require.Len(t, mc.published, 1)

	got := mc.published[0]
	assert.Equal(t, "fpl/squads", got.topic)
	assert.Equal(t, byte(1), got.qos)
	assert.True(t, got.retained)

	var msg Message
	require.NoError(t, json.Unmarshal(got.payload, &msg))
	assert.Equal(t, id, msg.MessageID)
	assert.Equal(t, "run1", msg.Run.RunID)
	assert.Equal(t, 61.5, msg.Run.Objective)

	pub.Disconnect()
	assert.True(t, mc.disconnected)
}

func TestPublishRetries(t *testing.T) {
	mc := &mockClient{publishErrs: []error{fmt.Errorf("net fail"), nil}}
	withMock(t, mc)
	pub, err := NewPublisher(Config{Broker: "tcp://localhost:1883", MaxRetries: 1, BackoffMS: 1}, logger.NopLogger{})
	require.NoError(t, err)

	_, err = pub.Publish(context.Background(), history.RunRecord{RunID: "run1"})
	require.NoError(t, err)
	assert.Len(t, mc.published, 2)
}

func TestPublishGivesUp(t *testing.T) {
	fail := fmt.Errorf("net fail")
	mc := &mockClient{publishErrs: []error{fail, fail, fail}}
	withMock(t, mc)
	pub, err := NewPublisher(Config{Broker: "tcp://localhost:1883", MaxRetries: 2, BackoffMS: 1}, logger.NopLogger{})
	require.NoError(t, err)

	_, err = pub.Publish(context.Background(), history.RunRecord{RunID: "run1"})
	assert.ErrorIs(t, err, fail)
	assert.Len(t, mc.published, 3)
}

func TestPublishCanceledDuringBackoff(t *testing.T) {
	fail := fmt.Errorf("net fail")
	mc := &mockClient{publishErrs: []error{fail, fail}}
	withMock(t, mc)
	pub, err := NewPublisher(Config{Broker: "tcp://localhost:1883", MaxRetries: 5, BackoffMS: 60_000}, logger.NopLogger{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = pub.Publish(ctx, history.RunRecord{RunID: "run1"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, mc.published, 1)
}

func TestNewPublisherConnectError(t *testing.T) {
	mc := &mockClient{connectErr: fmt.Errorf("refused")}
	withMock(t, mc)
	_, err := NewPublisher(Config{Broker: "tcp://localhost:1883"}, logger.NopLogger{})
	assert.ErrorContains(t, err, "refused")

	_, err = NewPublisher(Config{}, logger.NopLogger{})
	assert.Error(t, err)
}

type recordingLogger struct {
	logger.NopLogger
	infos  []string
	errors []string
}

func (r *recordingLogger) Infof(format string, args ...any) {
	r.infos = append(r.infos, fmt.Sprintf(format, args...))
}

func (r *recordingLogger) Errorf(format string, args ...any) {
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}

func TestNewPublisherUsesGivenLogger(t *testing.T) {
	mc := &mockClient{}
	withMock(t, mc)
	rec := &recordingLogger{}
	pub, err := NewPublisher(Config{Broker: "tcp://localhost:1883"}, rec)
	require.NoError(t, err)
	defer pub.Disconnect()

	mc.opts.OnConnect(nil)
	mc.opts.OnConnectionLost(nil, fmt.Errorf("reset"))
	assert.Equal(t, []string{"MQTT connected to tcp://localhost:1883"}, rec.infos)
	assert.Equal(t, []string{"connection lost: reset"}, rec.errors)
}

func TestNewPublisherNilLogger(t *testing.T) {
	mc := &mockClient{}
	withMock(t, mc)
	pub, err := NewPublisher(Config{Broker: "tcp://localhost:1883"}, nil)
	require.NoError(t, err)
	defer pub.Disconnect()
	assert.NotPanics(t, func() { mc.opts.OnConnect(nil) })
}

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// mockClient implements pahoClient for tests
type mockClient struct {
	opts         *paho.ClientOptions
	published    []published
	publishErrs  []error
	connectErr   error
	disconnected bool
}

func (m *mockClient) IsConnected() bool { return true }
func (m *mockClient) Connect() paho.Token {
	if m.connectErr != nil {
		return &dummyToken{err: m.connectErr}
	}
	return &dummyToken{}
}
func (m *mockClient) Disconnect(uint) { m.disconnected = true }
func (m *mockClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	b, _ := payload.([]byte)
	m.published = append(m.published, published{topic, qos, retained, b})
	if len(m.publishErrs) > 0 {
		err := m.publishErrs[0]
		m.publishErrs = m.publishErrs[1:]
		return &dummyToken{err: err}
	}
	return &dummyToken{}
}

type dummyToken struct{ err error }

func (d dummyToken) Wait() bool                     { return true }
func (d dummyToken) WaitTimeout(time.Duration) bool { return true }
func (d dummyToken) Done() <-chan struct{}          { ch := make(chan struct{}); close(ch); return ch }
func (d dummyToken) Error() error                   { return d.err }
