package mqtt

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math"
	"math/big"
	"os"
	"strings"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// helper to generate self-signed cert
func generateCert(t *testing.T) (certFile, keyFile, caFile string) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("gen key: %v", err)
	}
	tmpl := x509.Certificate{SerialNumber: big.NewInt(1), Subject: pkix.Name{CommonName: "test"}, NotBefore: time.Now(), NotAfter: time.Now().Add(time.Hour)}
	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &priv.PublicKey, priv)
	if err != nil {
		t.Fatalf("create cert: %v", err)
	}
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)})

	dir := t.TempDir()
	certFile = dir + "/cert.pem"
	keyFile = dir + "/key.pem"
	caFile = dir + "/ca.pem"
	if err := os.WriteFile(certFile, certPEM, 0644); err != nil {
		t.Fatalf("write cert: %v", err)
	}
	if err := os.WriteFile(keyFile, keyPEM, 0644); err != nil {
		t.Fatalf("write key: %v", err)
	}
	if err := os.WriteFile(caFile, certPEM, 0644); err != nil {
		t.Fatalf("write ca: %v", err)
	}
	return
}

func TestLoadTLSConfig(t *testing.T) {
	cert, key, ca := generateCert(t)
	cfg := Config{UseTLS: true, ClientCert: cert, ClientKey: key, CABundle: ca}
	tlsCfg, err := cfg.LoadTLSConfig()
	if err != nil {
		t.Fatalf("load tls: %v", err)
	}
	if len(tlsCfg.Certificates) == 0 {
		t.Fatalf("no certs loaded")
	}
	if tlsCfg.RootCAs == nil {
		t.Fatalf("no root CAs")
	}
}

func TestNewClientOptionsAuth(t *testing.T) {
	opts, err := NewClientOptions(Config{Broker: "tcp://localhost:1883", ClientID: "id", Username: "u", Password: "p"})
	if err != nil {
		t.Fatalf("opts: %v", err)
	}
	if opts.Username != "u" || opts.Password != "p" {
		t.Fatalf("auth not set")
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{Broker: "tcp://localhost:1883", TopicPrefix: "basins/"}
	cfg.SetDefaults()
	assert.True(t, strings.HasPrefix(cfg.ClientID, "vann-"))
	assert.Equal(t, "basins/status", cfg.StatusTopic())
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.NoError(t, cfg.Validate())

	assert.Error(t, Config{}.Validate())
	assert.Error(t, Config{Broker: "tcp://x", QoS: 3}.Validate())
}

func withMock(t *testing.T, mc *mockClient) {
	t.Helper()
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	t.Cleanup(func() { newMQTTClient = func(opts *paho.ClientOptions) pahoClient { return paho.NewClient(opts) } })
}

func TestPublishJSONUsesPrefixAndQoS(t *testing.T) {
	mc := &mockClient{}
	withMock(t, mc)
	cli, err := NewPahoClient(Config{Broker: "tcp://localhost:1883", ClientID: "id", QoS: 1})
	require.NoError(t, err)
	require.Len(t, mc.published, 1, "online status published on connect")
	assert.Equal(t, "vann/status", mc.published[0].topic)
	assert.True(t, mc.published[0].retained)

	topic := cli.Topic("runs", "r1", "steps")
	assert.Equal(t, "vann/runs/r1/steps", topic)
	require.NoError(t, cli.PublishJSON(topic, false, map[string]float64{"mean": 1.5}))
	last := mc.published[len(mc.published)-1]
	assert.Equal(t, topic, last.topic)
	assert.Equal(t, byte(1), last.qos)
	assert.JSONEq(t, `{"mean":1.5}`, string(last.payload))
}

func TestPublishJSONRejectsNaN(t *testing.T) {
	mc := &mockClient{}
	withMock(t, mc)
	cli, err := NewPahoClient(Config{Broker: "tcp://localhost:1883"})
	require.NoError(t, err)
	assert.Error(t, cli.PublishJSON("t", false, math.NaN()))
}

func TestLWTConfigured(t *testing.T) {
	mc := &mockClient{}
	withMock(t, mc)
	cli, err := NewPahoClient(Config{Broker: "tcp://localhost:1883", ClientID: "id", LWTPayload: "bye", QoS: 1})
	require.NoError(t, err)
	assert.True(t, mc.opts.WillEnabled)
	assert.Equal(t, "vann/status", mc.opts.WillTopic)
	assert.Equal(t, "bye", string(mc.opts.WillPayload))
	assert.True(t, mc.opts.WillRetained)

	cli.Disconnect()
	last := mc.published[len(mc.published)-1]
	assert.Equal(t, "bye", string(last.payload))
	assert.ErrorIs(t, cli.PublishJSON("t", false, 1), ErrNotConnected)
}

func TestRetryLogic(t *testing.T) {
	mc := &mockClient{}
	withMock(t, mc)
	cli, err := NewPahoClient(Config{Broker: "tcp://localhost:1883", ClientID: "id", MaxRetries: 1, BackoffMS: 1})
	require.NoError(t, err)
	mc.published = nil
	mc.publishErrs = []error{fmt.Errorf("net fail"), nil}
	require.NoError(t, cli.PublishJSON("t", false, 1))
	assert.Len(t, mc.published, 2)

	mc.published = nil
	mc.publishErrs = []error{fmt.Errorf("net fail"), fmt.Errorf("net fail")}
	assert.Error(t, cli.PublishJSON("t", false, 1))
	assert.Len(t, mc.published, 2)
}

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// mockClient implements pahoClient for tests
type mockClient struct {
	paho.Client // satisfies paho.Client for callbacks; unused methods are nil
	opts        *paho.ClientOptions
	published   []published
	publishErrs []error
}

func (m *mockClient) IsConnected() bool { return true }
func (m *mockClient) Connect() paho.Token {
	if m.opts != nil && m.opts.OnConnect != nil {
		m.opts.OnConnect(m)
	}
	return &dummyToken{}
}
func (m *mockClient) Disconnect(uint) {}
func (m *mockClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	b, _ := payload.([]byte)
	m.published = append(m.published, published{topic: topic, qos: qos, retained: retained, payload: b})
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
