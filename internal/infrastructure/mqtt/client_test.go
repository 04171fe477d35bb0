package mqtt

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/nuki-control/internal/infrastructure/config"
)

func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Enabled: true,
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "nukicontrol-test",
		},
		QoS:         1,
		TopicPrefix: "nukicontrol",
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

type recordingLogger struct {
	mu    sync.Mutex
	warns []string
	errs  []string
}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *recordingLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs = append(l.errs, msg)
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = config.MQTTAuthConfig{Username: "lock", Password: "pw"}

	opts := buildClientOptions(cfg)
	require.Len(t, opts.Servers, 1)
	assert.Equal(t, "tcp://127.0.0.1:1883", opts.Servers[0].String())
	assert.Equal(t, "nukicontrol-test", opts.ClientID)
	assert.Equal(t, "lock", opts.Username)
	assert.True(t, opts.CleanSession)
	assert.True(t, opts.AutoReconnect)
	assert.Equal(t, 5*time.Second, opts.MaxReconnectInterval)
	assert.Nil(t, opts.TLSConfig)
}

func TestBuildClientOptions_TLS(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true
	cfg.Broker.Port = 8883

	opts := buildClientOptions(cfg)
	assert.Equal(t, "ssl://127.0.0.1:8883", opts.Servers[0].String())
	require.NotNil(t, opts.TLSConfig)
	assert.Equal(t, uint16(tlsMinVersion), opts.TLSConfig.MinVersion)
}

func TestConfigureLWT(t *testing.T) {
	opts := buildClientOptions(testConfig())
	configureLWT(opts, &Will{Topic: "nukicontrol/health/nuki", Payload: []byte(`{"status":"offline"}`), QoS: 1})

	assert.True(t, opts.WillEnabled)
	assert.Equal(t, "nukicontrol/health/nuki", opts.WillTopic)
	assert.Equal(t, []byte(`{"status":"offline"}`), opts.WillPayload)
	assert.Equal(t, byte(1), opts.WillQos)
	assert.True(t, opts.WillRetained)

	none := buildClientOptions(testConfig())
	configureLWT(none, nil)
	assert.False(t, none.WillEnabled)
}

func TestClient_NotConnected(t *testing.T) {
	c := &Client{subscriptions: make(map[string]subscription)}

	assert.False(t, c.IsConnected())
	assert.ErrorIs(t, c.Publish("a/b", nil, 1, false), ErrNotConnected)
	assert.ErrorIs(t, c.Subscribe("a/+", 1, func(string, []byte) error { return nil }), ErrNotConnected)
	assert.False(t, c.HasSubscription("a/+"))
	assert.NoError(t, c.Close())

	var nilClient *Client
	assert.NoError(t, nilClient.Close())
}

func TestClient_ValidatesBeforeConnection(t *testing.T) {
	c := &Client{subscriptions: make(map[string]subscription)}

	assert.ErrorIs(t, c.Publish("", nil, 1, false), ErrInvalidTopic)
	assert.ErrorIs(t, c.Publish("a/+", nil, 1, false), ErrInvalidTopic)
	assert.ErrorIs(t, c.Publish("a/b", nil, 3, false), ErrInvalidQoS)
	assert.ErrorIs(t, c.Publish("a/b", make([]byte, maxPayloadSize+1), 1, false), ErrPublishFailed)

	assert.ErrorIs(t, c.Subscribe("a/#/b", 1, func(string, []byte) error { return nil }), ErrInvalidTopic)
	assert.ErrorIs(t, c.Subscribe("a/b", 1, nil), ErrSubscribeFailed)
}

func TestClient_DispatchRecoversAndLogs(t *testing.T) {
	logger := &recordingLogger{}
	c := &Client{subscriptions: make(map[string]subscription)}
	c.SetLogger(logger)

	assert.NotPanics(t, func() {
		c.dispatch(func(string, []byte) error { panic("boom") }, "t", nil)
	})
	c.dispatch(func(string, []byte) error { return errors.New("bad payload") }, "t", nil)
	c.dispatch(func(string, []byte) error { return nil }, "t", nil)

	assert.Equal(t, []string{"MQTT handler panicked"}, logger.errs)
	assert.Equal(t, []string{"MQTT handler failed"}, logger.warns)
}

func TestClient_Callbacks(t *testing.T) {
	c := &Client{subscriptions: make(map[string]subscription)}

	var lost error
	c.SetOnDisconnect(func(err error) { lost = err })
	c.handleDisconnect(errors.New("eof"))
	assert.EqualError(t, lost, "eof")
}
