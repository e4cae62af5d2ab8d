package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blaubaer/presence-monitor/pkg/presence"
	"github.com/blaubaer/presence-monitor/pkg/sink/broker/brokertest"
)

type scriptedDetector struct {
	signal presence.Signal
	active bool
}

func (this scriptedDetector) Detect(context.Context) bool {
	return this.active
}

func (this scriptedDetector) GetSignal() presence.Signal {
	return this.signal
}

type hookCall struct {
	path  string
	state string
	at    time.Time
}

type homeAssistant struct {
	*httptest.Server
	calls []hookCall
	mutex sync.Mutex
}

func newHomeAssistant(t *testing.T) *homeAssistant {
	result := &homeAssistant{}
	result.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			State string `json:"state"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		result.mutex.Lock()
		result.calls = append(result.calls, hookCall{r.URL.Path, body.State, time.Now()})
		result.mutex.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(result.Close)
	return result
}

func (this *homeAssistant) received() []hookCall {
	this.mutex.Lock()
	defer this.mutex.Unlock()
	return append([]hookCall(nil), this.calls...)
}

func (this *homeAssistant) waitFor(t *testing.T, n int) []hookCall {
	require.Eventually(t, func() bool {
		return len(this.received()) >= n
	}, 10*time.Second, 10*time.Millisecond)
	return this.received()
}

func closedLocalPort(t *testing.T) uint16 {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return uint16(port)
}

func newDeliveringApp(t *testing.T, brokerPort uint16, ha *homeAssistant) *App {
	dir := t.TempDir()
	instance, _ := newTestApp(t, fmt.Sprintf(`
general:
  poll_interval: 1
logging:
  log_dir: %q
  show_console: false
mqtt:
  enable: true
  broker: "127.0.0.1"
  port: %d
  topic_mic: "office/mic"
  topic_cam: "office/cam"
  timeout: 2
homeassistant:
  enable: true
  base_url: %q
  webhook_mic: "mic-hook"
  webhook_cam: "cam-hook"
`, filepath.Join(dir, "logs"), brokerPort, ha.URL))

	require.NoError(t, instance.Initialize(context.Background()))
	t.Cleanup(func() {
		assert.NoError(t, instance.Dispose())
	})

	require.Equal(t, presence.SinkTypes{presence.SinkTypeBroker, presence.SinkTypeWebhook}, sinkTypesOf(instance.Loop.Sinks))
	instance.Loop.Detectors = []presence.Detector{
		scriptedDetector{presence.SignalMicrophone, true},
		scriptedDetector{presence.SignalCamera, false},
	}
	return instance
}

func sinkTypesOf(sinks []presence.Sink) (result presence.SinkTypes) {
	for _, v := range sinks {
		result = append(result, v.GetType())
	}
	return
}

func TestApp_deliversToBrokerAndWebhook(t *testing.T) {
	server, err := brokertest.NewServer()
	require.NoError(t, err)
	defer func() { assert.NoError(t, server.Close()) }()
	ha := newHomeAssistant(t)
	instance := newDeliveringApp(t, server.Port(), ha)

	actual, err := instance.Loop.Cycle(context.Background())
	require.NoError(t, err)
	assert.True(t, actual.MicrophoneActive)
	assert.False(t, actual.CameraActive)

	messages, err := server.WaitForMessages(2, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, []brokertest.Message{
		{Topic: "office/mic", Payload: "active", ProtocolVersion: 5},
		{Topic: "office/cam", Payload: "off", ProtocolVersion: 5},
	}, messages)

	calls := ha.received()
	require.Len(t, calls, 2)
	assert.Equal(t, "/api/webhook/mic-hook", calls[0].path)
	assert.Equal(t, "active", calls[0].state)
	assert.Equal(t, "/api/webhook/cam-hook", calls[1].path)
	assert.Equal(t, "off", calls[1].state)
}

func TestApp_brokerFailureDoesNotAffectWebhook(t *testing.T) {
	ha := newHomeAssistant(t)
	instance := newDeliveringApp(t, closedLocalPort(t), ha)

	_, err := instance.Loop.Cycle(context.Background())
	require.NoError(t, err)

	calls := ha.received()
	require.Len(t, calls, 2)
	assert.Equal(t, "active", calls[0].state)
	assert.Equal(t, "off", calls[1].state)
}

func TestApp_droppedBrokerSessionDoesNotAffectWebhook(t *testing.T) {
	server, err := brokertest.NewServer()
	require.NoError(t, err)
	defer func() { assert.NoError(t, server.Close()) }()
	ha := newHomeAssistant(t)
	instance := newDeliveringApp(t, server.Port(), ha)

	server.DropSessions()
	for i := 0; i < 2; i++ {
		_, err := instance.Loop.Cycle(context.Background())
		require.NoError(t, err)
	}

	assert.Len(t, ha.received(), 4)
}

func TestApp_Run_continuesAfterBrokerFailure(t *testing.T) {
	ha := newHomeAssistant(t)
	instance := newDeliveringApp(t, closedLocalPort(t), ha)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- instance.Run(ctx)
	}()

	calls := ha.waitFor(t, 4)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("monitor did not stop after cancellation")
	}

	assert.Equal(t, "/api/webhook/mic-hook", calls[2].path)
	assert.Equal(t, "active", calls[2].state)
	assert.GreaterOrEqual(t, calls[2].at.Sub(calls[0].at), 900*time.Millisecond)
}
