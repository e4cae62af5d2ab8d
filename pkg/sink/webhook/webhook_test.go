package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blaubaer/presence-monitor/pkg/common"
	"github.com/blaubaer/presence-monitor/pkg/presence"
)

type received struct {
	path        string
	contentType string
	state       string
}

type fakeHomeAssistant struct {
	*httptest.Server
	mutex    sync.Mutex
	received []received
	status   map[string]int
	delay    time.Duration
}

func newFakeHomeAssistant(t *testing.T) *fakeHomeAssistant {
	result := &fakeHomeAssistant{status: map[string]int{}}
	result.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p payload
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		if result.delay > 0 {
			time.Sleep(result.delay)
		}

		result.mutex.Lock()
		result.received = append(result.received, received{r.URL.Path, r.Header.Get("Content-Type"), p.State})
		status, ok := result.status[r.URL.Path]
		result.mutex.Unlock()

		if !ok {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte("ignored"))
	}))
	t.Cleanup(result.Close)
	return result
}

func (this *fakeHomeAssistant) configuration() Configuration {
	conf := NewConfiguration()
	conf.Enable = true
	conf.BaseUrl = this.URL + "/"
	conf.WebhookMic = "mic-hook"
	conf.WebhookCam = "cam-hook"
	return conf
}

func TestWebhook_Publish(t *testing.T) {
	ha := newFakeHomeAssistant(t)
	instance := New(ha.configuration(), presence.AllSignals)
	require.NoError(t, instance.Initialize(context.Background()))

	instance.Publish(context.Background(), presence.Snapshot{CameraActive: true})

	assert.Equal(t, []received{
		{"/api/webhook/mic-hook", "application/json", "muted"},
		{"/api/webhook/cam-hook", "application/json", "on"},
	}, ha.received)
}

func TestWebhook_Publish_failureDoesNotAffectOtherSignal(t *testing.T) {
	ha := newFakeHomeAssistant(t)
	ha.status["/api/webhook/mic-hook"] = http.StatusInternalServerError
	instance := New(ha.configuration(), presence.AllSignals)

	instance.Publish(context.Background(), presence.Snapshot{MicrophoneActive: true})

	require.Len(t, ha.received, 2)
	assert.Equal(t, "active", ha.received[0].state)
	assert.Equal(t, received{"/api/webhook/cam-hook", "application/json", "off"}, ha.received[1])
}

func TestWebhook_send_timeout(t *testing.T) {
	ha := newFakeHomeAssistant(t)
	ha.delay = 200 * time.Millisecond
	conf := ha.configuration()
	conf.Timeout = common.Duration(20 * time.Millisecond)
	instance := New(conf, presence.AllSignals)

	err := instance.send(context.Background(), conf.urlOf(presence.SignalMicrophone), "active")
	assert.Error(t, err)
}

func TestWebhook_send_unreachable(t *testing.T) {
	ha := newFakeHomeAssistant(t)
	conf := ha.configuration()
	ha.Close()
	instance := New(conf, presence.AllSignals)

	assert.Error(t, instance.send(context.Background(), conf.urlOf(presence.SignalCamera), "off"))
	instance.Publish(context.Background(), presence.Snapshot{})
}

func TestWebhook_Publish_onlyMonitoredSignals(t *testing.T) {
	ha := newFakeHomeAssistant(t)
	instance := New(ha.configuration(), presence.Signals{presence.SignalMicrophone})

	instance.Publish(context.Background(), presence.Snapshot{MicrophoneActive: true, CameraActive: true})

	assert.Equal(t, []received{{"/api/webhook/mic-hook", "application/json", "active"}}, ha.received)
}

func TestConfiguration_urlOf(t *testing.T) {
	conf := Configuration{BaseUrl: "http://ha.local:8123//", WebhookMic: "m"}
	assert.Equal(t, "http://ha.local:8123/api/webhook/m", conf.urlOf(presence.SignalMicrophone))
	assert.Equal(t, "", conf.urlOf(presence.SignalCamera))
}

func TestConfiguration_Validate(t *testing.T) {
	assert.NoError(t, NewConfiguration().Validate(presence.AllSignals))

	conf := Configuration{Enable: true, WebhookMic: "m", WebhookCam: "c"}
	assert.Error(t, conf.Validate(presence.AllSignals))

	conf.BaseUrl = "homeassistant.local"
	assert.Error(t, conf.Validate(presence.AllSignals))

	conf.BaseUrl = "http://homeassistant.local:8123"
	assert.NoError(t, conf.Validate(presence.AllSignals))

	conf.WebhookCam = ""
	assert.Error(t, conf.Validate(presence.AllSignals))
	assert.NoError(t, conf.Validate(presence.Signals{presence.SignalMicrophone}))
}
