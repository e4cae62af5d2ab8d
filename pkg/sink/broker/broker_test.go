package broker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blaubaer/presence-monitor/pkg/presence"
)

type published struct {
	topic   string
	payload string
}

type fakeClient struct {
	protocol     Protocol
	published    []published
	failures     int
	disconnected bool
}

func (this *fakeClient) Publish(_ context.Context, topic string, payload []byte) error {
	if this.failures > 0 {
		this.failures--
		return errors.New("expected publish failure")
	}
	this.published = append(this.published, published{topic, string(payload)})
	return nil
}

func (this *fakeClient) Disconnect() error {
	this.disconnected = true
	return nil
}

func (this *fakeClient) Protocol() Protocol {
	return this.protocol
}

type fakeConnectors struct {
	refuse map[Protocol]int
	calls  []Protocol
	issued []*fakeClient
}

func (this *fakeConnectors) build() map[Protocol]connector {
	result := map[Protocol]connector{}
	for _, p := range []Protocol{ProtocolV5, ProtocolV311} {
		result[p] = func(context.Context, Configuration) (client, error) {
			this.calls = append(this.calls, p)
			if this.refuse[p] > 0 {
				this.refuse[p]--
				return nil, errors.New("expected connection refusal")
			}
			c := &fakeClient{protocol: p}
			this.issued = append(this.issued, c)
			return c, nil
		}
	}
	return result
}

func testConfiguration() Configuration {
	conf := NewConfiguration()
	conf.Enable = true
	conf.Broker = "broker.local"
	conf.TopicMic = "office/mic"
	conf.TopicCam = "office/cam"
	return conf
}

func newTestBroker(t *testing.T, conf Configuration, signals presence.Signals, fc *fakeConnectors) *Broker {
	instance := New(conf, signals)
	instance.connectors = fc.build()
	require.NoError(t, instance.Initialize(context.Background()))
	return instance
}

func TestBroker_Publish(t *testing.T) {
	fc := &fakeConnectors{}
	instance := newTestBroker(t, testConfiguration(), presence.AllSignals, fc)

	instance.Publish(context.Background(), presence.Snapshot{MicrophoneActive: true})

	require.Len(t, fc.issued, 1)
	assert.Equal(t, []Protocol{ProtocolV5}, fc.calls)
	assert.Equal(t, []published{
		{"office/mic", "active"},
		{"office/cam", "off"},
	}, fc.issued[0].published)
}

func TestBroker_Publish_onlyMonitoredSignals(t *testing.T) {
	fc := &fakeConnectors{}
	conf := testConfiguration()
	conf.TopicMic = ""
	instance := newTestBroker(t, conf, presence.Signals{presence.SignalCamera}, fc)

	instance.Publish(context.Background(), presence.Snapshot{MicrophoneActive: true, CameraActive: true})

	assert.Equal(t, []published{{"office/cam", "on"}}, fc.issued[0].published)
}

func TestBroker_Initialize_fallsBackToV311(t *testing.T) {
	fc := &fakeConnectors{refuse: map[Protocol]int{ProtocolV5: 1}}
	instance := newTestBroker(t, testConfiguration(), presence.AllSignals, fc)

	assert.Equal(t, []Protocol{ProtocolV5, ProtocolV311}, fc.calls)
	require.NotNil(t, instance.client)
	assert.Equal(t, ProtocolV311, instance.client.Protocol())
}

func TestBroker_Initialize_explicitProtocol(t *testing.T) {
	fc := &fakeConnectors{refuse: map[Protocol]int{ProtocolV311: 1}}
	conf := testConfiguration()
	conf.Protocol = ProtocolV311
	instance := newTestBroker(t, conf, presence.AllSignals, fc)

	assert.Equal(t, []Protocol{ProtocolV311}, fc.calls)
	assert.Nil(t, instance.client)
}

func TestBroker_Publish_notConnectedIsNeverRetried(t *testing.T) {
	fc := &fakeConnectors{refuse: map[Protocol]int{ProtocolV5: 1, ProtocolV311: 1}}
	instance := newTestBroker(t, testConfiguration(), presence.AllSignals, fc)

	instance.Publish(context.Background(), presence.Snapshot{})
	instance.Publish(context.Background(), presence.Snapshot{})

	assert.Equal(t, []Protocol{ProtocolV5, ProtocolV311}, fc.calls)
	assert.Empty(t, fc.issued)
	assert.ErrorIs(t, instance.publish(context.Background(), "office/mic", "muted"), ErrNotConnected)
}

func TestBroker_Publish_reconnects(t *testing.T) {
	fc := &fakeConnectors{refuse: map[Protocol]int{ProtocolV5: 2, ProtocolV311: 1}}
	conf := testConfiguration()
	conf.Reconnect = true
	instance := newTestBroker(t, conf, presence.Signals{presence.SignalMicrophone}, fc)
	assert.Nil(t, instance.client)

	instance.Publish(context.Background(), presence.Snapshot{MicrophoneActive: true})

	require.Len(t, fc.issued, 1)
	assert.Equal(t, []published{{"office/mic", "active"}}, fc.issued[0].published)
}

func TestBroker_Publish_failureDoesNotStopOtherSignals(t *testing.T) {
	fc := &fakeConnectors{}
	instance := newTestBroker(t, testConfiguration(), presence.AllSignals, fc)
	fc.issued[0].failures = 1

	instance.Publish(context.Background(), presence.Snapshot{CameraActive: true})

	assert.Equal(t, []published{{"office/cam", "on"}}, fc.issued[0].published)
	assert.False(t, fc.issued[0].disconnected)
}

func TestBroker_Publish_reconnectAfterPublishFailure(t *testing.T) {
	fc := &fakeConnectors{}
	conf := testConfiguration()
	conf.Reconnect = true
	instance := newTestBroker(t, conf, presence.Signals{presence.SignalMicrophone}, fc)
	fc.issued[0].failures = 1

	instance.Publish(context.Background(), presence.Snapshot{})
	assert.True(t, fc.issued[0].disconnected)

	instance.Publish(context.Background(), presence.Snapshot{})
	require.Len(t, fc.issued, 2)
	assert.Equal(t, []published{{"office/mic", "muted"}}, fc.issued[1].published)
}

func TestBroker_Dispose(t *testing.T) {
	fc := &fakeConnectors{}
	instance := newTestBroker(t, testConfiguration(), presence.AllSignals, fc)

	require.NoError(t, instance.Dispose())
	assert.True(t, fc.issued[0].disconnected)
	require.NoError(t, instance.Dispose())
}

func TestConfiguration_Validate(t *testing.T) {
	assert.NoError(t, NewConfiguration().Validate(presence.AllSignals))
	assert.NoError(t, testConfiguration().Validate(presence.AllSignals))

	conf := testConfiguration()
	conf.Broker = ""
	assert.Error(t, conf.Validate(presence.AllSignals))

	conf = testConfiguration()
	conf.TopicCam = ""
	assert.Error(t, conf.Validate(presence.AllSignals))
	assert.NoError(t, conf.Validate(presence.Signals{presence.SignalMicrophone}))

	assert.Error(t, New(conf, presence.AllSignals).Initialize(context.Background()))
}

func TestConfiguration_address(t *testing.T) {
	conf := Configuration{Broker: "broker.local"}
	assert.Equal(t, "broker.local:1883", conf.address())
	conf.Port = 8883
	assert.Equal(t, "broker.local:8883", conf.address())
	assert.Equal(t, "fixed", Configuration{ClientId: "fixed"}.clientId())
}

func TestProtocol_Set(t *testing.T) {
	var actual Protocol
	require.NoError(t, actual.Set("3.1.1"))
	assert.Equal(t, ProtocolV311, actual)
	require.NoError(t, actual.Set("5"))
	assert.Equal(t, ProtocolV5, actual)
	require.NoError(t, actual.Set("auto"))
	assert.Equal(t, ProtocolAuto, actual)
	assert.Error(t, actual.Set("3.1"))
}
