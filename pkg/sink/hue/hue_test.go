package hue

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/amimof/huego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blaubaer/presence-monitor/pkg/common"
	"github.com/blaubaer/presence-monitor/pkg/credentials"
	"github.com/blaubaer/presence-monitor/pkg/presence"
)

type stateChange struct {
	kind Kind
	id   int
	on   bool
}

type fakeBridge struct {
	lights   []huego.Light
	groups   []huego.Group
	changes  []stateChange
	discover int
	failSet  bool
}

func (this *fakeBridge) GetLightsContext(context.Context) ([]huego.Light, error) {
	this.discover++
	return this.lights, nil
}

func (this *fakeBridge) GetGroupsContext(context.Context) ([]huego.Group, error) {
	return this.groups, nil
}

func (this *fakeBridge) SetLightStateContext(_ context.Context, id int, state huego.State) (*huego.Response, error) {
	if this.failSet {
		return nil, errors.New("expected")
	}
	this.changes = append(this.changes, stateChange{KindLight, id, state.On})
	return &huego.Response{}, nil
}

func (this *fakeBridge) SetGroupStateContext(_ context.Context, id int, state huego.State) (*huego.Response, error) {
	if this.failSet {
		return nil, errors.New("expected")
	}
	this.changes = append(this.changes, stateChange{KindGroup, id, state.On})
	return &huego.Response{}, nil
}

type fakeStore struct {
	v         credentials.Credentials
	supported bool
	writes    int
}

func (this *fakeStore) Read() (credentials.Credentials, bool, error) {
	return this.v, this.supported, nil
}

func (this *fakeStore) Write(v credentials.Credentials) (bool, error) {
	this.writes++
	this.v = v
	return this.supported, nil
}

func newTestHue(t *testing.T, conf Configuration, signals presence.Signals, b *fakeBridge) *Hue {
	instance := New(conf, signals, &fakeStore{v: credentials.Credentials{HueBridge: "bridge", HueUser: "user"}})
	instance.newBridge = func(host, user string) bridge {
		assert.Equal(t, "bridge", host)
		assert.Equal(t, "user", user)
		return b
	}
	require.NoError(t, instance.Initialize(context.Background()))
	return instance
}

func newFakeBridge() *fakeBridge {
	return &fakeBridge{
		lights: []huego.Light{
			{ID: 1, Name: "OnAir Desk"},
			{ID: 2, Name: "Kitchen"},
		},
		groups: []huego.Group{
			{ID: 7, Name: "OnAir Office", State: &huego.State{On: true}},
		},
	}
}

func TestHue_Publish(t *testing.T) {
	b := newFakeBridge()
	instance := newTestHue(t, NewConfiguration(), presence.AllSignals, b)

	instance.Publish(context.Background(), presence.Snapshot{CameraActive: true})
	assert.Equal(t, []stateChange{{KindLight, 1, true}, {KindGroup, 7, true}}, b.changes)

	b.changes = nil
	instance.Publish(context.Background(), presence.Snapshot{CameraActive: true})
	assert.Empty(t, b.changes)

	instance.Publish(context.Background(), presence.Snapshot{})
	assert.Equal(t, []stateChange{{KindLight, 1, false}, {KindGroup, 7, false}}, b.changes)
}

func TestHue_Publish_onlyMonitoredSignals(t *testing.T) {
	b := newFakeBridge()
	conf := NewConfiguration()
	conf.Kinds = Kinds{KindLight}
	instance := newTestHue(t, conf, presence.Signals{presence.SignalMicrophone}, b)

	instance.Publish(context.Background(), presence.Snapshot{CameraActive: true})
	assert.Empty(t, b.changes)

	instance.Publish(context.Background(), presence.Snapshot{MicrophoneActive: true})
	assert.Equal(t, []stateChange{{KindLight, 1, true}}, b.changes)
}

func TestHue_Publish_rediscoversAfterRefresh(t *testing.T) {
	b := newFakeBridge()
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	instance := New(NewConfiguration(), presence.AllSignals, &fakeStore{v: credentials.Credentials{HueBridge: "bridge", HueUser: "user"}})
	instance.newBridge = func(string, string) bridge { return b }
	instance.now = func() time.Time { return now }
	require.NoError(t, instance.Initialize(context.Background()))
	assert.Equal(t, 1, b.discover)

	instance.Publish(context.Background(), presence.Snapshot{})
	assert.Equal(t, 1, b.discover)

	now = now.Add(DefaultRefreshInterval)
	instance.Publish(context.Background(), presence.Snapshot{})
	assert.Equal(t, 2, b.discover)
}

func TestHue_Publish_failureForcesRediscovery(t *testing.T) {
	b := newFakeBridge()
	b.failSet = true
	instance := newTestHue(t, NewConfiguration(), presence.AllSignals, b)

	instance.Publish(context.Background(), presence.Snapshot{MicrophoneActive: true})
	assert.True(t, instance.lastRefresh.IsZero())

	b.failSet = false
	instance.Publish(context.Background(), presence.Snapshot{MicrophoneActive: true})
	assert.Equal(t, 2, b.discover)
	assert.Equal(t, []stateChange{{KindLight, 1, true}, {KindGroup, 7, true}}, b.changes)
}

func TestHue_Initialize_notPaired(t *testing.T) {
	instance := New(NewConfiguration(), presence.AllSignals, &fakeStore{})
	assert.ErrorIs(t, instance.Initialize(context.Background()), ErrNotPaired)
}

func TestHue_Initialize_credentialsFromConfiguration(t *testing.T) {
	b := newFakeBridge()
	conf := NewConfiguration()
	conf.Bridge = "bridge"
	conf.User = "user"
	instance := New(conf, presence.AllSignals, nil)
	instance.newBridge = func(host, user string) bridge {
		assert.Equal(t, "bridge", host)
		assert.Equal(t, "user", user)
		return b
	}
	require.NoError(t, instance.Initialize(context.Background()))
}

func TestHue_Dispose_switchesOff(t *testing.T) {
	b := newFakeBridge()
	instance := newTestHue(t, NewConfiguration(), presence.AllSignals, b)
	instance.Publish(context.Background(), presence.Snapshot{MicrophoneActive: true})
	b.changes = nil

	require.NoError(t, instance.Dispose())
	assert.Equal(t, []stateChange{{KindLight, 1, false}, {KindGroup, 7, false}}, b.changes)

	instance.Publish(context.Background(), presence.Snapshot{MicrophoneActive: true})
	require.NoError(t, instance.Dispose())
}

// newStalledBridge answers the discovery but never answers a state change
// until the test ends.
func newStalledBridge(t *testing.T) *httptest.Server {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/lights"):
			w.Header().Set("Content-Type", "application/json")
			_, _ = fmt.Fprint(w, `{"1":{"name":"OnAir Desk","state":{"on":false}}}`)
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/groups"):
			w.Header().Set("Content-Type", "application/json")
			_, _ = fmt.Fprint(w, `{}`)
		default:
			select {
			case <-r.Context().Done():
			case <-release:
			}
		}
	}))
	t.Cleanup(server.Close)
	t.Cleanup(func() { close(release) })
	return server
}

func TestHue_Publish_boundedByTimeout(t *testing.T) {
	server := newStalledBridge(t)
	conf := NewConfiguration()
	conf.Bridge = server.URL
	conf.User = "user"
	conf.Timeout = common.Duration(200 * time.Millisecond)
	instance := New(conf, presence.AllSignals, nil)
	require.NoError(t, instance.Initialize(context.Background()))
	require.Len(t, instance.lights, 1)

	done := make(chan struct{})
	start := time.Now()
	go func() {
		defer close(done)
		instance.Publish(context.Background(), presence.Snapshot{MicrophoneActive: true})
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("publish was not bounded by the configured timeout")
	}
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.True(t, instance.lastRefresh.IsZero())
	assert.False(t, instance.lights[0].State.On)

	require.NoError(t, instance.Dispose())
}

func TestKinds_Set(t *testing.T) {
	var actual Kinds
	require.NoError(t, actual.Set("light, room"))
	assert.Equal(t, Kinds{KindLight, KindGroup}, actual)
	assert.Error(t, actual.Set("lamp"))
	assert.True(t, Kinds{}.Has(KindGroup))
	assert.False(t, Kinds{KindLight}.Has(KindGroup))
}
