package detector

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/blaubaer/presence-monitor/pkg/audio"
	"github.com/blaubaer/presence-monitor/pkg/common"
	"github.com/blaubaer/presence-monitor/pkg/presence"
)

type fakeStack struct {
	devices audio.Devices
	err     error
	panics  bool
}

func (this *fakeStack) FindDevices() (audio.Devices, error) {
	if this.panics {
		panic("expected test panic")
	}
	return this.devices, this.err
}

func devicesOf(sessions ...audio.Session) audio.Devices {
	return audio.Devices{{Name: "Headset", Sessions: sessions}}
}

func newTestMicrophone(stack AudioStack, conf MicrophoneConfiguration, alive ...int32) *Microphone {
	instance := NewMicrophone(stack, conf)
	instance.pidExists = func(pid int32) (bool, error) {
		for _, candidate := range alive {
			if candidate == pid {
				return true, nil
			}
		}
		return false, nil
	}
	instance.processName = func(pid int32) (string, error) {
		switch pid {
		case 10:
			return "Teams.exe", nil
		case 20:
			return "SoundRecorder.exe", nil
		}
		return "", errors.New("no such process")
	}
	return instance
}

func TestMicrophone_Detect(t *testing.T) {
	active := audio.Session{HolderPid: 10, State: audio.SessionStateActive}

	cases := []struct {
		name     string
		sessions []audio.Session
		expected bool
	}{
		{"none", nil, false},
		{"active", []audio.Session{active}, true},
		{"muted", []audio.Session{{HolderPid: 10, State: audio.SessionStateActive, Muted: true}}, false},
		{"inactive", []audio.Session{{HolderPid: 10, State: audio.SessionStateInactive}}, false},
		{"expired", []audio.Session{{HolderPid: 10, State: audio.SessionStateExpired}}, false},
		{"withoutPid", []audio.Session{{State: audio.SessionStateActive}}, false},
		{"deadHolder", []audio.Session{{HolderPid: 99, State: audio.SessionStateActive}}, false},
		{"secondQualifies", []audio.Session{{HolderPid: 10, State: audio.SessionStateInactive}, active}, true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			instance := newTestMicrophone(&fakeStack{devices: devicesOf(c.sessions...)}, NewMicrophoneConfiguration(), 10)
			assert.Equal(t, c.expected, instance.Detect(context.Background()))
		})
	}
}

func TestMicrophone_Detect_excluded(t *testing.T) {
	conf := MicrophoneConfiguration{Exclude: common.MustParseRegexp(`(?i)^soundrecorder`)}
	recorder := audio.Session{HolderPid: 20, State: audio.SessionStateActive}
	teams := audio.Session{HolderPid: 10, State: audio.SessionStateActive}

	assert.False(t, newTestMicrophone(&fakeStack{devices: devicesOf(recorder)}, conf, 10, 20).Detect(context.Background()))
	assert.True(t, newTestMicrophone(&fakeStack{devices: devicesOf(recorder, teams)}, conf, 10, 20).Detect(context.Background()))
}

func TestMicrophone_Detect_stackFailure(t *testing.T) {
	instance := newTestMicrophone(&fakeStack{err: errors.New("expected")}, NewMicrophoneConfiguration(), 10)
	assert.False(t, instance.Detect(context.Background()))
}

func TestMicrophone_Detect_recoversPanic(t *testing.T) {
	instance := newTestMicrophone(&fakeStack{panics: true}, NewMicrophoneConfiguration(), 10)
	assert.False(t, instance.Detect(context.Background()))
}

func TestMicrophone_Detect_pidCheckFails(t *testing.T) {
	instance := newTestMicrophone(&fakeStack{devices: devicesOf(audio.Session{HolderPid: 10, State: audio.SessionStateActive})}, NewMicrophoneConfiguration())
	instance.pidExists = func(int32) (bool, error) {
		return false, errors.New("expected")
	}
	assert.False(t, instance.Detect(context.Background()))
}

func TestMicrophone_GetSignal(t *testing.T) {
	assert.Equal(t, presence.SignalMicrophone, NewMicrophone(&fakeStack{}, NewMicrophoneConfiguration()).GetSignal())
}
