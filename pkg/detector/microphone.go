package detector

import (
	"context"

	log "github.com/echocat/slf4g"
	"github.com/shirou/gopsutil/process"

	"github.com/blaubaer/presence-monitor/pkg/audio"
	"github.com/blaubaer/presence-monitor/pkg/metrics"
	"github.com/blaubaer/presence-monitor/pkg/presence"
)

type AudioStack interface {
	FindDevices() (audio.Devices, error)
}

// Microphone reports the microphone as in use if at least one capture
// session is active, unmuted and held by a process which is still alive.
type Microphone struct {
	stack AudioStack
	conf  MicrophoneConfiguration

	pidExists   func(pid int32) (bool, error)
	processName func(pid int32) (string, error)
}

func NewMicrophone(stack AudioStack, conf MicrophoneConfiguration) *Microphone {
	return &Microphone{
		stack:       stack,
		conf:        conf,
		pidExists:   process.PidExists,
		processName: processName,
	}
}

func (this *Microphone) GetSignal() presence.Signal {
	return presence.SignalMicrophone
}

func (this *Microphone) Detect(context.Context) (result bool) {
	defer func() {
		if r := recover(); r != nil {
			log.With("panic", r).
				Warn("Microphone detection failed unexpectedly.")
			metrics.DetectionFailed(presence.SignalMicrophone)
			result = false
		}
	}()

	devices, err := this.stack.FindDevices()
	if err != nil {
		log.WithError(err).
			Warn("Cannot find audio devices.")
		metrics.DetectionFailed(presence.SignalMicrophone)
		return false
	}

	for device, session := range devices.AllSessions() {
		if this.isRelevant(session) {
			log.With("device", device).
				With("session", session).
				Debug("Active microphone session found.")
			return true
		}
	}
	return false
}

func (this *Microphone) isRelevant(session *audio.Session) bool {
	if session.HolderPid == 0 || session.Muted || session.State != audio.SessionStateActive {
		return false
	}

	pid := int32(session.HolderPid)
	alive, err := this.pidExists(pid)
	if err != nil {
		log.WithError(err).
			With("pid", pid).
			Debug("Cannot check if process is alive; ignore its session.")
		return false
	}
	if !alive {
		return false
	}

	if exclude := this.conf.Exclude; exclude.IsSet() {
		name, err := this.processName(pid)
		if err != nil {
			log.WithError(err).
				With("pid", pid).
				Debug("Cannot resolve process name; ignore its session.")
			return false
		}
		if exclude.MatchString(name) {
			return false
		}
	}

	return true
}

func processName(pid int32) (string, error) {
	p, err := process.NewProcess(pid)
	if err != nil {
		return "", err
	}
	return p.Name()
}
