package presence

import (
	"fmt"
	"time"
)

// Snapshot is the state of all signals captured by one cycle of the Loop.
// It is a value; sinks must treat it as read-only.
type Snapshot struct {
	MicrophoneActive bool      `json:"microphoneActive"`
	CameraActive     bool      `json:"cameraActive"`
	CapturedAt       time.Time `json:"capturedAt"`
}

func (this Snapshot) IsActive(s Signal) bool {
	switch s {
	case SignalMicrophone:
		return this.MicrophoneActive
	case SignalCamera:
		return this.CameraActive
	default:
		return false
	}
}

// StateOf returns the wire value of the given signal, see Signal.Vocabulary.
func (this Snapshot) StateOf(s Signal) string {
	return s.Vocabulary(this.IsActive(s))
}

// SameStateAs reports whether both snapshots carry the same signal states,
// regardless of when they were captured.
func (this Snapshot) SameStateAs(other Snapshot) bool {
	return this.MicrophoneActive == other.MicrophoneActive &&
		this.CameraActive == other.CameraActive
}

func (this Snapshot) String() string {
	return fmt.Sprintf("mic=%s, cam=%s", this.StateOf(SignalMicrophone), this.StateOf(SignalCamera))
}

func (this *Snapshot) set(s Signal, active bool) {
	switch s {
	case SignalMicrophone:
		this.MicrophoneActive = active
	case SignalCamera:
		this.CameraActive = active
	}
}
