package presence

import (
	"fmt"
	"strings"
)

type Signal uint8

const (
	SignalMicrophone = Signal(0)
	SignalCamera     = Signal(1)
)

var (
	AllSignals = Signals{
		SignalMicrophone,
		SignalCamera,
	}
)

func (this *Signal) Set(plain string) error {
	switch strings.TrimSpace(strings.ToLower(plain)) {
	case "microphone", "mic":
		*this = SignalMicrophone
		return nil
	case "camera", "cam", "webcam":
		*this = SignalCamera
		return nil
	default:
		return fmt.Errorf("illegal-signal: %s", plain)
	}
}

func (this Signal) String() string {
	v, err := this.MarshalText()
	if err != nil {
		return fmt.Sprintf("illegal-signal-%d", this)
	}
	return string(v)
}

func (this Signal) MarshalText() (text []byte, err error) {
	switch this {
	case SignalMicrophone:
		return []byte("microphone"), nil
	case SignalCamera:
		return []byte("camera"), nil
	default:
		return nil, fmt.Errorf("illegal signal: %d", this)
	}
}

func (this *Signal) UnmarshalText(text []byte) error {
	return this.Set(string(text))
}

// Vocabulary translates the given activity into the wire value downstream
// consumers understand for this signal.
func (this Signal) Vocabulary(active bool) string {
	switch this {
	case SignalMicrophone:
		if active {
			return "active"
		}
		return "muted"
	case SignalCamera:
		if active {
			return "on"
		}
		return "off"
	default:
		return ""
	}
}

type Signals []Signal

func (this Signals) Has(v Signal) bool {
	for _, candidate := range this {
		if v == candidate {
			return true
		}
	}
	return false
}

func (this Signals) Strings() []string {
	result := make([]string, len(this))
	for i, v := range this {
		result[i] = v.String()
	}
	return result
}

func (this Signals) String() string {
	return strings.Join(this.Strings(), ",")
}
