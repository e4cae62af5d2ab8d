package audio

import (
	"fmt"
	"iter"
)

type Device struct {
	Name     string   `json:"name"`
	Index    uint32   `json:"index"`
	Sessions Sessions `json:"sessions,omitempty"`
}

func (this Device) String() string {
	return fmt.Sprintf("[%d] %s", this.Index, this.Name)
}

type Devices []Device

func (this Devices) IsZero() bool {
	return len(this) <= 0
}

func (this Devices) HasContent() bool {
	return !this.IsZero()
}

// AllSessions iterates over the sessions of all devices.
func (this Devices) AllSessions() iter.Seq2[*Device, *Session] {
	return func(yield func(*Device, *Session) bool) {
		for i := range this {
			device := &this[i]
			for j := range device.Sessions {
				if !yield(device, &device.Sessions[j]) {
					return
				}
			}
		}
	}
}
