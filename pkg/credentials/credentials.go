package credentials

import (
	"encoding/json"
)

const appName = "github.com/blaubaer/presence-monitor"

// Credentials are the secrets which should not be part of the
// configuration file. They are persisted in the store of the operating
// system, if there is one.
type Credentials struct {
	HueBridge string `json:"hue_bridge,omitempty"`
	HueUser   string `json:"hue_user,omitempty"`

	BrokerUsername string `json:"broker_username,omitempty"`
	BrokerPassword string `json:"broker_password,omitempty"`
}

func (this *Credentials) IsZero() bool {
	return this.IsHueZero() && this.IsBrokerZero()
}

func (this *Credentials) IsHueZero() bool {
	return this.HueBridge == "" || this.HueUser == ""
}

func (this *Credentials) IsBrokerZero() bool {
	return this.BrokerUsername == "" && this.BrokerPassword == ""
}

func (this *Credentials) MarshalBinary() (data []byte, err error) {
	return json.Marshal(this)
}

func (this *Credentials) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, this)
}

// Store reads and writes Credentials.
type Store interface {
	Read() (Credentials, bool, error)
	Write(Credentials) (bool, error)
}

// SystemStore is the Store of the operating system.
type SystemStore struct{}

func (this SystemStore) Read() (result Credentials, supported bool, err error) {
	supported, err = result.ReadFromStore()
	return
}

func (this SystemStore) Write(v Credentials) (bool, error) {
	return v.WriteToStore()
}
