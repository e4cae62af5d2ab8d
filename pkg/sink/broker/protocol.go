package broker

import (
	"fmt"
	"strings"
)

type Protocol uint8

const (
	ProtocolAuto = Protocol(0)
	ProtocolV5   = Protocol(1)
	ProtocolV311 = Protocol(2)
)

func (this *Protocol) Set(plain string) error {
	switch strings.TrimSpace(strings.ToLower(plain)) {
	case "", "auto":
		*this = ProtocolAuto
	case "5", "v5", "5.0":
		*this = ProtocolV5
	case "3.1.1", "v3.1.1", "311", "4":
		*this = ProtocolV311
	default:
		return fmt.Errorf("illegal-mqtt-protocol: %s", plain)
	}
	return nil
}

func (this Protocol) String() string {
	switch this {
	case ProtocolAuto:
		return "auto"
	case ProtocolV5:
		return "5"
	case ProtocolV311:
		return "3.1.1"
	default:
		return fmt.Sprintf("illegal-mqtt-protocol-%d", this)
	}
}

func (this Protocol) MarshalText() (text []byte, err error) {
	return []byte(this.String()), nil
}

func (this *Protocol) UnmarshalText(text []byte) error {
	return this.Set(string(text))
}
