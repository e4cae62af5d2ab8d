package presence

import (
	"context"
	"fmt"
	"strings"
)

// Sink consumes every Snapshot produced by the Loop.
//
// Implementations must never panic and must isolate their own failures: they
// are logged and swallowed, so the following sinks of the same cycle and the
// Loop itself are not affected.
type Sink interface {
	Publish(ctx context.Context, snapshot Snapshot)
	GetType() SinkType
}

type SinkType uint8

const (
	SinkTypeBroker  = SinkType(0)
	SinkTypeWebhook = SinkType(1)
	SinkTypeHue     = SinkType(2)
	SinkTypeConsole = SinkType(3)
)

func (this *SinkType) Set(plain string) error {
	switch strings.TrimSpace(strings.ToLower(plain)) {
	case "broker", "mqtt":
		*this = SinkTypeBroker
		return nil
	case "webhook", "homeassistant":
		*this = SinkTypeWebhook
		return nil
	case "hue":
		*this = SinkTypeHue
		return nil
	case "console":
		*this = SinkTypeConsole
		return nil
	default:
		return fmt.Errorf("illegal-sink-type: %s", plain)
	}
}

func (this SinkType) String() string {
	v, err := this.MarshalText()
	if err != nil {
		return fmt.Sprintf("illegal-sink-type-%d", this)
	}
	return string(v)
}

func (this SinkType) MarshalText() (text []byte, err error) {
	switch this {
	case SinkTypeBroker:
		return []byte("broker"), nil
	case SinkTypeWebhook:
		return []byte("webhook"), nil
	case SinkTypeHue:
		return []byte("hue"), nil
	case SinkTypeConsole:
		return []byte("console"), nil
	default:
		return nil, fmt.Errorf("illegal sink type: %d", this)
	}
}

func (this *SinkType) UnmarshalText(text []byte) error {
	return this.Set(string(text))
}

type SinkTypes []SinkType

func (this SinkTypes) Strings() []string {
	result := make([]string, len(this))
	for i, v := range this {
		result[i] = v.String()
	}
	return result
}

func (this SinkTypes) String() string {
	return strings.Join(this.Strings(), ",")
}
