package broker

import (
	"context"
	"errors"
)

var ErrNotConnected = errors.New("not connected to MQTT broker")

// client is one established session with the broker.
type client interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Disconnect() error
	Protocol() Protocol
}

type connector func(ctx context.Context, conf Configuration) (client, error)

var connectors = map[Protocol]connector{
	ProtocolV5:   connectV5,
	ProtocolV311: connectV311,
}
