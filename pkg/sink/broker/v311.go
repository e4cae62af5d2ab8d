package broker

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	protocolVersion311 = 4
	disconnectQuiesce  = 250
)

type v311Client struct {
	delegate mqtt.Client
}

func connectV311(ctx context.Context, conf Configuration) (client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker("tcp://" + conf.address()).
		SetClientID(conf.clientId()).
		SetProtocolVersion(protocolVersion311).
		SetAutoReconnect(false).
		SetConnectTimeout(conf.timeout()).
		SetWriteTimeout(conf.timeout())
	if v := conf.Username; v != "" {
		opts.SetUsername(v)
	}
	if v := conf.Password; v != "" {
		opts.SetPassword(v)
	}

	delegate := mqtt.NewClient(opts)
	if err := await(ctx, delegate.Connect(), conf.timeout()); err != nil {
		return nil, fmt.Errorf("cannot establish MQTT v3.1.1 session with %s: %w", conf.address(), err)
	}

	return &v311Client{delegate}, nil
}

func (this *v311Client) Publish(ctx context.Context, topic string, payload []byte) error {
	if !this.delegate.IsConnectionOpen() {
		return ErrNotConnected
	}
	return await(ctx, this.delegate.Publish(topic, 0, false, payload), 0)
}

func (this *v311Client) Disconnect() error {
	this.delegate.Disconnect(disconnectQuiesce)
	return nil
}

func (this *v311Client) Protocol() Protocol {
	return ProtocolV311
}

func await(ctx context.Context, token mqtt.Token, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
