package broker

import (
	"context"
	"fmt"
	"net"

	"github.com/eclipse/paho.golang/paho"
)

const keepAlive = 30

type v5Client struct {
	delegate *paho.Client
	conn     net.Conn
}

func connectV5(ctx context.Context, conf Configuration) (client, error) {
	ctx, cancel := context.WithTimeout(ctx, conf.timeout())
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", conf.address())
	if err != nil {
		return nil, fmt.Errorf("cannot connect to %s: %w", conf.address(), err)
	}

	delegate := paho.NewClient(paho.ClientConfig{
		Conn: conn,
	})

	cp := &paho.Connect{
		KeepAlive:  keepAlive,
		ClientID:   conf.clientId(),
		CleanStart: true,
	}
	if v := conf.Username; v != "" {
		cp.Username = v
		cp.UsernameFlag = true
	}
	if v := conf.Password; v != "" {
		cp.Password = []byte(v)
		cp.PasswordFlag = true
	}

	ca, err := delegate.Connect(ctx, cp)
	if err != nil {
		_ = conn.Close()
		if ca != nil {
			return nil, fmt.Errorf("broker %s refused MQTT v5 session (reason code %d): %w", conf.address(), ca.ReasonCode, err)
		}
		return nil, fmt.Errorf("cannot establish MQTT v5 session with %s: %w", conf.address(), err)
	}

	return &v5Client{delegate, conn}, nil
}

func (this *v5Client) Publish(ctx context.Context, topic string, payload []byte) error {
	if _, err := this.delegate.Publish(ctx, &paho.Publish{
		Topic:   topic,
		QoS:     0,
		Retain:  false,
		Payload: payload,
	}); err != nil {
		return err
	}
	return nil
}

func (this *v5Client) Disconnect() error {
	err := this.delegate.Disconnect(&paho.Disconnect{ReasonCode: 0})
	_ = this.conn.Close()
	return err
}

func (this *v5Client) Protocol() Protocol {
	return ProtocolV5
}
