package broker

import (
	"context"
	"fmt"
	"sync"

	log "github.com/echocat/slf4g"

	"github.com/blaubaer/presence-monitor/pkg/metrics"
	"github.com/blaubaer/presence-monitor/pkg/presence"
)

// Broker publishes the state of every monitored signal to its topic. The
// session is established once while initializing. If that fails every
// following publish is reported as not connected, unless Reconnect is
// enabled.
type Broker struct {
	conf    Configuration
	signals presence.Signals

	connectors map[Protocol]connector
	client     client
	mutex      sync.Mutex
}

func New(conf Configuration, signals presence.Signals) *Broker {
	return &Broker{
		conf:       conf,
		signals:    signals,
		connectors: connectors,
	}
}

func (this *Broker) GetType() presence.SinkType {
	return presence.SinkTypeBroker
}

func (this *Broker) Initialize(ctx context.Context) error {
	if err := this.conf.Validate(this.signals); err != nil {
		return err
	}

	this.mutex.Lock()
	defer this.mutex.Unlock()

	if err := this.connect(ctx); err != nil {
		log.WithError(err).
			With("broker", this.conf.address()).
			Warn("Cannot connect to MQTT broker. States will not be published.")
	}
	return nil
}

func (this *Broker) connect(ctx context.Context) error {
	c, err := this.connectWith(ctx, this.conf.Protocol)
	if err != nil {
		return err
	}
	this.client = c
	log.With("broker", this.conf.address()).
		With("protocol", c.Protocol()).
		Info("Connected to MQTT broker.")
	return nil
}

func (this *Broker) connectWith(ctx context.Context, protocol Protocol) (client, error) {
	if protocol != ProtocolAuto {
		connect, ok := this.connectors[protocol]
		if !ok {
			return nil, fmt.Errorf("unsupported MQTT protocol: %v", protocol)
		}
		return connect(ctx, this.conf)
	}

	c, err := this.connectWith(ctx, ProtocolV5)
	if err == nil {
		return c, nil
	}
	log.WithError(err).
		With("broker", this.conf.address()).
		Warn("MQTT v5 connection failed. Falling back to MQTT v3.1.1...")

	return this.connectWith(ctx, ProtocolV311)
}

func (this *Broker) Publish(ctx context.Context, snapshot presence.Snapshot) {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	for _, signal := range this.signals {
		topic := this.conf.topicOf(signal)
		value := snapshot.StateOf(signal)
		if topic == "" {
			continue
		}
		if err := this.publish(ctx, topic, value); err != nil {
			log.WithError(err).
				With("topic", topic).
				With("value", value).
				Warn("Cannot publish state to MQTT broker.")
			metrics.DeliveryFailed(presence.SinkTypeBroker, signal)
			continue
		}
		log.With("topic", topic).
			With("value", value).
			Debug("State published to MQTT broker.")
	}
}

func (this *Broker) publish(ctx context.Context, topic, value string) error {
	if this.client == nil {
		if !this.conf.Reconnect {
			return ErrNotConnected
		}
		if err := this.connect(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrNotConnected, err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, this.conf.timeout())
	defer cancel()

	if err := this.client.Publish(ctx, topic, []byte(value)); err != nil {
		if this.conf.Reconnect {
			this.disconnect()
		}
		return err
	}
	return nil
}

func (this *Broker) disconnect() {
	if c := this.client; c != nil {
		this.client = nil
		if err := c.Disconnect(); err != nil {
			log.WithError(err).
				Debug("Cannot cleanly disconnect from MQTT broker.")
		}
	}
}

func (this *Broker) Dispose() error {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	this.disconnect()
	return nil
}
