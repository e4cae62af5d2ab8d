package facade

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	log "github.com/echocat/slf4g"

	"github.com/blaubaer/presence-monitor/pkg/credentials"
	"github.com/blaubaer/presence-monitor/pkg/presence"
	"github.com/blaubaer/presence-monitor/pkg/sink/broker"
	"github.com/blaubaer/presence-monitor/pkg/sink/console"
	"github.com/blaubaer/presence-monitor/pkg/sink/hue"
	"github.com/blaubaer/presence-monitor/pkg/sink/webhook"
)

type Sink interface {
	presence.Sink
	Dispose() error
}

type initializable interface {
	Initialize(ctx context.Context) error
}

// Facade owns all enabled sinks. They are always ordered: broker, webhook,
// hue, console.
type Facade struct {
	Console io.Writer
	Store   credentials.Store

	sinks []Sink
	lock  sync.RWMutex
}

func (this *Facade) Initialize(ctx context.Context, conf Configuration, signals presence.Signals) (rErr error) {
	this.lock.Lock()
	defer this.lock.Unlock()

	if this.sinks != nil {
		return nil
	}

	success := false
	defer func() {
		if !success {
			if err := this.dispose(); err != nil && rErr == nil {
				rErr = err
			}
		}
	}()

	if conf.Broker.Enable {
		this.completeBrokerCredentials(&conf.Broker)
		if err := this.add(ctx, broker.New(conf.Broker, signals)); err != nil {
			return err
		}
	}
	if conf.Webhook.Enable {
		if err := this.add(ctx, webhook.New(conf.Webhook, signals)); err != nil {
			return err
		}
	}
	if conf.Hue.Enable {
		if err := this.add(ctx, hue.New(conf.Hue, signals, this.Store)); err != nil {
			return err
		}
	}
	if conf.Console {
		out := this.Console
		if out == nil {
			out = os.Stdout
		}
		if err := this.add(ctx, console.New(out, signals)); err != nil {
			return err
		}
	}

	if len(this.sinks) == 0 {
		log.Info("No sink is enabled. States are only logged.")
	}

	success = true
	return nil
}

func (this *Facade) add(ctx context.Context, sink Sink) error {
	if v, ok := sink.(initializable); ok {
		if err := v.Initialize(ctx); err != nil {
			return fmt.Errorf("cannot initialize %v sink: %w", sink.GetType(), err)
		}
	}
	this.sinks = append(this.sinks, sink)
	return nil
}

func (this *Facade) completeBrokerCredentials(conf *broker.Configuration) {
	if conf.Password != "" || this.Store == nil {
		return
	}
	v, supported, err := this.Store.Read()
	if err != nil {
		log.WithError(err).
			Warn("Cannot read MQTT broker credentials from credential store.")
		return
	}
	if !supported || v.IsBrokerZero() {
		return
	}
	if conf.Username == "" {
		conf.Username = v.BrokerUsername
	}
	conf.Password = v.BrokerPassword
}

// Sinks returns all enabled sinks in the order they have to be invoked.
func (this *Facade) Sinks() []presence.Sink {
	this.lock.RLock()
	defer this.lock.RUnlock()

	result := make([]presence.Sink, len(this.sinks))
	for i, v := range this.sinks {
		result[i] = v
	}
	return result
}

// Dispose disposes all sinks in reverse order and returns the first error.
func (this *Facade) Dispose() error {
	this.lock.Lock()
	defer this.lock.Unlock()

	return this.dispose()
}

func (this *Facade) dispose() (rErr error) {
	defer func() {
		this.sinks = nil
	}()

	for i := len(this.sinks) - 1; i >= 0; i-- {
		if err := this.sinks[i].Dispose(); err != nil {
			log.WithError(err).
				With("sink", this.sinks[i].GetType()).
				Warn("Cannot dispose sink.")
			if rErr == nil {
				rErr = err
			}
		}
	}
	return
}
