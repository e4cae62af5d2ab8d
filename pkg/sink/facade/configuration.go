package facade

import (
	"github.com/blaubaer/presence-monitor/pkg/sink/broker"
	"github.com/blaubaer/presence-monitor/pkg/sink/hue"
	"github.com/blaubaer/presence-monitor/pkg/sink/webhook"
)

type Configuration struct {
	Broker  broker.Configuration
	Webhook webhook.Configuration
	Hue     hue.Configuration
	Console bool
}
