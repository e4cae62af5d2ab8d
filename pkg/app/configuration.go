package app

import (
	"time"

	"github.com/blaubaer/presence-monitor/pkg/common"
	"github.com/blaubaer/presence-monitor/pkg/detector"
	"github.com/blaubaer/presence-monitor/pkg/logging"
	"github.com/blaubaer/presence-monitor/pkg/metrics"
	"github.com/blaubaer/presence-monitor/pkg/presence"
	"github.com/blaubaer/presence-monitor/pkg/sink/broker"
	"github.com/blaubaer/presence-monitor/pkg/sink/facade"
	"github.com/blaubaer/presence-monitor/pkg/sink/hue"
	"github.com/blaubaer/presence-monitor/pkg/sink/webhook"
)

const DefaultPollInterval = 5 * time.Second

func NewConfiguration() Configuration {
	return Configuration{
		General: General{
			PollInterval:      common.Duration(DefaultPollInterval),
			MonitorMicrophone: true,
			MonitorCamera:     true,
		},
		Logging:       logging.NewConfiguration(),
		Microphone:    detector.NewMicrophoneConfiguration(),
		Camera:        detector.NewCameraConfiguration(),
		Mqtt:          broker.NewConfiguration(),
		HomeAssistant: webhook.NewConfiguration(),
		Hue:           hue.NewConfiguration(),
		Metrics:       metrics.NewConfiguration(),
	}
}

type Configuration struct {
	General       General                          `yaml:"general" toml:"general"`
	Logging       logging.Configuration            `yaml:"logging" toml:"logging"`
	Microphone    detector.MicrophoneConfiguration `yaml:"microphone,omitempty" toml:"microphone,omitempty"`
	Camera        detector.CameraConfiguration     `yaml:"camera,omitempty" toml:"camera,omitempty"`
	Mqtt          broker.Configuration             `yaml:"mqtt" toml:"mqtt"`
	HomeAssistant webhook.Configuration            `yaml:"homeassistant" toml:"homeassistant"`
	Hue           hue.Configuration                `yaml:"hue" toml:"hue"`
	Metrics       metrics.Configuration            `yaml:"metrics" toml:"metrics"`
}

type General struct {
	PollInterval      common.Duration `yaml:"poll_interval" toml:"poll_interval"`
	MonitorMicrophone bool            `yaml:"monitor_microphone" toml:"monitor_microphone"`
	MonitorCamera     bool            `yaml:"monitor_camera" toml:"monitor_camera"`
}

func (this *Configuration) SetupConfiguration(using common.FlagHolder) {
	common.Flag(using, "general.pollInterval", "How often microphone and camera are checked. Plain numbers are seconds.").
		PlaceHolder("5s").
		SetValue(&this.General.PollInterval)

	this.Logging.SetupConfiguration(using)
	this.Microphone.SetupConfiguration(using)
	this.Camera.SetupConfiguration(using)
	this.Mqtt.SetupConfiguration(using)
	this.HomeAssistant.SetupConfiguration(using)
	this.Hue.SetupConfiguration(using)
	this.Metrics.SetupConfiguration(using)
}

// Signals are all monitored signals.
func (this Configuration) Signals() (result presence.Signals) {
	if this.General.MonitorMicrophone {
		result = append(result, presence.SignalMicrophone)
	}
	if this.General.MonitorCamera {
		result = append(result, presence.SignalCamera)
	}
	return
}

func (this Configuration) sinks(console bool) facade.Configuration {
	return facade.Configuration{
		Broker:  this.Mqtt,
		Webhook: this.HomeAssistant,
		Hue:     this.Hue,
		Console: console,
	}
}
