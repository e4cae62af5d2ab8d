package broker

import (
	"errors"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/blaubaer/presence-monitor/pkg/common"
	"github.com/blaubaer/presence-monitor/pkg/presence"
)

const (
	DefaultPort    = uint16(1883)
	DefaultTimeout = 5 * time.Second
)

func NewConfiguration() Configuration {
	return Configuration{
		Port:    DefaultPort,
		Timeout: common.Duration(DefaultTimeout),
	}
}

type Configuration struct {
	Enable   bool   `yaml:"enable" toml:"enable"`
	Broker   string `yaml:"broker,omitempty" toml:"broker,omitempty"`
	Port     uint16 `yaml:"port,omitempty" toml:"port,omitempty"`
	TopicMic string `yaml:"topic_mic,omitempty" toml:"topic_mic,omitempty"`
	TopicCam string `yaml:"topic_cam,omitempty" toml:"topic_cam,omitempty"`

	ClientId string `yaml:"client_id,omitempty" toml:"client_id,omitempty"`
	Username string `yaml:"username,omitempty" toml:"username,omitempty"`
	Password string `yaml:"password,omitempty" toml:"password,omitempty"`

	Protocol  Protocol        `yaml:"protocol,omitempty" toml:"protocol,omitempty"`
	Timeout   common.Duration `yaml:"timeout,omitempty" toml:"timeout,omitempty"`
	Reconnect bool            `yaml:"reconnect,omitempty" toml:"reconnect,omitempty"`
}

func (this *Configuration) SetupConfiguration(using common.FlagHolder) {
	common.Flag(using, "mqtt.enable", "If set the states are published to the MQTT broker.").
		BoolVar(&this.Enable)
	common.Flag(using, "mqtt.broker", "Host of the MQTT broker.").
		StringVar(&this.Broker)
	common.Flag(using, "mqtt.port", "Port of the MQTT broker.").
		PlaceHolder(strconv.Itoa(int(DefaultPort))).
		Uint16Var(&this.Port)
	common.Flag(using, "mqtt.topicMic", "Topic the microphone state is published to.").
		StringVar(&this.TopicMic)
	common.Flag(using, "mqtt.topicCam", "Topic the camera state is published to.").
		StringVar(&this.TopicCam)
	common.Flag(using, "mqtt.clientId", "Client identifier presented to the MQTT broker. Default: presence-monitor-<hostname>").
		StringVar(&this.ClientId)
	common.Flag(using, "mqtt.username", "Username to authenticate at the MQTT broker.").
		StringVar(&this.Username)
	common.Flag(using, "mqtt.password", "Password to authenticate at the MQTT broker. If absent it is taken from the credential store.").
		StringVar(&this.Password)
	common.Flag(using, "mqtt.protocol", "MQTT protocol version to use. Possible values: auto, 5, 3.1.1").
		SetValue(&this.Protocol)
	common.Flag(using, "mqtt.timeout", "Timeout for connecting and publishing.").
		SetValue(&this.Timeout)
	common.Flag(using, "mqtt.reconnect", "If set an unconnected sink tries to connect again on the next publish.").
		BoolVar(&this.Reconnect)
}

func (this Configuration) Validate(signals presence.Signals) error {
	if !this.Enable {
		return nil
	}
	if this.Broker == "" {
		return errors.New("mqtt.broker is required if the MQTT sink is enabled")
	}
	if signals.Has(presence.SignalMicrophone) && this.TopicMic == "" {
		return errors.New("mqtt.topic_mic is required if the MQTT sink is enabled and the microphone is monitored")
	}
	if signals.Has(presence.SignalCamera) && this.TopicCam == "" {
		return errors.New("mqtt.topic_cam is required if the MQTT sink is enabled and the camera is monitored")
	}
	return nil
}

func (this Configuration) address() string {
	port := this.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(this.Broker, strconv.Itoa(int(port)))
}

func (this Configuration) clientId() string {
	if v := this.ClientId; v != "" {
		return v
	}
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		return "presence-monitor-" + hostname
	}
	return "presence-monitor"
}

func (this Configuration) timeout() time.Duration {
	if v := this.Timeout.Duration(); v > 0 {
		return v
	}
	return DefaultTimeout
}

func (this Configuration) topicOf(signal presence.Signal) string {
	switch signal {
	case presence.SignalMicrophone:
		return this.TopicMic
	case presence.SignalCamera:
		return this.TopicCam
	default:
		return ""
	}
}
