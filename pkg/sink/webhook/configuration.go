package webhook

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/blaubaer/presence-monitor/pkg/common"
	"github.com/blaubaer/presence-monitor/pkg/presence"
)

const DefaultTimeout = 2 * time.Second

func NewConfiguration() Configuration {
	return Configuration{
		Timeout: common.Duration(DefaultTimeout),
	}
}

type Configuration struct {
	Enable     bool            `yaml:"enable" toml:"enable"`
	BaseUrl    string          `yaml:"base_url,omitempty" toml:"base_url,omitempty"`
	WebhookMic string          `yaml:"webhook_mic,omitempty" toml:"webhook_mic,omitempty"`
	WebhookCam string          `yaml:"webhook_cam,omitempty" toml:"webhook_cam,omitempty"`
	Timeout    common.Duration `yaml:"timeout,omitempty" toml:"timeout,omitempty"`
}

func (this *Configuration) SetupConfiguration(using common.FlagHolder) {
	common.Flag(using, "homeassistant.enable", "If set the states are sent to the Home Assistant webhooks.").
		BoolVar(&this.Enable)
	common.Flag(using, "homeassistant.baseUrl", "URL of the Home Assistant instance, like http://homeassistant.local:8123").
		StringVar(&this.BaseUrl)
	common.Flag(using, "homeassistant.webhookMic", "Webhook ID which receives the microphone state.").
		StringVar(&this.WebhookMic)
	common.Flag(using, "homeassistant.webhookCam", "Webhook ID which receives the camera state.").
		StringVar(&this.WebhookCam)
	common.Flag(using, "homeassistant.timeout", "Timeout of each webhook request.").
		SetValue(&this.Timeout)
}

func (this Configuration) Validate(signals presence.Signals) error {
	if !this.Enable {
		return nil
	}
	if this.BaseUrl == "" {
		return errors.New("homeassistant.base_url is required if the Home Assistant sink is enabled")
	}
	if u, err := url.Parse(this.BaseUrl); err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("homeassistant.base_url must be an absolute URL, like http://homeassistant.local:8123")
	}
	if signals.Has(presence.SignalMicrophone) && this.WebhookMic == "" {
		return errors.New("homeassistant.webhook_mic is required if the Home Assistant sink is enabled and the microphone is monitored")
	}
	if signals.Has(presence.SignalCamera) && this.WebhookCam == "" {
		return errors.New("homeassistant.webhook_cam is required if the Home Assistant sink is enabled and the camera is monitored")
	}
	return nil
}

func (this Configuration) urlOf(signal presence.Signal) string {
	var id string
	switch signal {
	case presence.SignalMicrophone:
		id = this.WebhookMic
	case presence.SignalCamera:
		id = this.WebhookCam
	}
	if id == "" {
		return ""
	}
	return strings.TrimRight(this.BaseUrl, "/") + "/api/webhook/" + id
}

func (this Configuration) timeout() time.Duration {
	if v := this.Timeout.Duration(); v > 0 {
		return v
	}
	return DefaultTimeout
}
