package hue

import (
	"time"

	"github.com/blaubaer/presence-monitor/pkg/common"
)

const (
	DefaultRefreshInterval = 5 * time.Minute
	DefaultTimeout         = 2 * time.Second
)

func NewConfiguration() Configuration {
	return Configuration{
		Target:  common.MustParseRegexp("^OnAir"),
		Refresh: common.Duration(DefaultRefreshInterval),
		Timeout: common.Duration(DefaultTimeout),

		Brightness: 254,
		Hue:        65535,
		Saturation: 254,
	}
}

type Configuration struct {
	Enable bool   `yaml:"enable" toml:"enable"`
	Bridge string `yaml:"bridge,omitempty" toml:"bridge,omitempty"`
	User   string `yaml:"user,omitempty" toml:"user,omitempty"`

	Target  common.Regexp   `yaml:"target" toml:"target"`
	Kinds   Kinds           `yaml:"kinds,omitempty" toml:"kinds,omitempty"`
	Refresh common.Duration `yaml:"refresh,omitempty" toml:"refresh,omitempty"`
	Timeout common.Duration `yaml:"timeout,omitempty" toml:"timeout,omitempty"`

	Brightness uint8  `yaml:"brightness" toml:"brightness"`
	Hue        uint16 `yaml:"hue" toml:"hue"`
	Saturation uint8  `yaml:"saturation" toml:"saturation"`
}

func (this *Configuration) SetupConfiguration(using common.FlagHolder) {
	common.Flag(using, "hue.enable", "If set the matching Philips Hue lights are switched on while a signal is active.").
		BoolVar(&this.Enable)
	common.Flag(using, "hue.bridge", "Usually the bridge is automatically detected. You can specify an explicit one if there are more than one.").
		StringVar(&this.Bridge)
	common.Flag(using, "hue.user", "Usually this is set while pairing and taken from the credential store. If set this one is used instead.").
		StringVar(&this.User)
	common.Flag(using, "hue.target", "Name as regex of the lights/groups which should be handled by this app.").
		SetValue(&this.Target)
	common.Flag(using, "hue.kind", "Kind(s) of what should be handled. Possible values: "+AllKinds.String()).
		SetValue(&this.Kinds)
	common.Flag(using, "hue.refresh", "How often the lights/groups of the bridge are discovered again.").
		SetValue(&this.Refresh)
	common.Flag(using, "hue.timeout", "Timeout of each request to the bridge.").
		SetValue(&this.Timeout)

	common.Flag(using, "hue.brightness", "The brightness value to set the light to. Brightness is a scale from 1 (the minimum the light is capable of) to 254 (the maximum).").
		Uint8Var(&this.Brightness)
	common.Flag(using, "hue.hue", "The hue value to set light to. The hue value is a wrapping value between 0 and 65535. Both 0 and 65535 are red, 25500 is green and 46920 is blue.").
		Uint16Var(&this.Hue)
	common.Flag(using, "hue.saturation", "Saturation of the light. 254 is the most saturated (colored) and 0 is the least saturated (white).").
		Uint8Var(&this.Saturation)
}

func (this Configuration) refresh() time.Duration {
	if v := this.Refresh.Duration(); v > 0 {
		return v
	}
	return DefaultRefreshInterval
}

func (this Configuration) timeout() time.Duration {
	if v := this.Timeout.Duration(); v > 0 {
		return v
	}
	return DefaultTimeout
}
