package metrics

import "github.com/blaubaer/presence-monitor/pkg/common"

const DefaultListen = "127.0.0.1:9464"

func NewConfiguration() Configuration {
	return Configuration{
		Listen: DefaultListen,
	}
}

type Configuration struct {
	Enable bool   `yaml:"enable" toml:"enable"`
	Listen string `yaml:"listen,omitempty" toml:"listen,omitempty"`
}

func (this *Configuration) SetupConfiguration(using common.FlagHolder) {
	common.Flag(using, "metrics.enable", "If set the Prometheus metrics are served at /metrics.").
		BoolVar(&this.Enable)
	common.Flag(using, "metrics.listen", "Address the metrics listener binds to.").
		PlaceHolder(DefaultListen).
		StringVar(&this.Listen)
}
