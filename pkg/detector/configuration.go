package detector

import (
	"time"

	"github.com/blaubaer/presence-monitor/pkg/common"
)

const DefaultCameraTimeout = 10 * time.Second

func NewMicrophoneConfiguration() MicrophoneConfiguration {
	return MicrophoneConfiguration{}
}

type MicrophoneConfiguration struct {
	// Exclude holds the name of processes whose sessions are never
	// respected, for example a sound recorder running in the background.
	Exclude common.Regexp `yaml:"exclude,omitempty" toml:"exclude,omitempty"`
}

func (this *MicrophoneConfiguration) SetupConfiguration(using common.FlagHolder) {
	common.Flag(using, "microphone.exclude", "Regex of process names whose audio sessions should not be respected.").
		SetValue(&this.Exclude)
}

func NewCameraConfiguration() CameraConfiguration {
	return CameraConfiguration{
		Timeout: common.Duration(DefaultCameraTimeout),
	}
}

// CameraConfiguration overrides the platform defaults of the helper tool
// which lists the open handles of all processes.
type CameraConfiguration struct {
	Helper     string          `yaml:"helper,omitempty" toml:"helper,omitempty"`
	HelperArgs []string        `yaml:"helper_args,omitempty" toml:"helper_args,omitempty"`
	Markers    []string        `yaml:"markers,omitempty" toml:"markers,omitempty"`
	Timeout    common.Duration `yaml:"timeout,omitempty" toml:"timeout,omitempty"`
}

func (this *CameraConfiguration) SetupConfiguration(using common.FlagHolder) {
	common.Flag(using, "camera.helper", "Name or path of the tool which lists open handles. Default: "+defaultCameraHelper().name).
		StringVar(&this.Helper)
	common.Flag(using, "camera.helperArgs", "Arguments passed to the helper tool.").
		StringsVar(&this.HelperArgs)
	common.Flag(using, "camera.markers", "Case-insensitive substrings which identify a camera handle in the output of the helper tool.").
		StringsVar(&this.Markers)
	common.Flag(using, "camera.timeout", "How long the helper tool may run before it is killed.").
		SetValue(&this.Timeout)
}

type cameraHelper struct {
	name    string
	args    []string
	markers []string
}

func (this CameraConfiguration) helper() cameraHelper {
	result := defaultCameraHelper()
	if v := this.Helper; v != "" {
		result.name = v
	}
	if v := this.HelperArgs; len(v) > 0 {
		result.args = v
	}
	if v := this.Markers; len(v) > 0 {
		result.markers = v
	}
	return result
}

func (this CameraConfiguration) timeout() time.Duration {
	if v := this.Timeout.Duration(); v > 0 {
		return v
	}
	return DefaultCameraTimeout
}
