package app

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

const legacyConfigurationFile = "config.ini"

type format uint8

const (
	formatYaml = format(0)
	formatToml = format(1)
	formatIni  = format(2)
)

func formatOf(fn string) (format, error) {
	switch strings.ToLower(filepath.Ext(fn)) {
	case ".yml", ".yaml":
		return formatYaml, nil
	case ".toml":
		return formatToml, nil
	case ".ini":
		return formatIni, nil
	default:
		return 0, fmt.Errorf("unsupported configuration file format of %q; supported are .yml, .yaml, .toml and .ini", fn)
	}
}

func (this *Configuration) loadFrom(r io.Reader, f format) error {
	switch f {
	case formatYaml:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(this); err != nil && err != io.EOF {
			return err
		}
		return nil
	case formatToml:
		return toml.NewDecoder(r).
			DisallowUnknownFields().
			Decode(this)
	case formatIni:
		b, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		return this.loadFromIni(b)
	default:
		return fmt.Errorf("unsupported configuration format: %d", f)
	}
}

func (this *Configuration) loadFromFile(fn string, ignoreNotFound bool) error {
	f, err := formatOf(fn)
	if err != nil {
		return err
	}

	file, err := os.Open(fn)
	if os.IsNotExist(err) && ignoreNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot open configuration file %q: %w", fn, err)
	}
	defer func() {
		_ = file.Close()
	}()

	if err := this.loadFrom(file, f); err != nil {
		return fmt.Errorf("cannot load configuration file %q: %w", fn, err)
	}

	return nil
}

func (this *Configuration) saveTo(w io.Writer, f format) error {
	switch f {
	case formatYaml:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		return enc.Encode(this)
	case formatToml:
		return toml.NewEncoder(w).Encode(this)
	default:
		return fmt.Errorf("configuration can only be written as .yml or .toml")
	}
}

func (this *Configuration) saveToFile(fn string) error {
	f, err := formatOf(fn)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := this.saveTo(&buf, f); err != nil {
		return fmt.Errorf("cannot write configuration file %q: %w", fn, err)
	}

	_ = os.MkdirAll(filepath.Dir(fn), 0700)
	if err := os.WriteFile(fn, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("cannot write configuration file %q: %w", fn, err)
	}

	return nil
}

// DefaultConfigurationFile is config.ini of the working directory if it
// exists. Otherwise configuration.yml inside the configuration directory of
// the current user.
func DefaultConfigurationFile() string {
	if fi, err := os.Stat(legacyConfigurationFile); err == nil && !fi.IsDir() {
		return legacyConfigurationFile
	}

	if appData := os.Getenv("APPDATA"); appData != "" {
		fs, err := os.Stat(appData)
		if err == nil && fs.IsDir() {
			return filepath.Join(appData, "presence-monitor", "configuration.yml")
		}
	}

	u, err := user.Current()
	if err != nil {
		return "configuration.yml"
	}

	return filepath.Join(u.HomeDir, ".config", "presence-monitor", "configuration.yml")
}

// iniFile is the legacy config.ini layout.
type iniFile struct {
	General struct {
		PollInterval      string `ini:"poll_interval"`
		MonitorMicrophone *bool  `ini:"monitor_microphone"`
		MonitorCamera     *bool  `ini:"monitor_camera"`
	} `ini:"general"`
	Logging struct {
		LogDir      string `ini:"log_dir"`
		MaxSize     string `ini:"max_size"`
		BackupCount *int   `ini:"backup_count"`
		ShowConsole *bool  `ini:"show_console"`
	} `ini:"logging"`
	Mqtt struct {
		Enable   *bool  `ini:"enable"`
		Broker   string `ini:"broker"`
		Port     *int   `ini:"port"`
		TopicMic string `ini:"topic_mic"`
		TopicCam string `ini:"topic_cam"`
		Username string `ini:"username"`
		Password string `ini:"password"`
		Protocol string `ini:"protocol"`
	} `ini:"mqtt"`
	HomeAssistant struct {
		Enable     *bool  `ini:"enable"`
		BaseUrl    string `ini:"base_url"`
		WebhookMic string `ini:"webhook_mic"`
		WebhookCam string `ini:"webhook_cam"`
	} `ini:"homeassistant"`
}

func (this *Configuration) loadFromIni(b []byte) error {
	f, err := ini.Load(b)
	if err != nil {
		return err
	}
	var buf iniFile
	if err := f.MapTo(&buf); err != nil {
		return err
	}

	if v := buf.General.PollInterval; v != "" {
		if err := this.General.PollInterval.Set(v); err != nil {
			return fmt.Errorf("general.poll_interval: %w", err)
		}
	}
	setIfPresent(&this.General.MonitorMicrophone, buf.General.MonitorMicrophone)
	setIfPresent(&this.General.MonitorCamera, buf.General.MonitorCamera)

	setIfNotEmpty(&this.Logging.Dir, buf.Logging.LogDir)
	if v := buf.Logging.MaxSize; v != "" {
		if err := this.Logging.MaxSize.Set(v); err != nil {
			return fmt.Errorf("logging.max_size: %w", err)
		}
	}
	setIfPresent(&this.Logging.BackupCount, buf.Logging.BackupCount)
	setIfPresent(&this.Logging.ShowConsole, buf.Logging.ShowConsole)

	setIfPresent(&this.Mqtt.Enable, buf.Mqtt.Enable)
	setIfNotEmpty(&this.Mqtt.Broker, buf.Mqtt.Broker)
	if v := buf.Mqtt.Port; v != nil {
		if *v <= 0 || *v > 65535 {
			return fmt.Errorf("mqtt.port: illegal port %d", *v)
		}
		this.Mqtt.Port = uint16(*v)
	}
	setIfNotEmpty(&this.Mqtt.TopicMic, buf.Mqtt.TopicMic)
	setIfNotEmpty(&this.Mqtt.TopicCam, buf.Mqtt.TopicCam)
	setIfNotEmpty(&this.Mqtt.Username, buf.Mqtt.Username)
	setIfNotEmpty(&this.Mqtt.Password, buf.Mqtt.Password)
	if v := buf.Mqtt.Protocol; v != "" {
		if err := this.Mqtt.Protocol.Set(v); err != nil {
			return fmt.Errorf("mqtt.protocol: %w", err)
		}
	}

	setIfPresent(&this.HomeAssistant.Enable, buf.HomeAssistant.Enable)
	setIfNotEmpty(&this.HomeAssistant.BaseUrl, buf.HomeAssistant.BaseUrl)
	setIfNotEmpty(&this.HomeAssistant.WebhookMic, buf.HomeAssistant.WebhookMic)
	setIfNotEmpty(&this.HomeAssistant.WebhookCam, buf.HomeAssistant.WebhookCam)

	return nil
}

func setIfPresent[T any](target *T, v *T) {
	if v != nil {
		*target = *v
	}
}

func setIfNotEmpty(target *string, v string) {
	if v != "" {
		*target = v
	}
}
