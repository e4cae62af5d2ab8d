package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	log "github.com/echocat/slf4g"
	"github.com/echocat/slf4g/native"
	"github.com/echocat/slf4g/native/consumer"
	"github.com/echocat/slf4g/native/facade/value"
	"github.com/echocat/slf4g/native/formatter"

	"github.com/blaubaer/presence-monitor/pkg/app"
	"github.com/blaubaer/presence-monitor/pkg/common"
	"github.com/blaubaer/presence-monitor/pkg/service"
	"github.com/blaubaer/presence-monitor/pkg/sink/hue"
)

func main() {
	a := app.NewApp()
	consumer.Default = consumer.NewWriter(a.Output)

	lv := value.NewProvider(native.DefaultProvider)
	lv.Consumer.Formatter.Codec = value.MappingFormatterCodec{
		"text": formatter.NewText(func(v *formatter.Text) {
			bv := true
			v.AllowMultiLineMessage = &bv
			v.MultiLineMessageAfterFields = &bv
		}),
		"json": formatter.NewJson(),
	}

	cmd := kingpin.New(filepath.Base(os.Args[0]), "Publishes whether the microphone or the camera of this host is in use.")
	a.SetupConfiguration(cmd)

	cmd.Command("run", "Runs the presence monitor in foreground (or as service if started by the service manager).").
		Default().
		Action(func(*kingpin.ParseContext) error {
			return run(a)
		})

	configurationCmd := cmd.Command("configuration", "Handles the configuration file.")
	var configurationTarget string
	configurationWriteCmd := configurationCmd.Command("write", "Writes the effective configuration to the given .yml or .toml file.").
		Action(func(*kingpin.ParseContext) error {
			if err := a.WriteConfiguration(configurationTarget); err != nil {
				return err
			}
			log.With("file", configurationTarget).
				Info("Configuration written.")
			return nil
		})
	configurationWriteCmd.Arg("file", "Target file.").
		Required().
		StringVar(&configurationTarget)

	serviceCmd := cmd.Command("service", "Handles the Windows service of the presence monitor.")
	serviceCmd.Command("install", "Installs the presence monitor as automatically started Windows service.").
		Action(func(*kingpin.ParseContext) error {
			return installService(a)
		})
	serviceCmd.Command("uninstall", "Removes the Windows service of the presence monitor.").
		Action(func(*kingpin.ParseContext) error {
			if err := service.Uninstall(); err != nil {
				return err
			}
			log.With("service", service.Name).
				Info("Service uninstalled.")
			return nil
		})

	hueCmd := cmd.Command("hue", "Handles the Philips Hue bridge.")
	hueCmd.Command("pair", "Pairs with the Hue bridge; the link button of the bridge has to be pressed.").
		Action(func(*kingpin.ParseContext) error {
			return pairHue(a)
		})

	credentialsCmd := cmd.Command("credentials", "Handles the credentials stored in the credential store of the operating system.")
	credentialsCmd.Command("broker-password", "Asks for the password of the MQTT broker and stores it.").
		Action(func(*kingpin.ParseContext) error {
			return storeBrokerPassword(a)
		})

	cmd.Flag("log.level", "").
		SetValue(lv.Level)
	cmd.Flag("log.format", "").
		Default("text").
		SetValue(lv.Consumer.Formatter)
	cmd.Flag("log.color", "").
		Default("always").
		SetValue(lv.Consumer.Formatter.ColorMode)

	kingpin.MustParse(cmd.Parse(os.Args[1:]))
}

func run(a *app.App) error {
	isService, err := service.IsService()
	if err != nil {
		return fmt.Errorf("cannot determine if running as service: %w", err)
	}
	if isService {
		return service.Run(func(ctx context.Context) error {
			return runApp(ctx, a)
		})
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return runApp(ctx, a)
}

func runApp(ctx context.Context, a *app.App) (rErr error) {
	if err := a.Initialize(ctx); err != nil {
		return err
	}
	defer func() {
		if err := a.Dispose(); err != nil && rErr == nil {
			rErr = err
		}
	}()

	if err := a.Run(ctx); err != nil {
		return err
	}
	log.Info("Terminated. Going down...")
	return nil
}

func installService(a *app.App) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("cannot resolve executable: %w", err)
	}

	args := []string{"run"}
	if fn := a.ConfigurationFile; fn != "" {
		if fn, err = filepath.Abs(fn); err != nil {
			return err
		}
		args = append(args, "--configuration="+fn)
	}

	if err := service.Install(exe, args...); err != nil {
		return err
	}
	log.With("service", service.Name).
		With("executable", exe).
		Info("Service installed.")
	return nil
}

func pairHue(a *app.App) error {
	conf, err := a.LoadConfiguration()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	v, supported, err := hue.Pair(ctx, conf.Hue, a.Store)
	if err != nil {
		return err
	}
	if !supported {
		log.With("bridge", v.HueBridge).
			With("user", v.HueUser).
			Warn("There is no credential store on this platform. Put bridge and user into the hue section of the configuration.")
		return nil
	}
	log.With("bridge", v.HueBridge).
		Info("Paired with hue bridge.")
	return nil
}

func storeBrokerPassword(a *app.App) error {
	conf, err := a.LoadConfiguration()
	if err != nil {
		return err
	}

	v, supported, err := a.Store.Read()
	if err != nil {
		return err
	}
	if !supported {
		return fmt.Errorf("%w: put the password into mqtt.password of the configuration", common.ErrUnsupported)
	}

	username := conf.Mqtt.Username
	if username == "" {
		if username, err = common.RequestFromTerminal("MQTT broker username (optional)", true, false); err != nil {
			return err
		}
	}
	password, err := common.RequestFromTerminal("MQTT broker password", false, true)
	if err != nil {
		return err
	}

	v.BrokerUsername = username
	v.BrokerPassword = password
	if _, err := a.Store.Write(v); err != nil {
		return err
	}

	log.With("username", username).
		Info("MQTT broker credentials stored.")
	return nil
}
