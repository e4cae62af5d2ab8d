package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	log "github.com/echocat/slf4g"

	"github.com/blaubaer/presence-monitor/pkg/audio"
	"github.com/blaubaer/presence-monitor/pkg/common"
	"github.com/blaubaer/presence-monitor/pkg/credentials"
	"github.com/blaubaer/presence-monitor/pkg/detector"
	"github.com/blaubaer/presence-monitor/pkg/logging"
	"github.com/blaubaer/presence-monitor/pkg/metrics"
	"github.com/blaubaer/presence-monitor/pkg/presence"
	"github.com/blaubaer/presence-monitor/pkg/sink/facade"
)

func NewApp() *App {
	return &App{
		Output:  logging.NewOutput(os.Stdout),
		Console: os.Stdout,
		Store:   credentials.SystemStore{},
	}
}

type App struct {
	ConfigurationFile string
	Debug             bool

	// Output receives all log events; it is directed to the log file (and
	// Console) while initializing.
	Output  *logging.Output
	Console io.Writer
	Store   credentials.Store

	AudioStack audio.Stack
	Sinks      facade.Facade
	Metrics    *metrics.Server
	Loop       presence.Loop

	configFromFlags Configuration
	config          Configuration
	logFile         io.Closer
	mutex           sync.Mutex
}

func (this *App) SetupConfiguration(using common.FlagHolder) {
	this.configFromFlags.SetupConfiguration(using)

	common.Flag(using, "configuration", "Defines the file from which the configuration should be loaded. Supported are .yml, .yaml, .toml and .ini. Default: "+DefaultConfigurationFile()).
		Short('c').
		StringVar(&this.ConfigurationFile)
	common.Flag(using, "debug", "Forces the console output, even if logging.show_console is disabled.").
		BoolVar(&this.Debug)
}

// LoadConfiguration reads the configuration file and applies all
// configuration flags on top of it.
func (this *App) LoadConfiguration() (Configuration, error) {
	result := NewConfiguration()

	fn := this.ConfigurationFile
	ignoreNotFound := false
	if fn == "" {
		fn = DefaultConfigurationFile()
		ignoreNotFound = true
	}
	if err := result.loadFromFile(fn, ignoreNotFound); err != nil {
		return Configuration{}, err
	}
	if err := common.MergeOverride(&result, this.configFromFlags); err != nil {
		return Configuration{}, fmt.Errorf("cannot apply flags to configuration: %w", err)
	}

	return result, nil
}

// WriteConfiguration stores the effective configuration to the given file.
func (this *App) WriteConfiguration(fn string) error {
	conf, err := this.LoadConfiguration()
	if err != nil {
		return err
	}
	return conf.saveToFile(fn)
}

func (this *App) consoleEnabled() bool {
	return this.config.Logging.ShowConsole || this.Debug
}

func (this *App) Initialize(ctx context.Context) (rErr error) {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	success := false
	defer func() {
		if !success {
			if err := this.dispose(); err != nil && rErr == nil {
				rErr = err
			}
		}
	}()

	conf, err := this.LoadConfiguration()
	if err != nil {
		return err
	}
	this.config = conf

	if err := this.initializeLogging(); err != nil {
		return err
	}

	signals := conf.Signals()
	detectors, err := this.detectors(signals)
	if err != nil {
		return err
	}

	if this.Sinks.Console == nil {
		this.Sinks.Console = this.Console
	}
	if this.Sinks.Store == nil {
		this.Sinks.Store = this.Store
	}
	if err := this.Sinks.Initialize(ctx, conf.sinks(this.consoleEnabled()), signals); err != nil {
		return err
	}

	this.Metrics = metrics.NewServer(conf.Metrics)
	if err := this.Metrics.Initialize(); err != nil {
		return err
	}

	this.Loop = presence.Loop{
		Detectors: detectors,
		Sinks:     this.Sinks.Sinks(),
		Interval:  conf.General.PollInterval.Duration(),
		Observer:  metrics.Observer{},
	}

	if this.Loop.Interval <= 0 {
		log.With("pollInterval", conf.General.PollInterval).
			Warn("Poll interval is not positive. States are published after every backoff instead.")
	}

	success = true
	return nil
}

func (this *App) initializeLogging() error {
	if this.Output == nil {
		return nil
	}
	var console io.Writer
	if this.consoleEnabled() {
		console = this.Console
	}
	closer, err := logging.Configure(this.Output, this.config.Logging, console)
	if err != nil {
		return err
	}
	this.logFile = closer
	return nil
}

func (this *App) detectors(signals presence.Signals) (result []presence.Detector, _ error) {
	if signals.Has(presence.SignalMicrophone) {
		if err := this.AudioStack.Initialize(); err != nil {
			return nil, err
		}
		result = append(result, detector.NewMicrophone(&this.AudioStack, this.config.Microphone))
	}
	if signals.Has(presence.SignalCamera) {
		result = append(result, detector.NewCamera(this.config.Camera))
	}
	if len(result) == 0 {
		log.Warn("Neither microphone nor camera is monitored. Every state will be reported as inactive.")
	}
	return
}

func (this *App) Run(ctx context.Context) error {
	return this.Loop.Run(ctx)
}

func (this *App) Dispose() error {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	return this.dispose()
}

func (this *App) dispose() (rErr error) {
	defer func() {
		if v := this.logFile; v != nil {
			if this.Output != nil {
				this.Output.Set(this.Console)
			}
			if err := v.Close(); err != nil && rErr == nil {
				rErr = err
			}
			this.logFile = nil
		}
	}()

	defer func() {
		if err := this.AudioStack.Dispose(); err != nil && rErr == nil {
			rErr = err
		}
	}()

	defer func() {
		if err := this.Sinks.Dispose(); err != nil && rErr == nil {
			rErr = err
		}
	}()

	if v := this.Metrics; v != nil {
		if err := v.Dispose(); err != nil {
			return err
		}
	}
	return nil
}
