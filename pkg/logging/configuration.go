package logging

import (
	"github.com/blaubaer/presence-monitor/pkg/common"
)

const (
	DefaultDir         = "logs"
	DefaultMaxSize     = Size(100_000)
	DefaultBackupCount = 3
	FileName           = "presence_monitor.log"
)

func NewConfiguration() Configuration {
	return Configuration{
		Dir:         DefaultDir,
		MaxSize:     DefaultMaxSize,
		BackupCount: DefaultBackupCount,
		ShowConsole: true,
	}
}

type Configuration struct {
	Dir         string `yaml:"log_dir,omitempty" toml:"log_dir,omitempty"`
	MaxSize     Size   `yaml:"max_size,omitempty" toml:"max_size,omitempty"`
	BackupCount int    `yaml:"backup_count,omitempty" toml:"backup_count,omitempty"`
	ShowConsole bool   `yaml:"show_console" toml:"show_console"`
}

func (this *Configuration) SetupConfiguration(using common.FlagHolder) {
	common.Flag(using, "logging.dir", "Directory the log file is written to.").
		PlaceHolder(DefaultDir).
		StringVar(&this.Dir)
	common.Flag(using, "logging.maxSize", "Size after which the log file is rotated, like 10MB.").
		PlaceHolder(DefaultMaxSize.String()).
		SetValue(&this.MaxSize)
	common.Flag(using, "logging.backupCount", "How many rotated log files are kept. At least one is kept.").
		PlaceHolder("3").
		IntVar(&this.BackupCount)
}

// maxBackups is the bound handed to lumberjack, which keeps every rotated
// file for 0. A rotated file cannot be dropped immediately, so at least one
// is kept.
func (this Configuration) maxBackups() int {
	if this.BackupCount < 1 {
		return 1
	}
	return this.BackupCount
}
