package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/x/ansi"
	log "github.com/echocat/slf4g"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Configure directs output to the rotating log file and, if console is set,
// to stdout as well. The returned closer releases the log file.
func Configure(output *Output, conf Configuration, console io.Writer) (io.Closer, error) {
	dir := conf.Dir
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create log directory %q: %w", dir, err)
	}

	file := &lumberjack.Logger{
		Filename:   filepath.Join(dir, FileName),
		MaxSize:    conf.MaxSize.Megabytes(),
		MaxBackups: conf.maxBackups(),
		LocalTime:  true,
	}

	delegates := []io.Writer{&plainWriter{file}}
	if console != nil {
		delegates = append(delegates, console)
	}
	output.Set(delegates...)

	log.With("file", file.Filename).
		With("maxSize", conf.MaxSize).
		With("backups", conf.maxBackups()).
		Debug("Logging to file.")

	return file, nil
}

// plainWriter removes all ANSI escape sequences; files should not contain
// colors.
type plainWriter struct {
	delegate io.Writer
}

func (this *plainWriter) Write(p []byte) (int, error) {
	if _, err := io.WriteString(this.delegate, ansi.Strip(string(p))); err != nil {
		return 0, err
	}
	return len(p), nil
}
