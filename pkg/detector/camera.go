package detector

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	log "github.com/echocat/slf4g"

	"github.com/blaubaer/presence-monitor/pkg/metrics"
	"github.com/blaubaer/presence-monitor/pkg/presence"
)

var ErrHelperNotFound = errors.New("helper not found")

const maxHelperLine = 1024 * 1024

// Camera reports the camera as in use if any process holds a handle to a
// video capture device. Which handles these are is decided by scanning the
// output of an external helper tool for markers.
type Camera struct {
	conf CameraConfiguration

	lookPath   func(file string) (string, error)
	executable func() (string, error)
	isFile     func(path string) bool
	run        func(ctx context.Context, path string, args ...string) ([]byte, error)
}

func NewCamera(conf CameraConfiguration) *Camera {
	return &Camera{
		conf:       conf,
		lookPath:   exec.LookPath,
		executable: os.Executable,
		isFile:     isFile,
		run:        runHelper,
	}
}

func (this *Camera) GetSignal() presence.Signal {
	return presence.SignalCamera
}

func (this *Camera) Detect(ctx context.Context) (result bool) {
	defer func() {
		if r := recover(); r != nil {
			this.failed(log.With("panic", r), "Camera detection failed unexpectedly.")
			result = false
		}
	}()

	helper := this.conf.helper()
	path, err := this.resolve(helper.name)
	if err != nil {
		this.failed(log.WithError(err), "Cannot detect camera usage.")
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, this.conf.timeout())
	defer cancel()

	out, err := this.run(ctx, path, helper.args...)
	if err != nil {
		logger := log.With("helper", path).
			With("timeout", this.conf.timeout())
		var exitErr *exec.ExitError
		if ctx.Err() != nil {
			this.failed(logger, "Camera helper did not finish in time.")
		} else if errors.As(err, &exitErr) {
			this.failed(logger.With("exitCode", exitErr.ExitCode()), "Camera helper failed.")
		} else {
			this.failed(logger.WithError(err), "Cannot start camera helper.")
		}
		return false
	}

	line, ok, err := containsMarker(out, helper.markers)
	if ok {
		log.With("line", line).
			Debug("Camera handle found.")
		return true
	}
	if err != nil {
		this.failed(log.WithError(err).With("helper", path), "Cannot read output of camera helper.")
	}
	return false
}

func (this *Camera) resolve(name string) (string, error) {
	if filepath.IsAbs(name) || strings.ContainsAny(name, `/\`) {
		if this.isFile(name) {
			return name, nil
		}
		return "", fmt.Errorf("%w: %s", ErrHelperNotFound, name)
	}

	if path, err := this.lookPath(name); err == nil {
		return path, nil
	}

	if self, err := this.executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(self), name)
		if this.isFile(candidate) {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w: %s is neither in PATH nor next to this executable", ErrHelperNotFound, name)
}

func (this *Camera) failed(logger log.Logger, msg string) {
	logger.Warn(msg)
	metrics.DetectionFailed(presence.SignalCamera)
}

// containsMarker returns the first line of out containing one of the
// markers. Lines longer than maxHelperLine cannot be read and fail with
// bufio.ErrTooLong.
func containsMarker(out []byte, markers []string) (string, bool, error) {
	lowered := make([]string, 0, len(markers))
	for _, m := range markers {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			lowered = append(lowered, m)
		}
	}

	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 64*1024), maxHelperLine)
	for scanner.Scan() {
		line := strings.ToLower(scanner.Text())
		for _, m := range lowered {
			if strings.Contains(line, m) {
				return strings.TrimSpace(scanner.Text()), true, nil
			}
		}
	}
	return "", false, scanner.Err()
}

func runHelper(ctx context.Context, path string, args ...string) ([]byte, error) {
	cmd := newHelperCommand(ctx, path, args...)
	cmd.Stdin = nil
	cmd.Stderr = io.Discard
	return cmd.Output()
}

func isFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}
