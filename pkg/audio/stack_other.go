//go:build !windows

package audio

import (
	"context"
	"fmt"
	"os/exec"
	"time"
)

const pactlTimeout = 5 * time.Second

// Stack enumerates the recording streams of PulseAudio (or PipeWire using
// its PulseAudio compatibility) by executing pactl.
type Stack struct {
	run func(ctx context.Context) ([]byte, error)
}

func (this *Stack) Initialize() error {
	if this.run == nil {
		this.run = runPactl
	}
	return nil
}

func (this *Stack) Dispose() error {
	return nil
}

func (this *Stack) FindDevices() (Devices, error) {
	run := this.run
	if run == nil {
		run = runPactl
	}

	ctx, cancel := context.WithTimeout(context.Background(), pactlTimeout)
	defer cancel()

	out, err := run(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot list source outputs: %w", err)
	}

	sessions := parsePactlSourceOutputs(string(out))
	if sessions.IsZero() {
		return nil, nil
	}
	return Devices{{
		Name:     "pulse",
		Sessions: sessions,
	}}, nil
}

func runPactl(ctx context.Context) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "pactl", "list", "source-outputs")
	cmd.Env = append(cmd.Environ(), "LC_ALL=C")
	return cmd.Output()
}
