//go:build !windows

package detector

import (
	"context"
	"os/exec"
)

// lsof lists every open file, video4linux devices included.
func defaultCameraHelper() cameraHelper {
	return cameraHelper{
		name:    "lsof",
		args:    []string{"-w", "-n"},
		markers: []string{"/dev/video"},
	}
}

func newHelperCommand(ctx context.Context, path string, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, path, args...)
}
