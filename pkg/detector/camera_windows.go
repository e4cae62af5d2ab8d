//go:build windows

package detector

import (
	"context"
	"os/exec"
	"runtime"
	"strings"
	"syscall"

	"github.com/shirou/gopsutil/host"
	"golang.org/x/sys/windows"
)

// Sysinternals Handle lists every open handle. Camera devices show up as
// USB video class device paths.
func defaultCameraHelper() cameraHelper {
	name := "handle.exe"
	if strings.HasSuffix(kernelArch(), "64") {
		name = "handle64.exe"
	}
	return cameraHelper{
		name:    name,
		args:    []string{"-a"},
		markers: []string{"usbvideo", "usb#vid", "vid_", "camera"},
	}
}

func kernelArch() string {
	if v, err := host.KernelArch(); err == nil && v != "" {
		return strings.ToLower(v)
	}
	return runtime.GOARCH
}

func newHelperCommand(ctx context.Context, path string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: windows.CREATE_NO_WINDOW,
	}
	return cmd
}
