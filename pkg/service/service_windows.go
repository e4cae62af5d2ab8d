//go:build windows

package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/echocat/slf4g"
	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"
)

const accepted = svc.AcceptStop | svc.AcceptShutdown

// IsService reports whether the current process was started by the service
// control manager.
func IsService() (bool, error) {
	return svc.IsWindowsService()
}

// Run executes runner as the service Name until the service control manager
// requests to stop. The working directory is set to the directory of the
// executable, because services are started inside of system32.
func Run(runner Runner) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("cannot resolve executable: %w", err)
	}
	if err := os.Chdir(filepath.Dir(exe)); err != nil {
		return fmt.Errorf("cannot change working directory to %q: %w", filepath.Dir(exe), err)
	}

	return svc.Run(Name, &handler{runner: runner})
}

type handler struct {
	runner Runner
}

func (this *handler) Execute(_ []string, requests <-chan svc.ChangeRequest, changes chan<- svc.Status) (bool, uint32) {
	changes <- svc.Status{State: svc.StartPending}

	sv := &supervisor{runner: this.runner}
	sv.start(context.Background())
	changes <- svc.Status{State: svc.Running, Accepts: accepted}

	for {
		select {
		case <-sv.done:
			changes <- svc.Status{State: svc.StopPending}
			if err := sv.stop(); err != nil {
				log.WithError(err).
					Error("Service stopped unexpectedly.")
				return true, 1
			}
			return false, 0
		case c := <-requests:
			switch c.Cmd {
			case svc.Interrogate:
				changes <- c.CurrentStatus
			case svc.Stop, svc.Shutdown:
				log.With("command", c.Cmd).
					Info("Service stop requested. Going down...")
				changes <- svc.Status{State: svc.StopPending}
				if err := sv.stop(); err != nil {
					log.WithError(err).
						Warn("Service stopped with an error.")
				}
				return false, 0
			default:
				log.With("command", c.Cmd).
					Warn("Unexpected service control request.")
			}
		}
	}
}

// Install registers the given executable as automatically started service.
func Install(exe string, args ...string) error {
	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("cannot connect to service manager: %w", err)
	}
	defer func() {
		_ = m.Disconnect()
	}()

	if s, err := m.OpenService(Name); err == nil {
		_ = s.Close()
		return fmt.Errorf("%w: %s", ErrAlreadyInstalled, Name)
	}

	s, err := m.CreateService(Name, exe, mgr.Config{
		DisplayName: DisplayName,
		Description: Description,
		StartType:   mgr.StartAutomatic,
	}, args...)
	if err != nil {
		return fmt.Errorf("cannot create service %s: %w", Name, err)
	}
	defer func() {
		_ = s.Close()
	}()

	return nil
}

func Uninstall() error {
	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("cannot connect to service manager: %w", err)
	}
	defer func() {
		_ = m.Disconnect()
	}()

	s, err := m.OpenService(Name)
	if err != nil {
		return fmt.Errorf("service %s is not installed: %w", Name, err)
	}
	defer func() {
		_ = s.Close()
	}()

	if err := s.Delete(); err != nil {
		return fmt.Errorf("cannot delete service %s: %w", Name, err)
	}
	return nil
}
