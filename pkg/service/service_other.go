//go:build !windows

package service

import (
	"github.com/blaubaer/presence-monitor/pkg/common"
)

func IsService() (bool, error) {
	return false, nil
}

func Run(Runner) error {
	return common.ErrUnsupported
}

func Install(string, ...string) error {
	return common.ErrUnsupported
}

func Uninstall() error {
	return common.ErrUnsupported
}
