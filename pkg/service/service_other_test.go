//go:build !windows

package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blaubaer/presence-monitor/pkg/common"
)

func TestIsService(t *testing.T) {
	actual, err := IsService()
	require.NoError(t, err)
	assert.False(t, actual)
}

func TestUnsupported(t *testing.T) {
	assert.ErrorIs(t, Run(nil), common.ErrUnsupported)
	assert.ErrorIs(t, Install("presence-monitor"), common.ErrUnsupported)
	assert.ErrorIs(t, Uninstall(), common.ErrUnsupported)
}
