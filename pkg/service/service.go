package service

import (
	"context"
	"errors"
	"sync"
)

const (
	Name        = "PresenceMonitor"
	DisplayName = "Presence Monitor"
	Description = "Publishes whether the microphone or the camera of this host is in use."
)

var ErrAlreadyInstalled = errors.New("service is already installed")

// Runner is executed while the service is running. It has to return as soon
// as ctx is cancelled.
type Runner func(ctx context.Context) error

// supervisor runs a Runner and cancels it once a stop was requested.
type supervisor struct {
	runner Runner

	cancel context.CancelFunc
	done   chan struct{}
	err    error
	once   sync.Once
}

func (this *supervisor) start(ctx context.Context) {
	ctx, this.cancel = context.WithCancel(ctx)
	this.done = make(chan struct{})
	go func() {
		defer close(this.done)
		this.err = this.runner(ctx)
	}()
}

// stop cancels the runner and waits until it returned.
func (this *supervisor) stop() error {
	this.once.Do(this.cancel)
	<-this.done
	return this.err
}
