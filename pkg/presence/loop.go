package presence

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	log "github.com/echocat/slf4g"

	"github.com/blaubaer/presence-monitor/pkg/common"
)

const DefaultBackoff = 3 * time.Second

var ErrIllegalInterval = errors.New("illegal poll interval")

// Observer is notified about the outcome of every cycle. It must not block.
type Observer interface {
	OnSnapshot(Snapshot)
	OnLoopFailure(error)
}

// LoopFailure is anything which escaped the detector and sink contracts
// inside of one cycle.
type LoopFailure struct {
	Cause any
	Stack []byte
}

func (this *LoopFailure) Error() string {
	return fmt.Sprintf("presence cycle failed: %v", this.Cause)
}

func (this *LoopFailure) Unwrap() error {
	if err, ok := this.Cause.(error); ok {
		return err
	}
	return nil
}

// Loop samples all Detectors, composes a Snapshot and hands it to all Sinks
// (in order), then sleeps for Interval. It never terminates on its own; only
// the cancellation of the context given to Run stops it.
type Loop struct {
	Detectors []Detector
	Sinks     []Sink
	Interval  time.Duration
	Backoff   time.Duration
	Observer  Observer

	now  func() time.Time
	wait func(ctx context.Context, d time.Duration) bool
	last *Snapshot
}

func (this *Loop) Run(ctx context.Context) error {
	log.With("interval", this.Interval).
		With("detectors", this.signals()).
		With("sinks", this.sinkTypes()).
		Info("Presence monitor started.")

	for {
		if _, err := this.Cycle(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			this.onFailure(err)
			if !this.doWait(ctx, this.backoff()) {
				break
			}
			continue
		}

		log.With("interval", this.Interval).
			Debug("Wait until the next cycle...")
		if !this.doWait(ctx, this.Interval) {
			break
		}
	}

	log.Debug("Presence loop interrupted.")
	return nil
}

// Cycle executes exactly one iteration (detect, compose, publish) without
// sleeping afterward. Panics are recovered into a *LoopFailure. A
// non-positive Interval is reported as ErrIllegalInterval after publishing.
func (this *Loop) Cycle(ctx context.Context) (result Snapshot, rErr error) {
	defer func() {
		if r := recover(); r != nil {
			rErr = &LoopFailure{Cause: r, Stack: debug.Stack()}
		}
	}()

	result.CapturedAt = this.clock()
	for _, d := range this.Detectors {
		result.set(d.GetSignal(), d.Detect(ctx))
	}

	if last := this.last; last == nil || !last.SameStateAs(result) {
		log.With("microphone", result.StateOf(SignalMicrophone)).
			With("camera", result.StateOf(SignalCamera)).
			Info("State changed.")
	} else {
		log.With("snapshot", result).
			Debug("Snapshot captured.")
	}
	this.last = &result

	if o := this.Observer; o != nil {
		o.OnSnapshot(result)
	}

	for _, s := range this.Sinks {
		s.Publish(ctx, result)
	}

	// The interval is only needed for sleeping; the snapshot was already
	// delivered and the Loop backs off instead.
	if this.Interval <= 0 {
		return result, fmt.Errorf("%w: %v", ErrIllegalInterval, this.Interval)
	}

	return result, nil
}

func (this *Loop) onFailure(err error) {
	logger := log.WithError(err).
		With("backoff", this.backoff())
	if lf, ok := common.AsError[*LoopFailure](err); ok {
		logger = logger.With("stack", string(lf.Stack))
	}
	logger.Error("Loop error. Retrying after backoff...")

	if o := this.Observer; o != nil {
		o.OnLoopFailure(err)
	}
}

func (this *Loop) backoff() time.Duration {
	if v := this.Backoff; v > 0 {
		return v
	}
	return DefaultBackoff
}

func (this *Loop) clock() time.Time {
	if v := this.now; v != nil {
		return v()
	}
	return time.Now()
}

func (this *Loop) doWait(ctx context.Context, d time.Duration) bool {
	if v := this.wait; v != nil {
		return v(ctx, d)
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func (this *Loop) signals() Signals {
	result := make(Signals, len(this.Detectors))
	for i, d := range this.Detectors {
		result[i] = d.GetSignal()
	}
	return result
}

func (this *Loop) sinkTypes() SinkTypes {
	result := make(SinkTypes, len(this.Sinks))
	for i, s := range this.Sinks {
		result[i] = s.GetType()
	}
	return result
}
