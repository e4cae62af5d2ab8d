package presence

import "context"

// Detector inspects the host for one Signal.
//
// Implementations must never panic or block beyond their own bounded timeout.
// Every failure is logged by the implementation and reported as false, as
// downstream consumers have no representation for "unknown".
type Detector interface {
	Detect(ctx context.Context) bool
	GetSignal() Signal
}
