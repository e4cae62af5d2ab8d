package common

import "errors"

// ErrUnsupported is returned by features which are not available on the
// current operating system.
var ErrUnsupported = errors.New("unsupported on this platform")

func AsError[T error](err error) (T, bool) {
	var target T
	return target, errors.As(err, &target)
}
