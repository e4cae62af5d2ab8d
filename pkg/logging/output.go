package logging

import (
	"fmt"
	"io"
	"sync"
)

// Output forwards everything written to it to all of its delegates. The
// delegates can be exchanged at any time.
type Output struct {
	delegates []io.Writer
	mutex     sync.RWMutex
}

func NewOutput(delegates ...io.Writer) *Output {
	return &Output{delegates: delegates}
}

func (this *Output) Write(p []byte) (n int, err error) {
	this.mutex.RLock()
	defer this.mutex.RUnlock()

	for i, w := range this.delegates {
		var nn int
		if nn, err = w.Write(p); err != nil {
			return n, err
		}
		if i == 0 {
			n = nn
		} else if n != nn {
			return n, fmt.Errorf("the previous writer wrote %d, but the current one wrote %d bytes", n, nn)
		}
	}

	return len(p), nil
}

func (this *Output) Set(next ...io.Writer) {
	this.mutex.Lock()
	defer this.mutex.Unlock()
	this.delegates = next
}
