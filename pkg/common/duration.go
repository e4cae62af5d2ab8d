package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration is a time.Duration which accepts plain numbers as seconds, like
// the poll_interval of the legacy config.ini layout does.
type Duration time.Duration

func (this *Duration) Set(plain string) error {
	plain = strings.TrimSpace(plain)
	if plain == "" {
		*this = 0
		return nil
	}
	if seconds, err := strconv.ParseFloat(plain, 64); err == nil {
		*this = Duration(seconds * float64(time.Second))
		return nil
	}
	v, err := time.ParseDuration(plain)
	if err != nil {
		return fmt.Errorf("illegal-duration: %s", plain)
	}
	*this = Duration(v)
	return nil
}

func (this Duration) String() string {
	return time.Duration(this).String()
}

func (this Duration) Duration() time.Duration {
	return time.Duration(this)
}

func (this Duration) MarshalText() (text []byte, err error) {
	return []byte(this.String()), nil
}

func (this *Duration) UnmarshalText(text []byte) error {
	return this.Set(string(text))
}
