package logging

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// Size is an amount of bytes. It accepts plain numbers, also with digit
// separators like "100_000", as well as humanized values like "10MB".
type Size uint64

func (this *Size) Set(plain string) error {
	v, err := humanize.ParseBytes(strings.ReplaceAll(strings.TrimSpace(plain), "_", ""))
	if err != nil {
		return fmt.Errorf("illegal-size: %s", plain)
	}
	*this = Size(v)
	return nil
}

func (this Size) String() string {
	return humanize.Bytes(uint64(this))
}

func (this Size) MarshalText() (text []byte, err error) {
	return []byte(this.String()), nil
}

func (this *Size) UnmarshalText(text []byte) error {
	return this.Set(string(text))
}

// Megabytes rounds up to whole megabytes; at least one.
func (this Size) Megabytes() int {
	const mb = 1024 * 1024
	result := int((uint64(this) + mb - 1) / mb)
	if result < 1 {
		return 1
	}
	return result
}
