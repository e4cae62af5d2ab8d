package common

import (
	"fmt"
	"regexp"
)

// Regexp is a regular expression which can be used as flag and as value of
// all supported configuration file formats. An unset Regexp only matches
// the empty string.
type Regexp struct {
	compiled *regexp.Regexp
}

func ParseRegexp(plain string) (Regexp, error) {
	if plain == "" {
		return Regexp{}, nil
	}
	compiled, err := regexp.Compile(plain)
	if err != nil {
		return Regexp{}, fmt.Errorf("illegal-regexp: %s", plain)
	}
	return Regexp{compiled}, nil
}

func MustParseRegexp(plain string) Regexp {
	result, err := ParseRegexp(plain)
	if err != nil {
		panic(err)
	}
	return result
}

func (this *Regexp) Set(plain string) (err error) {
	*this, err = ParseRegexp(plain)
	return
}

func (this Regexp) String() string {
	if !this.IsSet() {
		return ""
	}
	return this.compiled.String()
}

func (this Regexp) MatchString(s string) bool {
	if !this.IsSet() {
		return s == ""
	}
	return this.compiled.MatchString(s)
}

func (this Regexp) IsSet() bool {
	return this.compiled != nil
}

func (this Regexp) IsZero() bool {
	return !this.IsSet()
}

func (this Regexp) MarshalText() ([]byte, error) {
	return []byte(this.String()), nil
}

func (this *Regexp) UnmarshalText(text []byte) error {
	return this.Set(string(text))
}
