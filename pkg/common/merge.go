package common

import (
	"reflect"

	"dario.cat/mergo"
)

var regexpType = reflect.TypeOf(Regexp{})

// MergeOverride copies every non-zero value of src over dst. Values which
// mergo cannot look into (like Regexp) are replaced as a whole.
func MergeOverride[T any](dst *T, src T) error {
	return mergo.Merge(dst, src, mergo.WithOverride, mergo.WithTransformers(opaqueValues{}))
}

type opaqueValues struct{}

func (this opaqueValues) Transformer(t reflect.Type) func(dst, src reflect.Value) error {
	if t != regexpType {
		return nil
	}
	return func(dst, src reflect.Value) error {
		if dst.CanSet() && !src.IsZero() {
			dst.Set(src)
		}
		return nil
	}
}
