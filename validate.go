package graphkit

import (
	"fmt"
	"reflect"
)

// requireArgs checks (name, value) pairs and returns an InvalidArgument
// error naming the first missing argument. A value is missing when it
// is nil (including a typed nil inside an interface) or an empty
// string. The check runs before any store or transaction interaction.
func requireArgs(op string, pairs ...any) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		name, ok := pairs[i].(string)
		if !ok {
			panic("graphkit: requireArgs called with a non-string argument name")
		}
		if isMissing(pairs[i+1]) {
			return NewInvalidArgumentError(op, fmt.Errorf("%s is required; it must not be empty", name))
		}
	}
	return nil
}

func isMissing(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
