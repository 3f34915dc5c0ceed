package expr

import (
	"fmt"
	"reflect"
	"time"
)

var timeType = reflect.TypeFor[time.Time]()

// Indirect strips every pointer level from t.
func Indirect(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	return t
}

// IsSequence reports whether t is a slice or an array.
func IsSequence(t reflect.Type) bool {
	return t.Kind() == reflect.Slice || t.Kind() == reflect.Array
}

// SettableField returns the index path of the exported field name of struct
// type t, failing when a write would have to allocate through an unexported
// embedded pointer.
func SettableField(t reflect.Type, name string) ([]int, error) {
	f, ok := t.FieldByName(name)
	if !ok || !f.IsExported() {
		return nil, fmt.Errorf("%s has no exported field %q", t, name)
	}

	cur := t
	for _, idx := range f.Index[:len(f.Index)-1] {
		sf := cur.Field(idx)
		if sf.Type.Kind() == reflect.Pointer && !sf.IsExported() {
			return nil, fmt.Errorf("%s.%s is promoted through unexported pointer %s", t, name, sf.Name)
		}

		cur = Indirect(sf.Type)
	}

	return f.Index, nil
}

func isNumeric(t reflect.Type) bool {
	switch t.Kind() {
	default:
		return false
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
}

func isOrdered(t reflect.Type) bool {
	return isNumeric(t) || t.Kind() == reflect.String || t == timeType
}
