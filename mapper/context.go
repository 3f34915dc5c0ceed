package mapper

import (
	"maps"
	"reflect"
)

// Context is a typed bag of values consulted by runtime maps and runtime
// ignore rules. Values are keyed by type, so a context holds at most one
// value per type. A nil *Context is empty.
type Context struct {
	values map[reflect.Type]any
}

// NewContext creates a context holding values, keyed by their dynamic types.
func NewContext(values ...any) *Context {
	c := &Context{values: make(map[reflect.Type]any, len(values))}
	for _, v := range values {
		if v != nil {
			c.values[reflect.TypeOf(v)] = v
		}
	}

	return c
}

// Set stores v under its dynamic type, replacing any previous value of
// that type.
func (c *Context) Set(v any) {
	if v == nil {
		return
	}

	if c.values == nil {
		c.values = make(map[reflect.Type]any)
	}

	c.values[reflect.TypeOf(v)] = v
}

// Len returns the number of stored values.
func (c *Context) Len() int {
	if c == nil {
		return 0
	}

	return len(c.values)
}

// Clone returns an independent copy of c.
func (c *Context) Clone() *Context {
	if c == nil {
		return &Context{values: map[reflect.Type]any{}}
	}

	return &Context{values: maps.Clone(c.values)}
}

// With returns a copy of c holding v under the static type T. Use it to
// store values behind an interface type.
func With[T any](c *Context, v T) *Context {
	out := c.Clone()
	if out.values == nil {
		out.values = make(map[reflect.Type]any)
	}

	out.values[reflect.TypeFor[T]()] = v

	return out
}

// Value returns the value stored under T.
func Value[T any](c *Context) (T, bool) {
	var zero T
	if c == nil {
		return zero, false
	}

	v, ok := c.values[reflect.TypeFor[T]()]
	if !ok {
		return zero, false
	}

	t, ok := v.(T)

	return t, ok
}
