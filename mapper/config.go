package mapper

import (
	"io"
	"log/slog"
	"reflect"
)

// DefaultMaxExpansionPasses bounds reference expansion by default.
const DefaultMaxExpansionPasses = 32

// Config holds registry configuration.
type Config struct {
	// MaxExpansionPasses is the number of expansion passes after which a
	// projection that still references other rules fails with
	// ErrExpansionLimit.
	MaxExpansionPasses int
	// StrictBindings fails resolution when a destination member has a
	// same-named source member but no applicable binding, instead of
	// leaving it at its zero value.
	StrictBindings bool
	// ValueTypes are copied by value like primitives (decimal, UUID, ...).
	ValueTypes []reflect.Type
	// Logger receives debug records. Nil discards them.
	Logger *slog.Logger
}

// DefaultConfig returns the default registry configuration.
func DefaultConfig() Config {
	return Config{
		MaxExpansionPasses: DefaultMaxExpansionPasses,
		StrictBindings:     false,
	}
}

func (c Config) normalize() Config {
	if c.MaxExpansionPasses <= 0 {
		c.MaxExpansionPasses = DefaultMaxExpansionPasses
	}

	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return c
}
