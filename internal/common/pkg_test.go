package common

import (
	"reflect"
	"slices"
	"testing"
	"time"
)

func TestTypeNames(t *testing.T) {
	tests := []struct {
		name string
		typ  reflect.Type
		want []string
	}{
		{"builtin", reflect.TypeFor[int](), []string{"int"}},
		{"stdlib", reflect.TypeFor[time.Time](), []string{"time.Time"}},
		{"pointer", reflect.TypeFor[*time.Time](), []string{"*time.Time"}},
		{"module type", reflect.TypeFor[probe](), []string{"common.probe", "exprmap/internal/common.probe"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TypeNames(tt.typ); !slices.Equal(got, tt.want) {
				t.Errorf("TypeNames(%v) = %v, want %v", tt.typ, got, tt.want)
			}
		})
	}
}

type probe struct{}
