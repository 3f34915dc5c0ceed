package query

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"exprmap/expr"
)

// ErrTypeMismatch is returned when a lambda or a result does not match the
// element type of a query.
var ErrTypeMismatch = errors.New("query: type mismatch")

// Queryable is a deferred query over elements of one type. Operations
// return new queries and never execute anything; invalid operations are
// reported by Execute and Count.
type Queryable interface {
	// ElemType is the type of the elements produced.
	ElemType() reflect.Type
	// Where keeps the elements for which pred (ElemType -> bool) holds.
	Where(pred *expr.Lambda) Queryable
	// OrderBy sorts by key. Consecutive calls add secondary keys.
	OrderBy(key *expr.Lambda, desc bool) Queryable
	// Skip drops the first n elements.
	Skip(n int) Queryable
	// Take keeps at most n elements.
	Take(n int) Queryable
	// Select projects every element through proj.
	Select(proj *expr.Lambda) Queryable
	// Execute runs the query and returns a []ElemType.
	Execute(ctx context.Context) (any, error)
	// Count runs the query and returns the number of elements.
	Count(ctx context.Context) (int, error)
}

// ToSlice executes q and returns its elements.
func ToSlice[T any](ctx context.Context, q Queryable) ([]T, error) {
	if want := reflect.TypeFor[T](); q.ElemType() != want {
		return nil, fmt.Errorf("%w: query of %s read as %s", ErrTypeMismatch, q.ElemType(), want)
	}

	out, err := q.Execute(ctx)
	if err != nil {
		return nil, err
	}

	items, ok := out.([]T)
	if !ok {
		return nil, fmt.Errorf("%w: backend returned %T", ErrTypeMismatch, out)
	}

	return items, nil
}

// First returns the first element of q, and false when q is empty.
func First[T any](ctx context.Context, q Queryable) (T, bool, error) {
	var zero T

	items, err := ToSlice[T](ctx, q.Take(1))
	if err != nil || len(items) == 0 {
		return zero, false, err
	}

	return items[0], true, nil
}

// Count returns the number of elements of q.
func Count(ctx context.Context, q Queryable) (int, error) {
	return q.Count(ctx)
}

// CheckLambda validates that l takes in and, when out is non-nil, yields out.
func CheckLambda(l *expr.Lambda, in, out reflect.Type) error {
	if l == nil {
		return fmt.Errorf("%w: nil lambda", ErrTypeMismatch)
	}

	if l.In() != in {
		return fmt.Errorf("%w: lambda over %s applied to %s", ErrTypeMismatch, l.In(), in)
	}

	if out != nil && l.Out() != out {
		return fmt.Errorf("%w: lambda yields %s, want %s", ErrTypeMismatch, l.Out(), out)
	}

	if ref := expr.FirstRef(l); ref != nil {
		return fmt.Errorf("%w: %s -> %s", expr.ErrUnexpandedReference, ref.Source(), ref.Dest)
	}

	return nil
}

// SortKey is one ordering key of a query.
type SortKey struct {
	Key  *expr.Lambda
	Desc bool
}
