package mapper

import (
	"context"
	"fmt"
	"reflect"

	"github.com/google/uuid"

	"exprmap/query"
)

// Materializer applies a registered projection to a query of S.
type Materializer[S any] struct {
	reg        *Registry
	source     query.Queryable
	ctx        *Context
	transforms []func(query.Queryable) query.Queryable
}

// Project starts materializing q, whose elements must be of type S.
func Project[S any](reg *Registry, q query.Queryable) *Materializer[S] {
	return &Materializer[S]{reg: reg, source: q, ctx: NewContext()}
}

// Context stashes v under its dynamic type for runtime maps, runtime ignore
// rules and AfterMap hooks.
func (m *Materializer[S]) Context(v any) *Materializer[S] {
	m.ctx.Set(v)
	return m
}

// Query adds a transform applied to the projected query. Transforms compose:
// each one receives the result of those added before it.
func (m *Materializer[S]) Query(fn func(query.Queryable) query.Queryable) *Materializer[S] {
	m.transforms = append(m.transforms, fn)
	return m
}

// Outcome is the result of an asynchronous materialization.
type Outcome[R any] struct {
	Value R
	Err   error
}

// To resolves the projection from S to D once, projects the source query,
// applies the composed transforms, hands the query to run and finally runs
// the AfterMap hooks of the rule on results of type D, *D, []D or []*D.
func To[D, S, R any](
	ctx context.Context,
	m *Materializer[S],
	run func(context.Context, query.Queryable) (R, error),
) (R, error) {
	var zero R

	src, dst := reflect.TypeFor[S](), reflect.TypeFor[D]()
	if m.source.ElemType() != src {
		return zero, fmt.Errorf("%w: query of %s projected as %s", query.ErrTypeMismatch, m.source.ElemType(), src)
	}

	id := uuid.Must(uuid.NewV7()).String()
	logger := m.reg.logger.With("resolution", id)

	call := m.reg.newCall(m.ctx)
	call.logger = logger

	key := m.reg.Key(src, dst)

	proj, err := call.resolve(key)
	if err != nil {
		return zero, err
	}

	logger.Debug("projection resolved", "pair", key.String())

	q := m.source.Select(proj)
	for _, t := range m.transforms {
		q = t(q)
	}

	out, err := run(ctx, q)
	if err != nil {
		return zero, err
	}

	// the rule may be gone if the registry was reset meanwhile
	if rule, ok := m.reg.Lookup(key); ok {
		if hooks := rule.afterHooks(); len(hooks) > 0 {
			out = applyAfter[D](m.ctx, hooks, out)
		}
	}

	return out, nil
}

// ToAsync runs To on a new goroutine. The channel receives exactly one
// outcome and is then closed.
func ToAsync[D, S, R any](
	ctx context.Context,
	m *Materializer[S],
	run func(context.Context, query.Queryable) (R, error),
) <-chan Outcome[R] {
	ch := make(chan Outcome[R], 1)

	go func() {
		defer close(ch)

		v, err := To[D](ctx, m, run)
		ch <- Outcome[R]{Value: v, Err: err}
	}()

	return ch
}

func applyAfter[D, R any](ctx *Context, hooks []func(*Context, any), out R) R {
	each := func(d *D) {
		for _, h := range hooks {
			h(ctx, d)
		}
	}

	switch v := any(out).(type) {
	case D:
		each(&v)
		return any(v).(R)
	case *D:
		if v != nil {
			each(v)
		}
	case []D:
		for i := range v {
			each(&v[i])
		}
	case []*D:
		for _, d := range v {
			if d != nil {
				each(d)
			}
		}
	}

	return out
}
