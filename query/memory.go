package query

import (
	"context"
	"fmt"
	"reflect"
	"slices"

	"exprmap/expr"
)

var boolType = reflect.TypeFor[bool]()

type opKind int

const (
	opWhere opKind = iota
	opSort
	opSkip
	opTake
	opSelect
)

type memOp struct {
	kind opKind
	fn   *expr.Lambda
	keys []SortKey
	n    int
}

// memQuery evaluates its operations over an in-memory slice with expr.Eval.
type memQuery struct {
	source reflect.Value
	elem   reflect.Type
	ops    []memOp
	err    error
}

// FromSlice returns a query over items evaluated in memory.
func FromSlice[T any](items []T) Queryable {
	return &memQuery{source: reflect.ValueOf(items), elem: reflect.TypeFor[T]()}
}

func (q *memQuery) ElemType() reflect.Type { return q.elem }

func (q *memQuery) with(op memOp, elem reflect.Type, err error) Queryable {
	out := &memQuery{source: q.source, elem: elem, ops: slices.Clip(q.ops), err: q.err}
	if out.err == nil {
		out.err = err
	}

	out.ops = append(out.ops, op)

	return out
}

func (q *memQuery) Where(pred *expr.Lambda) Queryable {
	return q.with(memOp{kind: opWhere, fn: pred}, q.elem, CheckLambda(pred, q.elem, boolType))
}

func (q *memQuery) OrderBy(key *expr.Lambda, desc bool) Queryable {
	err := CheckLambda(key, q.elem, nil)

	// consecutive orderings become secondary keys of one sort
	if n := len(q.ops); n > 0 && q.ops[n-1].kind == opSort {
		prev := q.ops[n-1]
		out := &memQuery{source: q.source, elem: q.elem, ops: slices.Clone(q.ops[:n-1]), err: q.err}

		if out.err == nil {
			out.err = err
		}

		keys := append(slices.Clone(prev.keys), SortKey{Key: key, Desc: desc})
		out.ops = append(out.ops, memOp{kind: opSort, keys: keys})

		return out
	}

	return q.with(memOp{kind: opSort, keys: []SortKey{{Key: key, Desc: desc}}}, q.elem, err)
}

func (q *memQuery) Skip(n int) Queryable {
	return q.with(memOp{kind: opSkip, n: max(n, 0)}, q.elem, nil)
}

func (q *memQuery) Take(n int) Queryable {
	return q.with(memOp{kind: opTake, n: max(n, 0)}, q.elem, nil)
}

func (q *memQuery) Select(proj *expr.Lambda) Queryable {
	if proj == nil {
		return q.with(memOp{kind: opSelect}, q.elem, CheckLambda(proj, q.elem, nil))
	}

	return q.with(memOp{kind: opSelect, fn: proj}, proj.Out(), CheckLambda(proj, q.elem, nil))
}

func (q *memQuery) Count(ctx context.Context) (int, error) {
	items, err := q.run(ctx)
	if err != nil {
		return 0, err
	}

	return len(items), nil
}

func (q *memQuery) Execute(ctx context.Context) (any, error) {
	items, err := q.run(ctx)
	if err != nil {
		return nil, err
	}

	out := reflect.MakeSlice(reflect.SliceOf(q.elem), len(items), len(items))
	for i, v := range items {
		out.Index(i).Set(v)
	}

	return out.Interface(), nil
}

func (q *memQuery) run(ctx context.Context) ([]reflect.Value, error) {
	if q.err != nil {
		return nil, q.err
	}

	items := make([]reflect.Value, q.source.Len())
	for i := range items {
		items[i] = q.source.Index(i)
	}

	var err error

	for _, op := range q.ops {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		switch op.kind {
		case opWhere:
			items, err = filter(items, op.fn)
		case opSort:
			err = sortValues(items, op.keys)
		case opSkip:
			items = items[min(op.n, len(items)):]
		case opTake:
			items = items[:min(op.n, len(items))]
		case opSelect:
			items, err = project(items, op.fn)
		}

		if err != nil {
			return nil, err
		}
	}

	return items, nil
}

func filter(items []reflect.Value, pred *expr.Lambda) ([]reflect.Value, error) {
	out := items[:0:0]

	for _, v := range items {
		keep, err := expr.EvalValue(pred, v)
		if err != nil {
			return nil, err
		}

		if keep.Bool() {
			out = append(out, v)
		}
	}

	return out, nil
}

func project(items []reflect.Value, proj *expr.Lambda) ([]reflect.Value, error) {
	out := make([]reflect.Value, len(items))

	for i, v := range items {
		p, err := expr.EvalValue(proj, v)
		if err != nil {
			return nil, err
		}

		out[i] = p
	}

	return out, nil
}

func sortValues(items []reflect.Value, keys []SortKey) error {
	evaluated := make([][]reflect.Value, len(items))

	for i, v := range items {
		evaluated[i] = make([]reflect.Value, len(keys))

		for k, key := range keys {
			kv, err := expr.EvalValue(key.Key, v)
			if err != nil {
				return err
			}

			evaluated[i][k] = kv
		}
	}

	order := make([]int, len(items))
	for i := range order {
		order[i] = i
	}

	var cmpErr error

	slices.SortStableFunc(order, func(a, b int) int {
		for k, key := range keys {
			c, err := expr.Compare(evaluated[a][k], evaluated[b][k])
			if err != nil {
				cmpErr = err
				return 0
			}

			if key.Desc {
				c = -c
			}

			if c != 0 {
				return c
			}
		}

		return 0
	})

	if cmpErr != nil {
		return fmt.Errorf("query: order by: %w", cmpErr)
	}

	sorted := make([]reflect.Value, len(items))
	for i, idx := range order {
		sorted[i] = items[idx]
	}

	copy(items, sorted)

	return nil
}
