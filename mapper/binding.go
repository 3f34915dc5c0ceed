package mapper

import (
	"reflect"
	"strings"
	"sync"
	"unicode"

	"exprmap/expr"
	"exprmap/internal/typeinfo"
)

// bindKind enumerates the ways a source expression can feed a destination
// member, in dispatch priority order.
type bindKind int

const (
	bindNone     bindKind = iota
	bindRule              // registered rule for (Sp, Dp)
	bindCopy              // identical primitive types
	bindWiden             // Dp == *Sp
	bindPointer           // *S -> *D through a binding S -> D, nil stays nil
	bindCoalesce          // *S -> Dp through S -> Dp, nil becomes zero S
	bindSelect            // sequence of Es -> sequence of Ed
)

// String returns a human-readable representation of the bindKind.
func (k bindKind) String() string {
	switch k {
	case bindRule:
		return "rule"
	case bindCopy:
		return "copy"
	case bindWiden:
		return "widen"
	case bindPointer:
		return "pointer"
	case bindCoalesce:
		return "coalesce"
	case bindSelect:
		return "select"
	default:
		return "none"
	}
}

// bindPlan is the dispatch decision for one (Sp, Dp) pair. It depends only
// on the types and on which rules are registered.
type bindPlan struct {
	kind   bindKind
	dest   reflect.Type
	source reflect.Type
	// inner binds the dereferenced value or the sequence element.
	inner *bindPlan
}

// ok reports whether the plan binds anything.
func (p *bindPlan) ok() bool { return p.kind != bindNone }

// apply instantiates the plan for a concrete source expression.
func (p *bindPlan) apply(src expr.Node) expr.Node {
	switch p.kind {
	case bindRule:
		return expr.MapOf(src, p.dest)
	case bindCopy:
		return src
	case bindWiden:
		return expr.AddrOf(src)
	case bindPointer:
		deref := expr.Default(src, expr.Zero(p.source.Elem()))
		return expr.If(expr.IsNil(src), expr.Zero(p.dest), expr.AddrOf(p.inner.apply(deref)))
	case bindCoalesce:
		return p.inner.apply(expr.Default(src, expr.Zero(p.source.Elem())))
	case bindSelect:
		elem := expr.Fn(p.source.Elem(), paramName(p.source.Elem()), func(e *expr.Param) expr.Node {
			return p.inner.apply(e)
		})

		return expr.Each(src, elem, p.dest)
	default:
		return nil
	}
}

var noPlan = &bindPlan{kind: bindNone}

// planner computes and caches binding plans. The cache is dropped as a
// whole whenever a rule is registered.
type planner struct {
	types *typeinfo.Classifier
	keys  *keyTable
	rules *sync.Map // *Key -> *TypeMap
	cache atomicMap
}

func (pl *planner) bind(src expr.Node, dp reflect.Type) (expr.Node, bool) {
	p := pl.plan(src.Type(), dp)
	if !p.ok() {
		return nil, false
	}

	return p.apply(src), true
}

func (pl *planner) plan(sp, dp reflect.Type) *bindPlan {
	key := pl.keys.intern(sp, dp)

	cache := pl.cache.load()
	if cached, ok := cache.Load(key); ok {
		return cached.(*bindPlan)
	}

	p := pl.compute(sp, dp)
	actual, _ := cache.LoadOrStore(key, p)

	return actual.(*bindPlan)
}

func (pl *planner) compute(sp, dp reflect.Type) *bindPlan {
	if _, ok := pl.rules.Load(pl.keys.intern(sp, dp)); ok {
		return &bindPlan{kind: bindRule, source: sp, dest: dp}
	}

	if sp == dp && pl.types.IsPrimitive(sp) {
		return &bindPlan{kind: bindCopy, source: sp, dest: dp}
	}

	if dp.Kind() == reflect.Pointer && dp.Elem() == sp {
		return &bindPlan{kind: bindWiden, source: sp, dest: dp}
	}

	if sp.Kind() == reflect.Pointer {
		if dp.Kind() == reflect.Pointer {
			if inner := pl.plan(sp.Elem(), dp.Elem()); inner.ok() {
				return &bindPlan{kind: bindPointer, source: sp, dest: dp, inner: inner}
			}
		}

		if inner := pl.plan(sp.Elem(), dp); inner.ok() {
			return &bindPlan{kind: bindCoalesce, source: sp, dest: dp, inner: inner}
		}

		return noPlan
	}

	if expr.IsSequence(sp) && expr.IsSequence(dp) && !pl.types.IsPrimitive(sp) && !pl.types.IsPrimitive(dp) {
		if inner := pl.plan(sp.Elem(), dp.Elem()); inner.ok() {
			return &bindPlan{kind: bindSelect, source: sp, dest: dp, inner: inner}
		}
	}

	return noPlan
}

// paramName derives a short parameter name from a type: Person -> p.
func paramName(t reflect.Type) string {
	name := expr.Indirect(t).Name()
	for _, r := range name {
		if unicode.IsLetter(r) {
			return strings.ToLower(string(r))
		}
	}

	return "x"
}
