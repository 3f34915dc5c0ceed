package expr

import (
	"errors"
	"fmt"
	"reflect"
	"time"
)

var (
	// ErrUnexpandedReference is returned when a MapRef reaches evaluation.
	// Projections handed out by the registry never contain one.
	ErrUnexpandedReference = errors.New("expr: unexpanded mapping reference evaluated")
	// ErrUnboundParam is returned when a parameter is used outside its lambda.
	ErrUnboundParam = errors.New("expr: unbound parameter")
	// ErrDivisionByZero is returned for integer division by zero.
	ErrDivisionByZero = errors.New("expr: integer division by zero")
)

// scope binds lambda parameters during evaluation. Inner bindings shadow
// outer ones, so a lambda may be applied inside its own body.
type scope struct {
	param  *Param
	value  reflect.Value
	parent *scope
}

func (s *scope) lookup(p *Param) (reflect.Value, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.param == p {
			return cur.value, true
		}
	}

	return reflect.Value{}, false
}

// Eval applies l to arg and returns the result as an interface value.
func Eval(l *Lambda, arg any) (any, error) {
	v := reflect.ValueOf(arg)
	if !v.IsValid() {
		v = reflect.Zero(l.In())
	}

	out, err := EvalValue(l, v)
	if err != nil {
		return nil, err
	}

	return out.Interface(), nil
}

// EvalValue applies l to arg.
func EvalValue(l *Lambda, arg reflect.Value) (reflect.Value, error) {
	if arg.Type() != l.In() {
		return reflect.Value{}, fmt.Errorf("expr: lambda over %s applied to %s", l.In(), arg.Type())
	}

	return eval(l.Body, &scope{param: l.Param, value: arg})
}

func eval(n Node, env *scope) (reflect.Value, error) {
	switch n := n.(type) {
	case *Param:
		v, ok := env.lookup(n)
		if !ok {
			return reflect.Value{}, fmt.Errorf("%w: %s", ErrUnboundParam, n.Name)
		}

		return v, nil
	case *Const:
		return constValue(n), nil
	case *Member:
		return evalMember(n, env)
	case *Unary:
		return evalUnary(n, env)
	case *Binary:
		return evalBinary(n, env)
	case *Coalesce:
		v, err := eval(n.Value, env)
		if err != nil {
			return reflect.Value{}, err
		}

		if v.IsNil() {
			return eval(n.Fallback, env)
		}

		return v.Elem(), nil
	case *Ref:
		v, err := eval(n.Operand, env)
		if err != nil {
			return reflect.Value{}, err
		}

		ptr := reflect.New(v.Type())
		ptr.Elem().Set(v)

		return ptr, nil
	case *Cond:
		test, err := eval(n.Test, env)
		if err != nil {
			return reflect.Value{}, err
		}

		if test.Bool() {
			return eval(n.Then, env)
		}

		return eval(n.Else, env)
	case *Call:
		args := make([]reflect.Value, len(n.Args))
		for i, a := range n.Args {
			v, err := eval(a, env)
			if err != nil {
				return reflect.Value{}, err
			}

			args[i] = v
		}

		return n.Fn.Call(args)[0], nil
	case *Init:
		return evalInit(n, env)
	case *Invoke:
		arg, err := eval(n.Arg, env)
		if err != nil {
			return reflect.Value{}, err
		}

		return eval(n.Lambda.Body, &scope{param: n.Lambda.Param, value: arg, parent: env})
	case *Select:
		return evalSelect(n, env)
	case *MapRef:
		return reflect.Value{}, fmt.Errorf("%w: %s -> %s", ErrUnexpandedReference, n.Source(), n.Dest)
	case *Lambda:
		return reflect.Value{}, fmt.Errorf("expr: lambda %s used as a value", n)
	default:
		return reflect.Value{}, fmt.Errorf("expr: unknown node %T", n)
	}
}

func constValue(c *Const) reflect.Value {
	v := reflect.ValueOf(c.Value)
	if !v.IsValid() {
		return reflect.Zero(c.typ)
	}

	if v.Type() != c.typ {
		return v.Convert(c.typ)
	}

	return v
}

func evalMember(m *Member, env *scope) (reflect.Value, error) {
	cur, err := eval(m.Operand, env)
	if err != nil {
		return reflect.Value{}, err
	}

	for _, idx := range m.Index {
		for cur.Kind() == reflect.Pointer {
			if cur.IsNil() {
				return reflect.Zero(m.typ), nil
			}

			cur = cur.Elem()
		}

		cur = cur.Field(idx)
	}

	return cur, nil
}

func evalUnary(u *Unary, env *scope) (reflect.Value, error) {
	v, err := eval(u.Operand, env)
	if err != nil {
		return reflect.Value{}, err
	}

	out := reflect.New(v.Type()).Elem()

	switch {
	case u.Op == OpNot:
		out.SetBool(!v.Bool())
	case v.CanInt():
		out.SetInt(-v.Int())
	case v.CanUint():
		out.SetUint(-v.Uint())
	case v.CanFloat():
		out.SetFloat(-v.Float())
	default:
		return reflect.Value{}, fmt.Errorf("expr: %s%s", u.Op, v.Type())
	}

	return out, nil
}

func evalBinary(b *Binary, env *scope) (reflect.Value, error) {
	l, err := eval(b.Left, env)
	if err != nil {
		return reflect.Value{}, err
	}

	// && and || short-circuit
	if b.Op.IsLogical() {
		if (b.Op == OpAnd) != l.Bool() {
			return reflect.ValueOf(l.Bool()), nil
		}

		return eval(b.Right, env)
	}

	r, err := eval(b.Right, env)
	if err != nil {
		return reflect.Value{}, err
	}

	if b.Op.IsComparison() {
		res, err := compare(b.Op, l, r)
		if err != nil {
			return reflect.Value{}, err
		}

		return reflect.ValueOf(res), nil
	}

	return arithmetic(b.Op, l, r)
}

func compare(op Op, l, r reflect.Value) (bool, error) {
	if op == OpEq || op == OpNe {
		eq := l.Equal(r)
		if l.Type() == timeType {
			eq = l.Interface().(time.Time).Equal(r.Interface().(time.Time))
		}

		return eq == (op == OpEq), nil
	}

	c, err := Compare(l, r)
	if err != nil {
		return false, fmt.Errorf("expr: %s: %w", op, err)
	}

	switch op {
	case OpLt:
		return c < 0, nil
	case OpLe:
		return c <= 0, nil
	case OpGt:
		return c > 0, nil
	default:
		return c >= 0, nil
	}
}

// Compare orders two values of the same ordered type (numbers, strings
// and time.Time), returning -1, 0 or +1.
func Compare(l, r reflect.Value) (int, error) {
	switch {
	case l.Type() != r.Type():
		return 0, fmt.Errorf("cannot compare %s with %s", l.Type(), r.Type())
	case l.Type() == timeType:
		return l.Interface().(time.Time).Compare(r.Interface().(time.Time)), nil
	case l.CanInt():
		return cmp3(l.Int(), r.Int()), nil
	case l.CanUint():
		return cmp3(l.Uint(), r.Uint()), nil
	case l.CanFloat():
		return cmp3(l.Float(), r.Float()), nil
	case l.Kind() == reflect.String:
		return cmp3(l.String(), r.String()), nil
	default:
		return 0, fmt.Errorf("%s is not ordered", l.Type())
	}
}

func cmp3[T int64 | uint64 | float64 | string](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func arithmetic(op Op, l, r reflect.Value) (reflect.Value, error) {
	out := reflect.New(l.Type()).Elem()

	switch {
	case l.Kind() == reflect.String:
		out.SetString(l.String() + r.String())
	case l.CanInt():
		a, b := l.Int(), r.Int()
		if op == OpDiv && b == 0 {
			return reflect.Value{}, ErrDivisionByZero
		}

		out.SetInt(intOp(op, a, b))
	case l.CanUint():
		a, b := l.Uint(), r.Uint()
		if op == OpDiv && b == 0 {
			return reflect.Value{}, ErrDivisionByZero
		}

		out.SetUint(intOp(op, a, b))
	case l.CanFloat():
		out.SetFloat(intOp(op, l.Float(), r.Float()))
	default:
		return reflect.Value{}, fmt.Errorf("expr: %s on %s", op, l.Type())
	}

	return out, nil
}

func intOp[T int64 | uint64 | float64](op Op, a, b T) T {
	switch op {
	case OpAdd:
		return a + b
	case OpSub:
		return a - b
	case OpMul:
		return a * b
	default:
		return a / b
	}
}

func evalInit(n *Init, env *scope) (reflect.Value, error) {
	out := reflect.New(n.typ).Elem()

	for _, b := range n.Bindings {
		v, err := eval(b.Value, env)
		if err != nil {
			return reflect.Value{}, err
		}

		FieldByIndexAlloc(out, b.Index).Set(v)
	}

	return out, nil
}

// FieldByIndexAlloc returns the settable field at index in the addressable
// struct value v, allocating nil embedded pointers on the way.
func FieldByIndexAlloc(v reflect.Value, index []int) reflect.Value {
	cur := v

	for i, idx := range index {
		if i > 0 && cur.Kind() == reflect.Pointer {
			if cur.IsNil() {
				cur.Set(reflect.New(cur.Type().Elem()))
			}

			cur = cur.Elem()
		}

		cur = cur.Field(idx)
	}

	return cur
}

func evalSelect(n *Select, env *scope) (reflect.Value, error) {
	src, err := eval(n.Source, env)
	if err != nil {
		return reflect.Value{}, err
	}

	count := src.Len()

	var out reflect.Value

	if n.Into.Kind() == reflect.Array {
		out = reflect.New(n.Into).Elem()
		count = min(count, n.Into.Len())
	} else {
		if src.Kind() == reflect.Slice && src.IsNil() {
			return reflect.Zero(n.Into), nil
		}

		out = reflect.MakeSlice(n.Into, count, count)
	}

	for i := range count {
		elem, err := eval(n.Elem.Body, &scope{param: n.Elem.Param, value: src.Index(i), parent: env})
		if err != nil {
			return reflect.Value{}, err
		}

		out.Index(i).Set(elem)
	}

	return out, nil
}
