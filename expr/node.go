package expr

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
)

// Node is a projection AST node.
//
// This is a sealed interface: only types in this package implement it.
type Node interface {
	// Type is the static Go type the node evaluates to.
	Type() reflect.Type
	// String renders the node, see Format.
	String() string

	exprNode()
}

// Param is a lambda parameter. Parameters are compared by pointer identity.
type Param struct {
	Name string
	typ  reflect.Type
}

// NewParam creates a parameter of type t.
func NewParam(t reflect.Type, name string) *Param {
	if t == nil {
		panic("expr: parameter type cannot be nil")
	}

	return &Param{Name: name, typ: t}
}

// P creates a parameter of type T.
func P[T any](name string) *Param {
	return NewParam(reflect.TypeFor[T](), name)
}

// Const is a literal value.
type Const struct {
	Value any
	typ   reflect.Type
}

// Constant creates a literal from a non-nil value.
func Constant(v any) *Const {
	if v == nil {
		panic("expr: untyped nil constant, use Zero")
	}

	return &Const{Value: v, typ: reflect.TypeOf(v)}
}

// TypedConstant creates a literal of type t, converting v when needed.
func TypedConstant(v any, t reflect.Type) *Const {
	if v == nil {
		return Zero(t)
	}

	rv := reflect.ValueOf(v)
	if rv.Type() != t {
		if !rv.Type().ConvertibleTo(t) {
			panic(fmt.Sprintf("expr: constant of type %s is not convertible to %s", rv.Type(), t))
		}

		rv = rv.Convert(t)
	}

	return &Const{Value: rv.Interface(), typ: t}
}

// Zero creates the zero value literal of type t.
func Zero(t reflect.Type) *Const {
	return &Const{Value: reflect.Zero(t).Interface(), typ: t}
}

// IsZero reports whether the literal holds the zero value of its type.
func (c *Const) IsZero() bool {
	if c.Value == nil {
		return true
	}

	return reflect.ValueOf(c.Value).IsZero()
}

// Member is a field access. Accessing a member through a nil pointer yields
// the zero value of the member type.
type Member struct {
	Operand Node
	Name    string
	// Index is the reflect index path from the operand's struct type, more
	// than one element for promoted fields.
	Index []int
	typ   reflect.Type
}

// Field accesses the exported field name of operand. Pointer operands are
// dereferenced.
func Field(operand Node, name string) *Member {
	st := Indirect(operand.Type())
	if st.Kind() != reflect.Struct {
		panic(fmt.Sprintf("expr: field %q of non-struct type %s", name, operand.Type()))
	}

	f, ok := st.FieldByName(name)
	if !ok || !f.IsExported() {
		panic(fmt.Sprintf("expr: %s has no exported field %q", st, name))
	}

	return &Member{Operand: operand, Name: name, Index: f.Index, typ: f.Type}
}

// FieldPath chains Field over a sequence of names.
func FieldPath(operand Node, names ...string) Node {
	n := operand
	for _, name := range names {
		n = Field(n, name)
	}

	return n
}

// Unary applies OpNot or OpNeg.
type Unary struct {
	Op      Op
	Operand Node
}

// Not negates a bool operand.
func Not(n Node) *Unary {
	if n.Type().Kind() != reflect.Bool {
		panic(fmt.Sprintf("expr: ! applied to %s", n.Type()))
	}

	return &Unary{Op: OpNot, Operand: n}
}

// Neg negates a numeric operand.
func Neg(n Node) *Unary {
	if !isNumeric(n.Type()) {
		panic(fmt.Sprintf("expr: unary - applied to %s", n.Type()))
	}

	return &Unary{Op: OpNeg, Operand: n}
}

// Binary applies a comparison, arithmetic or logical operator.
type Binary struct {
	Op          Op
	Left, Right Node
	typ         reflect.Type
}

// NewBinary creates a binary node. Both operands must have the same type;
// logical operators require bool operands.
func NewBinary(op Op, left, right Node) *Binary {
	lt, rt := left.Type(), right.Type()
	if lt != rt {
		panic(fmt.Sprintf("expr: %s operands differ: %s and %s", op, lt, rt))
	}

	switch {
	case op.IsLogical():
		if lt.Kind() != reflect.Bool {
			panic(fmt.Sprintf("expr: %s applied to %s", op, lt))
		}

		return &Binary{Op: op, Left: left, Right: right, typ: lt}
	case op.IsComparison():
		if (op != OpEq && op != OpNe) && !isOrdered(lt) {
			panic(fmt.Sprintf("expr: %s applied to unordered %s", op, lt))
		}

		if !lt.Comparable() {
			panic(fmt.Sprintf("expr: %s applied to incomparable %s", op, lt))
		}

		return &Binary{Op: op, Left: left, Right: right, typ: reflect.TypeFor[bool]()}
	case op.IsArithmetic():
		if !isNumeric(lt) && !(op == OpAdd && lt.Kind() == reflect.String) {
			panic(fmt.Sprintf("expr: %s applied to %s", op, lt))
		}

		return &Binary{Op: op, Left: left, Right: right, typ: lt}
	default:
		panic(fmt.Sprintf("expr: %s is not a binary operator", op))
	}
}

func Eq(l, r Node) *Binary  { return NewBinary(OpEq, l, r) }
func Ne(l, r Node) *Binary  { return NewBinary(OpNe, l, r) }
func Lt(l, r Node) *Binary  { return NewBinary(OpLt, l, r) }
func Le(l, r Node) *Binary  { return NewBinary(OpLe, l, r) }
func Gt(l, r Node) *Binary  { return NewBinary(OpGt, l, r) }
func Ge(l, r Node) *Binary  { return NewBinary(OpGe, l, r) }
func Add(l, r Node) *Binary { return NewBinary(OpAdd, l, r) }
func Sub(l, r Node) *Binary { return NewBinary(OpSub, l, r) }
func Mul(l, r Node) *Binary { return NewBinary(OpMul, l, r) }
func Div(l, r Node) *Binary { return NewBinary(OpDiv, l, r) }
func And(l, r Node) *Binary { return NewBinary(OpAnd, l, r) }
func Or(l, r Node) *Binary  { return NewBinary(OpOr, l, r) }

// IsNil compares a pointer operand against nil.
func IsNil(n Node) *Binary {
	if n.Type().Kind() != reflect.Pointer {
		panic(fmt.Sprintf("expr: nil test on non-pointer %s", n.Type()))
	}

	return Eq(n, Zero(n.Type()))
}

// Coalesce yields *Value when Value is non-nil and Fallback otherwise.
type Coalesce struct {
	Value    Node
	Fallback Node
}

// Default creates a Coalesce. v must be a pointer to fallback's type.
func Default(v, fallback Node) *Coalesce {
	vt := v.Type()
	if vt.Kind() != reflect.Pointer || vt.Elem() != fallback.Type() {
		panic(fmt.Sprintf("expr: cannot coalesce %s with %s", vt, fallback.Type()))
	}

	return &Coalesce{Value: v, Fallback: fallback}
}

// Ref takes the address of a copy of its operand, widening T to *T.
type Ref struct {
	Operand Node
}

// AddrOf creates a Ref.
func AddrOf(n Node) *Ref {
	return &Ref{Operand: n}
}

// Cond is a conditional expression.
type Cond struct {
	Test, Then, Else Node
}

// If creates a Cond. Both branches must have the same type.
func If(test, then, els Node) *Cond {
	if test.Type().Kind() != reflect.Bool {
		panic(fmt.Sprintf("expr: condition of type %s", test.Type()))
	}

	if then.Type() != els.Type() {
		panic(fmt.Sprintf("expr: branches differ: %s and %s", then.Type(), els.Type()))
	}

	return &Cond{Test: test, Then: then, Else: els}
}

// Call is a call of a pure Go function with a single result.
type Call struct {
	// Name identifies the function to translators.
	Name string
	Fn   reflect.Value
	Args []Node
}

// CallFunc creates a Call of fn, which must be a func with one result.
func CallFunc(name string, fn any, args ...Node) *Call {
	fv := reflect.ValueOf(fn)
	ft := fv.Type()

	if ft.Kind() != reflect.Func || ft.NumOut() != 1 || ft.IsVariadic() {
		panic(fmt.Sprintf("expr: %s is not a single-result function", name))
	}

	if ft.NumIn() != len(args) {
		panic(fmt.Sprintf("expr: %s takes %d arguments, got %d", name, ft.NumIn(), len(args)))
	}

	for i, a := range args {
		if !a.Type().AssignableTo(ft.In(i)) {
			panic(fmt.Sprintf("expr: %s argument %d: %s is not assignable to %s", name, i, a.Type(), ft.In(i)))
		}
	}

	return &Call{Name: name, Fn: fv, Args: args}
}

// Binding binds one destination member inside an Init.
type Binding struct {
	Name  string
	Index []int
	Value Node
}

// Init constructs a struct value from member bindings. Bindings are kept
// sorted by member name and unique.
type Init struct {
	Bindings []Binding
	typ      reflect.Type
}

// Bind is a name/value pair accepted by New.
type Bind struct {
	Name  string
	Value Node
}

// B creates a Bind.
func B(name string, value Node) Bind {
	return Bind{Name: name, Value: value}
}

// New creates an Init of struct type t. A later binding for the same member
// replaces an earlier one.
func New(t reflect.Type, binds ...Bind) *Init {
	if t.Kind() != reflect.Struct {
		panic(fmt.Sprintf("expr: cannot initialize non-struct type %s", t))
	}

	byName := make(map[string]Binding, len(binds))

	for _, b := range binds {
		index, err := SettableField(t, b.Name)
		if err != nil {
			panic("expr: " + err.Error())
		}

		ft := t.FieldByIndex(index).Type
		vt := b.Value.Type()

		if !vt.AssignableTo(ft) {
			panic(fmt.Sprintf("expr: %s.%s of type %s cannot hold %s", t, b.Name, ft, vt))
		}

		byName[b.Name] = Binding{Name: b.Name, Index: index, Value: b.Value}
	}

	return newInit(t, byName)
}

// NewOf creates an Init of struct type T.
func NewOf[T any](binds ...Bind) *Init {
	return New(reflect.TypeFor[T](), binds...)
}

func newInit(t reflect.Type, byName map[string]Binding) *Init {
	bindings := make([]Binding, 0, len(byName))
	for _, b := range byName {
		bindings = append(bindings, b)
	}

	slices.SortFunc(bindings, func(a, b Binding) int {
		return strings.Compare(a.Name, b.Name)
	})

	return &Init{Bindings: bindings, typ: t}
}

// Lookup returns the binding for a member name.
func (n *Init) Lookup(name string) (Binding, bool) {
	for _, b := range n.Bindings {
		if b.Name == name {
			return b, true
		}
	}

	return Binding{}, false
}

// Names returns the bound member names in order.
func (n *Init) Names() []string {
	names := make([]string, len(n.Bindings))
	for i, b := range n.Bindings {
		names[i] = b.Name
	}

	return names
}

// Lambda is a single-parameter function.
type Lambda struct {
	Param *Param
	Body  Node
}

// NewLambda creates a lambda.
func NewLambda(p *Param, body Node) *Lambda {
	return &Lambda{Param: p, Body: body}
}

// Fn builds a lambda over a fresh parameter of type t.
func Fn(t reflect.Type, name string, body func(p *Param) Node) *Lambda {
	p := NewParam(t, name)
	return NewLambda(p, body(p))
}

// Func builds a lambda over a fresh parameter of type T.
func Func[T any](name string, body func(p *Param) Node) *Lambda {
	return Fn(reflect.TypeFor[T](), name, body)
}

// In returns the parameter type.
func (l *Lambda) In() reflect.Type { return l.Param.typ }

// Out returns the body type.
func (l *Lambda) Out() reflect.Type { return l.Body.Type() }

// Invoke applies a lambda to an argument.
type Invoke struct {
	Lambda *Lambda
	Arg    Node
}

// Apply creates an Invoke.
func Apply(l *Lambda, arg Node) *Invoke {
	if arg.Type() != l.In() {
		panic(fmt.Sprintf("expr: lambda over %s applied to %s", l.In(), arg.Type()))
	}

	return &Invoke{Lambda: l, Arg: arg}
}

// Select projects every element of a slice or array through Elem and
// materializes the results into a slice or array of type Into. An array
// receives at most its length of elements.
type Select struct {
	Source Node
	Elem   *Lambda
	Into   reflect.Type
}

// Each creates a Select.
func Each(source Node, elem *Lambda, into reflect.Type) *Select {
	st := source.Type()
	if !IsSequence(st) || st.Elem() != elem.In() {
		panic(fmt.Sprintf("expr: cannot select %s elements from %s", elem.In(), st))
	}

	if !IsSequence(into) || into.Elem() != elem.Out() {
		panic(fmt.Sprintf("expr: cannot collect %s into %s", elem.Out(), into))
	}

	return &Select{Source: source, Elem: elem, Into: into}
}

// MapRef is a pending reference to the mapping rule for
// (Operand.Type(), Dest). When Explicit is set it is used instead of the
// registered rule. A MapRef cannot be evaluated.
type MapRef struct {
	Operand  Node
	Dest     reflect.Type
	Explicit *Lambda
}

// MapOf references the registered rule projecting operand into dest.
func MapOf(operand Node, dest reflect.Type) *MapRef {
	return &MapRef{Operand: operand, Dest: dest}
}

// MapTo references the registered rule projecting operand into D.
func MapTo[D any](operand Node) *MapRef {
	return MapOf(operand, reflect.TypeFor[D]())
}

// MapWith references an explicit projection instead of a registered rule.
func MapWith(operand Node, l *Lambda) *MapRef {
	if operand.Type() != l.In() {
		panic(fmt.Sprintf("expr: projection over %s applied to %s", l.In(), operand.Type()))
	}

	return &MapRef{Operand: operand, Dest: l.Out(), Explicit: l}
}

// Source returns the type of the referenced rule's source.
func (n *MapRef) Source() reflect.Type { return n.Operand.Type() }

func (n *Param) Type() reflect.Type    { return n.typ }
func (n *Const) Type() reflect.Type    { return n.typ }
func (n *Member) Type() reflect.Type   { return n.typ }
func (n *Unary) Type() reflect.Type    { return n.Operand.Type() }
func (n *Binary) Type() reflect.Type   { return n.typ }
func (n *Coalesce) Type() reflect.Type { return n.Fallback.Type() }
func (n *Ref) Type() reflect.Type      { return reflect.PointerTo(n.Operand.Type()) }
func (n *Cond) Type() reflect.Type     { return n.Then.Type() }
func (n *Call) Type() reflect.Type     { return n.Fn.Type().Out(0) }
func (n *Init) Type() reflect.Type     { return n.typ }
func (n *Lambda) Type() reflect.Type   { return n.Body.Type() }
func (n *Invoke) Type() reflect.Type   { return n.Lambda.Out() }
func (n *Select) Type() reflect.Type   { return n.Into }
func (n *MapRef) Type() reflect.Type   { return n.Dest }

func (*Param) exprNode()    {}
func (*Const) exprNode()    {}
func (*Member) exprNode()   {}
func (*Unary) exprNode()    {}
func (*Binary) exprNode()   {}
func (*Coalesce) exprNode() {}
func (*Ref) exprNode()      {}
func (*Cond) exprNode()     {}
func (*Call) exprNode()     {}
func (*Init) exprNode()     {}
func (*Lambda) exprNode()   {}
func (*Invoke) exprNode()   {}
func (*Select) exprNode()   {}
func (*MapRef) exprNode()   {}
