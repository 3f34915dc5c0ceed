package sqlite

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"exprmap/expr"
)

var sqlCalls = map[string]string{
	expr.CallUpper: "UPPER",
	expr.CallLower: "LOWER",
	expr.CallLen:   "LENGTH",
	expr.CallTrim:  "TRIM",
}

var sqlOps = map[expr.Op]string{
	expr.OpEq:  "=",
	expr.OpNe:  "<>",
	expr.OpLt:  "<",
	expr.OpLe:  "<=",
	expr.OpGt:  ">",
	expr.OpGe:  ">=",
	expr.OpAdd: "+",
	expr.OpSub: "-",
	expr.OpMul: "*",
	expr.OpDiv: "/",
	expr.OpAnd: "AND",
	expr.OpOr:  "OR",
}

// translator renders row expressions over one source schema. Constants are
// collected as positional parameters in rendering order.
type translator struct {
	src  *schema
	args []any
}

func untranslatable(n expr.Node, format string, a ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrUntranslatable, expr.Format(n), fmt.Sprintf(format, a...))
}

func (tr *translator) render(n expr.Node) (string, error) {
	switch n := n.(type) {
	case *expr.Member:
		return tr.column(n)
	case *expr.Const:
		if n.Value == nil || n.IsZero() && isNilable(n.Type()) {
			return "NULL", nil
		}

		if n.Type().Kind() == reflect.Struct && n.Type() != timeType {
			return "", untranslatable(n, "struct constant")
		}

		tr.args = append(tr.args, n.Value)

		return "?", nil
	case *expr.Unary:
		operand, err := tr.render(n.Operand)
		if err != nil {
			return "", err
		}

		if n.Op == expr.OpNot {
			return "(NOT " + operand + ")", nil
		}

		return "(-" + operand + ")", nil
	case *expr.Binary:
		return tr.binary(n)
	case *expr.Coalesce:
		return tr.call("COALESCE", n.Value, n.Fallback)
	case *expr.Ref:
		if isRow(n.Operand.Type()) {
			return "", untranslatable(n, "address of a struct value")
		}

		return tr.render(n.Operand)
	case *expr.Cond:
		if isRow(expr.Indirect(n.Type())) {
			return "", untranslatable(n, "struct-valued condition")
		}

		parts := make([]string, 3)
		for i, part := range []expr.Node{n.Test, n.Then, n.Else} {
			s, err := tr.render(part)
			if err != nil {
				return "", err
			}

			parts[i] = s
		}

		return fmt.Sprintf("CASE WHEN %s THEN %s ELSE %s END", parts[0], parts[1], parts[2]), nil
	case *expr.Call:
		fn, ok := sqlCalls[n.Name]
		if !ok {
			return "", untranslatable(n, "no SQL function for %s", n.Name)
		}

		return tr.call(fn, n.Args...)
	case *expr.Select:
		return "", untranslatable(n, "collection projection")
	case *expr.MapRef:
		return "", untranslatable(n, "unexpanded reference")
	default:
		return "", untranslatable(n, "no scalar rendering")
	}
}

func (tr *translator) call(fn string, args ...expr.Node) (string, error) {
	rendered := make([]string, len(args))

	for i, a := range args {
		s, err := tr.render(a)
		if err != nil {
			return "", err
		}

		rendered[i] = s
	}

	return fn + "(" + strings.Join(rendered, ", ") + ")", nil
}

func (tr *translator) binary(n *expr.Binary) (string, error) {
	// comparisons with nil become null tests
	if n.Op == expr.OpEq || n.Op == expr.OpNe {
		for _, pair := range [][2]expr.Node{{n.Left, n.Right}, {n.Right, n.Left}} {
			c, ok := pair[1].(*expr.Const)
			if !ok || !isNilable(c.Type()) || !c.IsZero() {
				continue
			}

			operand, err := tr.render(pair[0])
			if err != nil {
				return "", err
			}

			if n.Op == expr.OpEq {
				return "(" + operand + " IS NULL)", nil
			}

			return "(" + operand + " IS NOT NULL)", nil
		}
	}

	left, err := tr.render(n.Left)
	if err != nil {
		return "", err
	}

	right, err := tr.render(n.Right)
	if err != nil {
		return "", err
	}

	op := sqlOps[n.Op]
	if n.Op == expr.OpAdd && n.Type().Kind() == reflect.String {
		op = "||"
	}

	return "(" + left + " " + op + " " + right + ")", nil
}

// column resolves a member chain rooted at a row parameter to its column.
func (tr *translator) column(m *expr.Member) (string, error) {
	var index []int

	cur := expr.Node(m)
	for {
		member, ok := cur.(*expr.Member)
		if !ok {
			break
		}

		index = slices.Concat(member.Index, index)
		cur = member.Operand
	}

	p, ok := cur.(*expr.Param)
	if !ok {
		return "", untranslatable(m, "member of a computed value")
	}

	if p.Type() != tr.src.typ {
		return "", untranslatable(m, "parameter %s is not a %s row", p.Name, tr.src.typ)
	}

	c, ok := tr.src.lookup(index)
	if !ok {
		return "", untranslatable(m, "no column")
	}

	return quote(c.name), nil
}

// target is one selected leaf and where its value lands in the result.
type target struct {
	sql   string
	alias string
	index []int
}

// flatten expands a projection body producing out into its leaf targets.
// Struct members must be built by initializers or be nested row structs.
func (tr *translator) flatten(n expr.Node, out reflect.Type, index []int, alias string) ([]target, error) {
	if !isRow(out) {
		s, err := tr.render(n)
		if err != nil {
			return nil, err
		}

		if alias == "" {
			alias = "value"
		}

		return []target{{sql: s, alias: alias, index: index}}, nil
	}

	init, ok := n.(*expr.Init)
	if !ok {
		return tr.flattenValue(n, out, index, alias)
	}

	var targets []target

	for _, b := range init.Bindings {
		name := b.Name
		if alias != "" {
			name = alias + "_" + b.Name
		}

		leaf, err := tr.flatten(b.Value, b.Value.Type(), slices.Concat(index, b.Index), name)
		if err != nil {
			return nil, err
		}

		targets = append(targets, leaf...)
	}

	return targets, nil
}

// flattenValue expands a struct-valued expression field by field.
func (tr *translator) flattenValue(n expr.Node, out reflect.Type, index []int, alias string) ([]target, error) {
	if _, ok := n.(*expr.Member); !ok {
		if _, ok := n.(*expr.Param); !ok {
			return nil, untranslatable(n, "struct value without an initializer")
		}
	}

	var targets []target

	for i := range out.NumField() {
		f := out.Field(i)
		if !f.IsExported() {
			continue
		}

		name := f.Name
		if alias != "" {
			name = alias + "_" + f.Name
		}

		leaf, err := tr.flatten(expr.Field(n, f.Name), f.Type, slices.Concat(index, []int{i}), name)
		if err != nil {
			return nil, err
		}

		targets = append(targets, leaf...)
	}

	return targets, nil
}

func isRow(t reflect.Type) bool {
	return t.Kind() == reflect.Struct && t != timeType
}

func isNilable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
		return true
	default:
		return false
	}
}
