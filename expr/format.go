package expr

import (
	"fmt"
	"reflect"
	"strings"
)

// Format renders n deterministically:
//
//	p => catalog.PersonDTO{Age: p.Age, OrgName: p.Org.Name}
//
// Invocations render as (lambda)(arg), references to rules as
// map[S -> D](operand) and element projections as
// []D(select(source, lambda)).
func Format(n Node) string {
	var sb strings.Builder
	format(&sb, n)

	return sb.String()
}

func format(sb *strings.Builder, n Node) {
	switch n := n.(type) {
	case *Param:
		sb.WriteString(n.Name)
	case *Const:
		sb.WriteString(formatConst(n))
	case *Member:
		format(sb, n.Operand)
		sb.WriteByte('.')
		sb.WriteString(n.Name)
	case *Unary:
		sb.WriteString(n.Op.String())
		format(sb, n.Operand)
	case *Binary:
		sb.WriteByte('(')
		format(sb, n.Left)
		fmt.Fprintf(sb, " %s ", n.Op)
		format(sb, n.Right)
		sb.WriteByte(')')
	case *Coalesce:
		sb.WriteByte('(')
		format(sb, n.Value)
		sb.WriteString(" ?? ")
		format(sb, n.Fallback)
		sb.WriteByte(')')
	case *Ref:
		sb.WriteByte('&')
		format(sb, n.Operand)
	case *Cond:
		sb.WriteByte('(')
		format(sb, n.Test)
		sb.WriteString(" ? ")
		format(sb, n.Then)
		sb.WriteString(" : ")
		format(sb, n.Else)
		sb.WriteByte(')')
	case *Call:
		sb.WriteString(n.Name)
		sb.WriteByte('(')

		for i, a := range n.Args {
			if i > 0 {
				sb.WriteString(", ")
			}

			format(sb, a)
		}

		sb.WriteByte(')')
	case *Init:
		sb.WriteString(n.typ.String())
		sb.WriteByte('{')

		for i, b := range n.Bindings {
			if i > 0 {
				sb.WriteString(", ")
			}

			sb.WriteString(b.Name)
			sb.WriteString(": ")
			format(sb, b.Value)
		}

		sb.WriteByte('}')
	case *Lambda:
		sb.WriteString(n.Param.Name)
		sb.WriteString(" => ")
		format(sb, n.Body)
	case *Invoke:
		sb.WriteByte('(')
		format(sb, n.Lambda)
		sb.WriteString(")(")
		format(sb, n.Arg)
		sb.WriteByte(')')
	case *Select:
		sb.WriteString(n.Into.String())
		sb.WriteString("(select(")
		format(sb, n.Source)
		sb.WriteString(", ")
		format(sb, n.Elem)
		sb.WriteString("))")
	case *MapRef:
		if n.Explicit != nil {
			sb.WriteString("map(")
			format(sb, n.Explicit)
			sb.WriteByte(')')
		} else {
			fmt.Fprintf(sb, "map[%s -> %s]", n.Source(), n.Dest)
		}

		sb.WriteByte('(')
		format(sb, n.Operand)
		sb.WriteByte(')')
	default:
		fmt.Fprintf(sb, "<%T>", n)
	}
}

func formatConst(c *Const) string {
	v := reflect.ValueOf(c.Value)

	switch {
	case !v.IsValid():
		return "nil"
	case v.Kind() == reflect.String:
		return fmt.Sprintf("%q", v.String())
	case v.Kind() == reflect.Pointer, v.Kind() == reflect.Slice, v.Kind() == reflect.Map:
		if v.IsNil() {
			return "nil"
		}
	case v.Kind() == reflect.Struct && v.IsZero():
		return c.typ.String() + "{}"
	}

	return fmt.Sprintf("%v", c.Value)
}

func (n *Param) String() string    { return Format(n) }
func (n *Const) String() string    { return Format(n) }
func (n *Member) String() string   { return Format(n) }
func (n *Unary) String() string    { return Format(n) }
func (n *Binary) String() string   { return Format(n) }
func (n *Coalesce) String() string { return Format(n) }
func (n *Ref) String() string      { return Format(n) }
func (n *Cond) String() string     { return Format(n) }
func (n *Call) String() string     { return Format(n) }
func (n *Init) String() string     { return Format(n) }
func (n *Lambda) String() string   { return Format(n) }
func (n *Invoke) String() string   { return Format(n) }
func (n *Select) String() string   { return Format(n) }
func (n *MapRef) String() string   { return Format(n) }
