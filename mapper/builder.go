package mapper

import (
	"fmt"
	"maps"
	"reflect"
	"slices"

	"exprmap/expr"
)

// Builder is an unexpanded projection for one pair: a source parameter and
// the destination member bindings. Bindings may still reference other rules
// through expr.MapRef nodes.
type Builder struct {
	param   *expr.Param
	dest    reflect.Type
	members map[string]expr.Node
}

// NewBuilder creates an empty builder projecting p into dest.
func NewBuilder(p *expr.Param, dest reflect.Type) *Builder {
	return &Builder{param: p, dest: dest, members: map[string]expr.Node{}}
}

// BuilderFrom decomposes a lambda whose body constructs the destination.
func BuilderFrom(l *expr.Lambda, dest reflect.Type) (*Builder, error) {
	init, ok := l.Body.(*expr.Init)
	if !ok || init.Type() != dest {
		return nil, fmt.Errorf("%w: body of %s must construct %s", ErrInvalidCustomMap, l, dest)
	}

	b := NewBuilder(l.Param, dest)
	for _, binding := range init.Bindings {
		b.members[binding.Name] = binding.Value
	}

	return b, nil
}

// Param returns the source parameter.
func (b *Builder) Param() *expr.Param { return b.param }

// Dest returns the destination type.
func (b *Builder) Dest() reflect.Type { return b.dest }

// Bind sets the binding of a destination member, replacing any previous one.
func (b *Builder) Bind(name string, value expr.Node) {
	b.members[name] = value
}

// Lookup returns the binding of a destination member.
func (b *Builder) Lookup(name string) (expr.Node, bool) {
	v, ok := b.members[name]
	return v, ok
}

// Names returns the bound member names in order.
func (b *Builder) Names() []string {
	return slices.Sorted(maps.Keys(b.members))
}

// Len returns the number of bound members.
func (b *Builder) Len() int { return len(b.members) }

// Clone returns a copy sharing the immutable binding expressions.
func (b *Builder) Clone() *Builder {
	return &Builder{param: b.param, dest: b.dest, members: maps.Clone(b.members)}
}

// Rebase returns a copy over parameter p, which must have the same type.
func (b *Builder) Rebase(p *expr.Param) *Builder {
	if p == b.param {
		return b.Clone()
	}

	if p.Type() != b.param.Type() {
		panic(fmt.Sprintf("mapper: cannot rebase %s builder onto %s", b.param.Type(), p.Type()))
	}

	out := NewBuilder(p, b.dest)
	for name, v := range b.members {
		out.members[name] = expr.Substitute(v, b.param, p)
	}

	return out
}

// Extend merges other into b. Bindings of other replace those of b, except
// when both are initializers of the same type: their bindings merge member
// by member, recursively. The parameter of other is unified with b's.
func (b *Builder) Extend(other *Builder) *Builder {
	if other.dest != b.dest {
		panic(fmt.Sprintf("mapper: cannot extend %s builder with %s", b.dest, other.dest))
	}

	other = other.Rebase(b.param)

	for name, v := range other.members {
		if prev, ok := b.members[name]; ok {
			b.members[name] = mergeNodes(prev, v)
			continue
		}

		b.members[name] = v
	}

	return b
}

func mergeNodes(prev, next expr.Node) expr.Node {
	pi, ok := prev.(*expr.Init)
	if !ok {
		return next
	}

	ni, ok := next.(*expr.Init)
	if !ok || ni.Type() != pi.Type() {
		return next
	}

	byName := make(map[string]expr.Node, len(pi.Bindings)+len(ni.Bindings))
	for _, bnd := range pi.Bindings {
		byName[bnd.Name] = bnd.Value
	}

	for _, bnd := range ni.Bindings {
		if old, ok := byName[bnd.Name]; ok {
			byName[bnd.Name] = mergeNodes(old, bnd.Value)
			continue
		}

		byName[bnd.Name] = bnd.Value
	}

	binds := make([]expr.Bind, 0, len(byName))
	for _, name := range slices.Sorted(maps.Keys(byName)) {
		binds = append(binds, expr.B(name, byName[name]))
	}

	return expr.New(pi.Type(), binds...)
}

// Remove drops the bindings of the named members.
func (b *Builder) Remove(names ...string) *Builder {
	for _, name := range names {
		delete(b.members, name)
	}

	return b
}

// Cast re-types a base builder onto a derived pair: operand (an expression
// over p producing the base source) replaces the base parameter, and each
// base binding is kept when dest promotes a settable member of the same
// name and type through its embedded base destination at embedIndex.
func (b *Builder) Cast(p *expr.Param, operand expr.Node, dest reflect.Type, embedIndex []int) *Builder {
	out := NewBuilder(p, dest)

	for name, v := range b.members {
		f, ok := dest.FieldByName(name)
		if !ok || f.Type != v.Type() || !hasPrefix(f.Index, embedIndex) {
			continue
		}

		if _, err := expr.SettableField(dest, name); err != nil {
			continue
		}

		out.members[name] = expr.Substitute(v, b.param, operand)
	}

	return out
}

// Lambda renders the builder as a projection lambda.
func (b *Builder) Lambda() *expr.Lambda {
	binds := make([]expr.Bind, 0, len(b.members))
	for _, name := range b.Names() {
		binds = append(binds, expr.B(name, b.members[name]))
	}

	return expr.NewLambda(b.param, expr.New(b.dest, binds...))
}

func hasPrefix(index, prefix []int) bool {
	return len(index) > len(prefix) && slices.Equal(index[:len(prefix)], prefix)
}
