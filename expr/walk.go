package expr

// Walk visits n and its descendants in pre-order. Returning false from fn
// skips the children of the visited node.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}

	switch n := n.(type) {
	case *Member:
		Walk(n.Operand, fn)
	case *Unary:
		Walk(n.Operand, fn)
	case *Binary:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case *Coalesce:
		Walk(n.Value, fn)
		Walk(n.Fallback, fn)
	case *Ref:
		Walk(n.Operand, fn)
	case *Cond:
		Walk(n.Test, fn)
		Walk(n.Then, fn)
		Walk(n.Else, fn)
	case *Call:
		for _, a := range n.Args {
			Walk(a, fn)
		}
	case *Init:
		for _, b := range n.Bindings {
			Walk(b.Value, fn)
		}
	case *Lambda:
		Walk(n.Param, fn)
		Walk(n.Body, fn)
	case *Invoke:
		Walk(n.Lambda, fn)
		Walk(n.Arg, fn)
	case *Select:
		Walk(n.Source, fn)
		Walk(n.Elem, fn)
	case *MapRef:
		Walk(n.Operand, fn)

		if n.Explicit != nil {
			Walk(n.Explicit, fn)
		}
	}
}

// HasRefs reports whether any MapRef remains in n.
func HasRefs(n Node) bool {
	return FirstRef(n) != nil
}

// FirstRef returns the first MapRef of n in pre-order, or nil.
func FirstRef(n Node) *MapRef {
	var found *MapRef

	Walk(n, func(x Node) bool {
		if found != nil {
			return false
		}

		if ref, ok := x.(*MapRef); ok {
			found = ref
			return false
		}

		return true
	})

	return found
}

// RewriteFunc replaces a node after its children have been rewritten.
// Returning the node unchanged keeps it.
type RewriteFunc func(Node) (Node, error)

// Rewrite rebuilds n bottom-up, calling fn on every node after its children.
// Unchanged subtrees are shared with the input. Nodes returned by fn are not
// visited again.
func Rewrite(n Node, fn RewriteFunc) (Node, error) {
	rebuilt, err := rewriteChildren(n, fn)
	if err != nil {
		return nil, err
	}

	return fn(rebuilt)
}

// RewriteLambda rewrites the body of l, keeping its parameter.
func RewriteLambda(l *Lambda, fn RewriteFunc) (*Lambda, error) {
	body, err := Rewrite(l.Body, fn)
	if err != nil {
		return nil, err
	}

	if body == l.Body {
		return l, nil
	}

	return &Lambda{Param: l.Param, Body: body}, nil
}

func rewriteChildren(n Node, fn RewriteFunc) (Node, error) {
	switch n := n.(type) {
	case *Param, *Const:
		return n, nil
	case *Member:
		op, err := Rewrite(n.Operand, fn)
		if err != nil || op == n.Operand {
			return n, err
		}

		return &Member{Operand: op, Name: n.Name, Index: n.Index, typ: n.typ}, nil
	case *Unary:
		op, err := Rewrite(n.Operand, fn)
		if err != nil || op == n.Operand {
			return n, err
		}

		return &Unary{Op: n.Op, Operand: op}, nil
	case *Binary:
		l, r, err := rewritePair(n.Left, n.Right, fn)
		if err != nil || (l == n.Left && r == n.Right) {
			return n, err
		}

		return &Binary{Op: n.Op, Left: l, Right: r, typ: n.typ}, nil
	case *Coalesce:
		v, f, err := rewritePair(n.Value, n.Fallback, fn)
		if err != nil || (v == n.Value && f == n.Fallback) {
			return n, err
		}

		return &Coalesce{Value: v, Fallback: f}, nil
	case *Ref:
		op, err := Rewrite(n.Operand, fn)
		if err != nil || op == n.Operand {
			return n, err
		}

		return &Ref{Operand: op}, nil
	case *Cond:
		test, err := Rewrite(n.Test, fn)
		if err != nil {
			return nil, err
		}

		then, els, err := rewritePair(n.Then, n.Else, fn)
		if err != nil || (test == n.Test && then == n.Then && els == n.Else) {
			return n, err
		}

		return &Cond{Test: test, Then: then, Else: els}, nil
	case *Call:
		args, changed, err := rewriteList(n.Args, fn)
		if err != nil || !changed {
			return n, err
		}

		return &Call{Name: n.Name, Fn: n.Fn, Args: args}, nil
	case *Init:
		return rewriteInit(n, fn)
	case *Lambda:
		return RewriteLambda(n, fn)
	case *Invoke:
		l, err := RewriteLambda(n.Lambda, fn)
		if err != nil {
			return nil, err
		}

		arg, err := Rewrite(n.Arg, fn)
		if err != nil || (l == n.Lambda && arg == n.Arg) {
			return n, err
		}

		return &Invoke{Lambda: l, Arg: arg}, nil
	case *Select:
		src, err := Rewrite(n.Source, fn)
		if err != nil {
			return nil, err
		}

		elem, err := RewriteLambda(n.Elem, fn)
		if err != nil || (src == n.Source && elem == n.Elem) {
			return n, err
		}

		return &Select{Source: src, Elem: elem, Into: n.Into}, nil
	case *MapRef:
		op, err := Rewrite(n.Operand, fn)
		if err != nil {
			return nil, err
		}

		explicit := n.Explicit
		if explicit != nil {
			if explicit, err = RewriteLambda(explicit, fn); err != nil {
				return nil, err
			}
		}

		if op == n.Operand && explicit == n.Explicit {
			return n, nil
		}

		return &MapRef{Operand: op, Dest: n.Dest, Explicit: explicit}, nil
	default:
		return n, nil
	}
}

func rewritePair(a, b Node, fn RewriteFunc) (Node, Node, error) {
	ra, err := Rewrite(a, fn)
	if err != nil {
		return nil, nil, err
	}

	rb, err := Rewrite(b, fn)
	if err != nil {
		return nil, nil, err
	}

	return ra, rb, nil
}

func rewriteList(nodes []Node, fn RewriteFunc) ([]Node, bool, error) {
	out := make([]Node, len(nodes))
	changed := false

	for i, x := range nodes {
		r, err := Rewrite(x, fn)
		if err != nil {
			return nil, false, err
		}

		out[i] = r
		changed = changed || r != x
	}

	return out, changed, nil
}

func rewriteInit(n *Init, fn RewriteFunc) (Node, error) {
	var out []Binding

	for i, b := range n.Bindings {
		v, err := Rewrite(b.Value, fn)
		if err != nil {
			return nil, err
		}

		if v != b.Value && out == nil {
			out = make([]Binding, len(n.Bindings))
			copy(out, n.Bindings[:i])
		}

		if out != nil {
			out[i] = Binding{Name: b.Name, Index: b.Index, Value: v}
		}
	}

	if out == nil {
		return n, nil
	}

	return &Init{Bindings: out, typ: n.typ}, nil
}

// Substitute replaces every occurrence of p in n with with.
func Substitute(n Node, p *Param, with Node) Node {
	out, _ := Rewrite(n, func(x Node) (Node, error) {
		if x == p {
			return with, nil
		}

		return x, nil
	})

	return out
}

// Inline beta-reduces every Invoke and folds member accesses on Init nodes
// to the bound value, or to the member's zero value when it is unbound. The
// result expresses the same projection without nested lambdas other than
// Select element projections.
func Inline(n Node) Node {
	out, _ := Rewrite(n, func(x Node) (Node, error) {
		switch x := x.(type) {
		case *Invoke:
			return Inline(Substitute(x.Lambda.Body, x.Lambda.Param, x.Arg)), nil
		case *Member:
			if folded, ok := foldMember(x); ok {
				return folded, nil
			}
		}

		return x, nil
	})

	return out
}

// InlineLambda inlines the body of l.
func InlineLambda(l *Lambda) *Lambda {
	body := Inline(l.Body)
	if body == l.Body {
		return l
	}

	return &Lambda{Param: l.Param, Body: body}
}

func foldMember(m *Member) (Node, bool) {
	operand := m.Operand
	if ref, ok := operand.(*Ref); ok {
		operand = ref.Operand
	}

	init, ok := operand.(*Init)
	if !ok {
		return nil, false
	}

	if b, ok := init.Lookup(m.Name); ok {
		return b.Value, true
	}

	// promoted member: look through a binding of the embedded field
	if len(m.Index) > 1 {
		embedded := init.typ.Field(m.Index[0])
		if b, ok := init.Lookup(embedded.Name); ok {
			rest := &Member{Operand: b.Value, Name: m.Name, Index: m.Index[1:], typ: m.typ}
			if folded, ok := foldMember(rest); ok {
				return folded, true
			}

			return rest, true
		}
	}

	return Zero(m.typ), true
}

// ParamsOf returns the parameters referenced in n that are not bound by a
// lambda inside n.
func ParamsOf(n Node) []*Param {
	bound := map[*Param]bool{}
	seen := map[*Param]bool{}

	var out []*Param

	Walk(n, func(x Node) bool {
		switch x := x.(type) {
		case *Lambda:
			bound[x.Param] = true
		case *Param:
			if !bound[x] && !seen[x] {
				seen[x] = true
				out = append(out, x)
			}
		}

		return true
	})

	return out
}

// IsMemberOf reports whether n is a single field access on p and returns the
// field name.
func IsMemberOf(n Node, p *Param) (string, bool) {
	m, ok := n.(*Member)
	if !ok || m.Operand != p {
		return "", false
	}

	return m.Name, true
}
