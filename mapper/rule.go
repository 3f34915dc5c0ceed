package mapper

import (
	"fmt"
	"reflect"
	"slices"
	"sync"

	"exprmap/expr"
	"exprmap/internal/diagnostic"
	"exprmap/internal/match"
)

// actionPhase orders extension actions: every base inclusion precedes the
// static custom map, which precedes runtime maps, which precede removals.
type actionPhase int

const (
	phaseBase actionPhase = iota
	phaseStatic
	phaseRuntime
	phaseIgnore
)

// action is one extension step applied after the convention builder:
// either a merge of another creator's builder or a removal of members.
type action struct {
	phase   actionPhase
	merge   creator
	remove  []string
	removeF func(*Context) []string
}

func (a action) apply(call *resolveCall, b *Builder) error {
	switch {
	case a.merge != nil:
		other, err := a.merge.create(call)
		if err != nil {
			return err
		}

		b.Extend(other)
	case a.removeF != nil:
		b.Remove(a.removeF(call.ctx)...)
	default:
		b.Remove(a.remove...)
	}

	return nil
}

// TypeMap is the rule of one (source, destination) pair: a convention
// creator followed by ordered extension actions.
type TypeMap struct {
	reg        *Registry
	key        *Key
	param      *expr.Param
	convention *conventionCreator

	mu      sync.RWMutex
	actions []action
	after   []func(*Context, any)
}

// Rule is the typed configuration surface of a TypeMap.
type Rule[S, D any] struct {
	*TypeMap
}

// CreateMap registers the rule projecting S into D. An optional custom
// projection overrides the convention bindings it names; its body must be
// an initializer of D.
func CreateMap[S, D any](reg *Registry, custom ...*expr.Lambda) (*Rule[S, D], error) {
	if len(custom) > 1 {
		return nil, fmt.Errorf("%w: at most one custom projection, got %d", ErrInvalidCustomMap, len(custom))
	}

	src, dst := reflect.TypeFor[S](), reflect.TypeFor[D]()
	if dst.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: destination %s is not a struct", ErrInvalidCustomMap, dst)
	}

	m := newTypeMap(reg, reg.Key(src, dst))

	if len(custom) == 1 && custom[0] != nil {
		b, err := customBuilder(m.key, custom[0])
		if err != nil {
			return nil, err
		}

		m.addAction(action{phase: phaseStatic, merge: &staticCreator{builder: b.Rebase(m.param)}})
	}

	if err := reg.register(m); err != nil {
		return nil, err
	}

	return &Rule[S, D]{TypeMap: m}, nil
}

func newTypeMap(reg *Registry, key *Key) *TypeMap {
	p := expr.NewParam(key.Source, paramName(key.Source))

	return &TypeMap{
		reg:        reg,
		key:        key,
		param:      p,
		convention: &conventionCreator{reg: reg, key: key, param: p},
	}
}

// Key returns the rule's pair.
func (m *TypeMap) Key() *Key { return m.key }

// String renders the rule's pair.
func (m *TypeMap) String() string { return m.key.String() }

// IgnoreMembers removes the named destination members from the convention
// output and from every later resolution.
func (m *TypeMap) IgnoreMembers(names ...string) error {
	for _, name := range names {
		if _, err := expr.SettableField(m.key.Dest, name); err != nil {
			return fmt.Errorf("%w: %s: %w%s", ErrUnknownMember, m.key, err,
				match.Hint(name, memberNames(m.key.Dest)))
		}
	}

	m.convention.suppress(names...)
	m.addAction(action{phase: phaseIgnore, remove: slices.Clone(names)})

	return nil
}

func memberNames(t reflect.Type) []string {
	var names []string

	for _, f := range reflect.VisibleFields(t) {
		if f.IsExported() && !f.Anonymous {
			names = append(names, f.Name)
		}
	}

	return names
}

// IgnoreRuntimeMembers removes the members named by fn, evaluated on every
// resolution with its context.
func (m *TypeMap) IgnoreRuntimeMembers(fn func(*Context) []string) {
	m.addAction(action{phase: phaseIgnore, removeF: fn})
}

// Diagnostics returns the diagnostics of the latest convention build.
func (m *TypeMap) Diagnostics() diagnostic.Diagnostics {
	_, diags := m.convention.build()
	return diags
}

// addAction inserts a after every action of an earlier or equal phase.
// Base inclusions always go to the front.
func (m *TypeMap) addAction(a action) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if a.phase == phaseBase {
		m.actions = slices.Insert(m.actions, 0, a)
		return
	}

	at := len(m.actions)
	for at > 0 && m.actions[at-1].phase > a.phase {
		at--
	}

	m.actions = slices.Insert(m.actions, at, a)
}

// createUnexpanded runs the convention creator, then every action in order.
func (m *TypeMap) createUnexpanded(call *resolveCall) (*Builder, error) {
	conv, diags := m.convention.build()
	b := conv.Clone()

	m.mu.RLock()
	actions := slices.Clone(m.actions)
	m.mu.RUnlock()

	for _, a := range actions {
		if err := a.apply(call, b); err != nil {
			return nil, err
		}
	}

	if err := call.checkStrict(m, b, diags); err != nil {
		return nil, err
	}

	return b, nil
}

// ignores reports whether name is removed by an ignore action for ctx.
func (m *TypeMap) ignores(name string, ctx *Context) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, a := range m.actions {
		switch {
		case a.removeF != nil:
			if slices.Contains(a.removeF(ctx), name) {
				return true
			}
		case a.merge == nil:
			if slices.Contains(a.remove, name) {
				return true
			}
		}
	}

	return false
}

func (m *TypeMap) afterHooks() []func(*Context, any) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.Clone(m.after)
}

// IgnoreFields removes the destination members accessed by nodes. Each node
// must be a plain member access on a parameter of type D, such as
// expr.Field(expr.P[D]("d"), "Secret").
func (r *Rule[S, D]) IgnoreFields(nodes ...expr.Node) error {
	names := make([]string, 0, len(nodes))

	for _, n := range nodes {
		m, ok := n.(*expr.Member)
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotMemberAccess, n)
		}

		p, ok := m.Operand.(*expr.Param)
		if !ok || p.Type() != r.key.Dest {
			return fmt.Errorf("%w: %s", ErrNotMemberAccess, n)
		}

		name, _ := expr.IsMemberOf(n, p)
		names = append(names, name)
	}

	return r.IgnoreMembers(names...)
}

// CreateRuntimeMap adds a projection computed from the resolution context.
// The factory runs on every resolution; a nil lambda adds nothing.
func (r *Rule[S, D]) CreateRuntimeMap(factory func(*Context) (*expr.Lambda, error)) {
	r.addAction(action{
		phase: phaseRuntime,
		merge: &runtimeCreator{key: r.key, param: r.param, factory: factory},
	})
}

// AfterMap registers a hook run on every materialized D.
func (r *Rule[S, D]) AfterMap(fn func(*Context, *D)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.after = append(r.after, func(ctx *Context, v any) {
		if d, ok := v.(*D); ok {
			fn(ctx, d)
		}
	})
}

// IncludeBase makes the rule inherit the bindings of the (BS, BD) rule. S
// must embed BS and D must embed BD; the base rule must already exist.
// Inherited bindings have the lowest precedence of all extensions.
func IncludeBase[BS, BD, S, D any](r *Rule[S, D]) error {
	base := r.reg.Key(reflect.TypeFor[BS](), reflect.TypeFor[BD]())
	if base == r.key {
		return fmt.Errorf("%w: %s cannot include itself", ErrInvalidBase, r.key)
	}

	srcPath, _, ok := embedPath(r.key.Source, base.Source)
	if !ok {
		return fmt.Errorf("%w: %s does not embed %s", ErrInvalidBase, r.key.Source, base.Source)
	}

	_, dstIndex, ok := embedPath(r.key.Dest, base.Dest)
	if !ok {
		return fmt.Errorf("%w: %s does not embed %s", ErrInvalidBase, r.key.Dest, base.Dest)
	}

	if _, ok := r.reg.Lookup(base); !ok {
		return fmt.Errorf("%w: %w: %s", ErrInvalidBase, ErrMapNotFound, base)
	}

	r.addAction(action{
		phase: phaseBase,
		merge: &baseCreator{key: r.key, base: base, param: r.param, srcPath: srcPath, dstIndex: dstIndex},
	})

	return nil
}
