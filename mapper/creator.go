package mapper

import (
	"fmt"
	"reflect"
	"slices"
	"sync"

	"exprmap/expr"
	"exprmap/internal/diagnostic"
)

// creator produces an unexpanded builder for a rule's pair.
type creator interface {
	create(call *resolveCall) (*Builder, error)
}

// conventionCreator binds destination members to same-named source paths.
// Its builder is built lazily and reused until the suppression list or the
// set of registered rules changes.
type conventionCreator struct {
	reg   *Registry
	key   *Key
	param *expr.Param

	mu         sync.Mutex
	suppressed []string
	cached     *Builder
	generation uint64
	diags      diagnostic.Diagnostics
}

func (c *conventionCreator) suppress(names ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, name := range names {
		if !slices.Contains(c.suppressed, name) {
			c.suppressed = append(c.suppressed, name)
		}
	}

	c.cached = nil
}

func (c *conventionCreator) create(call *resolveCall) (*Builder, error) {
	b, _ := c.build()
	return b.Clone(), nil
}

// build returns the cached builder and the diagnostics of its build.
func (c *conventionCreator) build() (*Builder, diagnostic.Diagnostics) {
	c.mu.Lock()
	defer c.mu.Unlock()

	gen := c.reg.generation.Load()
	if c.cached != nil && c.generation == gen {
		return c.cached, c.diags
	}

	var diags diagnostic.Diagnostics

	b := NewBuilder(c.param, c.key.Dest)
	src := c.reg.types.Describe(c.key.Source)
	dst := c.reg.types.Describe(c.key.Dest)
	pair := c.key.String()

	for _, f := range dst.Writable {
		if slices.Contains(c.suppressed, f.Name) {
			diags.AddInfo(diagnostic.CodeMemberIgnored, "suppressed by convention", pair, f.Name)
			continue
		}

		path, ok := src.Path(f.Name)
		if !ok {
			continue
		}

		bound, ok := c.reg.planner.bind(expr.FieldPath(c.param, path.Fields...), f.Type)
		if !ok {
			// embedded members are covered by their promoted fields
			if !f.Embedded {
				diags.AddWarning(diagnostic.CodeMemberUnbound,
					fmt.Sprintf("no binding from %s to %s", path.Type, f.Type), pair, f.Name)
			}

			continue
		}

		b.Bind(f.Name, bound)
	}

	c.reg.logger.Debug("convention built", "pair", pair,
		"bound", b.Len(), "unbound", len(diags.Warnings))

	c.cached, c.generation, c.diags = b, gen, diags

	return b, diags
}

// staticCreator merges a fixed custom projection.
type staticCreator struct {
	builder *Builder
}

func (c *staticCreator) create(*resolveCall) (*Builder, error) {
	return c.builder.Clone(), nil
}

// runtimeCreator asks a factory for a projection on every resolution.
type runtimeCreator struct {
	key     *Key
	param   *expr.Param
	factory func(*Context) (*expr.Lambda, error)
}

func (c *runtimeCreator) create(call *resolveCall) (*Builder, error) {
	l, err := c.factory(call.ctx)
	if err != nil {
		return nil, fmt.Errorf("runtime map %s: %w", c.key, err)
	}

	if l == nil {
		return NewBuilder(c.param, c.key.Dest), nil
	}

	b, err := customBuilder(c.key, l)
	if err != nil {
		return nil, err
	}

	return b.Rebase(c.param), nil
}

// baseCreator re-types the projection of a base pair onto a derived pair.
type baseCreator struct {
	key   *Key
	base  *Key
	param *expr.Param
	// srcPath names the embedded fields leading from the source to its base.
	srcPath []string
	// dstIndex is the index of the embedded base inside the destination.
	dstIndex []int
}

func (c *baseCreator) create(call *resolveCall) (*Builder, error) {
	bb, err := call.builder(c.base)
	if err != nil {
		return nil, fmt.Errorf("base of %s: %w", c.key, err)
	}

	operand := expr.FieldPath(c.param, c.srcPath...)
	if operand.Type().Kind() == reflect.Pointer {
		operand = expr.Default(operand, expr.Zero(operand.Type().Elem()))
	}

	return bb.Cast(c.param, operand, c.key.Dest, c.dstIndex), nil
}

// customBuilder validates a caller projection for key.
func customBuilder(key *Key, l *expr.Lambda) (*Builder, error) {
	if l.In() != key.Source {
		return nil, fmt.Errorf("%w: %s takes %s, want %s", ErrInvalidCustomMap, key, l.In(), key.Source)
	}

	for _, p := range expr.ParamsOf(l.Body) {
		if p != l.Param {
			return nil, fmt.Errorf("%w: %s uses foreign parameter %s", ErrInvalidCustomMap, key, p.Name)
		}
	}

	return BuilderFrom(l, key.Dest)
}

// embedPath finds the shallowest embedded field of type base (or *base)
// inside t and returns its field names and index.
func embedPath(t, base reflect.Type) ([]string, []int, bool) {
	if t.Kind() != reflect.Struct {
		return nil, nil, false
	}

	var (
		names []string
		index []int
	)

	for _, f := range reflect.VisibleFields(t) {
		if !f.Anonymous || expr.Indirect(f.Type) != base {
			continue
		}

		if index != nil && len(f.Index) >= len(index) {
			continue
		}

		path, ok := fieldNames(t, f.Index)
		if !ok {
			continue
		}

		names, index = path, f.Index
	}

	return names, index, index != nil
}

// fieldNames converts an index path into exported field names.
func fieldNames(t reflect.Type, index []int) ([]string, bool) {
	names := make([]string, 0, len(index))
	cur := t

	for _, i := range index {
		f := cur.Field(i)
		if !f.IsExported() {
			return nil, false
		}

		names = append(names, f.Name)
		cur = expr.Indirect(f.Type)
	}

	return names, true
}
