package mapper

import (
	"fmt"
	"log/slog"

	"exprmap/expr"
	"exprmap/internal/diagnostic"
)

// resolveCall is the state of one top-level resolution. Its caches live
// only as long as the call and are never shared between calls.
type resolveCall struct {
	reg    *Registry
	ctx    *Context
	logger *slog.Logger

	builders map[*Key]*Builder
	lambdas  map[*Key]*expr.Lambda
	building map[*Key]bool
}

func (r *Registry) newCall(ctx *Context) *resolveCall {
	return &resolveCall{
		reg:      r,
		ctx:      ctx,
		logger:   r.logger,
		builders: map[*Key]*Builder{},
		lambdas:  map[*Key]*expr.Lambda{},
		building: map[*Key]bool{},
	}
}

// builder returns the unexpanded builder of key, building it once per call.
// The returned builder must not be modified.
func (c *resolveCall) builder(key *Key) (*Builder, error) {
	if b, ok := c.builders[key]; ok {
		return b, nil
	}

	m, ok := c.reg.Lookup(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMapNotFound, key)
	}

	if c.building[key] {
		return nil, fmt.Errorf("%w: %s includes itself as a base", ErrInvalidBase, key)
	}

	c.building[key] = true
	defer delete(c.building, key)

	b, err := m.createUnexpanded(c)
	if err != nil {
		return nil, err
	}

	c.builders[key] = b

	return b, nil
}

// lambda returns the unexpanded projection of key.
func (c *resolveCall) lambda(key *Key) (*expr.Lambda, error) {
	if l, ok := c.lambdas[key]; ok {
		return l, nil
	}

	b, err := c.builder(key)
	if err != nil {
		return nil, err
	}

	l := b.Lambda()
	c.lambdas[key] = l

	return l, nil
}

// resolve returns the fully expanded projection of key.
func (c *resolveCall) resolve(key *Key) (*expr.Lambda, error) {
	l, err := c.lambda(key)
	if err != nil {
		return nil, err
	}

	return c.expand(key, l)
}

// expand replaces every rule reference with an invocation of the referenced
// projection, pass after pass, until a pass substitutes nothing. Each pass
// may introduce new references from the substituted projections.
func (c *resolveCall) expand(key *Key, l *expr.Lambda) (*expr.Lambda, error) {
	limit := c.reg.cfg.MaxExpansionPasses
	cur := l

	for pass := 1; ; pass++ {
		substituted := 0

		next, err := expr.RewriteLambda(cur, func(n expr.Node) (expr.Node, error) {
			ref, ok := n.(*expr.MapRef)
			if !ok {
				return n, nil
			}

			target := ref.Explicit
			if target == nil {
				var err error
				if target, err = c.lambda(c.reg.Key(ref.Source(), ref.Dest)); err != nil {
					return nil, err
				}
			}

			substituted++

			return expr.Apply(target, ref.Operand), nil
		})
		if err != nil {
			return nil, fmt.Errorf("expand %s: %w", key, err)
		}

		if substituted == 0 {
			c.logger.Debug("projection expanded", "pair", key.String(), "passes", pass-1)
			return cur, nil
		}

		cur = next

		if pass >= limit {
			if ref := expr.FirstRef(cur.Body); ref != nil {
				return nil, fmt.Errorf("%w: %s after %d passes, unresolved %s -> %s",
					ErrExpansionLimit, key, pass, ref.Source(), ref.Dest)
			}

			return cur, nil
		}
	}
}

// checkStrict fails when a member the convention could not bind is still
// unbound after every action ran.
func (c *resolveCall) checkStrict(m *TypeMap, b *Builder, diags diagnostic.Diagnostics) error {
	if !c.reg.cfg.StrictBindings {
		return nil
	}

	for _, d := range diags.WithCode(diagnostic.CodeMemberUnbound) {
		if _, bound := b.Lookup(d.Member); bound || m.ignores(d.Member, c.ctx) {
			continue
		}

		return fmt.Errorf("%w: %s.%s: %s", ErrUnboundMember, m.key, d.Member, d.Message)
	}

	return nil
}
