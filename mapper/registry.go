package mapper

import (
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"exprmap/expr"
	"exprmap/internal/common"
	"exprmap/internal/typeinfo"
)

// Registry holds the mapping rules. It is safe for concurrent use: rules
// are registered under a mutex while lookups and resolutions proceed
// lock-free.
type Registry struct {
	cfg    Config
	logger *slog.Logger
	types  *typeinfo.Classifier

	keys  keyTable
	rules sync.Map // *Key -> *TypeMap

	// mu serializes registration and keeps count consistent.
	mu    sync.Mutex
	count int
	// generation moves on every registration so cached convention
	// builders pick up rules registered after them.
	generation atomic.Uint64

	planner planner
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg Config) *Registry {
	cfg = cfg.normalize()

	r := &Registry{
		cfg:    cfg,
		logger: cfg.Logger,
		types:  typeinfo.NewClassifier(cfg.ValueTypes...),
	}
	r.planner = planner{types: r.types, keys: &r.keys, rules: &r.rules}

	return r
}

// Config returns the effective configuration.
func (r *Registry) Config() Config { return r.cfg }

// Key returns the interned key of a pair.
func (r *Registry) Key(src, dst reflect.Type) *Key {
	return r.keys.intern(src, dst)
}

// Lookup returns the rule registered for key.
func (r *Registry) Lookup(key *Key) (*TypeMap, bool) {
	m, ok := r.rules.Load(key)
	if !ok {
		return nil, false
	}

	return m.(*TypeMap), true
}

// Find returns the rule whose source and destination type names match.
// Names may be short ("catalog.Person") or fully qualified.
func (r *Registry) Find(source, dest string) (*TypeMap, bool) {
	var found *TypeMap

	r.rules.Range(func(_, v any) bool {
		m := v.(*TypeMap)
		if slices.Contains(common.TypeNames(m.key.Source), source) &&
			slices.Contains(common.TypeNames(m.key.Dest), dest) {
			found = m
			return false
		}

		return true
	})

	return found, found != nil
}

// Rules returns a snapshot of the registered rules ordered by pair.
func (r *Registry) Rules() []*TypeMap {
	var out []*TypeMap

	r.rules.Range(func(_, v any) bool {
		out = append(out, v.(*TypeMap))
		return true
	})

	slices.SortFunc(out, func(a, b *TypeMap) int {
		return strings.Compare(a.key.String(), b.key.String())
	})

	return out
}

// Pairs returns the names of the registered pairs, in Rules order.
func (r *Registry) Pairs() []string {
	rules := r.Rules()
	names := make([]string, len(rules))

	for i, m := range rules {
		names[i] = m.String()
	}

	return names
}

// Count returns the number of registered rules.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.count
}

// Reset drops every rule and interned key. Intended for test isolation.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rules.Clear()
	r.keys.reset()
	r.count = 0
	r.generation.Add(1)
	r.planner.cache.drop()
}

func (r *Registry) register(m *TypeMap) error {
	if _, ok := r.rules.Load(m.key); ok {
		return fmt.Errorf("%w: %s", ErrDuplicateMap, m.key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// re-check under lock in case another goroutine registered meanwhile
	if _, loaded := r.rules.LoadOrStore(m.key, m); loaded {
		return fmt.Errorf("%w: %s", ErrDuplicateMap, m.key)
	}

	r.count++
	r.generation.Add(1)
	r.planner.cache.drop()

	r.logger.Debug("map registered", "pair", m.key.String(), "hash", fmt.Sprintf("%016x", m.key.Hash()))

	return nil
}

// GetMap resolves the fully expanded projection for a pair. ctx may be nil.
func (r *Registry) GetMap(src, dst reflect.Type, ctx *Context) (*expr.Lambda, error) {
	call := r.newCall(ctx)
	return call.resolve(r.Key(src, dst))
}

// GetMap resolves the fully expanded projection from S to D. ctx may be nil.
func GetMap[S, D any](r *Registry, ctx *Context) (*expr.Lambda, error) {
	return r.GetMap(reflect.TypeFor[S](), reflect.TypeFor[D](), ctx)
}

// Unexpanded returns the projection for a pair before rule references are
// expanded. ctx may be nil.
func (r *Registry) Unexpanded(src, dst reflect.Type, ctx *Context) (*expr.Lambda, error) {
	return r.newCall(ctx).lambda(r.Key(src, dst))
}

// atomicMap is a sync.Map that can be swapped for an empty one atomically.
type atomicMap struct {
	p atomic.Pointer[sync.Map]
}

func (m *atomicMap) load() *sync.Map {
	if v := m.p.Load(); v != nil {
		return v
	}

	m.p.CompareAndSwap(nil, &sync.Map{})

	return m.p.Load()
}

func (m *atomicMap) drop() {
	m.p.Store(&sync.Map{})
}
