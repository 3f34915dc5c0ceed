package mapper

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/zeebo/xxh3"
)

// Key identifies a rule by its source and destination types. Keys are
// interned by the registry, so two keys for the same pair are the same
// pointer.
type Key struct {
	Source reflect.Type
	Dest   reflect.Type
	hash   uint64
}

// Hash returns the precomputed 64-bit hash of the pair.
func (k *Key) Hash() uint64 { return k.hash }

// String renders the pair as "S -> D".
func (k *Key) String() string {
	return fmt.Sprintf("%s -> %s", k.Source, k.Dest)
}

// keyTable interns keys: source type -> (*sync.Map of dest type -> *Key).
type keyTable struct {
	bySource sync.Map
}

func (t *keyTable) intern(src, dst reflect.Type) *Key {
	inner, ok := t.bySource.Load(src)
	if !ok {
		inner, _ = t.bySource.LoadOrStore(src, &sync.Map{})
	}

	dests := inner.(*sync.Map)
	if k, ok := dests.Load(dst); ok {
		return k.(*Key)
	}

	h := xxh3.New()
	_, _ = h.WriteString(src.String())
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(dst.String())

	k, _ := dests.LoadOrStore(dst, &Key{Source: src, Dest: dst, hash: h.Sum64()})

	return k.(*Key)
}

func (t *keyTable) reset() {
	t.bySource.Clear()
}
