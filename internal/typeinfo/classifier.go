package typeinfo

import (
	"reflect"
	"slices"
	"sync"
	"time"
)

var (
	timeType     = reflect.TypeFor[time.Time]()
	durationType = reflect.TypeFor[time.Duration]()
	bytesType    = reflect.TypeFor[[]byte]()
)

// Classifier decides which types are primitive and caches descriptors.
// It is safe for concurrent use.
type Classifier struct {
	values map[reflect.Type]struct{}
	infos  sync.Map // reflect.Type -> *TypeInfo
}

// NewClassifier creates a classifier. valueTypes are treated as primitives
// in addition to the built-in ones (e.g. decimal or UUID types).
func NewClassifier(valueTypes ...reflect.Type) *Classifier {
	c := &Classifier{values: make(map[reflect.Type]struct{}, len(valueTypes))}
	for _, t := range valueTypes {
		c.values[t] = struct{}{}
	}

	return c
}

// IsPrimitive reports whether t is copied by value without a rule.
func (c *Classifier) IsPrimitive(t reflect.Type) bool {
	if t == nil {
		return false
	}

	switch t {
	case timeType, durationType, bytesType:
		return true
	}

	if _, ok := c.values[t]; ok {
		return true
	}

	switch t.Kind() {
	default:
		return false
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	}
}

// Kind classifies t.
func (c *Classifier) Kind(t reflect.Type) TypeKind {
	if t == nil {
		return TypeKindUnknown
	}

	if c.IsPrimitive(t) {
		return TypeKindPrimitive
	}

	switch t.Kind() {
	case reflect.Pointer:
		return TypeKindNullable
	case reflect.Slice, reflect.Array:
		return TypeKindSequence
	case reflect.Struct:
		return TypeKindStruct
	default:
		return TypeKindOpaque
	}
}

// Describe returns the descriptor of t, building it on first use.
func (c *Classifier) Describe(t reflect.Type) *TypeInfo {
	if cached, ok := c.infos.Load(t); ok {
		return cached.(*TypeInfo)
	}

	info := c.build(t)
	actual, _ := c.infos.LoadOrStore(t, info)

	return actual.(*TypeInfo)
}

func (c *Classifier) build(t reflect.Type) *TypeInfo {
	info := &TypeInfo{Type: t, Kind: c.Kind(t)}

	switch info.Kind {
	case TypeKindNullable, TypeKindSequence:
		info.Elem = t.Elem()
	case TypeKindStruct:
		info.Readable = readableFields(t)
		info.byName = make(map[string]int, len(info.Readable))

		for i, f := range info.Readable {
			info.byName[f.Name] = i

			if writable(t, f) {
				info.Writable = append(info.Writable, f)
			}
		}

		info.Paths = c.paths(info)
	}

	return info
}

// paths lists depth-0 fields, then the fields of every depth-0 member whose
// dereferenced type is a non-primitive struct. Depth-0 names win on clashes.
func (c *Classifier) paths(info *TypeInfo) []PathInfo {
	paths := make([]PathInfo, 0, len(info.Readable))
	seen := make(map[string]struct{}, len(info.Readable))

	for _, f := range info.Readable {
		paths = append(paths, PathInfo{Name: f.Name, Fields: []string{f.Name}, Type: f.Type})
		seen[f.Name] = struct{}{}
	}

	for _, parent := range info.Readable {
		inner := indirect(parent.Type)
		if c.Kind(inner) != TypeKindStruct {
			continue
		}

		for _, child := range readableFields(inner) {
			name := parent.Name + child.Name
			if _, dup := seen[name]; dup {
				continue
			}

			seen[name] = struct{}{}
			paths = append(paths, PathInfo{
				Name:   name,
				Fields: []string{parent.Name, child.Name},
				Type:   child.Type,
			})
		}
	}

	return paths
}

func readableFields(t reflect.Type) []FieldInfo {
	var fields []FieldInfo

	for _, sf := range reflect.VisibleFields(t) {
		if !sf.IsExported() {
			continue
		}

		// ambiguous or shadowed promotions are not accessible by name
		if resolved, ok := t.FieldByName(sf.Name); !ok || !slices.Equal(resolved.Index, sf.Index) {
			continue
		}

		fields = append(fields, FieldInfo{
			Name:     sf.Name,
			Type:     sf.Type,
			Tag:      sf.Tag,
			Embedded: sf.Anonymous,
			Index:    sf.Index,
		})
	}

	return fields
}

func writable(t reflect.Type, f FieldInfo) bool {
	cur := t
	for _, idx := range f.Index[:len(f.Index)-1] {
		sf := cur.Field(idx)
		if sf.Type.Kind() == reflect.Pointer && !sf.IsExported() {
			return false
		}

		cur = indirect(sf.Type)
	}

	return true
}

func indirect(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	return t
}
