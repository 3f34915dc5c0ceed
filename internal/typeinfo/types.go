package typeinfo

import (
	"reflect"
	"strings"

	"exprmap/internal/common"
)

// TypeKind classifies a Go type for binding dispatch.
type TypeKind int

const (
	TypeKindUnknown   TypeKind = iota
	TypeKindPrimitive          // basic kinds, named enums, []byte, time.Time, time.Duration
	TypeKindNullable           // pointer to another type
	TypeKindSequence           // slice or array of another type
	TypeKindStruct             // struct type that is not a primitive
	TypeKindOpaque             // maps, funcs, channels, interfaces
)

// String returns a human-readable representation of the TypeKind.
func (k TypeKind) String() string {
	switch k {
	case TypeKindPrimitive:
		return "primitive"
	case TypeKindNullable:
		return "nullable"
	case TypeKindSequence:
		return "sequence"
	case TypeKindStruct:
		return "struct"
	case TypeKindOpaque:
		return "opaque"
	default:
		return common.UnknownStr
	}
}

// TypeInfo is the reified descriptor of a Go type, computed once per type.
type TypeInfo struct {
	Type reflect.Type
	Kind TypeKind
	// Elem is the pointee of a nullable or the element of a sequence.
	Elem reflect.Type
	// Readable lists exported fields in declaration order, promoted fields
	// included. Structs only.
	Readable []FieldInfo
	// Writable lists the readable fields that can be set on a fresh value.
	Writable []FieldInfo
	// Paths lists the reachable source paths keyed by flattened name.
	Paths []PathInfo

	byName map[string]int
}

// Field returns the readable field called name.
func (t *TypeInfo) Field(name string) (FieldInfo, bool) {
	i, ok := t.byName[name]
	if !ok {
		return FieldInfo{}, false
	}

	return t.Readable[i], true
}

// Path returns the reachable source path called name.
func (t *TypeInfo) Path(name string) (PathInfo, bool) {
	for _, p := range t.Paths {
		if p.Name == name {
			return p, true
		}
	}

	return PathInfo{}, false
}

// FieldInfo describes a struct field.
type FieldInfo struct {
	Name     string            // Go field name
	Type     reflect.Type      // Field type
	Tag      reflect.StructTag // Raw struct tag
	Embedded bool              // Whether the field is embedded (anonymous)
	Index    []int             // Index path, longer than one for promoted fields
}

// Column returns the db tag name if present, otherwise the field name.
func (f *FieldInfo) Column() string {
	if tag := f.Tag.Get("db"); tag != "" && tag != "-" {
		name, _, _ := strings.Cut(tag, ",")
		return name
	}

	return f.Name
}

// PathInfo is a source member reachable by convention: a depth-0 field or a
// field of a depth-0 struct member, named by concatenation ("OrgName").
type PathInfo struct {
	Name   string
	Fields []string
	Type   reflect.Type
}
