package sqlite

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"
)

var (
	timeType  = reflect.TypeFor[time.Time]()
	bytesType = reflect.TypeFor[[]byte]()
)

// column is one stored leaf of a struct type.
type column struct {
	name  string
	index []int
	typ   reflect.Type
}

func (c column) decl() string {
	sqlType, _ := columnType(c.typ)

	decl := quote(c.name) + " " + sqlType
	if c.typ.Kind() != reflect.Pointer && c.typ != bytesType {
		decl += " NOT NULL"
	}

	return decl
}

// schema lists the columns of a struct type in field order.
type schema struct {
	typ     reflect.Type
	columns []column
	byIndex map[string]int
}

func (s *schema) lookup(index []int) (column, bool) {
	i, ok := s.byIndex[indexKey(index)]
	if !ok {
		return column{}, false
	}

	return s.columns[i], true
}

var schemas sync.Map // reflect.Type -> *schema

func schemaOf(t reflect.Type) (*schema, error) {
	if cached, ok := schemas.Load(t); ok {
		return cached.(*schema), nil
	}

	if t.Kind() != reflect.Struct || t == timeType {
		return nil, fmt.Errorf("%w: rows must be structs, got %s", ErrUntranslatable, t)
	}

	s := &schema{typ: t, byIndex: map[string]int{}}
	if err := s.collect(t, nil, ""); err != nil {
		return nil, err
	}

	if len(s.columns) == 0 {
		return nil, fmt.Errorf("%w: %s has no columns", ErrUntranslatable, t)
	}

	actual, _ := schemas.LoadOrStore(t, s)

	return actual.(*schema), nil
}

func (s *schema) collect(t reflect.Type, index []int, prefix string) error {
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}

		segment := f.Name
		if tag, ok := f.Tag.Lookup("db"); ok {
			if tag == "-" {
				continue
			}

			segment = tag
		}

		idx := append(append([]int(nil), index...), i)

		if _, ok := columnType(f.Type); ok {
			s.byIndex[indexKey(idx)] = len(s.columns)
			s.columns = append(s.columns, column{name: prefix + segment, index: idx, typ: f.Type})

			continue
		}

		if f.Type.Kind() != reflect.Struct {
			return fmt.Errorf("%w: no column type for %s.%s of type %s", ErrUntranslatable, s.typ, f.Name, f.Type)
		}

		// embedded structs keep their fields at the outer level
		nested := prefix + segment + "_"
		if f.Anonymous {
			nested = prefix
		}

		if err := s.collect(f.Type, idx, nested); err != nil {
			return err
		}
	}

	return nil
}

// columnType returns the declared SQLite type of a leaf Go type.
func columnType(t reflect.Type) (string, bool) {
	if t == bytesType {
		return "BLOB", true
	}

	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t == timeType {
		return "TIMESTAMP", true
	}

	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "INTEGER", true
	case reflect.Float32, reflect.Float64:
		return "REAL", true
	case reflect.String:
		return "TEXT", true
	default:
		return "", false
	}
}

func indexKey(index []int) string {
	return fmt.Sprint(index)
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
