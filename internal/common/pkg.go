package common

import (
	"path"
	"reflect"
)

// UnknownStr is printed for out-of-range enum values.
const UnknownStr = "unknown"

// pkgAlias returns the package alias (last element of path) for a given package path.
// Returns empty string if pkgPath is empty.
func pkgAlias(pkgPath string) string {
	if pkgPath == "" {
		return ""
	}

	return path.Base(pkgPath)
}

// TypeNames returns the names a named type can be referred to by: the short
// "alias.Name" form and the fully qualified "import/path.Name" form.
// Unnamed types only have their reflect string.
func TypeNames(t reflect.Type) []string {
	if t.Name() == "" || t.PkgPath() == "" {
		return []string{t.String()}
	}

	short := pkgAlias(t.PkgPath()) + "." + t.Name()
	full := t.PkgPath() + "." + t.Name()

	if short == full {
		return []string{short}
	}

	return []string{short, full}
}
