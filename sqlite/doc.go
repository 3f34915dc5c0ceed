// Package sqlite is a query.Queryable backend over SQLite.
//
// Each table stores one Go struct type. Leaf fields become columns and
// nested structs are flattened into Parent_Child columns; a `db` tag renames
// a segment and `db:"-"` skips the field. Pointer leaves are nullable.
//
// Lambdas recorded on a query are inlined and translated to one SELECT.
// Projections are flattened into aliased leaf columns, and Where or OrderBy
// calls made after Select are rewritten onto the source columns. Every
// constant is passed as a parameter. Expressions without an SQL rendering
// make Execute and Count fail with ErrUntranslatable.
package sqlite
