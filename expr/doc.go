// Package expr provides the projection AST shared by the mapping registry and
// the query backends.
//
// A projection is a *Lambda whose body is usually an *Init, the AST form of a
// composite literal:
//
//	p => catalog.PersonDTO{Age: p.Age, Name: p.Name}
//
// The AST is never compiled to a Go function by the registry. Backends either
// evaluate it (Eval, used by the in-memory backend) or translate it into their
// own plan (the sqlite backend renders SQL).
//
// # Node variants
//
//   - Param, Const: leaves
//   - Member: field access, null-propagating through nil pointers
//   - Unary, Binary, Cond, Coalesce, Ref: scalar operators
//   - Call: pure function call, recognised by name in translators
//   - Init: struct construction from member bindings
//   - Lambda, Invoke: abstraction and application
//   - Select: per-element projection of a slice or array
//   - MapRef: pending reference to another mapping rule
//
// Node is sealed (marker method), so backends can switch over every variant.
// MapRef only exists while a rule is being built; the registry rewrites every
// MapRef away before handing a projection out, and evaluating one fails with
// ErrUnexpandedReference.
//
// Constructors panic on programmer errors (unknown fields, operand type
// mismatch), the same way reflect does.
package expr
