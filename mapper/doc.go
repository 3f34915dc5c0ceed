// Package mapper is a registry of projection rules between Go types.
//
// A rule describes how to build a destination struct from a source value
// as an expr.Lambda, never as executed code, so the whole projection can be
// handed to a query backend for translation. Rules are built by convention
// (same-named members, one level of flattening such as OrgName from
// Org.Name) and extended with custom projections, base rules of embedded
// types, context-dependent projections and ignored members.
//
// Rules may reference each other, in any registration order. A resolution
// expands those references until none remain:
//
//	reg := mapper.NewRegistry(mapper.DefaultConfig())
//	_, _ = mapper.CreateMap[Order, OrderDTO](reg)
//	_, _ = mapper.CreateMap[Line, LineDTO](reg)
//	proj, err := mapper.GetMap[Order, OrderDTO](reg, nil)
//
// Materializer applies a resolved projection to a query.Queryable and runs
// post-materialization hooks on the results.
package mapper
