// Package query defines the deferred query contract that projections are
// applied to, plus an in-memory implementation.
//
// A Queryable records Where, OrderBy, Skip, Take and Select operations as
// expr lambdas. Nothing runs until Execute or Count, so a backend can
// translate the whole chain at once (see package sqlite).
package query
