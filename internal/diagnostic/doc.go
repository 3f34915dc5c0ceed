// Package diagnostic provides structured warnings and errors collected while
// projections are built and profiles are checked.
//
// Key capabilities:
//   - Unbound destination member warnings
//   - Ignored member notes
//   - Profile validation errors
package diagnostic
