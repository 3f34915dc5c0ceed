// Package match finds the registered name closest to a misspelled one, for
// "did you mean" hints on unknown members and pairs.
package match
