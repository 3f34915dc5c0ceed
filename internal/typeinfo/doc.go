// Package typeinfo captures reflection metadata once per Go type: its
// classification (primitive, nullable, sequence, struct), its readable and
// writable fields, and the source paths reachable by naming convention.
package typeinfo
