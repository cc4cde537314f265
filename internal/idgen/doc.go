// Package idgen generates opaque string identifiers for tasks and signals.
// Callers must not parse them or depend on their format; the generator is a
// package variable precisely so tests can substitute a deterministic one.
package idgen
