// Package store defines the authoritative review state store.  It records
// per-task review status, version and round history, enforces the
// none -> reviewing -> approved lifecycle and the optimistic-concurrency
// version check, and serializes mutations per task id.
package store
