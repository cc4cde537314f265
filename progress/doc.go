// Package progress provides a lightweight tracker that keeps aggregated
// review counters (tasks submitted, reviewing, approved, …) for a running
// engine.  Components update the counters atomically via the Delta helper
// without requiring a global registry.
package progress
