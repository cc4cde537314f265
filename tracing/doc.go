// Package tracing integrates OpenTelemetry with the review protocol.  The
// instrumentation is kept in a separate package so that applications which do
// not require tracing can exclude it from their wiring; without Init all
// spans are no-ops.
package tracing
