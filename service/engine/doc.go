// Package engine provides a minimal in-process task engine that honours the
// review signal contract: it publishes plan revisions through the bridge,
// parks tasks at the review checkpoint, consumes feedback and approval
// signals and carries out approved tasks via a caller-supplied executor.
// Hosts with a durable external workflow engine only need to implement the
// bridge contract instead.
package engine
