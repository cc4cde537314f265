// Package protocol exposes the review state machine over HTTP.  GET serves
// poll-friendly snapshots with an ETag carrying the record version; POST
// mutates via If-Match optimistic concurrency, with the feedback action
// blocking until the workflow publishes the next plan revision.
package protocol
