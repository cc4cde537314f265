// Package bridge delivers human review actions into the owning workflow
// instance as signals and receives the workflow's plan-ready callbacks.  Its
// AwaitNextPublish rendezvous is what makes the feedback round-trip look
// synchronous to HTTP callers while the plan recomputation stays
// asynchronous.
package bridge
