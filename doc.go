// Package steer provides a human-in-the-loop plan review layer for
// long-running autonomous tasks.
//
// A workflow reaching its review checkpoint publishes a plan; a human
// iterates on it over any number of feedback rounds, each guarded by
// optimistic concurrency (version / ETag), and finally approves it, which
// releases the workflow to execute.  The engine pieces are pluggable service
// layers:
//
//   - store: authoritative per-task review state (status, version, rounds)
//   - bridge: signal delivery into the workflow plus the publish rendezvous
//   - protocol: the HTTP polling/mutation surface
//   - engine: an in-process workflow stand-in driven by a Planner/Executor
//
// Steer is designed to be embedded in host applications.  End-users
// typically interact via the high-level Service façade exposed by the root
// package:
//
//	srv := steer.New(steer.WithPlanner(myPlanner))
//	_ = srv.Start(ctx)
//	defer srv.Shutdown(ctx)
//	http.ListenAndServe(":8080", srv.Handler())
//
// For more details see the individual sub-packages.
package steer
