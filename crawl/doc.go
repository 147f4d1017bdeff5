// Package crawl implements the metadata mirror's request model and its
// retry/crawl state machine.
//
// Named API operations are represented as addressable Requests which a
// fixed catalog dispatches to storer functions. Failures of remote calls
// never unwind the crawl, they are captured into the run state and
// persisted as a pending list which the next run replays before its main
// pass. Fork discovery recursively expands the crawl frontier, checking
// the durable remote list of the local repository before registering a
// fork, which both breaks cycles in the fork graph and guarantees
// termination across process restarts.
//
// Execution is strictly sequential, a request is dispatched only after
// the previous one returned.
package crawl
