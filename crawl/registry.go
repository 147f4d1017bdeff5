package crawl

import (
	"context"
	"fmt"
)

// storer fetches the data a request addresses and writes it to the
// scratch store. Storers may issue further requests through the run.
type storer func(ctx context.Context, run *Run, req Request) error

type catalogEntry struct {
	op       Op
	topLevel bool // issued against every target by GatherMetaData
	numbered bool // request must carry a record number
	store    storer
}

// catalog is the closed set of operations the crawler knows. The order
// is significant: forks is declared last so a target's own metadata is
// fully requested before the crawl expands into its forks.
var catalog []catalogEntry

// catalog is assigned in init rather than in its declaration: the
// storers call back into RunRequest which consults the catalog, and a
// package-level initializer referencing them is an initialization cycle.
func init() {
	catalog = []catalogEntry{
		{OpRepo, true, false, storeRepo},
		{OpWatchers, true, false, storeWatchers},
		{OpPullRequests, true, false, storePullRequests},
		{OpPullRequest, false, true, storePullRequest},
		{OpMilestones, true, false, storeMilestones},
		{OpIssues, true, false, storeIssues},
		{OpIssue, false, true, storeIssue},
		{OpForks, true, false, storeForks},
	}
}

// lookup returns the catalog entry of the given operation. An unknown
// operation is a programming error, requests are only constructed from
// the Op constants and the persisted pending list is validated on load.
func lookup(op Op) catalogEntry {
	for _, e := range catalog {
		if e.op == op {
			return e
		}
	}
	panic(fmt.Sprintf("unknown catalog operation %q", op))
}

// knownOp reports whether op is part of the catalog
func knownOp(op Op) bool {
	for _, e := range catalog {
		if e.op == op {
			return true
		}
	}
	return false
}

// topLevelOps returns the operations issued against every target, in
// catalog order
func topLevelOps() []Op {
	var ops []Op
	for _, e := range catalog {
		if e.topLevel {
			ops = append(ops, e.op)
		}
	}
	return ops
}
