package crawl

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/utilitywarehouse/forge-mirror/forge"
)

// LocalRepo is the capability set of the local git repository the crawl
// depends on. The configured remotes are the crawler's durable state,
// they both define the crawl targets and break cycles in the fork graph.
type LocalRepo interface {
	Remotes(ctx context.Context) (map[string]string, error)
	HasRemote(ctx context.Context, name string) (bool, error)
	AddRemote(ctx context.Context, name, url string, fetch bool) error
	RemoveRemote(ctx context.Context, name string) error
	Fetch(ctx context.Context, name string) error
}

// Run carries the state of a single crawl pass. Storers receive it on
// dispatch, all collaborators and failure bookkeeping flow through it
// rather than through package state.
type Run struct {
	forge forge.Client
	repo  LocalRepo
	store *Store
	log   *slog.Logger

	// failed collects requests whose storer returned a non-ignorable
	// error during this run
	failed map[Request]struct{}
	// retried marks requests already replayed from the previous run's
	// pending list, they are never dispatched a second time within the
	// same run
	retried map[Request]struct{}
}

func newRun(forgeClient forge.Client, repo LocalRepo, store *Store, log *slog.Logger) *Run {
	return &Run{
		forge:   forgeClient,
		repo:    repo,
		store:   store,
		log:     log,
		failed:  map[Request]struct{}{},
		retried: map[Request]struct{}{},
	}
}

// RunRequest dispatches a single request through the catalog. Remote
// failures never propagate, they are recorded on the run for the pending
// list, except for ignorable errors (the forge reports the feature as
// disabled) which are dropped. A request marked as already retried this
// run is skipped.
func (r *Run) RunRequest(ctx context.Context, req Request) {
	if _, ok := r.retried[req]; ok {
		r.log.Debug("skipping request, already retried this run", "request", req)
		return
	}

	entry := lookup(req.Op)
	if entry.numbered != req.Numbered {
		panic(fmt.Sprintf("request shape mismatch for operation %q", req.Op))
	}

	r.log.Debug("running request", "request", req)

	start := time.Now()
	err := entry.store(ctx, r, req)
	switch {
	case err == nil:
		recordRequest(string(req.Op), outcomeSuccess, start)
	case forge.IsDisabled(err):
		r.log.Debug("feature disabled on forge, dropping request", "request", req, "err", err)
		recordRequest(string(req.Op), outcomeIgnored, start)
	default:
		r.log.Error("request failed", "request", req, "err", err)
		r.failed[req] = struct{}{}
		recordRequest(string(req.Op), outcomeFailure, start)
	}
}

// GatherMetaData issues every top-level catalog operation against the
// target, in catalog order
func (r *Run) GatherMetaData(ctx context.Context, target Target) {
	r.log.Info("gathering metadata", "target", target)
	for _, op := range topLevelOps() {
		r.RunRequest(ctx, NewRequest(op, target))
	}
}

// failedRequests returns the requests which failed so far, sorted
func (r *Run) failedRequests() []Request {
	reqs := make([]Request, 0, len(r.failed))
	for req := range r.failed {
		reqs = append(reqs, req)
	}
	slices.SortFunc(reqs, Request.Compare)
	return reqs
}
