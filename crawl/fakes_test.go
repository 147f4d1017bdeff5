package crawl

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"net/http"

	"github.com/google/go-github/v68/github"

	"github.com/utilitywarehouse/forge-mirror/forge"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// disabledErr builds the error class the forge returns for a disabled
// feature
func disabledErr(msg string) error {
	return &github.ErrorResponse{
		Response: &http.Response{StatusCode: http.StatusGone},
		Message:  msg,
	}
}

// fakeForge implements forge.Client from fixture maps keyed by
// "<owner>/<name>". The errs map overrides any call, keyed by the call
// string ("<op> <owner>/<name>[#<num>]"), and every call is recorded.
type fakeForge struct {
	repos    map[string]*forge.Repo
	watchers map[string][]forge.User
	prs      map[string][]forge.PullRequest
	issues   map[string][]forge.Issue
	comments map[string][]forge.Comment
	forks    map[string][]forge.Fork

	errs  map[string]error
	calls []string
}

func newFakeForge() *fakeForge {
	return &fakeForge{
		repos:    map[string]*forge.Repo{},
		watchers: map[string][]forge.User{},
		prs:      map[string][]forge.PullRequest{},
		issues:   map[string][]forge.Issue{},
		comments: map[string][]forge.Comment{},
		forks:    map[string][]forge.Fork{},
		errs:     map[string]error{},
	}
}

func (f *fakeForge) call(op, owner, name string) (string, error) {
	key := fmt.Sprintf("%s %s/%s", op, owner, name)
	f.calls = append(f.calls, key)
	return owner + "/" + name, f.errs[key]
}

func (f *fakeForge) callNum(op, owner, name string, num int) (string, error) {
	key := fmt.Sprintf("%s %s/%s#%d", op, owner, name, num)
	f.calls = append(f.calls, key)
	return owner + "/" + name, f.errs[key]
}

func (f *fakeForge) Repo(ctx context.Context, owner, name string) (*forge.Repo, error) {
	key, err := f.call("repository", owner, name)
	if err != nil {
		return nil, err
	}
	if r, ok := f.repos[key]; ok {
		return r, nil
	}
	return &forge.Repo{Owner: owner, Name: name}, nil
}

func (f *fakeForge) Watchers(ctx context.Context, owner, name string) ([]forge.User, error) {
	key, err := f.call("watchers", owner, name)
	if err != nil {
		return nil, err
	}
	return f.watchers[key], nil
}

func (f *fakeForge) PullRequests(ctx context.Context, owner, name string) ([]forge.PullRequest, error) {
	key, err := f.call("pullrequests", owner, name)
	if err != nil {
		return nil, err
	}
	return f.prs[key], nil
}

func (f *fakeForge) PullRequest(ctx context.Context, owner, name string, number int) (*forge.PullRequest, error) {
	if _, err := f.callNum("pullrequest", owner, name, number); err != nil {
		return nil, err
	}
	return &forge.PullRequest{Number: number}, nil
}

func (f *fakeForge) Milestones(ctx context.Context, owner, name string) ([]forge.Milestone, error) {
	if _, err := f.call("milestones", owner, name); err != nil {
		return nil, err
	}
	return nil, nil
}

func (f *fakeForge) Issues(ctx context.Context, owner, name string) ([]forge.Issue, error) {
	key, err := f.call("issues", owner, name)
	if err != nil {
		return nil, err
	}
	return f.issues[key], nil
}

func (f *fakeForge) Issue(ctx context.Context, owner, name string, number int) (*forge.Issue, error) {
	if _, err := f.callNum("issue", owner, name, number); err != nil {
		return nil, err
	}
	return &forge.Issue{Number: number}, nil
}

func (f *fakeForge) IssueComments(ctx context.Context, owner, name string, number int) ([]forge.Comment, error) {
	key, err := f.callNum("issuecomments", owner, name, number)
	if err != nil {
		return nil, err
	}
	return f.comments[fmt.Sprintf("%s#%d", key, number)], nil
}

func (f *fakeForge) Forks(ctx context.Context, owner, name string) ([]forge.Fork, error) {
	key, err := f.call("forks", owner, name)
	if err != nil {
		return nil, err
	}
	return f.forks[key], nil
}

func (f *fakeForge) callCount(key string) int {
	count := 0
	for _, c := range f.calls {
		if c == key {
			count++
		}
	}
	return count
}

// fakeRepo implements LocalRepo on an in-memory remote map
type fakeRepo struct {
	remotes  map[string]string
	fetchErr map[string]error
	fetched  []string
	removed  []string
}

func newFakeRepo(remotes map[string]string) *fakeRepo {
	if remotes == nil {
		remotes = map[string]string{}
	}
	return &fakeRepo{remotes: remotes, fetchErr: map[string]error{}}
}

func (r *fakeRepo) Remotes(ctx context.Context) (map[string]string, error) {
	return maps.Clone(r.remotes), nil
}

func (r *fakeRepo) HasRemote(ctx context.Context, name string) (bool, error) {
	_, ok := r.remotes[name]
	return ok, nil
}

func (r *fakeRepo) AddRemote(ctx context.Context, name, url string, fetch bool) error {
	r.remotes[name] = url
	if fetch {
		return r.Fetch(ctx, name)
	}
	return nil
}

func (r *fakeRepo) RemoveRemote(ctx context.Context, name string) error {
	delete(r.remotes, name)
	r.removed = append(r.removed, name)
	return nil
}

func (r *fakeRepo) Fetch(ctx context.Context, name string) error {
	r.fetched = append(r.fetched, name)
	return r.fetchErr[name]
}

// fakeCommitRepo implements CommitRepo recording the workflow steps
type fakeCommitRepo struct {
	branch   string
	branches map[string]bool
	staged   bool
	ops      []string
}

func newFakeCommitRepo(branch string) *fakeCommitRepo {
	return &fakeCommitRepo{branch: branch, branches: map[string]bool{branch: true}}
}

func (r *fakeCommitRepo) CurrentBranch(ctx context.Context) (string, error) {
	return r.branch, nil
}

func (r *fakeCommitRepo) BranchExists(ctx context.Context, branch string) bool {
	return r.branches[branch]
}

func (r *fakeCommitRepo) Checkout(ctx context.Context, branch string) error {
	r.ops = append(r.ops, "checkout "+branch)
	r.branch = branch
	return nil
}

func (r *fakeCommitRepo) CheckoutForce(ctx context.Context, branch string) error {
	r.ops = append(r.ops, "checkout-force "+branch)
	r.branch = branch
	return nil
}

func (r *fakeCommitRepo) CheckoutOrphan(ctx context.Context, branch string) error {
	r.ops = append(r.ops, "checkout-orphan "+branch)
	r.branch = branch
	r.branches[branch] = true
	return nil
}

func (r *fakeCommitRepo) StageWorkTree(ctx context.Context, dir string) error {
	r.ops = append(r.ops, "stage")
	r.staged = true
	return nil
}

func (r *fakeCommitRepo) HasStagedChanges(ctx context.Context) bool {
	return r.staged
}

func (r *fakeCommitRepo) Commit(ctx context.Context, dir, msg string) error {
	r.ops = append(r.ops, "commit")
	r.staged = false
	return nil
}
