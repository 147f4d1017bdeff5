package forge

import "context"

// Client is the capability set of named fetch operations the crawler
// depends on, one per catalog operation. Implementations must return
// sorted, fully paginated results.
type Client interface {
	// Repo returns the repository record of the target
	Repo(ctx context.Context, owner, name string) (*Repo, error)
	// Watchers returns all accounts watching the target
	Watchers(ctx context.Context, owner, name string) ([]User, error)
	// PullRequests returns all pull requests of the target in any state
	PullRequests(ctx context.Context, owner, name string) ([]PullRequest, error)
	// PullRequest returns a single pull request by number
	PullRequest(ctx context.Context, owner, name string, number int) (*PullRequest, error)
	// Milestones returns all milestones of the target in any state
	Milestones(ctx context.Context, owner, name string) ([]Milestone, error)
	// Issues returns all issues of the target in any state, excluding
	// pull requests
	Issues(ctx context.Context, owner, name string) ([]Issue, error)
	// Issue returns a single issue by number
	Issue(ctx context.Context, owner, name string, number int) (*Issue, error)
	// IssueComments returns all comments of the given issue
	IssueComments(ctx context.Context, owner, name string, number int) ([]Comment, error)
	// Forks returns all direct forks of the target
	Forks(ctx context.Context, owner, name string) ([]Fork, error)
}
