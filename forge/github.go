package forge

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/google/go-github/v68/github"
)

const (
	defaultEndpoint = "https://api.github.com"
	defaultPageSize = 100
)

// TokenSource provides a bearer token for API calls. It is satisfied by
// auth.AppTokenSource so the client can run with short lived app tokens.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// GitHub implements Client on the GitHub REST API
type GitHub struct {
	client   *github.Client
	pageSize int
}

// NewGitHub returns a Client for the GitHub API at the given endpoint
// (empty for the hosted forge). Exactly one of token or src should be set,
// both empty gives an unauthenticated client.
func NewGitHub(endpoint, token string, src TokenSource, pageSize int) (*GitHub, error) {
	hc := &http.Client{Timeout: 30 * time.Second}
	if src != nil {
		hc.Transport = &tokenTransport{src: src, base: http.DefaultTransport}
	}

	client := github.NewClient(hc)
	if token != "" && src == nil {
		client = client.WithAuthToken(token)
	}

	if endpoint != "" && endpoint != defaultEndpoint {
		var err error
		client, err = client.WithEnterpriseURLs(endpoint, endpoint)
		if err != nil {
			return nil, fmt.Errorf("invalid api endpoint '%s' err:%w", endpoint, err)
		}
	}

	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	return &GitHub{client: client, pageSize: pageSize}, nil
}

// tokenTransport injects a fresh bearer token on every request
type tokenTransport struct {
	src  TokenSource
	base http.RoundTripper
}

func (t *tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.src.Token(req.Context())
	if err != nil {
		return nil, fmt.Errorf("unable to get app token err:%w", err)
	}
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+token)
	return t.base.RoundTrip(req)
}

// IsDisabled classifies the ignorable remote error class: the forge
// explicitly reports a feature (issues, forking...) as disabled for the
// target repository. Such failures are never recorded or retried.
func IsDisabled(err error) bool {
	var errResp *github.ErrorResponse
	if !errors.As(err, &errResp) {
		return false
	}
	if errResp.Response != nil && errResp.Response.StatusCode == http.StatusGone {
		return true
	}
	return strings.Contains(strings.ToLower(errResp.Message), "disabled")
}

func (g *GitHub) Repo(ctx context.Context, owner, name string) (*Repo, error) {
	rec, _, err := g.client.Repositories.Get(ctx, owner, name)
	if err != nil {
		return nil, err
	}

	repo := &Repo{
		Owner:         rec.GetOwner().GetLogin(),
		Name:          rec.GetName(),
		Description:   rec.GetDescription(),
		Homepage:      rec.GetHomepage(),
		DefaultBranch: rec.GetDefaultBranch(),
		Private:       rec.GetPrivate(),
		Fork:          rec.GetFork(),
		HasWiki:       rec.GetHasWiki(),
		HasIssues:     rec.GetHasIssues(),
		Parent:        rec.GetParent().GetFullName(),
		CloneURL:      rec.GetCloneURL(),
		CreatedAt:     rec.GetCreatedAt().Time,
		PushedAt:      rec.GetPushedAt().Time,
	}
	if repo.HasWiki && repo.CloneURL != "" {
		repo.WikiURL = strings.TrimSuffix(repo.CloneURL, ".git") + ".wiki.git"
	}
	return repo, nil
}

func (g *GitHub) Watchers(ctx context.Context, owner, name string) ([]User, error) {
	var watchers []User

	opt := &github.ListOptions{PerPage: g.pageSize}
	for {
		users, resp, err := g.client.Activity.ListWatchers(ctx, owner, name, opt)
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			watchers = append(watchers, newUser(u))
		}
		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}

	slices.SortFunc(watchers, func(a, b User) int { return cmp.Compare(a.Login, b.Login) })
	return watchers, nil
}

func (g *GitHub) PullRequests(ctx context.Context, owner, name string) ([]PullRequest, error) {
	var prs []PullRequest

	opt := &github.PullRequestListOptions{
		State:       "all",
		ListOptions: github.ListOptions{PerPage: g.pageSize},
	}
	for {
		page, resp, err := g.client.PullRequests.List(ctx, owner, name, opt)
		if err != nil {
			return nil, err
		}
		for _, pr := range page {
			prs = append(prs, newPullRequest(pr))
		}
		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}

	slices.SortFunc(prs, func(a, b PullRequest) int { return cmp.Compare(a.Number, b.Number) })
	return prs, nil
}

func (g *GitHub) PullRequest(ctx context.Context, owner, name string, number int) (*PullRequest, error) {
	rec, _, err := g.client.PullRequests.Get(ctx, owner, name, number)
	if err != nil {
		return nil, err
	}
	pr := newPullRequest(rec)
	return &pr, nil
}

func (g *GitHub) Milestones(ctx context.Context, owner, name string) ([]Milestone, error) {
	var milestones []Milestone

	opt := &github.MilestoneListOptions{
		State:       "all",
		ListOptions: github.ListOptions{PerPage: g.pageSize},
	}
	for {
		page, resp, err := g.client.Issues.ListMilestones(ctx, owner, name, opt)
		if err != nil {
			return nil, err
		}
		for _, m := range page {
			milestones = append(milestones, Milestone{
				Number:      m.GetNumber(),
				Title:       m.GetTitle(),
				State:       m.GetState(),
				Description: m.GetDescription(),
				DueOn:       m.GetDueOn().Time,
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}

	slices.SortFunc(milestones, func(a, b Milestone) int { return cmp.Compare(a.Number, b.Number) })
	return milestones, nil
}

func (g *GitHub) Issues(ctx context.Context, owner, name string) ([]Issue, error) {
	var issues []Issue

	opt := &github.IssueListByRepoOptions{
		State:       "all",
		ListOptions: github.ListOptions{PerPage: g.pageSize},
	}
	for {
		page, resp, err := g.client.Issues.ListByRepo(ctx, owner, name, opt)
		if err != nil {
			return nil, err
		}
		for _, issue := range page {
			// the issues list of the forge includes pull requests
			if issue.IsPullRequest() {
				continue
			}
			issues = append(issues, newIssue(issue))
		}
		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}

	slices.SortFunc(issues, func(a, b Issue) int { return cmp.Compare(a.Number, b.Number) })
	return issues, nil
}

func (g *GitHub) Issue(ctx context.Context, owner, name string, number int) (*Issue, error) {
	rec, _, err := g.client.Issues.Get(ctx, owner, name, number)
	if err != nil {
		return nil, err
	}
	issue := newIssue(rec)
	return &issue, nil
}

func (g *GitHub) IssueComments(ctx context.Context, owner, name string, number int) ([]Comment, error) {
	var comments []Comment

	opt := &github.IssueListCommentsOptions{
		ListOptions: github.ListOptions{PerPage: g.pageSize},
	}
	for {
		page, resp, err := g.client.Issues.ListComments(ctx, owner, name, number, opt)
		if err != nil {
			return nil, err
		}
		for _, c := range page {
			comments = append(comments, Comment{
				ID:        c.GetID(),
				User:      newUser(c.GetUser()),
				Body:      c.GetBody(),
				CreatedAt: c.GetCreatedAt().Time,
				UpdatedAt: c.GetUpdatedAt().Time,
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}

	slices.SortFunc(comments, func(a, b Comment) int { return cmp.Compare(a.ID, b.ID) })
	return comments, nil
}

func (g *GitHub) Forks(ctx context.Context, owner, name string) ([]Fork, error) {
	var forks []Fork

	opt := &github.RepositoryListForksOptions{
		ListOptions: github.ListOptions{PerPage: g.pageSize},
	}
	for {
		page, resp, err := g.client.Repositories.ListForks(ctx, owner, name, opt)
		if err != nil {
			return nil, err
		}
		for _, f := range page {
			forks = append(forks, Fork{
				Owner:    f.GetOwner().GetLogin(),
				Name:     f.GetName(),
				CloneURL: f.GetCloneURL(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}

	slices.SortFunc(forks, func(a, b Fork) int { return cmp.Compare(a.Owner+"/"+a.Name, b.Owner+"/"+b.Name) })
	return forks, nil
}

func newUser(u *github.User) User {
	return User{
		Login: u.GetLogin(),
		ID:    u.GetID(),
		URL:   u.GetHTMLURL(),
	}
}

func newPullRequest(pr *github.PullRequest) PullRequest {
	return PullRequest{
		Number:    pr.GetNumber(),
		Title:     pr.GetTitle(),
		State:     pr.GetState(),
		User:      newUser(pr.GetUser()),
		Body:      pr.GetBody(),
		Head:      newRef(pr.GetHead()),
		Base:      newRef(pr.GetBase()),
		CreatedAt: pr.GetCreatedAt().Time,
		UpdatedAt: pr.GetUpdatedAt().Time,
		MergedAt:  pr.GetMergedAt().Time,
	}
}

func newRef(ref *github.PullRequestBranch) Ref {
	return Ref{
		Ref:  ref.GetRef(),
		SHA:  ref.GetSHA(),
		Repo: ref.GetRepo().GetFullName(),
	}
}

func newIssue(issue *github.Issue) Issue {
	var labels []string
	for _, l := range issue.Labels {
		labels = append(labels, l.GetName())
	}
	return Issue{
		Number:    issue.GetNumber(),
		Title:     issue.GetTitle(),
		State:     issue.GetState(),
		User:      newUser(issue.GetUser()),
		Body:      issue.GetBody(),
		Labels:    labels,
		Milestone: issue.GetMilestone().GetTitle(),
		Comments:  issue.GetComments(),
		CreatedAt: issue.GetCreatedAt().Time,
		UpdatedAt: issue.GetUpdatedAt().Time,
	}
}

