package forge

import "time"

// User represents a forge account
type User struct {
	Login string `yaml:"login"`
	ID    int64  `yaml:"id,omitempty"`
	URL   string `yaml:"url,omitempty"`
}

// Repo is the repository record of a mirrored target
type Repo struct {
	Owner         string    `yaml:"owner"`
	Name          string    `yaml:"name"`
	Description   string    `yaml:"description,omitempty"`
	Homepage      string    `yaml:"homepage,omitempty"`
	DefaultBranch string    `yaml:"default_branch,omitempty"`
	Private       bool      `yaml:"private"`
	Fork          bool      `yaml:"fork"`
	HasWiki       bool      `yaml:"has_wiki"`
	HasIssues     bool      `yaml:"has_issues"`
	Parent        string    `yaml:"parent,omitempty"` // full name of the parent for forks
	CloneURL      string    `yaml:"clone_url,omitempty"`
	WikiURL       string    `yaml:"wiki_url,omitempty"`
	CreatedAt     time.Time `yaml:"created_at,omitempty"`
	PushedAt      time.Time `yaml:"pushed_at,omitempty"`
}

// Ref is one side of a pull request
type Ref struct {
	Ref  string `yaml:"ref"`
	SHA  string `yaml:"sha,omitempty"`
	Repo string `yaml:"repo,omitempty"` // full name, may differ from base for cross-repo PRs
}

// PullRequest is a single pull request record
type PullRequest struct {
	Number    int       `yaml:"number"`
	Title     string    `yaml:"title"`
	State     string    `yaml:"state"`
	User      User      `yaml:"user"`
	Body      string    `yaml:"body,omitempty"`
	Head      Ref       `yaml:"head"`
	Base      Ref       `yaml:"base"`
	CreatedAt time.Time `yaml:"created_at,omitempty"`
	UpdatedAt time.Time `yaml:"updated_at,omitempty"`
	MergedAt  time.Time `yaml:"merged_at,omitempty"`
}

// Issue is a single issue record
type Issue struct {
	Number    int       `yaml:"number"`
	Title     string    `yaml:"title"`
	State     string    `yaml:"state"`
	User      User      `yaml:"user"`
	Body      string    `yaml:"body,omitempty"`
	Labels    []string  `yaml:"labels,omitempty"`
	Milestone string    `yaml:"milestone,omitempty"`
	Comments  int       `yaml:"comments"`
	CreatedAt time.Time `yaml:"created_at,omitempty"`
	UpdatedAt time.Time `yaml:"updated_at,omitempty"`
}

// Comment is a single issue comment record
type Comment struct {
	ID        int64     `yaml:"id"`
	User      User      `yaml:"user"`
	Body      string    `yaml:"body,omitempty"`
	CreatedAt time.Time `yaml:"created_at,omitempty"`
	UpdatedAt time.Time `yaml:"updated_at,omitempty"`
}

// Milestone is a single milestone record
type Milestone struct {
	Number      int       `yaml:"number"`
	Title       string    `yaml:"title"`
	State       string    `yaml:"state"`
	Description string    `yaml:"description,omitempty"`
	DueOn       time.Time `yaml:"due_on,omitempty"`
}

// Fork identifies a fork of a mirrored target
type Fork struct {
	Owner    string `yaml:"owner"`
	Name     string `yaml:"name"`
	CloneURL string `yaml:"clone_url"`
}
