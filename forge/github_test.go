package forge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-github/v68/github"
)

func TestIsDisabled(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain-error", errors.New("connection reset"), false},
		{"gone", &github.ErrorResponse{
			Response: &http.Response{StatusCode: http.StatusGone},
			Message:  "Issues are disabled for this repo",
		}, true},
		{"disabled-message", &github.ErrorResponse{
			Response: &http.Response{StatusCode: http.StatusForbidden},
			Message:  "Issues are disabled for this repo",
		}, true},
		{"not-found", &github.ErrorResponse{
			Response: &http.Response{StatusCode: http.StatusNotFound},
			Message:  "Not Found",
		}, false},
		{"wrapped", fmt.Errorf("fetch issues: %w", &github.ErrorResponse{
			Response: &http.Response{StatusCode: http.StatusGone},
			Message:  "Issues are disabled for this repo",
		}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDisabled(tt.err); got != tt.want {
				t.Errorf("IsDisabled() = %v, want %v", got, tt.want)
			}
		})
	}
}

// newTestClient returns a GitHub client pointed at a test server
func newTestClient(t *testing.T, mux *http.ServeMux) *GitHub {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client, err := NewGitHub(srv.URL+"/api/v3", "test-token", nil, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return client
}

func TestGitHub_Repo(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/acme/widgets", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"name": "widgets",
			"owner": {"login": "acme"},
			"description": "widget factory",
			"default_branch": "main",
			"fork": false,
			"has_wiki": true,
			"has_issues": false,
			"clone_url": "https://github.com/acme/widgets.git"
		}`)
	})

	client := newTestClient(t, mux)

	got, err := client.Repo(context.Background(), "acme", "widgets")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := &Repo{
		Owner:         "acme",
		Name:          "widgets",
		Description:   "widget factory",
		DefaultBranch: "main",
		HasWiki:       true,
		CloneURL:      "https://github.com/acme/widgets.git",
		WikiURL:       "https://github.com/acme/widgets.wiki.git",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Repo() mismatch (-want +got):\n%s", diff)
	}
}

func TestGitHub_Watchers_paginatedAndSorted(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/acme/widgets/subscribers", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `[{"login": "alice", "id": 1}]`)
			return
		}
		w.Header().Set("Link",
			fmt.Sprintf(`<http://%s/api/v3/repos/acme/widgets/subscribers?page=2>; rel="next"`, r.Host))
		fmt.Fprint(w, `[{"login": "zed", "id": 3}, {"login": "bob", "id": 2}]`)
	})

	client := newTestClient(t, mux)

	got, err := client.Watchers(context.Background(), "acme", "widgets")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// all pages collected, sorted by login for reproducible output
	want := []User{
		{Login: "alice", ID: 1},
		{Login: "bob", ID: 2},
		{Login: "zed", ID: 3},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Watchers() mismatch (-want +got):\n%s", diff)
	}
}

func TestGitHub_Issues_skipsPullRequests(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/acme/widgets/issues", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"number": 3, "title": "crash on load", "state": "open"},
			{"number": 7, "title": "a pr", "state": "open",
				"pull_request": {"url": "https://api.github.com/repos/acme/widgets/pulls/7"}},
			{"number": 1, "title": "feature request", "state": "closed"}
		]`)
	})

	client := newTestClient(t, mux)

	got, err := client.Issues(context.Background(), "acme", "widgets")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []Issue{
		{Number: 1, Title: "feature request", State: "closed"},
		{Number: 3, Title: "crash on load", State: "open"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Issues() mismatch (-want +got):\n%s", diff)
	}
}

func TestGitHub_Issues_disabledError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/acme/widgets/issues", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
		fmt.Fprint(w, `{"message": "Issues are disabled for this repo"}`)
	})

	client := newTestClient(t, mux)

	_, err := client.Issues(context.Background(), "acme", "widgets")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !IsDisabled(err) {
		t.Errorf("expected disabled classification for err: %v", err)
	}
}
