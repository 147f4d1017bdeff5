package crawl

import (
	"context"
	"errors"
	"os"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/utilitywarehouse/forge-mirror/forge"
)

func testConfig() Config {
	return Config{
		Branch:        "forge-mirror",
		Host:          "github.com",
		CommitMessage: "update mirrored metadata",
	}
}

func TestCrawler_Run_refusesOnDataBranch(t *testing.T) {
	gitDir := t.TempDir()
	crawler := NewCrawler(
		newFakeForge(),
		newFakeRepo(map[string]string{"origin": "https://github.com/acme/widgets.git"}),
		newFakeCommitRepo("forge-mirror"),
		NewStore(gitDir, testLogger()),
		PendingFile(gitDir),
		testConfig(),
		testLogger(),
	)

	if _, err := crawler.Run(context.Background()); err == nil {
		t.Error("expected error while data branch is checked out")
	}
}

func TestCrawler_Run_noTargets(t *testing.T) {
	gitDir := t.TempDir()
	// a wiki remote and an off-host remote are not crawl targets
	repo := newFakeRepo(map[string]string{
		"acme_widgets.wiki": "https://github.com/acme/widgets.wiki.git",
		"upstream":          "https://git.example.org/acme/widgets.git",
	})
	crawler := NewCrawler(
		newFakeForge(),
		repo,
		newFakeCommitRepo("master"),
		NewStore(gitDir, testLogger()),
		PendingFile(gitDir),
		testConfig(),
		testLogger(),
	)

	if _, err := crawler.Run(context.Background()); err == nil {
		t.Error("expected error when no remotes match the forge host")
	}
}

func TestCrawler_Run(t *testing.T) {
	ctx := context.Background()
	gitDir := t.TempDir()

	acme := Target{Owner: "acme", Name: "widgets"}

	forgeClient := newFakeForge()
	// watchers keeps failing, milestones fails for the first time
	forgeClient.errs["watchers acme/widgets"] = errors.New("boom")
	forgeClient.errs["milestones acme/widgets"] = errors.New("boom")

	repo := newFakeRepo(map[string]string{"origin": "https://github.com/acme/widgets.git"})
	commitRepo := newFakeCommitRepo("master")
	store := NewStore(gitDir, testLogger())
	pendingFile := PendingFile(gitDir)

	// the previous run left a failed watchers request behind
	if err := SavePending(pendingFile, []Request{NewRequest(OpWatchers, acme)}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	crawler := NewCrawler(forgeClient, repo, commitRepo, store, pendingFile, testConfig(), testLogger())

	outstanding, err := crawler.Run(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outstanding != 2 {
		t.Errorf("outstanding = %d, want 2", outstanding)
	}

	// the replayed watchers request must not be dispatched again in the
	// main pass
	if got := forgeClient.callCount("watchers acme/widgets"); got != 1 {
		t.Errorf("watchers dispatched %d times, want 1", got)
	}

	// fresh failures come before requests that failed their replay
	want := []Request{
		NewRequest(OpMilestones, acme),
		NewRequest(OpWatchers, acme),
	}
	if diff := cmp.Diff(want, LoadPending(pendingFile, testLogger())); diff != "" {
		t.Errorf("pending list mismatch (-want +got):\n%s", diff)
	}

	// data was committed via the orphan data branch and the previous
	// checkout was restored
	wantOps := []string{"checkout-orphan forge-mirror", "stage", "commit", "checkout-force master"}
	if diff := cmp.Diff(wantOps, commitRepo.ops); diff != "" {
		t.Errorf("commit workflow mismatch (-want +got):\n%s", diff)
	}
	if commitRepo.branch != "master" {
		t.Errorf("current branch = %s, want master", commitRepo.branch)
	}

	// the scratch dir is gone after the commit
	if _, err := os.Stat(store.Root()); !os.IsNotExist(err) {
		t.Error("scratch data dir still exists after run")
	}

	if len(repo.fetched) == 0 || repo.fetched[0] != "origin" {
		t.Errorf("origin was not fetched: %v", repo.fetched)
	}
}

func TestCrawler_Run_disabledIssuesNotOutstanding(t *testing.T) {
	ctx := context.Background()
	gitDir := t.TempDir()

	// issues are disabled on the target, one open pull request exists
	forgeClient := newFakeForge()
	forgeClient.errs["issues acme/widgets"] = disabledErr("Issues are disabled for this repo")
	forgeClient.prs["acme/widgets"] = []forge.PullRequest{{Number: 7, State: "open"}}

	repo := newFakeRepo(map[string]string{"origin": "https://github.com/acme/widgets.git"})
	commitRepo := newFakeCommitRepo("master")
	pendingFile := PendingFile(gitDir)

	crawler := NewCrawler(
		forgeClient, repo, commitRepo,
		NewStore(gitDir, testLogger()), pendingFile, testConfig(), testLogger(),
	)

	outstanding, err := crawler.Run(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outstanding != 0 {
		t.Errorf("outstanding = %d, want 0", outstanding)
	}

	if got := forgeClient.callCount("pullrequest acme/widgets#7"); got != 1 {
		t.Errorf("pull request #7 fetched %d times, want 1", got)
	}
	if _, err := os.Stat(pendingFile); !os.IsNotExist(err) {
		t.Error("disabled issues error ended up in the pending file")
	}
	if !slices.Contains(commitRepo.ops, "commit") {
		t.Errorf("no commit recorded: %v", commitRepo.ops)
	}
}

func TestCrawler_Run_caughtUp(t *testing.T) {
	ctx := context.Background()
	gitDir := t.TempDir()

	repo := newFakeRepo(map[string]string{"origin": "https://github.com/acme/widgets.git"})
	commitRepo := newFakeCommitRepo("master")
	pendingFile := PendingFile(gitDir)

	crawler := NewCrawler(
		newFakeForge(), repo, commitRepo,
		NewStore(gitDir, testLogger()), pendingFile, testConfig(), testLogger(),
	)

	outstanding, err := crawler.Run(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outstanding != 0 {
		t.Errorf("outstanding = %d, want 0", outstanding)
	}
	if _, err := os.Stat(pendingFile); !os.IsNotExist(err) {
		t.Error("pending file exists after fully successful run")
	}

	// second run commits via the now existing data branch
	crawler2 := NewCrawler(
		newFakeForge(), repo, commitRepo,
		NewStore(gitDir, testLogger()), pendingFile, testConfig(), testLogger(),
	)
	if _, err := crawler2.Run(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	joined := strings.Join(commitRepo.ops, ",")
	if !strings.Contains(joined, "checkout forge-mirror") {
		t.Errorf("second run did not check out the existing data branch: %v", commitRepo.ops)
	}
}
