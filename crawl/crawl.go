package crawl

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/utilitywarehouse/forge-mirror/forge"
	"github.com/utilitywarehouse/forge-mirror/giturl"
)

// CommitRepo is the capability set of the local repository the commit
// workflow depends on
type CommitRepo interface {
	CurrentBranch(ctx context.Context) (string, error)
	BranchExists(ctx context.Context, branch string) bool
	Checkout(ctx context.Context, branch string) error
	CheckoutForce(ctx context.Context, branch string) error
	CheckoutOrphan(ctx context.Context, branch string) error
	StageWorkTree(ctx context.Context, dir string) error
	HasStagedChanges(ctx context.Context) bool
	Commit(ctx context.Context, dir, msg string) error
}

// Config holds the crawl parameters
type Config struct {
	// Branch is the data branch run results are committed to
	Branch string
	// Host is the forge host remotes must point at to be crawled
	Host string
	// CommitMessage is the message of data branch commits
	CommitMessage string
}

// Crawler mirrors forge metadata of every repository configured as a
// remote of the local repository
type Crawler struct {
	forge       forge.Client
	repo        LocalRepo
	commitRepo  CommitRepo
	store       *Store
	pendingFile string
	conf        Config
	log         *slog.Logger
}

// NewCrawler returns a crawler operating on the given local repository.
// A *repository.Repo satisfies both repository interfaces.
func NewCrawler(
	forgeClient forge.Client,
	repo LocalRepo,
	commitRepo CommitRepo,
	store *Store,
	pendingFile string,
	conf Config,
	log *slog.Logger,
) *Crawler {
	if log == nil {
		log = slog.Default()
	}
	return &Crawler{
		forge:       forgeClient,
		repo:        repo,
		commitRepo:  commitRepo,
		store:       store,
		pendingFile: pendingFile,
		conf:        conf,
		log:         log,
	}
}

// Run executes one full crawl pass: replay the pending requests of the
// previous run, gather metadata of every target including newly
// discovered forks, persist what failed and commit the written data to
// the data branch. It returns the number of requests still outstanding,
// a fully caught up mirror returns 0.
func (c *Crawler) Run(ctx context.Context) (int, error) {
	// refuse to run while the data branch is checked out, the commit
	// workflow needs to check it out itself and restore the previous
	// checkout afterwards
	current, err := c.commitRepo.CurrentBranch(ctx)
	if err != nil {
		return 0, err
	}
	if current == c.conf.Branch {
		return 0, fmt.Errorf("data branch '%s' is checked out, refusing to run", c.conf.Branch)
	}

	targets, err := c.targets(ctx)
	if err != nil {
		return 0, err
	}
	if len(targets) == 0 {
		return 0, fmt.Errorf("no remotes for host '%s' configured, nothing to mirror", c.conf.Host)
	}

	run := newRun(c.forge, c.repo, c.store, c.log)

	// replay what failed on the previous run before the main pass
	pending := LoadPending(c.pendingFile, c.log)
	if len(pending) > 0 {
		c.log.Info("replaying pending requests", "count", len(pending))
	}
	for _, req := range pending {
		run.RunRequest(ctx, req)
	}

	// everything that failed during the replay phase failed on its
	// second chance, it goes to the back of the next pending list
	replayedFailed := run.failedRequests()

	run.failed = map[Request]struct{}{}
	run.retried = make(map[Request]struct{}, len(pending))
	for _, req := range pending {
		run.retried[req] = struct{}{}
	}

	// the replay may have discovered forks and registered new remotes,
	// derive the main pass targets from current state
	targets, err = c.targets(ctx)
	if err != nil {
		return 0, err
	}
	for _, t := range targets {
		// a failed git fetch must not stop the metadata crawl
		if err := c.repo.Fetch(ctx, t.remote); err != nil {
			c.log.Error("unable to fetch remote", "remote", t.remote, "err", err)
		}
		run.GatherMetaData(ctx, t.target)
	}

	freshFailed := run.failedRequests()

	if err := SavePending(c.pendingFile, freshFailed, replayedFailed); err != nil {
		return 0, err
	}

	if err := c.commitData(ctx); err != nil {
		return 0, err
	}

	outstanding := len(freshFailed) + len(replayedFailed)
	setPendingRequests(outstanding)
	setLastRunTime(time.Now())

	c.log.Info("crawl finished", "targets", len(targets), "outstanding", outstanding)
	return outstanding, nil
}

type crawlTarget struct {
	remote string
	target Target
}

// targets derives the crawl targets from the configured remotes of the
// local repository. Remotes pointing at other hosts, wiki mirrors and
// unparseable urls are skipped, several remotes of the same repository
// yield a single target.
func (c *Crawler) targets(ctx context.Context) ([]crawlTarget, error) {
	remotes, err := c.repo.Remotes(ctx)
	if err != nil {
		return nil, err
	}

	seen := map[Target]struct{}{}
	var targets []crawlTarget
	for name, url := range remotes {
		gURL, err := giturl.Parse(url)
		if err != nil {
			c.log.Debug("skipping remote with unparseable url", "remote", name, "err", err)
			continue
		}
		if gURL.Host != c.conf.Host {
			continue
		}
		if gURL.IsWiki() {
			continue
		}

		owner, repoName := gURL.OwnerRepo()
		if owner == "" || repoName == "" {
			c.log.Debug("skipping remote without owner/name", "remote", name, "url", url)
			continue
		}

		target := Target{Owner: owner, Name: repoName}
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		targets = append(targets, crawlTarget{remote: name, target: target})
	}

	slices.SortFunc(targets, func(a, b crawlTarget) int {
		return NewRequest(OpRepo, a.target).Compare(NewRequest(OpRepo, b.target))
	})
	return targets, nil
}

// commitData folds the scratch store into the data branch: check out
// the branch (creating it as an orphan on first use), stage the scratch
// dir as the branch's work tree, commit if anything changed and restore
// the previous checkout. The scratch dir is removed afterwards so the
// next run starts from a clean slate.
func (c *Crawler) commitData(ctx context.Context) error {
	hasData, err := c.store.HasData()
	if err != nil {
		return err
	}
	if !hasData {
		c.log.Info("no data written, skipping commit")
		return nil
	}

	prev, err := c.commitRepo.CurrentBranch(ctx)
	if err != nil {
		return err
	}

	if c.commitRepo.BranchExists(ctx, c.conf.Branch) {
		if err := c.commitRepo.Checkout(ctx, c.conf.Branch); err != nil {
			return err
		}
	} else {
		if err := c.commitRepo.CheckoutOrphan(ctx, c.conf.Branch); err != nil {
			return err
		}
	}

	// restore the previous checkout whatever happens below, committing
	// through an external work tree leaves the real one behind the new
	// commit so the checkout back has to be forced
	defer func() {
		if err := c.commitRepo.CheckoutForce(ctx, prev); err != nil {
			c.log.Error("unable to restore previous checkout", "branch", prev, "err", err)
		}
	}()

	if err := c.commitRepo.StageWorkTree(ctx, c.store.Root()); err != nil {
		return err
	}

	if c.commitRepo.HasStagedChanges(ctx) {
		if err := c.commitRepo.Commit(ctx, c.store.Root(), c.conf.CommitMessage); err != nil {
			return err
		}
		c.log.Info("mirrored data committed", "branch", c.conf.Branch)
	} else {
		c.log.Info("mirrored data unchanged, nothing to commit")
	}

	return c.store.Remove()
}
