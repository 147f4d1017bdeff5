package repository

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/sasha-s/go-deadlock"
	"github.com/utilitywarehouse/forge-mirror/internal/utils"
)

var gitExecutablePath string

func init() {
	gitExecutablePath = exec.Command("git").String()
}

// Repo represents an existing local git repository with a checked out
// working tree.
type Repo struct {
	mu     deadlock.Mutex // repo will be locked during state changing git commands
	path   string         // absolute path to the working tree
	gitDir string         // absolute path to the git dir
	auth   *Auth          // auth information for fetching remotes
	envs   []string       // envs which will be passed to git commands
	log    *slog.Logger
}

// New opens the git repository containing the given path. It fails if the
// path is not inside a git working tree.
func New(ctx context.Context, path string, auth *Auth, log *slog.Logger) (*Repo, error) {
	if log == nil {
		log = slog.Default()
	}

	if auth == nil {
		auth = &Auth{}
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("unable to resolve repo path err:%w", err)
	}

	r := &Repo{
		path: absPath,
		auth: auth,
		// git needs PATH to resolve ssh and credential helpers
		envs: []string{
			fmt.Sprintf("PATH=%s", os.Getenv("PATH")),
			fmt.Sprintf("HOME=%s", os.Getenv("HOME")),
		},
		log: log,
	}

	workTree, err := r.git(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, fmt.Errorf("'%s' is not a git working tree err:%w", absPath, err)
	}
	r.path = workTree

	gitDir, err := r.git(ctx, "rev-parse", "--absolute-git-dir")
	if err != nil {
		return nil, fmt.Errorf("unable to locate git dir err:%w", err)
	}
	r.gitDir = gitDir

	r.log = log.With("repo", filepath.Base(workTree))

	return r, nil
}

// Path returns the absolute path of the repository's working tree
func (r *Repo) Path() string {
	return r.path
}

// GitDir returns the absolute path of the repository's git dir
func (r *Repo) GitDir() string {
	return r.gitDir
}

// Remotes returns the configured remotes as a name to url map
func (r *Repo) Remotes(ctx context.Context) (map[string]string, error) {
	// git config --get-regexp ^remote\..*\.url$
	out, err := r.git(ctx, "config", "--get-regexp", `^remote\..*\.url$`)
	if err != nil {
		// config --get-regexp exits 1 when nothing matches
		if strings.Contains(err.Error(), "exit status 1") {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("unable to read configured remotes err:%w", err)
	}

	remotes := map[string]string{}
	for line := range strings.Lines(out) {
		key, url, found := strings.Cut(strings.TrimSpace(line), " ")
		if !found {
			continue
		}
		name := strings.TrimSuffix(strings.TrimPrefix(key, "remote."), ".url")
		remotes[name] = url
	}
	return remotes, nil
}

// HasRemote returns whether a remote with the given name is configured.
// The check always reads current git config, never cached state.
func (r *Repo) HasRemote(ctx context.Context, name string) (bool, error) {
	remotes, err := r.Remotes(ctx)
	if err != nil {
		return false, err
	}
	_, ok := remotes[name]
	return ok, nil
}

// AddRemote configures a new remote with the given name and url and
// optionally fetches it immediately
func (r *Repo) AddRemote(ctx context.Context, name, url string, fetch bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// git remote add <name> <url>
	if _, err := r.git(ctx, "remote", "add", name, url); err != nil {
		return fmt.Errorf("unable to add remote %s err:%w", name, err)
	}

	if fetch {
		return r.fetch(ctx, name, url)
	}
	return nil
}

// RemoveRemote removes the named remote and its fetched refs
func (r *Repo) RemoveRemote(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// git remote remove <name>
	if _, err := r.git(ctx, "remote", "remove", name); err != nil {
		return fmt.Errorf("unable to remove remote %s err:%w", name, err)
	}
	return nil
}

// Fetch updates refs of the named remote
func (r *Repo) Fetch(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	remotes, err := r.Remotes(ctx)
	if err != nil {
		return err
	}
	url, ok := remotes[name]
	if !ok {
		return fmt.Errorf("remote %s is not configured", name)
	}

	return r.fetch(ctx, name, url)
}

func (r *Repo) fetch(ctx context.Context, name, url string) error {
	envs := r.envs
	envs = append(envs, r.auth.env(r.gitDir, url, r.log)...)

	// git fetch <name> --prune --no-progress
	if _, err := utils.RunCommand(ctx, r.log, envs, r.path,
		gitExecutablePath, "fetch", name, "--prune", "--no-progress"); err != nil {
		return fmt.Errorf("unable to fetch remote %s err:%w", name, err)
	}
	return nil
}

// CurrentBranch returns the short name of the currently checked out branch,
// or "HEAD" for a detached head
func (r *Repo) CurrentBranch(ctx context.Context) (string, error) {
	// git rev-parse --abbrev-ref HEAD
	return r.git(ctx, "rev-parse", "--abbrev-ref", "HEAD")
}

// BranchExists returns whether a local branch with the given name exists
func (r *Repo) BranchExists(ctx context.Context, branch string) bool {
	// git show-ref --verify --quiet refs/heads/<branch>
	_, err := r.git(ctx, "show-ref", "--verify", "--quiet", "refs/heads/"+branch)
	return err == nil
}

// Checkout checks out the given existing branch
func (r *Repo) Checkout(ctx context.Context, branch string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// git checkout --quiet <branch>
	if _, err := r.git(ctx, "checkout", "--quiet", branch); err != nil {
		return fmt.Errorf("unable to checkout branch %s err:%w", branch, err)
	}
	return nil
}

// CheckoutForce checks out the given branch discarding any local state.
// It is used to restore the previous checkout after committing staged data
// through an external work tree, which leaves the real work tree behind
// the new commit.
func (r *Repo) CheckoutForce(ctx context.Context, branch string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// git checkout --quiet --force <branch>
	if _, err := r.git(ctx, "checkout", "--quiet", "--force", branch); err != nil {
		return fmt.Errorf("unable to checkout branch %s err:%w", branch, err)
	}
	return nil
}

// CheckoutOrphan checks out a new orphan branch with the given name
func (r *Repo) CheckoutOrphan(ctx context.Context, branch string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// git checkout --quiet --orphan <branch>
	if _, err := r.git(ctx, "checkout", "--quiet", "--orphan", branch); err != nil {
		return fmt.Errorf("unable to checkout orphan branch %s err:%w", branch, err)
	}
	return nil
}

// StageWorkTree stages the full content of the given external work tree
// dir onto the index, including deletions of tracked files missing from it
func (r *Repo) StageWorkTree(ctx context.Context, dir string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// git --git-dir=<gitDir> --work-tree=<dir> add -A .
	if _, err := utils.RunCommand(ctx, r.log, r.envs, dir, gitExecutablePath,
		"--git-dir", r.gitDir, "--work-tree", dir, "add", "-A", "."); err != nil {
		return fmt.Errorf("unable to stage work tree %s err:%w", dir, err)
	}
	return nil
}

// HasStagedChanges returns whether the index differs from HEAD
func (r *Repo) HasStagedChanges(ctx context.Context) bool {
	// on an unborn branch (fresh orphan) HEAD is invalid and diff fails,
	// a non-empty index still needs committing
	if _, err := r.git(ctx, "rev-parse", "--verify", "--quiet", "HEAD"); err != nil {
		out, lsErr := r.git(ctx, "ls-files", "--cached")
		return lsErr == nil && out != ""
	}

	// git diff --cached --quiet  (exits non-zero when index differs)
	_, err := r.git(ctx, "diff", "--cached", "--quiet")
	return err != nil
}

// Commit records the staged index as a new commit on the current branch
// using the given external work tree
func (r *Repo) Commit(ctx context.Context, dir, msg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	args := []string{
		"--git-dir", r.gitDir, "--work-tree", dir,
		"-c", "user.name=forge-mirror",
		"-c", "user.email=forge-mirror@noreply.local",
		"commit", "--quiet", "-m", msg,
	}
	if _, err := utils.RunCommand(ctx, r.log, r.envs, dir, gitExecutablePath, args...); err != nil {
		return fmt.Errorf("unable to commit staged data err:%w", err)
	}
	return nil
}

// git runs a git command on the repository's working tree
func (r *Repo) git(ctx context.Context, args ...string) (string, error) {
	start := time.Now()
	out, err := utils.RunCommand(ctx, r.log, r.envs, r.path, gitExecutablePath, args...)
	recordGitCommand(args[0], err == nil, start)
	return out, err
}
