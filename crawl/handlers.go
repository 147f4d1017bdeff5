package crawl

import (
	"context"
	"fmt"
)

func storeRepo(ctx context.Context, run *Run, req Request) error {
	rec, err := run.forge.Repo(ctx, req.Target.Owner, req.Target.Name)
	if err != nil {
		return err
	}
	if err := run.store.Write(req.Target, "repository", rec); err != nil {
		return err
	}
	if rec.HasWiki && rec.WikiURL != "" {
		run.mirrorWiki(ctx, req.Target, rec.WikiURL)
	}
	return nil
}

// mirrorWiki keeps a clone of the target's wiki as a side effect of
// storing the repository record. It is best effort, forges advertise
// wikis which were never created and a failure here must not mark the
// repository request as failed.
func (r *Run) mirrorWiki(ctx context.Context, target Target, url string) {
	name := target.Dir() + ".wiki"

	known, err := r.repo.HasRemote(ctx, name)
	if err != nil {
		r.log.Error("unable to check wiki remote", "remote", name, "err", err)
		return
	}
	if known {
		if err := r.repo.Fetch(ctx, name); err != nil {
			r.log.Debug("unable to fetch wiki", "remote", name, "err", err)
		}
		return
	}

	// adding with an immediate fetch verifies the wiki actually exists,
	// on failure the half configured remote is removed again
	if err := r.repo.AddRemote(ctx, name, url, true); err != nil {
		r.log.Debug("unable to mirror wiki", "remote", name, "err", err)
		if err := r.repo.RemoveRemote(ctx, name); err != nil {
			r.log.Error("unable to remove wiki remote", "remote", name, "err", err)
		}
	}
}

func storeWatchers(ctx context.Context, run *Run, req Request) error {
	watchers, err := run.forge.Watchers(ctx, req.Target.Owner, req.Target.Name)
	if err != nil {
		return err
	}
	return run.store.Write(req.Target, "watchers", watchers)
}

func storePullRequests(ctx context.Context, run *Run, req Request) error {
	prs, err := run.forge.PullRequests(ctx, req.Target.Owner, req.Target.Name)
	if err != nil {
		return err
	}
	if err := run.store.Write(req.Target, "pullrequests", prs); err != nil {
		return err
	}
	for _, pr := range prs {
		run.RunRequest(ctx, NewNumberedRequest(OpPullRequest, req.Target, pr.Number))
	}
	return nil
}

func storePullRequest(ctx context.Context, run *Run, req Request) error {
	pr, err := run.forge.PullRequest(ctx, req.Target.Owner, req.Target.Name, req.Num)
	if err != nil {
		return err
	}
	return run.store.Write(req.Target, fmt.Sprintf("pullrequest/%d", req.Num), pr)
}

func storeMilestones(ctx context.Context, run *Run, req Request) error {
	milestones, err := run.forge.Milestones(ctx, req.Target.Owner, req.Target.Name)
	if err != nil {
		return err
	}
	return run.store.Write(req.Target, "milestones", milestones)
}

func storeIssues(ctx context.Context, run *Run, req Request) error {
	issues, err := run.forge.Issues(ctx, req.Target.Owner, req.Target.Name)
	if err != nil {
		return err
	}
	if err := run.store.Write(req.Target, "issues", issues); err != nil {
		return err
	}
	for _, issue := range issues {
		run.RunRequest(ctx, NewNumberedRequest(OpIssue, req.Target, issue.Number))
	}
	return nil
}

func storeIssue(ctx context.Context, run *Run, req Request) error {
	issue, err := run.forge.Issue(ctx, req.Target.Owner, req.Target.Name, req.Num)
	if err != nil {
		return err
	}
	if err := run.store.Write(req.Target, fmt.Sprintf("issue/%d", req.Num), issue); err != nil {
		return err
	}

	comments, err := run.forge.IssueComments(ctx, req.Target.Owner, req.Target.Name, req.Num)
	if err != nil {
		return err
	}
	for _, c := range comments {
		path := fmt.Sprintf("issue/%d_comment/%d", req.Num, c.ID)
		if err := run.store.Write(req.Target, path, c); err != nil {
			return err
		}
	}
	return nil
}

func storeForks(ctx context.Context, run *Run, req Request) error {
	forks, err := run.forge.Forks(ctx, req.Target.Owner, req.Target.Name)
	if err != nil {
		return err
	}
	if err := run.store.Write(req.Target, "forks", forks); err != nil {
		return err
	}

	for _, fork := range forks {
		forkTarget := Target{Owner: fork.Owner, Name: fork.Name}

		// the durable remote list is the sole cycle breaker of the fork
		// walk, a fork already registered as a remote is never expanded
		// again, not even across process restarts
		known, err := run.repo.HasRemote(ctx, forkTarget.Dir())
		if err != nil {
			return err
		}
		if known {
			continue
		}

		run.log.Info("discovered new fork", "fork", forkTarget, "parent", req.Target)
		if err := run.repo.AddRemote(ctx, forkTarget.Dir(), fork.CloneURL, false); err != nil {
			return err
		}

		// depth first: the fork's metadata, and transitively its own
		// forks, are gathered before moving to the next sibling
		run.GatherMetaData(ctx, forkTarget)
	}
	return nil
}
