package crawl

import (
	"cmp"
	"fmt"
)

// Target identifies a repository on the forge
type Target struct {
	Owner string `yaml:"owner"`
	Name  string `yaml:"name"`
}

func (t Target) String() string {
	return t.Owner + "/" + t.Name
}

// Dir returns the per target directory name used for both the scratch
// data layout and the remote name in the local repository
func (t Target) Dir() string {
	return t.Owner + "_" + t.Name
}

// Op names a catalog operation
type Op string

const (
	OpRepo         Op = "repository"
	OpWatchers     Op = "watchers"
	OpPullRequests Op = "pullrequests"
	OpPullRequest  Op = "pullrequest"
	OpMilestones   Op = "milestones"
	OpIssues       Op = "issues"
	OpIssue        Op = "issue"
	OpForks        Op = "forks"
)

// Request addresses a single unit of crawl work, "run operation Op
// against Target". Numbered operations additionally carry the number of
// the addressed record. Requests are comparable and round-trip through
// yaml, which makes them usable both as set keys and as entries of the
// persisted pending list.
type Request struct {
	Op       Op     `yaml:"op"`
	Target   Target `yaml:"target"`
	Num      int    `yaml:"num,omitempty"`
	Numbered bool   `yaml:"numbered,omitempty"`
}

// NewRequest returns an unnumbered request
func NewRequest(op Op, target Target) Request {
	return Request{Op: op, Target: target}
}

// NewNumberedRequest returns a request addressing a single numbered record
func NewNumberedRequest(op Op, target Target, num int) Request {
	return Request{Op: op, Target: target, Num: num, Numbered: true}
}

func (r Request) String() string {
	if r.Numbered {
		return fmt.Sprintf("%s %s #%d", r.Op, r.Target, r.Num)
	}
	return fmt.Sprintf("%s %s", r.Op, r.Target)
}

// Compare orders requests by target, then operation, then number. The
// order is only used to make persisted and reported lists reproducible.
func (r Request) Compare(o Request) int {
	if c := cmp.Compare(r.Target.Owner, o.Target.Owner); c != 0 {
		return c
	}
	if c := cmp.Compare(r.Target.Name, o.Target.Name); c != 0 {
		return c
	}
	if c := cmp.Compare(r.Op, o.Op); c != 0 {
		return c
	}
	return cmp.Compare(r.Num, o.Num)
}
