package git

import (
	"context"
	"strconv"
	"strings"

	"github.com/joescharf/git-review/internal/errdefs"
	"github.com/joescharf/git-review/internal/runner"
)

// DefaultRemote is the remote pushed to when none is configured.
const DefaultRemote = "origin"

// Client issues git commands against one repository checkout and reports their
// outcome without interpreting it. Failures are never retried.
type Client interface {
	// Query runs a read-only command and returns its trimmed output.
	Query(ctx context.Context, args ...string) (string, error)
	// Mutate runs a command changing local or remote state; env holds extra KEY=VALUE entries.
	Mutate(ctx context.Context, env []string, args ...string) error
	// HasDivergence reports whether the working tree differs from ref.
	HasDivergence(ctx context.Context, ref string) (bool, error)
}

// RealClient implements Client by running the git binary.
type RealClient struct {
	runner runner.Runner
}

// NewClient returns a RealClient operating in dir.
func NewClient(dir string) *RealClient {
	return &RealClient{runner: runner.New(dir)}
}

// NewClientWithRunner returns a RealClient that runs git through r.
func NewClientWithRunner(r runner.Runner) *RealClient {
	return &RealClient{runner: r}
}

func (c *RealClient) Query(ctx context.Context, args ...string) (string, error) {
	out, err := c.runner.Output(ctx, nil, "git", args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (c *RealClient) Mutate(ctx context.Context, env []string, args ...string) error {
	_, err := c.runner.Output(ctx, env, "git", args...)
	return err
}

func (c *RealClient) HasDivergence(ctx context.Context, ref string) (bool, error) {
	_, err := c.runner.Output(ctx, nil, "git", "diff", "--quiet", ref)
	switch {
	case err == nil:
		return false, nil
	case runner.ExitCode(err) == 1:
		return true, nil
	default:
		return false, err
	}
}

// Repo exposes the typed queries a review run needs, bound to one remote.
type Repo struct {
	Client
	Remote string
}

// NewRepo binds c to remote, defaulting to DefaultRemote.
func NewRepo(c Client, remote string) *Repo {
	if remote == "" {
		remote = DefaultRemote
	}
	return &Repo{Client: c, Remote: remote}
}

// RemoteRef returns the remote-tracking name of branch, e.g. origin/main.
func (r *Repo) RemoteRef(branch string) string {
	return r.Remote + "/" + branch
}

// CurrentBranch returns the branch checked out at HEAD ("HEAD" when detached).
func (r *Repo) CurrentBranch(ctx context.Context) (string, error) {
	return r.Query(ctx, "rev-parse", "--abbrev-ref", "HEAD")
}

// DefaultBranch returns the branch the remote's HEAD points to, without the remote prefix.
func (r *Repo) DefaultBranch(ctx context.Context) (string, error) {
	out, err := r.Query(ctx, "rev-parse", "--abbrev-ref", r.RemoteRef("HEAD"))
	if err != nil {
		return "", errdefs.Wrap(errdefs.KindResolution, err,
			"cannot determine the default branch of %s (try: git remote set-head %s --auto)", r.Remote, r.Remote)
	}
	_, branch, ok := strings.Cut(out, "/")
	if !ok || branch == "" {
		return "", errdefs.Resolution("unexpected default branch reference %q", out)
	}
	return branch, nil
}

// LocalBranches lists local branches in the order git reports them.
func (r *Repo) LocalBranches(ctx context.Context) ([]string, error) {
	out, err := r.Query(ctx, "branch", "--format=%(refname:short)")
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// RecentCommits returns up to n commits reachable from ref, nearest first.
func (r *Repo) RecentCommits(ctx context.Context, ref string, n int) ([]string, error) {
	out, err := r.Query(ctx, "rev-list", "--max-count="+strconv.Itoa(n), ref)
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// RemoteBranchesContaining lists the remote-tracking branches of the bound remote
// that contain sha, in git's order, skipping the symbolic <remote>/HEAD.
func (r *Repo) RemoteBranchesContaining(ctx context.Context, sha string) ([]string, error) {
	out, err := r.Query(ctx, "branch", "-r", "--contains", sha,
		"--list", r.RemoteRef("*"), "--format=%(refname:short)")
	if err != nil {
		return nil, err
	}
	var branches []string
	for _, b := range splitLines(out) {
		if b == r.Remote || b == r.RemoteRef("HEAD") {
			continue
		}
		branches = append(branches, b)
	}
	return branches, nil
}

// UpstreamBranch returns the short name of branch's recorded upstream merge ref,
// or "" when none is configured.
func (r *Repo) UpstreamBranch(ctx context.Context, branch string) (string, error) {
	out, err := r.Query(ctx, "config", "--get", "branch."+branch+".merge")
	if err != nil {
		if runner.ExitCode(err) == 1 {
			return "", nil
		}
		return "", err
	}
	return strings.TrimPrefix(out, "refs/heads/"), nil
}

// RemoteURL returns the configured URL of the bound remote.
func (r *Repo) RemoteURL(ctx context.Context) (string, error) {
	return r.Query(ctx, "config", "--get", "remote."+r.Remote+".url")
}

func (r *Repo) MergeBase(ctx context.Context, a, b string) (string, error) {
	return r.Query(ctx, "merge-base", a, b)
}

func (r *Repo) RevParse(ctx context.Context, ref string) (string, error) {
	return r.Query(ctx, "rev-parse", ref)
}

// LogBodies returns the raw bodies of the commits in from..to, as git log orders them.
func (r *Repo) LogBodies(ctx context.Context, from, to string) (string, error) {
	return r.Query(ctx, "log", "--format=%B", from+".."+to)
}

// TopLevel returns the root directory of the working tree.
func (r *Repo) TopLevel(ctx context.Context) (string, error) {
	return r.Query(ctx, "rev-parse", "--show-toplevel")
}

// UserEmail returns the configured user.email, or "" when unset.
func (r *Repo) UserEmail(ctx context.Context) (string, error) {
	out, err := r.Query(ctx, "config", "--get", "user.email")
	if err != nil && runner.ExitCode(err) == 1 {
		return "", nil
	}
	return out, err
}

// UsernameFromEmail returns the local part of an email address.
func UsernameFromEmail(email string) string {
	user, _, _ := strings.Cut(strings.TrimSpace(email), "@")
	return user
}

func splitLines(out string) []string {
	if out == "" {
		return nil
	}
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
