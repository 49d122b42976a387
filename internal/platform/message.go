package platform

import (
	"context"
	"os"
	"path/filepath"

	"github.com/joescharf/git-review/internal/git"
	"github.com/joescharf/git-review/internal/models"
	"github.com/joescharf/git-review/internal/runner"
)

// DefaultHook is the review hook path, relative to the repository root.
const DefaultHook = ".git-review-hook"

// BuildMessage returns the review message: the bodies of the commits between the
// remote base and the branch, followed by the output of the repository hook.
func BuildMessage(ctx context.Context, repo *git.Repo, r runner.Runner, hook string, refs models.BranchSet, reviewers string) (string, error) {
	log, err := repo.LogBodies(ctx, repo.RemoteRef(refs.Base), refs.Branch)
	if err != nil {
		return "", err
	}
	out, err := RunHook(ctx, repo, r, hook, refs, reviewers)
	if err != nil {
		return "", err
	}
	return log + out, nil
}

// RunHook runs the executable at hook (relative to the repository root) with
// BRANCH, REMOTE_BRANCH and REVIEWER set, and returns its output verbatim.
// A missing or non-executable hook contributes nothing; a failing one is an error.
func RunHook(ctx context.Context, repo *git.Repo, r runner.Runner, hook string, refs models.BranchSet, reviewers string) (string, error) {
	if hook == "" {
		return "", nil
	}
	path := hook
	if !filepath.IsAbs(path) {
		top, err := repo.TopLevel(ctx)
		if err != nil {
			return "", err
		}
		path = filepath.Join(top, hook)
	}
	if !isExecutable(path) {
		return "", nil
	}
	return r.Output(ctx, []string{
		"BRANCH=" + refs.Branch,
		"REMOTE_BRANCH=" + refs.Remote,
		"REVIEWER=" + reviewers,
	}, path)
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Mode().Perm()&0111 != 0
}
