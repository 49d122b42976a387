// Package push sends a reviewed branch to the remote.
package push

import (
	"context"

	"github.com/joescharf/git-review/internal/git"
	"github.com/joescharf/git-review/internal/models"
)

// Args returns the git arguments pushing refs.Branch as refs.Remote and
// recording the upstream link, so later runs reuse the same remote name.
func Args(remote string, refs models.BranchSet, force bool) []string {
	args := []string{"push"}
	if force {
		args = append(args, "-f")
	}
	return append(args, "-u", remote, refs.Branch+":"+refs.Remote)
}

// Push pushes refs.Branch to repo's remote. A rejected push is returned as is.
func Push(ctx context.Context, repo *git.Repo, refs models.BranchSet, force bool) error {
	return repo.Mutate(ctx, nil, Args(repo.Remote, refs, force)...)
}
