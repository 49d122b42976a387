// Package refs computes the branch references of a review run.
package refs

import (
	"context"
	"strings"

	"github.com/mozillazg/go-unidecode"

	"github.com/joescharf/git-review/internal/errdefs"
	"github.com/joescharf/git-review/internal/git"
	"github.com/joescharf/git-review/internal/models"
)

// BaseSearchDepth is how many commits from HEAD the best-base heuristic inspects.
const BaseSearchDepth = 5

// Resolve computes the BranchSet for the branch checked out in repo.
// explicitBase, when non-empty, is used verbatim as the base.
func Resolve(ctx context.Context, repo *git.Repo, username, explicitBase string) (models.BranchSet, error) {
	head, err := repo.CurrentBranch(ctx)
	if err != nil || head == "" || head == "HEAD" {
		return models.BranchSet{}, &errdefs.Error{Kind: errdefs.KindResolution, Msg: "no branch at HEAD", Err: err}
	}
	def, err := repo.DefaultBranch(ctx)
	if err != nil {
		return models.BranchSet{}, err
	}

	if head == def {
		resErr := errdefs.Resolution("branch required")
		branches, err := repo.LocalBranches(ctx)
		if err != nil {
			return models.BranchSet{}, err
		}
		for _, b := range branches {
			if b != def {
				resErr.Hint = append(resErr.Hint, b)
			}
		}
		return models.BranchSet{}, resErr
	}

	dirty, err := repo.HasDivergence(ctx, "HEAD")
	if err != nil {
		return models.BranchSet{}, err
	}
	if dirty {
		return models.BranchSet{}, errdefs.Resolution(
			"dirty tree: commit, stash or revert your changes before sending for review")
	}

	remote, err := repo.UpstreamBranch(ctx, head)
	if err != nil {
		return models.BranchSet{}, err
	}
	if remote == "" {
		remote = SanitizeBranchName(username + "-" + head)
	}

	base := explicitBase
	if base == "" {
		found, err := BestBase(ctx, repo, head, def, remote)
		if err != nil {
			return models.BranchSet{}, err
		}
		base = found
		if base == "" {
			base = def
		}
	}

	return models.BranchSet{
		Default: def,
		Branch:  head,
		Remote:  remote,
		Base:    base,
	}, nil
}

// BestBase guesses the remote branch that branch stacks on. It walks the most
// recent commits of branch, nearest first, and stops at the first one found on a
// remote-tracking branch other than own, the branch's own pushed copy. It
// returns "" when nothing better than def is found: no commit in the window is
// on the remote, or the default branch contains it. Among several candidates
// the first one in git's listing order wins.
func BestBase(ctx context.Context, repo *git.Repo, branch, def, own string) (string, error) {
	commits, err := repo.RecentCommits(ctx, branch, BaseSearchDepth)
	if err != nil {
		return "", err
	}

	ownRef := repo.RemoteRef(own)
	var remoteBranches []string
	for _, sha := range commits {
		found, err := repo.RemoteBranchesContaining(ctx, sha)
		if err != nil {
			return "", err
		}
		for _, rb := range found {
			if rb != ownRef {
				remoteBranches = append(remoteBranches, rb)
			}
		}
		if len(remoteBranches) > 0 {
			break
		}
	}
	if len(remoteBranches) == 0 {
		return "", nil
	}

	defRef := repo.RemoteRef(def)
	for _, rb := range remoteBranches {
		if rb == defRef {
			return "", nil
		}
	}
	return strings.TrimPrefix(remoteBranches[0], repo.Remote+"/"), nil
}

// SanitizeBranchName makes name safe to use as a remote branch: '#' is removed,
// non-ASCII text is transliterated to ASCII and whitespace runs become '-'.
// The result is deterministic and sanitizing it again returns it unchanged.
func SanitizeBranchName(name string) string {
	name = strings.ReplaceAll(name, "#", "")
	name = unidecode.Unidecode(name)
	name = strings.ReplaceAll(name, "#", "")
	return strings.Join(strings.Fields(name), "-")
}
