package platform

import (
	"context"
	"strings"

	"github.com/joescharf/git-review/internal/errdefs"
	"github.com/joescharf/git-review/internal/models"
	"github.com/joescharf/git-review/internal/runner"
)

// gitHub opens pull requests through a hub-compatible CLI helper.
type gitHub struct {
	runner     runner.Runner
	helper     string
	reviewHost string
}

func newGitHub(ctx context.Context, opts Options) (*gitHub, error) {
	g := &gitHub{runner: opts.Runner, helper: opts.GitHubHelper, reviewHost: opts.ReviewHost}
	if _, err := g.cmd(ctx, "browse", "-u"); err != nil {
		return nil, &errdefs.Error{
			Kind: errdefs.KindConfiguration,
			Msg:  g.helper + " tool is not installed, or wrongly configured",
			Err:  err,
		}
	}
	return g, nil
}

func (g *gitHub) Kind() Kind { return KindGitHub }

func (g *gitHub) cmd(ctx context.Context, args ...string) (string, error) {
	out, err := g.runner.Output(ctx, nil, g.helper, args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// PullRequestArgs returns the helper arguments creating a pull request for req.
// The whole message is passed; the helper takes its first line as the title.
func PullRequestArgs(message string, req models.ReviewRequest) []string {
	args := []string{
		"pull-request",
		"-m", message,
		"-h", req.SourceBranch,
		"-b", req.TargetBranch,
	}
	if len(req.Reviewers) > 0 {
		handles := strings.Join(req.Reviewers, ",")
		args = append(args, "-a", handles, "-r", handles)
	}
	return args
}

func (g *gitHub) RequestReview(ctx context.Context, message string, refs models.BranchSet, reviewers string) (*Review, error) {
	req := models.NewReviewRequest(string(KindGitHub), message, refs, reviewers)
	out, err := g.cmd(ctx, PullRequestArgs(message, req)...)
	if err != nil {
		return nil, errdefs.Wrap(errdefs.KindPlatform, err, "create pull request")
	}
	return &Review{URL: ReviewURL(out, g.reviewHost)}, nil
}

// ReviewURL rewrites a pull request URL to the review tool address.
func ReviewURL(prURL, reviewHost string) string {
	return strings.ReplaceAll(strings.ReplaceAll(prURL, "github.com", reviewHost), "pull/", "")
}
