// Package platform opens review requests on the hosting platform a remote points to.
package platform

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/joescharf/git-review/internal/errdefs"
	"github.com/joescharf/git-review/internal/models"
	"github.com/joescharf/git-review/internal/runner"
)

// Kind names a review platform.
type Kind string

const (
	KindGitHub Kind = "github"
	KindGitLab Kind = "gitlab"
)

// ErrUnsupportedPlatform is returned when a remote URL matches no known platform.
var ErrUnsupportedPlatform = errors.New("review platform not recognized")

// Review is the outcome of a review request.
type Review struct {
	// URL is the address to show the user; it may be empty.
	URL string
	// Unassigned lists reviewer handles the platform could not assign.
	Unassigned []string
}

// Backend requests reviews on one platform.
type Backend interface {
	Kind() Kind
	RequestReview(ctx context.Context, message string, refs models.BranchSet, reviewers string) (*Review, error)
}

// Options configures backend construction.
type Options struct {
	// Runner executes the GitHub CLI helper.
	Runner runner.Runner
	// GitHubHelper is the CLI helper used for GitHub remotes.
	GitHubHelper string
	// ReviewHost replaces github.com in the echoed pull request URL.
	ReviewHost string
	// GitLabHost is the SSH host identifying GitLab remotes.
	GitLabHost string
	// GitLabURL is the base URL of the GitLab API.
	GitLabURL   string
	GitLabToken string

	newGitLabAPI func(baseURL, token string) (gitlabAPI, error)
}

func (o Options) withDefaults() Options {
	if o.Runner == nil {
		o.Runner = runner.New("")
	}
	if o.GitHubHelper == "" {
		o.GitHubHelper = "hub"
	}
	if o.ReviewHost == "" {
		o.ReviewHost = "reviewable.io/reviews"
	}
	if o.GitLabHost == "" {
		o.GitLabHost = "gitlab.com"
	}
	if o.GitLabURL == "" {
		o.GitLabURL = "https://" + o.GitLabHost
	}
	if o.newGitLabAPI == nil {
		o.newGitLabAPI = newGitLabClient
	}
	return o
}

// Target is the platform and project a remote URL designates.
type Target struct {
	Kind Kind
	// Project is the project path on the platform, e.g. group/proj.
	Project string
}

// Detect classifies remoteURL without contacting anything.
func Detect(remoteURL string, opts Options) (Target, error) {
	opts = opts.withDefaults()
	gitlabRe := regexp.MustCompile(`^git@` + regexp.QuoteMeta(opts.GitLabHost) + `:(.+)\.git$`)
	if m := gitlabRe.FindStringSubmatch(remoteURL); m != nil {
		return Target{Kind: KindGitLab, Project: m[1]}, nil
	}
	if strings.Contains(remoteURL, "github.com") {
		project, _ := githubProject(remoteURL)
		return Target{Kind: KindGitHub, Project: project}, nil
	}
	return Target{}, errdefs.Wrap(errdefs.KindPlatform, ErrUnsupportedPlatform, "remote URL %s", remoteURL)
}

// FromRemoteURL builds the backend for remoteURL. Construction fails fast when
// the platform's client or CLI helper is not usable.
func FromRemoteURL(ctx context.Context, remoteURL string, opts Options) (Backend, error) {
	opts = opts.withDefaults()
	target, err := Detect(remoteURL, opts)
	if err != nil {
		return nil, err
	}
	switch target.Kind {
	case KindGitLab:
		return newGitLab(ctx, target.Project, opts)
	case KindGitHub:
		return newGitHub(ctx, opts)
	default:
		return nil, fmt.Errorf("unhandled platform %q", target.Kind)
	}
}

// githubProject parses owner/repo from a GitHub remote URL.
func githubProject(remoteURL string) (string, error) {
	if strings.HasPrefix(remoteURL, "git@") {
		_, path, ok := strings.Cut(remoteURL, ":")
		if !ok {
			return "", fmt.Errorf("cannot parse SSH remote: %s", remoteURL)
		}
		return ownerRepo(strings.TrimSuffix(path, ".git"), remoteURL)
	}

	trimmed := strings.TrimSuffix(remoteURL, ".git")
	for _, prefix := range []string{"https://github.com/", "http://github.com/", "ssh://git@github.com/"} {
		trimmed = strings.TrimPrefix(trimmed, prefix)
	}
	return ownerRepo(trimmed, remoteURL)
}

func ownerRepo(path, remoteURL string) (string, error) {
	owner, repo, ok := strings.Cut(path, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", fmt.Errorf("cannot parse owner/repo from: %s", remoteURL)
	}
	return owner + "/" + repo, nil
}
