package platform

import (
	"context"

	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/joescharf/git-review/internal/errdefs"
	"github.com/joescharf/git-review/internal/models"
)

// gitlabAPI is the subset of the GitLab API a review needs.
type gitlabAPI interface {
	ProjectID(ctx context.Context, path string) (int, error)
	UserIDs(ctx context.Context, username string) ([]int, error)
	CreateMergeRequest(ctx context.Context, projectID int, req models.ReviewRequest, assigneeID *int) (string, error)
}

// gitlabClient implements gitlabAPI with the GitLab REST client.
type gitlabClient struct {
	api *gitlab.Client
}

func newGitLabClient(baseURL, token string) (gitlabAPI, error) {
	c, err := gitlab.NewClient(token, gitlab.WithBaseURL(baseURL))
	if err != nil {
		return nil, err
	}
	return &gitlabClient{api: c}, nil
}

func (c *gitlabClient) ProjectID(ctx context.Context, path string) (int, error) {
	p, _, err := c.api.Projects.GetProject(path, nil, gitlab.WithContext(ctx))
	if err != nil {
		return 0, err
	}
	return p.ID, nil
}

func (c *gitlabClient) UserIDs(ctx context.Context, username string) ([]int, error) {
	users, _, err := c.api.Users.ListUsers(&gitlab.ListUsersOptions{
		Username: gitlab.Ptr(username),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids, nil
}

func (c *gitlabClient) CreateMergeRequest(ctx context.Context, projectID int, req models.ReviewRequest, assigneeID *int) (string, error) {
	mr, _, err := c.api.MergeRequests.CreateMergeRequest(projectID, &gitlab.CreateMergeRequestOptions{
		Title:        gitlab.Ptr(req.Title),
		Description:  gitlab.Ptr(req.Description),
		SourceBranch: gitlab.Ptr(req.SourceBranch),
		TargetBranch: gitlab.Ptr(req.TargetBranch),
		AssigneeID:   assigneeID,
	}, gitlab.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return mr.WebURL, nil
}

// gitLab opens merge requests on one GitLab project.
type gitLab struct {
	api       gitlabAPI
	project   string
	projectID int
}

func newGitLab(ctx context.Context, project string, opts Options) (*gitLab, error) {
	if opts.GitLabToken == "" {
		return nil, errdefs.Configuration(
			"no GitLab token configured: set gitlab.token in the config file, GIT_REVIEW_GITLAB_TOKEN or GITLAB_TOKEN")
	}
	api, err := opts.newGitLabAPI(opts.GitLabURL, opts.GitLabToken)
	if err != nil {
		return nil, errdefs.Wrap(errdefs.KindConfiguration, err, "create GitLab client for %s", opts.GitLabURL)
	}
	id, err := api.ProjectID(ctx, project)
	if err != nil {
		return nil, errdefs.Wrap(errdefs.KindPlatform, err, "get GitLab project %s", project)
	}
	return &gitLab{api: api, project: project, projectID: id}, nil
}

func (g *gitLab) Kind() Kind { return KindGitLab }

// RequestReview creates a merge request. GitLab merge requests get a single
// assignee here: the first reviewer that resolves to a user. Other handles are
// reported back in Review.Unassigned.
func (g *gitLab) RequestReview(ctx context.Context, message string, refs models.BranchSet, reviewers string) (*Review, error) {
	req := models.NewReviewRequest(string(KindGitLab), message, refs, reviewers)

	review := &Review{}
	var assignee *int
	for _, handle := range req.Reviewers {
		if assignee != nil {
			review.Unassigned = append(review.Unassigned, handle)
			continue
		}
		ids, err := g.api.UserIDs(ctx, handle)
		if err != nil {
			return nil, errdefs.Wrap(errdefs.KindPlatform, err, "look up GitLab user %s", handle)
		}
		if len(ids) == 0 {
			review.Unassigned = append(review.Unassigned, handle)
			continue
		}
		id := ids[0]
		assignee = &id
	}

	url, err := g.api.CreateMergeRequest(ctx, g.projectID, req, assignee)
	if err != nil {
		return nil, errdefs.Wrap(errdefs.KindPlatform, err,
			"create merge request %s -> %s on %s", req.SourceBranch, req.TargetBranch, g.project)
	}
	review.URL = url
	return review, nil
}
