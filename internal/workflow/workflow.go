// Package workflow runs the "push and request review" sequence for the
// checked-out branch.
package workflow

import (
	"context"
	"strings"

	"github.com/joescharf/git-review/internal/errdefs"
	"github.com/joescharf/git-review/internal/git"
	"github.com/joescharf/git-review/internal/models"
	"github.com/joescharf/git-review/internal/output"
	"github.com/joescharf/git-review/internal/platform"
	"github.com/joescharf/git-review/internal/push"
	"github.com/joescharf/git-review/internal/refs"
	"github.com/joescharf/git-review/internal/runner"
)

// SubmitEnv enables automatic merging for the submit command.
const SubmitEnv = "GIT_SUBMIT_AUTO_MERGE=1"

// State is a step of a run.
type State string

const (
	StateStart           State = "Start"
	StateResolved        State = "Resolved"
	StateValidated       State = "Validated"
	StatePushed          State = "Pushed"
	StateReviewRequested State = "ReviewRequested"
	StateSubmitted       State = "Submitted"
	StateDone            State = "Done"
	StateFailed          State = "Failed"
)

// Options are the per-invocation inputs of a run.
type Options struct {
	Username string
	// Base overrides the best-base heuristic when set.
	Base string
	// Reviewers is a comma separated list of platform handles.
	Reviewers string
	// Force force-pushes and skips the review request.
	Force bool
	// Submit asks for an automatic merge once the review is requested.
	Submit bool
}

// BackendFactory builds the review backend for a remote URL.
type BackendFactory func(ctx context.Context, remoteURL string) (platform.Backend, error)

// Result describes how far a run got.
type Result struct {
	State  State
	Refs   models.BranchSet
	Review *platform.Review
}

// Workflow sequences resolution, push, review request and submit. It keeps no
// state between runs.
type Workflow struct {
	repo     *git.Repo
	runner   runner.Runner
	hook     string
	backends BackendFactory
	ui       *output.UI
}

// New returns a Workflow. runner executes the review hook; backends builds the
// platform backend once a review is requested.
func New(repo *git.Repo, r runner.Runner, hook string, backends BackendFactory, ui *output.UI) *Workflow {
	return &Workflow{repo: repo, runner: r, hook: hook, backends: backends, ui: ui}
}

// PlatformBackends returns a BackendFactory using platform.FromRemoteURL.
func PlatformBackends(opts platform.Options) BackendFactory {
	return func(ctx context.Context, remoteURL string) (platform.Backend, error) {
		return platform.FromRemoteURL(ctx, remoteURL, opts)
	}
}

func (w *Workflow) enter(res *Result, s State) {
	res.State = s
	w.ui.VerboseLog("state: %s", output.StateColor(string(s)))
}

func (w *Workflow) fail(res *Result, err error) (*Result, error) {
	w.enter(res, StateFailed)
	return res, err
}

// Run executes one review run. Every failure aborts the run; effects of the
// steps already done (e.g. a push) are kept.
func (w *Workflow) Run(ctx context.Context, opts Options) (*Result, error) {
	res := &Result{}
	w.enter(res, StateStart)

	branches, err := w.resolve(ctx, opts)
	if err != nil {
		return w.fail(res, err)
	}
	res.Refs = branches
	w.enter(res, StateResolved)

	if err := w.validate(ctx, branches); err != nil {
		return w.fail(res, err)
	}
	w.enter(res, StateValidated)

	w.ui.Info("Pushing %s to %s", output.Cyan(branches.Branch), output.Cyan(w.repo.RemoteRef(branches.Remote)))
	if err := push.Push(ctx, w.repo, branches, opts.Force); err != nil {
		return w.fail(res, err)
	}
	w.enter(res, StatePushed)

	if !opts.Force {
		review, err := w.requestReview(ctx, branches, opts.Reviewers)
		if err != nil {
			return w.fail(res, err)
		}
		res.Review = review
		w.enter(res, StateReviewRequested)
	}

	if opts.Submit {
		if err := w.submit(ctx, branches); err != nil {
			return w.fail(res, err)
		}
		w.enter(res, StateSubmitted)
	}

	w.enter(res, StateDone)
	return res, nil
}

func (w *Workflow) resolve(ctx context.Context, opts Options) (models.BranchSet, error) {
	if opts.Username == "" {
		return models.BranchSet{}, errdefs.Configuration(
			"could not find username, most probably you need to setup an email with:\n  git config user.email <me@example.com>")
	}

	branches, err := refs.Resolve(ctx, w.repo, opts.Username, opts.Base)
	if err != nil {
		return models.BranchSet{}, err
	}
	w.ui.VerboseLog("resolved branch=%s remote=%s base=%s default=%s",
		branches.Branch, branches.Remote, branches.Base, branches.Default)
	return branches, nil
}

// validate fails when HEAD has nothing new compared to its merge-base with the base.
func (w *Workflow) validate(ctx context.Context, branches models.BranchSet) error {
	mergeBase, err := w.repo.MergeBase(ctx, "HEAD", w.repo.RemoteRef(branches.Base))
	if err != nil {
		return err
	}
	changed, err := w.repo.HasDivergence(ctx, mergeBase)
	if err != nil {
		return err
	}
	if !changed {
		return errdefs.Consistency("no diff: all code on this branch has already been submitted to %s", branches.Base)
	}
	return nil
}

func (w *Workflow) requestReview(ctx context.Context, branches models.BranchSet, reviewers string) (*platform.Review, error) {
	remoteURL, err := w.repo.RemoteURL(ctx)
	if err != nil {
		return nil, err
	}
	message, err := platform.BuildMessage(ctx, w.repo, w.runner, w.hook, branches, reviewers)
	if err != nil {
		return nil, err
	}
	backend, err := w.backends(ctx, remoteURL)
	if err != nil {
		return nil, err
	}

	w.ui.VerboseLog("requesting review on %s", backend.Kind())
	review, err := backend.RequestReview(ctx, message, branches, reviewers)
	if err != nil {
		return nil, err
	}
	if review.URL != "" {
		w.ui.Success("Review requested: %s", output.Green(review.URL))
	} else {
		w.ui.Success("Review requested for %s onto %s", branches.Remote, branches.Base)
	}
	if len(review.Unassigned) > 0 {
		w.ui.Warning("Only one assignee is supported on %s; not assigned: %s",
			backend.Kind(), output.Yellow(strings.Join(review.Unassigned, ", ")))
	}
	return review, nil
}

// submit asks for an automatic merge, refusing when the remote branch no longer
// matches the local one.
func (w *Workflow) submit(ctx context.Context, branches models.BranchSet) error {
	local, err := w.repo.RevParse(ctx, branches.Branch)
	if err != nil {
		return err
	}
	remote, err := w.repo.RevParse(ctx, w.repo.RemoteRef(branches.Remote))
	if err != nil {
		return err
	}
	if local != remote {
		return errdefs.Consistency(
			"local branch %s (%s) is not in the same state as %s (%s); not submitting",
			branches.Branch, short(local), w.repo.RemoteRef(branches.Remote), short(remote))
	}
	if err := w.repo.Mutate(ctx, []string{SubmitEnv}, "submit"); err != nil {
		return err
	}
	w.ui.Success("Submitted %s for automatic merge", branches.Remote)
	return nil
}

func short(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}
