package workflow

import (
	"context"

	"github.com/joescharf/git-review/internal/models"
	"github.com/joescharf/git-review/internal/push"
	"github.com/joescharf/git-review/internal/runner"
)

// Plan is what a run would do, computed without changing anything.
type Plan struct {
	Refs      models.BranchSet
	RemoteURL string
	Steps     []string
}

// Plan resolves and validates like Run, then lists the remaining steps instead
// of executing them.
func (w *Workflow) Plan(ctx context.Context, opts Options) (*Plan, error) {
	branches, err := w.resolve(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := w.validate(ctx, branches); err != nil {
		return nil, err
	}
	remoteURL, err := w.repo.RemoteURL(ctx)
	if err != nil {
		return nil, err
	}

	p := &Plan{Refs: branches, RemoteURL: remoteURL}
	p.Steps = append(p.Steps, runner.CommandLine("git", push.Args(w.repo.Remote, branches, opts.Force)...))
	if !opts.Force {
		step := "request review of " + branches.Remote + " onto " + branches.Base
		if opts.Reviewers != "" {
			step += " from " + opts.Reviewers
		}
		p.Steps = append(p.Steps, step)
	}
	if opts.Submit {
		p.Steps = append(p.Steps, SubmitEnv+" git submit")
	}
	return p, nil
}
