// Package gittest provides an in-memory git.Client for tests.
package gittest

import (
	"context"
	"fmt"
	"strings"

	"github.com/joescharf/git-review/internal/errdefs"
	"github.com/joescharf/git-review/internal/runner"
)

// Mutation records one call to Fake.Mutate.
type Mutation struct {
	Env  []string
	Args []string
}

// Command returns the mutation's arguments joined by spaces.
func (m Mutation) Command() string { return strings.Join(m.Args, " ") }

// Fake answers queries from canned outputs keyed by the space-joined arguments.
// Unknown queries fail with exit status 1, like a missing config key.
type Fake struct {
	Outputs    map[string]string
	Errors     map[string]error
	Divergence map[string]bool
	// MutateErrors fails mutations whose command starts with the key.
	MutateErrors map[string]error
	// OnMutate, when set, runs after each successful mutation (e.g. to move a ref).
	OnMutate func(f *Fake, m Mutation)

	Queries   []string
	Mutations []Mutation
}

// New returns an empty Fake.
func New() *Fake {
	return &Fake{
		Outputs:      map[string]string{},
		Errors:       map[string]error{},
		Divergence:   map[string]bool{},
		MutateErrors: map[string]error{},
	}
}

// Set registers the output of a query.
func (f *Fake) Set(output string, args ...string) *Fake {
	f.Outputs[strings.Join(args, " ")] = output
	return f
}

// Fail registers an error for a query.
func (f *Fake) Fail(err error, args ...string) *Fake {
	f.Errors[strings.Join(args, " ")] = err
	return f
}

func (f *Fake) Query(_ context.Context, args ...string) (string, error) {
	key := strings.Join(args, " ")
	f.Queries = append(f.Queries, key)
	if err, ok := f.Errors[key]; ok {
		return "", err
	}
	if out, ok := f.Outputs[key]; ok {
		return strings.TrimSpace(out), nil
	}
	return "", ExitError("git "+key, 1)
}

func (f *Fake) Mutate(_ context.Context, env []string, args ...string) error {
	m := Mutation{Env: env, Args: args}
	for prefix, err := range f.MutateErrors {
		if strings.HasPrefix(m.Command(), prefix) {
			return err
		}
	}
	f.Mutations = append(f.Mutations, m)
	if f.OnMutate != nil {
		f.OnMutate(f, m)
	}
	return nil
}

func (f *Fake) HasDivergence(_ context.Context, ref string) (bool, error) {
	f.Queries = append(f.Queries, "diff --quiet "+ref)
	return f.Divergence[ref], nil
}

// Mutated reports whether a mutation starting with prefix was recorded.
func (f *Fake) Mutated(prefix string) bool {
	for _, m := range f.Mutations {
		if strings.HasPrefix(m.Command(), prefix) {
			return true
		}
	}
	return false
}

// ExitError builds the error a failed command returns.
func ExitError(command string, code int) error {
	return errdefs.Execution(command, &runner.ExitError{Code: code, Stderr: fmt.Sprintf("%s failed", command)})
}
