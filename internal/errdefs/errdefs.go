package errdefs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure of a review run.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindResolution    Kind = "resolution"
	KindExecution     Kind = "execution"
	KindPlatform      Kind = "platform"
	KindConsistency   Kind = "consistency"
)

// Error is a classified failure. Hint carries auxiliary lines for the user,
// e.g. candidate branches when a branch is required.
type Error struct {
	Kind Kind
	Msg  string
	Hint []string
	Err  error
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Msg)
	if e.Err != nil {
		if e.Msg != "" {
			sb.WriteString(": ")
		}
		sb.WriteString(e.Err.Error())
	}
	for _, h := range e.Hint {
		sb.WriteString("\n\t")
		sb.WriteString(h)
	}
	return sb.String()
}

func (e *Error) Unwrap() error { return e.Err }

func newf(kind Kind, format string, a ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, a...)}
}

// Configuration reports an environment the user must fix (missing username, platform tool unavailable).
func Configuration(format string, a ...any) *Error { return newf(KindConfiguration, format, a...) }

// Resolution reports that the branch references could not be computed.
func Resolution(format string, a ...any) *Error { return newf(KindResolution, format, a...) }

// Platform reports an unrecognized remote or a rejected platform request.
func Platform(format string, a ...any) *Error { return newf(KindPlatform, format, a...) }

// Consistency reports stale or divergent state that must not be submitted.
func Consistency(format string, a ...any) *Error { return newf(KindConsistency, format, a...) }

// Execution wraps a failed external command. The command's own error text is kept.
func Execution(command string, err error) *Error {
	return &Error{Kind: KindExecution, Msg: command, Err: err}
}

// Wrap attaches a kind to err, keeping err in the chain.
func Wrap(kind Kind, err error, format string, a ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, a...), Err: err}
}

// KindOf returns the kind of the outermost classified error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HintOf returns the hint lines of the outermost classified error in err's chain.
func HintOf(err error) []string {
	var e *Error
	if errors.As(err, &e) {
		return e.Hint
	}
	return nil
}
