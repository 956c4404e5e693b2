package errs

import (
	"fmt"

	cr "github.com/cockroachdb/errors"
)

func New(msg string) error {
	return cr.New(msg)
}

func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return cr.Wrap(err, msg)
}

// Mark attaches a sentinel to err so callers can match it with errors.Is
// while the message and stack stay those of the original cause.
func Mark(err error, markErr error) error {
	if err == nil {
		return markErr
	}
	return &marked{cause: err, mark: markErr}
}

// marked exposes both the cause and the sentinel through multi-error
// Unwrap, so stdlib errors.Is matches either.
type marked struct {
	cause error
	mark  error
}

func (e *marked) Error() string { return e.cause.Error() }

func (e *marked) Unwrap() []error { return []error{e.cause, e.mark} }

func (e *marked) Format(s fmt.State, verb rune) { cr.FormatError(e, s, verb) }
