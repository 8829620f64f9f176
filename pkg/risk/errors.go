// Package risk drives the analysis pipeline: common-cause expansion,
// graph construction, preprocessing, cut-set generation, and
// quantification, per analysis target.
package risk

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies analysis errors for reporting and exit codes.
type Kind int

const (
	// KindInternal is an unexpected engine failure.
	KindInternal Kind = iota
	// KindValidation covers model construction and consistency errors.
	KindValidation
	// KindSettings covers invalid or inconsistent analysis settings.
	KindSettings
	// KindLogic covers formula errors detected during analysis.
	KindLogic
	// KindNumeric covers invalid numeric domains during evaluation.
	KindNumeric
	// KindResource covers exhausted working-set or memory bounds.
	KindResource
	// KindCancelled covers context cancellation and timeouts.
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindSettings:
		return "settings"
	case KindLogic:
		return "logic"
	case KindNumeric:
		return "numeric"
	case KindResource:
		return "resource"
	case KindCancelled:
		return "cancelled"
	default:
		return "internal"
	}
}

// ExitCode maps the error kind to the CLI process exit code: 1 for
// input errors, 2 for analysis errors, 3 for resource exhaustion, 4
// for cancellation.
func (k Kind) ExitCode() int {
	switch k {
	case KindValidation, KindSettings:
		return 1
	case KindResource:
		return 3
	case KindCancelled:
		return 4
	default:
		return 2
	}
}

// Error is the analysis error with classification and the chain of
// analysis steps it passed through.
type Error struct {
	Kind  Kind
	Msg   string
	Chain []string // outermost step first
	Err   error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if len(e.Chain) > 0 {
		return fmt.Sprintf("%s: %s", joinChain(e.Chain), msg)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func joinChain(chain []string) string {
	out := chain[0]
	for _, c := range chain[1:] {
		out += "/" + c
	}
	return out
}

// NewError creates a classified error.
func NewError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// WrapError classifies an underlying error, keeping cancellation and
// resource classifications already attached to it.
func WrapError(kind Kind, step string, err error) *Error {
	if err == nil {
		return nil
	}
	var re *Error
	if errors.As(err, &re) {
		return &Error{Kind: re.Kind, Msg: re.Msg, Chain: append([]string{step}, re.Chain...), Err: re.Err}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		kind = KindCancelled
	}
	return &Error{Kind: kind, Chain: []string{step}, Err: err}
}

// KindOf extracts the classification, defaulting to internal.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCancelled
	}
	return KindInternal
}
