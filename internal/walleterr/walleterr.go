// Package walleterr defines the error kinds surfaced by the wallet engine.
//
// Each kind has a package-level sentinel that matches any error of that
// kind through errors.Is, so callers can branch on the kind while the
// message keeps the operation and cause:
//
//	if errors.Is(err, walleterr.ErrInfeasibleSelection) { ... }
package walleterr

import (
	"errors"
	"fmt"
)

// Kind classifies a wallet error.
type Kind uint16

const (
	KindUnknown Kind = iota
	KindInfeasibleSelection
	KindUnknownTokenType
	KindSigningFailure
	KindMalformedTransaction
	KindTransientNetwork
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindInfeasibleSelection:
		return "InfeasibleSelection"
	case KindUnknownTokenType:
		return "UnknownTokenType"
	case KindSigningFailure:
		return "SigningFailure"
	case KindMalformedTransaction:
		return "MalformedTransaction"
	case KindTransientNetwork:
		return "TransientNetworkFailure"
	default:
		return "Unknown"
	}
}

// Error is a kinded error with the failing operation and its cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// Sentinels for errors.Is matching.
var (
	ErrInfeasibleSelection  = &Error{Kind: KindInfeasibleSelection}
	ErrUnknownTokenType     = &Error{Kind: KindUnknownTokenType}
	ErrSigningFailure       = &Error{Kind: KindSigningFailure}
	ErrMalformedTransaction = &Error{Kind: KindMalformedTransaction}
	ErrTransientNetwork     = &Error{Kind: KindTransientNetwork}
)

// New creates an error of kind k for operation op.
func New(k Kind, op, format string, args ...any) error {
	return &Error{Kind: k, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap attaches kind k and operation op to err. A nil err stays nil.
func Wrap(k Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: k, Op: op, Err: err}
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
