package failure

import (
	"errors"
	"fmt"
)

// Kind is a coarse-grained categorization for harvest errors.
type Kind string

const (
	KindUsage      Kind = "usage"
	KindNetwork    Kind = "network"
	KindParse      Kind = "parse"
	KindFilesystem Kind = "filesystem"
	KindDecode     Kind = "decode"
)

// Error wraps an underlying error with the failing operation and its kind.
type Error struct {
	Op   string
	Kind Kind
	Ref  string // Optional: image reference or URL being processed
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}

	base := fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	if e.Ref != "" {
		base += fmt.Sprintf(" (ref=%s)", e.Ref)
	}
	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}
	return base
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New returns an *Error of the given kind.
func New(kind Kind, op, ref string, err error) *Error {
	return &Error{Op: op, Kind: kind, Ref: ref, Err: err}
}

// IsKind reports whether any error in err's chain is an *Error of kind.
func IsKind(err error, kind Kind) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind == kind
	}
	return false
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}
