// Package errors provides error handling for dcmindex.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - Detail and hint annotations for CLI output
//
// On top of that it defines the error kinds the indexing engine reports.
// Kinds are attached with Mark, so the original message and cause survive
// and callers test the kind with errors.Is:
//
//	if errors.Is(err, errors.ErrInvalidArgument) {
//	    // malformed criteria or bad buffer size
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Mark         = crdb.Mark
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenDetails = crdb.FlattenDetails
)

// GetStack returns the outermost reportable stack trace in err's chain,
// looking through kind marks and other wrappers. Nil when there is none.
func GetStack(err error) *crdb.ReportableStackTrace {
	for ; err != nil; err = crdb.UnwrapOnce(err) {
		if st := crdb.GetReportableStackTrace(err); st != nil {
			return st
		}
	}
	return nil
}

// Error kinds reported by the indexing engine.
var (
	// ErrInvalidArgument marks malformed criteria construction, illegal
	// scope/attribute pairings and out-of-range settings such as buffer size.
	ErrInvalidArgument = New("invalid argument")

	// ErrStorage marks a failed transaction or a wrapped database error.
	// A storage error always means the enclosing transaction was rolled back.
	ErrStorage = New("storage error")

	// ErrNotFound marks a lookup for an entity that is not indexed.
	// Queries do not use it: no match is an empty result.
	ErrNotFound = New("not found")

	// ErrPayloadUnavailable marks a failed re-derivation of an instance's
	// attribute dictionary. It is logged, never propagated as a hard failure.
	ErrPayloadUnavailable = New("payload unavailable")

	// ErrUnsupported marks an operation the receiver does not implement,
	// e.g. reading the attribute of a compound criterion.
	ErrUnsupported = New("unsupported operation")
)

// InvalidArgumentf creates an invalid-argument error with a formatted message.
func InvalidArgumentf(format string, args ...interface{}) error {
	return Mark(crdb.NewWithDepthf(1, format, args...), ErrInvalidArgument)
}

// Unsupportedf creates an unsupported-operation error with a formatted message.
func Unsupportedf(format string, args ...interface{}) error {
	return Mark(crdb.NewWithDepthf(1, format, args...), ErrUnsupported)
}

// WrapStorage wraps a low-level database error as a storage error.
// Returns nil when err is nil.
func WrapStorage(err error, msg string) error {
	if err == nil {
		return nil
	}
	return Mark(crdb.WrapWithDepth(1, err, msg), ErrStorage)
}

// WrapStoragef is WrapStorage with a formatted message.
func WrapStoragef(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Mark(crdb.WrapWithDepthf(1, err, format, args...), ErrStorage)
}

// WrapPayload marks a re-derivation failure as payload-unavailable.
func WrapPayload(err error, path string) error {
	if err == nil {
		return nil
	}
	return Mark(crdb.WrapWithDepthf(1, err, "read attributes of %s", path), ErrPayloadUnavailable)
}

// IsInvalidArgument checks if an error is or wraps ErrInvalidArgument
func IsInvalidArgument(err error) bool {
	return err != nil && Is(err, ErrInvalidArgument)
}

// IsStorage checks if an error is or wraps ErrStorage
func IsStorage(err error) bool {
	return err != nil && Is(err, ErrStorage)
}

// IsNotFound checks if an error is or wraps ErrNotFound
func IsNotFound(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// NotFoundf creates a not-found error with a formatted message
func NotFoundf(format string, args ...interface{}) error {
	return Mark(crdb.NewWithDepthf(1, format, args...), ErrNotFound)
}
