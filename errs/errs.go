// Package errs defines the error taxonomy shared across the daemon, following
// the teacher's habit of plain errors.Join/errors.New rather than a
// heavyweight error framework, with one addition: a Kind so callers can branch
// on error category across package boundaries with errors.As.
package errs

import "fmt"

// Kind is one member of the error taxonomy.
type Kind string

const (
	KindIO                     Kind = "io"
	KindParse                  Kind = "parse"
	KindUnsupported            Kind = "unsupported"
	KindSecurity               Kind = "security"
	KindValidation             Kind = "validation"
	KindInvalidStateTransition Kind = "invalid_state_transition"
	KindIPC                    Kind = "ipc"
	KindStatePersistence       Kind = "state_persistence"
	KindDevice                 Kind = "device"
	KindReconnection           Kind = "reconnection"
	KindPluginLoad             Kind = "plugin_load"
	KindPluginExecution        Kind = "plugin_execution"
	KindPermissionDenied       Kind = "permission_denied"
	KindNotImplemented         Kind = "not_implemented"
	KindUnknownMode            Kind = "unknown_mode"
	KindUnknownCommand         Kind = "unknown_command"
)

// Error is a typed error carrying the operation that failed, the taxonomy
// Kind, and the wrapped cause (if any).
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs an *Error with no wrapped cause.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf("%s", msg)}
}

// Wrap constructs an *Error wrapping err under kind/op. Returns nil if err is nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err (or anything it wraps) is an *Error of the given Kind.
func Is(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			if e.Kind == kind {
				return true
			}
			err = e.Err
			continue
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// IsFatal reports whether err should abort a Sequence (spec §4.4/§7). Plugin
// execution errors are always recoverable; everything else is fatal.
func IsFatal(err error) bool {
	return err != nil && !Is(err, KindPluginExecution)
}
