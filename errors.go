package shmstate

import (
	"errors"
	"syscall"

	"golang.org/x/sys/unix"
)

// Cause sentinels carried inside *Error. Callers normally test the errno
// classification with errors.Is(err, unix.EINVAL) and friends; these exist
// for the cases where the specific rule matters.
var (
	// ErrNilHandle reports an operation on a nil State or Transaction.
	ErrNilHandle = errors.New("nil handle")

	// ErrAlreadySubscribed reports Subscribe on a State that is already
	// subscribed. Unsubscribe first.
	ErrAlreadySubscribed = errors.New("state already subscribed")

	// ErrNotActive reports Abort or Commit on a Transaction that is not
	// active.
	ErrNotActive = errors.New("transaction not active")

	// ErrAlreadyActive reports Start on a Transaction that is already
	// active.
	ErrAlreadyActive = errors.New("transaction already active")

	// ErrPermissionEscalation reports a write transaction requested on a
	// read-only state subscription.
	ErrPermissionEscalation = errors.New("write permission exceeds state subscription")

	// ErrUnsubscribed reports a transaction requested on a state that is
	// not currently subscribed.
	ErrUnsubscribed = errors.New("state not subscribed")
)

// Error is the error type returned by all public operations. Errno carries
// the POSIX classification; Err, when set, names the specific rule that was
// violated or the underlying system error.
type Error struct {
	Op    string
	Name  string
	Errno syscall.Errno
	Err   error
}

func (e *Error) Error() string {
	msg := "shmstate: " + e.Op
	if e.Name != "" {
		msg += " " + e.Name
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg + ": " + e.Errno.Error()
}

// Unwrap exposes the underlying cause so errors.Is and errors.As walk the
// full chain.
func (e *Error) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Errno
}

// Is matches errno targets against the classification, so
// errors.Is(err, unix.EINVAL) holds regardless of the wrapped cause.
func (e *Error) Is(target error) bool {
	if errno, ok := target.(syscall.Errno); ok {
		return e.Errno == errno
	}
	return false
}

func newError(op, name string, errno syscall.Errno, cause error) *Error {
	return &Error{Op: op, Name: name, Errno: errno, Err: cause}
}

// errnoOf extracts the errno classification from a system error chain,
// falling back to EIO when no errno is present.
func errnoOf(err error) syscall.Errno {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return unix.EIO
}

// Code converts an error into the numeric convention used by the C-side
// consumers of this library: 0 for nil, the negated errno for classified
// errors, -EIO for anything else.
func Code(err error) int {
	if err == nil {
		return 0
	}
	var e *Error
	if errors.As(err, &e) {
		return -int(e.Errno)
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return -int(errno)
	}
	return -int(unix.EIO)
}
