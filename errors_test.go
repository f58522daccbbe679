package shmstate

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

func TestErrorRendering(t *testing.T) {
	err := newError("subscribe", "Fred", unix.EINVAL, ErrAlreadySubscribed)
	assert.Equal(t, "shmstate: subscribe Fred: state already subscribed", err.Error())

	bare := newError("validate permissions", "", unix.EINVAL, nil)
	assert.Equal(t, "shmstate: validate permissions: invalid argument", bare.Error())
}

func TestErrorMatching(t *testing.T) {
	err := newError("subscribe", "Fred", unix.ENOENT, nil)
	assert.ErrorIs(t, err, unix.ENOENT)
	assert.NotErrorIs(t, err, unix.EINVAL)

	wrapped := fmt.Errorf("outer: %w", newError("abort", "", unix.EINVAL, ErrNotActive))
	assert.ErrorIs(t, wrapped, unix.EINVAL)
	assert.ErrorIs(t, wrapped, ErrNotActive)

	var e *Error
	assert.True(t, errors.As(wrapped, &e))
	assert.Equal(t, "abort", e.Op)
	assert.Equal(t, unix.EINVAL, e.Errno)
}

func TestCode(t *testing.T) {
	assert.Equal(t, 0, Code(nil))
	assert.Equal(t, -int(unix.EINVAL), Code(newError("x", "", unix.EINVAL, nil)))
	assert.Equal(t, -int(unix.ENOENT), Code(fmt.Errorf("wrap: %w", unix.ENOENT)))
	assert.Equal(t, -int(unix.EIO), Code(errors.New("opaque failure")))
}

func TestErrnoOf(t *testing.T) {
	assert.Equal(t, unix.ENOENT, errnoOf(fmt.Errorf("open: %w", unix.ENOENT)))
	assert.Equal(t, unix.EIO, errnoOf(errors.New("no errno here")))
}
