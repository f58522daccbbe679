// Package shm wraps the POSIX named shared-memory primitive behind a small
// open/map/unmap/close surface. Names use the canonical "/name" form required
// by the shared-memory namespace; on Linux they resolve to files under
// /dev/shm. Platform entry points live in shm_linux.go, with a stub for
// everything else.
package shm

import "errors"

// ErrUnsupported is returned on platforms without a named shared-memory
// backend.
var ErrUnsupported = errors.New("shm: named shared memory not supported on this platform")

// ErrBadName is returned when a segment name is not in canonical "/name" form.
var ErrBadName = errors.New("shm: segment name must be \"/name\" with no further separators")

// Segment is an open handle onto a named shared-memory object. The handle
// owns the file descriptor; mappings created from it stay valid after the
// handle is closed.
type Segment struct {
	name    string
	fd      int
	created bool
}

// Name returns the canonical "/name" the segment was opened under.
func (s *Segment) Name() string { return s.name }

// Created reports whether this open created the underlying object.
func (s *Segment) Created() bool { return s.created }

// View is a process-local mapping of a segment's bytes.
type View []byte

func checkName(name string) error {
	if len(name) < 2 || name[0] != '/' {
		return ErrBadName
	}
	for i := 1; i < len(name); i++ {
		if name[i] == '/' {
			return ErrBadName
		}
	}
	return nil
}
