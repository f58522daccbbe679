//go:build !linux

package shm

// The named shared-memory backend is Linux-only (glibc's shm_open namespace
// under /dev/shm). Other platforms get compile-time parity and a runtime
// error.

// Path returns the filesystem location backing the canonical segment name.
func Path(name string) string { return "" }

// OpenOrCreate opens the named segment read-write, creating it if needed.
func OpenOrCreate(name string, size int64) (*Segment, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	return nil, ErrUnsupported
}

// Open attaches to an existing named segment.
func Open(name string, writable bool) (*Segment, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	return nil, ErrUnsupported
}

// Map establishes a mapping of the segment's first length bytes.
func (s *Segment) Map(length int, writable bool) (View, error) {
	return nil, ErrUnsupported
}

// Size reports the segment's current size.
func (s *Segment) Size() (int64, error) { return 0, ErrUnsupported }

// Close releases the segment handle.
func (s *Segment) Close() error { return nil }

// Unmap releases the mapping.
func (v View) Unmap() error {
	if v == nil {
		return nil
	}
	return ErrUnsupported
}

// Remove deletes the named segment.
func Remove(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	return ErrUnsupported
}
