//go:build linux

package shm

import (
	"fmt"
	"path/filepath"

	"golang.org/x/sys/unix"
)

const devShm = "/dev/shm"

// Path returns the filesystem location backing the canonical segment name.
func Path(name string) string {
	if checkName(name) != nil {
		return ""
	}
	return filepath.Join(devShm, name[1:])
}

// OpenOrCreate opens the named segment read-write, creating it if it does not
// exist. Only a creating open sizes the object, to exactly size bytes; a
// pre-existing segment is never re-sized. Glibc's shm_open is open(2) on
// /dev/shm, which is what we do here.
func OpenOrCreate(name string, size int64) (*Segment, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	path := filepath.Join(devShm, name[1:])

	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT|unix.O_EXCL|unix.O_CLOEXEC, 0o600)
	if err == nil {
		if terr := unix.Ftruncate(fd, size); terr != nil {
			_ = unix.Close(fd)
			_ = unix.Unlink(path)
			return nil, fmt.Errorf("ftruncate %s: %w", name, terr)
		}
		return &Segment{name: name, fd: fd, created: true}, nil
	}
	if err != unix.EEXIST {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}

	// Lost the creation race (or the segment already existed): attach.
	fd, err = unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return &Segment{name: name, fd: fd}, nil
}

// Open attaches to an existing named segment. It never creates: a missing
// segment reports the platform's not-found error.
func Open(name string, writable bool) (*Segment, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	flags := unix.O_RDONLY | unix.O_CLOEXEC
	if writable {
		flags = unix.O_RDWR | unix.O_CLOEXEC
	}
	fd, err := unix.Open(filepath.Join(devShm, name[1:]), flags, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return &Segment{name: name, fd: fd}, nil
}

// Map establishes a MAP_SHARED mapping of the segment's first length bytes,
// readable always and writable when asked.
func (s *Segment) Map(length int, writable bool) (View, error) {
	prot := unix.PROT_READ
	if writable {
		prot |= unix.PROT_WRITE
	}
	data, err := unix.Mmap(s.fd, 0, length, prot, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", s.name, err)
	}
	return View(data), nil
}

// Size reports the segment's current size. A freshly created segment that
// its creator has not sized yet reports 0.
func (s *Segment) Size() (int64, error) {
	var st unix.Stat_t
	if err := unix.Fstat(s.fd, &st); err != nil {
		return 0, fmt.Errorf("fstat %s: %w", s.name, err)
	}
	return st.Size, nil
}

// Close releases the segment handle. Existing mappings stay valid.
func (s *Segment) Close() error {
	if s.fd < 0 {
		return nil
	}
	fd := s.fd
	s.fd = -1
	if err := unix.Close(fd); err != nil {
		return fmt.Errorf("close %s: %w", s.name, err)
	}
	return nil
}

// Unmap releases the mapping. The view must not be used afterwards.
func (v View) Unmap() error {
	if v == nil {
		return nil
	}
	if err := unix.Munmap(v); err != nil {
		return fmt.Errorf("munmap: %w", err)
	}
	return nil
}

// Remove deletes the named segment (shm_unlink). Open handles and mappings
// keep working; the name simply stops resolving. The subscription lifecycle
// never calls this; it exists for tests and cleanup tooling.
func Remove(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	if err := unix.Unlink(filepath.Join(devShm, name[1:])); err != nil {
		return fmt.Errorf("unlink %s: %w", name, err)
	}
	return nil
}
