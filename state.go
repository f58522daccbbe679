package shmstate

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/srediag/shmstate/internal/shm"
)

// State is a handle onto a named shared-memory state. A handle is either
// unsubscribed (empty, every query returns its zero sentinel) or subscribed
// (it holds an open segment plus a one-page mapping shared with every other
// subscriber to the same name).
//
// A State has a single logical owner and performs no internal locking.
// Distinct handles, in the same process or not, are fully independent.
type State struct {
	name    string // "/"-prefixed segment name; "" when unsubscribed
	perms   Permission
	segment *shm.Segment
	view    shm.View
	id      uuid.UUID
}

// NewState returns an empty, unsubscribed handle.
func NewState() *State { return &State{} }

// Subscribe attaches the handle to the named state with the requested
// permissions. Write access implies read access. A writer creates the
// backing segment when it does not exist yet and sizes it to one page; a
// reader requires the segment to exist already and gets ENOENT otherwise.
// Subscribing an already-subscribed handle is EINVAL and leaves the original
// subscription untouched.
func (s *State) Subscribe(name string, perms Permission) error {
	const op = "subscribe"
	if s == nil {
		return newError(op, name, unix.EINVAL, ErrNilHandle)
	}
	if s.Subscribed() {
		return newError(op, name, unix.EINVAL, ErrAlreadySubscribed)
	}
	if _, err := ValidateName(name); err != nil {
		return err
	}
	if err := ValidatePermissions(perms); err != nil {
		return err
	}
	perms = perms.normalize()
	segName := "/" + name
	size := RegionSize()

	var (
		seg *shm.Segment
		err error
	)
	if perms.CanWrite() {
		if !pathExists(shm.Path(segName)) && !canCreateOnDevShm(uint64(size), shm.Path(segName)) {
			return newError(op, name, unix.ENOSPC,
				errors.New("not enough room on the shared-memory filesystem"))
		}
		seg, err = shm.OpenOrCreate(segName, int64(size))
	} else {
		seg, err = shm.Open(segName, false)
	}
	if err != nil {
		return newError(op, name, errnoOf(err), err)
	}

	// Attaching to a segment its creator has not sized yet would map pages
	// that fault on first touch. Surface it as a retryable condition.
	if !seg.Created() {
		sz, serr := seg.Size()
		if serr != nil {
			unwindSegment(op, name, seg)
			return newError(op, name, errnoOf(serr), serr)
		}
		if sz < int64(size) {
			unwindSegment(op, name, seg)
			return newError(op, name, unix.EAGAIN,
				fmt.Errorf("segment sized %d of %d bytes, creator not done", sz, size))
		}
	}

	view, err := seg.Map(size, perms.CanWrite())
	if err != nil {
		unwindSegment(op, name, seg)
		return newError(op, name, errnoOf(err), err)
	}

	s.name = segName
	s.perms = perms
	s.segment = seg
	s.view = view
	s.id = uuid.New()

	registryAdd(name)
	subscribesTotal.Inc()
	activeSubscriptions.Inc()
	if seg.Created() {
		segmentsCreatedTotal.Inc()
		recordLifecycleEvent(EventSegmentCreate, name, s.id.String())
	}
	recordLifecycleEvent(EventSubscribe, name, s.id.String())
	internalLogger.debugf("subscribed %s perms=%s id=%s", name, perms, s.id)
	return nil
}

// Unsubscribe detaches the handle: the mapping is removed and the segment
// handle closed. The named segment itself lives on, as does every
// transaction started from this subscription. Unsubscribing an
// unsubscribed handle is a harmless no-op. The handle is empty afterwards
// even when the OS reports a teardown error.
func (s *State) Unsubscribe() error {
	const op = "unsubscribe"
	if s == nil || !s.Subscribed() {
		return nil
	}
	name := s.Name()
	id := s.id

	firstErr := s.view.Unmap()
	if err := s.segment.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	s.name = ""
	s.perms = 0
	s.segment = nil
	s.view = nil
	s.id = uuid.Nil

	registryRemove(name)
	unsubscribesTotal.Inc()
	activeSubscriptions.Dec()
	recordLifecycleEvent(EventUnsubscribe, name, id.String())
	if firstErr != nil {
		unwindFailuresTotal.Inc()
		internalLogger.warnf("unsubscribe %s: teardown reported: %v", name, firstErr)
		return newError(op, name, errnoOf(firstErr), firstErr)
	}
	internalLogger.debugf("unsubscribed %s id=%s", name, id)
	return nil
}

// Close destroys the handle, unsubscribing first if needed. Safe on nil and
// on already-unsubscribed handles.
func (s *State) Close() error {
	return s.Unsubscribe()
}

// Subscribed reports whether the handle currently holds a subscription.
func (s *State) Subscribed() bool {
	return s != nil && s.name != ""
}

// Name returns the state's name, or "" when unsubscribed.
func (s *State) Name() string {
	if !s.Subscribed() {
		return ""
	}
	return s.name[1:]
}

// Permissions returns the granted permission mask, or 0 when unsubscribed.
func (s *State) Permissions() Permission {
	if !s.Subscribed() {
		return 0
	}
	return s.perms
}

// Bytes returns the raw mapped region, or nil when unsubscribed. The slice
// is exactly RegionSize() long and aliases memory shared with every other
// subscriber to the name; it must not be retained across Unsubscribe or
// Close.
func (s *State) Bytes() []byte {
	if !s.Subscribed() {
		return nil
	}
	return s.view
}

// ID returns an opaque id distinguishing this live subscription from every
// other, or uuid.Nil when unsubscribed.
func (s *State) ID() uuid.UUID {
	if !s.Subscribed() {
		return uuid.Nil
	}
	return s.id
}

func unwindSegment(op, name string, seg *shm.Segment) {
	if err := seg.Close(); err != nil {
		internalLogger.warnf("%s %s: closing segment during unwind: %v", op, name, err)
		unwindFailuresTotal.Inc()
	}
}
