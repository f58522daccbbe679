package shmstate

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// MaxNameLength is the longest accepted state name. The limit keeps the
// prefixed "/name" form inside NAME_MAX on the shared-memory filesystem.
const MaxNameLength = 254

// ValidateName checks name against the naming grammar and returns its
// length. Valid names are 1 to MaxNameLength characters from [A-Za-z0-9.],
// with no leading, trailing or adjacent dots. Violations are reported on the
// internal logger and returned as EINVAL-class errors.
func ValidateName(name string) (int, error) {
	fail := func(cause error) (int, error) {
		internalLogger.errorf("invalid state name %q: %v", name, cause)
		return 0, newError("validate name", name, unix.EINVAL, cause)
	}
	if name == "" {
		return fail(errors.New("empty name"))
	}
	if len(name) > MaxNameLength {
		return fail(fmt.Errorf("name longer than %d characters", MaxNameLength))
	}
	last := len(name) - 1
	var prev byte
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c == '.':
			if i == 0 || i == last {
				return fail(errors.New("dot at start or end of name"))
			}
			if prev == '.' {
				return fail(errors.New("adjacent dots in name"))
			}
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		default:
			return fail(fmt.Errorf("character %q not allowed in name", c))
		}
		prev = c
	}
	return len(name), nil
}

// ValidatePermissions checks that p requests at least one known permission
// bit and nothing else.
func ValidatePermissions(p Permission) error {
	if p == 0 {
		internalLogger.errorf("invalid permissions: no bits set")
		return newError("validate permissions", "", unix.EINVAL, errors.New("no permission bits set"))
	}
	if p&^permAll != 0 {
		internalLogger.errorf("invalid permissions %#x: unknown bits", uint32(p))
		return newError("validate permissions", "", unix.EINVAL,
			fmt.Errorf("unknown permission bits %#x", uint32(p&^permAll)))
	}
	return nil
}
