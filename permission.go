package shmstate

// Permission is the access bitmask for a state subscription or a
// transaction. Write access implies read access: callers asking for
// PermWrite alone end up holding PermRead|PermWrite.
type Permission uint32

const (
	// PermRead grants read access to the state's region.
	PermRead Permission = 0x1
	// PermWrite grants write access to the state's region.
	PermWrite Permission = 0x2

	permAll = PermRead | PermWrite
)

// CanRead reports whether the read bit is set.
func (p Permission) CanRead() bool { return p&PermRead != 0 }

// CanWrite reports whether the write bit is set.
func (p Permission) CanWrite() bool { return p&PermWrite != 0 }

// normalize applies the write-implies-read rule.
func (p Permission) normalize() Permission {
	if p&PermWrite != 0 {
		return p | PermRead
	}
	return p
}

func (p Permission) String() string {
	switch p & permAll {
	case PermRead | PermWrite:
		return "read|write"
	case PermWrite:
		return "write"
	case PermRead:
		return "read"
	}
	return "none"
}
