package shmstate

import (
	"fmt"
	"strconv"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/srediag/shmstate/internal/shm"
)

// TransactionManager mints transactions and owns the id sequence they draw
// from. Ids are process-local, monotonically increasing and never zero.
// Managers are safe for concurrent use; the transactions they mint are not.
type TransactionManager struct {
	lastID uint64
}

// NewTransactionManager returns a manager with a fresh id sequence.
func NewTransactionManager() *TransactionManager {
	return &TransactionManager{}
}

// NewTransaction returns an inactive transaction carrying a fresh id.
func (m *TransactionManager) NewTransaction() *Transaction {
	return &Transaction{id: atomic.AddUint64(&m.lastID, 1)}
}

// Transaction is a private, independently-lifetimed view onto a state's
// region. Start snapshots a live subscription: the transaction maps the
// same one-page segment under its own (possibly narrower) permissions and
// from then on shares no fate with the originating State. Like State, a
// transaction has a single logical owner and no internal locking.
type Transaction struct {
	name  string // "/"-prefixed segment name; "" when inactive
	id    uint64
	perms Permission
	view  shm.View
}

// Start activates the transaction against a live subscription. The
// requested permissions are validated and normalized and must not exceed
// the subscription's: asking for write on a read-only state is EINVAL.
// On success the transaction holds its own mapping and stays active until
// Abort, Commit or Close, regardless of what happens to st.
func (t *Transaction) Start(st *State, perms Permission) error {
	const op = "transaction start"
	if t == nil {
		return newError(op, "", unix.EINVAL, ErrNilHandle)
	}
	if t.Active() {
		return newError(op, t.Name(), unix.EINVAL, ErrAlreadyActive)
	}
	if st == nil {
		return newError(op, "", unix.EINVAL, ErrNilHandle)
	}
	if !st.Subscribed() {
		return newError(op, "", unix.EINVAL, ErrUnsubscribed)
	}
	if err := ValidatePermissions(perms); err != nil {
		return err
	}
	perms = perms.normalize()
	if perms.CanWrite() && !st.Permissions().CanWrite() {
		return newError(op, st.Name(), unix.EINVAL, ErrPermissionEscalation)
	}

	seg, err := shm.Open(st.name, perms.CanWrite())
	if err != nil {
		return newError(op, st.Name(), errnoOf(err), err)
	}
	// The name could have been unlinked and recreated unsized since the
	// state attached; never map a region the creator has not sized.
	if sz, serr := seg.Size(); serr != nil || sz < int64(RegionSize()) {
		unwindSegment(op, st.Name(), seg)
		if serr != nil {
			return newError(op, st.Name(), errnoOf(serr), serr)
		}
		return newError(op, st.Name(), unix.EAGAIN,
			fmt.Errorf("segment sized %d of %d bytes, creator not done", sz, RegionSize()))
	}
	view, err := seg.Map(RegionSize(), perms.CanWrite())
	// The mapping outlives the descriptor; the transaction keeps only the
	// mapping.
	if cerr := seg.Close(); cerr != nil {
		internalLogger.warnf("transaction start %s: closing segment fd: %v", st.Name(), cerr)
		unwindFailuresTotal.Inc()
	}
	if err != nil {
		return newError(op, st.Name(), errnoOf(err), err)
	}

	t.name = st.name
	t.perms = perms
	t.view = view

	transactionsStartedTotal.Inc()
	activeTransactions.Inc()
	recordLifecycleEvent(EventTxnStart, t.Name(), formatTxnID(t.id))
	internalLogger.debugf("transaction %d started on %s perms=%s", t.id, t.Name(), perms)
	return nil
}

func (t *Transaction) finish(op string, ev EventOp) error {
	if t == nil {
		return newError(op, "", unix.EINVAL, ErrNilHandle)
	}
	if !t.Active() {
		return newError(op, "", unix.EINVAL, ErrNotActive)
	}
	name := t.Name()
	id := t.id

	err := t.view.Unmap()
	t.name = ""
	t.perms = 0
	t.view = nil

	activeTransactions.Dec()
	recordLifecycleEvent(ev, name, formatTxnID(id))
	if err != nil {
		unwindFailuresTotal.Inc()
		internalLogger.warnf("%s %s: unmap reported: %v", op, name, err)
		return newError(op, name, errnoOf(err), err)
	}
	internalLogger.debugf("transaction %d finished (%s) on %s", id, op, name)
	return nil
}

// Abort ends the transaction and releases its view. Nothing is rolled
// back: writes made through the view were already shared the moment they
// happened. Aborting an inactive transaction is EINVAL.
func (t *Transaction) Abort() error {
	err := t.finish("abort", EventTxnAbort)
	if err == nil {
		transactionAbortsTotal.Inc()
	}
	return err
}

// Commit ends the transaction and releases its view. The shared region
// already holds every write made through the view, so commit differs from
// Abort only in its label and recorded event. Committing an inactive
// transaction is EINVAL.
func (t *Transaction) Commit() error {
	err := t.finish("commit", EventTxnCommit)
	if err == nil {
		transactionCommitsTotal.Inc()
	}
	return err
}

// Close destroys the transaction, aborting first when active. Closing an
// inactive transaction is a no-op, never an error.
func (t *Transaction) Close() error {
	if t == nil || !t.Active() {
		return nil
	}
	return t.Abort()
}

// Active reports whether the transaction currently holds a view.
func (t *Transaction) Active() bool {
	return t != nil && t.name != ""
}

// Name returns the name of the state the transaction was started on, or ""
// when inactive.
func (t *Transaction) Name() string {
	if !t.Active() {
		return ""
	}
	return t.name[1:]
}

// Permissions returns the transaction's permission mask, or 0 when
// inactive.
func (t *Transaction) Permissions() Permission {
	if !t.Active() {
		return 0
	}
	return t.perms
}

// Bytes returns the transaction's private mapping of the shared region, or
// nil when inactive. It must not be retained across Abort, Commit or
// Close.
func (t *Transaction) Bytes() []byte {
	if !t.Active() {
		return nil
	}
	return t.view
}

// ID returns the transaction's process-unique id while active and 0 when
// inactive.
func (t *Transaction) ID() uint64 {
	if !t.Active() {
		return 0
	}
	return t.id
}

func formatTxnID(id uint64) string { return strconv.FormatUint(id, 10) }
