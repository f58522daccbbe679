//go:build linux

package shmstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestTransactionLifecycle(t *testing.T) {
	st := newSubscribedState(t, "txn.lifecycle", PermWrite)

	mgr := NewTransactionManager()
	txn := mgr.NewTransaction()
	assert.False(t, txn.Active())
	assert.EqualValues(t, 0, txn.ID())
	assert.Equal(t, "", txn.Name())
	assert.Nil(t, txn.Bytes())

	require.NoError(t, txn.Start(st, PermRead|PermWrite))
	assert.True(t, txn.Active())
	assert.Equal(t, st.Name(), txn.Name())
	assert.Equal(t, PermRead|PermWrite, txn.Permissions())
	assert.Len(t, txn.Bytes(), RegionSize())
	assert.NotZero(t, txn.ID())

	require.NoError(t, txn.Commit())
	assert.False(t, txn.Active())
	assert.Equal(t, "", txn.Name())
	assert.Equal(t, Permission(0), txn.Permissions())
	assert.Nil(t, txn.Bytes())
	assert.EqualValues(t, 0, txn.ID())
}

func TestTransactionWriteImpliesRead(t *testing.T) {
	st := newSubscribedState(t, "txn.implies", PermWrite)

	txn := NewTransactionManager().NewTransaction()
	require.NoError(t, txn.Start(st, PermWrite))
	assert.Equal(t, PermRead|PermWrite, txn.Permissions())
	require.NoError(t, txn.Abort())
}

func TestTransactionWritesShared(t *testing.T) {
	st := newSubscribedState(t, "txn.shared", PermWrite)

	txn := NewTransactionManager().NewTransaction()
	require.NoError(t, txn.Start(st, PermWrite))
	copy(txn.Bytes(), "txn payload")
	require.NoError(t, txn.Commit())

	assert.Equal(t, []byte("txn payload"), st.Bytes()[:11])
}

func TestTransactionPermissionEscalation(t *testing.T) {
	// Seed the segment with a writer, then hold it read-only.
	name := testName("txn.escalate")
	cleanupSegment(t, name)
	seed := NewState()
	require.NoError(t, seed.Subscribe(name, PermWrite))
	require.NoError(t, seed.Unsubscribe())

	st := NewState()
	require.NoError(t, st.Subscribe(name, PermRead))
	defer st.Close()

	txn := NewTransactionManager().NewTransaction()
	err := txn.Start(st, PermWrite)
	require.Error(t, err)
	assert.ErrorIs(t, err, unix.EINVAL)
	assert.ErrorIs(t, err, ErrPermissionEscalation)
	assert.False(t, txn.Active())
	assert.True(t, st.Subscribed())

	// Read-only transactions on a read-only state are fine.
	require.NoError(t, txn.Start(st, PermRead))
	assert.False(t, txn.Permissions().CanWrite())
	require.NoError(t, txn.Abort())
}

func TestTransactionSurvivesUnsubscribe(t *testing.T) {
	st := newSubscribedState(t, "txn.survives", PermWrite)

	txn := NewTransactionManager().NewTransaction()
	require.NoError(t, txn.Start(st, PermWrite))
	require.NoError(t, st.Unsubscribe())

	assert.True(t, txn.Active())
	copy(txn.Bytes(), "after unsubscribe")
	require.NoError(t, txn.Commit())
}

func TestTransactionDoubleFinalize(t *testing.T) {
	st := newSubscribedState(t, "txn.double", PermWrite)
	mgr := NewTransactionManager()

	cases := []struct {
		name          string
		first, second func(*Transaction) error
	}{
		{"abort then abort", (*Transaction).Abort, (*Transaction).Abort},
		{"commit then commit", (*Transaction).Commit, (*Transaction).Commit},
		{"commit then abort", (*Transaction).Commit, (*Transaction).Abort},
		{"abort then commit", (*Transaction).Abort, (*Transaction).Commit},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			txn := mgr.NewTransaction()
			require.NoError(t, txn.Start(st, PermRead))
			require.NoError(t, tc.first(txn))

			err := tc.second(txn)
			require.Error(t, err)
			assert.ErrorIs(t, err, unix.EINVAL)
			assert.ErrorIs(t, err, ErrNotActive)
		})
	}
}

func TestTransactionStartErrors(t *testing.T) {
	st := newSubscribedState(t, "txn.starterr", PermWrite)
	mgr := NewTransactionManager()

	var nilTxn *Transaction
	assert.ErrorIs(t, nilTxn.Start(st, PermRead), unix.EINVAL)

	txn := mgr.NewTransaction()
	assert.ErrorIs(t, txn.Start(nil, PermRead), unix.EINVAL)

	empty := NewState()
	err := txn.Start(empty, PermRead)
	assert.ErrorIs(t, err, unix.EINVAL)
	assert.ErrorIs(t, err, ErrUnsubscribed)

	assert.ErrorIs(t, txn.Start(st, 0), unix.EINVAL)
	assert.False(t, txn.Active())

	require.NoError(t, txn.Start(st, PermRead))
	err = txn.Start(st, PermRead)
	assert.ErrorIs(t, err, unix.EINVAL)
	assert.ErrorIs(t, err, ErrAlreadyActive)
	assert.True(t, txn.Active())
	require.NoError(t, txn.Close())
}

func TestTransactionIDsDistinct(t *testing.T) {
	st := newSubscribedState(t, "txn.ids", PermWrite)
	mgr := NewTransactionManager()

	a := mgr.NewTransaction()
	b := mgr.NewTransaction()
	require.NoError(t, a.Start(st, PermRead))
	require.NoError(t, b.Start(st, PermRead))
	assert.NotZero(t, a.ID())
	assert.NotZero(t, b.ID())
	assert.NotEqual(t, a.ID(), b.ID())

	// Closing one leaves the other untouched.
	require.NoError(t, a.Close())
	assert.True(t, b.Active())
	assert.Len(t, b.Bytes(), RegionSize())
	require.NoError(t, b.Close())
}

func TestTransactionCloseInactive(t *testing.T) {
	txn := NewTransactionManager().NewTransaction()
	assert.NoError(t, txn.Close())

	var nilTxn *Transaction
	assert.NoError(t, nilTxn.Close())
}
