// Package shmstate provides named, permissioned shared-memory "state"
// objects that independent processes attach to, read and write, plus a
// lightweight transaction abstraction giving a holder a private,
// independently-lifetimed view of a state's backing memory.
//
// Every state is one page of memory shared by name. Subscribing with write
// permission creates the backing segment on first use; read-only
// subscribers attach to what a writer created. The library imposes no
// layout on the page and no mutual exclusion between writers.
//
// Example usage:
//
//	st := shmstate.NewState()
//	if err := st.Subscribe("sensor.frame", shmstate.PermWrite); err != nil {
//		return err
//	}
//	defer st.Close()
//	copy(st.Bytes(), payload)
//
// Transactions snapshot a live subscription and survive it:
//
//	txn := shmstate.NewTransactionManager().NewTransaction()
//	if err := txn.Start(st, shmstate.PermRead); err != nil {
//		return err
//	}
//	defer txn.Close()
//
// Handles are single-owner: a State or Transaction must not be shared
// between goroutines without external coordination. The package-level
// registry, metrics and event trail are safe for concurrent use.
package shmstate
