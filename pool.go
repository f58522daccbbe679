package shmstate

import (
	"sync"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/sys/unix"
)

// PoolConfig sizes a TransactionPool.
type PoolConfig struct {
	// Workers bounds concurrently running tasks. Default 8.
	Workers int
}

// TransactionPool runs tasks that each need a short-lived transaction on
// one state. Handles are single-owner, so the pool never shares a
// Transaction between tasks: every task gets its own, started before the
// task runs and finished after it returns. A task that returns nil gets its
// transaction committed, a task that returns an error gets it aborted, and
// a task that finalized the transaction itself is left alone.
//
// The state must stay subscribed until Wait or Close returns.
type TransactionPool struct {
	state   *State
	perms   Permission
	manager *TransactionManager
	pool    *ants.Pool
	wg      sync.WaitGroup

	mu       sync.Mutex
	firstErr error
}

// NewTransactionPool builds a pool whose tasks see st through transactions
// carrying perms.
func NewTransactionPool(st *State, perms Permission, cfg PoolConfig) (*TransactionPool, error) {
	const op = "transaction pool"
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if err := ValidatePermissions(perms); err != nil {
		return nil, err
	}
	if !st.Subscribed() {
		return nil, newError(op, "", unix.EINVAL, ErrUnsubscribed)
	}
	p, err := ants.NewPool(cfg.Workers)
	if err != nil {
		return nil, err
	}
	return &TransactionPool{
		state:   st,
		perms:   perms,
		manager: NewTransactionManager(),
		pool:    p,
	}, nil
}

// Go starts a transaction and submits the task. The task must not retain
// the transaction after returning. Go blocks while all workers are busy and
// fails fast when the transaction cannot be started.
func (p *TransactionPool) Go(task func(*Transaction) error) error {
	txn := p.manager.NewTransaction()
	if err := txn.Start(p.state, p.perms); err != nil {
		return err
	}
	p.wg.Add(1)
	err := p.pool.Submit(func() {
		defer p.wg.Done()
		p.run(txn, task)
	})
	if err != nil {
		p.wg.Done()
		if cerr := txn.Close(); cerr != nil {
			internalLogger.warnf("transaction pool: closing unsubmitted transaction: %v", cerr)
		}
		return err
	}
	return nil
}

func (p *TransactionPool) run(txn *Transaction, task func(*Transaction) error) {
	err := task(txn)
	if err != nil {
		p.mu.Lock()
		if p.firstErr == nil {
			p.firstErr = err
		}
		p.mu.Unlock()
	}
	if !txn.Active() {
		return
	}
	var ferr error
	if err != nil {
		ferr = txn.Abort()
	} else {
		ferr = txn.Commit()
	}
	if ferr != nil {
		internalLogger.warnf("transaction pool: finishing task transaction: %v", ferr)
	}
}

// Wait blocks until every submitted task has finished and returns the
// first task error, if any.
func (p *TransactionPool) Wait() error {
	p.wg.Wait()
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.firstErr
}

// Close waits for in-flight tasks and releases the workers.
func (p *TransactionPool) Close() error {
	err := p.Wait()
	p.pool.Release()
	return err
}
