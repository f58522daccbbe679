package shmstate

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sys/unix"
)

// SubscribeWait subscribes st to name, retrying while the backing segment
// does not exist or is not fully sized yet. It serves the reader that knows
// a writer is coming up but has not created the state; plain Subscribe
// would return ENOENT (nothing there) or EAGAIN (created, not sized).
// Validation failures and every other error return immediately, as does a
// subscribe that succeeds. The context bounds the wait.
func SubscribeWait(ctx context.Context, st *State, name string, perms Permission) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 5 * time.Millisecond
	bo.MaxInterval = 250 * time.Millisecond
	bo.MaxElapsedTime = 0 // the context bounds the wait
	return backoff.Retry(func() error {
		err := st.Subscribe(name, perms)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, unix.ENOENT), errors.Is(err, unix.EAGAIN):
			return err
		default:
			return backoff.Permanent(err)
		}
	}, backoff.WithContext(bo, ctx))
}
