package reconciler

import (
	"context"
	"errors"
	"time"

	"vulnera/core"
)

// ErrConfirmationTimeout is returned when a transaction is still not visible
// after the configured number of polling attempts.
var ErrConfirmationTimeout = errors.New("reconciler: transaction confirmation timed out")

// ConfirmPolicy bounds the confirmation polling loop: a fixed delay between
// attempts and a hard attempt cap, after which the caller gives up and
// surfaces the failure. Program-level errors are terminal; the reconciler
// never retries a landed transaction.
type ConfirmPolicy struct {
	Attempts int
	Delay    time.Duration
}

// DefaultConfirmPolicy mirrors the backend's production settings.
var DefaultConfirmPolicy = ConfirmPolicy{Attempts: 10, Delay: 2 * time.Second}

// WaitForConfirmation polls the node until the transaction is visible or the
// policy is exhausted. A landed-but-failed transaction is returned with its
// status and no error: deciding what to do with a program error is the
// caller's job.
func WaitForConfirmation(ctx context.Context, node NodeClient, txID string, policy ConfirmPolicy) (*core.TransactionStatus, error) {
	attempts := policy.Attempts
	if attempts <= 0 {
		attempts = DefaultConfirmPolicy.Attempts
	}
	delay := policy.Delay
	if delay <= 0 {
		delay = DefaultConfirmPolicy.Delay
	}
	for i := 0; i < attempts; i++ {
		status, err := node.GetTransaction(ctx, txID)
		if err == nil {
			return status, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, ErrConfirmationTimeout
}
