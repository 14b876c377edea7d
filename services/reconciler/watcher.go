package reconciler

import (
	"context"
	"log/slog"
	"time"

	"vulnera/core/types"
	"vulnera/native/bounty"
)

// EventWatcher periodically pulls events from the node and mirrors payouts
// and closures into the local store.
type EventWatcher struct {
	node         NodeClient
	store        *Store
	logger       *slog.Logger
	pollInterval time.Duration
	batchSize    int
	nowFn        func() time.Time
}

// NewEventWatcher constructs a watcher with sane defaults.
func NewEventWatcher(node NodeClient, store *Store, logger *slog.Logger) *EventWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventWatcher{
		node:         node,
		store:        store,
		logger:       logger,
		pollInterval: 5 * time.Second,
		batchSize:    100,
		nowFn:        time.Now,
	}
}

// SetPollInterval overrides the polling cadence. Intended for tests.
func (w *EventWatcher) SetPollInterval(interval time.Duration) {
	if interval > 0 {
		w.pollInterval = interval
	}
}

// Run starts the polling loop until the context is cancelled.
func (w *EventWatcher) Run(ctx context.Context) {
	if w.node == nil || w.store == nil {
		return
	}
	after, err := w.store.LastEventSequence(ctx)
	if err != nil {
		w.logger.Warn("load event cursor", "error", err)
	}
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			after = w.Poll(ctx, after)
		}
	}
}

// Poll fetches one batch of events after the given sequence and returns the
// new high-water mark. Fetch errors leave the cursor unchanged; the next tick
// retries.
func (w *EventWatcher) Poll(ctx context.Context, after uint64) uint64 {
	events, err := w.node.FetchEvents(ctx, after, w.batchSize)
	if err != nil {
		w.logger.Warn("fetch events", "error", err, "after", after)
		return after
	}
	if len(events) == 0 {
		return after
	}
	lastSeq := after
	for _, evt := range events {
		if evt == nil || evt.Sequence <= lastSeq {
			continue
		}
		w.handleEvent(ctx, evt)
		lastSeq = evt.Sequence
	}
	if err := w.store.UpdateEventSequence(ctx, lastSeq); err != nil {
		w.logger.Warn("update event cursor", "error", err)
	}
	return lastSeq
}

func (w *EventWatcher) handleEvent(ctx context.Context, evt *types.Event) {
	createdAt := w.nowFn().UTC()
	switch evt.Type {
	case bounty.EventTypePaymentProcessed:
		decoded, err := bounty.DecodePaymentProcessed(evt.Data)
		if err != nil {
			w.logger.Warn("decode payment event", "sequence", evt.Sequence, "error", err)
			return
		}
		err = w.store.InsertPayout(ctx, Payout{
			Sequence:     evt.Sequence,
			TxID:         evt.TxID,
			BountyID:     decoded.BountyID,
			SubmissionID: decoded.SubmissionID,
			HunterWallet: decoded.HunterWallet.String(),
			Amount:       decoded.Amount,
			PlatformFee:  decoded.PlatformFee,
			CreatedAt:    createdAt,
		})
		if err != nil {
			w.logger.Warn("mirror payout", "sequence", evt.Sequence, "error", err)
		}
	case bounty.EventTypeBountyClosed:
		decoded, err := bounty.DecodeBountyClosed(evt.Data)
		if err != nil {
			w.logger.Warn("decode closure event", "sequence", evt.Sequence, "error", err)
			return
		}
		err = w.store.InsertClosure(ctx, Closure{
			Sequence:        evt.Sequence,
			TxID:            evt.TxID,
			BountyID:        decoded.BountyID,
			RemainingAmount: decoded.RemainingAmount,
			CreatedAt:       createdAt,
		})
		if err != nil {
			w.logger.Warn("mirror closure", "sequence", evt.Sequence, "error", err)
		}
	default:
		// Unknown event types are skipped; the cursor still advances so a
		// poison event cannot wedge the mirror.
	}
}
