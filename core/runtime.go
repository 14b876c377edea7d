package core

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"vulnera/core/events"
	"vulnera/core/state"
	"vulnera/core/types"
	"vulnera/crypto"
	"vulnera/observability/metrics"
)

var (
	// ErrUnknownProgram is returned when a transaction targets a program id
	// with no registered handler.
	ErrUnknownProgram = errors.New("runtime: unknown program")
	// ErrUnauthorizedDebit is returned when lamports would leave an account
	// that neither signed the transaction nor is owned by the executing
	// program. This is the authority-proof half of the derived-address
	// scheme: only the owning program can move funds out of its accounts.
	ErrUnauthorizedDebit = errors.New("runtime: debit from account without transfer authority")
	// ErrForeignAccount is returned when a program tries to rewrite or
	// deallocate an account it does not own.
	ErrForeignAccount = errors.New("runtime: account not owned by executing program")
)

// CodedError is implemented by program errors that carry a stable numeric
// code for off-chain mapping.
type CodedError interface {
	error
	ErrorCode() uint32
	ErrorMessage() string
}

// Program executes instructions routed to its program id. A returned error
// aborts the transaction with no visible state change.
type Program interface {
	Execute(ctx *ExecContext) error
}

// ExecContext is the view a program gets of the transaction being executed:
// the ordered account metas, the instruction payload, signer information and
// a buffered event sink. All state access goes through the per-transaction
// overlay, so nothing a program does is visible until the runtime commits.
type ExecContext struct {
	TxID      string
	ProgramID crypto.PublicKey
	Metas     []types.AccountMeta
	Data      []byte

	accounts *state.Overlay
	signers  map[crypto.PublicKey]bool
	emitted  []*types.Event
}

// IsSigner reports whether the given account signed the transaction.
func (ctx *ExecContext) IsSigner(key crypto.PublicKey) bool {
	return ctx.signers[key]
}

// GetAccount loads an account through the transaction overlay.
func (ctx *ExecContext) GetAccount(key crypto.PublicKey) (*types.Account, bool, error) {
	return ctx.accounts.GetAccount(key)
}

// PutAccount stores a program-owned account. Programs may not rewrite
// accounts owned by other programs.
func (ctx *ExecContext) PutAccount(key crypto.PublicKey, account *types.Account) error {
	existing, ok, err := ctx.accounts.GetAccount(key)
	if err != nil {
		return err
	}
	if ok && !existing.Owner.IsZero() && existing.Owner != ctx.ProgramID {
		return ErrForeignAccount
	}
	return ctx.accounts.PutAccount(key, account)
}

// DeleteAccount deallocates a program-owned account.
func (ctx *ExecContext) DeleteAccount(key crypto.PublicKey) error {
	existing, ok, err := ctx.accounts.GetAccount(key)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if existing.Owner != ctx.ProgramID {
		return ErrForeignAccount
	}
	return ctx.accounts.DeleteAccount(key)
}

// Transfer moves lamports between accounts. The source must either have
// signed the transaction or be owned by the executing program; the
// destination is created as a system account when missing.
func (ctx *ExecContext) Transfer(from, to crypto.PublicKey, amount uint64) error {
	if amount == 0 {
		return nil
	}
	source, ok, err := ctx.accounts.GetAccount(from)
	if err != nil {
		return err
	}
	if !ctx.IsSigner(from) && (!ok || source.Owner != ctx.ProgramID) {
		return fmt.Errorf("%w: %s", ErrUnauthorizedDebit, from)
	}
	if err := state.DebitLamports(ctx.accounts, from, amount); err != nil {
		return err
	}
	return state.CreditLamports(ctx.accounts, to, amount)
}

// EmitEvent buffers an event. Buffered events reach the log only if the
// transaction commits; a failed instruction emits nothing.
func (ctx *ExecContext) EmitEvent(evt *types.Event) {
	if evt == nil {
		return
	}
	evt.TxID = ctx.TxID
	ctx.emitted = append(ctx.emitted, evt)
}

// TransactionStatus is the runtime's record of a landed transaction, polled
// by off-chain reconcilers for confirmation.
type TransactionStatus struct {
	TxID         string   `json:"txId"`
	Slot         uint64   `json:"slot"`
	Success      bool     `json:"success"`
	ErrorCode    *uint32  `json:"errorCode,omitempty"`
	ErrorMessage string   `json:"errorMessage,omitempty"`
	Events       []uint64 `json:"events,omitempty"`
	Timestamp    int64    `json:"timestamp"`
}

type runtimeEvent struct {
	evt *types.Event
}

func (e runtimeEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e runtimeEvent) Event() *types.Event { return e.evt }

// Runtime applies transactions against the account store one at a time,
// mirroring the host ledger's per-account serialization: an instruction
// either fully applies or has no effect. There is no internal concurrency;
// the mutex is the account-locking boundary.
type Runtime struct {
	mu       sync.Mutex
	state    *state.Manager
	programs map[crypto.PublicKey]Program
	emitter  events.Emitter
	logger   *slog.Logger
	metrics  *metrics.RuntimeMetrics
	nowFn    func() int64

	slot     uint64
	eventLog []*types.Event
	statuses map[string]*TransactionStatus
}

// NewRuntime creates a runtime over the given account manager.
func NewRuntime(mgr *state.Manager, logger *slog.Logger) *Runtime {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runtime{
		state:    mgr,
		programs: make(map[crypto.PublicKey]Program),
		emitter:  events.NoopEmitter{},
		logger:   logger,
		metrics:  metrics.Runtime(),
		nowFn:    func() int64 { return time.Now().Unix() },
		statuses: make(map[string]*TransactionStatus),
	}
}

// RegisterProgram routes instructions targeting id to the given program.
func (r *Runtime) RegisterProgram(id crypto.PublicKey, program Program) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.programs[id] = program
}

// SetEmitter configures an external event subscriber. Passing nil resets to a
// no-op emitter.
func (r *Runtime) SetEmitter(emitter events.Emitter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	r.emitter = emitter
}

// SetNowFunc overrides the timestamp source. Intended for tests.
func (r *Runtime) SetNowFunc(now func() int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
	}
	r.nowFn = now
}

// Execute applies one transaction. A signature failure or unknown program
// means the transaction does not land at all (error return, no status); a
// program error lands as a failed transaction with no state change.
func (r *Runtime) Execute(tx *types.Transaction) (*TransactionStatus, error) {
	if tx == nil {
		return nil, errors.New("runtime: nil transaction")
	}
	txID, err := tx.ID()
	if err != nil {
		return nil, err
	}
	if err := tx.VerifySignatures(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	program, ok := r.programs[tx.Instruction.ProgramID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProgram, tx.Instruction.ProgramID)
	}

	signers := make(map[crypto.PublicKey]bool, len(tx.Signatures))
	for _, sig := range tx.Signatures {
		signers[sig.PublicKey] = true
	}

	ctx := &ExecContext{
		TxID:      txID,
		ProgramID: tx.Instruction.ProgramID,
		Metas:     tx.Instruction.Accounts,
		Data:      tx.Instruction.Data,
		accounts:  state.NewOverlay(r.state),
		signers:   signers,
	}

	r.slot++
	status := &TransactionStatus{
		TxID:      txID,
		Slot:      r.slot,
		Timestamp: r.nowFn(),
	}

	if execErr := program.Execute(ctx); execErr != nil {
		// Discarding the overlay leaves the store byte-identical.
		var coded CodedError
		if errors.As(execErr, &coded) {
			code := coded.ErrorCode()
			status.ErrorCode = &code
			status.ErrorMessage = coded.ErrorMessage()
			r.metrics.ObserveProgramError(code)
		} else {
			status.ErrorMessage = execErr.Error()
		}
		r.metrics.ObserveTransaction(false)
		r.logger.Info("transaction failed",
			"txId", txID, "slot", status.Slot, "error", execErr.Error())
		r.statuses[txID] = status
		return status, nil
	}

	if err := ctx.accounts.Commit(); err != nil {
		return nil, fmt.Errorf("runtime: commit: %w", err)
	}
	for _, evt := range ctx.emitted {
		evt.Sequence = uint64(len(r.eventLog) + 1)
		r.eventLog = append(r.eventLog, evt)
		status.Events = append(status.Events, evt.Sequence)
		r.emitter.Emit(runtimeEvent{evt: evt})
	}
	status.Success = true
	r.statuses[txID] = status
	r.metrics.ObserveTransaction(true)
	r.metrics.ObserveEvents(len(ctx.emitted))
	r.logger.Info("transaction executed",
		"txId", txID, "slot", status.Slot, "events", len(ctx.emitted))
	return status, nil
}

// GetAccount reads an account from committed state.
func (r *Runtime) GetAccount(key crypto.PublicKey) (*types.Account, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.GetAccount(key)
}

// Status returns the record of a landed transaction.
func (r *Runtime) Status(txID string) (*TransactionStatus, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	status, ok := r.statuses[txID]
	return status, ok
}

// EventsAfter returns up to limit events with sequence numbers greater than
// after, in order.
func (r *Runtime) EventsAfter(after uint64, limit int) []*types.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 {
		limit = 100
	}
	if after >= uint64(len(r.eventLog)) {
		return nil
	}
	end := int(after) + limit
	if end > len(r.eventLog) {
		end = len(r.eventLog)
	}
	out := make([]*types.Event, end-int(after))
	copy(out, r.eventLog[after:end])
	return out
}

// CurrentSlot returns the number of transactions that have landed.
func (r *Runtime) CurrentSlot() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.slot
}
