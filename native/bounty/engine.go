package bounty

import (
	"fmt"

	"vulnera/core"
	"vulnera/core/state"
	"vulnera/crypto"
	"vulnera/observability/metrics"
)

// Engine is the bounty escrow program: a per-owner vault holding lamports,
// four state transitions, and nothing else. All validation happens freshly
// inside each invocation; nothing is cached across calls. Submission-count
// enforcement is deliberately delegated to the off-chain backend, which hands
// the counters in as plain arguments; the program's sole responsibility is
// safe fund movement given whatever counters it receives.
type Engine struct {
	metrics *metrics.RuntimeMetrics
}

// NewEngine creates the program handler.
func NewEngine() *Engine {
	return &Engine{metrics: metrics.Runtime()}
}

// Execute routes instruction data to the matching handler by its 8-byte
// discriminator.
func (e *Engine) Execute(ctx *core.ExecContext) error {
	if len(ctx.Data) < 8 {
		return fmt.Errorf("%w: %d bytes", ErrInvalidInstructionData, len(ctx.Data))
	}
	var disc [8]byte
	copy(disc[:], ctx.Data[:8])
	payload := ctx.Data[8:]

	switch disc {
	case InitializeDiscriminator:
		args, err := decodeInitializeArgs(payload)
		if err != nil {
			return err
		}
		return e.initialize(ctx, args)
	case DepositDiscriminator:
		args, err := decodeDepositArgs(payload)
		if err != nil {
			return err
		}
		return e.deposit(ctx, args)
	case ProcessPaymentDiscriminator:
		args, err := decodeProcessPaymentArgs(payload)
		if err != nil {
			return err
		}
		return e.processPayment(ctx, args)
	case CloseBountyDiscriminator:
		args, err := decodeCloseBountyArgs(payload)
		if err != nil {
			return err
		}
		return e.closeBounty(ctx, args)
	default:
		return fmt.Errorf("%w: discriminator %x", ErrInvalidInstructionData, disc)
	}
}

// initialize creates the vault at the owner's derived address and funds the
// initial escrow plus the rent reserve. No event: callers infer success from
// transaction confirmation.
func (e *Engine) initialize(ctx *core.ExecContext, args InitializeArgs) error {
	vaultKey, ownerKey, err := resolveVaultAccounts(ctx, vaultOwnerSystemAccounts, ixOwnerIndex+1)
	if err != nil {
		return err
	}
	if DeriveVaultAddress(ownerKey) != vaultKey {
		return ErrVaultSeedsConstraint
	}
	if args.EscrowAmount == 0 {
		return ErrInvalidEscrowAmount
	}
	if _, ok, err := ctx.GetAccount(vaultKey); err != nil {
		return err
	} else if ok {
		return ErrAccountAlreadyInUse
	}

	rent := state.RentExemptMinimum(EscrowAccountSize)
	total, err := checkedAdd(rent, args.EscrowAmount)
	if err != nil {
		return err
	}
	if err := ctx.Transfer(ownerKey, vaultKey, total); err != nil {
		return err
	}

	escrow := &BountyEscrow{Owner: ownerKey, EscrowAmount: args.EscrowAmount}
	return e.storeVault(ctx, vaultKey, escrow)
}

// deposit adds funds to an existing vault. Overflow is checked before any
// lamports move so a failed deposit touches nothing.
func (e *Engine) deposit(ctx *core.ExecContext, args DepositArgs) error {
	vaultKey, ownerKey, err := resolveVaultAccounts(ctx, vaultOwnerSystemAccounts, ixOwnerIndex+1)
	if err != nil {
		return err
	}
	escrow, err := e.loadVault(ctx, vaultKey, ownerKey)
	if err != nil {
		return err
	}

	newAmount, err := checkedAdd(escrow.EscrowAmount, args.Amount)
	if err != nil {
		return err
	}
	if err := ctx.Transfer(ownerKey, vaultKey, args.Amount); err != nil {
		return err
	}
	escrow.EscrowAmount = newAmount
	return e.storeVault(ctx, vaultKey, escrow)
}

// processPayment pays a hunter for an approved submission and routes the
// platform fee. Validation order matters and is part of the contract:
// submission cap, payout resolution, fee arithmetic, balance check, debit.
func (e *Engine) processPayment(ctx *core.ExecContext, args ProcessPaymentArgs) error {
	vaultKey, ownerKey, err := resolveVaultAccounts(ctx, paymentAccounts, paymentSystemIndex)
	if err != nil {
		return err
	}
	hunterKey := ctx.Metas[paymentHunterIndex].PublicKey
	platformKey := ctx.Metas[paymentPlatformIndex].PublicKey
	escrow, err := e.loadVault(ctx, vaultKey, ownerKey)
	if err != nil {
		return err
	}

	if args.CurrentPaidSubmissions >= args.MaxSubmissions {
		return ErrMaxSubmissionsReached
	}

	gross := args.RewardPerSubmission
	if args.CustomAmount != nil {
		gross = *args.CustomAmount
	}
	fee := platformFee(gross)
	net, err := checkedSub(gross, fee)
	if err != nil {
		return err
	}

	if escrow.EscrowAmount < gross {
		return ErrInsufficientFunds
	}
	newAmount, err := checkedSub(escrow.EscrowAmount, gross)
	if err != nil {
		// Unreachable after the balance check, defended anyway.
		return err
	}

	if err := ctx.Transfer(vaultKey, hunterKey, net); err != nil {
		return err
	}
	if err := ctx.Transfer(vaultKey, platformKey, fee); err != nil {
		return err
	}
	escrow.EscrowAmount = newAmount
	if err := e.storeVault(ctx, vaultKey, escrow); err != nil {
		return err
	}

	ctx.EmitEvent(NewPaymentProcessedEvent(&PaymentProcessed{
		BountyID:     args.BountyID,
		SubmissionID: args.SubmissionID,
		HunterWallet: hunterKey,
		Amount:       gross,
		PlatformFee:  fee,
	}))
	e.metrics.ObservePayout(gross, fee)
	return nil
}

// closeBounty returns every remaining lamport, rent reserve included, to the
// owner and deallocates the vault. Valid at any balance.
func (e *Engine) closeBounty(ctx *core.ExecContext, args CloseBountyArgs) error {
	vaultKey, ownerKey, err := resolveVaultAccounts(ctx, vaultOwnerSystemAccounts, ixOwnerIndex+1)
	if err != nil {
		return err
	}
	escrow, err := e.loadVault(ctx, vaultKey, ownerKey)
	if err != nil {
		return err
	}

	vault, ok, err := ctx.GetAccount(vaultKey)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAccountNotInitialized
	}
	remaining := escrow.EscrowAmount
	if err := ctx.Transfer(vaultKey, ownerKey, vault.Lamports); err != nil {
		return err
	}
	if err := ctx.DeleteAccount(vaultKey); err != nil {
		return err
	}

	ctx.EmitEvent(NewBountyClosedEvent(&BountyClosed{
		BountyID:        args.BountyID,
		RemainingAmount: remaining,
	}))
	return nil
}

// resolveVaultAccounts validates the shared account-list prefix: vault at
// index 0 (writable), owner at index 1 (signer), and the system program at
// systemIndex. Returns the vault and owner keys.
func resolveVaultAccounts(ctx *core.ExecContext, minAccounts, systemIndex int) (crypto.PublicKey, crypto.PublicKey, error) {
	var zero crypto.PublicKey
	if len(ctx.Metas) < minAccounts {
		return zero, zero, fmt.Errorf("%w: expected %d accounts, got %d", ErrInvalidInstructionData, minAccounts, len(ctx.Metas))
	}
	vault := ctx.Metas[ixVaultIndex]
	owner := ctx.Metas[ixOwnerIndex]
	if !vault.IsWritable {
		return zero, zero, fmt.Errorf("%w: vault account must be writable", ErrInvalidInstructionData)
	}
	if !owner.IsSigner || !ctx.IsSigner(owner.PublicKey) {
		return zero, zero, ErrAccountNotSigner
	}
	if ctx.Metas[systemIndex].PublicKey != SystemProgramID {
		return zero, zero, ErrInvalidProgramID
	}
	return vault.PublicKey, owner.PublicKey, nil
}

// loadVault fetches and decodes the vault, enforcing the owner relation
// constraint: the signing owner must be the one recorded at creation.
func (e *Engine) loadVault(ctx *core.ExecContext, vaultKey, ownerKey crypto.PublicKey) (*BountyEscrow, error) {
	vault, ok, err := ctx.GetAccount(vaultKey)
	if err != nil {
		return nil, err
	}
	if !ok || vault.Owner != ProgramID {
		return nil, ErrAccountNotInitialized
	}
	escrow, err := UnmarshalBountyEscrow(vault.Data)
	if err != nil {
		return nil, err
	}
	if escrow.Owner != ownerKey {
		return nil, ErrOwnerConstraint
	}
	return escrow, nil
}

// storeVault writes the escrow record back and asserts the tracked counter
// matches the vault's actual balance minus the rent reserve.
func (e *Engine) storeVault(ctx *core.ExecContext, vaultKey crypto.PublicKey, escrow *BountyEscrow) error {
	vault, ok, err := ctx.GetAccount(vaultKey)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAccountNotInitialized
	}
	vault.Owner = ProgramID
	vault.Data = escrow.MarshalBinary()
	if err := ctx.PutAccount(vaultKey, vault); err != nil {
		return err
	}
	want, err := checkedAdd(state.RentExemptMinimum(EscrowAccountSize), escrow.EscrowAmount)
	if err != nil {
		return err
	}
	if vault.Lamports != want {
		return fmt.Errorf("bounty: vault balance %d diverged from tracked escrow %d", vault.Lamports, escrow.EscrowAmount)
	}
	return nil
}

var _ core.Program = (*Engine)(nil)
