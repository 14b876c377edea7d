package bounty

import (
	"bytes"
	"io"
	"log/slog"
	"reflect"
	"testing"

	"vulnera/core"
	"vulnera/core/state"
	"vulnera/core/types"
	"vulnera/crypto"
	"vulnera/storage"
)

const (
	lamportsPerSOL = uint64(1_000_000_000)
	testBountyID   = "bounty-7f3a"
	testSubmission = "submission-01"
)

type testLedger struct {
	runtime *core.Runtime
	manager *state.Manager
}

func newTestLedger(t *testing.T) *testLedger {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	mgr := state.NewManager(db)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rt := core.NewRuntime(mgr, logger)
	rt.RegisterProgram(ProgramID, NewEngine())
	return &testLedger{runtime: rt, manager: mgr}
}

func testKey(t *testing.T, fill byte) *crypto.PrivateKey {
	t.Helper()
	key, err := crypto.PrivateKeyFromSeed(bytes.Repeat([]byte{fill}, 32))
	if err != nil {
		t.Fatalf("key from seed: %v", err)
	}
	return key
}

func (l *testLedger) fund(t *testing.T, key crypto.PublicKey, lamports uint64) {
	t.Helper()
	if err := l.manager.PutAccount(key, &types.Account{Lamports: lamports}); err != nil {
		t.Fatalf("fund account: %v", err)
	}
}

func (l *testLedger) balance(t *testing.T, key crypto.PublicKey) uint64 {
	t.Helper()
	account, ok, err := l.runtime.GetAccount(key)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if !ok {
		return 0
	}
	return account.Lamports
}

func (l *testLedger) vault(t *testing.T, owner crypto.PublicKey) (*types.Account, *BountyEscrow) {
	t.Helper()
	account, ok, err := l.runtime.GetAccount(DeriveVaultAddress(owner))
	if err != nil {
		t.Fatalf("get vault: %v", err)
	}
	if !ok {
		return nil, nil
	}
	escrow, err := UnmarshalBountyEscrow(account.Data)
	if err != nil {
		t.Fatalf("decode vault: %v", err)
	}
	return account, escrow
}

func (l *testLedger) execute(t *testing.T, signer *crypto.PrivateKey, ix types.Instruction) *core.TransactionStatus {
	t.Helper()
	tx := &types.Transaction{Instruction: ix}
	if err := tx.Sign(signer); err != nil {
		t.Fatalf("sign: %v", err)
	}
	status, err := l.runtime.Execute(tx)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	return status
}

func requireSuccess(t *testing.T, status *core.TransactionStatus) {
	t.Helper()
	if !status.Success {
		t.Fatalf("expected success, got error %v (%s)", status.ErrorCode, status.ErrorMessage)
	}
}

func requireErrorCode(t *testing.T, status *core.TransactionStatus, want uint32) {
	t.Helper()
	if status.Success {
		t.Fatalf("expected error code %d, transaction succeeded", want)
	}
	if status.ErrorCode == nil {
		t.Fatalf("expected error code %d, got uncoded error %q", want, status.ErrorMessage)
	}
	if *status.ErrorCode != want {
		t.Fatalf("expected error code %d, got %d (%s)", want, *status.ErrorCode, status.ErrorMessage)
	}
}

func rentReserve() uint64 {
	return state.RentExemptMinimum(EscrowAccountSize)
}

func TestInitializeCreatesVault(t *testing.T) {
	ledger := newTestLedger(t)
	owner := testKey(t, 0x01)
	ledger.fund(t, owner.PubKey(), 5*lamportsPerSOL)

	status := ledger.execute(t, owner, NewInitializeInstruction(owner.PubKey(), lamportsPerSOL))
	requireSuccess(t, status)

	vault, escrow := ledger.vault(t, owner.PubKey())
	if vault == nil {
		t.Fatalf("vault account not created")
	}
	if escrow.EscrowAmount != lamportsPerSOL {
		t.Fatalf("escrow amount = %d, want %d", escrow.EscrowAmount, lamportsPerSOL)
	}
	if escrow.Owner != owner.PubKey() {
		t.Fatalf("vault owner mismatch")
	}
	if vault.Lamports != rentReserve()+lamportsPerSOL {
		t.Fatalf("vault lamports = %d, want rent+%d", vault.Lamports, lamportsPerSOL)
	}
	if got := ledger.balance(t, owner.PubKey()); got != 5*lamportsPerSOL-rentReserve()-lamportsPerSOL {
		t.Fatalf("owner balance = %d after initialize", got)
	}
	if events := ledger.runtime.EventsAfter(0, 10); len(events) != 0 {
		t.Fatalf("initialize must not emit events, got %d", len(events))
	}
}

func TestInitializeRejectsZeroAmount(t *testing.T) {
	ledger := newTestLedger(t)
	owner := testKey(t, 0x02)
	ledger.fund(t, owner.PubKey(), 5*lamportsPerSOL)

	status := ledger.execute(t, owner, NewInitializeInstruction(owner.PubKey(), 0))
	requireErrorCode(t, status, ErrInvalidEscrowAmount.Code)

	if vault, _ := ledger.vault(t, owner.PubKey()); vault != nil {
		t.Fatalf("vault must not exist after failed initialize")
	}
	if got := ledger.balance(t, owner.PubKey()); got != 5*lamportsPerSOL {
		t.Fatalf("owner balance changed on failed initialize: %d", got)
	}
}

func TestInitializeRejectsExistingVault(t *testing.T) {
	ledger := newTestLedger(t)
	owner := testKey(t, 0x03)
	ledger.fund(t, owner.PubKey(), 10*lamportsPerSOL)

	requireSuccess(t, ledger.execute(t, owner, NewInitializeInstruction(owner.PubKey(), lamportsPerSOL)))
	status := ledger.execute(t, owner, NewInitializeInstruction(owner.PubKey(), 2*lamportsPerSOL))
	requireErrorCode(t, status, ErrAccountAlreadyInUse.Code)

	_, escrow := ledger.vault(t, owner.PubKey())
	if escrow.EscrowAmount != lamportsPerSOL {
		t.Fatalf("escrow amount changed on failed re-initialize: %d", escrow.EscrowAmount)
	}
}

func TestInitializeRejectsForeignVaultAddress(t *testing.T) {
	ledger := newTestLedger(t)
	owner := testKey(t, 0x04)
	other := testKey(t, 0x05)
	ledger.fund(t, owner.PubKey(), 5*lamportsPerSOL)

	ix := NewInitializeInstruction(owner.PubKey(), lamportsPerSOL)
	ix.Accounts[0].PublicKey = DeriveVaultAddress(other.PubKey())
	status := ledger.execute(t, owner, ix)
	requireErrorCode(t, status, ErrVaultSeedsConstraint.Code)
}

func TestDepositIncreasesEscrow(t *testing.T) {
	ledger := newTestLedger(t)
	owner := testKey(t, 0x06)
	ledger.fund(t, owner.PubKey(), 5*lamportsPerSOL)
	requireSuccess(t, ledger.execute(t, owner, NewInitializeInstruction(owner.PubKey(), lamportsPerSOL)))

	requireSuccess(t, ledger.execute(t, owner, NewDepositInstruction(owner.PubKey(), 500_000_000)))

	vault, escrow := ledger.vault(t, owner.PubKey())
	if escrow.EscrowAmount != 1_500_000_000 {
		t.Fatalf("escrow amount = %d, want 1_500_000_000", escrow.EscrowAmount)
	}
	if vault.Lamports != rentReserve()+1_500_000_000 {
		t.Fatalf("vault lamports diverged: %d", vault.Lamports)
	}
	if events := ledger.runtime.EventsAfter(0, 10); len(events) != 0 {
		t.Fatalf("deposit must not emit events, got %d", len(events))
	}
}

func TestDepositRequiresInitializedVault(t *testing.T) {
	ledger := newTestLedger(t)
	owner := testKey(t, 0x07)
	ledger.fund(t, owner.PubKey(), 5*lamportsPerSOL)

	status := ledger.execute(t, owner, NewDepositInstruction(owner.PubKey(), lamportsPerSOL))
	requireErrorCode(t, status, ErrAccountNotInitialized.Code)
}

func TestDepositRejectsForeignOwner(t *testing.T) {
	ledger := newTestLedger(t)
	owner := testKey(t, 0x08)
	intruder := testKey(t, 0x09)
	ledger.fund(t, owner.PubKey(), 5*lamportsPerSOL)
	ledger.fund(t, intruder.PubKey(), 5*lamportsPerSOL)
	requireSuccess(t, ledger.execute(t, owner, NewInitializeInstruction(owner.PubKey(), lamportsPerSOL)))

	// The intruder signs for itself but targets the victim's vault.
	ix := NewDepositInstruction(intruder.PubKey(), lamportsPerSOL)
	ix.Accounts[0].PublicKey = DeriveVaultAddress(owner.PubKey())
	status := ledger.execute(t, intruder, ix)
	requireErrorCode(t, status, ErrOwnerConstraint.Code)

	_, escrow := ledger.vault(t, owner.PubKey())
	if escrow.EscrowAmount != lamportsPerSOL {
		t.Fatalf("escrow mutated by unauthorized deposit: %d", escrow.EscrowAmount)
	}
}

func TestDepositRejectsForgedSignerMeta(t *testing.T) {
	ledger := newTestLedger(t)
	owner := testKey(t, 0x0A)
	intruder := testKey(t, 0x0B)
	ledger.fund(t, owner.PubKey(), 5*lamportsPerSOL)
	requireSuccess(t, ledger.execute(t, owner, NewInitializeInstruction(owner.PubKey(), lamportsPerSOL)))

	// Claiming the owner signed without its signature must not land at all.
	ix := NewDepositInstruction(owner.PubKey(), lamportsPerSOL)
	tx := &types.Transaction{Instruction: ix}
	if err := tx.Sign(intruder); err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ledger.runtime.Execute(tx); err == nil {
		t.Fatalf("transaction with forged signer meta must be rejected")
	}
}

func TestDepositOverflowLeavesStateUntouched(t *testing.T) {
	ledger := newTestLedger(t)
	owner := testKey(t, 0x0C)
	ledger.fund(t, owner.PubKey(), 5*lamportsPerSOL)
	requireSuccess(t, ledger.execute(t, owner, NewInitializeInstruction(owner.PubKey(), lamportsPerSOL)))

	before, beforeEscrow := ledger.vault(t, owner.PubKey())
	ownerBefore := ledger.balance(t, owner.PubKey())

	status := ledger.execute(t, owner, NewDepositInstruction(owner.PubKey(), ^uint64(0)-lamportsPerSOL+1))
	requireErrorCode(t, status, ErrOverflow.Code)

	after, afterEscrow := ledger.vault(t, owner.PubKey())
	if !reflect.DeepEqual(before, after) || !reflect.DeepEqual(beforeEscrow, afterEscrow) {
		t.Fatalf("vault state changed on overflow")
	}
	if got := ledger.balance(t, owner.PubKey()); got != ownerBefore {
		t.Fatalf("owner balance changed on overflow: %d -> %d", ownerBefore, got)
	}
}

func paymentArgs(custom *uint64, reward uint64, max, paid uint32) ProcessPaymentArgs {
	return ProcessPaymentArgs{
		BountyID:               testBountyID,
		SubmissionID:           testSubmission,
		CustomAmount:           custom,
		RewardPerSubmission:    reward,
		MaxSubmissions:         max,
		CurrentPaidSubmissions: paid,
	}
}

func TestProcessPaymentPaysHunterAndPlatform(t *testing.T) {
	ledger := newTestLedger(t)
	owner := testKey(t, 0x10)
	hunter := testKey(t, 0x11)
	platform := testKey(t, 0x12)
	ledger.fund(t, owner.PubKey(), 5*lamportsPerSOL)
	requireSuccess(t, ledger.execute(t, owner, NewInitializeInstruction(owner.PubKey(), lamportsPerSOL)))
	requireSuccess(t, ledger.execute(t, owner, NewDepositInstruction(owner.PubKey(), 500_000_000)))

	ix := NewProcessPaymentInstruction(owner.PubKey(), hunter.PubKey(), platform.PubKey(),
		paymentArgs(nil, 100_000_000, 10, 0))
	status := ledger.execute(t, owner, ix)
	requireSuccess(t, status)

	if got := ledger.balance(t, hunter.PubKey()); got != 98_000_000 {
		t.Fatalf("hunter received %d, want 98_000_000", got)
	}
	if got := ledger.balance(t, platform.PubKey()); got != 2_000_000 {
		t.Fatalf("platform received %d, want 2_000_000", got)
	}
	_, escrow := ledger.vault(t, owner.PubKey())
	if escrow.EscrowAmount != 1_400_000_000 {
		t.Fatalf("escrow amount = %d, want 1_400_000_000", escrow.EscrowAmount)
	}

	events := ledger.runtime.EventsAfter(0, 10)
	if len(events) != 1 {
		t.Fatalf("expected exactly one event, got %d", len(events))
	}
	evt, err := DecodePaymentProcessed(events[0].Data)
	if err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if evt.BountyID != testBountyID || evt.SubmissionID != testSubmission {
		t.Fatalf("event correlation ids wrong: %+v", evt)
	}
	if evt.HunterWallet != hunter.PubKey() {
		t.Fatalf("event hunter wallet mismatch")
	}
	if evt.Amount != 100_000_000 || evt.PlatformFee != 2_000_000 {
		t.Fatalf("event amounts wrong: gross %d fee %d", evt.Amount, evt.PlatformFee)
	}
}

func TestProcessPaymentHonorsCustomAmount(t *testing.T) {
	ledger := newTestLedger(t)
	owner := testKey(t, 0x13)
	hunter := testKey(t, 0x14)
	platform := testKey(t, 0x15)
	ledger.fund(t, owner.PubKey(), 5*lamportsPerSOL)
	requireSuccess(t, ledger.execute(t, owner, NewInitializeInstruction(owner.PubKey(), lamportsPerSOL)))

	custom := uint64(50_000_000)
	ix := NewProcessPaymentInstruction(owner.PubKey(), hunter.PubKey(), platform.PubKey(),
		paymentArgs(&custom, 100_000_000, 10, 0))
	requireSuccess(t, ledger.execute(t, owner, ix))

	if got := ledger.balance(t, hunter.PubKey()); got != 49_000_000 {
		t.Fatalf("hunter received %d, want 49_000_000", got)
	}
	if got := ledger.balance(t, platform.PubKey()); got != 1_000_000 {
		t.Fatalf("platform received %d, want 1_000_000", got)
	}
	_, escrow := ledger.vault(t, owner.PubKey())
	if escrow.EscrowAmount != lamportsPerSOL-custom {
		t.Fatalf("escrow amount = %d", escrow.EscrowAmount)
	}
}

func TestProcessPaymentRespectsSubmissionCap(t *testing.T) {
	ledger := newTestLedger(t)
	owner := testKey(t, 0x16)
	hunter := testKey(t, 0x17)
	platform := testKey(t, 0x18)
	ledger.fund(t, owner.PubKey(), 5*lamportsPerSOL)
	requireSuccess(t, ledger.execute(t, owner, NewInitializeInstruction(owner.PubKey(), lamportsPerSOL)))

	before, beforeEscrow := ledger.vault(t, owner.PubKey())
	ix := NewProcessPaymentInstruction(owner.PubKey(), hunter.PubKey(), platform.PubKey(),
		paymentArgs(nil, 100_000_000, 10, 10))
	status := ledger.execute(t, owner, ix)
	requireErrorCode(t, status, ErrMaxSubmissionsReached.Code)

	after, afterEscrow := ledger.vault(t, owner.PubKey())
	if !reflect.DeepEqual(before, after) || !reflect.DeepEqual(beforeEscrow, afterEscrow) {
		t.Fatalf("state changed on capped payment")
	}
	if got := ledger.balance(t, hunter.PubKey()); got != 0 {
		t.Fatalf("hunter paid despite cap: %d", got)
	}
}

func TestProcessPaymentInsufficientFunds(t *testing.T) {
	ledger := newTestLedger(t)
	owner := testKey(t, 0x19)
	hunter := testKey(t, 0x1A)
	platform := testKey(t, 0x1B)
	ledger.fund(t, owner.PubKey(), 5*lamportsPerSOL)
	requireSuccess(t, ledger.execute(t, owner, NewInitializeInstruction(owner.PubKey(), lamportsPerSOL)))

	before, beforeEscrow := ledger.vault(t, owner.PubKey())
	ix := NewProcessPaymentInstruction(owner.PubKey(), hunter.PubKey(), platform.PubKey(),
		paymentArgs(nil, 2*lamportsPerSOL, 10, 0))
	status := ledger.execute(t, owner, ix)
	requireErrorCode(t, status, ErrInsufficientFunds.Code)

	after, afterEscrow := ledger.vault(t, owner.PubKey())
	if !reflect.DeepEqual(before, after) || !reflect.DeepEqual(beforeEscrow, afterEscrow) {
		t.Fatalf("state changed on underfunded payment")
	}
	if events := ledger.runtime.EventsAfter(0, 10); len(events) != 0 {
		t.Fatalf("failed payment must not emit events")
	}
}

func TestProcessPaymentRejectsForeignOwner(t *testing.T) {
	ledger := newTestLedger(t)
	owner := testKey(t, 0x1C)
	intruder := testKey(t, 0x1D)
	hunter := testKey(t, 0x1E)
	platform := testKey(t, 0x1F)
	ledger.fund(t, owner.PubKey(), 5*lamportsPerSOL)
	ledger.fund(t, intruder.PubKey(), lamportsPerSOL)
	requireSuccess(t, ledger.execute(t, owner, NewInitializeInstruction(owner.PubKey(), lamportsPerSOL)))

	ix := NewProcessPaymentInstruction(intruder.PubKey(), hunter.PubKey(), platform.PubKey(),
		paymentArgs(nil, 100_000_000, 10, 0))
	ix.Accounts[0].PublicKey = DeriveVaultAddress(owner.PubKey())
	status := ledger.execute(t, intruder, ix)
	requireErrorCode(t, status, ErrOwnerConstraint.Code)
	if got := ledger.balance(t, hunter.PubKey()); got != 0 {
		t.Fatalf("unauthorized payment moved %d lamports", got)
	}
}

func TestFeeArithmeticExactness(t *testing.T) {
	grossValues := []uint64{1, 49, 50, 51, 9_999, 10_000, 100_000_000, 123_456_789, lamportsPerSOL}
	for _, gross := range grossValues {
		fee := platformFee(gross)
		if want := gross * PlatformFeeBps / bpsDenom; fee != want {
			t.Fatalf("fee(%d) = %d, want %d", gross, fee, want)
		}
		net, err := checkedSub(gross, fee)
		if err != nil {
			t.Fatalf("net(%d): %v", gross, err)
		}
		if net+fee != gross {
			t.Fatalf("net+fee != gross for %d: %d + %d", gross, net, fee)
		}
	}
}

func TestCloseBountyReturnsFundsAndDeallocates(t *testing.T) {
	ledger := newTestLedger(t)
	owner := testKey(t, 0x20)
	hunter := testKey(t, 0x21)
	platform := testKey(t, 0x22)
	ledger.fund(t, owner.PubKey(), 5*lamportsPerSOL)
	requireSuccess(t, ledger.execute(t, owner, NewInitializeInstruction(owner.PubKey(), lamportsPerSOL)))
	requireSuccess(t, ledger.execute(t, owner, NewDepositInstruction(owner.PubKey(), 500_000_000)))
	requireSuccess(t, ledger.execute(t, owner, NewProcessPaymentInstruction(
		owner.PubKey(), hunter.PubKey(), platform.PubKey(), paymentArgs(nil, 100_000_000, 10, 0))))

	ownerBefore := ledger.balance(t, owner.PubKey())
	status := ledger.execute(t, owner, NewCloseBountyInstruction(owner.PubKey(), testBountyID))
	requireSuccess(t, status)

	if vault, _ := ledger.vault(t, owner.PubKey()); vault != nil {
		t.Fatalf("vault still exists after close")
	}
	if got := ledger.balance(t, owner.PubKey()); got != ownerBefore+1_400_000_000+rentReserve() {
		t.Fatalf("owner balance after close = %d", got)
	}

	events := ledger.runtime.EventsAfter(0, 10)
	if len(events) != 2 {
		t.Fatalf("expected payment + closure events, got %d", len(events))
	}
	closed, err := DecodeBountyClosed(events[1].Data)
	if err != nil {
		t.Fatalf("decode closure event: %v", err)
	}
	if closed.BountyID != testBountyID || closed.RemainingAmount != 1_400_000_000 {
		t.Fatalf("closure event wrong: %+v", closed)
	}

	// The derived address is gone: depositing again requires re-initialize.
	depositStatus := ledger.execute(t, owner, NewDepositInstruction(owner.PubKey(), lamportsPerSOL))
	requireErrorCode(t, depositStatus, ErrAccountNotInitialized.Code)
	requireSuccess(t, ledger.execute(t, owner, NewInitializeInstruction(owner.PubKey(), lamportsPerSOL)))
}

func TestCloseBountyWithZeroBalance(t *testing.T) {
	ledger := newTestLedger(t)
	owner := testKey(t, 0x23)
	hunter := testKey(t, 0x24)
	platform := testKey(t, 0x25)
	ledger.fund(t, owner.PubKey(), 5*lamportsPerSOL)
	requireSuccess(t, ledger.execute(t, owner, NewInitializeInstruction(owner.PubKey(), 100_000_000)))
	requireSuccess(t, ledger.execute(t, owner, NewProcessPaymentInstruction(
		owner.PubKey(), hunter.PubKey(), platform.PubKey(), paymentArgs(nil, 100_000_000, 1, 0))))

	status := ledger.execute(t, owner, NewCloseBountyInstruction(owner.PubKey(), testBountyID))
	requireSuccess(t, status)
	if vault, _ := ledger.vault(t, owner.PubKey()); vault != nil {
		t.Fatalf("vault still exists after closing empty escrow")
	}
}

func TestCloseBountyRejectsForeignOwner(t *testing.T) {
	ledger := newTestLedger(t)
	owner := testKey(t, 0x26)
	intruder := testKey(t, 0x27)
	ledger.fund(t, owner.PubKey(), 5*lamportsPerSOL)
	ledger.fund(t, intruder.PubKey(), lamportsPerSOL)
	requireSuccess(t, ledger.execute(t, owner, NewInitializeInstruction(owner.PubKey(), lamportsPerSOL)))

	ix := NewCloseBountyInstruction(intruder.PubKey(), testBountyID)
	ix.Accounts[0].PublicKey = DeriveVaultAddress(owner.PubKey())
	status := ledger.execute(t, intruder, ix)
	requireErrorCode(t, status, ErrOwnerConstraint.Code)
	if vault, _ := ledger.vault(t, owner.PubKey()); vault == nil {
		t.Fatalf("vault destroyed by unauthorized close")
	}
}

// TestLamportConservation drives a full lifecycle and checks that nothing is
// created or destroyed: every lamport the owner put in is either still in the
// vault, with a hunter, with the platform, or back with the owner.
func TestLamportConservation(t *testing.T) {
	ledger := newTestLedger(t)
	owner := testKey(t, 0x30)
	hunter := testKey(t, 0x31)
	platform := testKey(t, 0x32)
	initialFunding := 10 * lamportsPerSOL
	ledger.fund(t, owner.PubKey(), initialFunding)

	requireSuccess(t, ledger.execute(t, owner, NewInitializeInstruction(owner.PubKey(), 2*lamportsPerSOL)))
	requireSuccess(t, ledger.execute(t, owner, NewDepositInstruction(owner.PubKey(), lamportsPerSOL)))
	for i := uint32(0); i < 5; i++ {
		requireSuccess(t, ledger.execute(t, owner, NewProcessPaymentInstruction(
			owner.PubKey(), hunter.PubKey(), platform.PubKey(), paymentArgs(nil, 123_456_789, 10, i))))
	}
	// A couple of failures in between must not disturb the books.
	requireErrorCode(t, ledger.execute(t, owner, NewProcessPaymentInstruction(
		owner.PubKey(), hunter.PubKey(), platform.PubKey(), paymentArgs(nil, 100*lamportsPerSOL, 10, 5))),
		ErrInsufficientFunds.Code)
	requireSuccess(t, ledger.execute(t, owner, NewCloseBountyInstruction(owner.PubKey(), testBountyID)))

	total := ledger.balance(t, owner.PubKey()) +
		ledger.balance(t, hunter.PubKey()) +
		ledger.balance(t, platform.PubKey())
	if total != initialFunding {
		t.Fatalf("lamports not conserved: %d != %d", total, initialFunding)
	}
}
