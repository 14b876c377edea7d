package bounty

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf8"

	"vulnera/core/types"
	"vulnera/crypto"
)

// ErrInvalidInstructionData is returned when instruction bytes cannot be
// decoded against any known layout.
var ErrInvalidInstructionData = errors.New("bounty: unexpected instruction data")

// Instruction discriminators: the fixed 8-byte tags routing instruction data
// to handlers. Byte values are frozen by the deployed program's IDL.
var (
	InitializeDiscriminator     = [8]byte{175, 175, 109, 31, 13, 152, 155, 237}
	DepositDiscriminator        = [8]byte{242, 35, 198, 137, 82, 225, 242, 182}
	ProcessPaymentDiscriminator = [8]byte{189, 81, 30, 198, 139, 186, 115, 23}
	CloseBountyDiscriminator    = [8]byte{90, 33, 205, 110, 210, 22, 247, 49}
)

// Account positions within each instruction's meta list. Ordering is part of
// the wire contract with the off-chain transaction builder.
const (
	ixVaultIndex = 0
	ixOwnerIndex = 1

	paymentHunterIndex   = 2
	paymentPlatformIndex = 3
	paymentSystemIndex   = 4

	vaultOwnerSystemAccounts = 3
	paymentAccounts          = 5
)

// InitializeArgs creates the vault and funds the initial escrow.
type InitializeArgs struct {
	EscrowAmount uint64
}

// DepositArgs tops up an existing vault.
type DepositArgs struct {
	Amount uint64
}

// ProcessPaymentArgs pays a hunter for an approved submission. The bounty and
// submission identifiers are opaque correlation strings; the submission
// counters are caller-supplied state the program trusts by design.
type ProcessPaymentArgs struct {
	BountyID               string
	SubmissionID           string
	CustomAmount           *uint64
	RewardPerSubmission    uint64
	MaxSubmissions         uint32
	CurrentPaidSubmissions uint32
}

// CloseBountyArgs drains the vault back to its owner and deallocates it.
type CloseBountyArgs struct {
	BountyID string
}

func (a InitializeArgs) encode() []byte {
	w := newBorshWriter(InitializeDiscriminator)
	w.writeU64(a.EscrowAmount)
	return w.bytes()
}

func (a DepositArgs) encode() []byte {
	w := newBorshWriter(DepositDiscriminator)
	w.writeU64(a.Amount)
	return w.bytes()
}

func (a ProcessPaymentArgs) encode() []byte {
	w := newBorshWriter(ProcessPaymentDiscriminator)
	w.writeString(a.BountyID)
	w.writeString(a.SubmissionID)
	w.writeOptionU64(a.CustomAmount)
	w.writeU64(a.RewardPerSubmission)
	w.writeU32(a.MaxSubmissions)
	w.writeU32(a.CurrentPaidSubmissions)
	return w.bytes()
}

func (a CloseBountyArgs) encode() []byte {
	w := newBorshWriter(CloseBountyDiscriminator)
	w.writeString(a.BountyID)
	return w.bytes()
}

func decodeInitializeArgs(data []byte) (InitializeArgs, error) {
	r := &borshReader{data: data}
	args := InitializeArgs{EscrowAmount: r.readU64()}
	if err := r.finish(); err != nil {
		return InitializeArgs{}, err
	}
	return args, nil
}

func decodeDepositArgs(data []byte) (DepositArgs, error) {
	r := &borshReader{data: data}
	args := DepositArgs{Amount: r.readU64()}
	if err := r.finish(); err != nil {
		return DepositArgs{}, err
	}
	return args, nil
}

func decodeProcessPaymentArgs(data []byte) (ProcessPaymentArgs, error) {
	r := &borshReader{data: data}
	args := ProcessPaymentArgs{
		BountyID:     r.readString(),
		SubmissionID: r.readString(),
	}
	args.CustomAmount = r.readOptionU64()
	args.RewardPerSubmission = r.readU64()
	args.MaxSubmissions = r.readU32()
	args.CurrentPaidSubmissions = r.readU32()
	if err := r.finish(); err != nil {
		return ProcessPaymentArgs{}, err
	}
	return args, nil
}

func decodeCloseBountyArgs(data []byte) (CloseBountyArgs, error) {
	r := &borshReader{data: data}
	args := CloseBountyArgs{BountyID: r.readString()}
	if err := r.finish(); err != nil {
		return CloseBountyArgs{}, err
	}
	return args, nil
}

// --- Instruction builders used by the CLI, the reconciler and tests ---

// NewInitializeInstruction builds the initialize instruction for an owner.
func NewInitializeInstruction(owner crypto.PublicKey, escrowAmount uint64) types.Instruction {
	return types.Instruction{
		ProgramID: ProgramID,
		Accounts:  vaultOwnerSystemMetas(owner),
		Data:      InitializeArgs{EscrowAmount: escrowAmount}.encode(),
	}
}

// NewDepositInstruction builds the deposit instruction for an owner's vault.
func NewDepositInstruction(owner crypto.PublicKey, amount uint64) types.Instruction {
	return types.Instruction{
		ProgramID: ProgramID,
		Accounts:  vaultOwnerSystemMetas(owner),
		Data:      DepositArgs{Amount: amount}.encode(),
	}
}

// NewProcessPaymentInstruction builds the payout instruction. Account order:
// vault, owner (signer), hunter wallet, platform wallet, system program.
func NewProcessPaymentInstruction(owner, hunter, platform crypto.PublicKey, args ProcessPaymentArgs) types.Instruction {
	return types.Instruction{
		ProgramID: ProgramID,
		Accounts: []types.AccountMeta{
			{PublicKey: DeriveVaultAddress(owner), IsWritable: true},
			{PublicKey: owner, IsSigner: true, IsWritable: true},
			{PublicKey: hunter, IsWritable: true},
			{PublicKey: platform, IsWritable: true},
			{PublicKey: SystemProgramID},
		},
		Data: args.encode(),
	}
}

// NewCloseBountyInstruction builds the close instruction for an owner's vault.
func NewCloseBountyInstruction(owner crypto.PublicKey, bountyID string) types.Instruction {
	return types.Instruction{
		ProgramID: ProgramID,
		Accounts:  vaultOwnerSystemMetas(owner),
		Data:      CloseBountyArgs{BountyID: bountyID}.encode(),
	}
}

func vaultOwnerSystemMetas(owner crypto.PublicKey) []types.AccountMeta {
	return []types.AccountMeta{
		{PublicKey: DeriveVaultAddress(owner), IsWritable: true},
		{PublicKey: owner, IsSigner: true, IsWritable: true},
		{PublicKey: SystemProgramID},
	}
}

// --- Borsh-style codec ---
//
// Fixed-width integers are little-endian. Strings carry a u32 length prefix
// followed by UTF-8 bytes. Option<u64> is a single presence byte followed by
// the value when present.

type borshWriter struct {
	buf bytes.Buffer
}

func newBorshWriter(discriminator [8]byte) *borshWriter {
	w := &borshWriter{}
	w.buf.Write(discriminator[:])
	return w
}

func (w *borshWriter) writeU32(v uint32) {
	var scratch [4]byte
	binary.LittleEndian.PutUint32(scratch[:], v)
	w.buf.Write(scratch[:])
}

func (w *borshWriter) writeU64(v uint64) {
	var scratch [8]byte
	binary.LittleEndian.PutUint64(scratch[:], v)
	w.buf.Write(scratch[:])
}

func (w *borshWriter) writeString(s string) {
	w.writeU32(uint32(len(s)))
	w.buf.WriteString(s)
}

func (w *borshWriter) writePublicKey(key crypto.PublicKey) {
	w.buf.Write(key[:])
}

func (w *borshWriter) writeOptionU64(v *uint64) {
	if v == nil {
		w.buf.WriteByte(0)
		return
	}
	w.buf.WriteByte(1)
	w.writeU64(*v)
}

func (w *borshWriter) bytes() []byte {
	return w.buf.Bytes()
}

type borshReader struct {
	data []byte
	off  int
	err  error
}

func (r *borshReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.data) {
		r.err = fmt.Errorf("%w: truncated at offset %d", ErrInvalidInstructionData, r.off)
		return nil
	}
	out := r.data[r.off : r.off+n]
	r.off += n
	return out
}

func (r *borshReader) readU32() uint32 {
	raw := r.take(4)
	if raw == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(raw)
}

func (r *borshReader) readU64() uint64 {
	raw := r.take(8)
	if raw == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(raw)
}

func (r *borshReader) readString() string {
	length := r.readU32()
	raw := r.take(int(length))
	if raw == nil {
		return ""
	}
	if !utf8.Valid(raw) {
		r.err = fmt.Errorf("%w: invalid utf-8 string", ErrInvalidInstructionData)
		return ""
	}
	return string(raw)
}

func (r *borshReader) readOptionU64() *uint64 {
	flag := r.take(1)
	if flag == nil {
		return nil
	}
	switch flag[0] {
	case 0:
		return nil
	case 1:
		v := r.readU64()
		return &v
	default:
		r.err = fmt.Errorf("%w: option flag %d", ErrInvalidInstructionData, flag[0])
		return nil
	}
}

// finish asserts the payload was consumed exactly.
func (r *borshReader) finish() error {
	if r.err != nil {
		return r.err
	}
	if r.off != len(r.data) {
		return fmt.Errorf("%w: %d trailing bytes", ErrInvalidInstructionData, len(r.data)-r.off)
	}
	return nil
}
