package bounty

import (
	"encoding/binary"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"vulnera/crypto"
)

// ProgramID identifies the bounty escrow program on the ledger.
var ProgramID = crypto.MustParsePublicKey("5E6gim2SHCpuaJ4Lg3nq2nxs1So1t9MDU5ACdPdB1U6W")

// SystemProgramID is the native transfer program referenced by every
// instruction's account list.
var SystemProgramID = crypto.MustParsePublicKey("11111111111111111111111111111111")

// VaultSeed is the domain tag mixed into vault address derivation. One vault
// per owner; the same owner always maps to the same address.
const VaultSeed = "bounty-escrow"

// bountyEscrowDiscriminator prefixes the vault account payload.
var bountyEscrowDiscriminator = [8]byte{59, 18, 13, 80, 225, 187, 6, 16}

// EscrowAccountSize is the vault payload size: discriminator, owner key,
// escrow amount.
const EscrowAccountSize = 8 + crypto.PublicKeyLength + 8

// BountyEscrow is the per-owner vault record. Owner is set once at creation
// and immutable thereafter; EscrowAmount tracks the lamports held in escrow,
// excluding the rent reserve that keeps the account alive.
type BountyEscrow struct {
	Owner        crypto.PublicKey
	EscrowAmount uint64
}

// DeriveVaultAddress computes the deterministic vault address for an owner by
// hashing the domain tag, the owner key and the program id. Pure function:
// any party can recompute it without a lookup. Authority over the derived
// account is enforced separately by the runtime's transfer rules.
func DeriveVaultAddress(owner crypto.PublicKey) crypto.PublicKey {
	hash := ethcrypto.Keccak256([]byte(VaultSeed), owner[:], ProgramID[:])
	var addr crypto.PublicKey
	copy(addr[:], hash)
	return addr
}

// MarshalBinary encodes the vault record in its account wire layout:
// discriminator, owner (32 bytes), escrow amount (u64 LE).
func (b *BountyEscrow) MarshalBinary() []byte {
	buf := make([]byte, EscrowAccountSize)
	copy(buf[0:8], bountyEscrowDiscriminator[:])
	copy(buf[8:40], b.Owner[:])
	binary.LittleEndian.PutUint64(buf[40:48], b.EscrowAmount)
	return buf
}

// UnmarshalBountyEscrow decodes a vault account payload, rejecting data that
// does not carry the escrow discriminator.
func UnmarshalBountyEscrow(data []byte) (*BountyEscrow, error) {
	if len(data) != EscrowAccountSize {
		return nil, fmt.Errorf("bounty: escrow account must be %d bytes, got %d", EscrowAccountSize, len(data))
	}
	var disc [8]byte
	copy(disc[:], data[0:8])
	if disc != bountyEscrowDiscriminator {
		return nil, fmt.Errorf("bounty: not an escrow account (discriminator %x)", disc)
	}
	escrow := &BountyEscrow{
		EscrowAmount: binary.LittleEndian.Uint64(data[40:48]),
	}
	copy(escrow.Owner[:], data[8:40])
	return escrow, nil
}
