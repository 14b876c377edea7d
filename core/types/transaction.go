package types

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/btcsuite/btcutil/base58"

	"vulnera/crypto"
)

var (
	ErrNoSignatures      = errors.New("transaction carries no signatures")
	ErrBadSignature      = errors.New("transaction signature verification failed")
	ErrMissingSignature  = errors.New("required signer did not sign the transaction")
	ErrTooManyAccounts   = errors.New("instruction references too many accounts")
	ErrInstructionTooBig = errors.New("instruction data exceeds maximum size")
)

const (
	maxInstructionAccounts = 32
	maxInstructionData     = 10 * 1024
)

// AccountMeta names one account an instruction touches along with its
// signer/writable flags. Order is part of the wire contract.
type AccountMeta struct {
	PublicKey  crypto.PublicKey `json:"publicKey"`
	IsSigner   bool             `json:"isSigner"`
	IsWritable bool             `json:"isWritable"`
}

// Instruction is a single program invocation: the target program, the ordered
// account list, and the data payload (8-byte discriminator plus borsh args).
type Instruction struct {
	ProgramID crypto.PublicKey `json:"programId"`
	Accounts  []AccountMeta    `json:"accounts"`
	Data      []byte           `json:"data"`
}

// Signature pairs a signer with its ed25519 signature over the transaction
// message.
type Signature struct {
	PublicKey crypto.PublicKey `json:"publicKey"`
	Signature []byte           `json:"signature"`
}

// Transaction wraps one instruction with the signatures authorizing it. The
// runtime applies a transaction atomically: it either fully lands or has no
// effect.
type Transaction struct {
	Instruction Instruction `json:"instruction"`
	Signatures  []Signature `json:"signatures"`
}

// MessageBytes returns the canonical byte encoding signed by every signer:
// program id, account metas in order with flags, then length-prefixed data.
func (tx *Transaction) MessageBytes() ([]byte, error) {
	ix := tx.Instruction
	if len(ix.Accounts) > maxInstructionAccounts {
		return nil, ErrTooManyAccounts
	}
	if len(ix.Data) > maxInstructionData {
		return nil, ErrInstructionTooBig
	}
	buf := make([]byte, 0, crypto.PublicKeyLength+len(ix.Accounts)*(crypto.PublicKeyLength+2)+8+len(ix.Data))
	buf = append(buf, ix.ProgramID[:]...)
	var count [4]byte
	binary.LittleEndian.PutUint32(count[:], uint32(len(ix.Accounts)))
	buf = append(buf, count[:]...)
	for _, meta := range ix.Accounts {
		buf = append(buf, meta.PublicKey[:]...)
		buf = append(buf, flagByte(meta.IsSigner), flagByte(meta.IsWritable))
	}
	var dataLen [4]byte
	binary.LittleEndian.PutUint32(dataLen[:], uint32(len(ix.Data)))
	buf = append(buf, dataLen[:]...)
	buf = append(buf, ix.Data...)
	return buf, nil
}

// ID derives the transaction identifier: base58(sha256(message)).
func (tx *Transaction) ID() (string, error) {
	msg, err := tx.MessageBytes()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(msg)
	return base58.Encode(sum[:]), nil
}

// Sign appends a signature from the given key over the canonical message.
func (tx *Transaction) Sign(key *crypto.PrivateKey) error {
	msg, err := tx.MessageBytes()
	if err != nil {
		return err
	}
	tx.Signatures = append(tx.Signatures, Signature{
		PublicKey: key.PubKey(),
		Signature: key.Sign(msg),
	})
	return nil
}

// VerifySignatures checks every attached signature and ensures each account
// flagged as a signer actually signed.
func (tx *Transaction) VerifySignatures() error {
	msg, err := tx.MessageBytes()
	if err != nil {
		return err
	}
	if len(tx.Signatures) == 0 {
		return ErrNoSignatures
	}
	signed := make(map[crypto.PublicKey]bool, len(tx.Signatures))
	for _, sig := range tx.Signatures {
		if !sig.PublicKey.Verify(msg, sig.Signature) {
			return fmt.Errorf("%w: %s", ErrBadSignature, sig.PublicKey)
		}
		signed[sig.PublicKey] = true
	}
	for _, meta := range tx.Instruction.Accounts {
		if meta.IsSigner && !signed[meta.PublicKey] {
			return fmt.Errorf("%w: %s", ErrMissingSignature, meta.PublicKey)
		}
	}
	return nil
}

// SignedBy reports whether the given account signed the transaction with a
// signature that has been attached (not yet verified).
func (tx *Transaction) SignedBy(key crypto.PublicKey) bool {
	for _, sig := range tx.Signatures {
		if sig.PublicKey == key {
			return true
		}
	}
	return false
}

func flagByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
