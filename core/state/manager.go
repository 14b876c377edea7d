package state

import (
	"encoding/binary"
	"errors"
	"fmt"

	"vulnera/core/types"
	"vulnera/crypto"
	"vulnera/storage"
)

var (
	// ErrInsufficientLamports is returned by DebitLamports when the account
	// balance cannot cover the debit.
	ErrInsufficientLamports = errors.New("state: insufficient lamports")
	// ErrLamportOverflow is returned by CreditLamports when the credit would
	// wrap the balance past the u64 range.
	ErrLamportOverflow = errors.New("state: lamport balance overflow")
)

const accountKeyPrefix = "acct:"

// Rent parameters mirror the host ledger's rent-exemption formula: two years
// of per-byte-year rent over the account payload plus a 128-byte overhead.
const (
	rentLamportsPerByteYear = 3480
	rentExemptionYears      = 2
	rentAccountOverhead     = 128
)

// RentExemptMinimum returns the lamports an account with dataLen bytes of
// payload must hold to exist indefinitely.
func RentExemptMinimum(dataLen int) uint64 {
	return uint64(rentAccountOverhead+dataLen) * rentLamportsPerByteYear * rentExemptionYears
}

// Accounts is the read/write surface shared by the durable manager and the
// per-transaction overlay.
type Accounts interface {
	GetAccount(key crypto.PublicKey) (*types.Account, bool, error)
	PutAccount(key crypto.PublicKey, account *types.Account) error
	DeleteAccount(key crypto.PublicKey) error
}

// Manager persists ledger accounts in a key-value store.
type Manager struct {
	db storage.Database
}

// NewManager wraps the given database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// GetAccount loads an account, reporting whether it exists.
func (m *Manager) GetAccount(key crypto.PublicKey) (*types.Account, bool, error) {
	raw, err := m.db.Get(accountKey(key))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	account, err := decodeAccount(raw)
	if err != nil {
		return nil, false, err
	}
	return account, true, nil
}

// PutAccount stores the account under its address.
func (m *Manager) PutAccount(key crypto.PublicKey, account *types.Account) error {
	if account == nil {
		return errors.New("state: nil account")
	}
	return m.db.Put(accountKey(key), encodeAccount(account))
}

// DeleteAccount removes the account record entirely.
func (m *Manager) DeleteAccount(key crypto.PublicKey) error {
	return m.db.Delete(accountKey(key))
}

// CreditLamports adds lamports to an account with overflow protection,
// creating a system-owned account when none exists.
func CreditLamports(accounts Accounts, key crypto.PublicKey, amount uint64) error {
	account, ok, err := accounts.GetAccount(key)
	if err != nil {
		return err
	}
	if !ok {
		account = &types.Account{}
	}
	if account.Lamports > ^uint64(0)-amount {
		return ErrLamportOverflow
	}
	account.Lamports += amount
	return accounts.PutAccount(key, account)
}

// DebitLamports removes lamports from an account with underflow protection.
func DebitLamports(accounts Accounts, key crypto.PublicKey, amount uint64) error {
	account, ok, err := accounts.GetAccount(key)
	if err != nil {
		return err
	}
	if !ok || account.Lamports < amount {
		return ErrInsufficientLamports
	}
	account.Lamports -= amount
	return accounts.PutAccount(key, account)
}

func accountKey(key crypto.PublicKey) []byte {
	buf := make([]byte, 0, len(accountKeyPrefix)+crypto.PublicKeyLength)
	buf = append(buf, accountKeyPrefix...)
	return append(buf, key[:]...)
}

// Account wire layout: lamports u64 LE, owner 32 bytes, data length u32 LE,
// data bytes.
func encodeAccount(account *types.Account) []byte {
	buf := make([]byte, 8+crypto.PublicKeyLength+4+len(account.Data))
	binary.LittleEndian.PutUint64(buf[0:8], account.Lamports)
	copy(buf[8:40], account.Owner[:])
	binary.LittleEndian.PutUint32(buf[40:44], uint32(len(account.Data)))
	copy(buf[44:], account.Data)
	return buf
}

func decodeAccount(raw []byte) (*types.Account, error) {
	if len(raw) < 44 {
		return nil, fmt.Errorf("state: truncated account record (%d bytes)", len(raw))
	}
	account := &types.Account{
		Lamports: binary.LittleEndian.Uint64(raw[0:8]),
	}
	copy(account.Owner[:], raw[8:40])
	dataLen := binary.LittleEndian.Uint32(raw[40:44])
	if int(dataLen) != len(raw)-44 {
		return nil, fmt.Errorf("state: account data length mismatch: header %d, payload %d", dataLen, len(raw)-44)
	}
	if dataLen > 0 {
		account.Data = make([]byte, dataLen)
		copy(account.Data, raw[44:])
	}
	return account, nil
}
