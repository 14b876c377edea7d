package types

import "vulnera/crypto"

// Account is the ledger-side record backing an address: its lamport balance,
// the program that owns it, and opaque program data. System-owned accounts
// (plain wallets) carry no data.
type Account struct {
	Lamports uint64           `json:"lamports"`
	Owner    crypto.PublicKey `json:"owner"`
	Data     []byte           `json:"data,omitempty"`
}

// Clone returns a deep copy so callers can mutate without touching the stored
// instance.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := &Account{Lamports: a.Lamports, Owner: a.Owner}
	if a.Data != nil {
		clone.Data = make([]byte, len(a.Data))
		copy(clone.Data, a.Data)
	}
	return clone
}
