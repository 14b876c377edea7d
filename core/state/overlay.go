package state

import (
	"vulnera/core/types"
	"vulnera/crypto"
)

// Overlay is a write-set view over a Manager. All mutations land in the
// overlay; the backing store stays byte-identical until Commit. Discarding an
// overlay after a failed instruction is what makes a transaction atomic.
type Overlay struct {
	base    *Manager
	writes  map[crypto.PublicKey]*types.Account
	deletes map[crypto.PublicKey]bool
}

// NewOverlay creates an empty overlay on top of the manager.
func NewOverlay(base *Manager) *Overlay {
	return &Overlay{
		base:    base,
		writes:  make(map[crypto.PublicKey]*types.Account),
		deletes: make(map[crypto.PublicKey]bool),
	}
}

// GetAccount reads through the overlay, falling back to the backing store.
// Returned accounts are clones; mutations are invisible until PutAccount.
func (o *Overlay) GetAccount(key crypto.PublicKey) (*types.Account, bool, error) {
	if o.deletes[key] {
		return nil, false, nil
	}
	if account, ok := o.writes[key]; ok {
		return account.Clone(), true, nil
	}
	account, ok, err := o.base.GetAccount(key)
	if err != nil || !ok {
		return nil, false, err
	}
	return account, true, nil
}

// PutAccount buffers the write.
func (o *Overlay) PutAccount(key crypto.PublicKey, account *types.Account) error {
	delete(o.deletes, key)
	o.writes[key] = account.Clone()
	return nil
}

// DeleteAccount buffers the deletion.
func (o *Overlay) DeleteAccount(key crypto.PublicKey) error {
	delete(o.writes, key)
	o.deletes[key] = true
	return nil
}

// Commit applies the buffered write-set to the backing store.
func (o *Overlay) Commit() error {
	for key := range o.deletes {
		if err := o.base.DeleteAccount(key); err != nil {
			return err
		}
	}
	for key, account := range o.writes {
		if err := o.base.PutAccount(key, account); err != nil {
			return err
		}
	}
	return nil
}
