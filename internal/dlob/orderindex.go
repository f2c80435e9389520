package dlob

import (
	"sync"

	"github.com/gagliardetto/solana-go"
)

// OrderIndex is the flat, diff-driven keyed store mapping a user account's
// public key to its decoded UserAccount (spec.md §4.1). It maintains no
// ordering of its own — BookBuilder is the only thing that sorts orders.
//
// Grounded on the teacher's account_manager.go / market/registry.go
// map+RWMutex idiom: one writer (AccountStream's consumer), many readers
// (BookBuilder and the /orders/* handlers).
type OrderIndex struct {
	mu       sync.RWMutex
	accounts map[solana.PublicKey]*UserAccount
}

// NewOrderIndex creates an empty OrderIndex.
func NewOrderIndex() *OrderIndex {
	return &OrderIndex{
		accounts: make(map[solana.PublicKey]*UserAccount),
	}
}

// Upsert replaces any prior entry for pubkey with account.
func (oi *OrderIndex) Upsert(pubkey solana.PublicKey, account *UserAccount) {
	oi.mu.Lock()
	defer oi.mu.Unlock()
	oi.accounts[pubkey] = account
}

// Delete removes pubkey's entry, if any.
func (oi *OrderIndex) Delete(pubkey solana.PublicKey) {
	oi.mu.Lock()
	defer oi.mu.Unlock()
	delete(oi.accounts, pubkey)
}

// Get returns the account for pubkey, or nil if absent. A miss is a soft
// failure per spec.md §4.1 — callers must not treat it as an error.
func (oi *OrderIndex) Get(pubkey solana.PublicKey) *UserAccount {
	oi.mu.RLock()
	defer oi.mu.RUnlock()
	return oi.accounts[pubkey]
}

// Iterate returns a snapshot copy of every (pubkey, account) pair.
// Iteration order is unspecified, matching spec.md §4.1.
func (oi *OrderIndex) Iterate() []IndexEntry {
	oi.mu.RLock()
	defer oi.mu.RUnlock()

	out := make([]IndexEntry, 0, len(oi.accounts))
	for pk, acc := range oi.accounts {
		out = append(out, IndexEntry{PubKey: pk, Account: acc})
	}
	return out
}

// IndexEntry is one (pubkey, account) pair returned by Iterate.
type IndexEntry struct {
	PubKey  solana.PublicKey
	Account *UserAccount
}

// UniqueAuthorities returns the set of distinct authority pubkeys across
// every indexed account.
func (oi *OrderIndex) UniqueAuthorities() map[solana.PublicKey]struct{} {
	oi.mu.RLock()
	defer oi.mu.RUnlock()

	out := make(map[solana.PublicKey]struct{})
	for _, acc := range oi.accounts {
		out[acc.Authority] = struct{}{}
	}
	return out
}

// Size returns the number of indexed accounts.
func (oi *OrderIndex) Size() int {
	oi.mu.RLock()
	defer oi.mu.RUnlock()
	return len(oi.accounts)
}
