// Package mempool maintains the pending transactions for the ledger.
package mempool

import (
	"sync"

	"github.com/ardanlabs/scalefree/foundation/blockchain/database"
)

// Mempool represents an ordered cache of transactions waiting to be mined.
// Transactions are kept in submission order.
type Mempool struct {
	mu   sync.RWMutex
	pool []database.Tx
}

// New constructs a new, empty mempool.
func New() *Mempool {
	return &Mempool{}
}

// Count returns the current number of transactions in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Add appends a transaction to the pool and returns the new count.
func (mp *Mempool) Add(tx database.Tx) int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = append(mp.pool, tx)

	return len(mp.pool)
}

// Copy returns the transactions in the pool in submission order.
func (mp *Mempool) Copy() []database.Tx {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return append([]database.Tx(nil), mp.pool...)
}

// PickBest returns up to howMany transactions from the front of the pool in
// submission order. Pass -1 for all the transactions.
func (mp *Mempool) PickBest(howMany int) []database.Tx {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	if howMany < 0 || howMany > len(mp.pool) {
		howMany = len(mp.pool)
	}

	return append([]database.Tx(nil), mp.pool[:howMany]...)
}

// Replace removes the first n transactions and places the specified
// transactions in front of whatever remains. Transactions added after the
// first n were picked are kept in order.
func (mp *Mempool) Replace(n int, txs ...database.Tx) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if n > len(mp.pool) {
		n = len(mp.pool)
	}

	pool := make([]database.Tx, 0, len(txs)+len(mp.pool)-n)
	pool = append(pool, txs...)
	pool = append(pool, mp.pool[n:]...)

	mp.pool = pool
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = nil
}
