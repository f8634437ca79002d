package consensus

import "crypto/sha256"

// Mempool buffers transactions submitted by clients until they are included
// in a finalized block. It preserves submission order and deduplicates by
// content hash.
type Mempool struct {
	order [][]byte
	seen  map[[sha256.Size]byte]bool
}

// NewMempool creates an empty Mempool.
func NewMempool() *Mempool {
	return &Mempool{
		order: [][]byte{},
		seen:  map[[sha256.Size]byte]bool{},
	}
}

// Add appends a transaction to the pool. It returns false if the same
// transaction is already pending.
func (m *Mempool) Add(tx []byte) bool {
	key := sha256.Sum256(tx)
	if m.seen[key] {
		return false
	}
	m.seen[key] = true
	m.order = append(m.order, tx)
	return true
}

// Remove drops the given transactions from the pool. Transactions that are
// not pending are ignored.
func (m *Mempool) Remove(txs [][]byte) {
	drop := map[[sha256.Size]byte]bool{}
	for _, tx := range txs {
		drop[sha256.Sum256(tx)] = true
	}

	kept := [][]byte{}
	for _, tx := range m.order {
		key := sha256.Sum256(tx)
		if drop[key] {
			delete(m.seen, key)
			continue
		}
		kept = append(kept, tx)
	}
	m.order = kept
}

// Transactions returns the pending transactions in submission order.
func (m *Mempool) Transactions() [][]byte {
	return m.order
}

// Len returns the number of pending transactions.
func (m *Mempool) Len() int {
	return len(m.order)
}

// Contains reports whether a transaction is pending.
func (m *Mempool) Contains(tx []byte) bool {
	return m.seen[sha256.Sum256(tx)]
}
