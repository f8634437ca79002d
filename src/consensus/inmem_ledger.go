package consensus

import (
	"fmt"

	cm "github.com/rillchain/rill/src/common"
)

// InmemLedger implements the Ledger interface with an in-memory slice. It is
// suitable for tests and for nodes that do not need to survive restarts.
type InmemLedger struct {
	genesisAnchor []byte
	blocks        []*BlockProposal
}

// NewInmemLedger creates an empty InmemLedger anchored at the given genesis
// hash.
func NewInmemLedger(genesisAnchor []byte) *InmemLedger {
	return &InmemLedger{
		genesisAnchor: genesisAnchor,
	}
}

// Tip implements the Ledger interface.
func (l *InmemLedger) Tip() ([]byte, int) {
	if len(l.blocks) == 0 {
		return l.genesisAnchor, 0
	}
	last := l.blocks[len(l.blocks)-1]
	hash, _ := last.Hash()
	return hash, last.Slot()
}

// LastIndex implements the Ledger interface.
func (l *InmemLedger) LastIndex() int {
	return len(l.blocks) - 1
}

// GetBlock implements the Ledger interface.
func (l *InmemLedger) GetBlock(index int) (*BlockProposal, error) {
	if index < 0 || index >= len(l.blocks) {
		return nil, cm.NewStoreErr("Ledger", cm.KeyNotFound, fmt.Sprintf("%d", index))
	}
	return l.blocks[index], nil
}

// Append implements the Ledger interface.
func (l *InmemLedger) Append(proposals []*BlockProposal) error {
	l.blocks = append(l.blocks, proposals...)
	return nil
}

// NeedBootstrap implements the Ledger interface. An in-memory ledger is
// always fresh.
func (l *InmemLedger) NeedBootstrap() bool {
	return false
}

// Close implements the Ledger interface.
func (l *InmemLedger) Close() error {
	return nil
}
