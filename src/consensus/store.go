package consensus

// Ledger is the canonical append-only blockchain that finalized proposals are
// committed to. Appends are the one externally visible side effect of the
// consensus engine; on restart the engine re-derives its fork set from the
// ledger's tip.
type Ledger interface {
	// Tip returns the content hash and slot of the last finalized block, or
	// the genesis anchor and slot 0 when nothing has been finalized yet.
	Tip() ([]byte, int)

	// LastIndex returns the index of the last finalized block, or -1 when the
	// ledger is empty.
	LastIndex() int

	// GetBlock retrieves a finalized block by index.
	GetBlock(index int) (*BlockProposal, error)

	// Append commits finalized proposals, in order, to the ledger.
	Append(proposals []*BlockProposal) error

	// NeedBootstrap reports whether the ledger was loaded from an existing
	// database.
	NeedBootstrap() bool

	// Close releases the underlying resources.
	Close() error
}
