package consensus

import (
	"fmt"
	"os"

	"github.com/dgraph-io/badger"
	cm "github.com/rillchain/rill/src/common"
)

const (
	blockPrefix  = "block"
	genesisKey   = "genesis"
	lastIndexKey = "last_index"
)

// BadgerLedger implements the Ledger interface on top of a badger key-value
// store, so that the canonical chain survives restarts. Only the tip is kept
// in memory; block bodies are read from disk on demand.
type BadgerLedger struct {
	db   *badger.DB
	path string

	genesisAnchor []byte
	lastIndex     int
	tipHash       []byte
	tipSlot       int

	needBootstrap bool
}

// NewBadgerLedger creates a brand new ledger with a fresh database.
func NewBadgerLedger(genesisAnchor []byte, path string) (*BadgerLedger, error) {
	opts := badger.DefaultOptions(path).WithSyncWrites(false)
	handle, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	ledger := &BadgerLedger{
		db:            handle,
		path:          path,
		genesisAnchor: genesisAnchor,
		lastIndex:     -1,
	}

	if err := ledger.dbSet([]byte(genesisKey), genesisAnchor); err != nil {
		return nil, err
	}

	return ledger, nil
}

// LoadBadgerLedger creates a ledger from an existing database, restoring the
// tip from the last stored block.
func LoadBadgerLedger(path string) (*BadgerLedger, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(path).WithSyncWrites(false)
	handle, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	ledger := &BadgerLedger{
		db:            handle,
		path:          path,
		lastIndex:     -1,
		needBootstrap: true,
	}

	genesisAnchor, err := ledger.dbGet([]byte(genesisKey))
	if err != nil {
		return nil, err
	}
	ledger.genesisAnchor = genesisAnchor

	lastIndexBytes, err := ledger.dbGet([]byte(lastIndexKey))
	if err != nil {
		if cm.IsStore(err, cm.KeyNotFound) {
			// empty ledger, tip is the genesis anchor
			return ledger, nil
		}
		return nil, err
	}

	lastIndex := 0
	if _, err := fmt.Sscanf(string(lastIndexBytes), "%d", &lastIndex); err != nil {
		return nil, err
	}
	ledger.lastIndex = lastIndex

	tip, err := ledger.GetBlock(lastIndex)
	if err != nil {
		return nil, err
	}

	tipHash, err := tip.Hash()
	if err != nil {
		return nil, err
	}

	ledger.tipHash = tipHash
	ledger.tipSlot = tip.Slot()

	return ledger, nil
}

// LoadOrCreateBadgerLedger tries to load an existing database and falls back
// to creating a new one.
func LoadOrCreateBadgerLedger(genesisAnchor []byte, path string) (*BadgerLedger, error) {
	ledger, err := LoadBadgerLedger(path)
	if err != nil {
		ledger, err = NewBadgerLedger(genesisAnchor, path)
		if err != nil {
			return nil, err
		}
	}
	return ledger, nil
}

// Tip implements the Ledger interface.
func (l *BadgerLedger) Tip() ([]byte, int) {
	if l.lastIndex < 0 {
		return l.genesisAnchor, 0
	}
	return l.tipHash, l.tipSlot
}

// LastIndex implements the Ledger interface.
func (l *BadgerLedger) LastIndex() int {
	return l.lastIndex
}

// GetBlock implements the Ledger interface.
func (l *BadgerLedger) GetBlock(index int) (*BlockProposal, error) {
	data, err := l.dbGet(blockKey(index))
	if err != nil {
		return nil, err
	}

	block := new(BlockProposal)
	if err := block.Unmarshal(data); err != nil {
		return nil, err
	}
	block.Finalized = true

	return block, nil
}

// Append implements the Ledger interface. All the proposals and the new last
// index are written in a single transaction.
func (l *BadgerLedger) Append(proposals []*BlockProposal) error {
	if len(proposals) == 0 {
		return nil
	}

	index := l.lastIndex
	err := l.db.Update(func(txn *badger.Txn) error {
		for _, p := range proposals {
			index++
			data, err := p.Marshal()
			if err != nil {
				return err
			}
			if err := txn.Set(blockKey(index), data); err != nil {
				return err
			}
		}
		return txn.Set([]byte(lastIndexKey), []byte(fmt.Sprintf("%d", index)))
	})
	if err != nil {
		return err
	}

	last := proposals[len(proposals)-1]
	tipHash, err := last.Hash()
	if err != nil {
		return err
	}

	l.lastIndex = index
	l.tipHash = tipHash
	l.tipSlot = last.Slot()

	return nil
}

// NeedBootstrap implements the Ledger interface.
func (l *BadgerLedger) NeedBootstrap() bool {
	return l.needBootstrap
}

// Close implements the Ledger interface.
func (l *BadgerLedger) Close() error {
	return l.db.Close()
}

//==============================================================================
//DB Methods

func blockKey(index int) []byte {
	return []byte(fmt.Sprintf("%s_%09d", blockPrefix, index))
}

func (l *BadgerLedger) dbGet(key []byte) ([]byte, error) {
	var data []byte
	err := l.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, cm.NewStoreErr("BadgerLedger", cm.KeyNotFound, string(key))
		}
		return nil, err
	}
	return data, nil
}

func (l *BadgerLedger) dbSet(key, value []byte) error {
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}
