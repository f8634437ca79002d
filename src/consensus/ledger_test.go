package consensus

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	cm "github.com/rillchain/rill/src/common"
	"github.com/rillchain/rill/src/crypto/keys"
)

func makeBlocks(t *testing.T, parent []byte, startSlot, n int) []*BlockProposal {
	key, _ := keys.GenerateECDSAKey()

	blocks := []*BlockProposal{}
	for i := 0; i < n; i++ {
		block := NewBlockProposal(parent, i, startSlot+i, [][]byte{[]byte("tx")})
		if err := block.Sign(key); err != nil {
			t.Fatal(err)
		}
		block.Notarized = true
		block.Finalized = true

		hash, err := block.Hash()
		if err != nil {
			t.Fatal(err)
		}
		parent = hash

		blocks = append(blocks, block)
	}
	return blocks
}

func TestInmemLedger(t *testing.T) {
	anchor := []byte("genesis")
	ledger := NewInmemLedger(anchor)

	tipHash, tipSlot := ledger.Tip()
	if !reflect.DeepEqual(tipHash, anchor) {
		t.Fatal("Empty ledger tip should be the genesis anchor")
	}
	if tipSlot != 0 {
		t.Fatalf("Empty ledger tip slot should be 0, got %d", tipSlot)
	}
	if ledger.LastIndex() != -1 {
		t.Fatalf("Empty ledger LastIndex should be -1, got %d", ledger.LastIndex())
	}

	blocks := makeBlocks(t, anchor, 1, 3)
	if err := ledger.Append(blocks); err != nil {
		t.Fatal(err)
	}

	if ledger.LastIndex() != 2 {
		t.Fatalf("LastIndex should be 2, got %d", ledger.LastIndex())
	}

	tipHash, tipSlot = ledger.Tip()
	lastHash, _ := blocks[2].Hash()
	if !reflect.DeepEqual(tipHash, lastHash) {
		t.Fatal("Tip hash should be the last appended block's hash")
	}
	if tipSlot != blocks[2].Slot() {
		t.Fatalf("Tip slot should be %d, got %d", blocks[2].Slot(), tipSlot)
	}

	for i, expected := range blocks {
		block, err := ledger.GetBlock(i)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(block.Body, expected.Body) {
			t.Fatalf("GetBlock(%d) body mismatch", i)
		}
	}

	if _, err := ledger.GetBlock(10); !cm.IsStore(err, cm.KeyNotFound) {
		t.Fatalf("GetBlock past the end should return KeyNotFound, got %v", err)
	}
}

func TestBadgerLedger(t *testing.T) {
	dir, err := ioutil.TempDir("", "badger")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "db")

	anchor := []byte("genesis")

	ledger, err := NewBadgerLedger(anchor, path)
	if err != nil {
		t.Fatal(err)
	}

	blocks := makeBlocks(t, anchor, 1, 3)
	if err := ledger.Append(blocks); err != nil {
		t.Fatal(err)
	}

	if ledger.LastIndex() != 2 {
		t.Fatalf("LastIndex should be 2, got %d", ledger.LastIndex())
	}

	if err := ledger.Close(); err != nil {
		t.Fatal(err)
	}

	//Reload from disk
	reloaded, err := LoadBadgerLedger(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reloaded.Close()

	if !reloaded.NeedBootstrap() {
		t.Fatal("Reloaded ledger should report NeedBootstrap")
	}
	if reloaded.LastIndex() != 2 {
		t.Fatalf("Reloaded LastIndex should be 2, got %d", reloaded.LastIndex())
	}

	tipHash, tipSlot := reloaded.Tip()
	lastHash, _ := blocks[2].Hash()
	if !reflect.DeepEqual(tipHash, lastHash) {
		t.Fatal("Reloaded tip hash should match the last block")
	}
	if tipSlot != blocks[2].Slot() {
		t.Fatalf("Reloaded tip slot should be %d, got %d", blocks[2].Slot(), tipSlot)
	}

	for i, expected := range blocks {
		block, err := reloaded.GetBlock(i)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(block.Body, expected.Body) {
			t.Fatalf("GetBlock(%d) body mismatch after reload", i)
		}
	}
}

func TestMempool(t *testing.T) {
	pool := NewMempool()

	if !pool.Add([]byte("tx1")) {
		t.Fatal("First Add should succeed")
	}
	if pool.Add([]byte("tx1")) {
		t.Fatal("Duplicate Add should return false")
	}
	pool.Add([]byte("tx2"))
	pool.Add([]byte("tx3"))

	if pool.Len() != 3 {
		t.Fatalf("Len should be 3, got %d", pool.Len())
	}

	pool.Remove([][]byte{[]byte("tx1"), []byte("tx3")})

	expected := [][]byte{[]byte("tx2")}
	if !reflect.DeepEqual(pool.Transactions(), expected) {
		t.Fatalf("Transactions should be %v, got %v", expected, pool.Transactions())
	}

	//Removed transactions can be resubmitted
	if !pool.Add([]byte("tx1")) {
		t.Fatal("Re-adding a removed transaction should succeed")
	}
}
