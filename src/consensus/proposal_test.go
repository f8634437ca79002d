package consensus

import (
	"reflect"
	"testing"

	"github.com/rillchain/rill/src/crypto/keys"
)

func TestProposalSignVerify(t *testing.T) {
	key, _ := keys.GenerateECDSAKey()

	proposal := NewBlockProposal(
		[]byte("parent"),
		2,
		5,
		[][]byte{[]byte("tx1"), []byte("tx2")},
	)

	if err := proposal.Sign(key); err != nil {
		t.Fatal(err)
	}

	ok, err := proposal.Verify()
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("Proposal signature should be valid")
	}

	proposal.Body.Slot = 6
	proposal.hash = nil
	proposal.hex = ""

	ok, err = proposal.Verify()
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("Tampered proposal should not verify")
	}
}

func TestProposalHashDeterminism(t *testing.T) {
	a := NewBlockProposal([]byte("parent"), 1, 1, [][]byte{[]byte("tx")})
	b := NewBlockProposal([]byte("parent"), 1, 1, [][]byte{[]byte("tx")})

	ha, err := a.Hash()
	if err != nil {
		t.Fatal(err)
	}
	hb, err := b.Hash()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(ha, hb) {
		t.Fatal("Identical bodies should hash identically")
	}

	c := NewBlockProposal([]byte("parent"), 1, 2, [][]byte{[]byte("tx")})
	hc, err := c.Hash()
	if err != nil {
		t.Fatal(err)
	}
	if reflect.DeepEqual(ha, hc) {
		t.Fatal("Different bodies should hash differently")
	}
}

func TestProposalMarshalExcludesVotes(t *testing.T) {
	key, _ := keys.GenerateECDSAKey()

	proposal := NewBlockProposal([]byte("parent"), 0, 1, [][]byte{[]byte("tx")})
	if err := proposal.Sign(key); err != nil {
		t.Fatal(err)
	}

	hash, _ := proposal.Hash()
	vote, err := NewVote(key, hash, proposal.Slot())
	if err != nil {
		t.Fatal(err)
	}
	proposal.AddVote(vote)
	proposal.Notarized = true

	data, err := proposal.Marshal()
	if err != nil {
		t.Fatal(err)
	}

	decoded := new(BlockProposal)
	if err := decoded.Unmarshal(data); err != nil {
		t.Fatal(err)
	}

	if decoded.VoteCount() != 0 {
		t.Fatalf("Wire format should not carry votes, got %d", decoded.VoteCount())
	}
	if decoded.Notarized {
		t.Fatal("Wire format should not carry notarization status")
	}
	if !reflect.DeepEqual(decoded.Body, proposal.Body) {
		t.Fatalf("Body should roundtrip. Got %#v, expected %#v", decoded.Body, proposal.Body)
	}

	dh, _ := decoded.Hash()
	ph, _ := proposal.Hash()
	if !reflect.DeepEqual(dh, ph) {
		t.Fatal("Hash should survive the roundtrip")
	}
}

func TestVoteSignVerify(t *testing.T) {
	key, _ := keys.GenerateECDSAKey()

	vote, err := NewVote(key, []byte("proposalhash"), 3)
	if err != nil {
		t.Fatal(err)
	}

	ok, err := vote.Verify()
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("Vote signature should be valid")
	}

	vote.ProposalHash = []byte("otherhash")
	ok, err = vote.Verify()
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("Tampered vote should not verify")
	}
}

func TestAddVoteIdempotent(t *testing.T) {
	key, _ := keys.GenerateECDSAKey()

	proposal := NewBlockProposal([]byte("parent"), 0, 1, [][]byte{})
	hash, _ := proposal.Hash()

	vote, _ := NewVote(key, hash, 1)

	if !proposal.AddVote(vote) {
		t.Fatal("First AddVote should succeed")
	}
	if proposal.AddVote(vote) {
		t.Fatal("Duplicate AddVote should return false")
	}
	if proposal.VoteCount() != 1 {
		t.Fatalf("VoteCount should be 1, got %d", proposal.VoteCount())
	}
}
