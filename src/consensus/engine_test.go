package consensus

import (
	"crypto/ecdsa"
	"fmt"
	"reflect"
	"testing"
	"time"

	cm "github.com/rillchain/rill/src/common"
	"github.com/rillchain/rill/src/crypto/keys"
	"github.com/rillchain/rill/src/epoch"
	"github.com/rillchain/rill/src/participant"
)

type testValidator struct {
	key *ecdsa.PrivateKey
	p   *participant.Participant
}

// initEngine creates an engine owned by the first of n validators, all active
// since genesis, with a controllable epoch clock.
func initEngine(t *testing.T, n int) (*Engine, []*testValidator, func(int)) {
	validators := make([]*testValidator, n)
	initial := []*participant.Participant{}
	for i := 0; i < n; i++ {
		key, err := keys.GenerateECDSAKey()
		if err != nil {
			t.Fatal(err)
		}
		p := participant.NewParticipant(
			keys.PublicKeyHex(&key.PublicKey),
			fmt.Sprintf("127.0.0.1:%d", 1337+i),
			fmt.Sprintf("node%d", i),
			0,
		)
		validators[i] = &testValidator{key: key, p: p}
		initial = append(initial, p)
	}

	genesis := time.Unix(1000000, 0)
	currentTime := genesis
	clock := epoch.NewClockAt(genesis, time.Second, func() time.Time {
		return currentTime
	})
	setEpoch := func(e int) {
		currentTime = genesis.Add(time.Duration(e) * time.Second)
	}

	registry := participant.NewRegistry(initial)
	ledger := NewInmemLedger([]byte("genesis"))

	engine := NewEngine(validators[0].key, clock, registry, ledger, cm.NewTestEntry(t))

	return engine, validators, setEpoch
}

// leaderOf returns the validator that leads the given epoch.
func leaderOf(t *testing.T, engine *Engine, validators []*testValidator, epochIndex int) *testValidator {
	leader := engine.EpochLeader(epochIndex)
	if leader == nil {
		t.Fatal("No leader")
	}
	for _, v := range validators {
		if v.p.ID() == leader.ID() {
			return v
		}
	}
	t.Fatalf("Leader of epoch %d not among test validators", epochIndex)
	return nil
}

// proposeAs builds and signs a proposal on behalf of the leader of epochIndex.
func proposeAs(
	t *testing.T,
	engine *Engine,
	validators []*testValidator,
	epochIndex int,
	parent []byte,
	slot int,
	txs [][]byte,
) *BlockProposal {
	leader := leaderOf(t, engine, validators, epochIndex)
	proposal := NewBlockProposal(parent, epochIndex, slot, txs)
	if err := proposal.Sign(leader.key); err != nil {
		t.Fatal(err)
	}
	return proposal
}

// voteAs signs a vote for the proposal on behalf of the given validator and
// submits it to the engine.
func voteAs(t *testing.T, engine *Engine, v *testValidator, proposal *BlockProposal) bool {
	hash, err := proposal.Hash()
	if err != nil {
		t.Fatal(err)
	}
	vote, err := NewVote(v.key, hash, proposal.Slot())
	if err != nil {
		t.Fatal(err)
	}
	counted, err := engine.ReceiveVote(vote)
	if err != nil {
		t.Fatal(err)
	}
	return counted
}

// notarize submits enough votes to cross the two-thirds threshold.
func notarize(t *testing.T, engine *Engine, validators []*testValidator, proposal *BlockProposal) {
	quorum := 2*len(validators)/3 + 1
	for i := 0; i < quorum; i++ {
		voteAs(t, engine, validators[i], proposal)
	}
	if !proposal.Notarized {
		t.Fatalf("Proposal at slot %d should be notarized after %d votes", proposal.Slot(), quorum)
	}
}

func TestReceiveProposalCreatesChain(t *testing.T) {
	engine, validators, setEpoch := initEngine(t, 4)
	setEpoch(0)

	anchor, _ := engine.Ledger().Tip()
	proposal := proposeAs(t, engine, validators, 0, anchor, 1, [][]byte{[]byte("tx")})

	vote, err := engine.ReceiveProposal(proposal)
	if err != nil {
		t.Fatal(err)
	}
	if vote == nil {
		t.Fatal("Engine should vote on a proposal extending the ledger tip")
	}
	if vote.VoterID != engine.ID() {
		t.Fatalf("Vote should carry the engine's ID %d, got %d", engine.ID(), vote.VoterID)
	}
	if engine.NumChains() != 1 {
		t.Fatalf("Engine should track 1 chain, got %d", engine.NumChains())
	}
}

func TestReceiveProposalFromNonLeader(t *testing.T) {
	engine, validators, setEpoch := initEngine(t, 4)
	setEpoch(0)

	leader := leaderOf(t, engine, validators, 0)
	var impostor *testValidator
	for _, v := range validators {
		if v.p.ID() != leader.p.ID() {
			impostor = v
			break
		}
	}

	anchor, _ := engine.Ledger().Tip()
	proposal := NewBlockProposal(anchor, 0, 1, [][]byte{})
	if err := proposal.Sign(impostor.key); err != nil {
		t.Fatal(err)
	}

	vote, err := engine.ReceiveProposal(proposal)
	if err != nil {
		t.Fatal(err)
	}
	if vote != nil {
		t.Fatal("Engine should not vote on a proposal from a non-leader")
	}
	if engine.NumChains() != 0 {
		t.Fatal("Proposal from non-leader should not be tracked")
	}
}

func TestDuplicateProposal(t *testing.T) {
	engine, validators, setEpoch := initEngine(t, 4)
	setEpoch(0)

	anchor, _ := engine.Ledger().Tip()

	first := proposeAs(t, engine, validators, 0, anchor, 1, [][]byte{[]byte("tx1")})
	if _, err := engine.ReceiveProposal(first); err != nil {
		t.Fatal(err)
	}

	// same parent, same slot, different content
	second := proposeAs(t, engine, validators, 0, anchor, 1, [][]byte{[]byte("tx2")})
	vote, err := engine.ReceiveProposal(second)
	if err != nil {
		t.Fatal(err)
	}
	if vote != nil {
		t.Fatal("Engine should not vote on a duplicate proposal")
	}
	if engine.NumChains() != 1 {
		t.Fatalf("Duplicate should not open a new chain, got %d chains", engine.NumChains())
	}
}

func TestNotarizationThreshold(t *testing.T) {
	engine, validators, setEpoch := initEngine(t, 4)
	setEpoch(0)

	anchor, _ := engine.Ledger().Tip()
	proposal := proposeAs(t, engine, validators, 0, anchor, 1, [][]byte{})
	if _, err := engine.ReceiveProposal(proposal); err != nil {
		t.Fatal(err)
	}

	// 2 votes out of 4 is not enough
	voteAs(t, engine, validators[0], proposal)
	voteAs(t, engine, validators[1], proposal)
	if proposal.Notarized {
		t.Fatal("2 votes out of 4 should not notarize")
	}

	// the third vote crosses 2/3
	voteAs(t, engine, validators[2], proposal)
	if !proposal.Notarized {
		t.Fatal("3 votes out of 4 should notarize")
	}
}

func TestVoteIdempotence(t *testing.T) {
	engine, validators, setEpoch := initEngine(t, 4)
	setEpoch(0)

	anchor, _ := engine.Ledger().Tip()
	proposal := proposeAs(t, engine, validators, 0, anchor, 1, [][]byte{})
	if _, err := engine.ReceiveProposal(proposal); err != nil {
		t.Fatal(err)
	}

	hash, _ := proposal.Hash()
	vote, err := NewVote(validators[1].key, hash, 1)
	if err != nil {
		t.Fatal(err)
	}

	counted, err := engine.ReceiveVote(vote)
	if err != nil {
		t.Fatal(err)
	}
	if !counted {
		t.Fatal("First vote should be counted")
	}

	counted, err = engine.ReceiveVote(vote)
	if err != nil {
		t.Fatal(err)
	}
	if counted {
		t.Fatal("Replayed vote should not be counted")
	}
	if proposal.VoteCount() != 1 {
		t.Fatalf("VoteCount should be 1, got %d", proposal.VoteCount())
	}
}

func TestVoteFromUnknownParticipant(t *testing.T) {
	engine, validators, setEpoch := initEngine(t, 4)
	setEpoch(0)

	anchor, _ := engine.Ledger().Tip()
	proposal := proposeAs(t, engine, validators, 0, anchor, 1, [][]byte{})
	if _, err := engine.ReceiveProposal(proposal); err != nil {
		t.Fatal(err)
	}

	strangerKey, _ := keys.GenerateECDSAKey()
	hash, _ := proposal.Hash()
	vote, _ := NewVote(strangerKey, hash, 1)

	counted, err := engine.ReceiveVote(vote)
	if err != nil {
		t.Fatal(err)
	}
	if counted {
		t.Fatal("Vote from an unregistered key should be rejected")
	}
	if proposal.VoteCount() != 0 {
		t.Fatal("Rejected vote should not be recorded")
	}
}

func TestFinalization(t *testing.T) {
	engine, validators, setEpoch := initEngine(t, 4)

	engine.Mempool().Add([]byte("tx1"))
	engine.Mempool().Add([]byte("tx2"))

	anchor, _ := engine.Ledger().Tip()

	setEpoch(0)
	p1 := proposeAs(t, engine, validators, 0, anchor, 1, [][]byte{[]byte("tx1")})
	if _, err := engine.ReceiveProposal(p1); err != nil {
		t.Fatal(err)
	}
	notarize(t, engine, validators, p1)

	h1, _ := p1.Hash()
	setEpoch(1)
	p2 := proposeAs(t, engine, validators, 1, h1, 2, [][]byte{[]byte("tx2")})
	if _, err := engine.ReceiveProposal(p2); err != nil {
		t.Fatal(err)
	}
	notarize(t, engine, validators, p2)

	if engine.Ledger().LastIndex() != -1 {
		t.Fatal("Two notarized proposals should not finalize anything")
	}

	h2, _ := p2.Hash()
	setEpoch(2)
	p3 := proposeAs(t, engine, validators, 2, h2, 3, [][]byte{})
	if _, err := engine.ReceiveProposal(p3); err != nil {
		t.Fatal(err)
	}
	notarize(t, engine, validators, p3)

	// three consecutive notarized proposals finalize all but the last
	if engine.Ledger().LastIndex() != 1 {
		t.Fatalf("LastIndex should be 1, got %d", engine.Ledger().LastIndex())
	}

	tipHash, tipSlot := engine.Ledger().Tip()
	if !reflect.DeepEqual(tipHash, h2) {
		t.Fatal("Ledger tip should be the second proposal")
	}
	if tipSlot != 2 {
		t.Fatalf("Ledger tip slot should be 2, got %d", tipSlot)
	}

	if !p1.Finalized || !p2.Finalized {
		t.Fatal("Committed proposals should be marked finalized")
	}
	if p3.Finalized {
		t.Fatal("The last notarized proposal should not be finalized yet")
	}

	if engine.NumChains() != 1 {
		t.Fatalf("Engine should still track the surviving chain, got %d", engine.NumChains())
	}
	if engine.Chains()[0].Len() != 1 || engine.Chains()[0].First() != p3 {
		t.Fatal("The surviving chain should contain only the last notarized proposal")
	}

	if engine.PendingTransactions() != 0 {
		t.Fatalf("Committed transactions should leave the mempool, got %d pending",
			engine.PendingTransactions())
	}
}

func TestForkPruning(t *testing.T) {
	engine, validators, setEpoch := initEngine(t, 4)
	setEpoch(0)

	anchor, _ := engine.Ledger().Tip()

	// two competing chains off the ledger tip
	pA1 := proposeAs(t, engine, validators, 0, anchor, 1, [][]byte{[]byte("a")})
	if _, err := engine.ReceiveProposal(pA1); err != nil {
		t.Fatal(err)
	}
	pB1 := proposeAs(t, engine, validators, 0, anchor, 2, [][]byte{[]byte("b")})
	if _, err := engine.ReceiveProposal(pB1); err != nil {
		t.Fatal(err)
	}
	if engine.NumChains() != 2 {
		t.Fatalf("Engine should track 2 competing chains, got %d", engine.NumChains())
	}

	notarize(t, engine, validators, pA1)

	hA1, _ := pA1.Hash()
	setEpoch(1)
	pA2 := proposeAs(t, engine, validators, 1, hA1, 3, [][]byte{})
	if _, err := engine.ReceiveProposal(pA2); err != nil {
		t.Fatal(err)
	}
	notarize(t, engine, validators, pA2)

	hA2, _ := pA2.Hash()
	setEpoch(2)
	pA3 := proposeAs(t, engine, validators, 2, hA2, 4, [][]byte{})
	if _, err := engine.ReceiveProposal(pA3); err != nil {
		t.Fatal(err)
	}
	notarize(t, engine, validators, pA3)

	// finalization commits pA1 and pA2; the fork no longer attaches
	if engine.Ledger().LastIndex() != 1 {
		t.Fatalf("LastIndex should be 1, got %d", engine.Ledger().LastIndex())
	}
	if engine.NumChains() != 1 {
		t.Fatalf("The losing fork should be pruned, got %d chains", engine.NumChains())
	}
	if engine.Chains()[0].First() != pA3 {
		t.Fatal("The surviving chain should be the finalized one")
	}
}

func TestOrphanVoteReattachment(t *testing.T) {
	engine, validators, setEpoch := initEngine(t, 4)
	setEpoch(0)

	anchor, _ := engine.Ledger().Tip()
	proposal := proposeAs(t, engine, validators, 0, anchor, 1, [][]byte{})
	hash, _ := proposal.Hash()

	// votes arrive before the proposal
	for i := 0; i < 3; i++ {
		vote, err := NewVote(validators[i].key, hash, 1)
		if err != nil {
			t.Fatal(err)
		}
		counted, err := engine.ReceiveVote(vote)
		if err != nil {
			t.Fatal(err)
		}
		if counted {
			t.Fatal("Vote for an unseen proposal should not be counted")
		}
	}
	if engine.OrphanVoteCount() != 3 {
		t.Fatalf("3 orphan votes should be buffered, got %d", engine.OrphanVoteCount())
	}

	if _, err := engine.ReceiveProposal(proposal); err != nil {
		t.Fatal(err)
	}

	if engine.OrphanVoteCount() != 0 {
		t.Fatalf("Orphan votes should be consumed, got %d left", engine.OrphanVoteCount())
	}
	if proposal.VoteCount() != 3 {
		t.Fatalf("Proposal should carry 3 replayed votes, got %d", proposal.VoteCount())
	}
	if !proposal.Notarized {
		t.Fatal("Replayed votes crossing the threshold should notarize")
	}
}

func TestOrphanVoteEviction(t *testing.T) {
	engine, validators, setEpoch := initEngine(t, 4)
	setEpoch(0)

	engine.SetLimits(2, 0)

	for slot := 1; slot <= 3; slot++ {
		vote, err := NewVote(validators[1].key, []byte(fmt.Sprintf("unknown%d", slot)), slot)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := engine.ReceiveVote(vote); err != nil {
			t.Fatal(err)
		}
	}

	if engine.OrphanVoteCount() != 2 {
		t.Fatalf("Orphan buffer should be capped at 2, got %d", engine.OrphanVoteCount())
	}
	for _, o := range engine.orphanVotes {
		if o.Slot == 1 {
			t.Fatal("The lowest-slot orphan should have been evicted")
		}
	}
}

func TestProposeExtendsNotarizedChain(t *testing.T) {
	engine, validators, setEpoch := initEngine(t, 4)
	setEpoch(0)

	engine.Mempool().Add([]byte("tx1"))
	engine.Mempool().Add([]byte("tx2"))

	anchor, _ := engine.Ledger().Tip()
	p1 := proposeAs(t, engine, validators, 0, anchor, 1, [][]byte{[]byte("tx1")})
	if _, err := engine.ReceiveProposal(p1); err != nil {
		t.Fatal(err)
	}
	notarize(t, engine, validators, p1)

	// find an epoch led by the engine itself
	ownEpoch := -1
	for e := 1; e < 1+len(validators); e++ {
		if engine.IsEpochLeader(e) {
			ownEpoch = e
			break
		}
	}
	if ownEpoch < 0 {
		t.Fatal("Engine should lead one epoch per rotation")
	}
	setEpoch(ownEpoch)

	proposal, err := engine.Propose()
	if err != nil {
		t.Fatal(err)
	}

	h1, _ := p1.Hash()
	if !reflect.DeepEqual(proposal.ParentHash(), h1) {
		t.Fatal("Proposal should extend the notarized chain tip")
	}
	if proposal.Slot() != 2 {
		t.Fatalf("Proposal slot should be 2, got %d", proposal.Slot())
	}
	if proposal.Epoch() != ownEpoch {
		t.Fatalf("Proposal epoch should be %d, got %d", ownEpoch, proposal.Epoch())
	}

	// tx1 is already proposed in the tracked chain, only tx2 remains
	expected := [][]byte{[]byte("tx2")}
	if !reflect.DeepEqual(proposal.Transactions(), expected) {
		t.Fatalf("Proposal should carry only unproposed transactions, got %v",
			proposal.Transactions())
	}
}

func TestProposeNotLeader(t *testing.T) {
	engine, validators, setEpoch := initEngine(t, 4)

	otherEpoch := -1
	for e := 0; e < len(validators); e++ {
		if !engine.IsEpochLeader(e) {
			otherEpoch = e
			break
		}
	}
	setEpoch(otherEpoch)

	if _, err := engine.Propose(); err == nil {
		t.Fatal("Propose should fail when the engine is not the epoch leader")
	}
}

func TestReceiveVoteMalformedSignature(t *testing.T) {
	engine, validators, setEpoch := initEngine(t, 4)
	setEpoch(0)

	anchor, _ := engine.Ledger().Tip()
	p1 := proposeAs(t, engine, validators, 0, anchor, 1, [][]byte{})
	if _, err := engine.ReceiveProposal(p1); err != nil {
		t.Fatal(err)
	}

	hash, _ := p1.Hash()
	vote, err := NewVote(validators[1].key, hash, p1.Slot())
	if err != nil {
		t.Fatal(err)
	}
	vote.Signature = "!|!"

	counted, err := engine.ReceiveVote(vote)
	if err == nil {
		t.Fatal("A vote with an unparsable signature should be rejected")
	}
	if counted {
		t.Fatal("A vote with an unparsable signature should not be counted")
	}
	if p1.VoteCount() != 0 {
		t.Fatalf("VoteCount should be 0, got %d", p1.VoteCount())
	}
}

func TestReceiveVoteUnparsablePublicKey(t *testing.T) {
	engine, validators, setEpoch := initEngine(t, 4)
	setEpoch(0)

	anchor, _ := engine.Ledger().Tip()
	p1 := proposeAs(t, engine, validators, 0, anchor, 1, [][]byte{})
	if _, err := engine.ReceiveProposal(p1); err != nil {
		t.Fatal(err)
	}

	hash, _ := p1.Hash()
	vote, err := NewVote(validators[1].key, hash, p1.Slot())
	if err != nil {
		t.Fatal(err)
	}
	vote.VoterPubKey = cm.EncodeToString([]byte{0x04, 0x01, 0x02})

	counted, err := engine.ReceiveVote(vote)
	if err == nil {
		t.Fatal("A vote with an unparsable public key should be rejected")
	}
	if counted {
		t.Fatal("A vote with an unparsable public key should not be counted")
	}
}

func TestReceiveProposalMalformedSignature(t *testing.T) {
	engine, validators, setEpoch := initEngine(t, 4)
	setEpoch(0)

	anchor, _ := engine.Ledger().Tip()
	p1 := proposeAs(t, engine, validators, 0, anchor, 1, [][]byte{})
	p1.Signature = "!|!"

	vote, err := engine.ReceiveProposal(p1)
	if err == nil {
		t.Fatal("A proposal with an unparsable signature should be rejected")
	}
	if vote != nil {
		t.Fatal("A proposal with an unparsable signature should not be voted on")
	}
	if engine.NumChains() != 0 {
		t.Fatalf("No chain should be created, got %d", engine.NumChains())
	}
}

func TestReceiveVoteEmptyParticipantSet(t *testing.T) {
	ownerKey, err := keys.GenerateECDSAKey()
	if err != nil {
		t.Fatal(err)
	}
	voterKey, err := keys.GenerateECDSAKey()
	if err != nil {
		t.Fatal(err)
	}

	// everyone is pending; the active set starts out empty
	registry := participant.NewRegistry(nil)
	registry.Append(participant.NewParticipant(
		keys.PublicKeyHex(&ownerKey.PublicKey), "127.0.0.1:1337", "owner", 0))
	registry.Append(participant.NewParticipant(
		keys.PublicKeyHex(&voterKey.PublicKey), "127.0.0.1:1338", "voter", 0))

	genesis := time.Unix(1000000, 0)
	clock := epoch.NewClockAt(genesis, time.Second, func() time.Time {
		return genesis
	})

	engine := NewEngine(ownerKey, clock, registry,
		NewInmemLedger([]byte("genesis")), cm.NewTestEntry(t))

	vote, err := NewVote(voterKey, []byte("not yet delivered"), 1)
	if err != nil {
		t.Fatal(err)
	}

	counted, err := engine.ReceiveVote(vote)
	if err != nil {
		t.Fatal(err)
	}
	if counted {
		t.Fatal("A vote for an untracked proposal should not be counted")
	}

	if registry.Len() != 2 {
		t.Fatalf("Pending participants should be activated, got %d active", registry.Len())
	}
	if engine.OrphanVoteCount() != 1 {
		t.Fatalf("The vote should be buffered, got %d orphans", engine.OrphanVoteCount())
	}
}

func TestVoteWithheldOnUnnotarizedChain(t *testing.T) {
	engine, validators, setEpoch := initEngine(t, 4)

	anchor, _ := engine.Ledger().Tip()

	setEpoch(0)
	p1 := proposeAs(t, engine, validators, 0, anchor, 1, [][]byte{})
	vote1, err := engine.ReceiveProposal(p1)
	if err != nil {
		t.Fatal(err)
	}
	if vote1 == nil {
		t.Fatal("The engine should vote for a proposal extending the ledger tip")
	}

	h1, _ := p1.Hash()
	setEpoch(1)
	p2 := proposeAs(t, engine, validators, 1, h1, 2, [][]byte{})
	vote2, err := engine.ReceiveProposal(p2)
	if err != nil {
		t.Fatal(err)
	}
	if vote2 != nil {
		t.Fatal("The engine should withhold its vote while the parent is not notarized")
	}
	if engine.NumChains() != 1 || engine.Chains()[0].Len() != 2 {
		t.Fatal("The unvoted proposal should still extend the tracked chain")
	}

	notarize(t, engine, validators, p1)
	notarize(t, engine, validators, p2)
	if !p2.Notarized {
		t.Fatal("The stored proposal should notarize once votes arrive")
	}
}

func TestOrphanPruningOnFinalization(t *testing.T) {
	engine, validators, setEpoch := initEngine(t, 4)

	anchor, _ := engine.Ledger().Tip()

	setEpoch(0)
	p1 := proposeAs(t, engine, validators, 0, anchor, 1, [][]byte{[]byte("tx1")})
	if _, err := engine.ReceiveProposal(p1); err != nil {
		t.Fatal(err)
	}
	notarize(t, engine, validators, p1)

	h1, _ := p1.Hash()
	setEpoch(1)
	p2 := proposeAs(t, engine, validators, 1, h1, 2, [][]byte{})
	if _, err := engine.ReceiveProposal(p2); err != nil {
		t.Fatal(err)
	}
	notarize(t, engine, validators, p2)

	// orphan votes straddling the soon-to-be ledger tip at slot 2
	stale, err := NewVote(validators[1].key, []byte("unseen proposal at slot 1"), 1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := engine.ReceiveVote(stale); err != nil {
		t.Fatal(err)
	}
	ahead, err := NewVote(validators[2].key, []byte("unseen proposal at slot 5"), 5)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := engine.ReceiveVote(ahead); err != nil {
		t.Fatal(err)
	}
	if engine.OrphanVoteCount() != 2 {
		t.Fatalf("Both votes should be buffered, got %d orphans", engine.OrphanVoteCount())
	}

	h2, _ := p2.Hash()
	setEpoch(2)
	p3 := proposeAs(t, engine, validators, 2, h2, 3, [][]byte{})
	if _, err := engine.ReceiveProposal(p3); err != nil {
		t.Fatal(err)
	}
	notarize(t, engine, validators, p3)

	if engine.Ledger().LastIndex() != 1 {
		t.Fatalf("LastIndex should be 1, got %d", engine.Ledger().LastIndex())
	}
	if engine.OrphanVoteCount() != 1 {
		t.Fatalf("Orphans at or below the ledger tip slot should be pruned, got %d",
			engine.OrphanVoteCount())
	}
}
