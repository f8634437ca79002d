package consensus

import (
	"bytes"
	"crypto/ecdsa"
	"fmt"

	"github.com/rillchain/rill/src/crypto/keys"
	"github.com/rillchain/rill/src/epoch"
	"github.com/rillchain/rill/src/participant"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultMaxOrphanVotes is the default cap on buffered votes that refer
	// to proposals we have not seen yet.
	DefaultMaxOrphanVotes = 1000
	// DefaultMaxChains is the default cap on concurrently tracked forks.
	DefaultMaxChains = 64
)

// placement describes how a proposal relates to the chains the engine is
// currently tracking.
type placement int

const (
	placementNone placement = iota
	placementExtends
	placementDuplicate
	placementNewChain
)

// Engine implements the voting, notarization and finalization rules. It
// tracks every candidate fork from the tip of the canonical ledger, counts
// votes, and commits notarized prefixes to the ledger. It is not safe for
// concurrent use; the node serializes access through its critical section.
type Engine struct {
	key       *ecdsa.PrivateKey
	id        uint32
	pubKeyHex string

	clock    *epoch.Clock
	registry *participant.Registry
	ledger   Ledger
	mempool  *Mempool

	chains      []*ProposalChain
	orphanVotes []*Vote

	maxOrphanVotes int
	maxChains      int

	logger *logrus.Entry
}

// NewEngine instantiates an Engine around a ledger and a participant
// registry.
func NewEngine(
	key *ecdsa.PrivateKey,
	clock *epoch.Clock,
	registry *participant.Registry,
	ledger Ledger,
	logger *logrus.Entry,
) *Engine {
	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}
	id := keys.PublicKeyID(keys.FromPublicKey(&key.PublicKey))
	logger = logger.WithField("id", id)

	return &Engine{
		key:            key,
		id:             id,
		pubKeyHex:      keys.PublicKeyHex(&key.PublicKey),
		clock:          clock,
		registry:       registry,
		ledger:         ledger,
		mempool:        NewMempool(),
		chains:         []*ProposalChain{},
		orphanVotes:    []*Vote{},
		maxOrphanVotes: DefaultMaxOrphanVotes,
		maxChains:      DefaultMaxChains,
		logger:         logger,
	}
}

// SetLimits overrides the orphan-vote and fork caps. Non-positive values are
// ignored.
func (e *Engine) SetLimits(maxOrphanVotes, maxChains int) {
	if maxOrphanVotes > 0 {
		e.maxOrphanVotes = maxOrphanVotes
	}
	if maxChains > 0 {
		e.maxChains = maxChains
	}
}

// ID returns the identifier derived from the engine's public key.
func (e *Engine) ID() uint32 {
	return e.id
}

// PubKeyHex returns the engine's public key in hexadecimal string format.
func (e *Engine) PubKeyHex() string {
	return e.pubKeyHex
}

// Mempool exposes the pending-transaction pool.
func (e *Engine) Mempool() *Mempool {
	return e.mempool
}

// Ledger exposes the canonical ledger.
func (e *Engine) Ledger() Ledger {
	return e.ledger
}

// Registry exposes the participant registry.
func (e *Engine) Registry() *participant.Registry {
	return e.registry
}

// Clock exposes the epoch clock.
func (e *Engine) Clock() *epoch.Clock {
	return e.clock
}

/*******************************************************************************
Leader selection
*******************************************************************************/

// EpochLeader returns the leader for the given epoch. If the active set is
// empty, pending participants are promoted first so that the protocol can
// recover from total eviction.
func (e *Engine) EpochLeader(epochIndex int) *participant.Participant {
	if e.registry.Len() == 0 {
		promoted := e.registry.PromotePending()
		if promoted > 0 {
			e.logger.WithField("promoted", promoted).Debug("Recovered empty participant set")
		}
	}
	return e.registry.Leader(epochIndex)
}

// IsEpochLeader reports whether this engine's key is the leader for the given
// epoch.
func (e *Engine) IsEpochLeader(epochIndex int) bool {
	leader := e.EpochLeader(epochIndex)
	return leader != nil && leader.ID() == e.id
}

/*******************************************************************************
Proposing
*******************************************************************************/

// Propose builds and signs a proposal that extends the longest tracked chain
// whose tip is votable, or the ledger tip when no such chain exists. It does
// not mutate engine state; the proposal takes effect when it comes back
// through ReceiveProposal.
func (e *Engine) Propose() (*BlockProposal, error) {
	currentEpoch := e.clock.Current()
	if !e.IsEpochLeader(currentEpoch) {
		return nil, fmt.Errorf("not leader for epoch %d", currentEpoch)
	}

	parentHash, parentSlot := e.ledger.Tip()
	best := -1
	for i, chain := range e.chains {
		if !chain.ExtendsNotarized() {
			continue
		}
		if best < 0 || chain.Len() > e.chains[best].Len() {
			best = i
		}
	}
	if best >= 0 {
		tip := e.chains[best].Last()
		hash, err := tip.Hash()
		if err != nil {
			return nil, err
		}
		parentHash = hash
		parentSlot = tip.Slot()
	}

	proposal := NewBlockProposal(
		parentHash,
		currentEpoch,
		parentSlot+1,
		e.unproposedTransactions(),
	)
	if err := proposal.Sign(e.key); err != nil {
		return nil, err
	}

	e.logger.WithFields(logrus.Fields{
		"epoch": currentEpoch,
		"slot":  proposal.Slot(),
		"txs":   len(proposal.Transactions()),
	}).Debug("Propose")

	return proposal, nil
}

// unproposedTransactions returns pending transactions that do not already
// appear in a tracked proposal.
func (e *Engine) unproposedTransactions() [][]byte {
	proposed := map[string]bool{}
	for _, chain := range e.chains {
		for _, p := range chain.Proposals {
			for _, tx := range p.Transactions() {
				proposed[string(tx)] = true
			}
		}
	}

	txs := [][]byte{}
	for _, tx := range e.mempool.Transactions() {
		if !proposed[string(tx)] {
			txs = append(txs, tx)
		}
	}
	return txs
}

/*******************************************************************************
Receiving proposals
*******************************************************************************/

// ReceiveProposal processes an incoming proposal. It verifies the signature
// and the proposer's leadership for the proposal's epoch, places the proposal
// in the fork tree, and, when the voting rule allows, returns a signed vote
// for it. The returned vote is nil when the proposal does not warrant one.
func (e *Engine) ReceiveProposal(proposal *BlockProposal) (*Vote, error) {
	leader := e.EpochLeader(proposal.Epoch())
	if leader == nil {
		return nil, fmt.Errorf("no participants; cannot validate proposal")
	}
	if leader.PubKeyHex != proposal.ProposerPubKey {
		e.logger.WithFields(logrus.Fields{
			"epoch":    proposal.Epoch(),
			"proposer": proposal.ProposerID,
		}).Debug("Proposal from non-leader")
		return nil, nil
	}

	ok, err := proposal.Verify()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("invalid proposal signature")
	}

	return e.voteOnProposal(proposal)
}

// voteOnProposal applies the placement and voting rules to a verified
// proposal.
func (e *Engine) voteOnProposal(proposal *BlockProposal) (*Vote, error) {
	hash, err := proposal.Hash()
	if err != nil {
		return nil, err
	}

	e.attachOrphanVotes(proposal, hash)

	chainIndex, where := e.placeProposal(proposal)
	switch where {
	case placementDuplicate:
		e.logger.WithField("slot", proposal.Slot()).Debug("Duplicate proposal")
		return nil, nil
	case placementNone:
		e.logger.WithFields(logrus.Fields{
			"slot": proposal.Slot(),
			"hash": proposal.Hex(),
		}).Debug("Proposal does not attach")
		return nil, nil
	case placementExtends:
		if err := e.chains[chainIndex].Extend(proposal); err != nil {
			return nil, err
		}
	case placementNewChain:
		if len(e.chains) >= e.maxChains {
			e.logger.Debug("Fork limit reached; proposal ignored")
			return nil, nil
		}
		e.chains = append(e.chains, NewProposalChain(proposal))
		chainIndex = len(e.chains) - 1
	}

	chain := e.chains[chainIndex]

	if !proposal.Notarized && proposal.VoteCount() >= e.registry.SuperMajority() {
		proposal.Notarized = true
		if err := e.chainFinalization(chainIndex); err != nil {
			return nil, err
		}
	}

	if proposal.Finalized || !chain.ExtendsNotarized() {
		return nil, nil
	}

	vote, err := NewVote(e.key, hash, proposal.Slot())
	if err != nil {
		return nil, err
	}

	e.logger.WithFields(logrus.Fields{
		"slot":  proposal.Slot(),
		"epoch": proposal.Epoch(),
	}).Debug("Vote")

	return vote, nil
}

// placeProposal determines where a proposal fits among the tracked chains.
func (e *Engine) placeProposal(proposal *BlockProposal) (int, placement) {
	for i, chain := range e.chains {
		last := chain.Last()
		lastHash, err := last.Hash()
		if err != nil {
			continue
		}
		if bytes.Equal(proposal.ParentHash(), lastHash) && proposal.Slot() > last.Slot() {
			return i, placementExtends
		}
		if bytes.Equal(proposal.ParentHash(), last.ParentHash()) && proposal.Slot() == last.Slot() {
			return i, placementDuplicate
		}
	}

	tipHash, tipSlot := e.ledger.Tip()
	if bytes.Equal(proposal.ParentHash(), tipHash) && proposal.Slot() > tipSlot {
		return -1, placementNewChain
	}

	return -1, placementNone
}

/*******************************************************************************
Receiving votes
*******************************************************************************/

// ReceiveVote processes an incoming vote. It returns true when the vote was
// counted towards a tracked proposal, and false when it was a duplicate, was
// buffered as an orphan, or was rejected.
func (e *Engine) ReceiveVote(vote *Vote) (bool, error) {
	ok, err := vote.Verify()
	if err != nil {
		return false, err
	}
	if !ok {
		return false, fmt.Errorf("invalid vote signature")
	}

	// The quorum denominator is fixed before any membership changes that
	// this message might trigger.
	nodeCount := e.registry.Len()

	if nodeCount == 0 {
		promoted := e.registry.PromotePending()
		if promoted > 0 {
			e.logger.WithField("promoted", promoted).Debug("Recovered empty participant set")
		}
	}

	voter, ok := e.registry.ByPubKey[vote.VoterPubKey]
	if !ok {
		e.logger.WithField("voter", vote.VoterID).Debug("Vote from unknown participant")
		return false, nil
	}
	if voter.JoinedEpoch >= e.clock.Current() && voter.JoinedEpoch > 0 {
		e.logger.WithField("voter", vote.VoterID).Debug("Vote from not-yet-eligible participant")
		return false, nil
	}

	chainIndex, proposal := e.findProposal(vote.ProposalHash)
	if proposal == nil {
		e.bufferOrphanVote(vote)
		return false, nil
	}

	if !proposal.AddVote(vote) {
		return false, nil
	}

	if !proposal.Notarized && proposal.VoteCount() > 2*nodeCount/3 {
		proposal.Notarized = true
		e.logger.WithFields(logrus.Fields{
			"slot":  proposal.Slot(),
			"votes": proposal.VoteCount(),
		}).Debug("Notarized")
		if err := e.chainFinalization(chainIndex); err != nil {
			return false, err
		}
	}

	e.registry.RecordVote(voter.ID(), proposal.Epoch())

	return true, nil
}

// findProposal scans the tracked chains, tail first, for a proposal with the
// given hash.
func (e *Engine) findProposal(hash []byte) (int, *BlockProposal) {
	for i, chain := range e.chains {
		for j := chain.Len() - 1; j >= 0; j-- {
			p := chain.Proposals[j]
			h, err := p.Hash()
			if err != nil {
				continue
			}
			if bytes.Equal(h, hash) {
				return i, p
			}
		}
	}
	return -1, nil
}

/*******************************************************************************
Orphan votes
*******************************************************************************/

// bufferOrphanVote stores a vote whose proposal has not been seen yet. When
// the buffer is full, the orphan with the lowest slot is evicted first.
func (e *Engine) bufferOrphanVote(vote *Vote) {
	key := vote.OrphanKey()
	for _, o := range e.orphanVotes {
		if o.OrphanKey() == key {
			return
		}
	}

	if len(e.orphanVotes) >= e.maxOrphanVotes {
		lowest := 0
		for i, o := range e.orphanVotes {
			if o.Slot < e.orphanVotes[lowest].Slot {
				lowest = i
			}
		}
		if e.orphanVotes[lowest].Slot > vote.Slot {
			return
		}
		e.orphanVotes = append(e.orphanVotes[:lowest], e.orphanVotes[lowest+1:]...)
	}

	e.orphanVotes = append(e.orphanVotes, vote)
	e.logger.WithFields(logrus.Fields{
		"slot":    vote.Slot,
		"orphans": len(e.orphanVotes),
	}).Debug("Buffered orphan vote")
}

// attachOrphanVotes replays buffered votes that refer to the given proposal.
// The votes are applied directly; notarization is re-evaluated by the next
// ReceiveVote for the proposal, or immediately when the replay itself crosses
// the quorum.
func (e *Engine) attachOrphanVotes(proposal *BlockProposal, hash []byte) {
	kept := e.orphanVotes[:0]
	attached := 0
	for _, o := range e.orphanVotes {
		if bytes.Equal(o.ProposalHash, hash) {
			if proposal.AddVote(o) {
				attached++
			}
			continue
		}
		kept = append(kept, o)
	}
	e.orphanVotes = kept

	if attached > 0 {
		e.logger.WithFields(logrus.Fields{
			"slot":  proposal.Slot(),
			"votes": attached,
		}).Debug("Attached orphan votes")
	}
}

/*******************************************************************************
Finalization
*******************************************************************************/

// chainFinalization checks the finalization rule on one chain: when at least
// three consecutive proposals from the start of the chain are notarized, all
// but the last of them are committed to the ledger. Competing forks that no
// longer attach to the new tip are pruned, along with stale orphan votes.
func (e *Engine) chainFinalization(chainIndex int) error {
	chain := e.chains[chainIndex]
	consecutive := chain.ConsecutiveNotarized()
	if chain.Len() < 3 || consecutive < 3 {
		return nil
	}

	commit := chain.Proposals[:consecutive-1]
	for _, p := range commit {
		p.Finalized = true
	}

	if err := e.ledger.Append(commit); err != nil {
		return err
	}

	chain.Proposals = chain.Proposals[consecutive-1:]

	for _, p := range commit {
		e.mempool.Remove(p.Transactions())
	}

	e.logger.WithFields(logrus.Fields{
		"blocks":     len(commit),
		"last_index": e.ledger.LastIndex(),
	}).Debug("Finalized")

	e.pruneForks()
	e.pruneOrphanVotes()

	return nil
}

// pruneForks drops chains whose first proposal no longer attaches to the
// ledger tip.
func (e *Engine) pruneForks() {
	tipHash, tipSlot := e.ledger.Tip()

	kept := e.chains[:0]
	for _, chain := range e.chains {
		first := chain.First()
		if bytes.Equal(first.ParentHash(), tipHash) && first.Slot() > tipSlot {
			kept = append(kept, chain)
		}
	}
	if dropped := len(e.chains) - len(kept); dropped > 0 {
		e.logger.WithField("forks", dropped).Debug("Pruned forks")
	}
	e.chains = kept
}

// pruneOrphanVotes drops buffered votes for slots at or below the ledger tip.
func (e *Engine) pruneOrphanVotes() {
	_, tipSlot := e.ledger.Tip()

	kept := e.orphanVotes[:0]
	for _, o := range e.orphanVotes {
		if o.Slot > tipSlot {
			kept = append(kept, o)
		}
	}
	e.orphanVotes = kept
}

/*******************************************************************************
Membership
*******************************************************************************/

// AppendParticipant queues a participant for activation at the next epoch
// boundary.
func (e *Engine) AppendParticipant(p *participant.Participant) {
	e.registry.Append(p)
}

// RefreshParticipants promotes pending participants and evicts inactive ones.
// It is called at every epoch boundary.
func (e *Engine) RefreshParticipants() []*participant.Participant {
	evicted := e.registry.Refresh(e.clock.Current())
	if len(evicted) > 0 {
		e.logger.WithField("evicted", len(evicted)).Debug("Evicted inactive participants")
	}
	return evicted
}

/*******************************************************************************
Stats
*******************************************************************************/

// NumChains returns the number of tracked forks.
func (e *Engine) NumChains() int {
	return len(e.chains)
}

// OrphanVoteCount returns the number of buffered orphan votes.
func (e *Engine) OrphanVoteCount() int {
	return len(e.orphanVotes)
}

// PendingTransactions returns the number of transactions waiting for
// inclusion.
func (e *Engine) PendingTransactions() int {
	return e.mempool.Len()
}

// Chains returns the tracked forks.
func (e *Engine) Chains() []*ProposalChain {
	return e.chains
}
