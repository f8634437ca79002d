package net

import (
	"github.com/rillchain/rill/src/consensus"
	"github.com/rillchain/rill/src/participant"
)

// ProposalRequest carries a block proposal to another validator.
type ProposalRequest struct {
	FromID   uint32
	Proposal *consensus.BlockProposal
}

// ProposalResponse acknowledges a ProposalRequest. When the receiver's voting
// rule allows it, Vote carries the receiver's own vote for the proposal, so
// that the proposer can count it without waiting for a separate broadcast.
// Vote is nil when the receiver withheld its vote.
type ProposalResponse struct {
	FromID uint32
	Vote   *consensus.Vote
}

// VoteRequest carries a vote to another validator.
type VoteRequest struct {
	FromID uint32
	Vote   *consensus.Vote
}

// VoteResponse acknowledges a VoteRequest. Counted indicates whether the vote
// was applied to a tracked proposal, as opposed to being buffered, duplicate,
// or rejected.
type VoteResponse struct {
	FromID  uint32
	Counted bool
}

// JoinRequest is used by a prospective validator to ask an existing one for
// admission into the participant set.
type JoinRequest struct {
	Participant *participant.Participant
}

// JoinResponse contains the response to a JoinRequest. AcceptedEpoch is the
// first epoch in which the new participant may vote. Participants is the
// receiver's current view of the active set, which the joiner uses to seed
// its own registry.
type JoinResponse struct {
	FromID        uint32
	Accepted      bool
	AcceptedEpoch int
	Participants  []*participant.Participant
}
