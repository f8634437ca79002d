package consensus

import (
	"bytes"
	"fmt"
)

// ProposalChain is one tracked fork: an ordered sequence of proposals, each
// extending the previous one, whose first element extends the canonical tip
// as it was when the chain was created.
//
// Invariants: a chain is never empty, slots strictly increase along it, and
// each proposal's ParentHash equals the hash of its predecessor.
type ProposalChain struct {
	Proposals []*BlockProposal
}

// NewProposalChain creates a chain anchored at the given first proposal.
func NewProposalChain(first *BlockProposal) *ProposalChain {
	return &ProposalChain{
		Proposals: []*BlockProposal{first},
	}
}

// Len returns the number of proposals in the chain.
func (c *ProposalChain) Len() int {
	return len(c.Proposals)
}

// First returns the chain's first proposal. A chain is never empty; finding
// one is a local bug, so fail loudly.
func (c *ProposalChain) First() *BlockProposal {
	if len(c.Proposals) == 0 {
		panic("empty proposal chain")
	}
	return c.Proposals[0]
}

// Last returns the chain's last proposal.
func (c *ProposalChain) Last() *BlockProposal {
	if len(c.Proposals) == 0 {
		panic("empty proposal chain")
	}
	return c.Proposals[len(c.Proposals)-1]
}

// Extend appends a proposal to the chain after checking parent linkage and
// slot monotonicity.
func (c *ProposalChain) Extend(p *BlockProposal) error {
	last := c.Last()

	lastHash, err := last.Hash()
	if err != nil {
		return err
	}

	if !bytes.Equal(p.ParentHash(), lastHash) {
		return fmt.Errorf("proposal parent %s does not match chain tip %s", p.Hex(), last.Hex())
	}

	if p.Slot() <= last.Slot() {
		return fmt.Errorf("proposal slot %d does not increase chain tip slot %d", p.Slot(), last.Slot())
	}

	c.Proposals = append(c.Proposals, p)

	return nil
}

// ExtendsNotarized reports whether every proposal in the chain, except
// possibly the last, is notarized. This is the condition under which the
// chain's tip is votable.
func (c *ProposalChain) ExtendsNotarized() bool {
	for _, p := range c.Proposals[:len(c.Proposals)-1] {
		if !p.Notarized {
			return false
		}
	}
	return true
}

// ConsecutiveNotarized returns the length of the notarized prefix of the
// chain.
func (c *ProposalChain) ConsecutiveNotarized() int {
	consecutive := 0
	for _, p := range c.Proposals {
		if !p.Notarized {
			break
		}
		consecutive++
	}
	return consecutive
}
