package node

import (
	"fmt"

	"github.com/rillchain/rill/src/consensus"
	"github.com/rillchain/rill/src/crypto/keys"
	"github.com/rillchain/rill/src/net"
	"github.com/rillchain/rill/src/participant"
	"github.com/sirupsen/logrus"
)

func (n *Node) requestProposal(target string, proposal *consensus.BlockProposal) (net.ProposalResponse, error) {
	args := net.ProposalRequest{
		FromID:   n.validator.ID(),
		Proposal: proposal,
	}

	var out net.ProposalResponse

	err := n.trans.SendProposal(target, &args, &out)

	return out, err
}

func (n *Node) requestVote(target string, vote *consensus.Vote) (net.VoteResponse, error) {
	args := net.VoteRequest{
		FromID: n.validator.ID(),
		Vote:   vote,
	}

	var out net.VoteResponse

	err := n.trans.SendVote(target, &args, &out)

	return out, err
}

func (n *Node) requestJoin(target string) (net.JoinResponse, error) {
	p := participant.NewParticipant(
		n.validator.PublicKeyHex(),
		n.trans.AdvertiseAddr(),
		n.validator.Moniker,
		0,
	)

	args := net.JoinRequest{Participant: p}

	var out net.JoinResponse

	err := n.trans.Join(target, &args, &out)

	return out, err
}

func (n *Node) processRPC(rpc net.RPC) {
	switch cmd := rpc.Command.(type) {
	case *net.ProposalRequest:
		n.processProposalRequest(rpc, cmd)
	case *net.VoteRequest:
		n.processVoteRequest(rpc, cmd)
	case *net.JoinRequest:
		n.processJoinRequest(rpc, cmd)
	default:
		n.logger.WithField("cmd", rpc.Command).Error("Unexpected RPC command")
		rpc.Respond(nil, fmt.Errorf("unexpected command"))
	}
}

func (n *Node) processProposalRequest(rpc net.RPC, cmd *net.ProposalRequest) {
	n.logger.WithFields(logrus.Fields{
		"from_id": cmd.FromID,
		"epoch":   cmd.Proposal.Epoch(),
		"slot":    cmd.Proposal.Slot(),
	}).Debug("process ProposalRequest")

	resp := &net.ProposalResponse{
		FromID: n.validator.ID(),
	}

	var respErr error

	suspended := n.getState() == Suspended

	n.engineLock.Lock()
	vote, err := n.engine.ReceiveProposal(cmd.Proposal)
	if err != nil {
		respErr = err
	} else if vote != nil && !suspended {
		resp.Vote = vote
		//count our own vote locally too
		if _, err := n.engine.ReceiveVote(vote); err != nil {
			n.logger.WithError(err).Error("counting own vote")
		}
	}
	n.engineLock.Unlock()

	//Relay our vote to the rest of the participant set; the proposer already
	//gets it in the response.
	if resp.Vote != nil {
		n.broadcastVote(resp.Vote)
	}

	rpc.Respond(resp, respErr)
}

func (n *Node) processVoteRequest(rpc net.RPC, cmd *net.VoteRequest) {
	n.logger.WithFields(logrus.Fields{
		"from_id": cmd.FromID,
		"slot":    cmd.Vote.Slot,
	}).Debug("process VoteRequest")

	resp := &net.VoteResponse{
		FromID: n.validator.ID(),
	}

	var respErr error

	n.engineLock.Lock()
	counted, err := n.engine.ReceiveVote(cmd.Vote)
	n.engineLock.Unlock()

	if err != nil {
		respErr = err
	}
	resp.Counted = counted

	rpc.Respond(resp, respErr)
}

func (n *Node) processJoinRequest(rpc net.RPC, cmd *net.JoinRequest) {
	n.logger.WithFields(logrus.Fields{
		"moniker": cmd.Participant.Moniker,
		"addr":    cmd.Participant.NetAddr,
	}).Debug("process JoinRequest")

	resp := &net.JoinResponse{
		FromID: n.validator.ID(),
	}

	var respErr error

	pub := keys.ToPublicKey(cmd.Participant.PubKeyBytes())
	if pub == nil || pub.X == nil {
		respErr = fmt.Errorf("unparsable public key")
	} else {
		n.engineLock.Lock()

		acceptedEpoch := n.clock.Current() + 1
		cmd.Participant.JoinedEpoch = acceptedEpoch

		n.engine.AppendParticipant(cmd.Participant)

		resp.Accepted = true
		resp.AcceptedEpoch = acceptedEpoch
		resp.Participants = n.engine.Registry().Participants()

		n.engineLock.Unlock()
	}

	rpc.Respond(resp, respErr)
}
