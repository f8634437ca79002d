package net

import (
	"reflect"
	"testing"
	"time"

	"github.com/rillchain/rill/src/common"
	"github.com/rillchain/rill/src/consensus"
	"github.com/rillchain/rill/src/crypto/keys"
)

func newTestTransport(t *testing.T) *NetworkTransport {
	trans, err := NewTCPTransport("127.0.0.1:0", "", 2, time.Second, time.Second, common.NewTestEntry(t))
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	go trans.Listen()
	return trans
}

func TestNetworkTransport_StartStop(t *testing.T) {
	trans, err := NewTCPTransport("127.0.0.1:0", "", 2, time.Second, time.Second, common.NewTestEntry(t))
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	trans.Close()
}

func TestNetworkTransport_SendProposal(t *testing.T) {
	// Transport 1 is consumer
	trans1 := newTestTransport(t)
	defer trans1.Close()
	rpcCh := trans1.Consumer()

	key, _ := keys.GenerateECDSAKey()

	proposal := consensus.NewBlockProposal(
		[]byte("parent"),
		3,
		7,
		[][]byte{[]byte("tx1"), []byte("tx2")},
	)
	if err := proposal.Sign(key); err != nil {
		t.Fatal(err)
	}

	args := ProposalRequest{
		FromID:   proposal.ProposerID,
		Proposal: proposal,
	}

	hash, _ := proposal.Hash()
	vote, err := consensus.NewVote(key, hash, proposal.Slot())
	if err != nil {
		t.Fatal(err)
	}

	resp := ProposalResponse{
		FromID: vote.VoterID,
		Vote:   vote,
	}

	// Listen for a request
	go func() {
		select {
		case rpc := <-rpcCh:
			// Verify the command
			req := rpc.Command.(*ProposalRequest)
			if !reflect.DeepEqual(req.Proposal.Body, args.Proposal.Body) {
				t.Errorf("command mismatch: %#v %#v", req.Proposal.Body, args.Proposal.Body)
			}
			if req.Proposal.Signature != args.Proposal.Signature {
				t.Errorf("signature mismatch")
			}

			rpc.Respond(&resp, nil)

		case <-time.After(200 * time.Millisecond):
			t.Errorf("timeout")
		}
	}()

	// Transport 2 makes outbound request
	trans2 := newTestTransport(t)
	defer trans2.Close()

	var out ProposalResponse
	if err := trans2.SendProposal(trans1.LocalAddr(), &args, &out); err != nil {
		t.Fatalf("err: %v", err)
	}

	// Verify the response
	if out.Vote == nil {
		t.Fatal("Response should carry the receiver's vote")
	}
	if out.Vote.Signature != vote.Signature {
		t.Fatalf("response mismatch: %#v %#v", out.Vote, vote)
	}

	ok, err := out.Vote.Verify()
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("Vote should verify after the roundtrip")
	}
}

func TestNetworkTransport_SendVote(t *testing.T) {
	trans1 := newTestTransport(t)
	defer trans1.Close()
	rpcCh := trans1.Consumer()

	key, _ := keys.GenerateECDSAKey()
	vote, err := consensus.NewVote(key, []byte("proposalhash"), 4)
	if err != nil {
		t.Fatal(err)
	}

	args := VoteRequest{
		FromID: vote.VoterID,
		Vote:   vote,
	}
	resp := VoteResponse{
		FromID:  99,
		Counted: true,
	}

	go func() {
		select {
		case rpc := <-rpcCh:
			req := rpc.Command.(*VoteRequest)
			if !reflect.DeepEqual(req.Vote, vote) {
				t.Errorf("command mismatch: %#v %#v", req.Vote, vote)
			}
			rpc.Respond(&resp, nil)

		case <-time.After(200 * time.Millisecond):
			t.Errorf("timeout")
		}
	}()

	trans2 := newTestTransport(t)
	defer trans2.Close()

	var out VoteResponse
	if err := trans2.SendVote(trans1.LocalAddr(), &args, &out); err != nil {
		t.Fatalf("err: %v", err)
	}
	if !reflect.DeepEqual(out, resp) {
		t.Fatalf("response mismatch: %#v %#v", out, resp)
	}
}

func TestInmemTransport_SendVote(t *testing.T) {
	addr1, trans1 := NewInmemTransport("")
	defer trans1.Close()
	rpcCh := trans1.Consumer()

	addr2, trans2 := NewInmemTransport("")
	defer trans2.Close()

	trans1.Connect(addr2, trans2)
	trans2.Connect(addr1, trans1)

	key, _ := keys.GenerateECDSAKey()
	vote, err := consensus.NewVote(key, []byte("proposalhash"), 1)
	if err != nil {
		t.Fatal(err)
	}

	args := VoteRequest{FromID: vote.VoterID, Vote: vote}
	resp := VoteResponse{FromID: 42, Counted: true}

	go func() {
		select {
		case rpc := <-rpcCh:
			rpc.Respond(&resp, nil)
		case <-time.After(200 * time.Millisecond):
			t.Errorf("timeout")
		}
	}()

	var out VoteResponse
	if err := trans2.SendVote(addr1, &args, &out); err != nil {
		t.Fatalf("err: %v", err)
	}
	if !reflect.DeepEqual(out, resp) {
		t.Fatalf("response mismatch: %#v %#v", out, resp)
	}
}
