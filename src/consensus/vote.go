package consensus

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"

	"github.com/rillchain/rill/src/common"
	"github.com/rillchain/rill/src/crypto/keys"
)

// Vote is a participant's signed endorsement of one block proposal. It is
// immutable once created.
type Vote struct {
	VoterID      uint32
	VoterPubKey  string
	ProposalHash []byte
	Slot         int
	Signature    string
}

// NewVote creates and signs a vote for the proposal identified by
// proposalHash at the given slot.
func NewVote(privKey *ecdsa.PrivateKey, proposalHash []byte, slot int) (*Vote, error) {
	R, S, err := keys.Sign(privKey, proposalHash)
	if err != nil {
		return nil, err
	}

	pubBytes := keys.FromPublicKey(&privKey.PublicKey)

	return &Vote{
		VoterID:      keys.PublicKeyID(pubBytes),
		VoterPubKey:  common.EncodeToString(pubBytes),
		ProposalHash: proposalHash,
		Slot:         slot,
		Signature:    keys.EncodeSignature(R, S),
	}, nil
}

// Key identifies the voter within a proposal's vote set.
func (v *Vote) Key() string {
	return v.VoterPubKey
}

// OrphanKey identifies the (voter, proposal) pair within the orphan buffer.
func (v *Vote) OrphanKey() string {
	return fmt.Sprintf("%s-%s", v.VoterPubKey, common.EncodeToString(v.ProposalHash))
}

// Verify checks the voter's signature over the proposal hash.
func (v *Vote) Verify() (bool, error) {
	pubBytes, err := common.DecodeFromString(v.VoterPubKey)
	if err != nil {
		return false, err
	}
	pubKey := keys.ToPublicKey(pubBytes)

	r, s, err := keys.DecodeSignature(v.Signature)
	if err != nil {
		return false, err
	}

	return keys.Verify(pubKey, v.ProposalHash, r, s), nil
}

// Marshal returns the wire encoding of the vote.
func (v *Vote) Marshal() ([]byte, error) {
	bf := bytes.NewBuffer([]byte{})
	enc := json.NewEncoder(bf)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bf.Bytes(), nil
}

// Unmarshal parses a wire encoded vote.
func (v *Vote) Unmarshal(data []byte) error {
	b := bytes.NewBuffer(data)
	dec := json.NewDecoder(b)
	if err := dec.Decode(v); err != nil {
		return err
	}
	return nil
}
