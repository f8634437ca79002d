package consensus

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/json"

	"github.com/rillchain/rill/src/common"
	"github.com/rillchain/rill/src/crypto"
	"github.com/rillchain/rill/src/crypto/keys"
)

// ProposalBody groups the fields of a proposal that are covered by its
// content hash and by the proposer's signature. The JSON encoding of this
// struct is deterministic (fixed field order, no maps), so any two honest
// nodes derive the same hash from the same logical content.
type ProposalBody struct {
	ParentHash   []byte
	Epoch        int
	Slot         int
	Transactions [][]byte
}

// Marshal - json encoding of body only
func (pb *ProposalBody) Marshal() ([]byte, error) {
	bf := bytes.NewBuffer([]byte{})
	enc := json.NewEncoder(bf)
	if err := enc.Encode(pb); err != nil {
		return nil, err
	}
	return bf.Bytes(), nil
}

// Unmarshal parses a JSON encoded body.
func (pb *ProposalBody) Unmarshal(data []byte) error {
	b := bytes.NewBuffer(data)
	dec := json.NewDecoder(b)
	if err := dec.Decode(pb); err != nil {
		return err
	}
	return nil
}

// Hash returns the SHA256 hash of the marshalled body. This is the proposal's
// identity: votes reference it and children link to it through ParentHash.
func (pb *ProposalBody) Hash() ([]byte, error) {
	hashBytes, err := pb.Marshal()
	if err != nil {
		return nil, err
	}
	return crypto.SHA256(hashBytes), nil
}

// BlockProposal is a candidate block extending some parent, either another
// proposal or the canonical chain's tip. Votes accumulate in the Votes map,
// keyed by voter public key, so each voter contributes at most one.
//
// Notarized and Finalized are set once and never revert.
type BlockProposal struct {
	Body           ProposalBody
	ProposerID     uint32
	ProposerPubKey string
	Signature      string

	// Votes is local bookkeeping; it is not part of the wire encoding and
	// not covered by the signature.
	Votes map[string]*Vote `json:"-"`

	Notarized bool `json:"-"`
	Finalized bool `json:"-"`

	//cached values
	hash []byte
	hex  string
}

// NewBlockProposal builds an unsigned proposal with an empty vote set.
func NewBlockProposal(parentHash []byte, epoch, slot int, transactions [][]byte) *BlockProposal {
	return &BlockProposal{
		Body: ProposalBody{
			ParentHash:   parentHash,
			Epoch:        epoch,
			Slot:         slot,
			Transactions: transactions,
		},
		Votes: make(map[string]*Vote),
	}
}

// Epoch returns the epoch position marker.
func (p *BlockProposal) Epoch() int {
	return p.Body.Epoch
}

// Slot returns the slot position marker.
func (p *BlockProposal) Slot() int {
	return p.Body.Slot
}

// ParentHash returns the content hash of the block this proposal extends.
func (p *BlockProposal) ParentHash() []byte {
	return p.Body.ParentHash
}

// Transactions returns the ordered transaction identifiers included in the
// proposal.
func (p *BlockProposal) Transactions() [][]byte {
	return p.Body.Transactions
}

// Hash returns the proposal's content hash.
func (p *BlockProposal) Hash() ([]byte, error) {
	if len(p.hash) == 0 {
		hash, err := p.Body.Hash()
		if err != nil {
			return nil, err
		}
		p.hash = hash
	}
	return p.hash, nil
}

// Hex is the hexadecimal representation of Hash.
func (p *BlockProposal) Hex() string {
	if p.hex == "" {
		hash, _ := p.Hash()
		p.hex = common.EncodeToString(hash)
	}
	return p.hex
}

// AddVote inserts a vote into the proposal's vote set. It returns false if a
// vote from the same voter is already present.
func (p *BlockProposal) AddVote(v *Vote) bool {
	if p.Votes == nil {
		p.Votes = make(map[string]*Vote)
	}
	if _, ok := p.Votes[v.Key()]; ok {
		return false
	}
	p.Votes[v.Key()] = v
	return true
}

// VoteCount returns the number of distinct voters for this proposal.
func (p *BlockProposal) VoteCount() int {
	return len(p.Votes)
}

// Sign sets the proposer fields and signs the body hash with the private key.
func (p *BlockProposal) Sign(privKey *ecdsa.PrivateKey) error {
	signBytes, err := p.Body.Hash()
	if err != nil {
		return err
	}

	R, S, err := keys.Sign(privKey, signBytes)
	if err != nil {
		return err
	}

	pubBytes := keys.FromPublicKey(&privKey.PublicKey)

	p.ProposerID = keys.PublicKeyID(pubBytes)
	p.ProposerPubKey = common.EncodeToString(pubBytes)
	p.Signature = keys.EncodeSignature(R, S)

	return nil
}

// Verify checks the proposer's signature over the body hash.
func (p *BlockProposal) Verify() (bool, error) {
	signBytes, err := p.Body.Hash()
	if err != nil {
		return false, err
	}

	pubBytes, err := common.DecodeFromString(p.ProposerPubKey)
	if err != nil {
		return false, err
	}
	pubKey := keys.ToPublicKey(pubBytes)

	r, s, err := keys.DecodeSignature(p.Signature)
	if err != nil {
		return false, err
	}

	return keys.Verify(pubKey, signBytes, r, s), nil
}

// Marshal returns the wire encoding of the proposal: body, proposer identity
// and signature. The vote set is deliberately excluded; every node collects
// votes independently.
func (p *BlockProposal) Marshal() ([]byte, error) {
	bf := bytes.NewBuffer([]byte{})
	enc := json.NewEncoder(bf)
	if err := enc.Encode(p); err != nil {
		return nil, err
	}
	return bf.Bytes(), nil
}

// Unmarshal parses a wire encoded proposal and resets local bookkeeping.
func (p *BlockProposal) Unmarshal(data []byte) error {
	b := bytes.NewBuffer(data)
	dec := json.NewDecoder(b)
	if err := dec.Decode(p); err != nil {
		return err
	}
	p.Votes = make(map[string]*Vote)
	p.Notarized = false
	p.Finalized = false
	p.hash = nil
	p.hex = ""
	return nil
}
