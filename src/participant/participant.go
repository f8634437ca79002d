// Package participant tracks the validator identities that are eligible to
// lead epochs and vote on block proposals.
package participant

import (
	"bytes"
	"encoding/json"

	"github.com/rillchain/rill/src/common"
	"github.com/rillchain/rill/src/crypto/keys"
)

// Participant is one validator identity. It is identified by its public key;
// the uint32 ID is derived from it and used in wire messages.
type Participant struct {
	NetAddr   string `json:"NetAddr"`
	PubKeyHex string `json:"PubKeyHex"`
	Moniker   string `json:"Moniker,omitempty"`

	// JoinedEpoch is the epoch at which the participant became eligible.
	JoinedEpoch int `json:"JoinedEpoch"`

	// LastVotedEpoch is the epoch of the last accepted vote from this
	// participant, or -1 if it has never voted. It travels with the
	// participant so that a joiner's view of the registry evicts on the same
	// schedule as everyone else's.
	LastVotedEpoch int `json:"LastVotedEpoch"`

	id uint32
}

// NewParticipant instantiates a new Participant that has never voted.
func NewParticipant(pubKeyHex, netAddr, moniker string, joinedEpoch int) *Participant {
	participant := &Participant{
		PubKeyHex:      pubKeyHex,
		NetAddr:        netAddr,
		Moniker:        moniker,
		JoinedEpoch:    joinedEpoch,
		LastVotedEpoch: -1,
	}

	return participant
}

// ID returns the uint32 identifier derived from the participant's public key.
func (p *Participant) ID() uint32 {
	if p.id == 0 {
		p.id = keys.PublicKeyID(p.PubKeyBytes())
	}
	return p.id
}

// PubKeyBytes returns the raw, uncompressed, public key bytes.
func (p *Participant) PubKeyBytes() []byte {
	res, _ := common.DecodeFromString(p.PubKeyHex)
	return res
}

// Marshal returns the JSON encoding of the participant.
func (p *Participant) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	if err := enc.Encode(p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal parses a JSON encoded participant.
func (p *Participant) Unmarshal(data []byte) error {
	b := bytes.NewBuffer(data)
	dec := json.NewDecoder(b)
	if err := dec.Decode(p); err != nil {
		return err
	}
	return nil
}

// ByID implements sort.Interface for slices of participants based on ID.
type ByID []*Participant

func (a ByID) Len() int           { return len(a) }
func (a ByID) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a ByID) Less(i, j int) bool { return a[i].ID() < a[j].ID() }
