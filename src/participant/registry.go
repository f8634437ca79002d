package participant

import (
	"sort"
)

// Registry holds the active validator set and the pending participants that
// have been announced but not yet merged into it. It is not safe for
// concurrent use; the consensus engine guards it with its own critical
// section.
type Registry struct {
	// ByPubKey indexes active participants by public key hex.
	ByPubKey map[string]*Participant

	// ByID indexes active participants by their uint32 ID.
	ByID map[uint32]*Participant

	// pending contains announced participants, in announcement order, that
	// are merged into the active set lazily.
	pending []*Participant

	sorted []*Participant
}

// NewRegistry creates a Registry with an initial, already-active, set of
// participants.
func NewRegistry(initial []*Participant) *Registry {
	registry := &Registry{
		ByPubKey: make(map[string]*Participant),
		ByID:     make(map[uint32]*Participant),
	}

	for _, p := range initial {
		registry.activate(p)
	}

	return registry
}

// activate inserts a participant into the active set and invalidates the
// sorted cache.
func (r *Registry) activate(p *Participant) {
	if _, ok := r.ByPubKey[p.PubKeyHex]; ok {
		return
	}
	r.ByPubKey[p.PubKeyHex] = p
	r.ByID[p.ID()] = p
	r.sorted = nil
}

// Participants returns the active participants sorted by ID.
func (r *Registry) Participants() []*Participant {
	if r.sorted == nil {
		res := make([]*Participant, 0, len(r.ByPubKey))
		for _, p := range r.ByPubKey {
			res = append(res, p)
		}
		sort.Sort(ByID(res))
		r.sorted = res
	}
	return r.sorted
}

// Len returns the number of active participants.
func (r *Registry) Len() int {
	return len(r.ByPubKey)
}

// PendingLen returns the number of pending participants.
func (r *Registry) PendingLen() int {
	return len(r.pending)
}

// Append adds a participant to the pending list. It is idempotent: a
// participant that is already pending, or already active, is ignored.
func (r *Registry) Append(p *Participant) {
	if _, ok := r.ByPubKey[p.PubKeyHex]; ok {
		return
	}

	for _, pending := range r.pending {
		if pending.PubKeyHex == p.PubKeyHex {
			return
		}
	}

	r.pending = append(r.pending, p)
}

// PromotePending merges all pending participants into the active set and
// clears the pending list. It returns the number of promotions.
func (r *Registry) PromotePending() int {
	promoted := len(r.pending)
	for _, p := range r.pending {
		r.activate(p)
	}
	r.pending = nil
	return promoted
}

// Refresh merges pending participants into the active set, then evicts every
// participant that has been inactive for more than one epoch: neither a
// recent join nor a vote in the previous epoch keeps it alive. It is meant to
// run once per epoch boundary.
func (r *Registry) Refresh(currentEpoch int) []*Participant {
	r.PromotePending()

	evicted := []*Participant{}
	for _, p := range r.Participants() {
		if p.LastVotedEpoch < currentEpoch-1 && p.JoinedEpoch < currentEpoch-1 {
			delete(r.ByPubKey, p.PubKeyHex)
			delete(r.ByID, p.ID())
			evicted = append(evicted, p)
		}
	}

	if len(evicted) > 0 {
		r.sorted = nil
	}

	return evicted
}

// RecordVote updates a participant's LastVotedEpoch, keeping the maximum of
// the existing value and the provided epoch.
func (r *Registry) RecordVote(id uint32, epoch int) {
	p, ok := r.ByID[id]
	if !ok {
		return
	}
	if epoch > p.LastVotedEpoch {
		p.LastVotedEpoch = epoch
	}
}

// Leader returns the participant eligible to propose in the given epoch. The
// selection is a deterministic round-robin over the active set sorted by ID,
// so all nodes with the same registry agree on it. It returns nil when the
// registry is empty.
func (r *Registry) Leader(epoch int) *Participant {
	participants := r.Participants()
	if len(participants) == 0 {
		return nil
	}
	return participants[epoch%len(participants)]
}

// SuperMajority returns the number of votes that forms a strong majority
// (+2/3) over the active participants.
func (r *Registry) SuperMajority() int {
	return 2*r.Len()/3 + 1
}
