package node

import (
	"sync"
	"sync/atomic"
)

// State captures the state of a node: Running, Joining, Suspended, or
// Shutdown.
type State uint32

const (
	// Running is the state in which a node takes part in consensus: it votes
	// on proposals, relays votes, and proposes blocks when it leads the
	// current epoch.
	Running State = iota

	// Joining is the state in which a node attempts to enter the participant
	// set by submitting a join request to an existing validator.
	Joining

	// Suspended is the state in which a node responds to requests but does
	// not propose or vote.
	Suspended

	// Shutdown is the state in which a node stops responding to external
	// events and closes its transport.
	Shutdown
)

// String returns the string representation of a State
func (s State) String() string {
	switch s {
	case Running:
		return "Running"
	case Joining:
		return "Joining"
	case Suspended:
		return "Suspended"
	case Shutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}

// WGLIMIT is the maximum number of goroutines that can be launched through
// state.goFunc
const WGLIMIT = 20

type state struct {
	state   State
	wg      sync.WaitGroup
	wgCount int32
}

func (b *state) getState() State {
	stateAddr := (*uint32)(&b.state)
	return State(atomic.LoadUint32(stateAddr))
}

func (b *state) setState(s State) {
	stateAddr := (*uint32)(&b.state)
	atomic.StoreUint32(stateAddr, uint32(s))
}

// Start a goroutine and add it to waitgroup
func (b *state) goFunc(f func()) {
	tempWgCount := atomic.LoadInt32(&b.wgCount)
	if tempWgCount < WGLIMIT {
		b.wg.Add(1)
		atomic.AddInt32(&b.wgCount, 1)
		go func() {
			defer b.wg.Done()
			atomic.AddInt32(&b.wgCount, -1)
			f()
		}()
	}
}

func (b *state) waitRoutines() {
	b.wg.Wait()
}
