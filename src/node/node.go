package node

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/rillchain/rill/src/consensus"
	"github.com/rillchain/rill/src/epoch"
	"github.com/rillchain/rill/src/net"
	"github.com/rillchain/rill/src/participant"
	"github.com/sirupsen/logrus"
)

//Node wraps the consensus engine with a transport, an epoch timer, and a
//state machine. All access to the engine goes through engineLock.
type Node struct {
	state

	conf   *Config
	logger *logrus.Entry

	validator *Validator

	engine     *consensus.Engine
	engineLock sync.Mutex

	clock *epoch.Clock

	trans net.Transport
	netCh <-chan net.RPC

	submitCh chan []byte

	sigintCh   chan os.Signal
	shutdownCh chan struct{}

	epochTimer *EpochTimer

	start     time.Time
	lastEpoch int
}

//NewNode is a factory method that returns a Node instance
func NewNode(conf *Config,
	validator *Validator,
	registry *participant.Registry,
	clock *epoch.Clock,
	ledger consensus.Ledger,
	trans net.Transport,
) *Node {
	//Prepare sigintCh to relay SIGINT system calls
	sigintCh := make(chan os.Signal, 1)
	signal.Notify(sigintCh, os.Interrupt, syscall.SIGINT)

	logger := conf.Logger.WithField("this_id", validator.ID())

	engine := consensus.NewEngine(validator.Key, clock, registry, ledger, logger)
	engine.SetLimits(conf.MaxOrphanVotes, conf.MaxForks)

	node := Node{
		validator:  validator,
		conf:       conf,
		logger:     logger,
		engine:     engine,
		clock:      clock,
		trans:      trans,
		netCh:      trans.Consumer(),
		submitCh:   make(chan []byte, 64),
		sigintCh:   sigintCh,
		shutdownCh: make(chan struct{}),
		epochTimer: NewWallClockEpochTimer(),
		start:      time.Now(),
		lastEpoch:  -1,
	}

	return &node
}

//Init initialises the node: a validator that belongs to the participant set
//starts Running, anyone else starts Joining.
func (n *Node) Init() error {
	_, ok := n.engine.Registry().ByID[n.validator.ID()]
	if ok {
		n.logger.Debug("Node belongs to participant set")
		n.setState(Running)
	} else {
		n.logger.Debug("Node does not belong to participant set => Joining")
		n.setState(Joining)
	}

	return nil
}

//RunAsync calls Run as a separate thread
func (n *Node) RunAsync(propose bool) {
	n.logger.WithField("propose", propose).Debug("runasync")

	go n.Run(propose)
}

//Run invokes the main loop of the node
func (n *Node) Run(propose bool) {
	//The EpochTimer fires at every epoch boundary, which is when leadership
	//rotates and the participant set is refreshed.
	go n.epochTimer.Run(n.clock.NextEpochStart())

	//Execute some background work regardless of the state of the node.
	go n.doBackgroundWork()

	//Execute Node State Machine
	for {
		//Run different routines depending on node state
		state := n.getState()

		n.logger.WithField("state", state.String()).Debug("Run loop")

		switch state {
		case Running:
			n.running(propose)
		case Joining:
			n.join()
		case Suspended:
			n.suspended()
		case Shutdown:
			return
		}
	}
}

func (n *Node) resetTimer() {
	if !n.epochTimer.set {
		n.epochTimer.resetCh <- n.clock.NextEpochStart()
	}
}

func (n *Node) doBackgroundWork() {
	for {
		select {
		case rpc := <-n.netCh:
			n.goFunc(func() {
				n.logger.Debug("Processing RPC")
				n.processRPC(rpc)
			})
		case t := <-n.submitCh:
			n.logger.Debug("Adding Transaction")
			n.addTransaction(t)
		case <-n.shutdownCh:
			return
		case <-n.sigintCh:
			n.logger.Debug("Reacting to SIGINT")
			n.Shutdown()
			os.Exit(0)
		}
	}
}

// running waits for the next epoch boundary and processes it.
func (n *Node) running(propose bool) {
	select {
	case <-n.epochTimer.tickCh:
		n.onEpochBoundary(propose)
		n.resetTimer()
	case <-n.shutdownCh:
	}
}

// suspended consumes epoch ticks without acting on them.
func (n *Node) suspended() {
	select {
	case <-n.epochTimer.tickCh:
		n.resetTimer()
	case <-n.shutdownCh:
	}
}

// onEpochBoundary refreshes the participant set and, when this node leads the
// new epoch, builds and broadcasts a proposal.
func (n *Node) onEpochBoundary(propose bool) {
	n.engineLock.Lock()

	currentEpoch := n.clock.Current()
	if currentEpoch == n.lastEpoch {
		n.engineLock.Unlock()
		return
	}
	n.lastEpoch = currentEpoch

	evicted := n.engine.RefreshParticipants()
	for _, p := range evicted {
		n.logger.WithFields(logrus.Fields{
			"moniker": p.Moniker,
			"id":      p.ID(),
		}).Debug("Evicted inactive participant")
	}

	isLeader := propose && n.engine.IsEpochLeader(currentEpoch)

	n.engineLock.Unlock()

	n.logger.WithFields(logrus.Fields{
		"epoch":  currentEpoch,
		"leader": isLeader,
	}).Debug("Epoch boundary")

	if isLeader {
		n.propose()
	}

	n.logStats()
}

// propose builds a proposal, applies it locally, and broadcasts it together
// with this node's own vote.
func (n *Node) propose() {
	n.engineLock.Lock()

	proposal, err := n.engine.Propose()
	if err != nil {
		n.engineLock.Unlock()
		n.logger.WithError(err).Error("propose()")
		return
	}

	//Process our own proposal as if it came off the wire, so that the fork
	//tree and our own vote follow the same path as everyone else's.
	ownVote, err := n.engine.ReceiveProposal(proposal)
	if err != nil {
		n.engineLock.Unlock()
		n.logger.WithError(err).Error("processing own proposal")
		return
	}
	if ownVote != nil {
		if _, err := n.engine.ReceiveVote(ownVote); err != nil {
			n.logger.WithError(err).Error("counting own vote")
		}
	}

	n.engineLock.Unlock()

	n.broadcastProposal(proposal)

	if ownVote != nil {
		n.broadcastVote(ownVote)
	}
}

// broadcastProposal sends the proposal to every other participant. Votes
// carried back in the responses are counted immediately.
func (n *Node) broadcastProposal(proposal *consensus.BlockProposal) {
	for _, p := range n.others() {
		target := p.NetAddr
		n.goFunc(func() {
			resp, err := n.requestProposal(target, proposal)
			if err != nil {
				n.logger.WithField("target", target).WithError(err).Error("requestProposal()")
				return
			}
			if resp.Vote != nil {
				n.engineLock.Lock()
				_, err := n.engine.ReceiveVote(resp.Vote)
				n.engineLock.Unlock()
				if err != nil {
					n.logger.WithError(err).Error("counting response vote")
				}
			}
		})
	}
}

// broadcastVote sends the vote to every other participant.
func (n *Node) broadcastVote(vote *consensus.Vote) {
	for _, p := range n.others() {
		target := p.NetAddr
		n.goFunc(func() {
			if _, err := n.requestVote(target, vote); err != nil {
				n.logger.WithField("target", target).WithError(err).Error("requestVote()")
			}
		})
	}
}

// others returns the active participants other than this node.
func (n *Node) others() []*participant.Participant {
	n.engineLock.Lock()
	defer n.engineLock.Unlock()

	others := []*participant.Participant{}
	for _, p := range n.engine.Registry().Participants() {
		if p.ID() != n.validator.ID() {
			others = append(others, p)
		}
	}
	return others
}

func (n *Node) join() {
	n.logger.Debug("JOINING")

	targets := n.others()
	if len(targets) == 0 {
		n.logger.Error("No participant to join through. Shutting down.")
		n.Shutdown()
		return
	}

	start := time.Now()
	resp, err := n.requestJoin(targets[0].NetAddr)
	elapsed := time.Since(start)
	n.logger.WithField("duration", elapsed.Nanoseconds()).Debug("requestJoin()")

	if err != nil {
		n.logger.Error("Cannot join:", targets[0].NetAddr, err)
		time.Sleep(n.conf.JoinTimeout)
		return
	}

	n.logger.WithFields(logrus.Fields{
		"from_id":        resp.FromID,
		"accepted":       resp.Accepted,
		"accepted_epoch": resp.AcceptedEpoch,
		"participants":   len(resp.Participants),
	}).Debug("JoinResponse")

	if resp.Accepted {
		n.engineLock.Lock()
		for _, p := range resp.Participants {
			n.engine.AppendParticipant(p)
		}
		n.engine.Registry().PromotePending()
		n.engineLock.Unlock()

		n.setState(Running)
	} else {
		//The JoinRequest was explicitly refused by the current participant
		//set. This is not an error.
		n.logger.Debug("JoinRequest refused. Shutting down.")
		n.Shutdown()
	}
}

//SubmitTransaction queues a transaction for inclusion in a future block.
func (n *Node) SubmitTransaction(tx []byte) {
	n.submitCh <- tx
}

//SubmitCh exposes the transaction intake channel.
func (n *Node) SubmitCh() chan []byte {
	return n.submitCh
}

func (n *Node) addTransaction(tx []byte) {
	n.engineLock.Lock()
	defer n.engineLock.Unlock()

	n.engine.Mempool().Add(tx)
}

//Suspend puts the node in the Suspended state, where it responds to requests
//but does not propose or vote.
func (n *Node) Suspend() {
	n.logger.Debug("Suspend")
	n.setState(Suspended)
}

//Shutdown shuts down the node
func (n *Node) Shutdown() {
	if n.getState() != Shutdown {
		n.logger.Debug("Shutdown")

		//Exit any non-shutdown state immediately
		n.setState(Shutdown)

		//Stop and wait for concurrent operations
		close(n.shutdownCh)

		n.waitRoutines()

		n.epochTimer.Shutdown()

		//transport and ledger should only be closed once all concurrent
		//operations are finished otherwise they will panic trying to use
		//closed objects
		n.trans.Close()

		n.engine.Ledger().Close()
	}
}

//GetStats returns stats
func (n *Node) GetStats() map[string]string {
	n.engineLock.Lock()
	defer n.engineLock.Unlock()

	currentEpoch := n.clock.Current()

	leader := ""
	if l := n.engine.EpochLeader(currentEpoch); l != nil {
		leader = l.Moniker
	}

	s := map[string]string{
		"last_block_index":     strconv.Itoa(n.engine.Ledger().LastIndex()),
		"tracked_forks":        strconv.Itoa(n.engine.NumChains()),
		"orphan_votes":         strconv.Itoa(n.engine.OrphanVoteCount()),
		"pending_transactions": strconv.Itoa(n.engine.PendingTransactions()),
		"num_participants":     strconv.Itoa(n.engine.Registry().Len()),
		"epoch":                strconv.Itoa(currentEpoch),
		"epoch_leader":         leader,
		"uptime":               time.Since(n.start).String(),
		"id":                   fmt.Sprint(n.validator.ID()),
		"state":                n.getState().String(),
		"moniker":              n.validator.Moniker,
	}
	return s
}

func (n *Node) logStats() {
	stats := n.GetStats()

	n.logger.WithFields(logrus.Fields{
		"last_block_index":     stats["last_block_index"],
		"tracked_forks":        stats["tracked_forks"],
		"orphan_votes":         stats["orphan_votes"],
		"pending_transactions": stats["pending_transactions"],
		"num_participants":     stats["num_participants"],
		"epoch":                stats["epoch"],
		"epoch_leader":         stats["epoch_leader"],
		"state":                stats["state"],
	}).Debug("Stats")
}

//GetBlock returns a finalized block from the ledger
func (n *Node) GetBlock(index int) (*consensus.BlockProposal, error) {
	n.engineLock.Lock()
	defer n.engineLock.Unlock()

	return n.engine.Ledger().GetBlock(index)
}

//GetChains returns the tracked forks
func (n *Node) GetChains() []*consensus.ProposalChain {
	n.engineLock.Lock()
	defer n.engineLock.Unlock()

	chains := make([]*consensus.ProposalChain, len(n.engine.Chains()))
	copy(chains, n.engine.Chains())
	return chains
}

//ID returns the validator ID
func (n *Node) ID() uint32 {
	return n.validator.ID()
}

//Moniker returns the validator moniker
func (n *Node) Moniker() string {
	return n.validator.Moniker
}

//GetParticipants returns the active participants
func (n *Node) GetParticipants() []*participant.Participant {
	n.engineLock.Lock()
	defer n.engineLock.Unlock()

	return n.engine.Registry().Participants()
}
