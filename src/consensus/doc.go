/*
Package consensus implements rill's fork-choice, voting, and finalization
state machine.

It is a Streamlet-style BFT core: in every epoch a deterministic leader
proposes a block extending one of the tracked forks, every eligible
participant votes for proposals that extend a fully notarized prefix, and a
proposal becomes notarized once it gathers votes from more than two thirds of
the known participants. When a fork accumulates three consecutively notarized
proposals from its start, all but the last of them are final: they are
appended to the canonical ledger, competing forks that no longer descend from
the new tip are discarded, and stale orphan votes are dropped.

The engine tolerates out-of-order delivery: votes received before their
proposal are buffered as orphans and re-attached when the proposal arrives,
and proposals that do not yet extend a notarized prefix are stored without
being voted for, becoming votable as their ancestors notarize. Re-delivering
the same proposal or vote is a safe no-op.

All inputs are discrete events (proposals, votes, epoch ticks) and all state
mutations must be applied under a single critical section; the Engine itself
performs no network I/O.
*/
package consensus
