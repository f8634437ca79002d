// Package net implements the transport layer over which validators exchange
// consensus messages. A Transport carries three RPCs: proposals, votes, and
// join requests. The NetworkTransport implementation frames each RPC with a
// type byte followed by the msgpack-encoded request, over a pluggable
// StreamLayer (plain TCP by default). The InmemTransport implementation
// routes RPCs between transports in the same process and is used for testing.
package net
