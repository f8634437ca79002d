package net

// Transport provides an interface for network transports to allow a validator
// to communicate with other validators.
type Transport interface {

	// Listen starts the transport listening
	Listen()

	// Consumer returns a channel that can be used to
	// consume and respond to RPC requests.
	Consumer() <-chan RPC

	// LocalAddr is used to return our local address
	LocalAddr() string

	// AdvertiseAddr is used to return our advertise address where other
	// validators can reach us
	AdvertiseAddr() string

	// SendProposal, SendVote, and Join send the appropriate RPC to the
	// target validator.

	SendProposal(target string, args *ProposalRequest, resp *ProposalResponse) error

	SendVote(target string, args *VoteRequest, resp *VoteResponse) error

	Join(target string, args *JoinRequest, resp *JoinResponse) error

	// Close permanently closes a transport, stopping
	// any associated goroutines and freeing other resources.
	Close() error
}
