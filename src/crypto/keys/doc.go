// Package keys implements the public key cryptography used throughout rill.
//
// Every participant in a rill network owns an ECDSA key-pair on the secp256k1
// curve. The private key signs block proposals and votes; the public key is
// gossiped alongside each message so that other participants can verify it.
// We chose secp256k1 because it is also used by Bitcoin and Ethereum, which
// means existing keys can be reused to operate a rill node.
package keys
