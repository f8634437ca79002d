// Package config defines the configuration for a rill node.
//
// Regardless of how rill is started, directly from Go code or as a standalone
// process from the command line, it uses the Config object defined in this
// package to store and forward configuration options. On top of these
// configuration options, rill relies on a data directory, defined by
// Config.DataDir, where it expects to find a few additional configuration
// files:
//
//  priv_key          // a plain text file containing the raw private key (cf. rill keygen).
//  participants.json // a JSON file containing the initial participant set.
package config
