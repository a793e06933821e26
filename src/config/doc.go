// Package config defines the configuration for a service node.
//
// Regardless of how the node is started, directly from Go code or as a
// standalone process from the command line, it uses the Config object defined
// in this package to store and forward configuration options. On top of these
// options, the node relies on a data directory, defined by Config.DataDir,
// where it expects to find a few additional files:
//
//	keys/<key-id>   // raw private keys, one file per key id (cf. servicenode keygen).
//	peers.json      // a JSON file listing the service nodes to broadcast to.
//	badger_db/      // (with --store) the collateral outputs known to the wallet.
//	servicenode.toml // (optional) configuration read by the CLI.
package config
