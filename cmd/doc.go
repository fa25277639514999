// Package cmd provides the CLI commands of the registry.
//
// # Commands
//
// ntvd: The registry daemon. Serves the auction API over HTTP, persists
// snapshots to PostgreSQL when configured, and restores state on startup.
//
//	go run ./cmd/ntvd --config=ntvd.toml
//	go run ./cmd/ntvd --admin=0x... --listen-addr=:8080
//
// ntv-cli: CLI for interacting with a running daemon.
//
//	go run ./cmd/ntv-cli status --url=http://localhost:8080
//	go run ./cmd/ntv-cli bid --index=3 --account=0x... --amount=200000000000000000
//
// # Configuration
//
// The daemon reads a TOML configuration file via the --config flag.
// Command-line flags override file values.
//
// Example configuration:
//
//	[server]
//	listen_addr = ":8080"
//	metrics_addr = ":9090"
//
//	[registry]
//	admin = "0x..."
//	bid_start_value_wei = "100000000000000000"
//
//	[database]
//	enabled = true
//	host = "localhost"
//	user = "ntv"
//	password = "secret"
//	name = "ntvnet"
package cmd
