// Package cli provides the interactive herdsync command-line client.
//
// NewApp wires configuration, the local store, the selected transport, the
// sync coordinator and the domain services; App.Run starts background sync
// and blocks in a REPL until the user exits.
//
// Every edit lands in the local store first and is pushed by the
// coordinator when the server is reachable, so herd and bovine commands
// work the same online and offline. Only register and login need the
// server.
package cli
