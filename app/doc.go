// Package app assembles the gateway binaries: the orchestrator and the
// flight and db tool services. Each constructor takes a loaded
// config.Config and returns a value that serves HTTP until its context ends.
package app
