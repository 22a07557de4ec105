// Package dispatch implements the per-connection TCP request dispatcher.
//
// Each accepted connection is handled by one goroutine that reads one
// line at a time: parses it via internal/protocol, determines whether
// the local node leads the group that owns the key (via internal/ring),
// and either applies it locally (internal/replgroup's Leader) or
// forwards the raw line to that group's leader over a pooled
// connection, relaying the reply back verbatim.
//
// A join command is handed off whole to the local Leader, which then
// owns the connection for the rest of its lifetime (commit-log transfer
// followed by live streaming). Dispatcher never reads from a
// connection again after that handoff.
package dispatch
