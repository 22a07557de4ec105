// Package cluster provides the shared HTTP/JSON request helper used by
// the admin surface's peer-liveness polling: a single shared client and
// GetJSON.
//
// There is no node registry, registration protocol, or coordinator
// here: this repo's cluster layout is a static topology document
// (internal/topology), not a dynamically-joined membership. What
// remains is the timeout-bound HTTP request/JSON-decode plumbing that
// internal/adminhttp's PeerWatcher uses to poll a follower's leader for
// liveness.
package cluster
