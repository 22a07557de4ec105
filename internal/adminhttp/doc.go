// Package adminhttp is the node's observational HTTP surface:
// /healthz, /status, and /groups, all read-only. The endpoints never
// mutate the replication or routing data path; they read through the
// core components' exported accessors (Table.Stats, Log.ReadAll,
// Ring.Entries, Leader.Sessions, Follower.State), each of which takes
// that component's own lock. Leader.Sessions takes the leader's
// serialization lock, which Apply holds across the commit-log append,
// so a /status request on a leader briefly contends with the mutation
// path.
//
// PeerWatcher runs periodic HTTP polling of a peer's /healthz,
// consecutive-failure tracking, and an unhealthy callback, in-process:
// a follower uses it to poll its leader's /healthz and notice when the
// leader has gone silent past a threshold. This is pure observability,
// the group's leader is still fixed, so an unhealthy leader is
// reported, not failed over.
package adminhttp
