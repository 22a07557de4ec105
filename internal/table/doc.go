// Package table implements the node-local hash table that backs a single
// replica group: a mapping from key to (value, last applied request id).
//
// # Overview
//
// Table is the leaf component of the replicated store. It holds no notion
// of groups, leaders, or replication, it only knows how to apply a
// set/get/delete idempotently, using the caller-supplied request id to
// reject stale replays. Every other component (internal/replgroup,
// internal/dispatch) builds on top of exactly this guarantee.
//
// # Idempotency
//
// Each key tracks the request id of the mutation that last changed it. A
// Set or Delete whose req_id does not exceed the stored req_id is a no-op:
// this is the sole mechanism that makes replaying a follower's commit log,
// or redelivering a command across a join boundary, safe.
//
// # Thread safety
//
// Table is safe for concurrent use; a single mutex guards the map.
package table
