// Package commitlog implements the append-only, replayable record file
// backing each node's durability and bootstrap story: every mutation a
// node accepts is durable on disk before anything downstream is allowed
// to depend on it, and a fresh follower catches up by replaying a
// transferred copy of the leader's log rather than any richer snapshot
// format.
//
// # Overview
//
// A leader appends a command to its log, fsyncing before it returns,
// before fanning that command out to its followers; a follower appends
// to its own log after applying a command from its leader's stream.
// Neither side ever rewrites a record in place. The log is only
// appended to, or wholesale-truncated on an explicit reset, which
// happens exactly once per follower lifetime: at the start of
// internal/replgroup's join/bootstrap path, before the fresh snapshot
// from the leader is written in.
//
// # Architecture
//
//	Leader.Apply(set k v id)
//	        │
//	        ▼
//	  table.Set(...)
//	        │
//	        ▼
//	  log.Append("set k v id")  ◄── fsync happens here, inside Append
//	        │
//	        ▼
//	  fan out to followers
//
//	Follower join:
//	  log.Truncate()              ── clear any stale local log
//	        │
//	        ▼
//	  log.ReceiveSized(conn)      ── framed copy of leader's whole log
//	        │
//	        ▼
//	  replay every record into the table (no re-append; the log already has them)
//	        │
//	        ▼
//	  log.Append each subsequent live-stream record as it arrives
//
// # On-disk format
//
// One record per line: "<DD/MM/YYYY HH:MM:SS>,<command>\n". The command
// text is the full operation ("set k v req_id" or "del k req_id") with
// no escaping, since the supported command grammar never contains a
// comma or a newline. Records are written in commit order and never
// reordered; ReadAll returns them in file order with the timestamp
// prefix stripped, since callers replay commands, not timestamps.
//
// The timestamp exists for operator inspection (an administrator
// reading the raw file can see when each mutation landed) and is not
// parsed back by any code path in this package; replay relies entirely
// on file order, not on timestamp comparison.
//
// # Transfer primitives
//
// Send and Receive move the raw file bytes verbatim: Send streams the
// current file contents in fixed-size chunks, and Receive copies
// everything read from its reader onto the end of the local file. Since
// neither side re-encodes anything, a sender and a receiver on
// different nodes always agree on content byte for byte. These assume
// the transfer has the connection to itself; they read until the
// source reader reports end-of-stream, which means the source side must
// close or otherwise terminate the stream when the file is fully sent.
//
// SendSized and ReceiveSized frame the same content with a leading
// decimal length line, so a transfer can share a persistent connection
// with protocol traffic that follows it: the reader knows exactly how
// many bytes belong to the log transfer and stops there, rather than
// needing the connection to close to signal the end. internal/replgroup
// uses these, and only these, for the join/bootstrap transfer, because
// the same connection immediately continues as the live replication
// stream once the transfer completes. Send and Receive remain useful
// wherever a transfer legitimately owns a whole connection or stream
// end to end.
//
// # Failure scenarios
//
// Disk full or permission error during Append: the fsync or write
// fails, Append returns the error, and the caller (Leader.Apply or
// Follower.applyAndLog) must decide whether to treat that as fatal.
// Leader.Apply propagates the error to the client rather than fanning
// out a command it could not durably record.
//
// Truncate followed by a failed ReceiveSized: a follower that fails
// mid-transfer is left with an empty or partial log and no replicated
// table state; runOnce reports the error and the follower's join
// attempt ends in Closed, requiring a fresh join from scratch rather
// than a resume.
//
// Close called concurrently with an in-flight operation: every
// exported method checks the closed flag under the same mutex Close
// sets it under, so a call that loses the race to Close returns
// ErrClosed rather than operating on a closed file descriptor.
//
// # Concurrency and thread safety
//
// A single mutex serializes every file operation on a Log: at most one
// of Append, ReadAll, Truncate, Send, Receive, SendSized, or
// ReceiveSized runs at a time. This is deliberately coarse. A commit
// log's operations are infrequent relative to a hash table's, and
// serializing them entirely avoids any need to reason about partial
// writes or concurrent seeks on the same *os.File.
//
// # Usage example
//
//	log, err := commitlog.Open("group-a.log")
//	if err != nil {
//	    // ...
//	}
//	defer log.Close()
//
//	if err := log.Append("set user:1 alice 7"); err != nil {
//	    // treat as a failed mutation; do not fan out
//	}
//
//	commands, err := log.ReadAll()
//	// commands[i] is "set user:1 alice 7", timestamp already stripped
//
//	// Follower join path
//	log.Truncate()
//	log.ReceiveSized(bufReader) // framed transfer from the leader
//
// # Best practices
//
//   - Always check Append's error. A mutation acknowledged to a client
//     without a successful, fsynced Append is a durability hole: a
//     crash immediately after would lose a change the client was told
//     succeeded.
//   - Use SendSized/ReceiveSized, not Send/Receive, on any connection
//     that carries traffic after the transfer; mixing the two framing
//     styles on the same connection will desynchronize the reader.
//   - Call Truncate only as part of a full reset (a follower about to
//     receive a fresh snapshot). Calling it at any other time discards
//     local history a follower may need to stay consistent with its
//     leader.
//
// # See also
//
// Related packages:
//   - internal/replgroup: the only caller of the join/bootstrap
//     transfer primitives, and the source of every Append call
//   - internal/protocol: defines the command text Append stores and
//     ReadAll returns
//   - internal/adminhttp: reads the log back (ReadAll) to report a
//     record count on /status
package commitlog
