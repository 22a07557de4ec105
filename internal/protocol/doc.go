// Package protocol implements the line-oriented ASCII wire protocol
// spoken over TCP between clients and nodes, and between a leader and
// its followers.
//
// # Commands
//
//	set <key> <value> <req_id>  -> OK
//	del <key> <req_id>          -> OK
//	get <key> <req_id>          -> (<value>, <req_id_of_stored>) | Error: Non existent key
//	join                        -> commitlog preamble, then a length-framed log transfer
//
// Each request and reply is exactly one line, except the commit-log
// transfer that follows a join: after the CommitLogPreamble line the
// leader sends a decimal byte-count line and then exactly that many
// bytes of its commit log (commitlog.SendSized), and the same
// connection then carries the live replication stream as command
// lines.
//
// # Thread safety
//
// Every function in this package is a pure parser or formatter; none
// hold any state or lock.
package protocol
