// Package replgroup implements the replication engine for a single
// replica group: a fixed leader and its followers, reading and
// applying a serialized stream of set/get/del commands so every member
// of the group converges on the same table contents in the same order.
//
// # Overview
//
// A replica group has exactly one leader for its entire lifetime. The
// leader owns the group's hash table and commit log and is the only
// member that ever originates a mutation; every follower exists purely
// to replay the leader's stream into its own table and log. There is
// no leader election, no voting, and no automatic failover: the leader
// address is fixed by the static topology document
// (internal/topology), and an operator who needs to replace a leader
// does so by changing that document and restarting the group, not by
// any mechanism replgroup itself provides.
//
// # Architecture
//
//	┌───────────────────────────────────────────────┐
//	│                    LEADER                      │
//	│                                                 │
//	│   client set/get/del                           │
//	│          │                                     │
//	│          ▼                                     │
//	│   ┌─────────────────────────────────────┐      │
//	│   │  Apply (single serialization lock)  │      │
//	│   │   1. table apply                    │      │
//	│   │   2. commit-log append + fsync      │      │
//	│   │   3. fan-out to follower sessions   │      │
//	│   └─────────────────────────────────────┘      │
//	│          │                   │                 │
//	│          ▼                   ▼                 │
//	│   internal/table      internal/commitlog       │
//	│                               │                 │
//	│                     ┌─────────┴─────────┐       │
//	│                     ▼                   ▼       │
//	│              session queue         session queue │
//	│              (follower A)          (follower B)  │
//	└───────────────────────────────────────────────┘
//	                     │                   │
//	                     ▼                   ▼
//	            ┌────────────────┐  ┌────────────────┐
//	            │  FOLLOWER A    │  │  FOLLOWER B    │
//	            │  join → catch  │  │  join → catch  │
//	            │  up → live     │  │  up → live     │
//	            └────────────────┘  └────────────────┘
//
// # Core components
//
// Leader: owns the group's table and commit log
//   - Apply serializes table mutation, log append, and fan-out under a
//     single lock so every follower observes exactly the leader's order
//   - fanOut enqueues the formatted command onto each connected
//     session's bounded channel; a full queue drops that session rather
//     than stall the leader
//   - HandleJoin registers a new session and launches its one-shot
//     commit-log transfer in its own goroutine, returning immediately
//
// Follower: owns its own table and commit log, replicates from exactly
// one leader address
//   - runOnce performs one connect/join/catch-up/stream cycle; any
//     socket error ends the cycle with no automatic reconnect
//   - replayLocalLog applies every command the just-received commit-log
//     snapshot already contains, without appending again
//   - applyAndLog applies and appends every subsequent line from the
//     live stream
//
// followerSession: the leader's bookkeeping for one connected follower
//   - a state machine, a send queue, and the net.Conn itself
//   - queue is filled under the leader's lock, drained by exactly one
//     goroutine per session, so at most one writer ever touches the
//     connection
//
// # Join and bootstrap protocol
//
// A follower's join is the only handshake in the protocol:
//
//  1. Follower dials the leader and writes a "join" command line.
//  2. Leader replies with the commitlog preamble line, then the
//     current commit log framed with a decimal byte count
//     (commitlog.SendSized).
//  3. Follower truncates its own log, reads the framed snapshot
//     (commitlog.ReceiveSized), and replays every command in it against
//     its table without re-appending (the received bytes already are
//     its local log).
//  4. Both sides keep the same TCP connection open and continue
//     exchanging command lines indefinitely: the leader fans out every
//     subsequent mutation, and the follower applies and logs each one
//     as it arrives.
//
// There is no separate control channel or RPC framework for this: the
// same line-oriented protocol (internal/protocol) used for client
// traffic carries the join handshake and the ongoing replication
// stream, just on a connection the client never sees.
//
// # State machine
//
// A follower session, as tracked on both the leader's session object
// and the follower's own view of itself, moves through:
//
//	connecting -> catching_up -> live -> closed
//
// There is no automatic recovery from closed. A follower whose session
// is dropped (queue overflow, I/O error, leader restart) must rejoin
// from scratch, which means a fresh catch-up transfer; it does not
// resume from where it left off.
//
// # Concurrency and thread safety
//
// Leader's serialization lock guards table-apply, log-append, and
// fan-out as one unit, and stays held while the commit log's Append
// takes its own lock and fsyncs. The hash table and commit log each
// take their own lock inside their exported methods and release it
// before returning; replgroup calls them one after the other and never
// holds one of their locks while calling the other, so replgroup never
// needs to reason about their internals beyond calling their exported
// methods.
//
// Follower holds a separate mutex guarding only its own state field;
// the actual replication work (runOnce) runs in a single background
// goroutine per Follower, so replgroup itself never touches the
// follower's table or log from more than one goroutine. Other readers
// (internal/adminhttp's /status) rely on the table's and log's own
// locks.
//
// # Failure scenarios
//
// Leader process crash: every connected follower's read on the shared
// connection fails, ending its runOnce with an error and moving it to
// closed. No other follower is affected; each session is independent.
//
// Follower process crash: the leader's write to that session's
// connection eventually fails (or its queue fills because nothing is
// draining it), and the session is dropped. Remaining followers are
// unaffected; the leader never blocks on a single follower.
//
// Slow follower: fan-out is non-blocking. A follower whose queue is
// full because its catch-up is consistently behind the mutation rate
// is dropped rather than allowed to apply backpressure to client
// traffic.
//
// # Usage example
//
//	logger, _ := zap.NewProduction()
//	tb := table.New()
//	log, _ := commitlog.Open("group-a.log")
//
//	// Leader side
//	leader := replgroup.NewLeader(tb, log, logger)
//	reply, err := leader.Apply(protocol.Command{Kind: protocol.Set, Key: "k", Value: "v", ReqID: 1})
//
//	// On a newly accepted TCP connection that sent "join":
//	leader.HandleJoin(conn)
//
//	// Follower side, on a different node
//	follower := replgroup.NewFollower(tb, log, "leader-host:7000", logger)
//	ctx, cancel := context.WithCancel(context.Background())
//	follower.Start(ctx)
//	defer follower.Stop()
//
// # Best practices
//
//   - Always pass a non-nil *zap.Logger; tests that don't care about
//     log output should use zap.NewNop() rather than leaving it nil,
//     since every error path logs before returning.
//   - Call Leader.Sessions() only for observability (internal/adminhttp's
//     /status); it takes the same lock Apply does, so polling it at a
//     high rate competes with the mutation path.
//   - A Follower that reaches Closed needs a new Follower (or a fresh
//     Start after reconstructing its dependencies); there is no Restart
//     method, because a stale in-memory table and log make a bare
//     reconnect unsafe without also re-running catch-up.
//
// # See also
//
// Related packages:
//   - internal/table: the hash table both Leader and Follower apply
//     commands against
//   - internal/commitlog: the durable, replayable log both sides use
//     for fsync-before-ack and for the join/bootstrap transfer
//   - internal/protocol: the wire format for commands and join
//   - internal/dispatch: routes an accepted client connection to the
//     local Leader.Apply (if this node leads the owning group) or
//     forwards it elsewhere
//   - internal/adminhttp: exposes Leader.Sessions and Follower.State
//     for /status
package replgroup
