package replgroup

import (
	"net"
	"sync"
)

// SessionQueueCapacity is the bound on a follower session's outbound
// command queue. A session whose queue fills past this is dropped and
// must rejoin from scratch: this is the deliberate backpressure
// trade-off that keeps the leader from ever blocking on a slow
// follower.
const SessionQueueCapacity = 1024

// followerSession is the leader's view of one connected follower: its
// connection, its current lifecycle state, and its outbound command
// queue. The queue is filled under the leader's serialization lock
// (Leader.fanOut) and drained by a single per-session goroutine, so at
// most one writer ever touches conn at a time.
type followerSession struct {
	id   string
	conn net.Conn

	mu    sync.Mutex
	state State

	queue chan string
}

func newFollowerSession(id string, conn net.Conn) *followerSession {
	return &followerSession{
		id:    id,
		conn:  conn,
		state: Connecting,
		queue: make(chan string, SessionQueueCapacity),
	}
}

func (s *followerSession) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *followerSession) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// enqueue attempts a non-blocking send of line to the session's queue.
// It returns false if the queue is full, in which case the caller must
// drop the session.
func (s *followerSession) enqueue(line string) bool {
	select {
	case s.queue <- line:
		return true
	default:
		return false
	}
}

// SessionInfo is a point-in-time, lock-free snapshot of one follower
// session, safe to hand to internal/adminhttp for /status rendering.
type SessionInfo struct {
	ID    string
	State State
}
