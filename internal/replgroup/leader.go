package replgroup

import (
	"errors"
	"net"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/exp/slices"

	"github.com/dreamware/ringkv/internal/commitlog"
	"github.com/dreamware/ringkv/internal/protocol"
	"github.com/dreamware/ringkv/internal/table"
)

// Leader is the fixed leader of one replica group. It serializes every
// mutation through mu: table apply, log append, and fan-out to
// followers all happen inside the same critical section, so followers
// observe exactly the leader's order.
type Leader struct {
	mu       sync.Mutex
	table    *table.Table
	log      *commitlog.Log
	sessions []*followerSession
	logger   *zap.Logger
}

// NewLeader returns a Leader backed by tb and log. logger must not be
// nil; pass zap.NewNop() in tests that don't care about log output.
func NewLeader(tb *table.Table, log *commitlog.Log, logger *zap.Logger) *Leader {
	return &Leader{table: tb, log: log, logger: logger}
}

// Apply executes a single client command against the leader and
// returns the wire reply line: the mutation path for set/del (table
// apply, log append, fan-out, all under the same lock) and the
// same-lock read path for get.
func (l *Leader) Apply(cmd protocol.Command) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch cmd.Kind {
	case protocol.Get:
		entry, err := l.table.Get(cmd.Key)
		if errors.Is(err, table.ErrKeyNotFound) {
			return protocol.ReplyNotFound, nil
		}
		if err != nil {
			return "", err
		}
		return protocol.FormatGetReply(string(entry.Value), entry.ReqID), nil

	case protocol.Set:
		if !l.table.Set(cmd.Key, []byte(cmd.Value), cmd.ReqID) {
			return protocol.ReplyOK, nil
		}
		if err := l.log.Append(cmd.Format()); err != nil {
			return "", err
		}
		l.fanOut(cmd.Format())
		return protocol.ReplyOK, nil

	case protocol.Del:
		if !l.table.Delete(cmd.Key, cmd.ReqID) {
			return protocol.ReplyOK, nil
		}
		if err := l.log.Append(cmd.Format()); err != nil {
			return "", err
		}
		l.fanOut(cmd.Format())
		return protocol.ReplyOK, nil

	default:
		return "", protocol.ErrMalformed
	}
}

// fanOut enqueues line to every connected session. Called with mu
// already held, so it observes (and extends) the same total order the
// caller just established for the local table and log. A session whose
// queue is full is dropped immediately rather than allowed to stall
// the leader.
func (l *Leader) fanOut(line string) {
	live := l.sessions[:0]
	for _, sess := range l.sessions {
		if sess.State() == Closed {
			continue
		}
		if !sess.enqueue(line) {
			l.logger.Warn("follower queue full, dropping session",
				zap.String("session", sess.id))
			sess.setState(Closed)
			sess.conn.Close()
			continue
		}
		live = append(live, sess)
	}
	l.sessions = live
}

// HandleJoin registers a new follower session on conn and launches its
// one-shot commit-log transfer followed by live streaming. It returns
// immediately; the transfer runs in its own goroutine.
func (l *Leader) HandleJoin(conn net.Conn) {
	id := conn.RemoteAddr().String()
	sess := newFollowerSession(id, conn)
	sess.setState(CatchingUp)

	l.mu.Lock()
	l.sessions = append(l.sessions, sess)
	l.mu.Unlock()

	go l.runBootstrapAndStream(sess)
}

// runBootstrapAndStream sends the commit-log preamble and a framed
// snapshot of the log, then flips the session live and streams queued
// and subsequent mutations until the connection fails.
func (l *Leader) runBootstrapAndStream(sess *followerSession) {
	if _, err := sess.conn.Write([]byte(protocol.CommitLogPreamble + "\n")); err != nil {
		l.dropSession(sess, err)
		return
	}
	if err := l.log.SendSized(sess.conn); err != nil {
		l.dropSession(sess, err)
		return
	}

	l.mu.Lock()
	sess.setState(Live)
	l.mu.Unlock()
	l.logger.Info("follower session live", zap.String("session", sess.id))

	for line := range sess.queue {
		if _, err := sess.conn.Write([]byte(line + "\n")); err != nil {
			l.dropSession(sess, err)
			return
		}
	}
}

func (l *Leader) dropSession(sess *followerSession, cause error) {
	l.logger.Warn("follower session closed",
		zap.String("session", sess.id), zap.Error(cause))

	l.mu.Lock()
	sess.setState(Closed)
	l.sessions = slices.DeleteFunc(l.sessions, func(s *followerSession) bool { return s == sess })
	l.mu.Unlock()

	sess.conn.Close()
}

// Sessions returns a snapshot of every currently-tracked follower
// session, sorted by id for deterministic /status output.
func (l *Leader) Sessions() []SessionInfo {
	l.mu.Lock()
	defer l.mu.Unlock()

	infos := make([]SessionInfo, len(l.sessions))
	for i, s := range l.sessions {
		infos[i] = SessionInfo{ID: s.id, State: s.State()}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}
