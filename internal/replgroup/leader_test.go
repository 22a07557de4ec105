package replgroup

import (
	"bufio"
	"net"
	"testing"

	"go.uber.org/zap"

	"github.com/dreamware/ringkv/internal/commitlog"
	"github.com/dreamware/ringkv/internal/protocol"
	"github.com/dreamware/ringkv/internal/table"
)

func newTestLeader(t *testing.T) *Leader {
	t.Helper()
	log, err := commitlog.Open(t.TempDir() + "/log.txt")
	if err != nil {
		t.Fatalf("commitlog.Open: %v", err)
	}
	t.Cleanup(func() { log.Close() })
	return NewLeader(table.New(), log, zap.NewNop())
}

func TestLeaderApply(t *testing.T) {
	t.Run("set then get", func(t *testing.T) {
		l := newTestLeader(t)

		reply, err := l.Apply(protocol.Command{Kind: protocol.Set, Key: "apple", Value: "42", ReqID: 1000})
		if err != nil || reply != protocol.ReplyOK {
			t.Fatalf("got (%q, %v), want (OK, nil)", reply, err)
		}

		reply, err = l.Apply(protocol.Command{Kind: protocol.Get, Key: "apple", ReqID: 1001})
		if err != nil || reply != "(42, 1000)" {
			t.Errorf("got (%q, %v), want ((42, 1000), nil)", reply, err)
		}
	})

	t.Run("get on absent key", func(t *testing.T) {
		l := newTestLeader(t)
		reply, err := l.Apply(protocol.Command{Kind: protocol.Get, Key: "ghost", ReqID: 1})
		if err != nil || reply != protocol.ReplyNotFound {
			t.Errorf("got (%q, %v), want (%q, nil)", reply, err, protocol.ReplyNotFound)
		}
	})

	t.Run("delete then get", func(t *testing.T) {
		l := newTestLeader(t)
		l.Apply(protocol.Command{Kind: protocol.Set, Key: "apple", Value: "42", ReqID: 1000})

		reply, err := l.Apply(protocol.Command{Kind: protocol.Del, Key: "apple", ReqID: 1002})
		if err != nil || reply != protocol.ReplyOK {
			t.Fatalf("got (%q, %v), want (OK, nil)", reply, err)
		}

		reply, err = l.Apply(protocol.Command{Kind: protocol.Get, Key: "apple", ReqID: 1003})
		if err != nil || reply != protocol.ReplyNotFound {
			t.Errorf("got (%q, %v), want (%q, nil)", reply, err, protocol.ReplyNotFound)
		}
	})

	t.Run("stale write is still OK to the client but never logged", func(t *testing.T) {
		l := newTestLeader(t)
		l.Apply(protocol.Command{Kind: protocol.Set, Key: "apple", Value: "42", ReqID: 1000})

		reply, err := l.Apply(protocol.Command{Kind: protocol.Set, Key: "apple", Value: "99", ReqID: 500})
		if err != nil || reply != protocol.ReplyOK {
			t.Fatalf("got (%q, %v), want (OK, nil)", reply, err)
		}

		commands, _ := l.log.ReadAll()
		if len(commands) != 1 {
			t.Errorf("expected stale write to be skipped in the log, got %v", commands)
		}
	})

	t.Run("mutations fan out to connected sessions", func(t *testing.T) {
		l := newTestLeader(t)
		serverConn, clientConn := net.Pipe()
		t.Cleanup(func() { serverConn.Close(); clientConn.Close() })

		sess := newFollowerSession("test-session", serverConn)
		sess.setState(Live)
		l.sessions = append(l.sessions, sess)
		go func() {
			for line := range sess.queue {
				sess.conn.Write([]byte(line + "\n"))
			}
		}()

		if _, err := l.Apply(protocol.Command{Kind: protocol.Set, Key: "apple", Value: "42", ReqID: 1000}); err != nil {
			t.Fatalf("Apply: %v", err)
		}

		reader := bufio.NewReader(clientConn)
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("ReadString: %v", err)
		}
		if line != "set apple 42 1000\n" {
			t.Errorf("got %q, want %q", line, "set apple 42 1000\n")
		}
	})

	t.Run("sessions with a full queue are dropped", func(t *testing.T) {
		l := newTestLeader(t)
		serverConn, clientConn := net.Pipe()
		t.Cleanup(func() { clientConn.Close() })

		sess := newFollowerSession("slow-session", serverConn)
		sess.setState(Live)
		for i := 0; i < SessionQueueCapacity; i++ {
			sess.queue <- "set filler 1 1"
		}
		l.sessions = append(l.sessions, sess)

		l.Apply(protocol.Command{Kind: protocol.Set, Key: "apple", Value: "42", ReqID: 1000})

		if sess.State() != Closed {
			t.Errorf("expected overflowed session to be dropped, got state %v", sess.State())
		}
		if len(l.sessions) != 0 {
			t.Errorf("expected dropped session to be removed from the session list")
		}
	})
}

func TestLeaderSessions(t *testing.T) {
	l := newTestLeader(t)
	_, c1 := net.Pipe()
	_, c2 := net.Pipe()
	t.Cleanup(func() { c1.Close(); c2.Close() })

	s1 := newFollowerSession("b", c1)
	s1.setState(Live)
	s2 := newFollowerSession("a", c2)
	s2.setState(CatchingUp)
	l.sessions = append(l.sessions, s1, s2)

	infos := l.Sessions()
	if len(infos) != 2 {
		t.Fatalf("got %d sessions, want 2", len(infos))
	}
	if infos[0].ID != "a" || infos[0].State != CatchingUp {
		t.Errorf("expected sorted first entry (a, catching_up), got %+v", infos[0])
	}
	if infos[1].ID != "b" || infos[1].State != Live {
		t.Errorf("expected sorted second entry (b, live), got %+v", infos[1])
	}
}
