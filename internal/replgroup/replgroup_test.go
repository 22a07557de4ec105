package replgroup

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dreamware/ringkv/internal/commitlog"
	"github.com/dreamware/ringkv/internal/protocol"
	"github.com/dreamware/ringkv/internal/table"
)

// serveLeader accepts connections on ln and hands each one to leader,
// mimicking just enough of internal/dispatch's routing to exercise the
// join protocol end to end: a "join" first line hands the raw
// connection to HandleJoin; anything else is applied once and the
// connection closed.
func serveLeader(t *testing.T, ln net.Listener, leader *Leader) {
	t.Helper()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				reader := bufio.NewReader(c)
				line, err := reader.ReadString('\n')
				if err != nil {
					c.Close()
					return
				}
				cmd, err := protocol.ParseCommand(strings.TrimSuffix(line, "\n"))
				if err != nil {
					c.Close()
					return
				}
				if cmd.Kind == protocol.Join {
					leader.HandleJoin(c)
					return
				}
				reply, _ := leader.Apply(cmd)
				c.Write([]byte(reply + "\n"))
				c.Close()
			}(conn)
		}
	}()
}

func waitForState(t *testing.T, f *Follower, want State) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if f.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("follower never reached state %v, stuck at %v", want, f.State())
}

func waitForValue(t *testing.T, tb *table.Table, key, want string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if entry, err := tb.Get(key); err == nil && string(entry.Value) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("key %q never reached value %q", key, want)
}

func TestJoinAndReplicate(t *testing.T) {
	t.Run("follower catches up on pre-existing data then streams live", func(t *testing.T) {
		leaderLog, err := commitlog.Open(t.TempDir() + "/leader-log.txt")
		if err != nil {
			t.Fatalf("commitlog.Open: %v", err)
		}
		t.Cleanup(func() { leaderLog.Close() })
		leaderTable := table.New()
		leader := NewLeader(leaderTable, leaderLog, zap.NewNop())

		// Pre-existing data the follower must pick up during bootstrap.
		leader.Apply(protocol.Command{Kind: protocol.Set, Key: "apple", Value: "42", ReqID: 1000})
		leader.Apply(protocol.Command{Kind: protocol.Set, Key: "banana", Value: "7", ReqID: 1001})

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("net.Listen: %v", err)
		}
		t.Cleanup(func() { ln.Close() })
		serveLeader(t, ln, leader)

		followerLog, err := commitlog.Open(t.TempDir() + "/follower-log.txt")
		if err != nil {
			t.Fatalf("commitlog.Open: %v", err)
		}
		t.Cleanup(func() { followerLog.Close() })
		followerTable := table.New()
		follower := NewFollower(followerTable, followerLog, ln.Addr().String(), zap.NewNop())

		ctx, cancel := context.WithCancel(context.Background())
		t.Cleanup(cancel)
		follower.Start(ctx)
		t.Cleanup(follower.Stop)

		waitForState(t, follower, Live)
		waitForValue(t, followerTable, "apple", "42")
		waitForValue(t, followerTable, "banana", "7")

		// A mutation applied after the follower is live must also replicate.
		leader.Apply(protocol.Command{Kind: protocol.Set, Key: "cherry", Value: "3", ReqID: 1002})
		waitForValue(t, followerTable, "cherry", "3")

		followerCommands, err := followerLog.ReadAll()
		if err != nil {
			t.Fatalf("ReadAll: %v", err)
		}
		if len(followerCommands) != 3 {
			t.Errorf("expected 3 commands in the follower's log, got %v", followerCommands)
		}
	})

	t.Run("deletes replicate to the follower", func(t *testing.T) {
		leaderLog, err := commitlog.Open(t.TempDir() + "/leader-log.txt")
		if err != nil {
			t.Fatalf("commitlog.Open: %v", err)
		}
		t.Cleanup(func() { leaderLog.Close() })
		leaderTable := table.New()
		leader := NewLeader(leaderTable, leaderLog, zap.NewNop())
		leader.Apply(protocol.Command{Kind: protocol.Set, Key: "apple", Value: "42", ReqID: 1000})

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("net.Listen: %v", err)
		}
		t.Cleanup(func() { ln.Close() })
		serveLeader(t, ln, leader)

		followerLog, err := commitlog.Open(t.TempDir() + "/follower-log.txt")
		if err != nil {
			t.Fatalf("commitlog.Open: %v", err)
		}
		t.Cleanup(func() { followerLog.Close() })
		followerTable := table.New()
		follower := NewFollower(followerTable, followerLog, ln.Addr().String(), zap.NewNop())

		ctx, cancel := context.WithCancel(context.Background())
		t.Cleanup(cancel)
		follower.Start(ctx)
		t.Cleanup(follower.Stop)

		waitForState(t, follower, Live)
		waitForValue(t, followerTable, "apple", "42")

		leader.Apply(protocol.Command{Kind: protocol.Del, Key: "apple", ReqID: 1001})

		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			if _, err := followerTable.Get("apple"); err != nil {
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
		t.Fatalf("delete never replicated to follower")
	})
}
