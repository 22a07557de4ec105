package replgroup

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/dreamware/ringkv/internal/commitlog"
	"github.com/dreamware/ringkv/internal/protocol"
	"github.com/dreamware/ringkv/internal/table"
)

// Follower replicates one leader's commit log and command stream into
// its own table and log. It holds no follower sessions of its own; it
// is itself one.
type Follower struct {
	table      *table.Table
	log        *commitlog.Log
	leaderAddr string
	logger     *zap.Logger

	mu    sync.Mutex
	state State

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewFollower returns a Follower that will replicate from leaderAddr
// into tb and log once Start is called.
func NewFollower(tb *table.Table, log *commitlog.Log, leaderAddr string, logger *zap.Logger) *Follower {
	return &Follower{table: tb, log: log, leaderAddr: leaderAddr, logger: logger, state: Connecting}
}

// State returns the follower's current lifecycle state.
func (f *Follower) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Follower) setState(st State) {
	f.mu.Lock()
	f.state = st
	f.mu.Unlock()
}

// LeaderAddr returns the address this follower replicates from.
func (f *Follower) LeaderAddr() string {
	return f.leaderAddr
}

// Start launches the connect/join/catch-up/stream cycle in a background
// goroutine and returns immediately. Call Stop to cancel it.
func (f *Follower) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		f.run(runCtx)
	}()
}

// Stop cancels the follower's background goroutine and waits for it to
// exit.
func (f *Follower) Stop() {
	if f.cancel != nil {
		f.cancel()
	}
	f.wg.Wait()
}

func (f *Follower) run(ctx context.Context) {
	if err := f.runOnce(ctx); err != nil {
		f.logger.Error("follower session ended", zap.String("leader", f.leaderAddr), zap.Error(err))
	}
	f.setState(Closed)
}

// runOnce performs exactly one connect/join/catch-up/stream cycle. A
// socket error at any point transitions the follower to closed; there
// is no automatic reconnect.
func (f *Follower) runOnce(ctx context.Context) error {
	f.setState(Connecting)
	conn, err := net.Dial("tcp", f.leaderAddr)
	if err != nil {
		return err
	}
	defer conn.Close()

	closed := make(chan struct{})
	defer close(closed)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-closed:
		}
	}()

	joinLine := protocol.Command{Kind: protocol.Join}.Format()
	if _, err := conn.Write([]byte(joinLine + "\n")); err != nil {
		return err
	}
	f.setState(CatchingUp)

	reader := bufio.NewReader(conn)
	preamble, err := reader.ReadString('\n')
	if err != nil {
		return err
	}
	if strings.TrimSpace(preamble) != protocol.CommitLogPreamble {
		return fmt.Errorf("replgroup: expected commit-log preamble, got %q", preamble)
	}

	if err := f.log.Truncate(); err != nil {
		return err
	}
	if err := f.log.ReceiveSized(reader); err != nil {
		return err
	}
	if err := f.replayLocalLog(); err != nil {
		return err
	}

	f.setState(Live)
	f.logger.Info("follower caught up, streaming live", zap.String("leader", f.leaderAddr))

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		cmd, err := protocol.ParseCommand(strings.TrimSuffix(line, "\n"))
		if err != nil {
			return err
		}
		f.applyAndLog(cmd)
	}
}

// replayLocalLog applies every command already written to the local
// log (just received from the leader) to the table, without appending
// again since the file already holds them.
func (f *Follower) replayLocalLog() error {
	commands, err := f.log.ReadAll()
	if err != nil {
		return err
	}
	for _, line := range commands {
		cmd, err := protocol.ParseCommand(line)
		if err != nil {
			return fmt.Errorf("replgroup: replaying local log: %w", err)
		}
		f.applyOnly(cmd)
	}
	return nil
}

func (f *Follower) applyOnly(cmd protocol.Command) {
	switch cmd.Kind {
	case protocol.Set:
		f.table.Set(cmd.Key, []byte(cmd.Value), cmd.ReqID)
	case protocol.Del:
		f.table.Delete(cmd.Key, cmd.ReqID)
	}
}

// applyAndLog applies cmd and appends it to the local log regardless of
// whether the apply was a no-op: replaying an idempotent command twice
// still leaves table and log in agreement.
func (f *Follower) applyAndLog(cmd protocol.Command) {
	f.applyOnly(cmd)
	if err := f.log.Append(cmd.Format()); err != nil {
		f.logger.Error("follower failed to append to local log", zap.Error(err))
	}
}
