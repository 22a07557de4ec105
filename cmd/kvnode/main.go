// Package main implements kvnode, the process that runs a single node
// of a replica group in the partitioned, replicated key-value store.
//
// Every kvnode loads the same static topology document and builds the
// same consistent-hash router from it, so routing decisions agree
// across the cluster without a central coordinator. A node is launched
// as either the leader or a follower of exactly one configured group:
//
//   - A leader applies mutations locally, appends them to its commit
//     log, and fans them out to any joined follower sessions.
//   - A follower dials its group's leader, transfers the leader's
//     commit log to catch up, then streams live mutations and applies
//     them locally as they arrive.
//
// Every node also serves the TCP data-path listener (so it can accept
// client requests and forward anything it doesn't own to the right
// group) and an admin HTTP listener exposing /healthz, /status, and
// /groups.
//
// Configuration is via CLI flags, each with an environment-variable
// default and CLI precedence over the environment:
//
//   - KVNODE_TOPOLOGY / --topology: path to the topology YAML document
//   - KVNODE_GROUP / --group: this node's group id
//   - KVNODE_ADDR / --addr: data-path TCP listen address
//   - KVNODE_ADMIN_ADDR / --admin-addr: admin HTTP listen address
//   - KVNODE_ROLE / --role: "leader" or "follower"
//   - KVNODE_DATA_DIR / --data-dir: directory holding this node's
//     commit-log file
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/dreamware/ringkv/internal/adminhttp"
	"github.com/dreamware/ringkv/internal/commitlog"
	"github.com/dreamware/ringkv/internal/dispatch"
	"github.com/dreamware/ringkv/internal/replgroup"
	"github.com/dreamware/ringkv/internal/ring"
	"github.com/dreamware/ringkv/internal/table"
	"github.com/dreamware/ringkv/internal/topology"
)

// logFatal is a variable so tests can intercept a fatal exit path
// without terminating the test process.
var logFatal = func(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// getenv retrieves an environment variable with a default fallback.
func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

type config struct {
	topologyPath string
	group        string
	addr         string
	adminAddr    string
	role         string
	dataDir      string
}

func parseFlags(args []string) config {
	fs := flag.NewFlagSet("kvnode", flag.ExitOnError)
	cfg := config{}
	fs.StringVar(&cfg.topologyPath, "topology", getenv("KVNODE_TOPOLOGY", ""), "path to the topology YAML document")
	fs.StringVar(&cfg.group, "group", getenv("KVNODE_GROUP", ""), "this node's group id")
	fs.StringVar(&cfg.addr, "addr", getenv("KVNODE_ADDR", ":9000"), "data-path TCP listen address")
	fs.StringVar(&cfg.adminAddr, "admin-addr", getenv("KVNODE_ADMIN_ADDR", ":9100"), "admin HTTP listen address")
	fs.StringVar(&cfg.role, "role", getenv("KVNODE_ROLE", ""), "leader or follower")
	fs.StringVar(&cfg.dataDir, "data-dir", getenv("KVNODE_DATA_DIR", "."), "directory holding this node's commit-log file")
	fs.Parse(args)
	return cfg
}

func main() {
	cfg := parseFlags(os.Args[1:])

	logger, err := zap.NewProduction()
	if err != nil {
		logFatal("failed to build logger: %v", err)
		return
	}
	defer logger.Sync()

	if cfg.topologyPath == "" {
		logFatal("missing required -topology (or KVNODE_TOPOLOGY)")
		return
	}
	if cfg.group == "" {
		logFatal("missing required -group (or KVNODE_GROUP)")
		return
	}
	if cfg.role != "leader" && cfg.role != "follower" {
		logFatal("invalid -role %q: must be leader or follower", cfg.role)
		return
	}

	topo, err := topology.Load(cfg.topologyPath)
	if err != nil {
		logFatal("failed to load topology: %v", err)
		return
	}
	ownGroup, err := topo.Resolve(cfg.group)
	if err != nil {
		logFatal("group %q not found in topology: %v", cfg.group, err)
		return
	}

	log, err := commitlog.Open(filepath.Join(cfg.dataDir, "commitlog.log"))
	if err != nil {
		logFatal("failed to open commit log: %v", err)
		return
	}
	defer log.Close()

	tb := table.New()

	router := ring.New()
	for _, id := range topo.SortedGroupIDs() {
		router.AddGroup(id)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		leader      *replgroup.Leader
		follower    *replgroup.Follower
		peerWatcher *adminhttp.PeerWatcher
		adminRole   adminhttp.Role
	)

	if cfg.role == "leader" {
		adminRole = adminhttp.RoleLeader
		leader = replgroup.NewLeader(tb, log, logger)
	} else {
		adminRole = adminhttp.RoleFollower
		follower = replgroup.NewFollower(tb, log, ownGroup.Leader, logger)
		follower.Start(ctx)
		peerWatcher = adminhttp.NewPeerWatcher(ownGroup.Leader, 5*time.Second, logger)
		peerWatcher.SetOnUnhealthy(func() {
			logger.Warn("leader unreachable past failure threshold", zap.String("leader", ownGroup.Leader), zap.String("group", cfg.group))
		})
		peerWatcher.Start(ctx)
	}

	disp := dispatch.New(router, topo, cfg.group, leader, logger)

	ln, err := net.Listen("tcp", cfg.addr)
	if err != nil {
		logFatal("failed to listen on %s: %v", cfg.addr, err)
		return
	}

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go disp.HandleConn(conn)
		}
	}()

	admin := adminhttp.New(adminRole, cfg.group, tb, log, router, leader, follower, logger)
	adminServer := &http.Server{
		Addr:              cfg.adminAddr,
		Handler:           admin.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("admin server stopped unexpectedly", zap.Error(err))
		}
	}()

	admin.SetReady(true)
	logger.Info("kvnode started",
		zap.String("group", cfg.group),
		zap.String("role", cfg.role),
		zap.String("addr", cfg.addr),
		zap.String("admin_addr", cfg.adminAddr))

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("kvnode shutting down")
	admin.SetReady(false)
	cancel()
	if follower != nil {
		follower.Stop()
	}
	if peerWatcher != nil {
		peerWatcher.Stop()
	}
	ln.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("admin server shutdown error", zap.Error(err))
	}
	logger.Info("kvnode stopped")
}
