package adminhttp

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/dreamware/ringkv/internal/commitlog"
	"github.com/dreamware/ringkv/internal/replgroup"
	"github.com/dreamware/ringkv/internal/ring"
	"github.com/dreamware/ringkv/internal/table"
)

// Role identifies which half of a replica group a node occupies.
type Role string

const (
	RoleLeader   Role = "leader"
	RoleFollower Role = "follower"
)

// healthResponse is the JSON body /healthz returns once the node has
// completed startup.
type healthResponse struct {
	Status string `json:"status"`
}

// followerSessionStatus mirrors one entry of a leader's Sessions() for
// JSON serving.
type followerSessionStatus struct {
	ID    string `json:"id"`
	State string `json:"state"`
}

// statusResponse is the JSON body /status returns.
type statusResponse struct {
	Role             Role                    `json:"role"`
	Group            string                  `json:"group"`
	TableKeys        int                      `json:"table_keys"`
	CommitLogRecords int                      `json:"commit_log_records"`
	FollowerSessions []followerSessionStatus `json:"follower_sessions,omitempty"`
	FollowerState    string                  `json:"follower_state,omitempty"`
	LeaderAddr       string                  `json:"leader_addr,omitempty"`
}

// groupsResponse is the JSON body /groups returns.
type groupsResponse struct {
	Entries []ring.Entry `json:"entries"`
}

// Server is the node's observation-only HTTP surface. It holds no lock
// of its own; every field it reads exposes its own snapshot accessor,
// which takes that component's lock for the duration of the copy.
type Server struct {
	role     Role
	group    string
	table    *table.Table
	log      *commitlog.Log
	router   *ring.Ring
	leader   *replgroup.Leader   // non-nil only when role == RoleLeader
	follower *replgroup.Follower // non-nil only when role == RoleFollower
	ready    atomic.Bool
	logger   *zap.Logger
}

// New returns a Server for a node. Exactly one of leader/follower
// should be non-nil, matching role.
func New(role Role, group string, tb *table.Table, log *commitlog.Log, router *ring.Ring, leader *replgroup.Leader, follower *replgroup.Follower, logger *zap.Logger) *Server {
	return &Server{
		role:     role,
		group:    group,
		table:    tb,
		log:      log,
		router:   router,
		leader:   leader,
		follower: follower,
		logger:   logger,
	}
}

// SetReady marks the node ready (or not) to serve /healthz with 200.
// cmd/kvnode calls this once with true after the table, log, and
// router are fully constructed and the data-path listener is up.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// Handler returns the http.Handler serving /healthz, /status, and
// /groups. It is safe to mount on any http.Server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/groups", s.handleGroups)
	return mux
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	if !s.ready.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(healthResponse{Status: "starting"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(healthResponse{Status: "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := statusResponse{
		Role:             s.role,
		Group:            s.group,
		TableKeys:        s.table.Stats().Keys,
		CommitLogRecords: s.commitLogRecordCount(),
	}

	switch s.role {
	case RoleLeader:
		for _, sess := range s.leader.Sessions() {
			resp.FollowerSessions = append(resp.FollowerSessions, followerSessionStatus{
				ID:    sess.ID,
				State: sess.State.String(),
			})
		}
	case RoleFollower:
		resp.FollowerState = s.follower.State().String()
		resp.LeaderAddr = s.follower.LeaderAddr()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleGroups(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(groupsResponse{Entries: s.router.Entries()})
}

// commitLogRecordCount reads the full log back to count its records.
// This is an observational endpoint polled at human timescales, not a
// hot path, so an O(n) re-read on every call is an acceptable cost.
func (s *Server) commitLogRecordCount() int {
	records, err := s.log.ReadAll()
	if err != nil {
		s.logger.Warn("status: failed to read commit log for record count", zap.Error(err))
		return -1
	}
	return len(records)
}
