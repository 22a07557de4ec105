package dispatch

import (
	"bufio"
	"errors"
	"net"
	"strings"

	"go.uber.org/zap"

	"github.com/dreamware/ringkv/internal/protocol"
	"github.com/dreamware/ringkv/internal/replgroup"
	"github.com/dreamware/ringkv/internal/ring"
	"github.com/dreamware/ringkv/internal/topology"
)

// Dispatcher is the per-connection TCP request handler. One Dispatcher
// is shared by every accepted connection on a node's data-path
// listener.
type Dispatcher struct {
	router   *ring.Ring
	topology *topology.Topology
	ownGroup string
	leader   *replgroup.Leader // nil if this node is a follower, not a leader
	pool     *Pool
	logger   *zap.Logger
}

// New returns a Dispatcher for a node whose own group is ownGroup. Pass
// a non-nil leader only if this node is the leader of ownGroup;
// requests for ownGroup are otherwise forwarded like any other group's,
// which a follower does not serve directly.
func New(router *ring.Ring, topo *topology.Topology, ownGroup string, leader *replgroup.Leader, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		router:   router,
		topology: topo,
		ownGroup: ownGroup,
		leader:   leader,
		pool:     NewPool(),
		logger:   logger,
	}
}

// HandleConn reads and serves requests from conn, one line at a time,
// until a parse error, I/O error, or a join command hands conn off to
// the local Leader. It keeps no state between requests on the
// connection, and always takes ownership of closing conn unless a
// join handoff occurs.
func (d *Dispatcher) HandleConn(conn net.Conn) {
	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			conn.Close()
			return
		}

		cmd, err := protocol.ParseCommand(strings.TrimSuffix(line, "\n"))
		if err != nil {
			d.logger.Warn("malformed command, closing connection", zap.Error(err))
			conn.Close()
			return
		}

		if cmd.Kind == protocol.Join {
			if d.leader == nil {
				d.logger.Warn("join request at a non-leader node, closing connection")
				conn.Close()
				return
			}
			d.leader.HandleJoin(conn)
			return
		}

		reply, err := d.route(cmd)
		if err != nil {
			d.logger.Error("routing error, closing connection", zap.Error(err))
			conn.Close()
			return
		}
		if _, err := conn.Write([]byte(reply + "\n")); err != nil {
			conn.Close()
			return
		}
	}
}

// errNoLeaderForGroup is returned when the topology has no configured
// leader address for the group the router says owns a key, an
// inconsistency between the ring and the static topology document.
var errNoLeaderForGroup = errors.New("dispatch: no leader configured for owning group")

// route determines the group that owns cmd's key and either applies it
// locally (this node leads that group) or forwards it.
func (d *Dispatcher) route(cmd protocol.Command) (string, error) {
	owner, err := d.router.Owner(cmd.Key)
	if err != nil {
		return "", err
	}

	if owner == d.ownGroup && d.leader != nil {
		return d.leader.Apply(cmd)
	}

	group, err := d.topology.Resolve(owner)
	if err != nil {
		return "", err
	}
	if group.Leader == "" {
		return "", errNoLeaderForGroup
	}
	return d.pool.Forward(group.Leader, cmd)
}
