package dispatch

import (
	"bufio"
	"net"
	"strings"
	"sync"

	"github.com/dreamware/ringkv/internal/protocol"
)

// pooledConn is one persistent connection to a remote group leader,
// together with the buffered reader reused across forwarded requests so
// that no reply bytes read ahead into the buffer are ever dropped.
type pooledConn struct {
	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
}

// Pool holds at most one persistent connection per remote group leader
// address, re-dialing lazily on first use and on a write or read
// failure. It is deliberately a plain map rather than a third-party
// connection-pool library: at most one entry per configured group,
// never more than a handful in practice.
type Pool struct {
	mu    sync.Mutex
	conns map[string]*pooledConn
	dial  func(addr string) (net.Conn, error)
}

// NewPool returns a Pool that dials over TCP.
func NewPool() *Pool {
	return &Pool{
		conns: make(map[string]*pooledConn),
		dial:  func(addr string) (net.Conn, error) { return net.Dial("tcp", addr) },
	}
}

func (p *Pool) entry(addr string) *pooledConn {
	p.mu.Lock()
	defer p.mu.Unlock()
	pc, ok := p.conns[addr]
	if !ok {
		pc = &pooledConn{}
		p.conns[addr] = pc
	}
	return pc
}

// Forward writes cmd as a single line to addr's connection and returns
// the single-line reply, verbatim and with its trailing newline
// stripped. It transparently redials once on a write failure.
func (p *Pool) Forward(addr string, cmd protocol.Command) (string, error) {
	pc := p.entry(addr)
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if pc.conn == nil {
		if err := p.redial(pc, addr); err != nil {
			return "", err
		}
	}

	line := cmd.Format() + "\n"
	if _, err := pc.conn.Write([]byte(line)); err != nil {
		if err := p.redial(pc, addr); err != nil {
			return "", err
		}
		if _, err := pc.conn.Write([]byte(line)); err != nil {
			p.closeLocked(pc)
			return "", err
		}
	}

	reply, err := pc.reader.ReadString('\n')
	if err != nil {
		p.closeLocked(pc)
		return "", err
	}
	return strings.TrimSuffix(reply, "\n"), nil
}

func (p *Pool) redial(pc *pooledConn, addr string) error {
	if pc.conn != nil {
		pc.conn.Close()
	}
	conn, err := p.dial(addr)
	if err != nil {
		pc.conn = nil
		pc.reader = nil
		return err
	}
	pc.conn = conn
	pc.reader = bufio.NewReader(conn)
	return nil
}

func (p *Pool) closeLocked(pc *pooledConn) {
	if pc.conn != nil {
		pc.conn.Close()
	}
	pc.conn = nil
	pc.reader = nil
}
