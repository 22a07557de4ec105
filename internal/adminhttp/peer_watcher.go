package adminhttp

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dreamware/ringkv/internal/cluster"
)

// PeerWatcher periodically polls a single peer's /healthz endpoint and
// tracks consecutive failures. It polls exactly one address (a
// follower's leader) and only ever reports staleness: this repo's
// leader assignment is static, so there is nothing to redistribute.
type PeerWatcher struct {
	addr        string
	interval    time.Duration
	timeout     time.Duration
	maxFailures int
	logger      *zap.Logger

	mu               sync.Mutex
	lastHealthy      time.Time
	consecutiveFails int
	unhealthy        bool
	onUnhealthy      func()

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPeerWatcher returns a PeerWatcher that polls addr's /healthz every
// interval, marking it unhealthy after 3 consecutive failures.
func NewPeerWatcher(addr string, interval time.Duration, logger *zap.Logger) *PeerWatcher {
	return &PeerWatcher{
		addr:        addr,
		interval:    interval,
		timeout:     2 * time.Second,
		maxFailures: 3,
		logger:      logger,
	}
}

// SetOnUnhealthy sets the callback invoked the moment the peer crosses
// the consecutive-failure threshold. It is called at most once per
// unhealthy episode, in its own goroutine.
func (p *PeerWatcher) SetOnUnhealthy(callback func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onUnhealthy = callback
}

// Start begins polling in a background goroutine until Stop is called
// or ctx is canceled.
func (p *PeerWatcher) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.run(runCtx)
	}()
}

// Stop cancels the polling loop and waits for it to exit.
func (p *PeerWatcher) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

func (p *PeerWatcher) run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.checkOnce(ctx)
	for {
		select {
		case <-ticker.C:
			p.checkOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *PeerWatcher) checkOnce(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.healthCheck(checkCtx)

	p.mu.Lock()
	defer p.mu.Unlock()

	if err != nil {
		p.consecutiveFails++
		p.logger.Warn("peer health check failed",
			zap.String("addr", p.addr),
			zap.Int("consecutive_fails", p.consecutiveFails),
			zap.Error(err))
		if p.consecutiveFails >= p.maxFailures && !p.unhealthy {
			p.unhealthy = true
			if p.onUnhealthy != nil {
				go p.onUnhealthy()
			}
		}
		return
	}

	if p.unhealthy {
		p.logger.Info("peer recovered", zap.String("addr", p.addr))
	}
	p.unhealthy = false
	p.consecutiveFails = 0
	p.lastHealthy = time.Now()
}

func (p *PeerWatcher) healthCheck(ctx context.Context) error {
	url := p.addr
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = fmt.Sprintf("http://%s", url)
	}
	url = strings.TrimRight(url, "/") + "/healthz"

	var resp healthResponse
	if err := cluster.GetJSON(ctx, url, &resp); err != nil {
		return err
	}
	if resp.Status != "ok" {
		return fmt.Errorf("adminhttp: peer %s reported status %q", p.addr, resp.Status)
	}
	return nil
}

// PeerStatus is a point-in-time snapshot of a PeerWatcher's view of its
// peer.
type PeerStatus struct {
	Healthy          bool
	ConsecutiveFails int
	LastHealthy      time.Time
}

// Status returns a snapshot of the watcher's current view of its peer.
func (p *PeerWatcher) Status() PeerStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PeerStatus{
		Healthy:          !p.unhealthy,
		ConsecutiveFails: p.consecutiveFails,
		LastHealthy:      p.lastHealthy,
	}
}
