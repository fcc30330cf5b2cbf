package connectivity

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Checker reports whether the device can reach the backend.
// Changes delivers the new state on every offline/online transition.
type Checker interface {
	Online() bool
	Changes() <-chan bool
}

// state is the shared transition publisher behind Switch and Prober.
// The channel holds at most the latest unread transition.
type state struct {
	mu      sync.Mutex
	online  atomic.Bool
	changes chan bool
}

func newState(online bool) *state {
	s := &state{changes: make(chan bool, 1)}
	s.online.Store(online)
	return s
}

func (s *state) Online() bool { return s.online.Load() }

func (s *state) Changes() <-chan bool { return s.changes }

// set stores v and reports whether it was a transition.
func (s *state) set(v bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.online.Swap(v) == v {
		return false
	}
	select {
	case <-s.changes:
	default:
	}
	s.changes <- v
	return true
}

// Switch is a manually driven Checker, used when no probe URL is configured,
// by the CLI's --offline flag, and in tests.
type Switch struct {
	*state
}

func NewSwitch(online bool) *Switch {
	return &Switch{state: newState(online)}
}

// Set changes the state, publishing a change only on a transition.
func (s *Switch) Set(online bool) {
	s.set(online)
}

// Prober polls a URL with HEAD requests. Any response below 500 counts as
// online; transport errors and 5xx responses count as offline.
type Prober struct {
	*state
	url      string
	interval time.Duration
	client   *http.Client
	logger   *zap.Logger
}

func NewProber(url string, interval, timeout time.Duration, logger *zap.Logger) *Prober {
	return &Prober{
		state:    newState(false),
		url:      url,
		interval: interval,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// Run probes immediately, then every interval until ctx is cancelled.
func (p *Prober) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("connectivity prober started",
		zap.String("url", p.url), zap.Duration("interval", p.interval))

	p.check(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("connectivity prober stopping")
			return
		case <-ticker.C:
			p.check(ctx)
		}
	}
}

func (p *Prober) check(ctx context.Context) {
	online := p.probe(ctx)
	if ctx.Err() != nil {
		return
	}
	if p.set(online) {
		p.logger.Info("connectivity changed", zap.Bool("online", online))
	}
}

func (p *Prober) probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		p.logger.Error("build probe request", zap.Error(err))
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Debug("probe failed", zap.Error(err))
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}

var (
	_ Checker = (*Switch)(nil)
	_ Checker = (*Prober)(nil)
)
