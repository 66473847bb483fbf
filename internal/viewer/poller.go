package viewer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/orrn/queueview/internal/core"
)

const (
	DefaultInterval     = 5001 * time.Millisecond
	DefaultFadeDuration = 1000 * time.Millisecond
	DefaultFetchTimeout = 30 * time.Second
)

var ErrAlreadyRunning = errors.New("poller already running")

type PollerConfig struct {
	// Interval is the pause between the end of one poll and the start of
	// the next.
	Interval     time.Duration
	FetchTimeout time.Duration
	Clock        Clock
	Logger       *slog.Logger
}

// PollStatus describes the outcome of recent polls.
type PollStatus struct {
	Running     bool      `json:"running"`
	Polls       int       `json:"polls"`
	Failures    int       `json:"failures"`
	LastPoll    time.Time `json:"last_poll"`
	LastSuccess time.Time `json:"last_success"`
	LastError   string    `json:"last_error,omitempty"`
}

// Poller fetches a snapshot, reconciles it, waits Interval and starts over.
// At most one poll is in flight.
type Poller struct {
	fetcher    Fetcher
	reconciler *Reconciler
	interval   time.Duration
	timeout    time.Duration
	clock      Clock
	log        *slog.Logger

	pollMu sync.Mutex

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	status PollStatus
}

func NewPoller(fetcher Fetcher, reconciler *Reconciler, cfg PollerConfig) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = RealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Poller{
		fetcher:    fetcher,
		reconciler: reconciler,
		interval:   cfg.Interval,
		timeout:    cfg.FetchTimeout,
		clock:      cfg.Clock,
		log:        cfg.Logger.With("component", "poller"),
	}
}

// Start polls immediately and keeps polling until Stop is called or ctx is
// done.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.status.Running = true

	go p.loop(ctx, p.done)
	p.log.Info("poller started", "interval", p.interval)
	return nil
}

// Stop ends the loop and waits for an in-flight poll to return.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	p.log.Info("poller stopped")
}

// Done is closed when the loop has exited. It is nil before Start.
func (p *Poller) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	defer func() {
		p.mu.Lock()
		p.cancel = nil
		p.status.Running = false
		p.mu.Unlock()
		close(done)
	}()

	for {
		if err := p.Poll(ctx); err != nil && ctx.Err() == nil {
			p.log.Warn("poll failed, keeping current rows", "error", err)
		}

		if !Wait(p.clock, p.interval, ctx.Done()) {
			return
		}
	}
}

// Poll fetches one snapshot and reconciles it. On error nothing is rendered.
func (p *Poller) Poll(ctx context.Context) error {
	p.pollMu.Lock()
	defer p.pollMu.Unlock()

	fetchCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	snapshot, err := p.fetcher.Fetch(fetchCtx)
	if err == nil && snapshot == nil {
		err = core.ErrMalformedSnapshot
	}
	p.record(err)
	if err != nil {
		return err
	}

	p.reconciler.Reconcile(snapshot)
	return nil
}

func (p *Poller) record(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status.Polls++
	p.status.LastPoll = p.clock.Now()
	if err != nil {
		p.status.Failures++
		p.status.LastError = err.Error()
		return
	}
	p.status.LastSuccess = p.status.LastPoll
	p.status.LastError = ""
}

func (p *Poller) Status() PollStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}
