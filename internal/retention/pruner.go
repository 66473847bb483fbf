package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/orrn/queueview/internal/viewer"
)

// JobPruner deletes finished jobs older than a number of days.
type JobPruner interface {
	PruneFinished(ctx context.Context, days int) (int64, error)
}

type Config struct {
	Days     int
	Interval time.Duration
	Clock    viewer.Clock
	Logger   *slog.Logger
}

// Pruner keeps the job table from growing without bound by dropping finished
// jobs once per interval.
type Pruner struct {
	jobs     JobPruner
	days     int
	interval time.Duration
	clock    viewer.Clock
	log      *slog.Logger

	mu     sync.Mutex
	stopCh chan struct{}
	done   chan struct{}
	last   time.Time
	total  int64
}

func NewPruner(jobs JobPruner, cfg Config) (*Pruner, error) {
	if cfg.Days <= 0 {
		return nil, fmt.Errorf("retention days must be positive, got %d", cfg.Days)
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	if cfg.Clock == nil {
		cfg.Clock = viewer.RealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Pruner{
		jobs:     jobs,
		days:     cfg.Days,
		interval: cfg.Interval,
		clock:    cfg.Clock,
		log:      cfg.Logger.With("component", "retention"),
	}, nil
}

// Start prunes once right away and then every interval until Stop.
func (p *Pruner) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopCh != nil {
		return
	}
	p.stopCh = make(chan struct{})
	p.done = make(chan struct{})
	go p.run(p.stopCh, p.done)
}

func (p *Pruner) Stop() {
	p.mu.Lock()
	stopCh, done := p.stopCh, p.done
	p.stopCh, p.done = nil, nil
	p.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-done
}

func (p *Pruner) run(stopCh, done chan struct{}) {
	defer close(done)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		if _, err := p.RunOnce(ctx); err != nil {
			p.log.Error("prune failed", "error", err)
		}

		if !viewer.Wait(p.clock, p.interval, stopCh) {
			return
		}
	}
}

// RunOnce prunes now and reports how many jobs were dropped.
func (p *Pruner) RunOnce(ctx context.Context) (int64, error) {
	n, err := p.jobs.PruneFinished(ctx, p.days)
	if err != nil {
		return 0, err
	}

	p.mu.Lock()
	p.last = p.clock.Now()
	p.total += n
	p.mu.Unlock()

	if n > 0 {
		p.log.Info("pruned finished jobs", "count", n, "days", p.days)
	}
	return n, nil
}

// Stats reports when the last successful prune ran and how many jobs were
// dropped in total.
func (p *Pruner) Stats() (time.Time, int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last, p.total
}
