package viewer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/orrn/queueview/internal/core"
)

type BoardConfig struct {
	Interval     time.Duration
	FadeDuration time.Duration
	FetchTimeout time.Duration
	Order        Order
	Clock        Clock
	Logger       *slog.Logger
	// Loading, when set, drives the table's loading bar.
	Loading *LoadingBar
}

// Board is a table together with the reconciler and poller that feed it.
type Board struct {
	Table      *Table
	Reconciler *Reconciler
	Poller     *Poller

	unwatch func()
}

func NewBoard(fetcher Fetcher, cfg BoardConfig) *Board {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	table := NewTable(TableConfig{
		Clock:        cfg.Clock,
		FadeDuration: cfg.FadeDuration,
		Order:        cfg.Order,
		Logger:       cfg.Logger,
	})
	reconciler := NewReconciler(table, cfg.Logger)
	poller := NewPoller(fetcher, reconciler, PollerConfig{
		Interval:     cfg.Interval,
		FetchTimeout: cfg.FetchTimeout,
		Clock:        cfg.Clock,
		Logger:       cfg.Logger,
	})

	b := &Board{Table: table, Reconciler: reconciler, Poller: poller}
	if cfg.Loading != nil {
		table.SetLoading(cfg.Loading.Visible())
		b.unwatch = cfg.Loading.OnChange(table.SetLoading)
	}
	return b
}

func (b *Board) Start(ctx context.Context) error {
	return b.Poller.Start(ctx)
}

func (b *Board) Stop() {
	b.Poller.Stop()
	if b.unwatch != nil {
		b.unwatch()
		b.unwatch = nil
	}
}

// Boards hands out one store-backed board per queue and stops it when the
// last user releases it.
type Boards struct {
	store core.QueueStore
	opts  core.PublishOptions
	cfg   BoardConfig
	log   *slog.Logger

	mu     sync.Mutex
	boards map[string]*sharedBoard
}

type sharedBoard struct {
	board *Board
	refs  int
}

func NewBoards(store core.QueueStore, opts core.PublishOptions, cfg BoardConfig) *Boards {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Boards{
		store:  store,
		opts:   opts,
		cfg:    cfg,
		log:    cfg.Logger.With("component", "boards"),
		boards: make(map[string]*sharedBoard),
	}
}

// Acquire returns the board of queue, starting it on first use. A new board
// has already been polled once and settled, so its first reset shows the
// store's rows. The release func must be called exactly once.
func (r *Boards) Acquire(queue string) (*Board, func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	shared, ok := r.boards[queue]
	if !ok {
		fetcher := &StoreFetcher{Store: r.store, Queue: queue, Options: r.opts, Loading: r.cfg.Loading}
		cfg := r.cfg
		cfg.Logger = r.cfg.Logger.With("queue", queue)
		board := NewBoard(fetcher, cfg)
		if err := board.Poller.Poll(context.Background()); err != nil {
			r.log.Warn("first poll failed", "queue", queue, "error", err)
		}
		board.Table.Settle()
		if err := board.Start(context.Background()); err != nil {
			board.Stop()
			return nil, nil, fmt.Errorf("failed to start board %s: %w", queue, err)
		}
		shared = &sharedBoard{board: board}
		r.boards[queue] = shared
		r.log.Info("board started", "queue", queue)
	}
	shared.refs++

	var once sync.Once
	release := func() {
		once.Do(func() { r.release(queue, shared) })
	}
	return shared.board, release, nil
}

func (r *Boards) release(queue string, shared *sharedBoard) {
	r.mu.Lock()
	shared.refs--
	last := shared.refs == 0 && r.boards[queue] == shared
	if last {
		delete(r.boards, queue)
	}
	r.mu.Unlock()

	if last {
		shared.board.Stop()
		r.log.Info("board stopped", "queue", queue)
	}
}

func (r *Boards) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.boards)
}

// Close stops every board regardless of outstanding references.
func (r *Boards) Close() {
	r.mu.Lock()
	boards := r.boards
	r.boards = make(map[string]*sharedBoard)
	r.mu.Unlock()

	for _, shared := range boards {
		shared.board.Stop()
	}
}
