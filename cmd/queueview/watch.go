package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/orrn/queueview/internal/viewer"
)

type watchCommand struct {
	Interval time.Duration `short:"i" long:"interval" description:"Override viewer.interval"`
	Order    string        `long:"order" choice:"ascending" choice:"newest_first" description:"Override viewer.order"`

	Args struct {
		Endpoint string `positional-arg-name:"endpoint" description:"Queue page URL, e.g. http://spool:9090/printqueue/hanna/"`
	} `positional-args:"yes"`
}

func (c *watchCommand) Execute(args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	endpoint := c.Args.Endpoint
	if endpoint == "" {
		endpoint = cfg.Viewer.Endpoint
	}
	if endpoint == "" {
		return errors.New("no endpoint given and viewer.endpoint is not set")
	}
	if c.Interval > 0 {
		cfg.Viewer.Interval = c.Interval
	}
	if c.Order != "" {
		cfg.Viewer.Order = c.Order
	}

	fetcher, err := viewer.NewHTTPFetcher(endpoint, nil, nil)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The terminal has no transitions to show.
	board := viewer.NewBoard(fetcher, viewer.BoardConfig{
		Interval:     cfg.Viewer.Interval,
		FetchTimeout: cfg.Viewer.FetchTimeout,
		Order:        viewer.Order(cfg.Viewer.Order),
		Logger:       logger,
	})

	_, changes, cancel := board.Table.Subscribe()
	defer cancel()

	lines := viewer.NewLineView(os.Stdout)
	printed := make(chan error, 1)
	go func() { printed <- lines.Run(ctx, changes) }()

	if err := board.Start(ctx); err != nil {
		return err
	}
	defer board.Stop()
	logger.Info("watching", "url", fetcher.URL())

	select {
	case <-ctx.Done():
		return nil
	case err := <-printed:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("failed to print changes: %w", err)
		}
		return nil
	}
}
