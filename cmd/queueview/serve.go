package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/orrn/queueview/internal/api"
	"github.com/orrn/queueview/internal/core"
	"github.com/orrn/queueview/internal/db"
	"github.com/orrn/queueview/internal/retention"
	"github.com/orrn/queueview/internal/viewer"
)

type serveCommand struct {
	Port     int    `short:"p" long:"port" description:"Override server.port"`
	Endpoint string `long:"endpoint" description:"Queue page to follow on the live board; enables the viewer"`
}

func (c *serveCommand) Execute(args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}
	if c.Endpoint != "" {
		cfg.Viewer.Endpoint = c.Endpoint
		cfg.Viewer.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(db.Config{Path: cfg.Database.Path})
	if err != nil {
		return err
	}
	defer database.Close()

	boardCfg := viewer.BoardConfig{
		Interval:     cfg.Viewer.Interval,
		FadeDuration: cfg.Viewer.FadeDuration,
		FetchTimeout: cfg.Viewer.FetchTimeout,
		Order:        viewer.Order(cfg.Viewer.Order),
		Logger:       logger,
		Loading:      viewer.Loading,
	}

	var board *viewer.Board
	if cfg.Viewer.Enabled {
		fetcher, err := viewer.NewHTTPFetcher(cfg.Viewer.Endpoint, nil, nil)
		if err != nil {
			return err
		}
		board = viewer.NewBoard(fetcher, boardCfg)
		if err := board.Start(ctx); err != nil {
			return err
		}
		defer board.Stop()
		logger.Info("live board started", "endpoint", cfg.Viewer.Endpoint, "interval", cfg.Viewer.Interval)
	}

	publish := core.PublishOptions{
		CompletedCount: cfg.Publish.CompletedCount,
		TitleLength:    cfg.Publish.TitleLength,
	}
	boards := viewer.NewBoards(database, publish, boardCfg)
	defer boards.Close()

	if cfg.Retention.Days > 0 {
		pruner, err := retention.NewPruner(database.Jobs, retention.Config{
			Days:     cfg.Retention.Days,
			Interval: cfg.Retention.Interval,
			Logger:   logger,
		})
		if err != nil {
			return err
		}
		pruner.Start()
		defer pruner.Stop()
	}

	server, err := api.NewServer(api.Options{
		Config: cfg,
		DB:     database,
		Board:  board,
		Boards: boards,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	return server.Run(ctx)
}
