package api

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	"github.com/orrn/queueview/internal/api/handlers"
	"github.com/orrn/queueview/internal/api/middleware"
	"github.com/orrn/queueview/internal/config"
	"github.com/orrn/queueview/internal/core"
	"github.com/orrn/queueview/internal/db"
	"github.com/orrn/queueview/internal/viewer"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

const shutdownTimeout = 5 * time.Second

type Options struct {
	Config *config.Config
	DB     *db.DB
	// Board is the poller of the configured endpoint. Nil when the viewer is
	// disabled.
	Board  *viewer.Board
	Boards *viewer.Boards
	Logger *slog.Logger
}

type Server struct {
	engine *gin.Engine
	http   *http.Server
	db     *db.DB
	log    *slog.Logger
}

func NewServer(opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	cfg := opts.Config

	auth, err := middleware.NewAuthMiddleware(middleware.AuthConfig{
		AdminPasswordHash: cfg.Auth.AdminPasswordHash,
		JWTSecret:         cfg.Auth.JWTSecret,
		TokenDuration:     cfg.Auth.TokenDuration,
	}, opts.Logger)
	if err != nil {
		return nil, err
	}

	tmpl, err := template.New("").ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestid.New(), middleware.RequestLogger(opts.Logger))
	engine.SetHTMLTemplate(tmpl)

	if cfg.Server.StaticDir != "" {
		engine.Static("/static", cfg.Server.StaticDir)
	} else {
		static, err := fs.Sub(staticFS, "static")
		if err != nil {
			return nil, fmt.Errorf("failed to open static files: %w", err)
		}
		engine.StaticFS("/static", http.FS(static))
	}

	s := &Server{
		engine: engine,
		db:     opts.DB,
		log:    opts.Logger.With("component", "server"),
	}

	engine.GET("/healthz", s.health)

	api := engine.Group("/api")
	api.POST("/login", auth.LoginHandler)
	api.POST("/logout", auth.LogoutHandler)
	api.GET("/auth/status", auth.StatusHandler)

	protected := api.Group("")
	protected.Use(auth.RequireAuth())

	handlers.RegisterJobRoutes(api, protected, handlers.NewJobHandler(opts.DB, opts.Logger))
	handlers.RegisterPrinterRoutes(api, protected, handlers.NewPrinterHandler(opts.DB, opts.Logger))

	handlers.RegisterWebUIRoutes(engine, handlers.NewWebUIHandler(opts.DB, handlers.WebUIOptions{
		Publish:  publishOptions(cfg),
		Order:    viewer.Order(cfg.Viewer.Order),
		Boards:   opts.Boards,
		Board:    opts.Board,
		Endpoint: cfg.Viewer.Endpoint,
		Logger:   opts.Logger,
	}))

	s.http = &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s, nil
}

func publishOptions(cfg *config.Config) core.PublishOptions {
	return core.PublishOptions{
		CompletedCount: cfg.Publish.CompletedCount,
		TitleLength:    cfg.Publish.TitleLength,
	}
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) health(c *gin.Context) {
	if err := s.db.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Run serves until ctx is done and then shuts the server down.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}
