package handlers

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orrn/queueview/internal/core"
	"github.com/orrn/queueview/internal/db"
	"github.com/orrn/queueview/internal/viewer"
)

type IndexData struct {
	Title  string
	Queues []string
}

type QueuePageData struct {
	Title  string
	Queue  string
	Names  []string
	Table  template.HTML
	WSPath string
}

type BoardPageData struct {
	Title    string
	Endpoint string
	Table    template.HTML
	WSPath   string
	Status   viewer.PollStatus
}

type WebUIHandler struct {
	db       *db.DB
	opts     core.PublishOptions
	order    viewer.Order
	boards   *viewer.Boards
	board    *viewer.Board
	endpoint string
	log      *slog.Logger
}

type WebUIOptions struct {
	Publish core.PublishOptions
	Order   viewer.Order
	// Boards serves the live queue pages.
	Boards *viewer.Boards
	// Board is the process's own poller. Nil when the viewer is disabled.
	Board    *viewer.Board
	Endpoint string
	Logger   *slog.Logger
}

func NewWebUIHandler(database *db.DB, opts WebUIOptions) *WebUIHandler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &WebUIHandler{
		db:       database,
		opts:     opts.Publish,
		order:    opts.Order,
		boards:   opts.Boards,
		board:    opts.Board,
		endpoint: opts.Endpoint,
		log:      opts.Logger.With("component", "webui"),
	}
}

func (h *WebUIHandler) Index(c *gin.Context) {
	names, err := h.db.Classes.QueueNames(c.Request.Context())
	if err != nil {
		h.log.Error("failed to list queues", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list queues"})
		return
	}

	c.HTML(http.StatusOK, "index", IndexData{Title: "Print queues", Queues: names})
}

func (h *WebUIHandler) loadSnapshot(c *gin.Context) (*core.PrintQueue, *core.Snapshot, bool) {
	name := core.BaseQueueName(c.Param("name"))
	q, err := core.LoadPrintQueue(c.Request.Context(), h.db, name)
	if err != nil {
		h.log.Error("failed to load queue", "queue", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load queue"})
		return nil, nil, false
	}
	return q, q.Snapshot(h.opts), true
}

// QueuePage renders the current state of a queue. The page then follows the
// queue's live board over a websocket.
func (h *WebUIHandler) QueuePage(c *gin.Context) {
	q, snapshot, ok := h.loadSnapshot(c)
	if !ok {
		return
	}

	table := viewer.NewTable(viewer.TableConfig{Order: h.order, Logger: h.log})
	viewer.NewReconciler(table, h.log).Reconcile(snapshot)

	html, err := table.HTML()
	if err != nil {
		h.log.Error("failed to render queue", "queue", q.Name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render queue"})
		return
	}

	c.HTML(http.StatusOK, "queue", QueuePageData{
		Title:  q.Name,
		Queue:  q.Name,
		Names:  q.Names,
		Table:  html,
		WSPath: "/printqueue/" + q.Name + "/ws",
	})
}

// QueueJSON answers with the {jobs, status} snapshot.
func (h *WebUIHandler) QueueJSON(c *gin.Context) {
	_, snapshot, ok := h.loadSnapshot(c)
	if !ok {
		return
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, snapshot)
}

// LegacyJSON answers with the bare job array older pages expect.
func (h *WebUIHandler) LegacyJSON(c *gin.Context) {
	_, snapshot, ok := h.loadSnapshot(c)
	if !ok {
		return
	}
	snapshot.Legacy = true
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, snapshot)
}

func (h *WebUIHandler) QueueSocket(c *gin.Context) {
	if h.boards == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "live boards are disabled"})
		return
	}

	name := core.BaseQueueName(c.Param("name"))
	board, release, err := h.boards.Acquire(name)
	if err != nil {
		h.log.Error("failed to acquire board", "queue", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start board"})
		return
	}
	defer release()

	streamTable(c, board.Table, h.log.With("queue", name))
}

func (h *WebUIHandler) BoardPage(c *gin.Context) {
	if h.board == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "viewer is disabled"})
		return
	}

	html, err := h.board.Table.HTML()
	if err != nil {
		h.log.Error("failed to render board", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render board"})
		return
	}

	c.HTML(http.StatusOK, "board", BoardPageData{
		Title:    "Board",
		Endpoint: h.endpoint,
		Table:    html,
		WSPath:   "/board/ws",
		Status:   h.board.Poller.Status(),
	})
}

func (h *WebUIHandler) BoardSocket(c *gin.Context) {
	if h.board == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "viewer is disabled"})
		return
	}
	streamTable(c, h.board.Table, h.log)
}

func (h *WebUIHandler) BoardStatus(c *gin.Context) {
	if h.board == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "viewer is disabled"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"endpoint":  h.endpoint,
		"poller":    h.board.Poller.Status(),
		"displayed": h.board.Reconciler.Displayed(),
	})
}

func RegisterWebUIRoutes(router *gin.Engine, handler *WebUIHandler) {
	router.GET("/", handler.Index)
	router.GET("/printqueue/:name/", handler.QueuePage)
	router.GET("/printqueue/:name/json/", handler.QueueJSON)
	router.GET("/printqueue/:name/ws", handler.QueueSocket)
	router.GET("/jsonqueue/:name/", handler.LegacyJSON)
	router.GET("/board/", handler.BoardPage)
	router.GET("/board/ws", handler.BoardSocket)
	router.GET("/board/status", handler.BoardStatus)
}
