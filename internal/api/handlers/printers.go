package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/orrn/queueview/internal/core"
	"github.com/orrn/queueview/internal/db"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type UpdatePrinterRequest struct {
	State string `json:"state" binding:"required"`
}

type PrinterResponse struct {
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ClassRequest struct {
	Members []string `json:"members"`
}

type ClassResponse struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

type PrinterHandler struct {
	db  *db.DB
	log *slog.Logger
}

func NewPrinterHandler(database *db.DB, logger *slog.Logger) *PrinterHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PrinterHandler{
		db:  database,
		log: logger.With("component", "printers"),
	}
}

func (h *PrinterHandler) ListPrinters(c *gin.Context) {
	printers, err := h.db.Printers.ListPrinters(c.Request.Context())
	if err != nil {
		h.log.Error("failed to list printers", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "database_error",
			Message: "Failed to retrieve printers",
		})
		return
	}

	responses := make([]PrinterResponse, 0, len(printers))
	for _, p := range printers {
		responses = append(responses, printerToResponse(p))
	}

	c.JSON(http.StatusOK, responses)
}

func (h *PrinterHandler) GetPrinter(c *gin.Context) {
	printer, err := h.db.Printers.GetPrinterByName(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.printerError(c, err, "Failed to retrieve printer")
		return
	}

	c.JSON(http.StatusOK, printerToResponse(printer))
}

// PutPrinter records the state the spooler reports for a printer.
func (h *PrinterHandler) PutPrinter(c *gin.Context) {
	name := c.Param("name")

	var req UpdatePrinterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	state, ok := core.ParsePrinterState(req.State)
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: fmt.Sprintf("Unknown printer state %q", req.State),
		})
		return
	}

	if err := h.db.Printers.UpsertPrinter(c.Request.Context(), name, state); err != nil {
		h.log.Error("failed to store printer", "printer", name, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "database_error",
			Message: "Failed to store printer",
		})
		return
	}

	printer, err := h.db.Printers.GetPrinterByName(c.Request.Context(), name)
	if err != nil {
		h.printerError(c, err, "Failed to retrieve printer")
		return
	}

	c.JSON(http.StatusOK, printerToResponse(printer))
}

func (h *PrinterHandler) DeletePrinter(c *gin.Context) {
	if err := h.db.Printers.DeletePrinter(c.Request.Context(), c.Param("name")); err != nil {
		h.printerError(c, err, "Failed to delete printer")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *PrinterHandler) GetClass(c *gin.Context) {
	name := c.Param("name")
	members, err := h.db.Classes.Members(c.Request.Context(), name)
	if err != nil {
		h.log.Error("failed to load class", "class", name, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "database_error",
			Message: "Failed to retrieve class",
		})
		return
	}
	if members == nil {
		members = []string{}
	}

	c.JSON(http.StatusOK, ClassResponse{Name: name, Members: members})
}

// PutClass replaces the member list of a class. An empty list removes it.
func (h *PrinterHandler) PutClass(c *gin.Context) {
	name := c.Param("name")

	var req ClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	if err := h.db.Classes.SetMembers(c.Request.Context(), name, req.Members); err != nil {
		h.log.Error("failed to store class", "class", name, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "database_error",
			Message: "Failed to store class",
		})
		return
	}

	h.GetClass(c)
}

func (h *PrinterHandler) printerError(c *gin.Context, err error, message string) {
	if errors.Is(err, db.ErrPrinterNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Printer not found",
		})
		return
	}
	h.log.Error(message, "error", err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   "database_error",
		Message: message,
	})
}

func printerToResponse(p *core.Printer) PrinterResponse {
	return PrinterResponse{
		Name:      p.Name,
		Status:    p.State.String(),
		UpdatedAt: p.UpdatedAt,
	}
}

func RegisterPrinterRoutes(public, protected *gin.RouterGroup, handler *PrinterHandler) {
	public.GET("/printers", handler.ListPrinters)
	public.GET("/printers/:name", handler.GetPrinter)
	public.GET("/classes/:name", handler.GetClass)

	protected.PUT("/printers/:name", handler.PutPrinter)
	protected.DELETE("/printers/:name", handler.DeletePrinter)
	protected.PUT("/classes/:name", handler.PutClass)
}
