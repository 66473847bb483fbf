package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/orrn/queueview/internal/core"
	"github.com/orrn/queueview/internal/db"
)

// JobRequest is the ingest form of a spool job. State is the status tag,
// e.g. "pending".
type JobRequest struct {
	Dest             string `json:"dest" binding:"required"`
	Size             int64  `json:"size"`
	State            string `json:"state" binding:"required"`
	Title            string `json:"title"`
	User             string `json:"user"`
	ActualPrinterURI string `json:"actual_printer_uri"`
}

type UpdateJobStateRequest struct {
	State string `json:"state" binding:"required"`
}

type PruneRequest struct {
	Days int `json:"days" binding:"min=0"`
}

type JobResponse struct {
	ID               int64  `json:"id"`
	Dest             string `json:"dest"`
	Size             int64  `json:"size"`
	State            string `json:"state"`
	Title            string `json:"title"`
	User             string `json:"user"`
	ActualPrinterURI string `json:"actual_printer_uri,omitempty"`
	Queue            string `json:"queue"`
	Finisher         string `json:"finisher"`
	Source           string `json:"source"`
}

type JobHandler struct {
	db  *db.DB
	log *slog.Logger
}

func NewJobHandler(database *db.DB, logger *slog.Logger) *JobHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobHandler{
		db:  database,
		log: logger.With("component", "jobs"),
	}
}

func (h *JobHandler) ListJobs(c *gin.Context) {
	jobs, err := h.db.Jobs.ListJobs(c.Request.Context())
	if err != nil {
		h.log.Error("failed to list jobs", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "database_error",
			Message: "Failed to retrieve jobs",
		})
		return
	}

	queue := c.Query("queue")
	responses := make([]JobResponse, 0, len(jobs))
	for _, j := range jobs {
		if queue != "" && core.BaseQueueName(j.Dest) != queue {
			continue
		}
		responses = append(responses, jobToResponse(j))
	}

	c.JSON(http.StatusOK, responses)
}

func (h *JobHandler) GetJob(c *gin.Context) {
	id, err := parseJobID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_id",
			Message: "Invalid job ID",
		})
		return
	}

	job, err := h.db.Jobs.GetJobByID(c.Request.Context(), id)
	if err != nil {
		h.jobError(c, err, "Failed to retrieve job")
		return
	}

	c.JSON(http.StatusOK, jobToResponse(job))
}

// PutJob creates or replaces a job under the id in the path.
func (h *JobHandler) PutJob(c *gin.Context) {
	id, err := parseJobID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_id",
			Message: "Invalid job ID",
		})
		return
	}

	var req JobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	state, ok := core.ParseJobState(req.State)
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: fmt.Sprintf("Unknown job state %q", req.State),
		})
		return
	}

	job := &core.SpoolJob{
		ID:               id,
		Dest:             req.Dest,
		Size:             req.Size,
		State:            state,
		Title:            req.Title,
		User:             req.User,
		ActualPrinterURI: req.ActualPrinterURI,
	}

	if err := h.db.Jobs.UpsertJob(c.Request.Context(), job); err != nil {
		h.log.Error("failed to store job", "job_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "database_error",
			Message: "Failed to store job",
		})
		return
	}

	c.JSON(http.StatusOK, jobToResponse(job))
}

func (h *JobHandler) UpdateJobState(c *gin.Context) {
	id, err := parseJobID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_id",
			Message: "Invalid job ID",
		})
		return
	}

	var req UpdateJobStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	state, ok := core.ParseJobState(req.State)
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: fmt.Sprintf("Unknown job state %q", req.State),
		})
		return
	}

	if err := h.db.Jobs.UpdateJobState(c.Request.Context(), id, state); err != nil {
		h.jobError(c, err, "Failed to update job")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"state":   state.String(),
	})
}

func (h *JobHandler) DeleteJob(c *gin.Context) {
	id, err := parseJobID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_id",
			Message: "Invalid job ID",
		})
		return
	}

	if err := h.db.Jobs.DeleteJob(c.Request.Context(), id); err != nil {
		h.jobError(c, err, "Failed to delete job")
		return
	}

	c.Status(http.StatusNoContent)
}

// PruneJobs drops finished jobs older than the given number of days.
func (h *JobHandler) PruneJobs(c *gin.Context) {
	var req PruneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	n, err := h.db.Jobs.PruneFinished(c.Request.Context(), req.Days)
	if err != nil {
		h.log.Error("failed to prune jobs", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "database_error",
			Message: "Failed to prune jobs",
		})
		return
	}

	h.log.Info("pruned finished jobs", "days", req.Days, "count", n)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"deleted": n,
	})
}

func (h *JobHandler) jobError(c *gin.Context, err error, message string) {
	if errors.Is(err, db.ErrJobNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Job not found",
		})
		return
	}
	h.log.Error(message, "error", err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   "database_error",
		Message: message,
	})
}

func parseJobID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, fmt.Errorf("invalid job ID")
	}
	return id, nil
}

func jobToResponse(j *core.SpoolJob) JobResponse {
	return JobResponse{
		ID:               j.ID,
		Dest:             j.Dest,
		Size:             j.Size,
		State:            j.State.String(),
		Title:            j.Title,
		User:             j.User,
		ActualPrinterURI: j.ActualPrinterURI,
		Queue:            core.BaseQueueName(j.Dest),
		Finisher:         j.Finisher(),
		Source:           j.Source(),
	}
}

func RegisterJobRoutes(public, protected *gin.RouterGroup, handler *JobHandler) {
	public.GET("/jobs", handler.ListJobs)
	public.GET("/jobs/:id", handler.GetJob)

	protected.PUT("/jobs/:id", handler.PutJob)
	protected.PUT("/jobs/:id/state", handler.UpdateJobState)
	protected.DELETE("/jobs/:id", handler.DeleteJob)
	protected.POST("/jobs/prune", handler.PruneJobs)
}
