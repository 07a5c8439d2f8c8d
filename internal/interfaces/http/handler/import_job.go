package handler

import (
	"time"

	importapp "github.com/fincore/backend/internal/application/importing"
	"github.com/fincore/backend/internal/domain/importing"
	"github.com/fincore/backend/internal/domain/ledger"
	"github.com/fincore/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ImportJobHandler handles import job related HTTP requests
type ImportJobHandler struct {
	BaseHandler
	importService *importapp.ImportService
}

// NewImportJobHandler creates a new ImportJobHandler
func NewImportJobHandler(importService *importapp.ImportService) *ImportJobHandler {
	return &ImportJobHandler{importService: importService}
}

// Create starts a new import job in PENDING state
func (h *ImportJobHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	userID, err := getUserID(c)
	if err != nil {
		h.BadRequest(c, "Invalid user ID")
		return
	}

	var req dto.CreateImportJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	var walletID *uuid.UUID
	if req.WalletID != nil {
		id, err := uuid.Parse(*req.WalletID)
		if err != nil {
			h.BadRequest(c, "Invalid wallet ID")
			return
		}
		walletID = &id
	}

	job, err := h.importService.CreateJob(ctx, userID, importing.ImportSource(req.Source), walletID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.NewImportJobResponse(job))
}

// Run executes a pending job over a date range. The request blocks until the
// job reaches a terminal status.
func (h *ImportJobHandler) Run(c *gin.Context) {
	ctx := c.Request.Context()

	userID, err := getUserID(c)
	if err != nil {
		h.BadRequest(c, "Invalid user ID")
		return
	}
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid job ID")
		return
	}

	var req dto.RunImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	window, err := parseWindow(req.StartDate, req.EndDate)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	job, err := h.importService.Run(ctx, userID, jobID, window)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewImportJobResponse(job))
}

// Get returns a single job including its derived progress
func (h *ImportJobHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	userID, err := getUserID(c)
	if err != nil {
		h.BadRequest(c, "Invalid user ID")
		return
	}
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid job ID")
		return
	}

	job, err := h.importService.GetJob(ctx, userID, jobID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewImportJobResponse(job))
}

// List returns the user's jobs with pagination and filtering
func (h *ImportJobHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	userID, err := getUserID(c)
	if err != nil {
		h.BadRequest(c, "Invalid user ID")
		return
	}

	var req dto.ImportJobListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid request parameters: "+err.Error())
		return
	}
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 20
	}

	filter := importing.JobFilter{}
	if req.Source != "" {
		source := importing.ImportSource(req.Source)
		filter.Source = &source
	}
	if req.Status != "" {
		status := importing.JobStatus(req.Status)
		filter.Status = &status
	}
	if req.StartedFrom != "" {
		if t, err := time.Parse("2006-01-02", req.StartedFrom); err == nil {
			filter.StartedFrom = &t
		}
	}
	if req.StartedTo != "" {
		if t, err := time.Parse("2006-01-02", req.StartedTo); err == nil {
			endOfDay := t.Add(24*time.Hour - time.Second)
			filter.StartedTo = &endOfDay
		}
	}

	result, err := h.importService.ListJobs(ctx, userID, filter, req.Page, req.PageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, dto.NewImportJobListResponse(result), result.TotalCount, result.Page, result.PageSize)
}

// UpdateStatus applies an externally requested status transition.
// CANCELLED on a running job stops it between items.
func (h *ImportJobHandler) UpdateStatus(c *gin.Context) {
	ctx := c.Request.Context()

	userID, err := getUserID(c)
	if err != nil {
		h.BadRequest(c, "Invalid user ID")
		return
	}
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid job ID")
		return
	}

	var req dto.UpdateJobStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	job, err := h.importService.UpdateJobStatus(ctx, userID, jobID, importing.JobStatus(req.Status))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewImportJobResponse(job))
}

// RegisterRoutes registers all import job routes
func (h *ImportJobHandler) RegisterRoutes(rg *gin.RouterGroup) {
	imports := rg.Group("/imports")
	{
		imports.POST("", h.Create)
		imports.GET("", h.List)
		imports.GET("/:id", h.Get)
		imports.POST("/:id/run", h.Run)
		imports.PATCH("/:id/status", h.UpdateStatus)
	}
}

// parseWindow builds an inclusive date window, end date extended to end of day
func parseWindow(startDate, endDate string) (ledger.Window, error) {
	start, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return ledger.Window{}, err
	}
	end, err := time.Parse("2006-01-02", endDate)
	if err != nil {
		return ledger.Window{}, err
	}
	return ledger.Window{Start: start, End: end.Add(24*time.Hour - time.Second)}, nil
}
