package handler

import (
	"time"

	reconcileapp "github.com/fincore/backend/internal/application/reconciliation"
	"github.com/fincore/backend/internal/domain/ledger"
	"github.com/fincore/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReconcileHandler handles reconciliation related HTTP requests
type ReconcileHandler struct {
	BaseHandler
	reconcileService *reconcileapp.ReconcileService
	windowDays       int
}

// NewReconcileHandler creates a new ReconcileHandler. windowDays is the
// default lookback when a request does not name a window.
func NewReconcileHandler(reconcileService *reconcileapp.ReconcileService, windowDays int) *ReconcileHandler {
	if windowDays <= 0 {
		windowDays = 90
	}
	return &ReconcileHandler{reconcileService: reconcileService, windowDays: windowDays}
}

// Reconcile runs one matching pass over a date window. When the readiness
// gate is closed the response carries model_ready=false and a reason instead
// of links.
func (h *ReconcileHandler) Reconcile(c *gin.Context) {
	ctx := c.Request.Context()

	userID, err := getUserID(c)
	if err != nil {
		h.BadRequest(c, "Invalid user ID")
		return
	}

	var req dto.ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	var window ledger.Window
	if req.StartDate == "" && req.EndDate == "" {
		now := time.Now().UTC()
		window = ledger.Window{Start: now.AddDate(0, 0, -h.windowDays), End: now}
	} else {
		window, err = parseWindow(req.StartDate, req.EndDate)
		if err != nil {
			h.BadRequest(c, err.Error())
			return
		}
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

	result, err := h.reconcileService.ReconcileWindow(ctx, userID, window, walletID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewReconcileResponse(result))
}

// ManualLink records a user-confirmed link between transactions and an
// installment
func (h *ReconcileHandler) ManualLink(c *gin.Context) {
	ctx := c.Request.Context()

	userID, err := getUserID(c)
	if err != nil {
		h.BadRequest(c, "Invalid user ID")
		return
	}

	var req dto.ManualLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	txnIDs := make([]uuid.UUID, len(req.TransactionIDs))
	for i, idStr := range req.TransactionIDs {
		id, err := uuid.Parse(idStr)
		if err != nil {
			h.BadRequest(c, "Invalid transaction ID: "+idStr)
			return
		}
		txnIDs[i] = id
	}
	saleID, err := uuid.Parse(req.SaleID)
	if err != nil {
		h.BadRequest(c, "Invalid sale ID")
		return
	}
	installmentID, err := uuid.Parse(req.InstallmentID)
	if err != nil {
		h.BadRequest(c, "Invalid installment ID")
		return
	}

	link, err := h.reconcileService.ManualLink(ctx, userID, txnIDs, saleID, installmentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.NewLinkResponse(link))
}

// RegisterRoutes registers all reconciliation routes
func (h *ReconcileHandler) RegisterRoutes(rg *gin.RouterGroup) {
	reconciliations := rg.Group("/reconciliations")
	{
		reconciliations.POST("", h.Reconcile)
		reconciliations.POST("/links", h.ManualLink)
	}
}
