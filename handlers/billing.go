package handlers

import (
	"errors"
	"net/http"
	"time"

	"nestly/config"
	billingRepo "nestly/database/repository/billing"
	"nestly/services/billing"
	"nestly/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BillingHandler exposes the billing run trigger and run record lookups.
type BillingHandler struct {
	Service billing.BillingService
	Logger  *zap.Logger
}

func NewBillingHandler(svc billing.BillingService, logger *zap.Logger) *BillingHandler {
	return &BillingHandler{Service: svc, Logger: logger}
}

// TriggerRunHandler starts exactly one billing run and blocks until it reaches
// a terminal state. Query params: dryRun=true rehearses without writes,
// verbose=true raises log verbosity. The coarse success boolean is all the
// caller gets; the persisted run record carries the detail.
func (h *BillingHandler) TriggerRunHandler(c *gin.Context) {
	opts := billing.RunOptions{
		DryRun:  c.Query("dryRun") == "true" || config.AppConfig.BillingDryRun,
		Verbose: c.Query("verbose") == "true",
	}

	run, err := h.Service.RunBilling(c.Request.Context(), opts)
	if err != nil {
		if errors.Is(err, billing.ErrRunInProgress) {
			utils.JSONError(c, http.StatusConflict, "billing run already in progress", "")
			return
		}
		h.Logger.Error("failed to start billing run", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "failed to start billing run", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   run.Succeeded(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"runId":     run.RunID,
		"status":    run.Status,
	})
}

// GetRunHandler returns one billing run record with its failure ledger.
func (h *BillingHandler) GetRunHandler(c *gin.Context) {
	runID := c.Param("runID")
	run, err := h.Service.GetRun(c.Request.Context(), runID)
	if err != nil {
		if errors.Is(err, billingRepo.ErrNotFound) {
			utils.JSONError(c, http.StatusNotFound, "billing run not found", runID)
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, "failed to fetch billing run", err.Error())
		return
	}
	c.JSON(http.StatusOK, run)
}

// LatestRunHandler returns the most recently started billing run.
func (h *BillingHandler) LatestRunHandler(c *gin.Context) {
	run, err := h.Service.LatestRun(c.Request.Context())
	if err != nil {
		if errors.Is(err, billingRepo.ErrNotFound) {
			utils.JSONError(c, http.StatusNotFound, "no billing runs recorded", "")
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, "failed to fetch latest billing run", err.Error())
		return
	}
	c.JSON(http.StatusOK, run)
}
