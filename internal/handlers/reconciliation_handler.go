package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"ledger-reconciliation-backend/internal/apperror"
	"ledger-reconciliation-backend/internal/models"
	service "ledger-reconciliation-backend/internal/services/reconciliation"
	"ledger-reconciliation-backend/internal/services/taxcompare"
)

const (
	defaultPageSize = service.DefaultPageSize
	maxPageSize     = service.MaxPageSize
	performedByKey  = "X-Performed-By"
)

type ReconciliationHandler struct {
	service *service.ReconciliationService
}

func NewReconciliationHandler(s *service.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{service: s}
}

// RunReconciliation recomputes the scope. A run where some match links could
// not be written still returns its report, with 207.
func (h *ReconciliationHandler) RunReconciliation(c *gin.Context) {
	report, err := h.service.RunReconciliation(c.Request.Context(), c.Param("scope"), performedBy(c))
	if err != nil {
		var partial *apperror.PartialApplyError
		if errors.As(err, &partial) {
			c.JSON(http.StatusMultiStatus, gin.H{"report": report, "error": apperror.FromError(err)})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}

func (h *ReconciliationHandler) ResetScope(c *gin.Context) {
	if _, err := h.service.ResetScope(c.Request.Context(), c.Param("scope"), performedBy(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ReconciliationHandler) ListComparisons(c *gin.Context) {
	var status models.ComparisonStatus
	if raw := c.Query("status"); raw != "" && raw != "all" {
		parsed, err := models.ParseComparisonStatus(raw)
		if err != nil {
			respondError(c, apperror.NewAPIError(apperror.ErrCodeInvalidInput, err.Error(), nil))
			return
		}
		status = parsed
	}

	results, err := h.service.ListComparisons(c.Request.Context(), c.Param("scope"), status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items":   results,
		"summary": taxcompare.Summarize(results),
	})
}

func (h *ReconciliationHandler) ListRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	runs, err := h.service.ListRuns(c.Request.Context(), c.Param("scope"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": runs})
}

func (h *ReconciliationHandler) GetRun(c *gin.Context) {
	runID, err := uuid.Parse(c.Param("runId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": apperror.NewAPIError(apperror.ErrCodeInvalidInput, "invalid run ID", nil)})
		return
	}

	run, err := h.service.GetRun(c.Request.Context(), runID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func (h *ReconciliationHandler) ListAudit(c *gin.Context) {
	logs, err := h.service.ListAudit(c.Request.Context(), c.Param("scope"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": logs})
}

func performedBy(c *gin.Context) string {
	if who := c.GetHeader(performedByKey); who != "" {
		return who
	}
	return "api"
}

func pageSize(c *gin.Context) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		return defaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}

// pageCursor reads the optional cursor query parameter. Cursors are
// transaction ids.
func pageCursor(c *gin.Context) (string, bool) {
	cursor := c.Query("cursor")
	if cursor == "" {
		return "", true
	}
	if _, err := uuid.Parse(cursor); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": apperror.NewAPIError(apperror.ErrCodeInvalidInput, "invalid cursor", err.Error())})
		return "", false
	}
	return cursor, true
}

func respondError(c *gin.Context, err error) {
	c.JSON(apperror.MapErrorToHTTPStatus(err), gin.H{"error": apperror.FromError(err)})
}
