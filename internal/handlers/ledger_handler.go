package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ledger-reconciliation-backend/internal/apperror"
	"ledger-reconciliation-backend/internal/models"
)

type bankPayload struct {
	Transactions []models.BankTransaction `json:"transactions"`
}

type customerPayload struct {
	Transactions []models.CustomerTransaction `json:"transactions"`
}

func (h *ReconciliationHandler) IngestBankTransactions(c *gin.Context) {
	var payload bankPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": apperror.NewAPIError(apperror.ErrCodeInvalidInput, "invalid payload", err.Error())})
		return
	}

	result, err := h.service.IngestBankTransactions(c.Request.Context(), c.Param("scope"), payload.Transactions)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *ReconciliationHandler) IngestCustomerTransactions(c *gin.Context) {
	var payload customerPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": apperror.NewAPIError(apperror.ErrCodeInvalidInput, "invalid payload", err.Error())})
		return
	}

	result, err := h.service.IngestCustomerTransactions(c.Request.Context(), c.Param("scope"), payload.Transactions)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *ReconciliationHandler) ListBankTransactions(c *gin.Context) {
	cursor, ok := pageCursor(c)
	if !ok {
		return
	}

	items, nextCursor, hasMore, err := h.service.PageBankTransactions(c.Request.Context(), c.Param("scope"), cursor, pageSize(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items":       items,
		"next_cursor": nextCursor,
		"has_more":    hasMore,
	})
}

// ListCustomerTransactions accepts matched=true|false to filter on the match
// link.
func (h *ReconciliationHandler) ListCustomerTransactions(c *gin.Context) {
	var matched *bool
	switch c.Query("matched") {
	case "true":
		v := true
		matched = &v
	case "false":
		v := false
		matched = &v
	}

	cursor, ok := pageCursor(c)
	if !ok {
		return
	}

	items, nextCursor, hasMore, err := h.service.PageCustomerTransactions(c.Request.Context(), c.Param("scope"), cursor, pageSize(c), matched)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items":       items,
		"next_cursor": nextCursor,
		"has_more":    hasMore,
	})
}

func (h *ReconciliationHandler) ClearLedger(c *gin.Context) {
	removed, err := h.service.ClearLedger(c.Request.Context(), c.Param("scope"), models.LedgerSide(c.Param("side")), performedBy(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":         "ledger cleared",
		"records_removed": removed,
	})
}
