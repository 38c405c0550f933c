package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	handler "ledger-reconciliation-backend/internal/handlers"
	service "ledger-reconciliation-backend/internal/services/reconciliation"
)

func RegisterRoutes(r *gin.Engine, reconService *service.ReconciliationService) {
	reconHandler := handler.NewReconciliationHandler(reconService)

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api.GET("/runs/:runId", reconHandler.GetRun)

	scopes := api.Group("/scopes/:scope")

	// Reconciliation routes
	recon := scopes.Group("/reconciliation")
	recon.POST("/run", reconHandler.RunReconciliation)
	recon.DELETE("", reconHandler.ResetScope)
	recon.GET("/comparisons", reconHandler.ListComparisons)
	recon.GET("/runs", reconHandler.ListRuns)
	recon.GET("/audit", reconHandler.ListAudit)

	// Ledger routes
	scopes.POST("/bank-transactions", reconHandler.IngestBankTransactions)
	scopes.GET("/bank-transactions", reconHandler.ListBankTransactions)
	scopes.POST("/customer-transactions", reconHandler.IngestCustomerTransactions)
	scopes.GET("/customer-transactions", reconHandler.ListCustomerTransactions)
	scopes.DELETE("/ledgers/:side", reconHandler.ClearLedger)
}
