package handler

import (
	"github.com/kredoapp/kredo-backend/internal/middleware"
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up all API routes. Mutating endpoints require an
// X-Actor-ID header identifying the staff member performing the change.
func RegisterRoutes(e *echo.Echo, productHandler *ProductHandler, applicationHandler *ApplicationHandler, loanHandler *LoanHandler, repaymentHandler *RepaymentHandler, wsHandler *WebSocketHandler) {
	requireActor := middleware.RequireActor()

	// API version 1
	api := e.Group("/api/v1")

	// Loan product routes
	products := api.Group("/loan-products")
	products.GET("", productHandler.GetProducts)
	products.GET("/:id", productHandler.GetProduct)
	products.POST("", productHandler.CreateProduct, requireActor)
	products.PUT("/:id", productHandler.UpdateProduct, requireActor)
	products.POST("/:id/preview", loanHandler.Preview)

	// Loan application routes
	applications := api.Group("/loan-applications")
	applications.GET("", applicationHandler.GetApplications)
	applications.GET("/:id", applicationHandler.GetApplication)
	applications.POST("", applicationHandler.CreateApplication, requireActor)
	applications.POST("/:id/approve", applicationHandler.ApproveApplication, requireActor)
	applications.POST("/:id/reject", applicationHandler.RejectApplication, requireActor)
	applications.POST("/:id/disburse", loanHandler.Disburse, requireActor)

	// Loan routes
	loans := api.Group("/loans")
	loans.GET("", loanHandler.GetLoans)
	loans.GET("/:id", loanHandler.GetLoan)
	loans.GET("/:id/schedule", repaymentHandler.GetSchedule)
	loans.GET("/:id/summary", repaymentHandler.GetSummary)
	loans.GET("/:id/arrears", repaymentHandler.GetArrears)
	loans.GET("/:id/transactions", repaymentHandler.GetTransactions)
	loans.POST("/:id/repayments", repaymentHandler.PostRepayment, requireActor)
	loans.POST("/:id/write-off", loanHandler.WriteOff, requireActor)
	loans.POST("/:id/default", loanHandler.MarkDefaulted, requireActor)

	// Transaction lookup by reference
	api.GET("/loan-transactions/:reference", repaymentHandler.GetTransactionByReference)

	// WebSocket endpoint for real-time updates
	e.GET("/ws", wsHandler.HandleWS)
}
