package router

import (
	"net/http"

	"github.com/Anushre2005/swiftbid/internal/handlers"
)

func InitRoutes(rfpHandler *handlers.RfpHandler, workflowHandler *handlers.WorkflowHandler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/ping", handlers.PingHandler)
	mux.HandleFunc("/api/rfps", rfpHandler.GetRfps)
	mux.HandleFunc("/api/dashboard", rfpHandler.GetDashboard)
	mux.HandleFunc("/api/dashboard/summary", rfpHandler.GetSummary)
	mux.HandleFunc("GET /api/rfps/{rfpId}", rfpHandler.GetRfp)
	mux.HandleFunc("GET /api/rfps/{rfpId}/status", rfpHandler.GetRfpStatus)

	mux.HandleFunc("POST /api/rfps/{rfpId}/change-requests/new", workflowHandler.SubmitChangeRequest)
	mux.HandleFunc("GET /api/rfps/{rfpId}/change-requests", workflowHandler.GetChangeRequests)
	mux.HandleFunc("PUT /api/rfps/{rfpId}/change-requests/{requestId}/revise", workflowHandler.MarkRevised)
	mux.HandleFunc("PUT /api/rfps/{rfpId}/change-requests/approve", workflowHandler.ApproveRevision)
	mux.HandleFunc("POST /api/rfps/{rfpId}/advance", workflowHandler.ApproveAndAdvance)
	mux.HandleFunc("GET /api/rfps/{rfpId}/revision", workflowHandler.GetRevisionStatus)
	mux.HandleFunc("GET /api/rfps/{rfpId}/comments/{track}", workflowHandler.GetComments)
	mux.HandleFunc("POST /api/rfps/{rfpId}/comments/{track}", workflowHandler.AddComment)

	return mux
}
