// Package api wires the HTTP handlers and middleware into one handler.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/budget-tracker/internal/api/handlers"
	"github.com/dvloznov/budget-tracker/internal/api/middleware"
)

// Handlers groups the endpoint handlers served by the router.
type Handlers struct {
	Ingest       *handlers.IngestHandler
	Jobs         *handlers.JobsHandler
	Categories   *handlers.CategoriesHandler
	Transactions *handlers.TransactionsHandler
	Goals        *handlers.GoalsHandler
	Reports      *handlers.ReportsHandler
}

// NewRouter registers every route and wraps them in the middleware chain.
// tokens maps bearer tokens to user IDs.
func NewRouter(h Handlers, tokens map[string]string, log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	// Ingest endpoints
	mux.HandleFunc("/api/ingest", only(http.MethodPost, h.Ingest.Ingest))
	mux.HandleFunc("/api/ingest/jobs", only(http.MethodPost, h.Ingest.EnqueueIngest))

	// Jobs endpoints
	mux.HandleFunc("/api/jobs", only(http.MethodGet, h.Jobs.ListJobs))
	mux.HandleFunc("/api/jobs/", only(http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
		if jobID == "" || strings.Contains(jobID, "/") {
			middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
			return
		}
		h.Jobs.GetJob(w, r, jobID)
	}))

	// Catalog endpoints
	mux.HandleFunc("/api/categories", only(http.MethodGet, h.Categories.ListCategories))
	mux.HandleFunc("/api/transactions", only(http.MethodGet, h.Transactions.ListTransactions))
	mux.HandleFunc("/api/goals", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.Goals.ListGoals(w, r)
		case http.MethodPut:
			h.Goals.UpsertGoal(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Report endpoints
	mux.HandleFunc("/api/reports/budget", only(http.MethodGet, h.Reports.Budget))
	mux.HandleFunc("/api/reports/overall", only(http.MethodGet, h.Reports.Overall))
	mux.HandleFunc("/api/reports/categories", only(http.MethodGet, h.Reports.Categories))

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	return middleware.Recovery(log)(
		middleware.RequestID(
			middleware.Logger(log)(
				middleware.CORS(
					middleware.Auth(tokens, "/health")(mux),
				),
			),
		),
	)
}

func only(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h(w, r)
	}
}
