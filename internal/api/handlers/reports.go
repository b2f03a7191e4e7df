package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/budget-tracker/internal/api/middleware"
	"github.com/dvloznov/budget-tracker/internal/report"
)

// Reports produces the budget report rows.
type Reports interface {
	CategoryBudgets(ctx context.Context, userID string, w report.Window) ([]report.BudgetRow, error)
	Overall(ctx context.Context, userID string, w report.Window) (report.OverallRow, error)
	CategoryTotals(ctx context.Context, userID string) ([]report.CategoryTotal, error)
}

// ReportsHandler handles the /api/reports endpoints.
type ReportsHandler struct {
	reports Reports
	now     func() time.Time
	log     zerolog.Logger
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(reports Reports, log zerolog.Logger) *ReportsHandler {
	return &ReportsHandler{
		reports: reports,
		now:     time.Now,
		log:     log,
	}
}

func (h *ReportsHandler) window(w http.ResponseWriter, r *http.Request) (report.Window, bool) {
	win, err := report.ParseWindow(r.URL.Query().Get("month"), r.URL.Query().Get("year"), h.now())
	if err != nil {
		writeServiceError(w, h.log, err, "Invalid window")
		return report.Window{}, false
	}
	return win, true
}

// Budget handles GET /api/reports/budget?month&year
func (h *ReportsHandler) Budget(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	win, ok := h.window(w, r)
	if !ok {
		return
	}

	rows, err := h.reports.CategoryBudgets(r.Context(), userID, win)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to build budget report")
		return
	}
	if rows == nil {
		rows = []report.BudgetRow{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"window": win,
		"rows":   rows,
	})
}

// Overall handles GET /api/reports/overall?month&year
func (h *ReportsHandler) Overall(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	win, ok := h.window(w, r)
	if !ok {
		return
	}

	row, err := h.reports.Overall(r.Context(), userID, win)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to build overall report")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, row)
}

// Categories handles GET /api/reports/categories
func (h *ReportsHandler) Categories(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	rows, err := h.reports.CategoryTotals(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to build category report")
		return
	}
	if rows == nil {
		rows = []report.CategoryTotal{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"rows": rows,
	})
}
