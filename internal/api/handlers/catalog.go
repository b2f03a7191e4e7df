package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/budget-tracker/internal/api/middleware"
	"github.com/dvloznov/budget-tracker/internal/domain"
	"github.com/dvloznov/budget-tracker/internal/report"
	"github.com/dvloznov/budget-tracker/internal/store"
)

// CategoriesHandler handles category-related endpoints.
type CategoriesHandler struct {
	repo store.CategoryRepository
	log  zerolog.Logger
}

// NewCategoriesHandler creates a new categories handler.
func NewCategoriesHandler(repo store.CategoryRepository, log zerolog.Logger) *CategoriesHandler {
	return &CategoriesHandler{
		repo: repo,
		log:  log,
	}
}

// ListCategories handles GET /api/categories
func (h *CategoriesHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	categories, err := h.repo.ListCategories(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list categories")
		return
	}
	if categories == nil {
		categories = []domain.Category{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categories": categories,
		"count":      len(categories),
	})
}

// TransactionsHandler handles transaction-related endpoints.
type TransactionsHandler struct {
	repo store.TransactionRepository
	log  zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(repo store.TransactionRepository, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{
		repo: repo,
		log:  log,
	}
}

// ListTransactions handles GET /api/transactions?start_date&end_date. Both
// bounds are optional and inclusive.
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	var filter domain.TransactionFilter
	var err error

	if s := query.Get("start_date"); s != "" {
		if filter.From, err = civil.ParseDate(s); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid start_date format")
			return
		}
	}
	if s := query.Get("end_date"); s != "" {
		if filter.To, err = civil.ParseDate(s); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid end_date format")
			return
		}
	}
	if filter.From.IsValid() && filter.To.IsValid() && filter.To.Before(filter.From) {
		middleware.WriteError(w, http.StatusBadRequest, "end_date is before start_date")
		return
	}

	transactions, err := h.repo.ListTransactions(r.Context(), userID, filter)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to query transactions")
		return
	}

	// Return array directly for frontend compatibility
	if transactions == nil {
		transactions = []domain.Transaction{}
	}
	middleware.WriteJSON(w, http.StatusOK, transactions)
}

// GoalsHandler handles budget goal endpoints.
type GoalsHandler struct {
	repo store.GoalRepository
	now  func() time.Time
	log  zerolog.Logger
}

// NewGoalsHandler creates a new goals handler.
func NewGoalsHandler(repo store.GoalRepository, log zerolog.Logger) *GoalsHandler {
	return &GoalsHandler{
		repo: repo,
		now:  time.Now,
		log:  log,
	}
}

// ListGoals handles GET /api/goals?month&year
func (h *GoalsHandler) ListGoals(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	win, err := report.ParseWindow(r.URL.Query().Get("month"), r.URL.Query().Get("year"), h.now())
	if err != nil {
		writeServiceError(w, h.log, err, "Invalid window")
		return
	}

	goals, err := h.repo.ListGoals(r.Context(), userID, win.Month, win.Year)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list goals")
		return
	}
	if goals == nil {
		goals = []domain.BudgetGoal{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"window": win,
		"goals":  goals,
		"count":  len(goals),
	})
}

type goalBody struct {
	CategoryID   string          `json:"category_id"`
	Month        int             `json:"month"`
	Year         int             `json:"year"`
	MonthlyLimit decimal.Decimal `json:"monthly_limit"`
}

// UpsertGoal handles PUT /api/goals
func (h *GoalsHandler) UpsertGoal(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var body goalBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	goal := domain.BudgetGoal{
		UserID:       userID,
		CategoryID:   body.CategoryID,
		Month:        time.Month(body.Month),
		Year:         body.Year,
		MonthlyLimit: body.MonthlyLimit,
	}
	if err := goal.Validate(); err != nil {
		writeServiceError(w, h.log, err, "Invalid goal")
		return
	}

	if err := h.repo.UpsertGoal(r.Context(), goal); err != nil {
		writeServiceError(w, h.log, fmt.Errorf("UpsertGoal: %w", err), "Failed to save goal")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, goal)
}
