// Package memory is an in-process store backend. Data is lost on restart;
// it backs tests, the CLI and single-instance development servers.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dvloznov/budget-tracker/internal/domain"
	"github.com/dvloznov/budget-tracker/internal/store"
)

// DefaultCategories seeds a new Store when no categories are given.
var DefaultCategories = []domain.Category{
	{ID: "alimentacao", Name: "Alimentação", Type: domain.CategoryExpense, Icon: "🍽️", Color: "#f97316"},
	{ID: "transporte", Name: "Transporte", Type: domain.CategoryExpense, Icon: "🚗", Color: "#3b82f6"},
	{ID: "moradia", Name: "Moradia", Type: domain.CategoryExpense, Icon: "🏠", Color: "#8b5cf6"},
	{ID: "lazer", Name: "Lazer", Type: domain.CategoryExpense, Icon: "🎉", Color: "#ec4899"},
	{ID: "saude", Name: "Saúde", Type: domain.CategoryExpense, Icon: "💊", Color: "#10b981"},
	{ID: "salario", Name: "Salário", Type: domain.CategoryIncome, Icon: "💰", Color: "#22c55e"},
	{ID: "outros", Name: "Outros", Type: domain.CategoryExpense, Icon: "📦", Color: "#6b7280"},
}

type goalKey struct {
	userID     string
	categoryID string
	month      time.Month
	year       int
}

// Store keeps every table in maps guarded by one RWMutex. It is safe for
// concurrent use.
type Store struct {
	mu           sync.RWMutex
	categories   []domain.Category
	transactions []domain.Transaction
	goals        map[goalKey]domain.BudgetGoal
	uploads      map[string]*domain.Upload
	uploadOrder  []string
}

// NewStore creates a store holding categories, or DefaultCategories when
// none are given.
func NewStore(categories ...domain.Category) *Store {
	if len(categories) == 0 {
		categories = DefaultCategories
	}
	cats := append([]domain.Category(nil), categories...)
	sort.SliceStable(cats, func(i, j int) bool {
		return strings.ToLower(cats[i].Name) < strings.ToLower(cats[j].Name)
	})

	return &Store{
		categories: cats,
		goals:      make(map[goalKey]domain.BudgetGoal),
		uploads:    make(map[string]*domain.Upload),
	}
}

// ListCategories implements store.CategoryRepository.
func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Category(nil), s.categories...), nil
}

// InsertTransaction implements store.TransactionRepository.
func (s *Store) InsertTransaction(ctx context.Context, tx *domain.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tx.ID == "" {
		return fmt.Errorf("InsertTransaction: transaction ID is required")
	}
	if tx.CategoryID == "" {
		return fmt.Errorf("InsertTransaction: category ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = append(s.transactions, *tx)
	return nil
}

// ListTransactions implements store.TransactionRepository.
func (s *Store) ListTransactions(ctx context.Context, userID string, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Transaction
	for _, tx := range s.transactions {
		if tx.UserID != userID || !filter.Matches(tx.Date) {
			continue
		}
		result = append(result, tx)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})
	return result, nil
}

// ListGoals implements store.GoalRepository.
func (s *Store) ListGoals(ctx context.Context, userID string, month time.Month, year int) ([]domain.BudgetGoal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.BudgetGoal
	for k, g := range s.goals {
		if k.userID == userID && k.month == month && k.year == year {
			result = append(result, g)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CategoryID < result[j].CategoryID
	})
	return result, nil
}

// UpsertGoal implements store.GoalRepository.
func (s *Store) UpsertGoal(ctx context.Context, goal domain.BudgetGoal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := goal.Validate(); err != nil {
		return fmt.Errorf("UpsertGoal: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.goals[goalKey{goal.UserID, goal.CategoryID, goal.Month, goal.Year}] = goal
	return nil
}

// InsertUpload implements store.UploadRepository.
func (s *Store) InsertUpload(ctx context.Context, u *domain.Upload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if u.ID == "" {
		return fmt.Errorf("InsertUpload: upload ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.uploads[u.ID]; exists {
		return fmt.Errorf("InsertUpload: upload %s already exists", u.ID)
	}
	cp := *u
	s.uploads[u.ID] = &cp
	s.uploadOrder = append(s.uploadOrder, u.ID)
	return nil
}

// FinishUpload implements store.UploadRepository.
func (s *Store) FinishUpload(ctx context.Context, u *domain.Upload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.uploads[u.ID]; !exists {
		return fmt.Errorf("FinishUpload: upload %s: %w", u.ID, domain.ErrNotFound)
	}
	cp := *u
	s.uploads[u.ID] = &cp
	return nil
}

// FindUploadByChecksum implements store.UploadRepository.
func (s *Store) FindUploadByChecksum(ctx context.Context, userID, checksum string) (*domain.Upload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.uploadOrder) - 1; i >= 0; i-- {
		u := s.uploads[s.uploadOrder[i]]
		if u.UserID == userID && u.ChecksumSHA256 == checksum {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

// Close implements store.Repository.
func (s *Store) Close() error {
	return nil
}

// Ensure Store implements store.Repository.
var _ store.Repository = (*Store)(nil)
