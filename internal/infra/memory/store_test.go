package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/budget-tracker/internal/domain"
	"github.com/shopspring/decimal"
)

func TestNewStore_DefaultCategories(t *testing.T) {
	s := NewStore()

	cats, err := s.ListCategories(context.Background())
	if err != nil {
		t.Fatalf("ListCategories failed: %v", err)
	}
	if len(cats) != len(DefaultCategories) {
		t.Fatalf("got %d categories, want %d", len(cats), len(DefaultCategories))
	}
	if cats[0].Name != "Alimentação" {
		t.Errorf("first category = %s, want sorted by name", cats[0].Name)
	}

	found := false
	for _, c := range cats {
		if c.Name == "Outros" {
			found = true
		}
	}
	if !found {
		t.Error("default categories lack the Outros fallback")
	}
}

func TestStore_Transactions(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	day := func(d int) civil.Date { return civil.Date{Year: 2024, Month: time.March, Day: d} }
	for i, tx := range []domain.Transaction{
		{ID: "t3", UserID: "u1", CategoryID: "outros", Date: day(20), Amount: decimal.NewFromInt(-3)},
		{ID: "t1", UserID: "u1", CategoryID: "outros", Date: day(1), Amount: decimal.NewFromInt(-1)},
		{ID: "t2", UserID: "u2", CategoryID: "outros", Date: day(5), Amount: decimal.NewFromInt(-2)},
	} {
		if err := s.InsertTransaction(ctx, &tx); err != nil {
			t.Fatalf("InsertTransaction %d failed: %v", i, err)
		}
	}

	all, err := s.ListTransactions(ctx, "u1", domain.TransactionFilter{})
	if err != nil {
		t.Fatalf("ListTransactions failed: %v", err)
	}
	if len(all) != 2 || all[0].ID != "t1" || all[1].ID != "t3" {
		t.Errorf("ListTransactions = %+v, want t1, t3", all)
	}

	early, err := s.ListTransactions(ctx, "u1", domain.TransactionFilter{From: day(1), To: day(10)})
	if err != nil {
		t.Fatalf("ListTransactions failed: %v", err)
	}
	if len(early) != 1 || early[0].ID != "t1" {
		t.Errorf("filtered = %+v, want t1", early)
	}

	if err := s.InsertTransaction(ctx, &domain.Transaction{ID: "t4"}); err == nil {
		t.Error("InsertTransaction accepted a transaction without a category")
	}
}

func TestStore_UpsertGoal(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	g := domain.BudgetGoal{UserID: "u1", CategoryID: "lazer", Month: time.March, Year: 2024, MonthlyLimit: decimal.NewFromInt(100)}
	if err := s.UpsertGoal(ctx, g); err != nil {
		t.Fatalf("UpsertGoal failed: %v", err)
	}
	g.MonthlyLimit = decimal.NewFromInt(250)
	if err := s.UpsertGoal(ctx, g); err != nil {
		t.Fatalf("UpsertGoal failed: %v", err)
	}

	goals, err := s.ListGoals(ctx, "u1", time.March, 2024)
	if err != nil {
		t.Fatalf("ListGoals failed: %v", err)
	}
	if len(goals) != 1 || !goals[0].MonthlyLimit.Equal(decimal.NewFromInt(250)) {
		t.Errorf("goals = %+v, want one goal of 250", goals)
	}

	if other, _ := s.ListGoals(ctx, "u1", time.April, 2024); len(other) != 0 {
		t.Errorf("April goals = %+v, want none", other)
	}

	bad := g
	bad.MonthlyLimit = decimal.NewFromInt(-1)
	if err := s.UpsertGoal(ctx, bad); !errors.Is(err, domain.ErrMalformedInput) {
		t.Errorf("UpsertGoal(negative) error = %v, want ErrMalformedInput", err)
	}
}

func TestStore_Uploads(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	if _, err := s.FindUploadByChecksum(ctx, "u1", "abc"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("FindUploadByChecksum on empty store error = %v, want ErrNotFound", err)
	}

	for _, id := range []string{"up1", "up2"} {
		if err := s.InsertUpload(ctx, &domain.Upload{ID: id, UserID: "u1", ChecksumSHA256: "abc", Status: domain.UploadRunning}); err != nil {
			t.Fatalf("InsertUpload %s failed: %v", id, err)
		}
	}
	if err := s.InsertUpload(ctx, &domain.Upload{ID: "up1"}); err == nil {
		t.Error("InsertUpload accepted a duplicate ID")
	}

	latest, err := s.FindUploadByChecksum(ctx, "u1", "abc")
	if err != nil {
		t.Fatalf("FindUploadByChecksum failed: %v", err)
	}
	if latest.ID != "up2" {
		t.Errorf("FindUploadByChecksum = %s, want most recent up2", latest.ID)
	}

	latest.Status = domain.UploadSucceeded
	if err := s.FinishUpload(ctx, latest); err != nil {
		t.Fatalf("FinishUpload failed: %v", err)
	}
	again, _ := s.FindUploadByChecksum(ctx, "u1", "abc")
	if again.Status != domain.UploadSucceeded {
		t.Errorf("status = %s, want succeeded", again.Status)
	}

	if err := s.FinishUpload(ctx, &domain.Upload{ID: "missing"}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("FinishUpload(missing) error = %v, want ErrNotFound", err)
	}
}

func TestStore_ConcurrentInserts(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tx := &domain.Transaction{ID: string(rune('a' + i%26)), UserID: "u1", CategoryID: "outros"}
			_ = s.InsertTransaction(ctx, tx)
		}(i)
	}
	wg.Wait()

	txs, _ := s.ListTransactions(ctx, "u1", domain.TransactionFilter{})
	if len(txs) != 50 {
		t.Errorf("got %d transactions, want 50", len(txs))
	}
}

func TestStore_RespectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewStore().ListCategories(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("ListCategories error = %v, want context.Canceled", err)
	}
}
