package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/dvloznov/budget-tracker/internal/config"
	"github.com/dvloznov/budget-tracker/internal/domain"
	"github.com/dvloznov/budget-tracker/internal/infra/memory"
	"github.com/dvloznov/budget-tracker/internal/pipeline"
)

func TestOpenStore_Memory(t *testing.T) {
	repo, err := OpenStore(context.Background(), &config.Config{StoreBackend: config.BackendMemory})
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	if _, ok := repo.(*memory.Store); !ok {
		t.Errorf("OpenStore() = %T, want *memory.Store", repo)
	}
}

func TestOpenStore_UnknownBackend(t *testing.T) {
	if _, err := OpenStore(context.Background(), &config.Config{StoreBackend: "sqlite"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestNew_MemoryWithoutOptionalParts(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, &config.Config{StoreBackend: config.BackendMemory})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	if a.Bucket != nil {
		t.Error("Bucket should be nil without GCS_BUCKET")
	}

	summary, err := a.Ingestor.Ingest(ctx, pipeline.IngestRequest{
		UserID:  "u1",
		Content: "date,description,amount\n2024-03-01,Padaria,-12.50\n",
		Mode:    domain.ModeInferred,
	})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if summary.ProcessedCount != 1 || summary.BySource[domain.SourceFallback] != 1 {
		t.Errorf("summary = %+v, want one fallback transaction", summary)
	}
}

func TestNew_FallbackCategoriesFromEnvironment(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("FALLBACK_CATEGORIES", "missing,outros")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "none.env"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	ctx := context.Background()
	a, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	summary, err := a.Ingestor.Ingest(ctx, pipeline.IngestRequest{
		UserID:  "u1",
		Content: "date,description,amount,category\n2024-03-01,Padaria,-12.50,Unknown\n",
		Mode:    domain.ModeLabeled,
	})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if summary.ProcessedCount != 1 || summary.BySource[domain.SourceFallback] != 1 {
		t.Fatalf("summary = %+v, want one fallback transaction", summary)
	}

	txs, err := a.Repo.ListTransactions(ctx, "u1", domain.TransactionFilter{})
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(txs) != 1 || txs[0].CategoryID != "outros" {
		t.Errorf("transactions = %+v, want one in outros", txs)
	}
}
