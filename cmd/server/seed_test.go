package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/soaringjerry/synap-insights/internal/api"
	"github.com/soaringjerry/synap-insights/internal/services"
	"github.com/soaringjerry/synap-insights/pkg/logger"
)

const catalogYAML = `sets:
  - id: WB
    name: Wellbeing
    questions:
      - {id: Q1, category: Mood, text: Sleep, type: scale_5, order: 1}
      - {id: Q2, category: Work, text: Load, type: single_choice, options: [Low, High], order: 2}
`

func TestSeedCatalogFirstRunOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(catalogYAML), 0o600); err != nil {
		t.Fatal(err)
	}
	store := api.NewMemoryStore()
	catalog := services.NewCatalogService(store)
	ctx := context.Background()

	if err := seedCatalog(ctx, catalog, path, logger.Nop()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	qs, err := store.ListQuestions(ctx, "WB")
	if err != nil || len(qs) != 2 {
		t.Fatalf("questions = %v, %v", qs, err)
	}
	// second run leaves the store alone
	if err := seedCatalog(ctx, catalog, path, logger.Nop()); err != nil {
		t.Fatalf("reseed: %v", err)
	}
	if n, _ := store.CountQuestionSets(ctx); n != 1 {
		t.Fatalf("sets = %d", n)
	}
}

func TestSeedCatalogMissingFile(t *testing.T) {
	store := api.NewMemoryStore()
	err := seedCatalog(context.Background(), services.NewCatalogService(store), filepath.Join(t.TempDir(), "none.yaml"), logger.Nop())
	if err != nil {
		t.Fatalf("missing catalogue should be skipped, got %v", err)
	}
}

func TestSeedCatalogInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("sets:\n  - id: X\n    questions:\n      - {id: A, type: single_choice}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	store := api.NewMemoryStore()
	if err := seedCatalog(context.Background(), services.NewCatalogService(store), path, logger.Nop()); err == nil {
		t.Fatalf("expected validation error")
	}
}
