package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/soaringjerry/synap-insights/internal/services"
	"github.com/soaringjerry/synap-insights/pkg/logger"
)

// seedCatalog imports the question catalogue at path on first run, i.e.
// when the store has no question sets yet. A missing file is skipped.
func seedCatalog(ctx context.Context, catalog *services.CatalogService, path string, log logger.Logger) error {
	if path == "" {
		return nil
	}
	c, err := services.LoadCatalog(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Warn(ctx, "seed catalogue not found", logger.String("path", path))
			return nil
		}
		return fmt.Errorf("load catalogue: %w", err)
	}
	n, err := catalog.Seed(ctx, c)
	if err != nil {
		return err
	}
	if n > 0 {
		log.Info(ctx, "first run detected, imported question catalogue", logger.String("path", path), logger.Int("sets", n))
	}
	return nil
}
