package api

import "github.com/soaringjerry/synap-insights/internal/services"

// Store is everything the router needs from persistence. The in-memory
// store and db.SQLiteStore both implement it.
type Store interface {
	services.CatalogStore
	services.DistributionStore
	services.ResponseStore
	services.AnalyticsStore
	Close() error
}

var _ Store = (*memoryStore)(nil)
