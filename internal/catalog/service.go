package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Skotchmaster/storefront/internal/metrics"
	"github.com/Skotchmaster/storefront/internal/models"
)

// ErrEmptyCatalog is returned when the store answers with no games while a
// previous catalog is held. The previous copy is kept.
var ErrEmptyCatalog = errors.New("store returned an empty catalog")

type Source interface {
	GetCatalog(ctx context.Context) ([]models.Game, error)
}

type Cache interface {
	ReplaceCatalog(ctx context.Context, games []models.Game) error
	LoadCatalog(ctx context.Context) ([]models.Game, time.Time, bool, error)
}

// CatalogService holds the read-only cached copy of the remote catalog and
// refreshes it wholesale.
type CatalogService struct {
	Source  Source
	Cache   Cache
	Deriver *Deriver
	Metrics *metrics.Metrics
	Log     *slog.Logger

	mu        sync.RWMutex
	games     []models.Game
	fetchedAt time.Time
	stale     bool
}

// Refresh fetches the catalog and replaces the local copy. When the fetch
// fails the last cached catalog is loaded instead and the fetch error is
// returned.
func (s *CatalogService) Refresh(ctx context.Context) error {
	l := s.logger().With("op", "catalog.refresh")

	games, err := s.Source.GetCatalog(ctx)
	if err != nil {
		l.Error("catalog_fetch_failed", "error", err)
		if loadErr := s.loadCached(ctx); loadErr != nil {
			l.Warn("catalog_cache_load_failed", "error", loadErr)
		}
		return fmt.Errorf("fetch catalog: %w", err)
	}
	if len(games) == 0 && s.keepPrevious(ctx, l) {
		l.Warn("catalog_empty_response", "kept", len(s.Games()))
		return fmt.Errorf("fetch catalog: %w", ErrEmptyCatalog)
	}

	s.mu.Lock()
	s.games = games
	s.fetchedAt = time.Now().UTC()
	s.stale = false
	s.mu.Unlock()
	s.Metrics.SetCatalogSize(len(games))

	if s.Cache != nil {
		if err := s.Cache.ReplaceCatalog(ctx, games); err != nil {
			l.Warn("catalog_cache_store_failed", "error", err)
		}
	}

	l.Info("catalog refreshed", "games", len(games))
	return nil
}

// LoadCached seeds the in-memory copy from the cache, for startup before the
// first fetch completes.
func (s *CatalogService) LoadCached(ctx context.Context) error {
	return s.loadCached(ctx)
}

func (s *CatalogService) loadCached(ctx context.Context) error {
	if s.Cache == nil {
		return nil
	}
	games, at, ok, err := s.Cache.LoadCatalog(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	s.mu.Lock()
	s.games = games
	s.fetchedAt = at
	s.stale = true
	s.mu.Unlock()
	s.Metrics.SetCatalogSize(len(games))
	return nil
}

// keepPrevious marks the current copy stale and reports true when one is
// held, loading it from the cache first if memory is empty.
func (s *CatalogService) keepPrevious(ctx context.Context, l *slog.Logger) bool {
	s.mu.Lock()
	held := len(s.games) > 0
	if held {
		s.stale = true
	}
	s.mu.Unlock()
	if held {
		return true
	}

	if err := s.loadCached(ctx); err != nil {
		l.Warn("catalog_cache_load_failed", "error", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.games) > 0
}

// Games returns a copy of the current catalog.
func (s *CatalogService) Games() []models.Game {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Game, len(s.games))
	copy(out, s.games)
	return out
}

// Stale reports whether the current copy came from the cache rather than a
// successful fetch.
func (s *CatalogService) Stale() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stale
}

func (s *CatalogService) FetchedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetchedAt
}

func (s *CatalogService) Sections() Sections {
	return s.deriver().DeriveSections(s.Games())
}

func (s *CatalogService) Project(p ViewParameters) []models.Game {
	return s.deriver().Project(s.Games(), p)
}

func (s *CatalogService) deriver() *Deriver {
	if s.Deriver == nil {
		return &Deriver{}
	}
	return s.Deriver
}

func (s *CatalogService) logger() *slog.Logger {
	if s.Log == nil {
		return slog.Default()
	}
	return s.Log
}
