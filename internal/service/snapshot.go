package service

import (
	"context"
	"sync"
	"time"

	"github.com/guttosm/foliopulse/internal/domain/models"
	"github.com/guttosm/foliopulse/internal/storage"
)

// SnapshotService exposes snapshot reads. The latest-per-entity lookup is
// cached in memory; the importer invalidates the cache when a session
// completes so readers never see stale "latest" rows after an import.
type SnapshotService interface {
	GetLatest(ctx context.Context, scope models.SnapshotScope, entityKey string) (*models.Snapshot, error)
	List(ctx context.Context, scope models.SnapshotScope, entityKey string, from, to *time.Time) ([]models.Snapshot, error)
	Invalidate(accountID string)
}

type cacheKey struct {
	scope     models.SnapshotScope
	entityKey string
}

type snapshotService struct {
	repo storage.SnapshotRepository

	mu     sync.RWMutex
	latest map[cacheKey]models.Snapshot
}

// NewSnapshotService returns a SnapshotService over the given repository.
func NewSnapshotService(repo storage.SnapshotRepository) SnapshotService {
	return &snapshotService{
		repo:   repo,
		latest: make(map[cacheKey]models.Snapshot),
	}
}

// GetLatest caches by value and returns a fresh copy per call, so a
// caller mutating its result cannot poison later reads.
func (s *snapshotService) GetLatest(_ context.Context, scope models.SnapshotScope, entityKey string) (*models.Snapshot, error) {
	key := cacheKey{scope: scope, entityKey: entityKey}

	s.mu.RLock()
	cached, ok := s.latest[key]
	s.mu.RUnlock()
	if ok {
		out := cached
		return &out, nil
	}

	snap, err := s.repo.GetLatestSnapshot(scope, entityKey)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.latest[key] = *snap
	s.mu.Unlock()

	out := *snap
	return &out, nil
}

func (s *snapshotService) List(_ context.Context, scope models.SnapshotScope, entityKey string, from, to *time.Time) ([]models.Snapshot, error) {
	return s.repo.ListSnapshots(scope, entityKey, from, to)
}

// Invalidate drops every cached latest row. The account argument keeps
// the signature ready for per-account eviction; snapshot entity keys do
// not embed the account id today, so the whole cache goes.
func (s *snapshotService) Invalidate(_ string) {
	s.mu.Lock()
	s.latest = make(map[cacheKey]models.Snapshot)
	s.mu.Unlock()
}
