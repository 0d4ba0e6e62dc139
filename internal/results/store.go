package results

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/L1nMay/portscanner-console/internal/logger"
	"github.com/L1nMay/portscanner-console/internal/model"
)

// Source is the read side of the scan server API.
type Source interface {
	Stats(ctx context.Context) (model.Stats, error)
	Results(ctx context.Context) ([]model.Finding, error)
	Scans(ctx context.Context) ([]model.ScanRun, error)
}

type Snapshot struct {
	Stats     model.Stats
	Findings  []model.Finding
	Runs      []model.ScanRun
	FetchedAt time.Time
}

// Store keeps the last complete snapshot. A snapshot is only ever replaced
// as a whole.
type Store struct {
	src Source
	now func() time.Time

	mu   sync.RWMutex
	snap Snapshot
	ok   bool
}

func NewStore(src Source) *Store {
	return &Store{src: src, now: time.Now}
}

// Snapshot returns the current snapshot and whether one was ever fetched.
func (s *Store) Snapshot() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap, s.ok
}

// Refresh fetches stats, findings and runs. On any error the previous
// snapshot is kept.
func (s *Store) Refresh(ctx context.Context) error {
	stats, err := s.src.Stats(ctx)
	if err != nil {
		return fmt.Errorf("fetch stats: %w", err)
	}
	findings, err := s.src.Results(ctx)
	if err != nil {
		return fmt.Errorf("fetch results: %w", err)
	}
	runs, err := s.src.Scans(ctx)
	if err != nil {
		return fmt.Errorf("fetch scans: %w", err)
	}

	s.mu.Lock()
	s.snap = Snapshot{
		Stats:     stats,
		Findings:  findings,
		Runs:      runs,
		FetchedAt: s.now(),
	}
	s.ok = true
	s.mu.Unlock()

	logger.Debugf("snapshot refreshed: %d findings, %d runs", len(findings), len(runs))
	return nil
}

// View applies q to the current snapshot.
func (s *Store) View(q Query, pageSize int) Page {
	snap, _ := s.Snapshot()
	return Apply(snap.Findings, q.Normalize(Services(snap.Findings)), pageSize)
}
