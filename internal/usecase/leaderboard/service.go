package leaderboard

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/coinrank/coinrank-backend/internal/domain"
	"github.com/coinrank/coinrank-backend/internal/logger"
	"github.com/coinrank/coinrank-backend/internal/metrics"
)

// Service is the leaderboard ranker: it turns the current valuation per
// user into one immutable, dense-ranked generation of entries, written
// atomically under a single snapshot timestamp.
type Service struct {
	LeaderboardRepo domain.LeaderboardRepository
}

// NewService creates a new leaderboard Service instance
func NewService(leaderboardRepo domain.LeaderboardRepository) *Service {
	return &Service{LeaderboardRepo: leaderboardRepo}
}

// Run produces one ranking generation. An empty valuation set completes
// as a no-op. Returns the number of entries written.
func (s *Service) Run(ctx context.Context) (int, error) {
	snapshotAt := time.Now().UTC()
	written := 0

	err := s.LeaderboardRepo.InTx(ctx, func(store domain.LeaderboardStore) error {
		valuations, err := store.CurrentValuations(ctx)
		if err != nil {
			return fmt.Errorf("failed to read current valuations: %w", err)
		}
		if len(valuations) == 0 {
			return nil
		}

		entries := Rank(valuations, snapshotAt)
		if err := store.AppendEntries(ctx, entries); err != nil {
			return fmt.Errorf("failed to append leaderboard entries: %w", err)
		}
		written = len(entries)
		return nil
	})
	if err != nil {
		metrics.LeaderboardRuns.WithLabelValues("failure").Inc()
		return 0, err
	}

	metrics.LeaderboardRuns.WithLabelValues("success").Inc()
	logger.L.Info("leaderboard run finished", "entries", written, "snapshotAt", snapshotAt)
	return written, nil
}

// Latest returns the most recent ranking generation, ordered by rank.
func (s *Service) Latest(ctx context.Context) ([]*domain.LeaderboardEntry, error) {
	return s.LeaderboardRepo.LatestGeneration(ctx)
}

// Rank assigns dense ranks over total value descending: tied values
// share a rank and the next distinct value gets the previous rank plus
// one. Ties are ordered by user ID so a generation is deterministic.
func Rank(valuations []*domain.ValuationSnapshot, snapshotAt time.Time) []*domain.LeaderboardEntry {
	sorted := make([]*domain.ValuationSnapshot, len(valuations))
	copy(sorted, valuations)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].TotalValue.Equal(sorted[j].TotalValue) {
			return sorted[i].TotalValue.GreaterThan(sorted[j].TotalValue)
		}
		return sorted[i].UserID.String() < sorted[j].UserID.String()
	})

	entries := make([]*domain.LeaderboardEntry, 0, len(sorted))
	rank := 0
	for i, v := range sorted {
		if i == 0 || !v.TotalValue.Equal(sorted[i-1].TotalValue) {
			rank++
		}
		entries = append(entries, &domain.LeaderboardEntry{
			ID:           uuid.New(),
			SnapshotAt:   snapshotAt,
			UserID:       v.UserID,
			Rank:         rank,
			TotalValue:   v.TotalValue,
			PctChange24h: v.PctChange24h,
		})
	}
	return entries
}
