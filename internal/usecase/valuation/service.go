package valuation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coinrank/coinrank-backend/internal/domain"
	"github.com/coinrank/coinrank-backend/internal/logger"
	"github.com/coinrank/coinrank-backend/internal/metrics"
)

// lookback is how far behind a prior snapshot must be to anchor the
// trailing percentage change.
const lookback = 24 * time.Hour

// Service is the valuation engine: it joins current holdings against the
// latest price per symbol and writes one consistent valuation snapshot
// per user, all inside a single store transaction. Valuations are never
// partially applied across users.
type Service struct {
	ValuationRepo domain.ValuationRepository
}

// NewService creates a new valuation Service instance
func NewService(valuationRepo domain.ValuationRepository) *Service {
	return &Service{ValuationRepo: valuationRepo}
}

// Run computes and persists a valuation for every user with at least one
// holding. Symbols without any price observation contribute zero to the
// total; that is policy, not an error. Returns the number of users
// valued.
func (s *Service) Run(ctx context.Context) (int, error) {
	computedAt := time.Now().UTC()
	valued := 0

	err := s.ValuationRepo.InTx(ctx, func(store domain.ValuationStore) error {
		holdings, err := store.HoldingsForAllUsers(ctx)
		if err != nil {
			return fmt.Errorf("failed to read holdings: %w", err)
		}
		if len(holdings) == 0 {
			return nil
		}

		prices, err := store.LatestPrices(ctx)
		if err != nil {
			return fmt.Errorf("failed to read latest prices: %w", err)
		}

		totals := totalsByUser(holdings, prices)

		priors, err := store.PriorTotals(ctx, computedAt.Add(-lookback))
		if err != nil {
			return fmt.Errorf("failed to read prior snapshots: %w", err)
		}

		snapshots := make([]*domain.ValuationSnapshot, 0, len(totals))
		for _, userID := range sortedUserIDs(totals) {
			snap := &domain.ValuationSnapshot{
				ID:         uuid.New(),
				UserID:     userID,
				TotalValue: totals[userID],
				ComputedAt: computedAt,
			}
			if prior, ok := priors[userID]; ok {
				snap.PctChange24h = domain.PctChange24h(snap.TotalValue, prior)
			}
			snapshots = append(snapshots, snap)
		}

		if err := store.AppendSnapshots(ctx, snapshots); err != nil {
			return fmt.Errorf("failed to append valuation snapshots: %w", err)
		}
		if err := store.UpsertLatest(ctx, snapshots); err != nil {
			return fmt.Errorf("failed to upsert latest valuations: %w", err)
		}

		valued = len(snapshots)
		return nil
	})
	if err != nil {
		metrics.ValuationRuns.WithLabelValues("failure").Inc()
		return 0, err
	}

	metrics.ValuationRuns.WithLabelValues("success").Inc()
	logger.L.Info("valuation run finished", "users", valued, "computedAt", computedAt)
	return valued, nil
}

// LatestForUser returns the current valuation of one user.
func (s *Service) LatestForUser(ctx context.Context, userID uuid.UUID) (*domain.ValuationSnapshot, error) {
	return s.ValuationRepo.LatestForUser(ctx, userID)
}

// totalsByUser folds holdings into per-user totals using the given price
// view. Every user in the result has at least one holding row, even when
// all of its symbols are unpriced.
func totalsByUser(holdings []*domain.Holding, prices map[string]decimal.Decimal) map[uuid.UUID]decimal.Decimal {
	totals := make(map[uuid.UUID]decimal.Decimal)
	for _, h := range holdings {
		if _, ok := totals[h.UserID]; !ok {
			totals[h.UserID] = decimal.Zero
		}
		if h.TotalAmount.IsNegative() {
			// Oversell should be impossible upstream; worth investigating
			// but not a reason to fail the run.
			logger.L.Warn("negative holding total",
				"userID", h.UserID, "symbol", h.Symbol, "amount", h.TotalAmount)
		}
		price, ok := prices[h.Symbol]
		if !ok {
			continue // no observation yet: contributes zero
		}
		totals[h.UserID] = totals[h.UserID].Add(h.TotalAmount.Mul(price))
	}
	return totals
}

// sortedUserIDs gives the run a deterministic write order.
func sortedUserIDs(totals map[uuid.UUID]decimal.Decimal) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(totals))
	for id := range totals {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}
