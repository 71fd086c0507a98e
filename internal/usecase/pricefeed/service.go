package pricefeed

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coinrank/coinrank-backend/internal/domain"
	"github.com/coinrank/coinrank-backend/internal/logger"
	"github.com/coinrank/coinrank-backend/internal/metrics"
)

// Client fetches the current USD price for a set of feed IDs in one
// call. Implementations talk to an external feed; a returned error means
// nothing usable arrived.
type Client interface {
	SimplePrices(ctx context.Context, feedIDs []string) (map[string]decimal.Decimal, error)
}

// Service syncs prices for all active registry assets. The feed being
// unreachable aborts the run before any write — prior observations stay
// untouched. Delivery is best-effort: assets missing from the feed
// response are skipped, not errors.
type Service struct {
	AssetRepo domain.AssetRepository
	PriceRepo domain.PriceRepository
	Client    Client
	Source    string
}

// NewService creates a new price feed Service instance
func NewService(assetRepo domain.AssetRepository, priceRepo domain.PriceRepository, client Client, source string) *Service {
	return &Service{
		AssetRepo: assetRepo,
		PriceRepo: priceRepo,
		Client:    client,
		Source:    source,
	}
}

// Run fetches prices for all active assets and appends one observation
// per returned price, all within a single store transaction.
// Returns the number of observations written.
func (s *Service) Run(ctx context.Context) (int, error) {
	assets, err := s.AssetRepo.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list active assets: %w", err)
	}
	if len(assets) == 0 {
		logger.L.Info("no active assets to price")
		return 0, nil
	}

	feedIDs := make([]string, 0, len(assets))
	for _, a := range assets {
		feedIDs = append(feedIDs, a.FeedID)
	}

	prices, err := s.Client.SimplePrices(ctx, feedIDs)
	if err != nil {
		// Fail closed: no partial price application.
		return 0, fmt.Errorf("price feed fetch failed: %w", err)
	}

	observedAt := time.Now().UTC()
	observations := make([]*domain.PriceObservation, 0, len(assets))
	for _, a := range assets {
		price, ok := prices[a.FeedID]
		if !ok {
			logger.L.Warn("feed returned no price for asset", "symbol", a.Symbol, "feedID", a.FeedID)
			continue
		}
		obs := &domain.PriceObservation{
			ID:         uuid.New(),
			Symbol:     a.Symbol,
			Price:      price,
			Source:     s.Source,
			ObservedAt: observedAt,
		}
		if err := obs.Validate(); err != nil {
			logger.L.Warn("discarding invalid feed price", "symbol", a.Symbol, "price", price, "error", err)
			continue
		}
		observations = append(observations, obs)
	}

	if len(observations) == 0 {
		return 0, nil
	}
	if err := s.PriceRepo.Append(ctx, observations); err != nil {
		return 0, fmt.Errorf("failed to append price observations: %w", err)
	}

	metrics.PriceObservations.Add(float64(len(observations)))
	logger.L.Info("price sync finished", "assets", len(assets), "observations", len(observations))
	return len(observations), nil
}
