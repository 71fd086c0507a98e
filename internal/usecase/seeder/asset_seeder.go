package seeder

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/coinrank/coinrank-backend/internal/domain"
	"github.com/coinrank/coinrank-backend/internal/logger"
)

// SeedAsset is one entry of the asset registry seed file
type SeedAsset struct {
	Symbol   string `yaml:"symbol"`
	Name     string `yaml:"name"`
	FeedID   string `yaml:"feed_id"`
	Decimals int    `yaml:"decimals"`
}

type seedFile struct {
	Assets []SeedAsset `yaml:"assets"`
}

// AssetSeeder ensures the asset registry contains the configured assets
type AssetSeeder struct {
	repo domain.AssetRepository
}

// NewAssetSeeder creates a new AssetSeeder instance
func NewAssetSeeder(repo domain.AssetRepository) *AssetSeeder {
	return &AssetSeeder{repo: repo}
}

// SeedFromFile loads the YAML registry file and seeds every asset in it.
func (s *AssetSeeder) SeedFromFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read asset seed file: %w", err)
	}
	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse asset seed file: %w", err)
	}
	return s.Seed(ctx, file.Assets)
}

// Seed ensures all given assets exist in the registry.
// Assets already present are left untouched.
func (s *AssetSeeder) Seed(ctx context.Context, seeds []SeedAsset) error {
	for _, seed := range seeds {
		if _, err := s.repo.GetBySymbol(ctx, seed.Symbol); err == nil {
			continue // asset exists, no action needed
		}

		asset := &domain.Asset{
			Symbol:   seed.Symbol,
			Name:     seed.Name,
			FeedID:   seed.FeedID,
			Decimals: seed.Decimals,
			IsActive: true,
		}
		if err := asset.Validate(); err != nil {
			return fmt.Errorf("invalid seed asset %q: %w", seed.Symbol, err)
		}
		if err := s.repo.Create(ctx, asset); err != nil {
			return fmt.Errorf("failed to create asset %q: %w", seed.Symbol, err)
		}
		logger.L.Info("seeded asset", "symbol", asset.Symbol, "feedID", asset.FeedID)
	}
	return nil
}
