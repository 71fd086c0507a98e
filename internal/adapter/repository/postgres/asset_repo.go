package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/coinrank/coinrank-backend/internal/domain"
)

// assetRepository implements domain.AssetRepository
type assetRepository struct {
	db *DB
}

// NewAssetRepository creates a new asset repository
func NewAssetRepository(db *DB) domain.AssetRepository {
	return &assetRepository{db: db}
}

// GetBySymbol retrieves an asset by its symbol
func (r *assetRepository) GetBySymbol(ctx context.Context, symbol string) (*domain.Asset, error) {
	query := `
		SELECT symbol, name, feed_id, decimals, is_active
		FROM assets
		WHERE symbol = $1
	`
	var asset domain.Asset
	err := r.db.QueryRowContext(ctx, query, symbol).Scan(
		&asset.Symbol,
		&asset.Name,
		&asset.FeedID,
		&asset.Decimals,
		&asset.IsActive,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("asset %s not found: %w", symbol, err)
		}
		return nil, fmt.Errorf("failed to get asset %s: %w", symbol, err)
	}
	return &asset, nil
}

// Create creates a new asset
func (r *assetRepository) Create(ctx context.Context, asset *domain.Asset) error {
	query := `
		INSERT INTO assets (symbol, name, feed_id, decimals, is_active)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query,
		asset.Symbol,
		asset.Name,
		asset.FeedID,
		asset.Decimals,
		asset.IsActive,
	)
	if err != nil {
		return fmt.Errorf("failed to insert asset %s: %w", asset.Symbol, err)
	}
	return nil
}

// ListActive retrieves all active assets that carry a feed ID
func (r *assetRepository) ListActive(ctx context.Context) ([]*domain.Asset, error) {
	query := `
		SELECT symbol, name, feed_id, decimals, is_active
		FROM assets
		WHERE is_active = TRUE AND feed_id <> ''
		ORDER BY symbol
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active assets: %w", err)
	}
	defer rows.Close()

	assets := make([]*domain.Asset, 0)
	for rows.Next() {
		var asset domain.Asset
		if err := rows.Scan(&asset.Symbol, &asset.Name, &asset.FeedID, &asset.Decimals, &asset.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, &asset)
	}
	return assets, rows.Err()
}
