package domain

import "errors"

// Asset represents a priceable asset in the registry.
// Only active assets with a feed ID are refreshed by the price sync job.
type Asset struct {
	Symbol   string
	Name     string
	FeedID   string // identifier on the external price feed (e.g. coingecko id); empty when not priceable
	Decimals int
	IsActive bool
}

// Validate ensures the asset adheres to domain rules
func (a *Asset) Validate() error {
	if a.Symbol == "" {
		return errors.New("asset symbol cannot be empty")
	}
	if a.Decimals < 0 {
		return errors.New("asset decimals cannot be negative")
	}
	return nil
}
