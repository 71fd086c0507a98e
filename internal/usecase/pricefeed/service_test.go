package pricefeed

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/coinrank/coinrank-backend/internal/domain"
)

// MockAssetRepository is a mock implementation of AssetRepository for testing
type MockAssetRepository struct {
	mock.Mock
}

func (m *MockAssetRepository) GetBySymbol(ctx context.Context, symbol string) (*domain.Asset, error) {
	args := m.Called(ctx, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Asset), args.Error(1)
}

func (m *MockAssetRepository) Create(ctx context.Context, asset *domain.Asset) error {
	args := m.Called(ctx, asset)
	return args.Error(0)
}

func (m *MockAssetRepository) ListActive(ctx context.Context) ([]*domain.Asset, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Asset), args.Error(1)
}

// MockPriceRepository is a mock implementation of PriceRepository for testing
type MockPriceRepository struct {
	mock.Mock
}

func (m *MockPriceRepository) Append(ctx context.Context, observations []*domain.PriceObservation) error {
	args := m.Called(ctx, observations)
	return args.Error(0)
}

func (m *MockPriceRepository) LatestBySymbol(ctx context.Context) (map[string]decimal.Decimal, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]decimal.Decimal), args.Error(1)
}

// MockClient is a mock implementation of the feed Client for testing
type MockClient struct {
	mock.Mock
}

func (m *MockClient) SimplePrices(ctx context.Context, feedIDs []string) (map[string]decimal.Decimal, error) {
	args := m.Called(ctx, feedIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]decimal.Decimal), args.Error(1)
}

func activeAssets() []*domain.Asset {
	return []*domain.Asset{
		{Symbol: "BTC", Name: "Bitcoin", FeedID: "bitcoin", Decimals: 8, IsActive: true},
		{Symbol: "ETH", Name: "Ethereum", FeedID: "ethereum", Decimals: 18, IsActive: true},
	}
}

func TestRun_AppendsObservationsForReturnedPrices(t *testing.T) {
	ctx := context.Background()
	assetRepo := new(MockAssetRepository)
	priceRepo := new(MockPriceRepository)
	client := new(MockClient)
	service := NewService(assetRepo, priceRepo, client, "coingecko")

	assetRepo.On("ListActive", ctx).Return(activeAssets(), nil)
	client.On("SimplePrices", ctx, []string{"bitcoin", "ethereum"}).Return(map[string]decimal.Decimal{
		"bitcoin":  decimal.NewFromInt(50000),
		"ethereum": decimal.NewFromInt(3000),
	}, nil)
	priceRepo.On("Append", ctx, mock.MatchedBy(func(obs []*domain.PriceObservation) bool {
		return len(obs) == 2 && obs[0].Symbol == "BTC" && obs[0].Source == "coingecko"
	})).Return(nil)

	n, err := service.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRun_MissingFeedPriceIsSkipped(t *testing.T) {
	ctx := context.Background()
	assetRepo := new(MockAssetRepository)
	priceRepo := new(MockPriceRepository)
	client := new(MockClient)
	service := NewService(assetRepo, priceRepo, client, "coingecko")

	assetRepo.On("ListActive", ctx).Return(activeAssets(), nil)
	client.On("SimplePrices", ctx, mock.Anything).Return(map[string]decimal.Decimal{
		"bitcoin": decimal.NewFromInt(50000),
	}, nil)
	priceRepo.On("Append", ctx, mock.MatchedBy(func(obs []*domain.PriceObservation) bool {
		return len(obs) == 1 && obs[0].Symbol == "BTC"
	})).Return(nil)

	n, err := service.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRun_FeedFailureAbortsBeforeAnyWrite(t *testing.T) {
	ctx := context.Background()
	assetRepo := new(MockAssetRepository)
	priceRepo := new(MockPriceRepository)
	client := new(MockClient)
	service := NewService(assetRepo, priceRepo, client, "coingecko")

	assetRepo.On("ListActive", ctx).Return(activeAssets(), nil)
	client.On("SimplePrices", ctx, mock.Anything).Return(nil, errors.New("feed unreachable"))

	n, err := service.Run(ctx)
	require.Error(t, err)
	assert.Equal(t, 0, n)
	priceRepo.AssertNotCalled(t, "Append")
}

func TestRun_NonPositivePriceIsDiscarded(t *testing.T) {
	ctx := context.Background()
	assetRepo := new(MockAssetRepository)
	priceRepo := new(MockPriceRepository)
	client := new(MockClient)
	service := NewService(assetRepo, priceRepo, client, "coingecko")

	assetRepo.On("ListActive", ctx).Return(activeAssets(), nil)
	client.On("SimplePrices", ctx, mock.Anything).Return(map[string]decimal.Decimal{
		"bitcoin":  decimal.Zero,
		"ethereum": decimal.NewFromInt(3000),
	}, nil)
	priceRepo.On("Append", ctx, mock.MatchedBy(func(obs []*domain.PriceObservation) bool {
		return len(obs) == 1 && obs[0].Symbol == "ETH"
	})).Return(nil)

	n, err := service.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRun_NoActiveAssetsIsNoOp(t *testing.T) {
	ctx := context.Background()
	assetRepo := new(MockAssetRepository)
	priceRepo := new(MockPriceRepository)
	client := new(MockClient)
	service := NewService(assetRepo, priceRepo, client, "coingecko")

	assetRepo.On("ListActive", ctx).Return([]*domain.Asset{}, nil)

	n, err := service.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	client.AssertNotCalled(t, "SimplePrices")
}
