package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LeaderboardEntry represents one user's position in a ranking
// generation. All entries of a generation share the same SnapshotAt and
// are written atomically; entries are never mutated or deleted.
//
// Rank is a dense rank over TotalValue descending: ties share a rank and
// the next distinct value's rank is the previous rank plus one.
type LeaderboardEntry struct {
	ID           uuid.UUID
	SnapshotAt   time.Time
	UserID       uuid.UUID
	Rank         int
	TotalValue   decimal.Decimal
	PctChange24h *decimal.Decimal
}
