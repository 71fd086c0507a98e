package domain

import "errors"

// Sentinel errors returned by repositories so callers can map lookup
// misses to their own error surface.
var (
	ErrValuationNotFound = errors.New("valuation not found")
	ErrBatchNotFound     = errors.New("ingest batch not found")
)
