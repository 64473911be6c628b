package clientdata

import "time"

// TTL constants for different data types.
// These are added to time.Now() when storing to calculate expires_at.
const (
	// Daily close series gain at most one new bar per trading day, so a
	// one-day TTL keeps repeated optimization runs off the provider APIs.
	TTLPriceHistory = 24 * time.Hour
)
