package hunt

import (
	"context"
	"time"

	"huntbook/internal/value"
)

// Lookback is the fixed historical span the backend may fetch from.
// It bounds backend data availability only; how far back a query
// logically filters is controlled by the TimeFrame substituted into the
// query text. The two must never be conflated.
const Lookback = 180 * 24 * time.Hour

// Backend executes hunting query text over a bounded lookback window
// and returns the raw, schema-less result rows.
type Backend interface {
	Hunt(ctx context.Context, query string, lookback time.Duration) ([]*value.Row, error)
}
