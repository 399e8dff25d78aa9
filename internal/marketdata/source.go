package marketdata

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrPriceUnavailable means the metric source has no current value for the
// pair (feed gap, stale cache, source unreachable). Callers retry on the
// next tick.
var ErrPriceUnavailable = errors.New("price unavailable")

// ErrPairDelisted means the pair is no longer supported by the exchange.
// Entries referencing it cannot recover without an edit.
var ErrPairDelisted = errors.New("pair delisted")

// PriceSource provides the current value of a market metric.
type PriceSource interface {
	LastPrice(ctx context.Context, exchange, pair string) (decimal.Decimal, error)
}
