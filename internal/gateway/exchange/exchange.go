// Package exchange defines the common abstraction over trading venues.
// The cycle engine only talks to this interface, so market data and order
// routing backends (binance futures, paper trading) stay swappable.
package exchange

import (
	"context"
	"errors"

	"zion/internal/market"
	"zion/internal/risk"
)

// ErrFatal marks unrecoverable gateway failures (credentials, auth).
// The cycle loop does not retry these; they propagate to process shutdown.
var ErrFatal = errors.New("fatal exchange error")

// ErrOrderNotFound is returned by GetOrderStatus for unknown order ids.
var ErrOrderNotFound = errors.New("order not found")

// Service provides market data and order execution for one venue.
// All calls honor ctx cancellation; transient failures return plain errors,
// fatal ones wrap ErrFatal.
type Service interface {
	// GetSnapshot returns a fresh market snapshot for the asset.
	GetSnapshot(ctx context.Context, asset string) (*market.Snapshot, error)

	// GetPosition returns the current position risk for the asset,
	// or (nil, nil) when flat.
	GetPosition(ctx context.Context, asset string) (*risk.PositionRisk, error)

	// GetMetrics returns portfolio-level risk metrics (equity, margin, positions).
	GetMetrics(ctx context.Context) (*risk.Metrics, error)

	// SubmitOrder validates nothing beyond venue rules: the request is
	// assumed to be constructed through NewOrderRequest.
	SubmitOrder(ctx context.Context, req OrderRequest) (*OrderResult, error)

	// GetOrderStatus resolves a previously submitted order by id.
	GetOrderStatus(ctx context.Context, orderID string) (*OrderResult, error)
}
