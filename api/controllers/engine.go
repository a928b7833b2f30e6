package controllers

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/kurumart/kurumart-backend/internal/bidding"
	"github.com/kurumart/kurumart-backend/pkg/enums"
)

// BidEngine is the slice of the bid coordinator the HTTP layer depends on.
type BidEngine interface {
	SubmitBid(ctx context.Context, groupID, vehicleID string, amount decimal.Decimal) (bidding.VehicleState, error)
	CancelBid(ctx context.Context, bidID string) error
	UpdateBid(ctx context.Context, bidID string) (string, string, error)
	SelectGroup(ctx context.Context, groupID string) error
	RegisterGroup(ctx context.Context, seed bidding.GroupSeed) error
	GroupSnapshot(ctx context.Context, groupID string) (bidding.GroupState, []bidding.VehicleState, error)
	Groups(ctx context.Context) ([]bidding.GroupState, error)
	ConnectionStatus(ctx context.Context) (enums.ConnectionStatus, error)
	Subscribe(ctx context.Context) (<-chan bidding.Event, func(), error)
}
