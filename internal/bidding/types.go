package bidding

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kurumart/kurumart-backend/pkg/enums"
)

// Bid is the user's local bid against one vehicle. The ID is generated
// locally and may be swapped for a server-assigned id on reconciliation.
type Bid struct {
	ID          string
	GroupID     string
	VehicleID   string
	Amount      decimal.Decimal
	Status      enums.BidStatus
	PlacedAt    time.Time
	LastUpdated time.Time
}

// Clone returns an independent copy of the bid.
func (b *Bid) Clone() *Bid {
	if b == nil {
		return nil
	}
	clone := *b
	return &clone
}

// VehicleState is an immutable snapshot of one vehicle's live auction view.
// Catalog fields are read-only inputs; YourBid is owned by the state machine.
type VehicleState struct {
	VehicleID         string
	GroupID           string
	CurrentHighestBid decimal.Decimal
	TotalBidders      int
	MinIncrement      decimal.Decimal
	AuctionEndTime    time.Time
	Closed            bool
	YourBid           *Bid
}

// BidStatus returns the local bid status, or none when no bid exists.
func (v VehicleState) BidStatus() enums.BidStatus {
	if v.YourBid == nil {
		return enums.BidStatusNone
	}
	return v.YourBid.Status
}

// Clone returns a deep copy so callers can hold snapshots safely.
func (v VehicleState) Clone() VehicleState {
	clone := v
	clone.YourBid = v.YourBid.Clone()
	return clone
}

// GroupInfo carries the read-only catalog facts about a group.
type GroupInfo struct {
	GroupID       string
	Title         string
	RequiredWins  int
	TotalVehicles int
	EndTime       time.Time
}

// GroupState is the evaluator's derived view of a group.
type GroupState struct {
	GroupID        string
	Title          string
	RequiredWins   int
	TotalVehicles  int
	EndTime        time.Time
	Status         enums.GroupStatus
	CurrentWins    int
	PotentialWins  int
	WonCount       int
	TotalBidAmount decimal.Decimal
}

// Equal reports whether two derived group states are identical. Needed
// because decimal amounts cannot be compared with ==.
func (g GroupState) Equal(other GroupState) bool {
	return g.GroupID == other.GroupID &&
		g.Title == other.Title &&
		g.RequiredWins == other.RequiredWins &&
		g.TotalVehicles == other.TotalVehicles &&
		g.EndTime.Equal(other.EndTime) &&
		g.Status == other.Status &&
		g.CurrentWins == other.CurrentWins &&
		g.PotentialWins == other.PotentialWins &&
		g.WonCount == other.WonCount &&
		g.TotalBidAmount.Equal(other.TotalBidAmount)
}

// GroupSeed bundles the catalog facts needed to register a group with the
// coordinator: the group record plus the initial per-vehicle auction view.
type GroupSeed struct {
	Info     GroupInfo
	Vehicles []VehicleSeed
}

// VehicleSeed is the catalog's initial view of one vehicle.
type VehicleSeed struct {
	VehicleID      string
	StartingBid    decimal.Decimal
	MinIncrement   decimal.Decimal
	AuctionEndTime time.Time
}
