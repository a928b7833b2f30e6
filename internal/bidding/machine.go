package bidding

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kurumart/kurumart-backend/pkg/enums"
	pkgerrors "github.com/kurumart/kurumart-backend/pkg/errors"
)

// Machine owns the local bid lifecycle for exactly one vehicle. The
// coordinator event loop is the only caller of its mutation methods, so
// no transition for a given vehicle ever runs concurrently with another.
type Machine struct {
	state VehicleState
}

// NewMachine seeds a state machine from the catalog's initial vehicle view.
func NewMachine(groupID string, seed VehicleSeed) *Machine {
	return &Machine{
		state: VehicleState{
			VehicleID:         seed.VehicleID,
			GroupID:           groupID,
			CurrentHighestBid: seed.StartingBid,
			MinIncrement:      seed.MinIncrement,
			AuctionEndTime:    seed.AuctionEndTime,
		},
	}
}

// RefreshSeed updates the catalog-owned facts after a group re-import.
// Live bid state and the authoritative highest bid are left untouched.
func (m *Machine) RefreshSeed(seed VehicleSeed) {
	m.state.MinIncrement = seed.MinIncrement
	m.state.AuctionEndTime = seed.AuctionEndTime
}

// Snapshot returns a deep copy of the current vehicle state.
func (m *Machine) Snapshot() VehicleState {
	return m.state.Clone()
}

// Restore replaces the machine state with a previously captured snapshot.
// Used to roll back an optimistic submit after a transport failure.
func (m *Machine) Restore(snapshot VehicleState) {
	m.state = snapshot.Clone()
}

// Submit applies the optimistic half of a bid submission: the local bid is
// created (or overwritten, on a raise) and immediately compared against the
// last known authoritative highest so the caller sees a decisive status
// before the upstream round-trip completes.
func (m *Machine) Submit(amount decimal.Decimal, now time.Time) (VehicleState, error) {
	if m.state.Closed {
		return VehicleState{}, pkgerrors.New(pkgerrors.CodeStateConflict, "auction has ended for this vehicle")
	}
	if m.state.BidStatus().IsTerminal() {
		return VehicleState{}, pkgerrors.New(pkgerrors.CodeStateConflict, "bid is terminal and immutable")
	}
	if err := ValidateBid(amount, m.state.CurrentHighestBid, m.state.MinIncrement); err != nil {
		return VehicleState{}, err
	}

	bid := &Bid{
		ID:          uuid.NewString(),
		GroupID:     m.state.GroupID,
		VehicleID:   m.state.VehicleID,
		Amount:      amount,
		Status:      enums.BidStatusPending,
		PlacedAt:    now,
		LastUpdated: now,
	}
	if amount.GreaterThan(m.state.CurrentHighestBid) {
		bid.Status = enums.BidStatusWinning
	} else {
		bid.Status = enums.BidStatusOutbid
	}

	m.state.YourBid = bid
	return m.Snapshot(), nil
}

// Reconcile swaps the locally generated bid id for the server-assigned one
// once the upstream submission is acknowledged.
func (m *Machine) Reconcile(serverBidID string, now time.Time) VehicleState {
	if m.state.YourBid != nil && serverBidID != "" {
		bid := m.state.YourBid.Clone()
		bid.ID = serverBidID
		bid.LastUpdated = now
		m.state.YourBid = bid
	}
	return m.Snapshot()
}

// Cancel deletes the local bid. Only pending and winning bids may be
// cancelled; an outbid bid must be raised instead, and terminal bids are
// immutable.
func (m *Machine) Cancel(now time.Time) (VehicleState, error) {
	switch m.state.BidStatus() {
	case enums.BidStatusPending, enums.BidStatusWinning:
		m.state.YourBid = nil
		return m.Snapshot(), nil
	case enums.BidStatusNone:
		return VehicleState{}, pkgerrors.New(pkgerrors.CodeNotFound, "no bid to cancel")
	default:
		return VehicleState{}, pkgerrors.New(pkgerrors.CodeStateConflict, "bid can no longer be cancelled")
	}
}

// ApplyHighestBid applies a remote highest-bid broadcast. Updates whose
// highest bid is not strictly greater than the recorded authoritative value
// are duplicates: bidder counts may refresh, but status never transitions.
// The boolean result reports whether the update advanced the highest bid.
func (m *Machine) ApplyHighestBid(newHighest decimal.Decimal, totalBidders *int, now time.Time) (VehicleState, bool) {
	if totalBidders != nil {
		m.state.TotalBidders = *totalBidders
	}
	if !newHighest.GreaterThan(m.state.CurrentHighestBid) {
		return m.Snapshot(), false
	}

	m.state.CurrentHighestBid = newHighest

	bid := m.state.YourBid
	if bid != nil && !bid.Status.IsTerminal() {
		switch bid.Status {
		case enums.BidStatusPending, enums.BidStatusWinning:
			if newHighest.GreaterThan(bid.Amount) {
				updated := bid.Clone()
				updated.Status = enums.BidStatusOutbid
				updated.LastUpdated = now
				m.state.YourBid = updated
			}
		}
	}
	return m.Snapshot(), true
}

// ApplyStatusChange applies an explicit remote status assertion. This is the
// only path by which an outbid bid may return to winning without a local
// raise. Terminal statuses close out the bid; terminal bids never change.
func (m *Machine) ApplyStatusChange(status enums.BidStatus, now time.Time) (VehicleState, bool) {
	bid := m.state.YourBid
	if bid == nil || bid.Status.IsTerminal() || !status.IsValid() || status == enums.BidStatusNone {
		return m.Snapshot(), false
	}
	if bid.Status == status {
		return m.Snapshot(), false
	}

	updated := bid.Clone()
	updated.Status = status
	updated.LastUpdated = now
	m.state.YourBid = updated
	if status.IsTerminal() {
		m.state.Closed = true
	}
	return m.Snapshot(), true
}

// ApplyAuctionEnd closes the vehicle's auction: a non-terminal local bid
// becomes won if it was winning at the moment of closure, otherwise lost.
func (m *Machine) ApplyAuctionEnd(now time.Time) (VehicleState, bool) {
	if m.state.Closed {
		return m.Snapshot(), false
	}
	m.state.Closed = true

	bid := m.state.YourBid
	if bid == nil || bid.Status.IsTerminal() {
		return m.Snapshot(), true
	}

	updated := bid.Clone()
	if bid.Status == enums.BidStatusWinning {
		updated.Status = enums.BidStatusWon
	} else {
		updated.Status = enums.BidStatusLost
	}
	updated.LastUpdated = now
	m.state.YourBid = updated
	return m.Snapshot(), true
}
