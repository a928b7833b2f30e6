package controllers

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kurumart/kurumart-backend/internal/bidding"
)

// BidView is the public projection of a local bid.
type BidView struct {
	ID          string          `json:"id"`
	GroupID     string          `json:"groupId"`
	VehicleID   string          `json:"vehicleId"`
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status"`
	PlacedAt    time.Time       `json:"placedAt"`
	LastUpdated time.Time       `json:"lastUpdated"`
}

// VehicleView is the public projection of one vehicle's live auction state.
type VehicleView struct {
	VehicleID         string          `json:"vehicleId"`
	GroupID           string          `json:"groupId"`
	CurrentHighestBid decimal.Decimal `json:"currentHighestBid"`
	TotalBidders      int             `json:"totalBidders"`
	MinIncrement      decimal.Decimal `json:"minIncrement"`
	AuctionEndTime    time.Time       `json:"auctionEndTime"`
	Closed            bool            `json:"closed"`
	YourBid           *BidView        `json:"yourBid,omitempty"`
}

// GroupStateView is the public projection of a group's derived bid state.
type GroupStateView struct {
	GroupID        string          `json:"groupId"`
	Title          string          `json:"title"`
	RequiredWins   int             `json:"requiredWins"`
	TotalVehicles  int             `json:"totalVehicles"`
	EndTime        time.Time       `json:"endTime"`
	Status         string          `json:"status"`
	CurrentWins    int             `json:"currentWins"`
	PotentialWins  int             `json:"potentialWins"`
	WonCount       int             `json:"wonCount"`
	TotalBidAmount decimal.Decimal `json:"totalBidAmount"`
}

func bidView(bid *bidding.Bid) *BidView {
	if bid == nil {
		return nil
	}
	return &BidView{
		ID:          bid.ID,
		GroupID:     bid.GroupID,
		VehicleID:   bid.VehicleID,
		Amount:      bid.Amount,
		Status:      string(bid.Status),
		PlacedAt:    bid.PlacedAt,
		LastUpdated: bid.LastUpdated,
	}
}

func vehicleView(state bidding.VehicleState) VehicleView {
	return VehicleView{
		VehicleID:         state.VehicleID,
		GroupID:           state.GroupID,
		CurrentHighestBid: state.CurrentHighestBid,
		TotalBidders:      state.TotalBidders,
		MinIncrement:      state.MinIncrement,
		AuctionEndTime:    state.AuctionEndTime,
		Closed:            state.Closed,
		YourBid:           bidView(state.YourBid),
	}
}

func groupStateView(state bidding.GroupState) GroupStateView {
	return GroupStateView{
		GroupID:        state.GroupID,
		Title:          state.Title,
		RequiredWins:   state.RequiredWins,
		TotalVehicles:  state.TotalVehicles,
		EndTime:        state.EndTime,
		Status:         string(state.Status),
		CurrentWins:    state.CurrentWins,
		PotentialWins:  state.PotentialWins,
		WonCount:       state.WonCount,
		TotalBidAmount: state.TotalBidAmount,
	}
}

func vehicleViews(states []bidding.VehicleState) []VehicleView {
	views := make([]VehicleView, 0, len(states))
	for _, state := range states {
		views = append(views, vehicleView(state))
	}
	return views
}
