package bidding

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kurumart/kurumart-backend/pkg/enums"
)

// EvaluateGroup derives the group-level requirement standing from the
// latest per-vehicle snapshots. It only reads snapshots, never mutates.
func EvaluateGroup(info GroupInfo, vehicles []VehicleState, now time.Time) GroupState {
	state := GroupState{
		GroupID:        info.GroupID,
		Title:          info.Title,
		RequiredWins:   info.RequiredWins,
		TotalVehicles:  info.TotalVehicles,
		EndTime:        info.EndTime,
		TotalBidAmount: decimal.Zero,
	}

	var anyTerminal bool
	for _, vehicle := range vehicles {
		status := vehicle.BidStatus()
		if status != enums.BidStatusNone && vehicle.YourBid != nil {
			state.TotalBidAmount = state.TotalBidAmount.Add(vehicle.YourBid.Amount)
		}
		switch status {
		case enums.BidStatusWinning:
			state.CurrentWins++
			state.PotentialWins++
		case enums.BidStatusWon:
			state.CurrentWins++
			state.WonCount++
			anyTerminal = true
		case enums.BidStatusPending:
			state.PotentialWins++
		case enums.BidStatusLost, enums.BidStatusPartialWin:
			anyTerminal = true
		}
	}

	state.Status = deriveGroupStatus(state, anyTerminal, now)
	return state
}

func deriveGroupStatus(state GroupState, anyTerminal bool, now time.Time) enums.GroupStatus {
	switch {
	case state.CurrentWins >= state.RequiredWins:
		return enums.GroupStatusRequirementMet

	// Even if every live bid converts, settled wins plus potential wins
	// cannot reach the quota.
	case state.WonCount+state.PotentialWins < state.RequiredWins:
		return enums.GroupStatusRequirementNotMet

	case anyTerminal && now.Before(state.EndTime):
		return enums.GroupStatusPartial

	default:
		return enums.GroupStatusInProgress
	}
}
