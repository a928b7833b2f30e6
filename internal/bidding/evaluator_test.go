package bidding

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/kurumart/kurumart-backend/pkg/enums"
)

func groupAInfo() GroupInfo {
	return GroupInfo{
		GroupID:       "group-a",
		Title:         "Kansai Session 12",
		RequiredWins:  2,
		TotalVehicles: 3,
		EndTime:       testTime.Add(3 * time.Hour),
	}
}

func vehicleWithBid(id string, amount int64, status enums.BidStatus) VehicleState {
	return VehicleState{
		VehicleID: id,
		GroupID:   "group-a",
		YourBid: &Bid{
			ID:        "bid-" + id,
			GroupID:   "group-a",
			VehicleID: id,
			Amount:    yen(amount),
			Status:    status,
		},
	}
}

func vehicleWithoutBid(id string) VehicleState {
	return VehicleState{VehicleID: id, GroupID: "group-a"}
}

func TestTwoWinningBidsMeetQuota(t *testing.T) {
	state := EvaluateGroup(groupAInfo(), []VehicleState{
		vehicleWithBid("v1", 2_500_000, enums.BidStatusWinning),
		vehicleWithBid("v2", 9_000_000, enums.BidStatusWinning),
		vehicleWithoutBid("v3"),
	}, testTime)

	assert.Equal(t, 2, state.CurrentWins)
	assert.Equal(t, 2, state.PotentialWins)
	assert.Equal(t, enums.GroupStatusRequirementMet, state.Status)
	assert.True(t, state.TotalBidAmount.Equal(yen(11_500_000)))
}

func TestOutbidVehicleDropsFromPotential(t *testing.T) {
	// vehicle 1 was outbid at 2,600,000; only vehicle 2 is still live.
	state := EvaluateGroup(groupAInfo(), []VehicleState{
		vehicleWithBid("v1", 2_500_000, enums.BidStatusOutbid),
		vehicleWithBid("v2", 9_000_000, enums.BidStatusWinning),
		vehicleWithoutBid("v3"),
	}, testTime)

	assert.Equal(t, 1, state.CurrentWins)
	assert.Equal(t, 1, state.PotentialWins)
	// one potential win cannot reach a quota of two
	assert.Equal(t, enums.GroupStatusRequirementNotMet, state.Status)
}

func TestWonBidsCountTowardQuota(t *testing.T) {
	state := EvaluateGroup(groupAInfo(), []VehicleState{
		vehicleWithBid("v1", 2_500_000, enums.BidStatusWon),
		vehicleWithBid("v2", 9_000_000, enums.BidStatusWinning),
		vehicleWithoutBid("v3"),
	}, testTime)

	assert.Equal(t, 2, state.CurrentWins)
	assert.Equal(t, 1, state.WonCount)
	assert.Equal(t, enums.GroupStatusRequirementMet, state.Status)
}

func TestSettledWinKeepsQuotaReachable(t *testing.T) {
	// one vehicle already won, one still pending: 1 + 1 >= 2, so the
	// outcome is undetermined while the window is open.
	state := EvaluateGroup(groupAInfo(), []VehicleState{
		vehicleWithBid("v1", 2_500_000, enums.BidStatusWon),
		vehicleWithBid("v2", 9_000_000, enums.BidStatusPending),
		vehicleWithBid("v3", 1_200_000, enums.BidStatusLost),
	}, testTime)

	assert.Equal(t, 1, state.CurrentWins)
	assert.Equal(t, 1, state.PotentialWins)
	assert.Equal(t, enums.GroupStatusPartial, state.Status)
}

func TestQuotaImpossibleAfterLosses(t *testing.T) {
	state := EvaluateGroup(groupAInfo(), []VehicleState{
		vehicleWithBid("v1", 2_500_000, enums.BidStatusLost),
		vehicleWithBid("v2", 9_000_000, enums.BidStatusLost),
		vehicleWithBid("v3", 1_200_000, enums.BidStatusWinning),
	}, testTime)

	assert.Equal(t, enums.GroupStatusRequirementNotMet, state.Status)
}

func TestNoBidsQuotaUnreachable(t *testing.T) {
	info := groupAInfo()
	info.RequiredWins = 1

	state := EvaluateGroup(info, []VehicleState{
		vehicleWithoutBid("v1"),
		vehicleWithoutBid("v2"),
		vehicleWithoutBid("v3"),
	}, testTime)

	// no bids: zero potential, quota of one is unreachable as things stand
	assert.Equal(t, enums.GroupStatusRequirementNotMet, state.Status)
	assert.True(t, state.TotalBidAmount.Equal(decimal.Zero))
}

func TestEvaluationIsOrderIndependent(t *testing.T) {
	vehicles := []VehicleState{
		vehicleWithBid("v1", 2_500_000, enums.BidStatusWinning),
		vehicleWithBid("v2", 9_000_000, enums.BidStatusWon),
		vehicleWithBid("v3", 1_200_000, enums.BidStatusOutbid),
	}
	forward := EvaluateGroup(groupAInfo(), vehicles, testTime)
	reversed := EvaluateGroup(groupAInfo(), []VehicleState{vehicles[2], vehicles[1], vehicles[0]}, testTime)

	assert.True(t, forward.Equal(reversed))
}
