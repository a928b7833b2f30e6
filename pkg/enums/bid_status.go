package enums

import "fmt"

// BidStatus tracks the lifecycle of a local bid against one vehicle.
type BidStatus string

const (
	BidStatusNone       BidStatus = "none"
	BidStatusPending    BidStatus = "pending"
	BidStatusWinning    BidStatus = "winning"
	BidStatusOutbid     BidStatus = "outbid"
	BidStatusWon        BidStatus = "won"
	BidStatusLost       BidStatus = "lost"
	BidStatusPartialWin BidStatus = "partial-win"
)

var validBidStatuses = []BidStatus{
	BidStatusNone,
	BidStatusPending,
	BidStatusWinning,
	BidStatusOutbid,
	BidStatusWon,
	BidStatusLost,
	BidStatusPartialWin,
}

// String implements fmt.Stringer.
func (b BidStatus) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BidStatus.
func (b BidStatus) IsValid() bool {
	for _, candidate := range validBidStatuses {
		if candidate == b {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
func (b BidStatus) IsTerminal() bool {
	switch b {
	case BidStatusWon, BidStatusLost, BidStatusPartialWin:
		return true
	}
	return false
}

// ParseBidStatus converts raw input into a BidStatus.
func ParseBidStatus(value string) (BidStatus, error) {
	for _, candidate := range validBidStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid bid status %q", value)
}
