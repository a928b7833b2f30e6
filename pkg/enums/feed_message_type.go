package enums

import "fmt"

// FeedMessageType identifies an inbound auction-house broadcast.
type FeedMessageType string

const (
	FeedMessageBidUpdate    FeedMessageType = "bid_update"
	FeedMessageStatusChange FeedMessageType = "status_change"
	FeedMessageAuctionEnd   FeedMessageType = "auction_end"
	FeedMessageGroupUpdate  FeedMessageType = "group_update"
)

var validFeedMessageTypes = []FeedMessageType{
	FeedMessageBidUpdate,
	FeedMessageStatusChange,
	FeedMessageAuctionEnd,
	FeedMessageGroupUpdate,
}

// String implements fmt.Stringer.
func (f FeedMessageType) String() string {
	return string(f)
}

// IsValid reports whether the value is a known FeedMessageType.
func (f FeedMessageType) IsValid() bool {
	for _, candidate := range validFeedMessageTypes {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseFeedMessageType converts raw input into a FeedMessageType.
func ParseFeedMessageType(value string) (FeedMessageType, error) {
	for _, candidate := range validFeedMessageTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid feed message type %q", value)
}
