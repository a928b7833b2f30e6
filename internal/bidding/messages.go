package bidding

import (
	"github.com/shopspring/decimal"

	"github.com/kurumart/kurumart-backend/pkg/enums"
)

// InboundMessage is an asynchronous fact pushed by the auction feed.
type InboundMessage struct {
	Type      enums.FeedMessageType `json:"type"`
	GroupID   string                `json:"groupId"`
	VehicleID string                `json:"vehicleId,omitempty"`
	Data      MessageData           `json:"data"`
}

// MessageData carries the optional payload fields of an inbound message.
type MessageData struct {
	HighestBid   *decimal.Decimal `json:"highestBid,omitempty"`
	TotalBidders *int             `json:"totalBidders,omitempty"`
	Status       *string          `json:"status,omitempty"`
	WinnerID     *string          `json:"winnerId,omitempty"`
	GroupStatus  *string          `json:"groupStatus,omitempty"`
}

// SubmitRequest is the outbound bid submission sent to the upstream auction API.
type SubmitRequest struct {
	GroupID   string          `json:"groupId"`
	VehicleID string          `json:"vehicleId"`
	BidAmount decimal.Decimal `json:"bidAmount"`
}

// SubmitResult is the upstream acknowledgement of a bid submission.
type SubmitResult struct {
	BidID string `json:"bidId"`
}

// CancelRequest is the outbound cancellation sent to the upstream auction API.
type CancelRequest struct {
	GroupID   string `json:"groupId"`
	VehicleID string `json:"vehicleId"`
	BidID     string `json:"bidId"`
}
