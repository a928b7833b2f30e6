package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateBid     OutboxAggregateType = "bid"
	AggregateVehicle OutboxAggregateType = "vehicle"
	AggregateGroup   OutboxAggregateType = "auction_group"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateBid,
	AggregateVehicle,
	AggregateGroup,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventBidPlaced        OutboxEventType = "bid_placed"
	EventBidCanceled      OutboxEventType = "bid_canceled"
	EventBidOutbid        OutboxEventType = "bid_outbid"
	EventBidReconciled    OutboxEventType = "bid_reconciled"
	EventAuctionClosed    OutboxEventType = "auction_closed"
	EventGroupStatusMoved OutboxEventType = "group_status_moved"
	EventFeedConnectivity OutboxEventType = "feed_connectivity_changed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventBidPlaced,
	EventBidCanceled,
	EventBidOutbid,
	EventBidReconciled,
	EventAuctionClosed,
	EventGroupStatusMoved,
	EventFeedConnectivity,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
