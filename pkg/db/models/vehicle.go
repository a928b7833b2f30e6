package models

import (
	"time"
)

// Vehicle is one auctionable unit within a group. Monetary columns are yen
// with no fractional unit. StartingBidYen seeds the authoritative highest bid
// until the feed reports live values; MinIncrementYen of zero means the price
// band tier table applies.
type Vehicle struct {
	ID              string     `gorm:"column:id;type:text;primaryKey"`
	GroupID         string     `gorm:"column:group_id;type:text;not null;index"`
	Make            string     `gorm:"column:make;not null"`
	Model           string     `gorm:"column:model;not null"`
	Year            int        `gorm:"column:year;not null"`
	Grade           *string    `gorm:"column:grade"`
	MileageKM       *int       `gorm:"column:mileage_km"`
	StartingBidYen  int64      `gorm:"column:starting_bid_yen;not null"`
	MinIncrementYen int64      `gorm:"column:min_increment_yen;not null;default:0"`
	AuctionEndTime  time.Time  `gorm:"column:auction_end_time;not null"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
