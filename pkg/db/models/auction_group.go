package models

import (
	"time"
)

// AuctionGroup is a named bundle of vehicles sold under a "win N of M"
// purchase requirement. Rows are owned by the catalog feed; the bidding core
// treats them as read-only.
type AuctionGroup struct {
	ID            string    `gorm:"column:id;type:text;primaryKey"`
	Title         string    `gorm:"column:title;not null"`
	RequiredWins  int       `gorm:"column:required_wins;not null;check:required_wins >= 1"`
	TotalVehicles int       `gorm:"column:total_vehicles;not null"`
	EndTime       time.Time `gorm:"column:end_time;not null"`
	Vehicles      []Vehicle `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
