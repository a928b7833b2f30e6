package catalog

import (
	"time"

	"github.com/kurumart/kurumart-backend/pkg/db/models"
)

// VehicleDTO is the public projection of a catalog vehicle.
type VehicleDTO struct {
	ID              string    `json:"id"`
	GroupID         string    `json:"groupId"`
	Make            string    `json:"make"`
	Model           string    `json:"model"`
	Year            int       `json:"year"`
	Grade           *string   `json:"grade,omitempty"`
	MileageKM       *int      `json:"mileageKm,omitempty"`
	StartingBidYen  int64     `json:"startingBidYen"`
	MinIncrementYen int64     `json:"minIncrementYen"`
	AuctionEndTime  time.Time `json:"auctionEndTime"`
}

// GroupDTO is the public projection of an auction group with its vehicles.
type GroupDTO struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	RequiredWins  int          `json:"requiredWins"`
	TotalVehicles int          `json:"totalVehicles"`
	EndTime       time.Time    `json:"endTime"`
	Vehicles      []VehicleDTO `json:"vehicles"`
}

// UpsertGroupDTO carries a catalog snapshot for one group, typically sourced
// from the marketplace feed or an admin import.
type UpsertGroupDTO struct {
	ID           string             `json:"id" validate:"required"`
	Title        string             `json:"title" validate:"required"`
	RequiredWins int                `json:"requiredWins" validate:"required,min=1"`
	EndTime      time.Time          `json:"endTime" validate:"required"`
	Vehicles     []UpsertVehicleDTO `json:"vehicles" validate:"required,min=1,dive"`
}

// UpsertVehicleDTO carries one vehicle row within a group snapshot.
type UpsertVehicleDTO struct {
	ID              string    `json:"id" validate:"required"`
	Make            string    `json:"make" validate:"required"`
	Model           string    `json:"model" validate:"required"`
	Year            int       `json:"year" validate:"required,min=1950"`
	Grade           *string   `json:"grade,omitempty"`
	MileageKM       *int      `json:"mileageKm,omitempty"`
	StartingBidYen  int64     `json:"startingBidYen" validate:"min=0"`
	MinIncrementYen int64     `json:"minIncrementYen" validate:"min=0"`
	AuctionEndTime  time.Time `json:"auctionEndTime" validate:"required"`
}

func vehicleFromModel(vehicle models.Vehicle) VehicleDTO {
	return VehicleDTO{
		ID:              vehicle.ID,
		GroupID:         vehicle.GroupID,
		Make:            vehicle.Make,
		Model:           vehicle.Model,
		Year:            vehicle.Year,
		Grade:           vehicle.Grade,
		MileageKM:       vehicle.MileageKM,
		StartingBidYen:  vehicle.StartingBidYen,
		MinIncrementYen: vehicle.MinIncrementYen,
		AuctionEndTime:  vehicle.AuctionEndTime,
	}
}

func groupFromModel(group models.AuctionGroup) GroupDTO {
	vehicles := make([]VehicleDTO, 0, len(group.Vehicles))
	for _, vehicle := range group.Vehicles {
		vehicles = append(vehicles, vehicleFromModel(vehicle))
	}
	return GroupDTO{
		ID:            group.ID,
		Title:         group.Title,
		RequiredWins:  group.RequiredWins,
		TotalVehicles: group.TotalVehicles,
		EndTime:       group.EndTime,
		Vehicles:      vehicles,
	}
}
