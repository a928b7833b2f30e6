package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kurumart/kurumart-backend/internal/bidding"
	"github.com/kurumart/kurumart-backend/pkg/db/models"
	pkgerrors "github.com/kurumart/kurumart-backend/pkg/errors"
	"github.com/kurumart/kurumart-backend/pkg/logger"
)

// GroupRegistrar accepts catalog seeds for live bid tracking.
type GroupRegistrar interface {
	RegisterGroup(ctx context.Context, seed bidding.GroupSeed) error
}

// ServiceParams groups dependencies for the catalog service.
type ServiceParams struct {
	Repo   *Repository
	Logger *logger.Logger
}

// Service exposes the vehicle catalog to the API and seeds the bid engine.
type Service interface {
	ListGroups(ctx context.Context) ([]GroupDTO, error)
	GetGroup(ctx context.Context, groupID string) (GroupDTO, error)
	ImportGroup(ctx context.Context, dto UpsertGroupDTO) (GroupDTO, error)
	SeedCoordinator(ctx context.Context, registrar GroupRegistrar) error
}

type service struct {
	repo *Repository
	logg *logger.Logger
}

// NewService builds a catalog service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog repo is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &service{repo: params.Repo, logg: params.Logger}, nil
}

// ListGroups returns every auction group with its vehicles.
func (s *service) ListGroups(ctx context.Context) ([]GroupDTO, error) {
	groups, err := s.repo.ListGroups(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list auction groups")
	}
	dtos := make([]GroupDTO, 0, len(groups))
	for _, group := range groups {
		dtos = append(dtos, groupFromModel(group))
	}
	return dtos, nil
}

// GetGroup returns one auction group by ID.
func (s *service) GetGroup(ctx context.Context, groupID string) (GroupDTO, error) {
	if groupID == "" {
		return GroupDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "group id is required")
	}
	group, err := s.repo.GetGroup(ctx, groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return GroupDTO{}, pkgerrors.New(pkgerrors.CodeNotFound, "auction group not found")
		}
		return GroupDTO{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load auction group")
	}
	return groupFromModel(*group), nil
}

// ImportGroup persists a feed snapshot for one group and returns the stored
// projection.
func (s *service) ImportGroup(ctx context.Context, dto UpsertGroupDTO) (GroupDTO, error) {
	if dto.RequiredWins > len(dto.Vehicles) {
		return GroupDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "required wins exceeds vehicle count").
			WithDetails(map[string]any{
				"requiredWins": dto.RequiredWins,
				"vehicles":     len(dto.Vehicles),
			})
	}

	group := &models.AuctionGroup{
		ID:            dto.ID,
		Title:         dto.Title,
		RequiredWins:  dto.RequiredWins,
		TotalVehicles: len(dto.Vehicles),
		EndTime:       dto.EndTime.UTC(),
	}
	vehicles := make([]models.Vehicle, 0, len(dto.Vehicles))
	for _, v := range dto.Vehicles {
		vehicles = append(vehicles, models.Vehicle{
			ID:              v.ID,
			GroupID:         dto.ID,
			Make:            v.Make,
			Model:           v.Model,
			Year:            v.Year,
			Grade:           v.Grade,
			MileageKM:       v.MileageKM,
			StartingBidYen:  v.StartingBidYen,
			MinIncrementYen: v.MinIncrementYen,
			AuctionEndTime:  v.AuctionEndTime.UTC(),
		})
	}

	if err := s.repo.UpsertGroup(ctx, group, vehicles); err != nil {
		return GroupDTO{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "upsert auction group")
	}
	s.logg.Info(s.logg.WithGroupID(ctx, dto.ID), "catalog group imported")

	group.Vehicles = vehicles
	return groupFromModel(*group), nil
}

// SeedCoordinator registers every stored group with the bid engine. Groups
// whose end time has already passed are skipped.
func (s *service) SeedCoordinator(ctx context.Context, registrar GroupRegistrar) error {
	if registrar == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "group registrar is required")
	}
	groups, err := s.repo.ListGroups(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list auction groups")
	}

	now := time.Now().UTC()
	for _, group := range groups {
		if group.EndTime.Before(now) {
			continue
		}
		if err := registrar.RegisterGroup(ctx, toSeed(group)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "register auction group")
		}
		s.logg.Info(s.logg.WithGroupID(ctx, group.ID), "catalog group registered for live tracking")
	}
	return nil
}

func toSeed(group models.AuctionGroup) bidding.GroupSeed {
	seed := bidding.GroupSeed{
		Info: bidding.GroupInfo{
			GroupID:       group.ID,
			Title:         group.Title,
			RequiredWins:  group.RequiredWins,
			TotalVehicles: group.TotalVehicles,
			EndTime:       group.EndTime,
		},
		Vehicles: make([]bidding.VehicleSeed, 0, len(group.Vehicles)),
	}
	for _, vehicle := range group.Vehicles {
		seed.Vehicles = append(seed.Vehicles, bidding.VehicleSeed{
			VehicleID:      vehicle.ID,
			StartingBid:    decimal.NewFromInt(vehicle.StartingBidYen),
			MinIncrement:   decimal.NewFromInt(vehicle.MinIncrementYen),
			AuctionEndTime: vehicle.AuctionEndTime,
		})
	}
	return seed
}
