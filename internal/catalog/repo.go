package catalog

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kurumart/kurumart-backend/pkg/db/models"
)

// Repository exposes catalog persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a catalog repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListGroups returns all auction groups with their vehicles, newest end time
// first.
func (r *Repository) ListGroups(ctx context.Context) ([]models.AuctionGroup, error) {
	var groups []models.AuctionGroup
	err := r.db.WithContext(ctx).
		Preload("Vehicles").
		Order("end_time ASC").
		Find(&groups).Error
	if err != nil {
		return nil, err
	}
	return groups, nil
}

// GetGroup loads one auction group with its vehicles.
func (r *Repository) GetGroup(ctx context.Context, groupID string) (*models.AuctionGroup, error) {
	var group models.AuctionGroup
	err := r.db.WithContext(ctx).
		Preload("Vehicles").
		Where("id = ?", groupID).
		First(&group).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// UpsertGroup writes a full group snapshot: the group row plus its vehicle
// rows. Vehicles missing from the snapshot are removed so the table mirrors
// the feed exactly.
func (r *Repository) UpsertGroup(ctx context.Context, group *models.AuctionGroup, vehicles []models.Vehicle) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Omit("Vehicles").
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				UpdateAll: true,
			}).
			Create(group).Error; err != nil {
			return err
		}

		keep := make([]string, 0, len(vehicles))
		for _, vehicle := range vehicles {
			keep = append(keep, vehicle.ID)
		}
		if err := tx.
			Where("group_id = ?", group.ID).
			Not("id IN ?", keep).
			Delete(&models.Vehicle{}).Error; err != nil {
			return err
		}

		if len(vehicles) == 0 {
			return nil
		}
		return tx.
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				UpdateAll: true,
			}).
			Create(&vehicles).Error
	})
}
