package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/kurumart/kurumart-backend/pkg/db/models"
)

// CreateUserDTO carries the fields needed to provision a dashboard user.
type CreateUserDTO struct {
	Email        string
	PasswordHash string
	DisplayName  string
	BuyerNumber  *string
	SystemRole   *string
}

// ToModel converts the DTO into a persistable user row.
func (d CreateUserDTO) ToModel() *models.User {
	return &models.User{
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		DisplayName:  d.DisplayName,
		BuyerNumber:  d.BuyerNumber,
		IsActive:     true,
		SystemRole:   d.SystemRole,
	}
}

// UserDTO is the public projection of a user returned by the API.
type UserDTO struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	DisplayName string     `json:"displayName"`
	BuyerNumber *string    `json:"buyerNumber,omitempty"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

// FromModel projects a user row into the public DTO.
func FromModel(user *models.User) UserDTO {
	if user == nil {
		return UserDTO{}
	}
	return UserDTO{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		BuyerNumber: user.BuyerNumber,
		LastLoginAt: user.LastLoginAt,
	}
}
