package dto

import (
	"database/sql"
	"errors"
	"time"

	"plateserver/internal/models"
)

// AuthorizedPlateCreate is the body accepted by POST /authorized-plates.
type AuthorizedPlateCreate struct {
	PlateNumber string  `json:"plate_number"`
	OwnerName   *string `json:"owner_name"`
}

// AuthorizedPlateRead is an allow-list entry as returned to callers.
type AuthorizedPlateRead struct {
	PlateNumber string    `json:"plate_number"`
	OwnerName   *string   `json:"owner_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// Validate reports a missing plate number.
func (a *AuthorizedPlateCreate) Validate() error {
	if a.PlateNumber == "" {
		return errors.New("plate_number is required")
	}
	return nil
}

// Model converts the request into a storage row.
func (a *AuthorizedPlateCreate) Model() *models.AuthorizedPlate {
	plate := &models.AuthorizedPlate{PlateNumber: a.PlateNumber}
	if a.OwnerName != nil {
		plate.OwnerName = sql.NullString{String: *a.OwnerName, Valid: true}
	}
	return plate
}

// NewAuthorizedPlateRead converts a stored allow-list row into its read shape.
func NewAuthorizedPlateRead(plate models.AuthorizedPlate) AuthorizedPlateRead {
	read := AuthorizedPlateRead{
		PlateNumber: plate.PlateNumber,
		CreatedAt:   plate.CreatedAt,
	}
	if plate.OwnerName.Valid {
		owner := plate.OwnerName.String
		read.OwnerName = &owner
	}
	return read
}

// NewAuthorizedPlateReads never returns nil so an empty allow-list encodes as [].
func NewAuthorizedPlateReads(plates []models.AuthorizedPlate) []AuthorizedPlateRead {
	out := make([]AuthorizedPlateRead, 0, len(plates))
	for _, p := range plates {
		out = append(out, NewAuthorizedPlateRead(p))
	}
	return out
}
