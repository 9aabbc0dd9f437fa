package repository

import (
	"context"

	"plateserver/internal/models"
)

// DetectionRepository defines the interface for detection data operations.
type DetectionRepository interface {
	// Create operations
	Insert(ctx context.Context, det *models.Detection) (*models.Detection, error)

	// Read operations
	List(ctx context.Context, limit int) ([]models.Detection, error)
	ListByTrackID(ctx context.Context, trackID int64) ([]models.Detection, error)
	ListMatching(ctx context.Context) ([]models.Detection, error)
	Count(ctx context.Context) (int, error)

	// Delete operations
	DeleteAll(ctx context.Context) error
}

// AuthorizedPlateRepository defines the interface for allow-list operations.
type AuthorizedPlateRepository interface {
	// Create operations
	Insert(ctx context.Context, plate *models.AuthorizedPlate) (*models.AuthorizedPlate, error)

	// Read operations
	List(ctx context.Context) ([]models.AuthorizedPlate, error)
	Count(ctx context.Context) (int, error)

	// Delete operations
	DeleteAll(ctx context.Context) error
}
