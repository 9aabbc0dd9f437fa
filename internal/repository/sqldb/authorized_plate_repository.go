package sqldb

import (
	"context"
	"fmt"

	"plateserver/internal/database"
	"plateserver/internal/models"
)

// AuthorizedPlateRepository implements repository.AuthorizedPlateRepository.
type AuthorizedPlateRepository struct {
	db *database.DB
}

// NewAuthorizedPlateRepository creates a new allow-list repository.
func NewAuthorizedPlateRepository(db *database.DB) *AuthorizedPlateRepository {
	return &AuthorizedPlateRepository{db: db}
}

func scanAuthorizedPlate(row rowScanner) (models.AuthorizedPlate, error) {
	var (
		plate     models.AuthorizedPlate
		createdAt database.Timestamp
	)
	if err := row.Scan(&plate.PlateNumber, &plate.OwnerName, &createdAt); err != nil {
		return plate, err
	}
	plate.CreatedAt = createdAt.Time
	return plate, nil
}

// Insert adds a plate to the allow-list. A plate number already present is
// reported as repository.KindDuplicate and leaves the existing row untouched.
func (r *AuthorizedPlateRepository) Insert(ctx context.Context, plate *models.AuthorizedPlate) (*models.AuthorizedPlate, error) {
	row := r.db.Conn().QueryRowContext(ctx, `
		INSERT INTO authorized_plates (plate_number, owner_name)
		VALUES ($1, $2)
		RETURNING plate_number, owner_name, created_at
	`, plate.PlateNumber, plate.OwnerName)

	stored, err := scanAuthorizedPlate(row)
	if err != nil {
		return nil, storeError("insert authorized plate", err)
	}
	return &stored, nil
}

// List returns the whole allow-list, most recently created first.
func (r *AuthorizedPlateRepository) List(ctx context.Context) ([]models.AuthorizedPlate, error) {
	rows, err := r.db.Conn().QueryContext(ctx, `
		SELECT plate_number, owner_name, created_at
		FROM authorized_plates
		ORDER BY created_at DESC, `+r.db.InsertionKey()+` DESC
	`)
	if err != nil {
		return nil, storeError("list authorized plates", err)
	}
	defer rows.Close()

	plates := []models.AuthorizedPlate{}
	for rows.Next() {
		plate, err := scanAuthorizedPlate(rows)
		if err != nil {
			return nil, storeError("list authorized plates", fmt.Errorf("failed to scan authorized plate: %w", err))
		}
		plates = append(plates, plate)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("list authorized plates", err)
	}
	return plates, nil
}

// Count returns the number of allow-listed plates.
func (r *AuthorizedPlateRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.Conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM authorized_plates`).Scan(&count); err != nil {
		return 0, storeError("count authorized plates", err)
	}
	return count, nil
}

// DeleteAll empties the allow-list.
func (r *AuthorizedPlateRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.Conn().ExecContext(ctx, r.db.TruncateStatement(database.TableAuthorizedPlates)); err != nil {
		return storeError("clear authorized plates", err)
	}
	return nil
}
