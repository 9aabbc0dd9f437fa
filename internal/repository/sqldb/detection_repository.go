package sqldb

import (
	"context"

	"plateserver/internal/database"
	"plateserver/internal/models"
)

// DetectionRepository implements repository.DetectionRepository.
type DetectionRepository struct {
	db *database.DB
}

// NewDetectionRepository creates a new detection repository.
func NewDetectionRepository(db *database.DB) *DetectionRepository {
	return &DetectionRepository{db: db}
}

// Insert adds a detection and returns the stored row including its assigned id.
func (r *DetectionRepository) Insert(ctx context.Context, det *models.Detection) (*models.Detection, error) {
	row := r.db.Conn().QueryRowContext(ctx, `
		INSERT INTO detections (date, time, track_id, class_name, numberplate)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+detectionColumns,
		det.Date, det.Time, det.TrackID, det.ClassName, det.Numberplate)

	stored, err := scanDetection(row)
	if err != nil {
		return nil, storeError("insert detection", err)
	}
	return &stored, nil
}

// List returns up to limit detections, newest first.
func (r *DetectionRepository) List(ctx context.Context, limit int) ([]models.Detection, error) {
	rows, err := r.db.Conn().QueryContext(ctx, `
		SELECT `+detectionColumns+`
		FROM detections
		ORDER BY id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, storeError("list detections", err)
	}

	detections, err := collectDetections(rows)
	if err != nil {
		return nil, storeError("list detections", err)
	}
	return detections, nil
}

// ListByTrackID returns every detection of one tracked object, newest first.
func (r *DetectionRepository) ListByTrackID(ctx context.Context, trackID int64) ([]models.Detection, error) {
	rows, err := r.db.Conn().QueryContext(ctx, `
		SELECT `+detectionColumns+`
		FROM detections
		WHERE track_id = $1
		ORDER BY id DESC
	`, trackID)
	if err != nil {
		return nil, storeError("list detections by track id", err)
	}

	detections, err := collectDetections(rows)
	if err != nil {
		return nil, storeError("list detections by track id", err)
	}
	return detections, nil
}

// ListMatching returns detections whose plate text equals an authorized plate.
func (r *DetectionRepository) ListMatching(ctx context.Context) ([]models.Detection, error) {
	rows, err := r.db.Conn().QueryContext(ctx, `
		SELECT d.id, d.date, d.time, d.track_id, d.class_name, d.numberplate
		FROM detections d
		INNER JOIN authorized_plates a ON d.numberplate = a.plate_number
		ORDER BY d.date DESC NULLS LAST, d.time DESC, d.id DESC
	`)
	if err != nil {
		return nil, storeError("list matching detections", err)
	}

	detections, err := collectDetections(rows)
	if err != nil {
		return nil, storeError("list matching detections", err)
	}
	return detections, nil
}

// Count returns the number of stored detections.
func (r *DetectionRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.Conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM detections`).Scan(&count); err != nil {
		return 0, storeError("count detections", err)
	}
	return count, nil
}

// DeleteAll removes every detection and resets the id sequence.
func (r *DetectionRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.Conn().ExecContext(ctx, r.db.TruncateStatement(database.TableDetections)); err != nil {
		return storeError("clear detections", err)
	}
	return nil
}
