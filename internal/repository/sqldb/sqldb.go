// Package sqldb implements the repository interfaces on top of database/sql.
// Every method issues exactly one statement; queries use $N placeholders,
// which both the postgres and sqlite drivers accept.
package sqldb

import (
	"database/sql"
	"fmt"

	"plateserver/internal/database"
	"plateserver/internal/models"
	"plateserver/internal/repository"
)

const detectionColumns = "id, date, time, track_id, class_name, numberplate"

var (
	_ repository.DetectionRepository       = (*DetectionRepository)(nil)
	_ repository.AuthorizedPlateRepository = (*AuthorizedPlateRepository)(nil)
)

// storeError classifies a driver error once, at the store boundary.
func storeError(op string, err error) error {
	kind := repository.KindUnavailable
	switch {
	case database.IsUniqueViolation(err):
		kind = repository.KindDuplicate
	case database.IsRejected(err):
		kind = repository.KindRejected
	}
	return &repository.StoreError{Op: op, Kind: kind, Message: database.Message(err), Err: err}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDetection(row rowScanner) (models.Detection, error) {
	var det models.Detection
	err := row.Scan(&det.ID, &det.Date, &det.Time, &det.TrackID, &det.ClassName, &det.Numberplate)
	return det, err
}

func collectDetections(rows *sql.Rows) ([]models.Detection, error) {
	defer rows.Close()

	detections := []models.Detection{}
	for rows.Next() {
		det, err := scanDetection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan detection: %w", err)
		}
		detections = append(detections, det)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return detections, nil
}
