package dto

import (
	"database/sql"
	"errors"

	"plateserver/internal/models"
)

// PlateCreate is the body accepted by POST /plates.
type PlateCreate struct {
	Date        string `json:"date"`
	Time        string `json:"time"`
	TrackID     *int64 `json:"track_id"`
	ClassName   string `json:"class_name"`
	Numberplate string `json:"numberplate"`
}

// PlateRead is a detection as returned to callers.
type PlateRead struct {
	ID          int64   `json:"id"`
	Date        *string `json:"date"`
	Time        string  `json:"time"`
	TrackID     int64   `json:"track_id"`
	ClassName   string  `json:"class_name"`
	Numberplate string  `json:"numberplate"`
}

// Validate checks that every required field is present.
func (p *PlateCreate) Validate() error {
	var errs []error
	if p.Date == "" {
		errs = append(errs, errors.New("date is required"))
	}
	if p.Time == "" {
		errs = append(errs, errors.New("time is required"))
	}
	if p.TrackID == nil {
		errs = append(errs, errors.New("track_id is required"))
	}
	if p.ClassName == "" {
		errs = append(errs, errors.New("class_name is required"))
	}
	if p.Numberplate == "" {
		errs = append(errs, errors.New("numberplate is required"))
	}
	return errors.Join(errs...)
}

// Model converts a validated create shape into a storage row.
func (p *PlateCreate) Model() *models.Detection {
	det := &models.Detection{
		Date:        sql.NullString{String: p.Date, Valid: true},
		Time:        p.Time,
		ClassName:   p.ClassName,
		Numberplate: p.Numberplate,
	}
	if p.TrackID != nil {
		det.TrackID = *p.TrackID
	}
	return det
}

// NewPlateRead converts a stored detection into its read shape.
func NewPlateRead(det models.Detection) PlateRead {
	read := PlateRead{
		ID:          det.ID,
		Time:        det.Time,
		TrackID:     det.TrackID,
		ClassName:   det.ClassName,
		Numberplate: det.Numberplate,
	}
	if det.Date.Valid {
		date := det.Date.String
		read.Date = &date
	}
	return read
}

// NewPlateReads never returns nil so empty results encode as [].
func NewPlateReads(dets []models.Detection) []PlateRead {
	out := make([]PlateRead, 0, len(dets))
	for _, det := range dets {
		out = append(out, NewPlateRead(det))
	}
	return out
}
