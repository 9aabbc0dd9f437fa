package models

import (
	"database/sql"
	"time"
)

// Detection represents a stored row of the detections table.
type Detection struct {
	ID          int64
	Date        sql.NullString
	Time        string
	TrackID     int64
	ClassName   string
	Numberplate string
}

// AuthorizedPlate represents a stored row of the authorized_plates table.
type AuthorizedPlate struct {
	PlateNumber string
	OwnerName   sql.NullString
	CreatedAt   time.Time
}
