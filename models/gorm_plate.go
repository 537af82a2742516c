package models

import "time"

// VehiclePlate is a registered vehicle. PlateKey is the hyphen-free
// normalised number used for lookups.
type VehiclePlate struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	OrganizationID uint      `json:"organization_id" gorm:"uniqueIndex:idx_org_plate;not null"`
	PlateKey       string    `json:"-" gorm:"uniqueIndex:idx_org_plate;not null"`
	PlateNumber    string    `json:"plate_number" gorm:"not null"`
	OwnerName      string    `json:"owner_name"`
	VehicleMake    string    `json:"vehicle_make"`
	VehicleModel   string    `json:"vehicle_model"`
	IsAuthorized   bool      `json:"is_authorized"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// PlateDetectionLog is an append-only record of one plate detection.
type PlateDetectionLog struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	OrganizationID uint      `json:"organization_id" gorm:"index;not null"`
	VehiclePlateID *uint     `json:"vehicle_plate_id,omitempty"`
	PlateNumber    string    `json:"plate_number" gorm:"not null"`
	Confidence     float64   `json:"confidence"`
	IsAuthorized   bool      `json:"is_authorized"`
	Location       string    `json:"location,omitempty"`
	BoxX           int       `json:"box_x"`
	BoxY           int       `json:"box_y"`
	BoxW           int       `json:"box_w"`
	BoxH           int       `json:"box_h"`
	CaptureRelPath string    `json:"capture_path,omitempty"`
	DetectedAt     time.Time `json:"detected_at" gorm:"index;not null"`
	CreatedAt      time.Time `json:"created_at"`
}
