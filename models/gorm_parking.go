package models

import "time"

// ParkingSpace is a tracked space. Spaces are laid out on the analysis grid
// in natural order of SpaceIdentifier.
type ParkingSpace struct {
	ID              uint       `json:"id" gorm:"primaryKey"`
	OrganizationID  uint       `json:"organization_id" gorm:"uniqueIndex:idx_org_space;not null"`
	SpaceIdentifier string     `json:"space_identifier" gorm:"uniqueIndex:idx_org_space;not null"`
	Description     string     `json:"description,omitempty"`
	IsOccupied      bool       `json:"is_occupied"`
	LastUpdated     *time.Time `json:"last_updated,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// ParkingLog records a state change of one space.
type ParkingLog struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	OrganizationID  uint      `json:"organization_id" gorm:"index;not null"`
	ParkingSpaceID  uint      `json:"parking_space_id" gorm:"index;not null"`
	SpaceIdentifier string    `json:"space_identifier"`
	IsOccupied      bool      `json:"is_occupied"`
	Fraction        float64   `json:"fraction"`
	CaptureRelPath  string    `json:"capture_path,omitempty"`
	Timestamp       time.Time `json:"timestamp" gorm:"index;not null"`
}
