package repository

import (
	"time"

	"github.com/camden-git/siteguard/models"
)

// UserRepository defines the methods for user data operations
type UserRepository interface {
	// Register creates the user, creating the named organization when it
	// does not exist. The first user of an organization becomes admin.
	Register(user *models.User, organizationName string) error
	GetByID(id uint) (*models.User, error)
	GetByUsername(username string) (*models.User, error)
	ListByOrganization(orgID uint) ([]models.User, error)
}

// FaceEmbeddingRepository stores the one active embedding per user.
type FaceEmbeddingRepository interface {
	// Replace atomically swaps the user's active embedding for fe.
	Replace(fe *models.FaceEmbedding) error
	GetByUserID(userID uint) (*models.FaceEmbedding, error)
	ListByOrganization(orgID uint) ([]models.FaceEmbedding, error)
	DeleteByUserID(userID uint) error
}

type AttendanceRepository interface {
	Create(rec *models.AttendanceRecord) error
	// FindOpenSince returns the user's latest record without a check-out
	// whose check-in is at or after since.
	FindOpenSince(userID uint, since time.Time) (*models.AttendanceRecord, error)
	// CheckOut sets the check-out time once. A record that is already
	// closed yields ErrAlreadyCheckedOut.
	CheckOut(id uint, at time.Time) error
	ListByUser(userID uint, limit int) ([]models.AttendanceRecord, error)
	ListByOrganization(orgID uint, limit int) ([]models.AttendanceRecord, error)
}

type PlateRepository interface {
	Upsert(plate *models.VehiclePlate) error
	GetByKey(orgID uint, plateKey string) (*models.VehiclePlate, error)
	List(orgID uint) ([]models.VehiclePlate, error)
	CreateLog(entry *models.PlateDetectionLog) error
	ListLogs(orgID uint, limit int) ([]models.PlateDetectionLog, error)
}

// SpaceChange is a new known state for one space.
type SpaceChange struct {
	SpaceID    uint    `json:"id"`
	Identifier string  `json:"identifier"`
	Occupied   bool    `json:"occupied"`
	Fraction   float64 `json:"fraction"`
}

type ParkingRepository interface {
	CreateSpace(space *models.ParkingSpace) error
	// ListSpaces returns spaces in natural order of their identifier.
	ListSpaces(orgID uint) ([]models.ParkingSpace, error)
	// ApplyChanges updates each changed space and appends a log row for it
	// in one transaction.
	ApplyChanges(orgID uint, changes []SpaceChange, capturePath string, at time.Time) error
	ListLogs(orgID uint, limit int) ([]models.ParkingLog, error)
}
