package repository

import (
	"fmt"
	"sort"
	"time"

	"github.com/facette/natsort"
	"gorm.io/gorm"

	"github.com/camden-git/siteguard/models"
)

type GormParkingRepository struct {
	db *gorm.DB
}

var _ ParkingRepository = (*GormParkingRepository)(nil)

func NewParkingRepository(db *gorm.DB) *GormParkingRepository {
	return &GormParkingRepository{db: db}
}

func (r *GormParkingRepository) CreateSpace(space *models.ParkingSpace) error {
	if err := r.db.Create(space).Error; err != nil {
		return fmt.Errorf("failed to create parking space %s: %w", space.SpaceIdentifier, err)
	}
	return nil
}

func (r *GormParkingRepository) ListSpaces(orgID uint) ([]models.ParkingSpace, error) {
	var spaces []models.ParkingSpace
	if err := r.db.Where("organization_id = ?", orgID).Find(&spaces).Error; err != nil {
		return nil, fmt.Errorf("failed to list parking spaces for organization %d: %w", orgID, err)
	}
	sort.SliceStable(spaces, func(i, j int) bool {
		return natsort.Compare(spaces[i].SpaceIdentifier, spaces[j].SpaceIdentifier)
	})
	return spaces, nil
}

func (r *GormParkingRepository) ApplyChanges(orgID uint, changes []SpaceChange, capturePath string, at time.Time) error {
	if len(changes) == 0 {
		return nil
	}
	at = at.UTC()
	return r.db.Transaction(func(tx *gorm.DB) error {
		for _, c := range changes {
			result := tx.Model(&models.ParkingSpace{}).
				Where("id = ? AND organization_id = ?", c.SpaceID, orgID).
				Updates(map[string]interface{}{"is_occupied": c.Occupied, "last_updated": at})
			if result.Error != nil {
				return fmt.Errorf("failed to update parking space %s: %w", c.Identifier, result.Error)
			}
			if result.RowsAffected == 0 {
				return fmt.Errorf("parking space %s: %w", c.Identifier, gorm.ErrRecordNotFound)
			}
			entry := models.ParkingLog{
				OrganizationID:  orgID,
				ParkingSpaceID:  c.SpaceID,
				SpaceIdentifier: c.Identifier,
				IsOccupied:      c.Occupied,
				Fraction:        c.Fraction,
				CaptureRelPath:  capturePath,
				Timestamp:       at,
			}
			if err := tx.Create(&entry).Error; err != nil {
				return fmt.Errorf("failed to log parking change for %s: %w", c.Identifier, err)
			}
		}
		return nil
	})
}

func (r *GormParkingRepository) ListLogs(orgID uint, limit int) ([]models.ParkingLog, error) {
	var logs []models.ParkingLog
	err := r.db.Where("organization_id = ?", orgID).Order("timestamp DESC, id DESC").Limit(limit).Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list parking logs for organization %d: %w", orgID, err)
	}
	return logs, nil
}
