package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/camden-git/siteguard/models"
)

type GormPlateRepository struct {
	db *gorm.DB
}

var _ PlateRepository = (*GormPlateRepository)(nil)

func NewPlateRepository(db *gorm.DB) *GormPlateRepository {
	return &GormPlateRepository{db: db}
}

// Upsert registers a plate or updates the existing registration with the
// same organization and plate key.
func (r *GormPlateRepository) Upsert(plate *models.VehiclePlate) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "organization_id"}, {Name: "plate_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"plate_number", "owner_name", "vehicle_make", "vehicle_model", "is_authorized", "updated_at"}),
	}).Create(plate).Error
	if err != nil {
		return fmt.Errorf("failed to upsert plate %s: %w", plate.PlateNumber, err)
	}
	// on conflict sqlite does not report the existing id
	if plate.ID == 0 {
		stored, err := r.GetByKey(plate.OrganizationID, plate.PlateKey)
		if err != nil {
			return err
		}
		*plate = *stored
	}
	return nil
}

func (r *GormPlateRepository) GetByKey(orgID uint, plateKey string) (*models.VehiclePlate, error) {
	var plate models.VehiclePlate
	err := r.db.Where("organization_id = ? AND plate_key = ?", orgID, plateKey).First(&plate).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get plate %s: %w", plateKey, err)
	}
	return &plate, nil
}

func (r *GormPlateRepository) List(orgID uint) ([]models.VehiclePlate, error) {
	var plates []models.VehiclePlate
	if err := r.db.Where("organization_id = ?", orgID).Order("plate_number").Find(&plates).Error; err != nil {
		return nil, fmt.Errorf("failed to list plates for organization %d: %w", orgID, err)
	}
	return plates, nil
}

func (r *GormPlateRepository) CreateLog(entry *models.PlateDetectionLog) error {
	if err := r.db.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to create plate detection log: %w", err)
	}
	return nil
}

func (r *GormPlateRepository) ListLogs(orgID uint, limit int) ([]models.PlateDetectionLog, error) {
	var logs []models.PlateDetectionLog
	err := r.db.Where("organization_id = ?", orgID).Order("detected_at DESC, id DESC").Limit(limit).Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list plate logs for organization %d: %w", orgID, err)
	}
	return logs, nil
}
