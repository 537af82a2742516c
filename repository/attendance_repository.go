package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/camden-git/siteguard/models"
)

var ErrAlreadyCheckedOut = errors.New("attendance record already checked out")

type GormAttendanceRepository struct {
	db *gorm.DB
}

var _ AttendanceRepository = (*GormAttendanceRepository)(nil)

func NewAttendanceRepository(db *gorm.DB) *GormAttendanceRepository {
	return &GormAttendanceRepository{db: db}
}

func (r *GormAttendanceRepository) Create(rec *models.AttendanceRecord) error {
	if err := r.db.Create(rec).Error; err != nil {
		return fmt.Errorf("failed to create attendance record for user %d: %w", rec.UserID, err)
	}
	return nil
}

func (r *GormAttendanceRepository) FindOpenSince(userID uint, since time.Time) (*models.AttendanceRecord, error) {
	var rec models.AttendanceRecord
	err := r.db.Where("user_id = ? AND check_out_time IS NULL AND check_in_time >= ?", userID, since.UTC()).
		Order("check_in_time DESC").
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to find open attendance for user %d: %w", userID, err)
	}
	return &rec, nil
}

// CheckOut only touches a row whose check-out is still NULL, so two racing
// check-outs cannot both succeed.
func (r *GormAttendanceRepository) CheckOut(id uint, at time.Time) error {
	at = at.UTC()
	result := r.db.Model(&models.AttendanceRecord{}).
		Where("id = ? AND check_out_time IS NULL", id).
		Update("check_out_time", at)
	if result.Error != nil {
		return fmt.Errorf("failed to check out attendance record %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.Model(&models.AttendanceRecord{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to look up attendance record %d: %w", id, err)
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		return ErrAlreadyCheckedOut
	}
	return nil
}

func (r *GormAttendanceRepository) ListByUser(userID uint, limit int) ([]models.AttendanceRecord, error) {
	var recs []models.AttendanceRecord
	err := r.db.Where("user_id = ?", userID).Order("check_in_time DESC").Limit(limit).Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance for user %d: %w", userID, err)
	}
	return recs, nil
}

func (r *GormAttendanceRepository) ListByOrganization(orgID uint, limit int) ([]models.AttendanceRecord, error) {
	var recs []models.AttendanceRecord
	err := r.db.Preload("User").Where("organization_id = ?", orgID).
		Order("check_in_time DESC").Limit(limit).Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance for organization %d: %w", orgID, err)
	}
	return recs, nil
}
