package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/camden-git/siteguard/models"
)

// GormFaceEmbeddingRepository handles database operations for FaceEmbedding entities
type GormFaceEmbeddingRepository struct {
	DB *gorm.DB
}

var _ FaceEmbeddingRepository = (*GormFaceEmbeddingRepository)(nil)

func NewFaceEmbeddingRepository(db *gorm.DB) *GormFaceEmbeddingRepository {
	return &GormFaceEmbeddingRepository{DB: db}
}

// Replace deletes the user's previous embedding and inserts fe in one
// transaction, so a concurrent reader sees either the old or the new one.
func (r *GormFaceEmbeddingRepository) Replace(fe *models.FaceEmbedding) error {
	if len(fe.EmbeddingData) == 0 {
		return fmt.Errorf("refusing to store empty embedding for user %d", fe.UserID)
	}
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", fe.UserID).Delete(&models.FaceEmbedding{}).Error; err != nil {
			return fmt.Errorf("failed to remove previous embedding for user %d: %w", fe.UserID, err)
		}
		fe.ID = 0
		if err := tx.Create(fe).Error; err != nil {
			return fmt.Errorf("failed to create face embedding for user %d: %w", fe.UserID, err)
		}
		return nil
	})
}

func (r *GormFaceEmbeddingRepository) GetByUserID(userID uint) (*models.FaceEmbedding, error) {
	var embedding models.FaceEmbedding
	err := r.DB.Where("user_id = ?", userID).First(&embedding).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get face embedding for user %d: %w", userID, err)
	}
	return &embedding, nil
}

// ListByOrganization returns the organization's gallery ordered by user id,
// which fixes the tie-break order of the matcher.
func (r *GormFaceEmbeddingRepository) ListByOrganization(orgID uint) ([]models.FaceEmbedding, error) {
	var embeddings []models.FaceEmbedding
	err := r.DB.Where("organization_id = ?", orgID).Order("user_id").Find(&embeddings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list face embeddings for organization %d: %w", orgID, err)
	}
	return embeddings, nil
}

func (r *GormFaceEmbeddingRepository) DeleteByUserID(userID uint) error {
	result := r.DB.Where("user_id = ?", userID).Delete(&models.FaceEmbedding{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete face embedding for user %d: %w", userID, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
