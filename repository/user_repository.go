package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/camden-git/siteguard/models"
	"github.com/camden-git/siteguard/permissions"
)

var ErrUserExists = errors.New("username or email already registered")

type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) Register(user *models.User, organizationName string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.User{}).
			Where("username = ? OR email = ?", user.Username, user.Email).
			Count(&existing).Error; err != nil {
			return fmt.Errorf("failed to check existing users: %w", err)
		}
		if existing > 0 {
			return ErrUserExists
		}

		org := models.Organization{Name: organizationName}
		if err := tx.Where(models.Organization{Name: organizationName}).FirstOrCreate(&org).Error; err != nil {
			return fmt.Errorf("failed to find or create organization %q: %w", organizationName, err)
		}

		var members int64
		if err := tx.Model(&models.User{}).Where("organization_id = ?", org.ID).Count(&members).Error; err != nil {
			return fmt.Errorf("failed to count organization members: %w", err)
		}
		user.OrganizationID = org.ID
		user.Role = permissions.RoleUser
		if members == 0 {
			user.Role = permissions.RoleAdmin
		}

		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("failed to create user %s: %w", user.Username, err)
		}
		user.Organization = &org
		return nil
	})
}

func (r *GormUserRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.Preload("Organization").First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormUserRepository) GetByUsername(username string) (*models.User, error) {
	var user models.User
	err := r.db.Preload("Organization").Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormUserRepository) ListByOrganization(orgID uint) ([]models.User, error) {
	var users []models.User
	if err := r.db.Where("organization_id = ?", orgID).Order("username").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users for organization %d: %w", orgID, err)
	}
	return users, nil
}
