package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/camden-git/siteguard/permissions"
)

// Organization is a tenant. Every user, plate, space and log row belongs to
// exactly one.
type Organization struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"uniqueIndex;not null"`
	CreatedAt time.Time `json:"created_at"`
}

// User is a member of an organization.
type User struct {
	ID             uint          `json:"id" gorm:"primaryKey"`
	Username       string        `json:"username" gorm:"uniqueIndex;not null"`
	Email          string        `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash   string        `json:"-" gorm:"not null"`
	FirstName      string        `json:"first_name"`
	LastName       string        `json:"last_name"`
	Role           string        `json:"role" gorm:"not null;default:'user'"`
	OrganizationID uint          `json:"organization_id" gorm:"index;not null"`
	Organization   *Organization `json:"organization,omitempty" gorm:"foreignKey:OrganizationID"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// SetPassword hashes the given password and sets it on the user model.
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

// CheckPassword verifies if the given password matches the user's hashed password.
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

func (u *User) IsAdmin() bool {
	return u.Role == permissions.RoleAdmin
}

// HasPermission checks the user's role against the static permission table.
func (u *User) HasPermission(permission string) bool {
	return permissions.RoleHas(u.Role, permission)
}

func (u *User) FullName() string {
	switch {
	case u.FirstName == "" && u.LastName == "":
		return u.Username
	case u.LastName == "":
		return u.FirstName
	case u.FirstName == "":
		return u.LastName
	}
	return u.FirstName + " " + u.LastName
}
