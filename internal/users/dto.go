package users

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/smartdot/storefront-backend/pkg/db/models"
	"github.com/smartdot/storefront-backend/pkg/enums"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID          uuid.UUID      `json:"id"`
	Email       string         `json:"email"`
	Name        string         `json:"name"`
	Role        enums.UserRole `json:"role"`
	PhoneNumber *string        `json:"phone_number,omitempty"`
	Address     *string        `json:"address,omitempty"`
	City        *string        `json:"city,omitempty"`
	LastLoginAt *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email        string
	PasswordHash string
	Name         string
	Role         enums.UserRole
	PhoneNumber  *string
}

// ContactUpdate carries the profile fields refreshed from checkout. Nil or blank fields are left untouched.
type ContactUpdate struct {
	Name        *string
	PhoneNumber *string
	Address     *string
	City        *string
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Role:        u.Role,
		PhoneNumber: u.PhoneNumber,
		Address:     u.Address,
		City:        u.City,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	role := c.Role
	if role == "" {
		role = enums.UserRoleUser
	}
	return &models.User{
		Email:        NormalizeEmail(c.Email),
		PasswordHash: c.PasswordHash,
		Name:         strings.TrimSpace(c.Name),
		Role:         role,
		PhoneNumber:  c.PhoneNumber,
	}
}

// NormalizeEmail lower-cases and trims an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (c ContactUpdate) columns() map[string]any {
	cols := map[string]any{}
	set := func(column string, value *string) {
		if value == nil {
			return
		}
		if trimmed := strings.TrimSpace(*value); trimmed != "" {
			cols[column] = trimmed
		}
	}
	set("name", c.Name)
	set("phone_number", c.PhoneNumber)
	set("address", c.Address)
	set("city", c.City)
	return cols
}
