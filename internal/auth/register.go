package auth

import (
	"context"

	"github.com/smartdot/storefront-backend/internal/users"
	"github.com/smartdot/storefront-backend/pkg/db"
	"github.com/smartdot/storefront-backend/pkg/enums"
)

// Register creates a customer account and signs it in.
func (s *service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	user, err := s.createUser(ctx, users.CreateUserDTO{
		Email:       req.Email,
		Name:        req.Name,
		Role:        enums.UserRoleUser,
		PhoneNumber: req.PhoneNumber,
	}, req.Password)
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "auth.register.completed")
	return s.issue(user, s.now())
}

func isDuplicate(err error) bool {
	return db.IsUniqueViolation(err, "")
}
