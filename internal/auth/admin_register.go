package auth

import (
	"context"

	"github.com/smartdot/storefront-backend/internal/users"
	"github.com/smartdot/storefront-backend/pkg/db/models"
	"github.com/smartdot/storefront-backend/pkg/enums"
	pkgerrors "github.com/smartdot/storefront-backend/pkg/errors"
)

const invalidSignupTokenMessage = "invalid signup token"

// AdminSignup creates an ADMIN account when the invitation token matches one of the configured tokens.
func (s *service) AdminSignup(ctx context.Context, req AdminSignupRequest) (*AuthResponse, error) {
	if !s.admin.HasSignupToken(req.Token) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, invalidSignupTokenMessage)
	}
	user, err := s.createAdmin(ctx, req.Name, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	return s.issue(user, s.now())
}

// CreateAdmin adds an ADMIN account on behalf of an authenticated admin.
func (s *service) CreateAdmin(ctx context.Context, req CreateAdminRequest) (*users.UserDTO, error) {
	user, err := s.createAdmin(ctx, req.Name, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	return users.FromModel(user), nil
}

func (s *service) ListAdmins(ctx context.Context) ([]users.UserDTO, error) {
	admins, err := s.users.ListAdmins(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list admins")
	}
	out := make([]users.UserDTO, 0, len(admins))
	for i := range admins {
		out = append(out, *users.FromModel(&admins[i]))
	}
	return out, nil
}

func (s *service) createAdmin(ctx context.Context, name, email, password string) (*models.User, error) {
	user, err := s.createUser(ctx, users.CreateUserDTO{
		Email: email,
		Name:  name,
		Role:  enums.UserRoleAdmin,
	}, password)
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "auth.admin.created")
	return user, nil
}
