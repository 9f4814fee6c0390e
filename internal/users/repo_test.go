package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/smartdot/storefront-backend/pkg/db"
	"github.com/smartdot/storefront-backend/pkg/db/dbtest"
	"github.com/smartdot/storefront-backend/pkg/enums"
)

func strPtr(v string) *string { return &v }

func TestRepositoryCreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t))

	user, err := repo.Create(ctx, CreateUserDTO{
		Email:        "  Alice@Example.com ",
		PasswordHash: "hash",
		Name:         " Alice ",
	})
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", user.Email)
	require.Equal(t, "Alice", user.Name)
	require.Equal(t, enums.UserRoleUser, user.Role)

	found, err := repo.FindByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	require.Equal(t, user.ID, found.ID)

	byID, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, user.Email, byID.Email)

	_, err = repo.FindByEmail(ctx, "missing@example.com")
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestRepositoryDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t))

	_, err := repo.Create(ctx, CreateUserDTO{Email: "dup@example.com", PasswordHash: "h", Name: "One"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, CreateUserDTO{Email: "DUP@example.com", PasswordHash: "h", Name: "Two"})
	require.Error(t, err)
	require.True(t, db.IsUniqueViolation(err, ""))
}

func TestRepositoryUpdateContactSkipsBlankFields(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t))

	user, err := repo.Create(ctx, CreateUserDTO{
		Email:        "bob@example.com",
		PasswordHash: "h",
		Name:         "Bob",
		PhoneNumber:  strPtr("+250700000000"),
	})
	require.NoError(t, err)

	err = repo.UpdateContact(ctx, user.ID, ContactUpdate{
		Name:        strPtr("Bob Builder"),
		PhoneNumber: strPtr("   "),
		Address:     strPtr("KG 11 Ave"),
		City:        strPtr("Kigali"),
	})
	require.NoError(t, err)

	got, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "Bob Builder", got.Name)
	require.Equal(t, "+250700000000", *got.PhoneNumber)
	require.Equal(t, "KG 11 Ave", *got.Address)
	require.Equal(t, "Kigali", *got.City)

	require.NoError(t, repo.UpdateContact(ctx, user.ID, ContactUpdate{}))
}

func TestRepositoryListAdminsAndLastLogin(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t))

	_, err := repo.Create(ctx, CreateUserDTO{Email: "user@example.com", PasswordHash: "h", Name: "User"})
	require.NoError(t, err)
	admin, err := repo.Create(ctx, CreateUserDTO{Email: "admin@example.com", PasswordHash: "h", Name: "Admin", Role: enums.UserRoleAdmin})
	require.NoError(t, err)

	admins, err := repo.ListAdmins(ctx)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	require.Equal(t, admin.ID, admins[0].ID)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateLastLogin(ctx, admin.ID, at))
	require.NoError(t, repo.UpdatePasswordHash(ctx, admin.ID, "rehashed"))

	got, err := repo.FindByID(ctx, admin.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLoginAt)
	require.True(t, got.LastLoginAt.Equal(at))
	require.Equal(t, "rehashed", got.PasswordHash)
}
