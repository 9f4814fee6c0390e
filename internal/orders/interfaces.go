package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/smartdot/storefront-backend/pkg/db/models"
	"github.com/smartdot/storefront-backend/pkg/enums"
)

// Repository defines persistence operations for the orders tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	LatestForUser(ctx context.Context, userID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, filter ListFilter) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) error
}

// Inventory reserves and returns product stock within the order transaction.
type Inventory interface {
	Reserve(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) (*models.Product, error)
	Restock(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}
