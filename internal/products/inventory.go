package product

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/smartdot/storefront-backend/pkg/db/models"
	pkgerrors "github.com/smartdot/storefront-backend/pkg/errors"
)

// Inventory moves stock inside a caller-owned transaction.
type Inventory struct{}

// NewInventory returns the catalog stock ledger.
func NewInventory() *Inventory {
	return &Inventory{}
}

// Reserve locks the product and takes qty units from its stock.
func (Inventory) Reserve(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) (*models.Product, error) {
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	repo := NewRepository(tx)
	product, err := repo.FindByIDForUpdate(ctx, productID)
	if err != nil {
		return nil, mapLookupError(err)
	}
	if product.Stock < qty {
		return nil, insufficientStock(product, qty)
	}
	ok, err := repo.DecrementStock(ctx, productID, qty)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
	}
	if !ok {
		return nil, insufficientStock(product, qty)
	}
	product.Stock -= qty
	return product, nil
}

// Restock returns qty units to the product. Missing products are ignored.
func (Inventory) Restock(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return nil
	}
	err := tx.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumn("stock", gorm.Expr("stock + ?", qty)).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restock product")
	}
	return nil
}

func insufficientStock(product *models.Product, requested int) error {
	return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("Insufficient stock for %s", product.Name)).
		WithDetails(map[string]any{
			"product_id": product.ID,
			"available":  product.Stock,
			"requested":  requested,
		})
}
