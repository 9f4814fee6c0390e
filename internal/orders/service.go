package orders

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/smartdot/storefront-backend/pkg/db/models"
	"github.com/smartdot/storefront-backend/pkg/enums"
	pkgerrors "github.com/smartdot/storefront-backend/pkg/errors"
	"github.com/smartdot/storefront-backend/pkg/pagination"
	"github.com/smartdot/storefront-backend/pkg/types"
)

const orderNotFoundMessage = "order not found"

// Service defines order creation, lookup and admin status changes.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*OrderDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*OrderDTO, error)
	Latest(ctx context.Context, userID uuid.UUID) (*types.ShippingInfo, error)
	List(ctx context.Context, input ListInput) (pagination.Page[OrderDTO], error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) (*OrderDTO, error)
}

// CreateOrderInput carries the priced lines captured from a cart.
type CreateOrderInput struct {
	UserID       *uuid.UUID
	Items        []LineInput
	Total        float64
	ShippingInfo types.ShippingInfo
}

// LineInput is one cart row: the price is what the customer saw.
type LineInput struct {
	ProductID uuid.UUID
	Quantity  int
	Price     float64
}

// ListInput filters the admin order listing.
type ListInput struct {
	Status     *enums.OrderStatus
	Pagination pagination.Params
}

// ServiceParams bundles the dependencies required to build an orders service.
type ServiceParams struct {
	Repo      Repository
	Tx        txRunner
	Inventory Inventory
}

type service struct {
	repo      Repository
	tx        txRunner
	inventory Inventory
}

// NewService constructs an orders service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repository required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Inventory == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "inventory required")
	}
	return &service{
		repo:      params.Repo,
		tx:        params.Tx,
		inventory: params.Inventory,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (*OrderDTO, error) {
	total, err := validateCreate(input)
	if err != nil {
		return nil, err
	}

	var created *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		items := make([]models.OrderItem, len(input.Items))
		for _, i := range lockOrder(input.Items) {
			line := input.Items[i]
			product, err := s.inventory.Reserve(ctx, tx, line.ProductID, line.Quantity)
			if err != nil {
				return err
			}
			items[i] = models.OrderItem{
				ProductID: line.ProductID,
				Position:  i,
				Name:      product.Name,
				Quantity:  line.Quantity,
				Price:     decimal.NewFromFloat(line.Price).Round(2),
			}
		}

		order, err := s.repo.WithTx(tx).Create(ctx, &models.Order{
			UserID:       input.UserID,
			Total:        total,
			Status:       enums.OrderStatusPending,
			ShippingInfo: input.ShippingInfo,
			Items:        items,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		created = order
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}

	dto := FromModel(created)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	dto := FromModel(order)
	return &dto, nil
}

// Latest returns the shipping details of the user's most recent order, or nil when there is none.
func (s *service) Latest(ctx context.Context, userID uuid.UUID) (*types.ShippingInfo, error) {
	order, err := s.repo.LatestForUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load latest order")
	}
	info := order.ShippingInfo
	return &info, nil
}

func (s *service) List(ctx context.Context, input ListInput) (pagination.Page[OrderDTO], error) {
	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return pagination.Page[OrderDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, ListFilter{
		Status: input.Status,
		Cursor: cursor,
		Limit:  input.Pagination.Limit,
	})
	if err != nil {
		return pagination.Page[OrderDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	dtos := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, FromModel(&rows[i]))
	}
	return pagination.Build(dtos, input.Pagination.Limit, func(o OrderDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	}), nil
}

// UpdateStatus moves a PENDING order to a terminal status. Cancelling returns the stock.
func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) (*OrderDTO, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, id)
		if err != nil {
			return mapLookupError(err)
		}
		if order.Status == status {
			updated = order
			return nil
		}
		if order.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status is final").
				WithDetails(map[string]any{"status": order.Status})
		}
		if status == enums.OrderStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is already pending")
		}

		if status == enums.OrderStatusCancelled {
			lines := make([]LineInput, len(order.Items))
			for i, item := range order.Items {
				lines[i] = LineInput{ProductID: item.ProductID, Quantity: item.Quantity}
			}
			for _, i := range lockOrder(lines) {
				if err := s.inventory.Restock(ctx, tx, lines[i].ProductID, lines[i].Quantity); err != nil {
					return err
				}
			}
		}
		if err := repo.UpdateStatus(ctx, id, status); err != nil {
			return mapLookupError(err)
		}
		order.Status = status
		updated = order
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}

	dto := FromModel(updated)
	return &dto, nil
}

// lockOrder returns the indexes of lines sorted by product id. Product rows are always locked
// in this order so concurrent checkouts over the same products cannot deadlock.
func lockOrder(lines []LineInput) []int {
	idx := make([]int, len(lines))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		return bytes.Compare(lines[a].ProductID[:], lines[b].ProductID[:])
	})
	return idx
}

func validateCreate(input CreateOrderInput) (decimal.Decimal, error) {
	if len(input.Items) == 0 {
		return decimal.Decimal{}, pkgerrors.New(pkgerrors.CodeValidation, "Order items are required")
	}
	if err := validateShipping(input.ShippingInfo); err != nil {
		return decimal.Decimal{}, err
	}

	sum := decimal.Zero
	seen := make(map[uuid.UUID]struct{}, len(input.Items))
	for _, line := range input.Items {
		if line.ProductID == uuid.Nil {
			return decimal.Decimal{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
		}
		if _, dup := seen[line.ProductID]; dup {
			return decimal.Decimal{}, pkgerrors.New(pkgerrors.CodeValidation, "duplicate product in order").
				WithDetails(map[string]any{"product_id": line.ProductID})
		}
		seen[line.ProductID] = struct{}{}
		if line.Quantity <= 0 {
			return decimal.Decimal{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
		price := decimal.NewFromFloat(line.Price)
		if !price.IsPositive() {
			return decimal.Decimal{}, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
		}
		sum = sum.Add(price.Mul(decimalFromInt(line.Quantity)))
	}

	total := decimal.NewFromFloat(input.Total).Round(2)
	if !total.IsPositive() {
		return decimal.Decimal{}, pkgerrors.New(pkgerrors.CodeValidation, "Order total must be greater than 0")
	}
	if expected := sum.Round(2); !total.Equal(expected) {
		return decimal.Decimal{}, pkgerrors.New(pkgerrors.CodeValidation, "order total does not match items").
			WithDetails(map[string]any{"expected": expected.InexactFloat64(), "got": total.InexactFloat64()})
	}
	return total, nil
}

func validateShipping(info types.ShippingInfo) error {
	fields := []struct{ name, value string }{
		{"full_name", info.FullName},
		{"phone_number", info.PhoneNumber},
		{"address", info.Address},
		{"city", info.City},
	}
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping information is incomplete").
			WithDetails(map[string]any{"missing": missing})
	}
	return nil
}

func mapLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, orderNotFoundMessage)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}

func decimalFromInt(v int) decimal.Decimal {
	return decimal.NewFromInt(int64(v))
}
