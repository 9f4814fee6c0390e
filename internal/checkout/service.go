package checkout

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/smartdot/storefront-backend/internal/cart"
	"github.com/smartdot/storefront-backend/internal/orders"
	"github.com/smartdot/storefront-backend/internal/users"
	"github.com/smartdot/storefront-backend/pkg/config"
	pkgerrors "github.com/smartdot/storefront-backend/pkg/errors"
	"github.com/smartdot/storefront-backend/pkg/logger"
	"github.com/smartdot/storefront-backend/pkg/metrics"
	"github.com/smartdot/storefront-backend/pkg/types"
)

// Service executes the cart to WhatsApp checkout handoff.
type Service interface {
	Checkout(ctx context.Context, store CartStore, input CheckoutInput) (*Result, error)
}

// CartStore is the slice of the session cart checkout needs.
type CartStore interface {
	Snapshot() cart.CartState
	Clear(ctx context.Context) cart.CartState
}

// CheckoutInput carries the shipping form and the signed-in user, if any.
type CheckoutInput struct {
	UserID   *uuid.UUID
	Shipping types.ShippingInfo
}

// Result is returned to the client so it can open the WhatsApp link.
type Result struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderRef    string    `json:"order_ref"`
	Total       float64   `json:"total"`
	Message     string    `json:"message"`
	WhatsAppURL string    `json:"whatsapp_url"`
}

type orderCreator interface {
	Create(ctx context.Context, input orders.CreateOrderInput) (*orders.OrderDTO, error)
}

type contactUpdater interface {
	UpdateContact(ctx context.Context, id uuid.UUID, update users.ContactUpdate) error
}

// ServiceParams bundles the dependencies required to build a checkout service.
type ServiceParams struct {
	Orders   orderCreator
	Contacts contactUpdater
	Config   config.CheckoutConfig
	Logger   *logger.Logger
	Metrics  *metrics.CartMetrics
}

type service struct {
	orders   orderCreator
	contacts contactUpdater
	cfg      config.CheckoutConfig
	logg     *logger.Logger
	metrics  *metrics.CartMetrics
}

// NewService constructs a checkout service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order service required")
	}
	if digitsOnly(params.Config.WhatsAppNumber) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "whatsapp number required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		orders:   params.Orders,
		contacts: params.Contacts,
		cfg:      params.Config,
		logg:     logg,
		metrics:  params.Metrics,
	}, nil
}

func (s *service) Checkout(ctx context.Context, store CartStore, input CheckoutInput) (*Result, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeMisuse, "checkout requires a cart store")
	}
	snapshot := store.Snapshot()
	if snapshot.IsEmpty() {
		s.metrics.IncCheckout(metrics.ResultRejected)
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	lines := make([]orders.LineInput, 0, len(snapshot.Items))
	for _, item := range snapshot.Items {
		productID, err := uuid.Parse(item.ID)
		if err != nil {
			s.metrics.IncCheckout(metrics.ResultRejected)
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart contains an unknown product").
				WithDetails(map[string]any{"item_id": item.ID})
		}
		lines = append(lines, orders.LineInput{
			ProductID: productID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}

	shipping := normalizeShipping(input.Shipping)
	order, err := s.orders.Create(ctx, orders.CreateOrderInput{
		UserID:       input.UserID,
		Items:        lines,
		Total:        snapshot.Total,
		ShippingInfo: shipping,
	})
	if err != nil {
		s.metrics.IncCheckout(resultFor(err))
		return nil, err
	}

	message := BuildMessage(MessageInput{
		StoreName:    s.cfg.StoreName,
		OrderRef:     order.Ref,
		Shipping:     shipping,
		Items:        snapshot.Items,
		Total:        snapshot.Total,
		ImageBaseURL: s.cfg.PublicBaseURL,
	})

	store.Clear(ctx)
	if input.UserID != nil {
		s.refreshContact(ctx, *input.UserID, shipping)
	}

	s.metrics.IncCheckout(metrics.ResultOK)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id": order.ID.String(),
		"items":    len(lines),
	}), "checkout.order.created")

	return &Result{
		OrderID:     order.ID,
		OrderRef:    order.Ref,
		Total:       order.Total,
		Message:     message,
		WhatsAppURL: WhatsAppURL(s.cfg.WhatsAppNumber, message),
	}, nil
}

func (s *service) refreshContact(ctx context.Context, userID uuid.UUID, shipping types.ShippingInfo) {
	if s.contacts == nil {
		return
	}
	err := s.contacts.UpdateContact(ctx, userID, users.ContactUpdate{
		Name:        &shipping.FullName,
		PhoneNumber: &shipping.PhoneNumber,
		Address:     &shipping.Address,
		City:        &shipping.City,
	})
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "checkout.contact_refresh.failed")
	}
}

func normalizeShipping(in types.ShippingInfo) types.ShippingInfo {
	return types.ShippingInfo{
		FullName:    strings.TrimSpace(in.FullName),
		PhoneNumber: strings.TrimSpace(in.PhoneNumber),
		Email:       strings.TrimSpace(in.Email),
		Address:     strings.TrimSpace(in.Address),
		City:        strings.TrimSpace(in.City),
		Note:        strings.TrimSpace(in.Note),
	}
}

func resultFor(err error) string {
	switch pkgerrors.CodeOf(err) {
	case pkgerrors.CodeValidation, pkgerrors.CodeConflict, pkgerrors.CodeNotFound:
		return metrics.ResultRejected
	default:
		return metrics.ResultError
	}
}
