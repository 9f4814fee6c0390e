package checkout

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/smartdot/storefront-backend/internal/cart"
	"github.com/smartdot/storefront-backend/internal/orders"
	"github.com/smartdot/storefront-backend/internal/users"
	"github.com/smartdot/storefront-backend/pkg/config"
	pkgerrors "github.com/smartdot/storefront-backend/pkg/errors"
	"github.com/smartdot/storefront-backend/pkg/metrics"
	"github.com/smartdot/storefront-backend/pkg/types"
)

type stubOrders struct {
	got   *orders.CreateOrderInput
	id    uuid.UUID
	err   error
	calls int
}

func (s *stubOrders) Create(_ context.Context, input orders.CreateOrderInput) (*orders.OrderDTO, error) {
	s.calls++
	s.got = &input
	if s.err != nil {
		return nil, s.err
	}
	return &orders.OrderDTO{ID: s.id, Ref: orders.Ref(s.id), Total: input.Total}, nil
}

type stubContacts struct {
	userID uuid.UUID
	update users.ContactUpdate
	err    error
}

func (s *stubContacts) UpdateContact(_ context.Context, id uuid.UUID, update users.ContactUpdate) error {
	s.userID = id
	s.update = update
	return s.err
}

func testConfig() config.CheckoutConfig {
	return config.CheckoutConfig{
		WhatsAppNumber: "+250785657398",
		StoreName:      "SmartDot Electronics",
		PublicBaseURL:  "https://shop.example.com",
	}
}

func testShipping() types.ShippingInfo {
	return types.ShippingInfo{
		FullName:    " Jane Doe ",
		PhoneNumber: "+250788000111",
		Address:     "KN 5 Rd",
		City:        "Kigali",
	}
}

func intPtr(v int) *int { return &v }

func filledStore(t *testing.T, ids ...uuid.UUID) *cart.Store {
	t.Helper()
	store := cart.NewStore(context.Background(), cart.StoreParams{})
	t.Cleanup(store.Close)
	for i, id := range ids {
		_, err := store.AddItem(context.Background(), cart.Candidate{
			ID:       id.String(),
			Name:     []string{"Laptop", "Mouse", "Cable"}[i%3],
			Price:    []float64{899.99, 25.5, 4.25}[i%3],
			MaxStock: intPtr(10),
		}, i+1)
		require.NoError(t, err)
	}
	return store
}

func counterValue(t *testing.T, reg *prometheus.Registry, result string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != "checkout_orders_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelValue(m, "result") == result {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func newTestService(t *testing.T, ord orderCreator, contacts contactUpdater) (Service, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	svc, err := NewService(ServiceParams{
		Orders:   ord,
		Contacts: contacts,
		Config:   testConfig(),
		Metrics:  metrics.NewCartMetrics(reg),
	})
	require.NoError(t, err)
	return svc, reg
}

func TestCheckoutCreatesOrderAndClearsCart(t *testing.T) {
	laptop, mouse := uuid.New(), uuid.New()
	store := filledStore(t, laptop, mouse)
	ord := &stubOrders{id: uuid.MustParse("0b9f3c2e-1d4a-4e7b-9c55-7a1f2e3d4c5b")}
	contacts := &stubContacts{}
	svc, reg := newTestService(t, ord, contacts)
	userID := uuid.New()

	res, err := svc.Checkout(context.Background(), store, CheckoutInput{UserID: &userID, Shipping: testShipping()})
	require.NoError(t, err)

	require.Equal(t, "2E3D4C5B", res.OrderRef)
	require.Equal(t, 950.99, res.Total)
	require.True(t, strings.HasPrefix(res.WhatsAppURL, "https://wa.me/250785657398?text="))
	require.Contains(t, res.Message, "Order #2E3D4C5B")
	require.Contains(t, res.Message, "Name: Jane Doe\n")
	require.Contains(t, res.Message, "2. *Mouse*\n   Qty: 2  |  $51.00\n")
	require.Contains(t, res.Message, "💰 *TOTAL: $950.99*")

	require.NotNil(t, ord.got)
	require.Equal(t, &userID, ord.got.UserID)
	require.Equal(t, []orders.LineInput{
		{ProductID: laptop, Quantity: 1, Price: 899.99},
		{ProductID: mouse, Quantity: 2, Price: 25.5},
	}, ord.got.Items)
	require.Equal(t, 950.99, ord.got.Total)
	require.Equal(t, "Jane Doe", ord.got.ShippingInfo.FullName)

	require.True(t, store.Snapshot().IsEmpty())
	require.Equal(t, userID, contacts.userID)
	require.Equal(t, "Kigali", *contacts.update.City)
	require.Equal(t, 1.0, counterValue(t, reg, metrics.ResultOK))
}

func TestCheckoutEmptyCartIsRejected(t *testing.T) {
	store := filledStore(t)
	ord := &stubOrders{id: uuid.New()}
	svc, reg := newTestService(t, ord, nil)

	_, err := svc.Checkout(context.Background(), store, CheckoutInput{Shipping: testShipping()})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	require.Zero(t, ord.calls)
	require.Equal(t, 1.0, counterValue(t, reg, metrics.ResultRejected))
}

func TestCheckoutOrderFailureKeepsCart(t *testing.T) {
	store := filledStore(t, uuid.New())
	ord := &stubOrders{err: pkgerrors.New(pkgerrors.CodeConflict, "Insufficient stock for Laptop")}
	svc, reg := newTestService(t, ord, nil)

	_, err := svc.Checkout(context.Background(), store, CheckoutInput{Shipping: testShipping()})
	require.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
	require.Len(t, store.Snapshot().Items, 1)
	require.Equal(t, 1.0, counterValue(t, reg, metrics.ResultRejected))

	ord.err = errors.New("db down")
	_, err = svc.Checkout(context.Background(), store, CheckoutInput{Shipping: testShipping()})
	require.Error(t, err)
	require.Equal(t, 1.0, counterValue(t, reg, metrics.ResultError))
}

func TestCheckoutRejectsNonCatalogItems(t *testing.T) {
	store := cart.NewStore(context.Background(), cart.StoreParams{})
	t.Cleanup(store.Close)
	_, err := store.AddItem(context.Background(), cart.Candidate{ID: "legacy-sku", Name: "Old", Price: 5}, 1)
	require.NoError(t, err)
	ord := &stubOrders{id: uuid.New()}
	svc, _ := newTestService(t, ord, nil)

	_, err = svc.Checkout(context.Background(), store, CheckoutInput{Shipping: testShipping()})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	require.Zero(t, ord.calls)
}

func TestCheckoutContactRefreshFailureIsIgnored(t *testing.T) {
	store := filledStore(t, uuid.New())
	ord := &stubOrders{id: uuid.New()}
	contacts := &stubContacts{err: errors.New("write failed")}
	svc, _ := newTestService(t, ord, contacts)
	userID := uuid.New()

	res, err := svc.Checkout(context.Background(), store, CheckoutInput{UserID: &userID, Shipping: testShipping()})
	require.NoError(t, err)
	require.NotEmpty(t, res.WhatsAppURL)
	require.True(t, store.Snapshot().IsEmpty())
}

func TestNewServiceValidatesConfig(t *testing.T) {
	_, err := NewService(ServiceParams{Orders: &stubOrders{}, Config: config.CheckoutConfig{WhatsAppNumber: "n/a"}})
	require.Error(t, err)
	_, err = NewService(ServiceParams{Config: testConfig()})
	require.Error(t, err)
}
