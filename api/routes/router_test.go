package routes

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/smartdot/storefront-backend/api/middleware"
	"github.com/smartdot/storefront-backend/internal/auth"
	"github.com/smartdot/storefront-backend/internal/cart"
	"github.com/smartdot/storefront-backend/internal/checkout"
	"github.com/smartdot/storefront-backend/internal/orders"
	product "github.com/smartdot/storefront-backend/internal/products"
	"github.com/smartdot/storefront-backend/internal/users"
	pkgAuth "github.com/smartdot/storefront-backend/pkg/auth"
	"github.com/smartdot/storefront-backend/pkg/config"
	"github.com/smartdot/storefront-backend/pkg/db"
	"github.com/smartdot/storefront-backend/pkg/db/dbtest"
	"github.com/smartdot/storefront-backend/pkg/db/models"
	"github.com/smartdot/storefront-backend/pkg/enums"
	"github.com/smartdot/storefront-backend/pkg/logger"
	"github.com/smartdot/storefront-backend/pkg/metrics"
	"github.com/smartdot/storefront-backend/pkg/security"
)

type testEnv struct {
	cfg     *config.Config
	conn    *gorm.DB
	carts   *cart.Manager
	handler http.Handler
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev", CORSOrigins: []string{"http://localhost:3000"}},
		JWT: config.JWTConfig{Secret: "test-secret", Issuer: "smartdot", ExpirationMinutes: 60},
		Password: config.PasswordConfig{
			ArgonMemoryKB:    1024,
			ArgonTime:        1,
			ArgonParallelism: 1,
			ArgonSaltLen:     16,
			ArgonKeyLen:      32,
		},
		Cart: config.CartConfig{
			SessionHeader: middleware.DefaultCartSessionHeader,
			SessionCookie: middleware.DefaultCartSessionCookie,
			MaxAge:        720 * time.Hour,
		},
		Checkout: config.CheckoutConfig{
			WhatsAppNumber: "+250785657398",
			StoreName:      "SmartDot Electronics",
		},
		Admin: config.AdminConfig{SignupTokens: []string{"invite-token"}},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := testConfig()
	logg := logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
	conn := dbtest.Open(t)
	dbClient := db.NewFromConn(conn, config.DBDriverSQLite)

	registry := prometheus.NewRegistry()
	cartMetrics := metrics.NewCartMetrics(registry)

	userRepo := users.NewRepository(conn)
	authSvc, err := auth.NewService(auth.ServiceParams{
		UserRepo:  userRepo,
		Hasher:    security.NewHasher(cfg.Password),
		JWTConfig: cfg.JWT,
		Admin:     cfg.Admin,
		Logger:    logg,
	})
	require.NoError(t, err)

	productRepo := product.NewRepository(conn)
	productSvc, err := product.NewService(productRepo)
	require.NoError(t, err)
	categorySvc, err := product.NewCategoryService(productRepo)
	require.NoError(t, err)

	ordersSvc, err := orders.NewService(orders.ServiceParams{
		Repo:      orders.NewRepository(conn),
		Tx:        dbClient,
		Inventory: product.NewInventory(),
	})
	require.NoError(t, err)

	checkoutSvc, err := checkout.NewService(checkout.ServiceParams{
		Orders:   ordersSvc,
		Contacts: userRepo,
		Config:   cfg.Checkout,
		Logger:   logg,
		Metrics:  cartMetrics,
	})
	require.NoError(t, err)

	manager, err := cart.NewManager(cart.ManagerParams{Slot: cart.NewMemorySlot(), Logger: logg, Metrics: cartMetrics})
	require.NoError(t, err)
	t.Cleanup(manager.Close)

	handler := NewRouter(cfg, logg, Services{
		DB:         dbClient,
		Metrics:    promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Auth:       authSvc,
		Products:   productSvc,
		Categories: categorySvc,
		Orders:     ordersSvc,
		Checkout:   checkoutSvc,
		Carts:      manager,
	})
	return &testEnv{cfg: cfg, conn: conn, carts: manager, handler: handler}
}

func (e *testEnv) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) token(t *testing.T, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(e.cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{UserID: uuid.New(), Role: role})
	require.NoError(t, err)
	return "Bearer " + token
}

func seedProduct(t *testing.T, conn *gorm.DB, name, price string, stock int) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, Price: decimal.RequireFromString(price), Stock: stock, IsActive: true}
	require.NoError(t, conn.Create(p).Error)
	return p
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health/live", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = env.do(t, http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/admin/v1/orders", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/admin/v1/orders", "", map[string]string{"Authorization": env.token(t, enums.UserRoleUser)})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/admin/v1/orders", "", map[string]string{"Authorization": env.token(t, enums.UserRoleAdmin)})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCartSessionIssuedAndExposedViaCORS(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/cart", "", map[string]string{"Origin": "http://localhost:3000"})
	require.Equal(t, http.StatusOK, rec.Code)
	session := rec.Header().Get(middleware.DefaultCartSessionHeader)
	_, err := uuid.Parse(session)
	require.NoError(t, err)
	require.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), middleware.DefaultCartSessionHeader)
}

func TestRegisterLoginAndAdminSignup(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/auth/register", `{"name":"Ada","email":"Ada@Example.com","password":"longenough"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/v1/auth/login", `{"email":"ada@example.com","password":"longenough"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/admin/v1/auth/signup", `{"name":"Root","email":"root@example.com","password":"longenough","token":"wrong"}`, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/admin/v1/auth/signup", `{"name":"Root","email":"root@example.com","password":"longenough","token":"invite-token"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestCartToWhatsAppCheckout(t *testing.T) {
	env := newTestEnv(t)
	phone := seedProduct(t, env.conn, "Galaxy A15", "199.99", 5)
	cable := seedProduct(t, env.conn, "USB-C Cable", "4.50", 10)

	session := map[string]string{middleware.DefaultCartSessionHeader: uuid.NewString()}
	rec := env.do(t, http.MethodPost, "/api/v1/cart/items", `{"product_id":"`+phone.ID.String()+`"}`, session)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = env.do(t, http.MethodPost, "/api/v1/cart/items", `{"product_id":"`+cable.ID.String()+`","quantity":2}`, session)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/v1/cart/items", `{"product_id":"`+phone.ID.String()+`","quantity":5}`, session)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := `{"full_name":"Ada Lovelace","phone_number":"+250788000000","address":"KG 1 Ave","city":"Kigali"}`
	rec = env.do(t, http.MethodPost, "/api/v1/cart/checkout", body, session)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var envelope struct {
		Data checkout.Result `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Equal(t, 208.99, envelope.Data.Total)
	require.True(t, strings.HasPrefix(envelope.Data.WhatsAppURL, "https://wa.me/250785657398?text="))
	require.Contains(t, envelope.Data.Message, "Galaxy A15")

	var reloaded models.Product
	require.NoError(t, env.conn.First(&reloaded, "id = ?", phone.ID).Error)
	require.Equal(t, 4, reloaded.Stock)

	rec = env.do(t, http.MethodGet, "/api/v1/cart", "", session)
	require.Contains(t, rec.Body.String(), `"items":[]`)

	rec = env.do(t, http.MethodPost, "/api/v1/cart/checkout", body, session)
	require.Equal(t, http.StatusBadRequest, rec.Code, "empty cart cannot be checked out twice")
}

func TestLogoutReleasesCartSession(t *testing.T) {
	env := newTestEnv(t)
	lamp := seedProduct(t, env.conn, "Desk Lamp", "15.00", 4)

	sessionID := uuid.NewString()
	session := map[string]string{middleware.DefaultCartSessionHeader: sessionID}
	rec := env.do(t, http.MethodPost, "/api/v1/cart/items", `{"product_id":"`+lamp.ID.String()+`"}`, session)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, 1, env.carts.ActiveSessions())

	rec = env.do(t, http.MethodPost, "/api/v1/auth/logout", "", session)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), `"success":true`)
	require.Equal(t, 0, env.carts.ActiveSessions())
	require.Empty(t, rec.Header().Get(middleware.DefaultCartSessionHeader))

	var expired *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.DefaultCartSessionCookie && c.MaxAge < 0 {
			expired = c
		}
	}
	require.NotNil(t, expired, "logout should expire the cart session cookie")
}

func TestCategoriesAndAdminProductRoutes(t *testing.T) {
	env := newTestEnv(t)
	admin := map[string]string{"Authorization": env.token(t, enums.UserRoleAdmin)}

	rec := env.do(t, http.MethodPost, "/api/admin/v1/categories", `{"name":"Phones"}`, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/admin/v1/categories", `{"name":"Phones"}`, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = env.do(t, http.MethodPost, "/api/admin/v1/categories", `{"name":"phones"}`, admin)
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/v1/categories", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"name":"Phones"`)

	phone := seedProduct(t, env.conn, "Pixel 8", "499.00", 3)
	rec = env.do(t, http.MethodDelete, "/api/admin/v1/products/"+phone.ID.String(), "", admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/v1/products/"+phone.ID.String(), "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/admin/v1/products/"+phone.ID.String(), "", admin)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"is_active":false`)
}
