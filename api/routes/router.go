package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/smartdot/storefront-backend/api/controllers"
	cartcontrollers "github.com/smartdot/storefront-backend/api/controllers/cart"
	ordercontrollers "github.com/smartdot/storefront-backend/api/controllers/orders"
	"github.com/smartdot/storefront-backend/api/middleware"
	"github.com/smartdot/storefront-backend/internal/auth"
	checkoutsvc "github.com/smartdot/storefront-backend/internal/checkout"
	"github.com/smartdot/storefront-backend/internal/orders"
	products "github.com/smartdot/storefront-backend/internal/products"
	"github.com/smartdot/storefront-backend/pkg/config"
	"github.com/smartdot/storefront-backend/pkg/enums"
	"github.com/smartdot/storefront-backend/pkg/logger"
	"github.com/smartdot/storefront-backend/pkg/redis"
)

// CartSessions hands out cart stores and tears them down on logout.
type CartSessions interface {
	cartcontrollers.Sessions
	controllers.CartReleaser
}

// Services groups the handlers' dependencies. Redis and Metrics may be nil.
type Services struct {
	DB         controllers.Pinger
	Redis      *redis.Client
	Metrics    http.Handler
	Auth       auth.Service
	Products   products.Service
	Categories products.CategoryService
	Orders     orders.Service
	Checkout   checkoutsvc.Service
	Carts      CartSessions
}

func NewRouter(cfg *config.Config, logg *logger.Logger, svc Services) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins, cfg.Cart.SessionHeader),
	)

	// a nil *redis.Client must not reach the middleware as a non-nil interface
	var (
		rateStore        middleware.RateLimitStore
		idempotencyStore redis.IdempotencyStore
		readiness        = []controllers.Dependency{{Name: "db", Pinger: svc.DB}}
	)
	if svc.Redis != nil {
		rateStore = svc.Redis
		idempotencyStore = svc.Redis
		readiness = append(readiness, controllers.Dependency{Name: "redis", Pinger: svc.Redis})
	}
	idempotent := middleware.Idempotency(idempotencyStore, logg)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readiness, logg))
	})

	if svc.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", svc.Metrics)
	}

	cartSessionOpts := middleware.CartSessionOptions{
		Header:       cfg.Cart.SessionHeader,
		Cookie:       cfg.Cart.SessionCookie,
		CookieMaxAge: cfg.Cart.MaxAge,
		Secure:       cfg.Cart.CookieSecure,
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, rateStore, logg)).Post("/login", controllers.AuthLogin(svc.Auth, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, rateStore, logg), idempotent).Post("/register", controllers.AuthRegister(svc.Auth, logg))
		r.With(middleware.CartSession(cartSessionOpts, logg)).Post("/logout", controllers.AuthLogout(svc.Carts, cartSessionOpts, logg))
	})

	r.Route("/api/admin/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, rateStore, logg)).Post("/login", controllers.AuthLogin(svc.Auth, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, rateStore, logg), idempotent).Post("/signup", controllers.AdminSignup(svc.Auth, logg))
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ProductsList(svc.Products, logg))
		r.Get("/{productId}", controllers.ProductGet(svc.Products, logg))
	})

	r.Get("/api/v1/categories", controllers.CategoriesList(svc.Categories, logg))

	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(
			middleware.OptionalAuth(cfg.JWT, logg),
			middleware.CartSession(cartSessionOpts, logg),
		)
		r.Get("/", cartcontrollers.Get(svc.Carts, logg))
		r.Delete("/", cartcontrollers.Clear(svc.Carts, logg))
		r.Get("/events", cartcontrollers.Events(svc.Carts, logg))
		r.Post("/items", cartcontrollers.AddItem(svc.Carts, svc.Products, logg))
		r.Get("/items/{itemId}", cartcontrollers.ItemStatus(svc.Carts, logg))
		r.Patch("/items/{itemId}", cartcontrollers.UpdateItem(svc.Carts, logg))
		r.Delete("/items/{itemId}", cartcontrollers.RemoveItem(svc.Carts, logg))
		r.With(idempotent).Post("/checkout", cartcontrollers.Checkout(svc.Carts, svc.Checkout, logg))
	})

	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Get("/latest", ordercontrollers.Latest(svc.Orders, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(
			middleware.Auth(cfg.JWT, logg),
			middleware.RequireRole(logg, enums.UserRoleAdmin),
		)

		r.Get("/orders", ordercontrollers.AdminList(svc.Orders, logg))
		r.Get("/orders/{orderId}", ordercontrollers.AdminGet(svc.Orders, logg))
		r.With(idempotent).Patch("/orders/{orderId}/status", ordercontrollers.AdminUpdateStatus(svc.Orders, logg))

		r.Get("/products", controllers.AdminProductsList(svc.Products, logg))
		r.With(idempotent).Post("/products", controllers.AdminCreateProduct(svc.Products, logg))
		r.Get("/products/{productId}", controllers.AdminProductGet(svc.Products, logg))
		r.Patch("/products/{productId}", controllers.AdminUpdateProduct(svc.Products, logg))
		r.Delete("/products/{productId}", controllers.AdminDeleteProduct(svc.Products, logg))

		r.Get("/categories", controllers.CategoriesList(svc.Categories, logg))
		r.With(idempotent).Post("/categories", controllers.AdminCreateCategory(svc.Categories, logg))

		r.Get("/admins", controllers.AdminListAdmins(svc.Auth, logg))
		r.With(idempotent).Post("/admins", controllers.AdminCreateAdmin(svc.Auth, logg))
	})

	return r
}
