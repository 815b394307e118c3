package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/cart"
	ordercontrollers "github.com/angelmondragon/storefront-backend/api/controllers/orders"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

// Store is the Redis surface the router hands to rate limiting, idempotency
// and readiness checks. *redis.Client satisfies it.
type Store interface {
	middleware.RateLimiterStore
	redis.IdempotencyStore
	controllers.Pinger
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	store Store,
	sessionChecker session.AccessSessionChecker,
	httpMetrics *metrics.HTTPMetrics,
	metricsHandler http.Handler,
	authService auth.Service,
	usersService users.Service,
	productService products.Service,
	cartService cart.Service,
	ordersService orders.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(logg),
		middleware.Recoverer(logg),
		middleware.Tracing(),
		middleware.Metrics(httpMetrics),
		middleware.AccessLog(logg),
		middleware.CORS(cfg.CORS),
	)

	// The middlewares treat a nil store as disabled, so it must stay a nil interface.
	var (
		rateStore   middleware.RateLimiterStore
		idemStore   redis.IdempotencyStore
		readinessDB = map[string]controllers.Pinger{"db": dbP}
	)
	if store != nil {
		rateStore = store
		idemStore = store
		readinessDB["redis"] = store
	}
	idempotent := middleware.Idempotency(idemStore, cfg.Idempotency.TTL, logg)

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
	forgotPolicy := middleware.NewAuthRateLimitPolicy(
		"forgot_password",
		cfg.AuthRateLimit.ForgotWindow,
		cfg.AuthRateLimit.ForgotIPLimit,
		cfg.AuthRateLimit.ForgotEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readinessDB))
	})
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, rateStore, logg)).Post("/login", controllers.AuthLogin(authService, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, rateStore, logg)).Post("/register", controllers.AuthRegister(authService, logg))
		r.Post("/refresh", controllers.AuthRefresh(authService, logg))
		r.With(middleware.AuthRateLimit(forgotPolicy, rateStore, logg)).Post("/password/forgot", controllers.AuthForgotPassword(authService, logg))
		r.Post("/password/reset", controllers.AuthResetPassword(authService, logg))
		r.With(middleware.Auth(cfg.JWT, sessionChecker, logg)).Post("/logout", controllers.AuthLogout(authService, logg))
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ProductsList(productService, logg))
		r.Get("/{productId}", controllers.ProductDetail(productService, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionChecker, logg))

		r.Route("/profile", func(r chi.Router) {
			r.Get("/", controllers.ProfileGet(usersService, logg))
			r.Put("/", controllers.ProfileUpdate(usersService, logg))
			r.Delete("/", controllers.ProfileDelete(usersService, logg))
			r.Put("/password", controllers.ProfileChangePassword(usersService, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartcontrollers.List(cartService, logg))
			r.Delete("/", cartcontrollers.Clear(cartService, logg))
			r.Post("/add", cartcontrollers.Add(cartService, logg))
			r.With(idempotent).Post("/checkout", cartcontrollers.Checkout(cartService, logg))
			r.Put("/{itemId}", cartcontrollers.UpdateQuantity(cartService, logg))
			r.Delete("/{itemId}", cartcontrollers.Remove(cartService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.List(ordersService, logg))
			r.Get("/cancelled", ordercontrollers.ListCancelled(ordersService, logg))
			r.With(idempotent).Post("/create", ordercontrollers.Create(ordersService, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(ordersService, logg))
			r.With(idempotent).Post("/{orderId}/cancel", ordercontrollers.Cancel(ordersService, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.UserRoleAdmin, logg))

			r.Route("/users", func(r chi.Router) {
				r.Get("/", controllers.AdminUsersList(usersService, logg))
				r.Get("/{userId}", controllers.AdminUserDetail(usersService, logg))
				r.Put("/{userId}", controllers.AdminUserUpdate(usersService, logg))
				r.Delete("/{userId}", controllers.AdminUserDelete(usersService, logg))
			})

			r.Route("/products", func(r chi.Router) {
				r.Get("/", controllers.AdminProductsList(productService, logg))
				r.Post("/", controllers.AdminProductCreate(productService, logg))
				r.Put("/{productId}", controllers.AdminProductUpdate(productService, logg))
				r.Delete("/{productId}", controllers.AdminProductDelete(productService, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.AdminOrdersList(ordersService, logg))
				r.With(idempotent).Post("/{orderId}/status", controllers.AdminOrderStatus(ordersService, logg))
			})
		})
	})

	return r
}
