package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	checkoutsvc "github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/loyalty"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient *redis.Client,
	metricsHandler http.Handler,
	cartService cart.Service,
	loyaltyService loyalty.Service,
	engine *pricing.Engine,
	checkoutService checkoutsvc.Service,
	ordersService orders.Service,
	ledgerHistory controllers.HistoryReader,
	deadLetters controllers.DeadLetterLister,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins...),
	)

	limited := rateLimiter(cfg.RateLimit, redisClient, logg)

	deps := map[string]controllers.Pinger{}
	if dbP != nil {
		deps["db"] = dbP
	}
	if redisClient != nil {
		deps["redis"] = redisClient
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps))
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(cartService, logg))
			r.Delete("/", controllers.CartEmpty(cartService, logg))
			r.Post("/items", controllers.CartAddItem(cartService, logg))
			r.Patch("/items", controllers.CartUpdateItem(cartService, logg))
			r.Delete("/items", controllers.CartRemoveItem(cartService, logg))
		})

		r.Post("/pricing/quote", controllers.PricingQuote(cartService, loyaltyService, engine, logg))

		r.Route("/loyalty", func(r chi.Router) {
			r.Get("/", controllers.LoyaltyFetch(loyaltyService, cartService, logg))
			r.Post("/refresh", controllers.LoyaltyRefresh(loyaltyService, cartService, logg))
			r.Get("/history", controllers.LoyaltyHistory(ledgerHistory, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", controllers.CheckoutFetch(checkoutService, logg))
			r.Post("/begin", controllers.CheckoutBegin(checkoutService, logg))
			r.Put("/info", controllers.CheckoutInfo(checkoutService, logg))
			r.Put("/redemption", controllers.CheckoutRedemption(checkoutService, logg))
			r.With(limited("checkout_payment")).Post("/payment", controllers.CheckoutPayment(checkoutService, logg))
			r.With(limited("checkout_payment")).Post("/retry", controllers.CheckoutRetry(checkoutService, logg))
			r.Post("/back", controllers.CheckoutBack(checkoutService, logg))
			r.Post("/cancel", controllers.CheckoutCancel(checkoutService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.With(limited("orders")).Post("/", controllers.OrdersPlace(ordersService, logg))
			r.Get("/", controllers.OrdersList(ordersService, logg))
			r.Get("/{orderId}", controllers.OrdersDetail(ordersService, logg))
		})

		r.Get("/profile", controllers.ProfileFetch(ordersService, logg))

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.CustomerRoleAdmin))
			r.Get("/customers/{customerId}/loyalty/history", controllers.AdminLoyaltyHistory(ledgerHistory, logg))
			if deadLetters != nil {
				r.Get("/outbox/dead-letters", controllers.AdminDeadLetters(deadLetters, logg))
			}
		})
	})

	return r
}

func rateLimiter(cfg config.RateLimitConfig, redisClient *redis.Client, logg *logger.Logger) func(name string) func(http.Handler) http.Handler {
	return func(name string) func(http.Handler) http.Handler {
		if redisClient == nil {
			return func(next http.Handler) http.Handler { return next }
		}
		return middleware.RateLimit(middleware.RateLimitPolicy{
			Name:          name,
			Window:        cfg.Window,
			IPLimit:       cfg.IPLimit,
			CustomerLimit: cfg.CustomerLimit,
		}, redisClient, logg)
	}
}
