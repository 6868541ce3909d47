package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/groenvelt/storefront-bff/api/controllers"
	"github.com/groenvelt/storefront-bff/api/middleware"
	"github.com/groenvelt/storefront-bff/internal/accounts"
	"github.com/groenvelt/storefront-bff/internal/b2b"
	"github.com/groenvelt/storefront-bff/internal/cart"
	"github.com/groenvelt/storefront-bff/internal/catalog"
	"github.com/groenvelt/storefront-bff/internal/checkout"
	"github.com/groenvelt/storefront-bff/internal/content"
	"github.com/groenvelt/storefront-bff/internal/holiday"
	"github.com/groenvelt/storefront-bff/internal/search"
	pkgAuth "github.com/groenvelt/storefront-bff/pkg/auth"
	"github.com/groenvelt/storefront-bff/pkg/auth/session"
	"github.com/groenvelt/storefront-bff/pkg/config"
	"github.com/groenvelt/storefront-bff/pkg/logger"
	"github.com/groenvelt/storefront-bff/pkg/metrics"
	"github.com/groenvelt/storefront-bff/pkg/redis"
)

// Deps bundles everything the router wires into handlers. cmd/api builds
// one of these after bootstrapping clients and services.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	Metrics  *metrics.StorefrontMetrics
	Sessions session.AccessSessionChecker

	DBPinger    controllers.Pinger
	RedisClient *redis.Client
	Search      *search.Searcher

	Holidays *holiday.Provider
	Catalog  *catalog.Service
	Cart     *cart.Service
	Checkout *checkout.Service
	Content  *content.Service
	Accounts *accounts.Service
	B2B      *b2b.Service
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, d.Metrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

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
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"database": d.DBPinger,
			"redis":    d.RedisClient,
			"search":   d.Search,
		}))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListProducts(d.Catalog, logg))
			r.Get("/slug/{slug}", controllers.GetProductBySlug(d.Catalog, logg))
			r.Get("/{productID}", controllers.GetProduct(d.Catalog, logg))
			r.Get("/{productID}/delivery", controllers.ProductDelivery(d.Catalog, logg))
		})

		r.Get("/search", controllers.SearchProducts(d.Search, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Use(middleware.CartSession(logg, cfg.Cart.SessionTTL, cfg.App.IsProd()))
			r.Get("/", controllers.GetCart(d.Cart, logg))
			r.Delete("/", controllers.ClearCart(d.Cart, logg))
			r.Post("/items", controllers.AddCartItem(d.Cart, d.Catalog, logg))
			r.Put("/items/{productID}", controllers.UpdateCartItem(d.Cart, logg))
			r.Delete("/items/{productID}", controllers.RemoveCartItem(d.Cart, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Use(middleware.CartSession(logg, cfg.Cart.SessionTTL, cfg.App.IsProd()))
			r.Post("/", controllers.StartCheckout(d.Checkout, logg))
			r.Get("/confirm", controllers.ConfirmCheckout(d.Checkout, logg))
		})
		r.Post("/webhooks/mollie", controllers.MollieWebhook(d.Checkout, logg))

		r.Route("/content", func(r chi.Router) {
			r.Get("/posts", controllers.ListPosts(d.Content, logg))
			r.Get("/posts/{slug}", controllers.GetPost(d.Content, logg))
			r.Get("/pages/{slug}", controllers.GetPage(d.Content, logg))
		})

		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(loginPolicy, d.RedisClient, logg)).Post("/login", controllers.Login(d.Accounts, logg))
			r.Post("/refresh", controllers.Refresh(d.Accounts, logg))
			r.Post("/logout", controllers.Logout(d.Accounts, logg))
		})

		r.With(middleware.AuthRateLimit(registerPolicy, d.RedisClient, logg)).
			Post("/b2b/register", controllers.RegisterB2B(d.B2B, logg))

		r.Route("/account", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))
			r.Get("/profile", controllers.Profile(d.Accounts, logg))
			r.Put("/profile", controllers.UpdateProfile(d.Accounts, logg))
			r.Get("/orders", controllers.AccountOrders(d.Accounts, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))
		r.Use(middleware.RequireRole(logg, pkgAuth.RoleAdmin))

		r.Route("/b2b/registrations", func(r chi.Router) {
			r.Get("/", controllers.ListB2BRegistrations(d.B2B, logg))
			r.Get("/{registrationID}", controllers.GetB2BRegistration(d.B2B, logg))
			r.Post("/{registrationID}/approve", controllers.ApproveB2BRegistration(d.B2B, logg))
			r.Post("/{registrationID}/reject", controllers.RejectB2BRegistration(d.B2B, logg))
		})

		r.Post("/holidays/reload", controllers.ReloadHolidays(d.Holidays, logg))
	})

	return r
}
