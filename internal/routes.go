package internal

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/karloscodes/cartridge"
	cartridgemiddleware "github.com/karloscodes/cartridge/middleware"

	v1 "linkfolio/api/v1"
	"linkfolio/internal/config"
	"linkfolio/internal/http"
	"linkfolio/internal/http/middleware"
)

// publicCORSConfig is shared by every public endpoint. The tracker script is
// embedded on arbitrary visitor pages, so CORS must be permissive.
var publicCORSConfig = &cors.Config{
	AllowOrigins: "*",
	AllowMethods: "POST,GET,OPTIONS",
	AllowHeaders: "Origin, Content-Type, Accept, Authorization, Referrer, User-Agent",
}

// SetupSession configures session management on the server.
func SetupSession(srv *cartridge.Server) {
	cfg := config.GetConfig()
	sessionMgr := cartridge.NewSessionManager(cartridge.SessionConfig{
		CookieName: cfg.AppName + "_session",
		Secret:     cfg.GetSessionSecret(),
		TTL:        time.Duration(cfg.GetLoginSessionTimeout()) * time.Second,
		Secure:     cfg.IsProduction(),
		LoginPath:  "/login",
	})
	srv.SetSession(sessionMgr)
}

// MountAppRoutes mounts all application routes using cartridge's route API.
func MountAppRoutes(srv *cartridge.Server) {
	SetupSession(srv)
	MountAppRoutesWithoutSession(srv)
}

// MountAppRoutesWithoutSession mounts routes without setting up session.
// Useful for embedding the route table under an externally managed session.
func MountAppRoutesWithoutSession(srv *cartridge.Server) {
	cfg := config.GetConfig()
	sessionMgr := srv.Session()

	// Rate limiting only applies in production; in development and test it
	// would interfere with rapid-fire requests.
	conditionalRateLimiter := func(limiter fiber.Handler) fiber.Handler {
		return func(c *fiber.Ctx) error {
			if cfg.IsProduction() {
				return limiter(c)
			}
			return c.Next()
		}
	}

	// Public ingestion traffic: 70 requests per minute per IP handles real
	// visitor volume while capping abuse.
	publicRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
		cartridgemiddleware.WithMax(70),
		cartridgemiddleware.WithDuration(time.Minute),
	))

	// Stricter limit on auth endpoints to slow brute force attempts.
	authRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
		cartridgemiddleware.WithMax(10),
		cartridgemiddleware.WithDuration(time.Minute),
	))

	// Public ingestion API: rate limiting + permissive CORS. CORS runs first
	// so rejected requests still carry CORS headers.
	publicAPIConfig := &cartridge.RouteConfig{
		EnableCORS:       true,
		WriteConcurrency: false,
		CustomMiddleware: []fiber.Handler{publicRateLimiter},
		CORSConfig:       publicCORSConfig,
	}

	// Tracker script delivery: GET-only, rate limited, CORS for embedding.
	trackerConfig := &cartridge.RouteConfig{
		EnableCORS:       true,
		CustomMiddleware: []fiber.Handler{publicRateLimiter},
		CORSConfig:       publicCORSConfig,
	}

	db := srv.GetDBManager().GetConnection()
	logger := srv.GetLogger()

	// Authenticated dashboard API.
	dashboardConfig := &cartridge.RouteConfig{
		CustomMiddleware: []fiber.Handler{
			sessionMgr.Middleware(),
		},
	}

	// Public page rendition: slug resolved by middleware, rate limited.
	publicPageConfig := &cartridge.RouteConfig{
		CustomMiddleware: []fiber.Handler{
			publicRateLimiter,
			middleware.PageFilter(db, logger),
		},
	}

	// Shared analytics: token-scoped read access, rate limited.
	sharedConfig := &cartridge.RouteConfig{
		CustomMiddleware: []fiber.Handler{publicRateLimiter},
	}

	// === HEALTH ===
	srv.Get("/_health", http.HealthIndexAction)
	srv.Head("/_health", http.HealthIndexAction)

	// === PUBLIC INGESTION API ===
	srv.Post("/api/v1/views", v1.CreatePageViewHandler, publicAPIConfig)
	srv.Options("/api/v1/views", func(ctx *cartridge.Context) error {
		return ctx.SendStatus(fiber.StatusNoContent)
	}, publicAPIConfig)
	srv.Post("/api/v1/views/beacon", v1.CreatePageViewBeaconHandler, publicAPIConfig)
	srv.Options("/api/v1/views/beacon", func(ctx *cartridge.Context) error {
		return ctx.SendStatus(fiber.StatusNoContent)
	}, publicAPIConfig)
	srv.Post("/api/v1/clicks", v1.CreateLinkClickHandler, publicAPIConfig)
	srv.Options("/api/v1/clicks", func(ctx *cartridge.Context) error {
		return ctx.SendStatus(fiber.StatusNoContent)
	}, publicAPIConfig)
	srv.Post("/api/v1/clicks/beacon", v1.CreateLinkClickBeaconHandler, publicAPIConfig)
	srv.Options("/api/v1/clicks/beacon", func(ctx *cartridge.Context) error {
		return ctx.SendStatus(fiber.StatusNoContent)
	}, publicAPIConfig)

	// === TRACKER SCRIPT ===
	srv.Get("/api/v1/tracker.js", v1.GetTrackerAction, trackerConfig)

	// === PUBLIC PAGE ===
	srv.Get("/p/:slug", http.PublicPageAction, publicPageConfig)

	// === SHARED ANALYTICS ===
	srv.Get("/share/:token/summary", http.SharedSummaryAction, sharedConfig)
	srv.Get("/share/:token/daily", http.SharedDailyAction, sharedConfig)
	srv.Get("/share/:token/links", http.SharedLinksAction, sharedConfig)
	srv.Get("/share/:token/devices", http.SharedDevicesAction, sharedConfig)
	srv.Get("/share/:token/countries", http.SharedCountriesAction, sharedConfig)
	srv.Get("/share/:token/sources", http.SharedSourcesAction, sharedConfig)

	// === AUTHENTICATION ===
	loginConfig := &cartridge.RouteConfig{
		CustomMiddleware: []fiber.Handler{authRateLimiter},
	}
	srv.Post("/login", http.ProcessLoginAction, loginConfig)
	srv.Post("/logout", http.LogoutAction)

	// === DASHBOARD API ===
	srv.Get("/api/me", http.MeAction, dashboardConfig)
	srv.Post("/api/account/change-password", http.AccountChangePasswordAction, dashboardConfig)

	srv.Get("/api/pages", http.PagesIndexAction, dashboardConfig)
	srv.Post("/api/pages", http.PageCreateAction, dashboardConfig)
	srv.Get("/api/pages/availability", http.SlugAvailabilityAction, dashboardConfig)
	srv.Get("/api/pages/:id", http.PageShowAction, dashboardConfig)
	srv.Post("/api/pages/:id", http.PageUpdateAction, dashboardConfig)
	srv.Delete("/api/pages/:id", http.PageDeleteAction, dashboardConfig)

	srv.Get("/api/pages/:id/links", http.LinksIndexAction, dashboardConfig)
	srv.Post("/api/pages/:id/links", http.LinkCreateAction, dashboardConfig)
	srv.Post("/api/pages/:id/links/:linkId", http.LinkUpdateAction, dashboardConfig)
	srv.Delete("/api/pages/:id/links/:linkId", http.LinkDeleteAction, dashboardConfig)
	srv.Post("/api/pages/:id/links/:linkId/reorder", http.LinkReorderAction, dashboardConfig)

	srv.Post("/api/pages/:id/share/enable", http.EnableShareAction, dashboardConfig)
	srv.Post("/api/pages/:id/share/disable", http.DisableShareAction, dashboardConfig)

	srv.Get("/api/analytics/summary", http.AnalyticsSummaryAction, dashboardConfig)
	srv.Get("/api/analytics/daily", http.AnalyticsDailyAction, dashboardConfig)
	srv.Get("/api/analytics/links", http.AnalyticsLinksAction, dashboardConfig)
	srv.Get("/api/analytics/devices", http.AnalyticsDevicesAction, dashboardConfig)
	srv.Get("/api/analytics/countries", http.AnalyticsCountriesAction, dashboardConfig)
	srv.Get("/api/analytics/sources", http.AnalyticsSourcesAction, dashboardConfig)

	// === BILLING ===
	srv.Post("/api/billing/upgrade", http.BillingUpgradeAction, dashboardConfig)
	srv.Post("/api/billing/complete", http.BillingCompleteAction, dashboardConfig)
}
