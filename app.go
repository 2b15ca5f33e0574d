package main

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"

	"bookreview/internal/config"
	"bookreview/internal/handlers"
	"bookreview/internal/logger"
	"bookreview/internal/media"
	"bookreview/internal/middleware"
	"bookreview/internal/ratelimit"
	"bookreview/internal/repositories"
	"bookreview/internal/services"
	"bookreview/internal/validation"
	"bookreview/internal/web"
)

const apiPrefix = "/api/v1"

func isAPI(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Path(), apiPrefix+"/") || c.Path() == apiPrefix
}

// NewApp wires repositories, services and handlers into a Fiber app.
// publisher may be nil to disable activity events.
func NewApp(cfg *config.Config, db *gorm.DB, publisher services.EventPublisher) (*fiber.App, error) {
	// --- Initialize Repositories ---
	userRepo := repositories.NewGORMUserRepository(db)
	bookRepo := repositories.NewGORMBookRepository(db)
	reviewRepo := repositories.NewGORMReviewRepository(db)

	thumbnails, err := media.NewStorage(cfg.Media.Root, cfg.Media.MaxUploadBytes)
	if err != nil {
		return nil, err
	}

	// --- Initialize Services ---
	v := validation.New()
	authService := services.NewAuthService(userRepo, v, cfg.Auth.JWTSecret, cfg.Auth.SessionTTL, publisher)
	bookService := services.NewBookService(bookRepo, reviewRepo, thumbnails, v, publisher)
	reviewService := services.NewReviewService(reviewRepo, bookRepo, v, publisher)

	// --- Initialize Handlers ---
	limiter := ratelimit.PerMinute(cfg.Security.LoginRatePerMinute)
	sessions := middleware.NewSessions(authService, cfg.Security.CookieSecure)
	webHandler := web.NewHandler(authService, bookService, reviewService, sessions, limiter, cfg.Media.MaxUploadBytes)
	authHandler := handlers.NewAuthHandler(authService)
	bookHandler := handlers.NewBookHandler(bookService)
	reviewHandler := handlers.NewReviewHandler(reviewService)
	healthHandler := handlers.NewHealthHandler(db, publisher != nil)

	// --- Initialize Fiber App ---
	app := fiber.New(fiber.Config{
		AppName:   "bookreview",
		Views:     web.NewEngine(cfg.Media.URL),
		BodyLimit: int(cfg.Media.MaxUploadBytes) + 1<<20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if isAPI(c) {
				return handlers.ErrorHandler(c, err)
			}
			return web.ErrorHandler(c, err)
		},
	})
	app.Hooks().OnShutdown(func() error {
		limiter.Stop()
		return nil
	})

	// --- Middleware ---
	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Output: logger.Log.Writer(),
	}))

	app.Static(cfg.Media.URL, cfg.Media.Root, fiber.Static{MaxAge: 3600})
	healthHandler.RegisterRoutes(app)

	// --- API Routes ---
	apiV1 := app.Group(apiPrefix)
	apiV1.Use("/auth", middleware.RateLimit(limiter, nil))
	authHandler.RegisterRoutes(apiV1)

	protectedRoutes := apiV1.Group("", middleware.AuthRequired(authService))
	authHandler.RegisterAccountRoutes(protectedRoutes)
	bookHandler.RegisterRoutes(protectedRoutes)
	reviewHandler.RegisterRoutes(protectedRoutes)

	// --- HTML Routes ---
	loadSession := sessions.Load()
	app.Use(func(c *fiber.Ctx) error {
		if isAPI(c) {
			return c.Next()
		}
		return loadSession(c)
	})
	app.Use(csrf.New(csrf.Config{
		Next: func(c *fiber.Ctx) bool {
			return !cfg.Security.CSRFEnabled || isAPI(c)
		},
		KeyLookup:      "form:_csrf",
		CookieName:     "bookreview_csrf",
		CookieSameSite: "Lax",
		CookieSecure:   cfg.Security.CookieSecure,
		CookieHTTPOnly: true,
		ContextKey:     "csrf",
	}))
	app.Use(middleware.Flashes())
	webHandler.RegisterRoutes(app)

	return app, nil
}
