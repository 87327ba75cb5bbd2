package router

import (
	"strings"

	"github.com/anonto42/warbler/internal/handlers"
	"github.com/anonto42/warbler/internal/middleware"
	"github.com/anonto42/warbler/internal/monitoring"
	"github.com/anonto42/warbler/internal/render"
	"github.com/anonto42/warbler/internal/repositories"
	"github.com/anonto42/warbler/pkg/config"
	"github.com/anonto42/warbler/validators"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Dependencies are the stores and integrations the routes are built from.
// Activities, LoginAttempts, Firebase and Images fall back to local
// implementations or stay disabled when nil.
type Dependencies struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *gorm.DB

	Sessions      sessions.Store
	Activities    repositories.ActivityRepository
	LoginAttempts repositories.LoginAttemptRepository
	Firebase      handlers.TokenVerifier
	Images        handlers.ImageStore
}

// New builds the echo instance with every middleware and route installed
func New(deps Dependencies) (*echo.Echo, error) {
	renderer, err := render.New()
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.Renderer = renderer
	e.Validator = validators.NewValidator()
	e.HTTPErrorHandler = handlers.NewHTTPErrorHandler(e, deps.Logger.Sugar())

	SetupMiddleware(e, deps)
	SetupRoutes(e, deps)
	return e, nil
}

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo, deps Dependencies) {
	cfg := deps.Config
	sugar := deps.Logger.Sugar()

	config.SetupMiddleware(e, cfg, deps.Logger)
	if cfg.MetricsEnabled {
		e.Use(monitoring.Instrument)
	}

	store := deps.Sessions
	if store == nil {
		store = middleware.NewCookieStore(cfg.SecretKey, cfg.SecureCookies)
	}
	e.Use(middleware.Sessions(store))
	e.Use(middleware.LoadUser(repositories.NewPostgresUserRepository(deps.DB), sugar))

	if cfg.CSRFEnabled {
		e.Use(eMiddleware.CSRFWithConfig(eMiddleware.CSRFConfig{
			TokenLookup:    "form:csrf_token",
			CookiePath:     "/",
			CookieHTTPOnly: true,
			CookieSecure:   cfg.SecureCookies,
			Skipper: func(c echo.Context) bool {
				return isAPIRequest(c) || c.Path() == "/metrics" || c.Path() == "/health"
			},
		}))
	}
	sugar.Info("Global middleware configured.")
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, deps Dependencies) {
	cfg := deps.Config
	sugar := deps.Logger.Sugar()

	e.GET("/health", handlers.HealthCheck)
	if cfg.MetricsEnabled {
		e.GET("/metrics", monitoring.Handler())
	}
	e.Static("/static", cfg.StaticDir)

	// --- Initialize Repositories ---
	userRepo := repositories.NewPostgresUserRepository(deps.DB)
	messageRepo := repositories.NewPostgresMessageRepository(deps.DB)
	followRepo := repositories.NewPostgresFollowRepository(deps.DB)
	likeRepo := repositories.NewPostgresLikeRepository(deps.DB)

	activityRepo := deps.Activities
	if activityRepo == nil {
		activityRepo = repositories.NewPostgresActivityRepository(deps.DB)
	}
	attemptsRepo := deps.LoginAttempts
	if attemptsRepo == nil {
		attemptsRepo = repositories.NewMemoryLoginAttemptRepository()
	}

	// --- Handlers ---
	authHandler := handlers.NewAuthHandler(userRepo, attemptsRepo, deps.Firebase, cfg.JWTSecret, sugar)
	feedHandler := handlers.NewFeedHandler(userRepo, messageRepo, followRepo, likeRepo)
	userHandler := handlers.NewUserHandler(userRepo, messageRepo, followRepo, likeRepo, activityRepo, deps.Images, sugar)
	followHandler := handlers.NewFollowHandler(followRepo, userRepo, activityRepo, sugar)
	likeHandler := handlers.NewLikeHandler(likeRepo, messageRepo, activityRepo, sugar)
	messageHandler := handlers.NewMessageHandler(messageRepo, likeRepo)
	notificationHandler := handlers.NewNotificationHandler(activityRepo, userRepo)

	// --- Site routes (session authentication) ---
	authHandler.RegisterAuthRoutes(e)
	feedHandler.RegisterFeedRoutes(e)
	userHandler.RegisterUserRoutes(e)
	followHandler.RegisterFollowRoutes(e)
	likeHandler.RegisterLikeRoutes(e)
	messageHandler.RegisterMessageRoutes(e)
	notificationHandler.RegisterNotificationRoutes(e)
	sugar.Info("Site routes configured.")

	// --- Unprotected API routes for authentication ---
	authGroup := e.Group("/api/v1")
	authHandler.RegisterAPIAuthRoutes(authGroup)

	// --- Protected API routes (require JWT authentication) ---
	api := e.Group("/api/v1", middleware.JWTAuthMiddleware(cfg.JWTSecret), middleware.RequireTokenUser(userRepo))
	userHandler.RegisterAPIUserRoutes(api)
	feedHandler.RegisterAPIFeedRoutes(api)
	messageHandler.RegisterAPIMessageRoutes(api)
	likeHandler.RegisterAPILikeRoutes(api)
	followHandler.RegisterAPIFollowRoutes(api)
	sugar.Info("API routes configured.")
}

func isAPIRequest(c echo.Context) bool {
	return strings.HasPrefix(c.Request().URL.Path, "/api/")
}
