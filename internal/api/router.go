package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoswagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	_ "github.com/identikit/identity-api/docs"
	"github.com/identikit/identity-api/internal/api/handler"
	"github.com/identikit/identity-api/internal/api/middleware"
	"github.com/identikit/identity-api/internal/core/domain"
	"github.com/identikit/identity-api/internal/core/service"
	"github.com/identikit/identity-api/internal/infrastructure/config"
	mongostore "github.com/identikit/identity-api/internal/infrastructure/db/mongo"
)

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(db *mongo.Database, cfg *config.Config, log zerolog.Logger) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("identity"))

	// --- Dependencies ---
	users := mongostore.NewUserRepository(db)
	roles := mongostore.NewRoleRepository(db)

	issuer, err := service.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Audience)
	if err != nil {
		return nil, err
	}

	identity := service.NewIdentityService(users, roles, issuer)
	identityHandler := handler.NewIdentityHandler(identity)

	auth := middleware.Auth(middleware.AuthConfig{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
	})

	// --- Auth routes ---
	g := e.Group("/api/auth")
	g.POST("/register", identityHandler.Register)
	g.POST("/login", identityHandler.Login)
	g.GET("/debug", identityHandler.Debug, auth)
	g.GET("/detail", identityHandler.Detail, auth)
	g.GET("/users", identityHandler.Users)
	g.DELETE("/delete/:id", identityHandler.Delete, auth, middleware.RBAC(domain.RoleAdmin))

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(db)

	e.GET("/health", healthHandler.Liveness)           // liveness  – is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness – are dependencies up?

	// --- Observability & docs ---
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoswagger.WrapHandler)

	return e, nil
}
