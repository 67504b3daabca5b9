// Package server wires repositories, services and handlers into one gin engine.
package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"schoolbooking/internal/config"
	"schoolbooking/internal/middleware"
	"schoolbooking/internal/modules/auth"
	"schoolbooking/internal/modules/realtime"
	"schoolbooking/internal/modules/reservations"
	"schoolbooking/internal/modules/resources"
	"schoolbooking/internal/modules/settings"
	"schoolbooking/internal/modules/users"
	"schoolbooking/internal/pkg/jwt"
	"schoolbooking/internal/pkg/lock"
	"schoolbooking/internal/repository"
)

// lockWait bounds how long a request queues behind another write on the same resource.
const lockWait = 5 * time.Second

type Options struct {
	Config *config.Config
	DB     *gorm.DB
	// Redis is optional. Without it settings are not cached and locks are in-process.
	Redis  *redis.Client
	Logger zerolog.Logger
}

type App struct {
	Router       *gin.Engine
	Hub          *realtime.Hub
	JWT          *jwt.Service
	Users        *users.Service
	Settings     *settings.Service
	Resources    *resources.Service
	Reservations *reservations.Service
}

func New(opts Options) *App {
	cfg := opts.Config
	logger := opts.Logger
	loc := cfg.Location()

	userRepo := repository.NewUserRepository(opts.DB)
	resourceRepo := repository.NewResourceRepository(opts.DB)
	reservationRepo := repository.NewReservationRepository(opts.DB)
	settingsRepo := repository.NewSettingsRepository(opts.DB)
	tx := repository.NewTransactor(opts.DB)

	j := jwt.New(cfg.Auth.JWTSecret, cfg.TokenTTL())
	hub := realtime.NewHub(logger)

	var locker lock.Locker = lock.NewLocalLocker()
	settingsService := settings.NewService(settingsRepo, hub, logger)
	if opts.Redis != nil {
		settingsService.UseRedisCache(opts.Redis, cfg.CacheTTL())
		locker = lock.NewRedisLocker(opts.Redis, cfg.LockTTL(), lockWait)
	}

	usersService := users.NewService(userRepo, hub, logger)
	authService := auth.NewService(userRepo, usersService, j, cfg.TokenTTL(), logger)
	resourcesService := resources.NewService(resourceRepo, reservationRepo, settingsService, hub, loc, logger)
	reservationsService := reservations.NewService(reservations.Deps{
		Reservations: reservationRepo,
		Resources:    resourceRepo,
		Users:        userRepo,
		Settings:     settingsService,
		Tx:           tx,
		Locker:       locker,
		Publisher:    hub,
		Location:     loc,
		Logger:       logger,
	})

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.RequestLogger(logger),
		middleware.Metrics(),
		middleware.CORS(cfg.HTTP.CORSAllowedOrigins),
	)

	health := NewHealth(opts.DB, opts.Redis)
	health.RegisterRoutes(r)

	realtime.NewHandler(hub, j, cfg.HTTP.CORSAllowedOrigins).RegisterRoutes(r)

	loginLimiter := middleware.NewIPRateLimiter(cfg.Auth.LoginPerMinute, cfg.Auth.LoginBurst)

	v1 := r.Group("/api/v1")
	authHandler := auth.NewHandler(authService)
	authHandler.RegisterPublicRoutes(v1, loginLimiter.Middleware())

	protected := v1.Group("")
	protected.Use(middleware.JWTAuth(j))
	{
		authHandler.RegisterProtectedRoutes(protected)
		users.NewHandler(usersService).RegisterRoutes(protected)
		settings.NewHandler(settingsService).RegisterRoutes(protected)
		resources.NewHandler(resourcesService).RegisterRoutes(protected)
		reservations.NewHandler(reservationsService).RegisterRoutes(protected)
	}

	return &App{
		Router:       r,
		Hub:          hub,
		JWT:          j,
		Users:        usersService,
		Settings:     settingsService,
		Resources:    resourcesService,
		Reservations: reservationsService,
	}
}
