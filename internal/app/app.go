package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"membership-auth/internal/config"
	"membership-auth/internal/database"
	"membership-auth/internal/handler"
	"membership-auth/internal/mailer"
	"membership-auth/internal/middleware"
	"membership-auth/internal/observability"
	"membership-auth/internal/repository"
	"membership-auth/internal/router"
	"membership-auth/internal/service"
)

type App struct {
	server       *http.Server
	db           *database.DB
	cleanupFuncs []func()
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := observability.InitSentry(cfg.SentryDSN, cfg.Environment); err != nil {
		return nil, fmt.Errorf("failed to initialize sentry: %w", err)
	}

	slog.Info("connecting to PostgreSQL")
	db, err := database.New(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}

	pool := db.Pool
	userRepo := repository.NewUserRepository(pool)
	roleRepo := repository.NewRoleRepository(pool)
	otpRepo := repository.NewOtpRepository(pool)
	slog.Info("database ready")

	var sender service.Sender
	if cfg.SMTPHost != "" {
		sender = mailer.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.FromEmail)
	} else {
		slog.Warn("SMTP_HOST not set; email delivery disabled")
		sender = mailer.LogSender{}
	}

	tokenService, err := service.NewTokenService(cfg.JWTSecret, cfg.SessionTTL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}
	otpService := service.NewOtpService(otpRepo, sender, cfg.OtpTTL)
	authService := service.NewAuthService(userRepo, roleRepo, otpService, tokenService, sender, cfg.BcryptCost)
	roleService := service.NewRoleService(roleRepo)

	authMiddleware := middleware.NewAuthMiddleware(tokenService, userRepo, cfg.StrictOtpGate)
	authHandler := handler.NewAuthHandler(authService)
	roleHandler := handler.NewRoleHandler(roleService)

	appRouter := router.New(cfg, authMiddleware, authHandler, roleHandler)

	sweeper := service.NewSweeper(userRepo, tokenService, cfg.SweepInterval)
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	go sweeper.Run(sweepCtx)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{
		server: server,
		db:     db,
		cleanupFuncs: []func(){
			func() {
				sweepCancel()
			},
			func() {
				db.Close()
			},
			func() {
				observability.FlushSentry()
			},
		},
	}, nil
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}

	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
