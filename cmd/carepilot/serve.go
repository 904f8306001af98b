package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/carepilot/carepilot/internal/config"
	"github.com/carepilot/carepilot/internal/domain/account"
	"github.com/carepilot/carepilot/internal/domain/benefits"
	"github.com/carepilot/carepilot/internal/domain/claims"
	"github.com/carepilot/carepilot/internal/domain/dashboard"
	"github.com/carepilot/carepilot/internal/domain/directory"
	"github.com/carepilot/carepilot/internal/domain/labs"
	"github.com/carepilot/carepilot/internal/domain/scheduling"
	"github.com/carepilot/carepilot/internal/platform/auth"
	"github.com/carepilot/carepilot/internal/platform/blobstore"
	"github.com/carepilot/carepilot/internal/platform/db"
	"github.com/carepilot/carepilot/internal/platform/events"
	"github.com/carepilot/carepilot/internal/platform/middleware"
)

const version = "0.1.0"

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

// routeRegistrar is implemented by every domain handler.
type routeRegistrar interface {
	RegisterRoutes(api *echo.Group)
}

// newRouter builds the echo app. Health and metrics stay outside /api so
// checks need no session.
func newRouter(cfg *config.Config, logger zerolog.Logger, metrics *middleware.Metrics, pools db.PoolSource, handlers ...routeRegistrar) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(metrics.Middleware())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": version})
	})
	e.GET("/health/db", db.HealthHandler(pools))
	e.GET("/metrics", metrics.Handler())

	api := e.Group("/api")
	key := []byte(cfg.SessionSigningKey)
	if cfg.IsDev() {
		api.Use(auth.DevAuthMiddleware(key))
	} else {
		api.Use(auth.SessionMiddleware(key))
	}
	for _, h := range handlers {
		h.RegisterRoutes(api)
	}
	return e
}

func runServer(ctx context.Context) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	logger, cfg := a.logger, a.cfg

	blobs, err := openBlobStore(ctx, cfg)
	if err != nil {
		return err
	}
	if blobs == nil {
		logger.Warn().Msg("blob storage not configured; lab uploads are disabled and the directory uses the public url")
	}

	pub, err := events.NewPublisher(ctx, events.Settings{
		Backend:  cfg.EventsBackend,
		Brokers:  cfg.KafkaBrokers,
		Topic:    cfg.KafkaTopic,
		QueueURL: cfg.SQSQueueURL,
		Region:   cfg.AWSRegion,
	})
	if err != nil {
		return err
	}
	dispatcher := events.NewDispatcher(pub, logger, 10*time.Second)
	defer func() {
		if err := dispatcher.Close(); err != nil {
			logger.Warn().Err(err).Msg("close event publisher")
		}
	}()

	reg := prometheus.NewRegistry()
	metrics, err := middleware.NewMetrics(reg)
	if err != nil {
		return err
	}
	if err := db.RegisterPoolMetrics(reg, a.manager); err != nil {
		return err
	}

	var appeals claims.AppealGenerator
	if cfg.AppealServiceURL != "" {
		appeals = claims.NewAppealClient(cfg.AppealServiceURL, cfg.AppealTimeout)
	}

	e := newRouter(cfg, logger, metrics, a.manager, buildHandlers(a, blobs, appeals, dispatcher)...)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

func buildHandlers(a *app, blobs blobstore.Store, appeals claims.AppealGenerator, dispatcher *events.Dispatcher) []routeRegistrar {
	cfg, logger := a.cfg, a.logger

	accountSvc := account.NewService(
		account.NewUserRepoPG(a.manager, a.resolver),
		account.NewProviderRepoPG(a.manager),
		account.NewInsurerRepoPG(a.manager),
		logger,
	)
	schedulingSvc := scheduling.NewService(scheduling.NewAppointmentRepoPG(a.manager))
	labsSvc := labs.NewService(labs.NewLabReportRepoPG(a.manager, a.resolver), blobs, dispatcher, cfg.LabUploadMaxBytes, logger)
	benefitsSvc := benefits.NewService(benefits.NewBenefitsRepoPG(a.manager, a.resolver), dispatcher, logger)
	claimsSvc := claims.NewService(claims.NewEOBRepoPG(a.manager, a.resolver), appeals, dispatcher, logger)

	return []routeRegistrar{
		account.NewHandler(accountSvc),
		directory.NewHandler(a.directoryService(blobs)),
		scheduling.NewHandler(schedulingSvc),
		labs.NewHandler(labsSvc),
		benefits.NewHandler(benefitsSvc),
		claims.NewHandler(claimsSvc),
		dashboard.NewHandler(dashboard.NewService(labsSvc, schedulingSvc, claimsSvc, logger)),
	}
}
