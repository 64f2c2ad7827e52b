package server

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cfp-scheduler/core/cache"
	"cfp-scheduler/core/config"
	"cfp-scheduler/core/constants"
	"cfp-scheduler/core/database"
	"cfp-scheduler/core/logger"
	appMiddleware "cfp-scheduler/core/middleware"
	"cfp-scheduler/core/queue"
	"cfp-scheduler/core/storage"
	"cfp-scheduler/modules/mail"
	"cfp-scheduler/modules/schedule"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const shutdownTimeout = 10 * time.Second

// Run wires every module and serves until SIGINT/SIGTERM
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger.Init(logger.Options{Level: cfg.App.LogLevel, Format: cfg.App.LogFormat})

	db, err := database.InitDB(cfg.Database)
	if err != nil {
		return err
	}
	defer db.SQLx().Close()

	redisClient, err := cache.InitRedis(cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	mailQueue := queue.NewAsynqClient(cfg.Queue)
	defer mailQueue.Close()

	var uploader storage.Uploader
	if cfg.S3.Bucket != "" {
		uploader = storage.NewS3Uploader(cfg.S3)
	}

	e := newEcho()
	mw := appMiddleware.NewMiddleware(cfg.JWT.Secret)

	// Modules
	mailService := mail.Init(db, mailQueue)
	schedule.Init(e, db, cache.NewRedisCache(redisClient), mailService, uploader, cfg.Schedule, mw)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.App.Port)
		logger.Info("Server starting", "addr", addr, "env", cfg.App.Env)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
		RequestIDHandler: func(c echo.Context, id string) {
			c.Set(constants.ContextRequestID, id)
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				logger.Error("HTTP request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency, "request_id", v.RequestID, "error", v.Error)
				return nil
			}
			logger.Info("HTTP request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency, "request_id", v.RequestID)
			return nil
		},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	return e
}
