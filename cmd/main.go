package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"docstore-gateway/internal/di"
	httpadapter "docstore-gateway/internal/docstore/adapter/http"
	"docstore-gateway/internal/docstore/config"
	"docstore-gateway/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/pflag"
)

func main() {
	flags := config.BindFlags(pflag.CommandLine)
	pflag.Parse()

	cfg, err := config.Load(flags.LoadOptions())
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	flags.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	appLogger := logger.NewLoggerForBackend(cfg.Log.Backend, cfg.Log.Level, cfg.Log.Format, cfg.Environment)
	appLogger.Infof("Starting docstore gateway (driver=%s, database=%s)", cfg.Store.Driver, cfg.Store.DatabaseName)

	container := di.NewContainer(cfg, appLogger)
	defer func() {
		if err := container.Close(); err != nil {
			appLogger.Errorf("Failed to close container: %v", err)
		}
	}()

	initCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = container.Initialize(initCtx)
	cancel()
	if err != nil {
		appLogger.Errorf("Failed to initialize: %v", err)
		return
	}

	app := fiber.New(fiber.Config{
		AppName:      "Docstore Gateway",
		Immutable:    true,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
		ErrorHandler: httpadapter.ErrorHandler(appLogger),
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowMethods:  "GET,POST,DELETE,OPTIONS",
		AllowHeaders:  "Origin, Content-Type, Accept, " + httpadapter.RequestIDHeader,
		ExposeHeaders: "Location, " + httpadapter.RequestIDHeader,
	}))
	app.Use(httpadapter.RequestIDMiddleware())
	app.Use(httpadapter.AccessLogMiddleware(appLogger))

	container.GetDocstoreModule().RegisterRoutes(app)

	serverAddr := cfg.Server.Addr()
	appLogger.Infof("Starting HTTP server on %s", serverAddr)

	serverShutdown := make(chan error, 1)
	go func() {
		serverShutdown <- app.Listen(serverAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverShutdown:
		if err != nil {
			appLogger.Errorf("Server failed: %v", err)
		}
	case sig := <-quit:
		appLogger.Infof("Received shutdown signal: %v", sig)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			appLogger.Errorf("Server forced to shutdown: %v", err)
		}
		appLogger.Info("HTTP server stopped")
	}

	fmt.Println("Docstore gateway stopped.")
}
