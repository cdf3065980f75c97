package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	coreconfig "github.com/karacho11/first-chatbot-back/core/config"
	"github.com/karacho11/first-chatbot-back/ui/rest"
	"github.com/karacho11/first-chatbot-back/ui/rest/middleware"
)

const shutdownTimeout = 10 * time.Second

var restCmd = &cobra.Command{
	Use:   "rest",
	Short: "Serve the chat API over http",
	Run:   restServer,
}

func init() {
	rootCmd.AddCommand(restCmd)
}

func newRestApp(cfg *coreconfig.Config, e *engine) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "first-chatbot-back " + cfg.App.Version,
		DisableStartupMessage: !cfg.App.Debug,
		ServerHeader:          "Hidden",
		// Document lists for ranking can be large.
		BodyLimit: 16 * 1024 * 1024,
	})

	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.App.CorsAllowedOrigins, ", "),
		AllowHeaders: "Origin, Content-Type, Accept, X-Request-ID",
	}))
	app.Use(middleware.Recovery())

	if cfg.App.Debug {
		app.Use(logger.New())
	}

	rest.InitRestMonitoring(app, e.registry, e.queue)

	apiGroup := app.Group(cfg.App.BasePath + "/api")
	rest.InitRestHealth(apiGroup, e.cache, cfg.App.Version)
	rest.InitRestChat(apiGroup, e.chat)
	rest.InitRestUserCache(apiGroup, e.chat)

	return app
}

func restServer(_ *cobra.Command, _ []string) {
	cfg := coreconfig.Global
	ctx := context.Background()

	e, err := buildEngine(ctx, cfg)
	if err != nil {
		logrus.Fatalf("[REST] Failed to start chat engine: %v", err)
	}

	app := newRestApp(cfg, e)

	// Graceful shutdown handler
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logrus.Info("[REST] Reception of termination signal, shutting down gracefully...")
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			logrus.Errorf("[REST] Error during Fiber shutdown: %v", err)
		}
	}()

	logrus.WithField("port", cfg.App.Port).Info("[REST] Listening")
	if err := app.Listen(":" + cfg.App.Port); err != nil {
		logrus.Errorf("[REST] Server stopped: %v", err)
	}

	// Pending history writes drain before the cache connection closes.
	e.Close()
	logrus.Info("[APP] Application stopped cleanly.")
}
