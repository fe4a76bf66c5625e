package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/liliang-cn/policychat/internal/api"
	"github.com/liliang-cn/policychat/internal/api/middleware"
	"github.com/liliang-cn/policychat/internal/backend"
	"github.com/liliang-cn/policychat/internal/config"
	"github.com/liliang-cn/policychat/internal/metrics"
	"github.com/liliang-cn/policychat/internal/session"
	"go.uber.org/zap"
)

var (
	configPath = flag.String("config", "", "Path to config file")
)

func main() {
	flag.Parse()

	// .env is optional; real environment variables still win inside viper
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	answerer := backend.NewHTTPClient(backend.Config{
		URL:     cfg.Backend.URL,
		Timeout: cfg.Backend.Timeout,
		Headers: cfg.Backend.Headers,
	}, backend.WithLogger(logger.Named("backend")))

	ctrl := session.NewController(answerer, session.Options{
		Greeting:      cfg.Widget.WelcomeMessage,
		MaxInputRunes: cfg.Widget.MaxInputRunes,
		Logger:        logger.Named("session"),
	})

	recorder := metrics.NewRecorder()
	ctrl.Subscribe(recorder.Observe)

	var rateLimit *middleware.RateLimitConfig
	if cfg.RateLimit.Enabled {
		rateLimit = &middleware.RateLimitConfig{
			RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
			Burst:             cfg.RateLimit.Burst,
		}
	}

	router := api.SetupRouter(ctrl, recorder, api.RouterConfig{
		AllowOrigins: cfg.CORS.AllowOrigins,
		Widget:       cfg.Widget,
		RateLimit:    rateLimit,
		Logger:       logger.Named("http"),
	})

	// No WriteTimeout: submit waits on the backend and events is a long-lived stream
	srv := &http.Server{
		Addr:              cfg.Address(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		printBanner()
		logger.Info("Starting PolicyChat server",
			zap.String("address", cfg.Address()),
			zap.String("backend_url", cfg.Backend.URL),
			zap.String("session_id", ctrl.Snapshot().SessionID),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func printBanner() {
	banner := `
    ____        ___               ________          __
   / __ \____  / (_)______  __   / ____/ /_  ____ _/ /_
  / /_/ / __ \/ / / ___/ / / /  / /   / __ \/ __ '/ __/
 / ____/ /_/ / / / /__/ /_/ /  / /___/ / / / /_/ / /_
/_/    \____/_/_/\___/\__, /   \____/_/ /_/\__,_/\__/
                     /____/
`

	fmt.Println(banner)
}
