package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"bitskins-trader/internal/api"
	"bitskins-trader/internal/config"
	"bitskins-trader/internal/database"
	"bitskins-trader/internal/logger"
	priceservice "bitskins-trader/internal/services/price"
	tradingservice "bitskins-trader/internal/services/trading"
	"bitskins-trader/internal/websocket"
	"bitskins-trader/pkg/bitskins"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("Invalid config: %v", err)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	db, err := database.Initialize(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	client := bitskins.NewClient(cfg.BitSkins.APIKey, cfg.BitSkins.TOTPSecret,
		bitskins.WithBaseURL(cfg.BitSkins.BaseURL),
		bitskins.WithTimeout(cfg.BitSkins.Timeout),
	)

	hub := websocket.NewHub(log)
	go hub.Run()
	defer hub.Stop()

	tradingService := tradingservice.NewTradingService(db, client, hub, log, tradingservice.RetryPolicy{
		MaxAttempts: cfg.Trading.MaxAttempts,
		MinBackoff:  cfg.Trading.MinBackoff,
		MaxBackoff:  cfg.Trading.MaxBackoff,
	})
	priceService := priceservice.NewPriceService(db, client, hub, log)

	if cfg.Prices.Enabled {
		games := make([]bitskins.Game, 0, len(cfg.Prices.Games))
		for _, id := range cfg.Prices.Games {
			games = append(games, bitskins.Game(id))
		}
		if err := priceService.Start(cfg.Prices.Schedule, games); err != nil {
			log.Fatalf("Failed to schedule price collection: %v", err)
		}
		defer priceService.Stop()
	}

	gin.SetMode(cfg.Server.Mode)
	router := api.NewRouter(api.RouterConfig{
		Market:    client,
		Trader:    tradingService,
		Prices:    priceService,
		Events:    hub.Handler(),
		JWTSecret: cfg.Gateway.JWTSecret,
		Log:       log,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	log.Infof("Server started on port %d", cfg.Server.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited")
}
