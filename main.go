package main

import (
	"context"
	"log"
	"time"

	"review-catalog/cmd"
	"review-catalog/internal/data/repository"
	"review-catalog/internal/wire"
	"review-catalog/pkg/database"
	"review-catalog/pkg/notifier"
	"review-catalog/pkg/ratelimit"
	"review-catalog/pkg/token"
	"review-catalog/pkg/utils"

	"go.uber.org/zap"
)

const limiterIdleTTL = 10 * time.Minute

func main() {
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := utils.InitLogger(config.App.LogPath, config.App.Name, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
	)

	db, err := database.InitDB(config.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Database connected successfully")

	if config.Database.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		err := database.Migrate(ctx, db, logger)
		cancel()
		if err != nil {
			logger.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	repos := repository.NewRepository(db, logger)
	tokens := token.NewManager(config.JWT.Secret, config.JWT.Issuer, time.Duration(config.JWT.ExpiryHours)*time.Hour)
	notify := notifier.New(config.Email, logger)

	limiter := ratelimit.New(config.RateLimit.AuthRPS, config.RateLimit.AuthBurst, limiterIdleTTL)
	defer limiter.Stop()

	app := wire.Wiring(repos, tokens, notify, limiter, config, logger)

	if err := cmd.APIServer(app.Router, config.App.Port, logger); err != nil {
		logger.Error("Server stopped", zap.Error(err))
	}
}
