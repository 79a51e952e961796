package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/mymmrac/telego"

	"unifarm/internal/api"
	"unifarm/internal/auth"
	"unifarm/internal/boost"
	"unifarm/internal/config"
	"unifarm/internal/database"
	"unifarm/internal/farming"
	"unifarm/internal/ledger"
	"unifarm/internal/missions"
	"unifarm/internal/notify"
	"unifarm/internal/referral"
	"unifarm/internal/scheduler"
	"unifarm/internal/wallet"
)

func main() {
	// Load Configuration
	cfg := config.LoadConfig()

	// Connect to Database
	db, err := database.ConnectPostgres(cfg)
	if err != nil {
		log.Fatalf("Could not connect to database: %v", err)
	}

	// Connect to Redis
	rdb, err := database.ConnectRedis(cfg)
	if err != nil {
		log.Fatalf("Could not connect to redis: %v", err)
	}

	// Telegram bot is optional; without a token notifications are dropped.
	var bot *telego.Bot
	if cfg.BotToken != "" {
		bot, err = telego.NewBot(cfg.BotToken)
		if err != nil {
			log.Fatalf("Could not create telegram bot: %v", err)
		}
	} else {
		log.Println("TELEGRAM_BOT_TOKEN not set, notifications disabled")
	}

	store := ledger.New(db)
	notifier := notify.New(bot, rdb)

	authService := auth.NewService(cfg.JWTSecret, cfg.JWTTTL, cfg.BotToken, cfg.InitDataMaxAge)
	farmingService := farming.NewService(store, cfg.UniRatePerInterval, cfg.MinUniDeposit, cfg.FarmingInterval)
	boostService := boost.NewService(store, cfg.FarmingInterval)
	missionService := missions.NewService(store)
	referralService := referral.NewService(store, cfg.ReferralLevelRates, notifier)
	walletService := wallet.NewService(store, cfg.MinWithdrawal)

	engine := scheduler.NewEngine(store, referralService, rdb, cfg.FarmingInterval, cfg.SchedulerTick, uuid.NewString())

	handler := &api.Handler{
		Ledger:   store,
		Auth:     authService,
		Farming:  farmingService,
		Boost:    boostService,
		Missions: missionService,
		Referral: referralService,
		Engine:   engine,
		Wallet:   walletService,
		Notify:   notifier,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	go engine.Run(ctx)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: api.NewRouter(handler, authService),
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down server: %v", err)
	}

	if err := rdb.Close(); err != nil {
		log.Printf("Error closing redis connection: %v", err)
	}

	log.Println("Shutdown complete")
}
