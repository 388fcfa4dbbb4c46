package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof" // Register pprof handlers
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nikhilr-aj-png/EarnFlow-sub000/internal/config"
	predictHttp "github.com/nikhilr-aj-png/EarnFlow-sub000/internal/modules/predict/adapter/http"
	"github.com/nikhilr-aj-png/EarnFlow-sub000/internal/modules/predict/domain"
	"github.com/nikhilr-aj-png/EarnFlow-sub000/internal/modules/predict/engine"
	predictDB "github.com/nikhilr-aj-png/EarnFlow-sub000/internal/modules/predict/repository/db"
	predictRedis "github.com/nikhilr-aj-png/EarnFlow-sub000/internal/modules/predict/repository/redis"
	predictUseCase "github.com/nikhilr-aj-png/EarnFlow-sub000/internal/modules/predict/usecase"
	userdomain "github.com/nikhilr-aj-png/EarnFlow-sub000/internal/modules/user/domain"
	userRepo "github.com/nikhilr-aj-png/EarnFlow-sub000/internal/modules/user/repository"
	walletModule "github.com/nikhilr-aj-png/EarnFlow-sub000/internal/modules/wallet"
	"github.com/nikhilr-aj-png/EarnFlow-sub000/pkg/logger"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	// Parse command line flags
	pprofPort := flag.String("pprof-port", "", "Port to run pprof server on (e.g., 6060)")
	background := flag.Bool("d", false, "Run in background mode (disable console logging)")
	flag.Parse()

	config.LoadEnvFile()
	cfg := config.LoadPredictConfig()

	// If background is true, disable console logging (enableConsole = false)
	logger.InitWithFile(cfg.Log.File, cfg.Log.Level, cfg.Log.Format, !*background)
	defer logger.Flush()

	// Start pprof server if requested
	if *pprofPort != "" {
		go func() {
			addr := "localhost:" + *pprofPort
			logger.InfoGlobal().Str("addr", addr).Msg("📈 Starting pprof server")
			if err := http.ListenAndServe(addr, nil); err != nil {
				logger.ErrorGlobal().Err(err).Msg("Failed to start pprof server")
			}
		}()
	}

	fmt.Printf("🚀 Starting Predict Monolith... Logs are being written to %s (rotating)\n", cfg.Log.File)
	logger.InfoGlobal().Msg("🎴 Starting Predict Monolith...")

	// 1. Initialize Infrastructure
	dbConnStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Password, cfg.Database.Name)

	gormLog := logger.NewGormLogger()

	// TranslateError is load-bearing: the settlement transaction detects a
	// concurrent winner through gorm.ErrDuplicatedKey on the history insert.
	db, err := gorm.Open(postgres.Open(dbConnStr), &gorm.Config{
		Logger:         gormLog,
		TranslateError: true,
	})
	if err != nil {
		logger.FatalGlobal().Err(err).Msg("Failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.FatalGlobal().Err(err).Msg("Failed to get database instance")
	}

	// Connection Pool Configuration
	// Postgres default max_connections is usually 100.
	// We limit our application to use at most 50 connections to leave room for other tools/services.
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		logger.FatalGlobal().Err(err).Msg("Failed to ping database")
	}
	logger.InfoGlobal().Msg("✅ Database connected")

	if err := db.AutoMigrate(
		&domain.Round{},
		&domain.WagerEntry{},
		&domain.RoundHistoryRecord{},
		&domain.LedgerEntry{},
		&userdomain.User{},
	); err != nil {
		logger.FatalGlobal().Err(err).Msg("Failed to migrate schema")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port),
	})
	defer rdb.Close()
	logger.InfoGlobal().Msg("✅ Redis connected")

	// 2. Initialize Modules

	// User + Wallet
	userRepository := userRepo.NewUserRepository(db)
	walletSvc := walletModule.NewDBService(db)
	logger.InfoGlobal().Msg("✅ User and wallet modules initialized")

	// Predict Module
	logger.InfoGlobal().Msg("🎴 Initializing Predict...")

	roundRepo := predictDB.NewRoundRepository(db, cfg.Game.FinalizeRetries)
	wagerRepo := predictDB.NewWagerRepository(db)
	historyRepo := predictDB.NewHistoryRepository(db)
	ledgerRepo := predictDB.NewLedgerRepository(db)
	volumeCache := predictRedis.NewVolumeCache(rdb)

	workerCtx, cancelWorkers := context.WithCancel(context.Background())

	referralUC := predictUseCase.NewReferralUseCase(
		userRepository, walletSvc, ledgerRepo,
		cfg.Referral.StandardRatePct, cfg.Referral.PremiumRatePct, cfg.Referral.QueueSize)
	go referralUC.Start(workerCtx)

	payoutUC := predictUseCase.NewPayoutUseCase(
		wagerRepo, ledgerRepo, walletSvc, referralUC,
		cfg.Game.PayoutMultiplier, cfg.Game.PayoutBatchSize)
	go payoutUC.Start(workerCtx)

	settleUC := predictUseCase.NewSettleUseCase(roundRepo, engine.NewSelector(), payoutUC)
	sweepUC := predictUseCase.NewSweepUseCase(roundRepo, wagerRepo, historyRepo, settleUC, payoutUC, cfg.Game.SweepGrace)
	wagerUC := predictUseCase.NewWagerUseCase(roundRepo, wagerRepo, ledgerRepo, walletSvc, volumeCache)
	volumeReader := predictUseCase.NewVolumeReader(wagerRepo, volumeCache)
	logger.InfoGlobal().Msg("✅ Predict ready")

	// Recovery sweep on a fixed cadence
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		ticker := time.NewTicker(cfg.Game.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				report, err := sweepUC.Sweep(workerCtx)
				if err != nil {
					logger.ErrorGlobal().Err(err).Msg("Recovery sweep failed")
					continue
				}
				if report.Processed > 0 || report.Deleted > 0 {
					logger.InfoGlobal().
						Int("processed", report.Processed).
						Int("awarded", report.Awarded).
						Int64("deleted", report.Deleted).
						Msg("🧹 Recovery sweep done")
				}
			}
		}
	}()

	// 3. Setup HTTP Server
	handler := predictHttp.NewHandler(settleUC, payoutUC, sweepUC, wagerUC, volumeReader, roundRepo, historyRepo)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.GinMiddleware())
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	logger.InfoGlobal().
		Str("port", cfg.Server.Port).
		Str("api_url", fmt.Sprintf("http://localhost:%s/api/predict", cfg.Server.Port)).
		Msg("🚀 Predict Monolith running")

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.FatalGlobal().Err(err).Msg("HTTP server failed")
		}
	}()

	// 4. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.InfoGlobal().Msg("🛑 Shutting down server...")

	// 4.1 Stop HTTP server first (stop accepting new requests)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.ErrorGlobal().Err(err).Msg("HTTP server forced to shutdown")
	}

	// 4.2 Stop workers: cancel, then drain queued payout and commission jobs
	logger.InfoGlobal().Msg("⏳ Draining payout and commission workers...")
	cancelWorkers()
	payoutUC.Wait()
	referralUC.Wait()
	<-sweepDone

	logger.InfoGlobal().Msg("👋 Server exited properly")
}
