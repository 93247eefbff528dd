package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/sankofa-trivia/backend/internal/auth"
	"github.com/sankofa-trivia/backend/internal/clock"
	"github.com/sankofa-trivia/backend/internal/config"
	"github.com/sankofa-trivia/backend/internal/content"
	"github.com/sankofa-trivia/backend/internal/database"
	"github.com/sankofa-trivia/backend/internal/gamification"
	"github.com/sankofa-trivia/backend/internal/gateway"
	"github.com/sankofa-trivia/backend/internal/metrics"
	"github.com/sankofa-trivia/backend/internal/mirror"
	"github.com/sankofa-trivia/backend/internal/questions"
	"github.com/sankofa-trivia/backend/internal/ritual"
	"github.com/sankofa-trivia/backend/internal/stake"
	"github.com/sankofa-trivia/backend/internal/storage"
	"github.com/sirupsen/logrus"
)

func main() {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.Info("starting trivia server...")

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("invalid config: %v", err)
	}
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Local store
	db, err := database.OpenSQLite(cfg.SQLitePath)
	if err != nil {
		logrus.Fatalf("failed to open local store: %v", err)
	}
	defer db.Close()
	if err := database.MigrateSQLite(db); err != nil {
		logrus.Fatalf("failed to run migrations: %v", err)
	}
	kv := storage.NewSQLiteKV(db)

	// Remote mirror
	sinks, redisSink, closeRemotes := initSinks(ctx, cfg)
	defer closeRemotes()

	var ledgerMirror gamification.Mirror
	var remote *mirror.Mirror
	if len(sinks) > 0 {
		remote = mirror.New(sinks, cfg.MirrorQueueSize, cfg.MirrorMaxRetries)
		remote.Start(ctx)
		ledgerMirror = remote
	}

	// Content
	catalog, err := content.Load(cfg.CatalogPath)
	if err != nil {
		logrus.Fatalf("failed to load catalog: %v", err)
	}

	seed := cfg.RNGSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	bank := questions.NewBank(questions.NewStore(db), rand.New(rand.NewSource(rng.Int63())))
	if err := bank.SeedFrom(ctx, catalog.Questions); err != nil {
		logrus.Fatalf("failed to seed questions: %v", err)
	}

	// Engines
	loc := cfg.Location()
	clk := clock.System
	store := gamification.NewStore(kv, db)
	ledger := gamification.NewLedger(store, ledgerMirror, clk)
	streaks := gamification.NewStreakTracker(store, clk, loc)
	daily := gamification.NewDailyGate(store, clk, loc)
	migrator := gamification.NewMigrator(store, clk, gamification.StreakCompensation(streaks))

	var leaderboard gamification.LeaderboardReader
	if redisSink != nil {
		leaderboard = redisSink
	}
	progress := gamification.NewService(store, ledger, streaks, daily, migrator, leaderboard)

	gauntlet := stake.NewGauntlet(catalog.StakeTiers, cfg.GauntletCooldown, ledger, bank, kv, clk)
	crash := stake.NewCrash(stake.CrashConfig{
		MinWager:       cfg.CrashMinWager,
		GrowthRate:     cfg.CrashGrowthRate,
		PayoutFactor:   cfg.CrashPayoutFactor,
		CountdownTicks: cfg.CrashCountdownTicks,
		CountdownTick:  cfg.CrashCountdownTick,
		FrameInterval:  cfg.CrashFrameInterval,
		DisplayDelay:   cfg.CrashDisplayDelay,
	}, ledger, stake.NewDistribution(rand.New(rand.NewSource(rng.Int63())), cfg.CrashBigWinChance), clk)
	defer crash.Shutdown()

	rituals := ritual.NewService(ritual.Config{
		CostXP:             cfg.RitualCost,
		MultiplierDuration: cfg.MultiplierDuration,
	}, catalog.RitualPool, ledger, kv, rand.New(rand.NewSource(rng.Int63())))

	gw := gateway.New(ledger, daily, crash, cfg.DailyPollInterval, cfg.AllowedOrigins)

	// Router
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	verifier := auth.NewVerifier(cfg.JWTSecret)
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(verifier.Middleware)
	registerRoutes(api, routeHandlers{
		progress:  gamification.NewHandler(progress),
		questions: questions.NewHandler(bank, clk, loc),
		stake:     stake.NewHandler(gauntlet, crash),
		ritual:    ritual.NewHandler(rituals),
		gateway:   gw,
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           c.Handler(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsServer := metrics.NewServer(cfg.MetricsPort, cfg.MetricsEndpoint)
	if err := metricsServer.Setup(); err != nil {
		logrus.Fatalf("failed to set up metrics: %v", err)
	}
	if err := metricsServer.Start(ctx); err != nil {
		logrus.Fatalf("failed to start metrics server: %v", err)
	}

	go func() {
		logrus.Infof("server listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logrus.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	gw.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("server shutdown: %v", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("metrics shutdown: %v", err)
	}
	if remote != nil {
		remote.Close()
	}
	logrus.Info("server stopped")
}
