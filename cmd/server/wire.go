package main

import (
	"context"
	"database/sql"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/sankofa-trivia/backend/internal/config"
	"github.com/sankofa-trivia/backend/internal/database"
	"github.com/sankofa-trivia/backend/internal/gamification"
	"github.com/sankofa-trivia/backend/internal/gateway"
	"github.com/sankofa-trivia/backend/internal/mirror"
	"github.com/sankofa-trivia/backend/internal/questions"
	"github.com/sankofa-trivia/backend/internal/ritual"
	"github.com/sankofa-trivia/backend/internal/stake"
	"github.com/sirupsen/logrus"
)

// initSinks connects the optional remote mirrors. A mirror that cannot be
// reached is skipped; the local store stays authoritative either way.
func initSinks(ctx context.Context, cfg *config.Config) ([]mirror.Sink, *mirror.RedisSink, func()) {
	var (
		sinks     []mirror.Sink
		redisSink *mirror.RedisSink
		closers   []func()
	)

	if cfg.RedisAddr != "" {
		client, err := initRedis(ctx, cfg)
		if err != nil {
			logrus.Warnf("redis mirror disabled: %v", err)
		} else {
			redisSink = mirror.NewRedisSink(client)
			sinks = append(sinks, redisSink)
			closers = append(closers, func() { client.Close() })
		}
	}

	if cfg.MirrorDatabaseURL != "" {
		db, err := initPostgres(cfg.MirrorDatabaseURL)
		if err != nil {
			logrus.Warnf("postgres mirror disabled: %v", err)
		} else {
			sinks = append(sinks, mirror.NewPostgresSink(db))
			closers = append(closers, func() { db.Close() })
		}
	}

	return sinks, redisSink, func() {
		for _, c := range closers {
			c()
		}
	}
}

func initRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	err := backoff.Retry(func() error {
		if _, err := client.Ping(ctx).Result(); err != nil {
			logrus.Warnf("redis connection failed: %v, retrying...", err)
			return err
		}
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx))
	if err != nil {
		client.Close()
		return nil, err
	}

	logrus.Infof("redis mirror connected at %s", cfg.RedisAddr)
	return client, nil
}

func initPostgres(dsn string) (*sql.DB, error) {
	db, err := database.ConnectPostgres(dsn)
	if err != nil {
		return nil, err
	}
	if err := database.MigratePostgres(db); err != nil {
		db.Close()
		return nil, err
	}
	logrus.Info("postgres mirror connected")
	return db, nil
}

type routeHandlers struct {
	progress  *gamification.Handler
	questions *questions.Handler
	stake     *stake.Handler
	ritual    *ritual.Handler
	gateway   *gateway.Gateway
}

func registerRoutes(api *mux.Router, h routeHandlers) {
	// Session & progress
	api.HandleFunc("/session/start", h.progress.StartSession).Methods("POST")
	api.HandleFunc("/progress", h.progress.GetProgress).Methods("GET")
	api.HandleFunc("/progress/history", h.progress.GetXPHistory).Methods("GET")
	api.HandleFunc("/leaderboard", h.progress.Leaderboard).Methods("GET")

	// Quizzes
	api.HandleFunc("/quiz/daily", h.progress.GetDailyStatus).Methods("GET")
	api.HandleFunc("/quiz/daily/questions", h.questions.DailyQuestions).Methods("GET")
	api.HandleFunc("/quiz/daily/complete", h.progress.CompleteDailyQuiz).Methods("POST")
	api.HandleFunc("/quiz/categories", h.questions.Categories).Methods("GET")
	api.HandleFunc("/quiz/category/complete", h.progress.CompleteCategoryQuiz).Methods("POST")
	api.HandleFunc("/quiz/category/{category}/questions", h.questions.CategoryQuestions).Methods("GET")

	// Gauntlet
	api.HandleFunc("/gauntlet", h.stake.GauntletStatus).Methods("GET")
	api.HandleFunc("/gauntlet/enter", h.stake.EnterGauntlet).Methods("POST")
	api.HandleFunc("/gauntlet/answer", h.stake.AnswerGauntlet).Methods("POST")
	api.HandleFunc("/gauntlet/reset", h.stake.ResetGauntlet).Methods("POST")

	// Crash
	api.HandleFunc("/crash", h.stake.CrashState).Methods("GET")
	api.HandleFunc("/crash/bet", h.stake.PlaceBet).Methods("POST")
	api.HandleFunc("/crash/wager", h.stake.AdjustWager).Methods("PUT")
	api.HandleFunc("/crash/cashout", h.stake.CashOut).Methods("POST")

	// Ritual
	api.HandleFunc("/ritual/pool", h.ritual.Pool).Methods("GET")
	api.HandleFunc("/ritual/invoke", h.ritual.Invoke).Methods("POST")

	// Live streams
	api.HandleFunc("/ws/session", h.gateway.HandleSession).Methods("GET")
	api.HandleFunc("/ws/crash", h.gateway.HandleCrash).Methods("GET")
}
