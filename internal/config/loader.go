package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func Load() (*Config, error) {
	// Local development reads .env; deployed environments inject variables directly.
	if err := godotenv.Load(); err != nil {
		logrus.Warnf("no .env file found or error loading it: %v", err)
	} else {
		logrus.Infof("loaded environment variables from .env file")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config from environment: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT: %d (must be 1-65535)", c.Port)
	}
	if c.MetricsPort < 1 || c.MetricsPort > 65535 {
		return fmt.Errorf("invalid METRICS_PORT: %d (must be 1-65535)", c.MetricsPort)
	}
	if c.MetricsPort == c.Port {
		return fmt.Errorf("METRICS_PORT must differ from PORT")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	if c.RitualCost <= 0 {
		return fmt.Errorf("RITUAL_COST must be positive")
	}
	if c.DailyPollInterval <= 0 || c.DailyPollInterval > time.Minute {
		return fmt.Errorf("DAILY_POLL_INTERVAL must be within (0, 1m], got %s", c.DailyPollInterval)
	}
	if c.CrashMinWager <= 0 {
		return fmt.Errorf("CRASH_MIN_WAGER must be positive")
	}
	if c.CrashGrowthRate <= 0 {
		return fmt.Errorf("CRASH_GROWTH_RATE must be positive")
	}
	if c.CrashPayoutFactor <= 0 {
		return fmt.Errorf("CRASH_PAYOUT_FACTOR must be positive")
	}
	if c.CrashBigWinChance < 0 || c.CrashBigWinChance > 1 {
		return fmt.Errorf("CRASH_BIG_WIN_CHANCE must be within [0, 1]")
	}
	if c.CrashCountdownTicks < 1 {
		return fmt.Errorf("CRASH_COUNTDOWN_TICKS must be at least 1")
	}
	if c.CrashFrameInterval <= 0 || c.CrashFrameInterval > time.Second/30 {
		return fmt.Errorf("CRASH_FRAME_INTERVAL must be within (0, 33ms] for a 30Hz stream")
	}
	if c.MirrorQueueSize < 1 {
		return fmt.Errorf("MIRROR_QUEUE_SIZE must be at least 1")
	}
	return nil
}
