package config

import (
	"time"

	"github.com/sirupsen/logrus"
)

type Config struct {
	// ── Server ──────────────────────────────────────────
	Port            int    `env:"PORT" envDefault:"8080"`
	MetricsPort     int    `env:"METRICS_PORT" envDefault:"9090"`
	MetricsEndpoint string `env:"METRICS_ENDPOINT" envDefault:"/metrics"`
	Environment     string `env:"ENVIRONMENT" envDefault:"dev"`
	LogLevel        string `env:"LOG_LEVEL" envDefault:"info"`

	// Shared by CORS and the websocket origin check.
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	// ── Identity ────────────────────────────────────────
	JWTSecret string `env:"JWT_SECRET,notEmpty"`

	// ── Local store ─────────────────────────────────────
	SQLitePath string `env:"SQLITE_PATH" envDefault:"data/trivia.db"`

	// ── Remote mirror (optional) ────────────────────────
	RedisAddr         string `env:"REDIS_ADDR"`
	RedisPassword     string `env:"REDIS_PASSWORD"`
	RedisDB           int    `env:"REDIS_DB" envDefault:"0"`
	MirrorDatabaseURL string `env:"MIRROR_DATABASE_URL"`
	MirrorQueueSize   int    `env:"MIRROR_QUEUE_SIZE" envDefault:"1024"`
	MirrorMaxRetries  uint64 `env:"MIRROR_MAX_RETRIES" envDefault:"3"`

	// ── Content ─────────────────────────────────────────
	// Empty means the embedded default catalog.
	CatalogPath string `env:"CATALOG_PATH"`

	// ── Game rules ──────────────────────────────────────
	Timezone           string        `env:"TIMEZONE" envDefault:"Africa/Accra"`
	GauntletCooldown   time.Duration `env:"GAUNTLET_COOLDOWN" envDefault:"24h"`
	RitualCost         int64         `env:"RITUAL_COST" envDefault:"150"`
	MultiplierDuration time.Duration `env:"MULTIPLIER_DURATION" envDefault:"2h"`
	DailyPollInterval  time.Duration `env:"DAILY_POLL_INTERVAL" envDefault:"1m"`

	CrashMinWager       int64         `env:"CRASH_MIN_WAGER" envDefault:"10"`
	CrashGrowthRate     float64       `env:"CRASH_GROWTH_RATE" envDefault:"0.15"`
	CrashPayoutFactor   float64       `env:"CRASH_PAYOUT_FACTOR" envDefault:"2"`
	CrashBigWinChance   float64       `env:"CRASH_BIG_WIN_CHANCE" envDefault:"0.15"`
	CrashCountdownTicks int           `env:"CRASH_COUNTDOWN_TICKS" envDefault:"5"`
	CrashCountdownTick  time.Duration `env:"CRASH_COUNTDOWN_TICK" envDefault:"1s"`
	CrashFrameInterval  time.Duration `env:"CRASH_FRAME_INTERVAL" envDefault:"33ms"`
	CrashDisplayDelay   time.Duration `env:"CRASH_DISPLAY_DELAY" envDefault:"3s"`

	// Zero seeds from the wall clock.
	RNGSeed int64 `env:"RNG_SEED" envDefault:"0"`
}

// Location resolves Timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		logrus.Warnf("unknown timezone %q, falling back to UTC: %v", c.Timezone, err)
		return time.UTC
	}
	return loc
}
