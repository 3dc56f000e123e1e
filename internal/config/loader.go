package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies TRADEAPI_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load. A missing config file is
// not an error so the server can run from defaults plus environment alone.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known TRADEAPI_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Server ──
	setInt(&cfg.Server.Port, "TRADEAPI_SERVER_PORT")
	setInt(&cfg.Server.Port, "PORT") // compatibility alias
	setStringSlice(&cfg.Server.CORSOrigins, "TRADEAPI_SERVER_CORS_ORIGINS")

	// ── Database ──
	setStr(&cfg.Database.DSN, "TRADEAPI_DATABASE_DSN")
	setStr(&cfg.Database.Host, "TRADEAPI_DATABASE_HOST")
	setInt(&cfg.Database.Port, "TRADEAPI_DATABASE_PORT")
	setStr(&cfg.Database.Database, "TRADEAPI_DATABASE_NAME")
	setStr(&cfg.Database.User, "TRADEAPI_DATABASE_USER")
	setStr(&cfg.Database.Password, "TRADEAPI_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "TRADEAPI_DATABASE_SSL_MODE")
	setInt(&cfg.Database.PoolMaxConns, "TRADEAPI_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "TRADEAPI_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "TRADEAPI_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "TRADEAPI_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "TRADEAPI_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "TRADEAPI_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "TRADEAPI_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "TRADEAPI_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "TRADEAPI_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "TRADEAPI_REDIS_TLS_ENABLED")

	// ── Settlement ──
	setFloat64(&cfg.Settlement.WinProbability, "TRADEAPI_SETTLEMENT_WIN_PROBABILITY")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "TRADEAPI_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.RetentionDays, "TRADEAPI_ARCHIVE_RETENTION_DAYS")
	setDuration(&cfg.Archive.Interval, "TRADEAPI_ARCHIVE_INTERVAL")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "TRADEAPI_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "TRADEAPI_S3_REGION")
	setStr(&cfg.S3.Bucket, "TRADEAPI_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "TRADEAPI_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "TRADEAPI_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "TRADEAPI_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "TRADEAPI_S3_FORCE_PATH_STYLE")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "TRADEAPI_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "TRADEAPI_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "TRADEAPI_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "TRADEAPI_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "TRADEAPI_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
