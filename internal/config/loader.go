package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load builds the configuration in three layers: defaults, the TOML file
// (optional), then CONDOR_* environment variables. A .env file in the
// working directory seeds the environment without clobbering real vars.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setStr("CONDOR_MODE", &cfg.Mode)
	setStr("CONDOR_LOG_LEVEL", &cfg.LogLevel)

	setStr("CONDOR_BROKER_BASE_URL", &cfg.Broker.BaseURL)
	setStr("CONDOR_BROKER_MARKET_DATA_URL", &cfg.Broker.MarketDataURL)
	setStr("CONDOR_BROKER_ACCESS_TOKEN", &cfg.Broker.AccessToken)
	setStr("CONDOR_BROKER_ACCOUNT_HASH", &cfg.Broker.AccountHash)
	setStr("CONDOR_BROKER_QUOTE_SYMBOL", &cfg.Broker.QuoteSymbol)
	setDuration("CONDOR_BROKER_ORDER_WINDOW", &cfg.Broker.OrderWindow)

	setStr("CONDOR_SIGNAL_BASE_URL", &cfg.Signal.BaseURL)
	setStr("CONDOR_SIGNAL_TOKEN", &cfg.Signal.Token)
	setStr("CONDOR_SIGNAL_EMAIL", &cfg.Signal.Email)
	setStr("CONDOR_SIGNAL_PASSWORD", &cfg.Signal.Password)
	setStr("CONDOR_SIGNAL_OPTION_ROOT", &cfg.Signal.OptionRoot)
	setInt("CONDOR_SIGNAL_WIDTH", &cfg.Signal.Width)

	setInt("CONDOR_TRADE_QTY_TARGET", &cfg.Trade.QtyTarget)
	setInt("CONDOR_TRADE_QTY_OVERRIDE", &cfg.Trade.QtyOverride)
	setBool("CONDOR_TRADE_DRY_RUN", &cfg.Trade.DryRun)

	setFloat("CONDOR_LADDER_TICK", &cfg.Ladder.Tick)
	setFloat("CONDOR_LADDER_CREDIT_START", &cfg.Ladder.CreditStart)
	setFloat("CONDOR_LADDER_CREDIT_FLOOR", &cfg.Ladder.CreditFloor)
	setFloat("CONDOR_LADDER_DEBIT_START", &cfg.Ladder.DebitStart)
	setFloat("CONDOR_LADDER_DEBIT_CEILING", &cfg.Ladder.DebitCeiling)
	setDuration("CONDOR_LADDER_POLL_INTERVAL", &cfg.Ladder.PollInterval)
	setDuration("CONDOR_LADDER_MAX_SESSION", &cfg.Ladder.MaxSession)

	setStr("CONDOR_LEASE_BACKEND", &cfg.Lease.Backend)
	setStr("CONDOR_LEASE_KEY", &cfg.Lease.Key)
	setDuration("CONDOR_LEASE_TTL", &cfg.Lease.TTL)

	setStr("CONDOR_REDIS_ADDR", &cfg.Redis.Addr)
	setStr("CONDOR_REDIS_PASSWORD", &cfg.Redis.Password)
	setInt("CONDOR_REDIS_DB", &cfg.Redis.DB)

	setStr("CONDOR_POSTGRES_HOST", &cfg.Postgres.Host)
	setInt("CONDOR_POSTGRES_PORT", &cfg.Postgres.Port)
	setStr("CONDOR_POSTGRES_USER", &cfg.Postgres.User)
	setStr("CONDOR_POSTGRES_PASSWORD", &cfg.Postgres.Password)
	setStr("CONDOR_POSTGRES_DATABASE", &cfg.Postgres.Database)
	setStr("CONDOR_POSTGRES_SSL_MODE", &cfg.Postgres.SSLMode)

	setStr("CONDOR_S3_REGION", &cfg.S3.Region)
	setStr("CONDOR_S3_BUCKET", &cfg.S3.Bucket)
	setStr("CONDOR_S3_PREFIX", &cfg.S3.Prefix)
	setStr("CONDOR_S3_ENDPOINT", &cfg.S3.Endpoint)
	setStr("CONDOR_S3_ACCESS_KEY_ID", &cfg.S3.AccessKeyID)
	setStr("CONDOR_S3_SECRET_ACCESS_KEY", &cfg.S3.SecretAccessKey)
	setBool("CONDOR_S3_USE_PATH_STYLE", &cfg.S3.UsePathStyle)
	setDuration("CONDOR_S3_RETAIN_FOR", &cfg.S3.RetainFor)

	setStr("CONDOR_NOTIFY_TELEGRAM_TOKEN", &cfg.Notify.TelegramToken)
	setStr("CONDOR_NOTIFY_TELEGRAM_CHAT_ID", &cfg.Notify.TelegramChatID)
	setStr("CONDOR_NOTIFY_DISCORD_WEBHOOK", &cfg.Notify.DiscordWebhook)
}

func setStr(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setInt(key string, dst *int) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(key string, dst *bool) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setFloat(key string, dst *float64) {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setDuration(key string, dst *Duration) {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
